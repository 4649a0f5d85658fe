// Package search indexes ingested activity events for full-text lookup
// beyond the feed's bounded buffer. The index lives in memory only; nothing
// survives the session.
package search

import (
	"context"
	"fmt"
	"sync"

	"github.com/blugelabs/bluge"

	"collab-hub/domain"
)

// Hit is one search result, rebuilt from stored fields.
type Hit struct {
	ID         string
	Action     string
	UserName   string
	EntityType string
	EntityID   string
	Type       string
}

type Index struct {
	mu     sync.Mutex
	writer *bluge.Writer
}

func NewIndex() (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return nil, fmt.Errorf("open activity index: %w", err)
	}
	return &Index{writer: writer}, nil
}

func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.writer.Close()
}

// Add upserts one event, keyed by its id.
func (i *Index) Add(e domain.ActivityEvent) error {
	doc := bluge.NewDocument(e.ID.String()).
		AddField(bluge.NewTextField("action", e.Action).StoreValue()).
		AddField(bluge.NewTextField("userName", e.UserName).StoreValue()).
		AddField(bluge.NewKeywordField("entityType", e.EntityType).StoreValue()).
		AddField(bluge.NewKeywordField("entityId", e.EntityID).StoreValue()).
		AddField(bluge.NewKeywordField("type", string(e.Type)).StoreValue()).
		AddField(bluge.NewDateTimeField("timestamp", e.Timestamp))

	i.mu.Lock()
	defer i.mu.Unlock()
	return i.writer.Update(doc.ID(), doc)
}

// Search matches terms against action and user name, most relevant first.
func (i *Index) Search(ctx context.Context, terms string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	query := bluge.NewBooleanQuery().
		AddShould(bluge.NewMatchQuery(terms).SetField("action")).
		AddShould(bluge.NewMatchQuery(terms).SetField("userName")).
		SetMinShould(1)
	return i.run(ctx, bluge.NewTopNSearch(limit, query))
}

// ByEntity returns every indexed event touching one entity.
func (i *Index) ByEntity(ctx context.Context, entityType, entityID string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(entityType).SetField("entityType")).
		AddMust(bluge.NewTermQuery(entityID).SetField("entityId"))
	return i.run(ctx, bluge.NewTopNSearch(limit, query))
}

func (i *Index) run(ctx context.Context, req *bluge.TopNSearch) ([]Hit, error) {
	i.mu.Lock()
	reader, err := i.writer.Reader()
	i.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open index reader: %w", err)
	}
	defer reader.Close()

	it, err := reader.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search activity index: %w", err)
	}

	var hits []Hit
	for {
		match, err := it.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		var hit Hit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.ID = string(value)
			case "action":
				hit.Action = string(value)
			case "userName":
				hit.UserName = string(value)
			case "entityType":
				hit.EntityType = string(value)
			case "entityId":
				hit.EntityID = string(value)
			case "type":
				hit.Type = string(value)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
