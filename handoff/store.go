// Package handoff passes "newly created entity" information from a child
// creation flow back to its parent through an explicit, token-keyed store
// with expiry, instead of ambient string-keyed browser storage. Tokens are
// single use and collisions are impossible by construction.
package handoff

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	apperrors "collab-hub/errors"

	"log/slog"
)

const keyPrefix = "handoff:"

const DefaultTTL = 5 * time.Minute

// Result is the typed payload a child creation flow leaves for its parent.
type Result struct {
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	Label      string    `json:"label,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Store struct {
	log *slog.Logger
	db  *badger.DB
	ttl time.Duration
}

func NewStore(log *slog.Logger, db *badger.DB, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{log: log, db: db, ttl: ttl}
}

// Put stores a result and returns the generated token the parent flow will
// redeem. The entry expires on its own when never redeemed.
func (s *Store) Put(res Result) (uuid.UUID, error) {
	token := uuid.New()
	payload, err := json.Marshal(res)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode handoff result: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(keyPrefix+token.String()), payload).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("store handoff result: %w", err)
	}
	return token, nil
}

// Take redeems a token, removing the entry in the same transaction so a
// token can be used exactly once. Expired and unknown tokens both come
// back as ErrHandoffNotFound.
func (s *Store) Take(token uuid.UUID) (Result, error) {
	var res Result
	key := []byte(keyPrefix + token.String())
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &res); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return Result{}, apperrors.ErrHandoffNotFound
		}
		return Result{}, fmt.Errorf("redeem handoff token: %w", err)
	}
	return res, nil
}
