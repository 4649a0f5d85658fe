// Package querycache is the default implementation of the query cache
// contract: a process-wide store over the shared in-memory key/value
// database. Keeping it outside component state is what lets a deletion
// event invalidate an entry whose UI is not currently mounted.
package querycache

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"log/slog"
)

const keyPrefix = "query:"

type Store struct {
	log *slog.Logger
	db  *badger.DB
}

func NewStore(log *slog.Logger, db *badger.DB) *Store {
	return &Store{log: log, db: db}
}

func (s *Store) GetCached(key string) (json.RawMessage, bool) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			s.log.Warn("Cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return out, true
}

func (s *Store) SetCached(key string, value json.RawMessage) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+key), value)
	})
	if err != nil {
		return fmt.Errorf("cache %s: %w", key, err)
	}
	return nil
}

func (s *Store) Invalidate(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + key))
	})
	if err != nil {
		return fmt.Errorf("invalidate %s: %w", key, err)
	}
	return nil
}
