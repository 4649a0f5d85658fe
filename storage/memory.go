// Package storage opens the shared in-memory key/value store backing the
// query cache and the navigation handoff store. Nothing in this subsystem
// is durable; the store exists for process-wide ownership and TTL support.
package storage

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

func OpenInMemory() (*badger.DB, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	return db, nil
}
