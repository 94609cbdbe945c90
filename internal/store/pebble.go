package store

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// PebbleStateStore keeps the state snapshot under a single key in an
// embedded Pebble database. Saves are synced to disk before returning.
type PebbleStateStore struct {
	db *pebble.DB
}

var pebbleStateKey = []byte("session_state")

func NewPebbleStateStore(path string) (*PebbleStateStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db: %w", err)
	}
	return &PebbleStateStore{db: db}, nil
}

func (p *PebbleStateStore) Load() ([]byte, error) {
	value, closer, err := p.db.Get(pebbleStateKey)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state: %w", err)
	}
	defer closer.Close()

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (p *PebbleStateStore) Save(data []byte) error {
	if err := p.db.Set(pebbleStateKey, data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

func (p *PebbleStateStore) Close() error {
	return p.db.Close()
}
