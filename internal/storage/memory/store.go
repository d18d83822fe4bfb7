// Package memory provides an in-process implementation of storage.KV.
package memory

import (
	"context"
	"sync"

	"github.com/yndnr/recall-go/internal/storage"
)

// Store is a map-backed KV.
type Store struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool

	writes int
}

var _ storage.KV = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get retrieves a copy of the value stored under key.
func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}
	v, ok := s.data[string(key)]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a key-value pair.
func (s *Store) Set(ctx context.Context, key, value []byte) error {
	return s.Write(ctx, storage.Mutation{Key: key, Value: value})
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key []byte) error {
	return s.Write(ctx, storage.Mutation{Key: key, Delete: true})
}

// Write applies the mutations under one lock.
func (s *Store) Write(ctx context.Context, muts ...storage.Mutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}
	for _, m := range muts {
		if m.Delete {
			delete(s.data, string(m.Key))
			continue
		}
		s.data[string(m.Key)] = append([]byte(nil), m.Value...)
	}
	s.writes++
	return nil
}

// Update runs fn against a staged view of the store and applies the staged
// writes when fn succeeds. The store stays locked for the whole call.
func (s *Store) Update(ctx context.Context, fn func(txn storage.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}
	txn := &memTxn{data: s.data, staged: make(map[string]storage.Mutation)}
	if err := fn(txn); err != nil {
		return err
	}
	if len(txn.staged) == 0 {
		return nil
	}
	for k, m := range txn.staged {
		if m.Delete {
			delete(s.data, k)
			continue
		}
		s.data[k] = m.Value
	}
	s.writes++
	return nil
}

type memTxn struct {
	data   map[string][]byte
	staged map[string]storage.Mutation
}

func (t *memTxn) Get(key []byte) ([]byte, error) {
	if m, ok := t.staged[string(key)]; ok {
		if m.Delete {
			return nil, storage.ErrKeyNotFound
		}
		return append([]byte(nil), m.Value...), nil
	}
	v, ok := t.data[string(key)]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (t *memTxn) Set(key, value []byte) error {
	t.staged[string(key)] = storage.Mutation{Key: key, Value: append([]byte(nil), value...)}
	return nil
}

func (t *memTxn) Delete(key []byte) error {
	t.staged[string(key)] = storage.Mutation{Key: key, Delete: true}
	return nil
}

// Writes returns how many Write batches and non-empty Update
// transactions were applied.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Close marks the store closed. Later calls fail with storage.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
