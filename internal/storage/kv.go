// Package storage provides the embedded key-value layer behind the
// credential store.
//
// Only point reads, point writes, deletes, an atomic batch and a
// read-modify-write transaction are exposed. The credential store never
// needs range scans. The batch replaces a token pair as one unit, and the
// transaction lets a purge check which session it is deleting.
package storage

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("kv engine closed")
)

// Mutation is one entry of an atomic batch. Delete takes precedence over Value.
type Mutation struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// Put returns a set mutation.
func Put(key string, value []byte) Mutation {
	return Mutation{Key: []byte(key), Value: value}
}

// Remove returns a delete mutation.
func Remove(key string) Mutation {
	return Mutation{Key: []byte(key), Delete: true}
}

// Txn is the view of the store inside Update. Reads observe the
// transaction's own writes.
type Txn interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
}

// KV defines the interface for embedded key-value storage.
//
// Implementations must be safe for concurrent use. Write applies every
// mutation or none of them.
type KV interface {
	// Get retrieves a value by key.
	// Returns ErrKeyNotFound if key doesn't exist.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set stores a key-value pair.
	Set(ctx context.Context, key, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key []byte) error

	// Write applies the mutations in a single transaction.
	Write(ctx context.Context, muts ...Mutation) error

	// Update runs fn in a read-write transaction. Nothing fn wrote is
	// applied when it returns an error. No other writer interleaves
	// between fn's reads and its commit.
	Update(ctx context.Context, fn func(txn Txn) error) error

	// Close releases the engine.
	Close() error
}

// KVConfig configures an embedded KV engine.
type KVConfig struct {
	// Dir is the storage directory.
	Dir string

	// Badger-specific configuration
	Badger BadgerConfig
}

// BadgerConfig contains Badger tuning parameters sized for a handful of
// small keys.
type BadgerConfig struct {
	// GCInterval is the interval between automatic value log GC runs.
	// Default: 30m
	GCInterval string

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 1MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 16MB
	ValueLogFileSize int64

	// MemTableSize is the memtable size in bytes.
	// Default: 4MB
	MemTableSize int64

	// SyncWrites enables fsync after each write.
	// Default: true, credentials must survive a crash right after login.
	SyncWrites bool
}

// DefaultKVConfig returns the default KV configuration.
func DefaultKVConfig(dir string) KVConfig {
	return KVConfig{
		Dir:    dir,
		Badger: DefaultBadgerConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       "30m",
		GCThreshold:      0.5,
		CacheSize:        1 << 20,
		ValueLogFileSize: 16 << 20,
		MemTableSize:     4 << 20,
		SyncWrites:       true,
	}
}
