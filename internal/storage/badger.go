// Package storage provides Badger-based KV storage implementation.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
)

// BadgerEngine implements KV using Badger v3.
type BadgerEngine struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	lastGCTime atomic.Int64 // Unix milliseconds
	gcRuns     atomic.Uint64

	closeOnce sync.Once
	closed    atomic.Bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

var _ KV = (*BadgerEngine)(nil)

// NewBadgerEngine opens (or creates) a Badger database in cfg.Dir.
func NewBadgerEngine(cfg KVConfig, logger *slog.Logger) (*BadgerEngine, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	bc := cfg.Badger
	opts := badger.DefaultOptions(cfg.Dir).
		WithLogger(&badgerLogger{logger: logger}).
		WithLoggingLevel(badger.WARNING).
		WithSyncWrites(bc.SyncWrites).
		WithNumVersionsToKeep(1)
	if bc.CacheSize > 0 {
		opts = opts.WithBlockCacheSize(bc.CacheSize)
	}
	if bc.ValueLogFileSize > 0 {
		opts = opts.WithValueLogFileSize(bc.ValueLogFileSize)
	}
	if bc.MemTableSize > 0 {
		opts = opts.WithMemTableSize(bc.MemTableSize)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	engine := &BadgerEngine{
		db:     db,
		cfg:    bc,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go engine.gcLoop()

	logger.Debug("badger engine started",
		"dir", cfg.Dir,
		"sync_writes", bc.SyncWrites,
		"gc_interval", bc.GCInterval)

	return engine, nil
}

// Get retrieves a value by key.
func (e *BadgerEngine) Get(ctx context.Context, key []byte) ([]byte, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrKeyNotFound
			}
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}

// Set stores a key-value pair.
func (e *BadgerEngine) Set(ctx context.Context, key, value []byte) error {
	return e.Write(ctx, Mutation{Key: key, Value: value})
}

// Delete removes a key.
func (e *BadgerEngine) Delete(ctx context.Context, key []byte) error {
	return e.Write(ctx, Mutation{Key: key, Delete: true})
}

// Write applies all mutations inside one read-write transaction.
func (e *BadgerEngine) Write(ctx context.Context, muts ...Mutation) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(muts) == 0 {
		return nil
	}

	return e.db.Update(func(txn *badger.Txn) error {
		for _, m := range muts {
			var err error
			if m.Delete {
				err = txn.Delete(m.Key)
			} else {
				err = txn.Set(m.Key, m.Value)
			}
			if err != nil {
				return fmt.Errorf("badger: %s: %w", m.Key, err)
			}
		}
		return nil
	})
}

// maxConflictRetries bounds how often Update reruns fn after Badger
// reports a conflicting concurrent commit.
const maxConflictRetries = 8

// Update runs fn inside a Badger read-write transaction, rerunning it when
// a concurrent commit touched the keys it read.
func (e *BadgerEngine) Update(ctx context.Context, fn func(txn Txn) error) error {
	if e.closed.Load() {
		return ErrClosed
	}

	var err error
	for i := 0; i < maxConflictRetries; i++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		err = e.db.Update(func(txn *badger.Txn) error {
			return fn(badgerTxn{txn: txn})
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		e.logger.Debug("badger transaction conflict, retrying", "attempt", i+1)
	}
	return fmt.Errorf("badger: update: %w", err)
}

type badgerTxn struct {
	txn *badger.Txn
}

func (t badgerTxn) Get(key []byte) ([]byte, error) {
	item, err := t.txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t badgerTxn) Set(key, value []byte) error {
	return t.txn.Set(key, value)
}

func (t badgerTxn) Delete(key []byte) error {
	return t.txn.Delete(key)
}

// GC runs value log garbage collection until nothing more can be rewritten.
func (e *BadgerEngine) GC(ctx context.Context) error {
	start := time.Now()
	runs := 0
	for ctx.Err() == nil {
		err := e.db.RunValueLogGC(e.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
				break
			}
			return fmt.Errorf("gc: %w", err)
		}
		runs++
	}

	e.lastGCTime.Store(time.Now().UnixMilli())
	e.gcRuns.Add(uint64(runs))
	e.logger.Debug("gc completed", "rewrites", runs, "elapsed", time.Since(start))
	return nil
}

// Close stops the GC loop and closes the database. Safe to call twice.
func (e *BadgerEngine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.stopCh)
		<-e.doneCh

		if cerr := e.db.Close(); cerr != nil {
			err = fmt.Errorf("close db: %w", cerr)
		}
		e.logger.Debug("badger engine closed")
	})
	return err
}

// RegisterMetrics exposes Badger size and GC figures as collectors sampled
// at scrape time.
func (e *BadgerEngine) RegisterMetrics(reg prometheus.Registerer) *BadgerEngine {
	size := func(lsm bool) func() float64 {
		return func() float64 {
			if e.closed.Load() {
				return 0
			}
			l, v := e.db.Size()
			if lsm {
				return float64(l)
			}
			return float64(v)
		}
	}

	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "recall",
			Subsystem: "store",
			Name:      "lsm_size_bytes",
			Help:      "Credential store LSM tree size in bytes",
		}, size(true)),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "recall",
			Subsystem: "store",
			Name:      "value_log_size_bytes",
			Help:      "Credential store value log size in bytes",
		}, size(false)),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "recall",
			Subsystem: "store",
			Name:      "last_gc_timestamp_seconds",
			Help:      "Unix timestamp of the last value log GC",
		}, func() float64 { return float64(e.lastGCTime.Load()) / 1000.0 }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "recall",
			Subsystem: "store",
			Name:      "gc_rewrites_total",
			Help:      "Value log files rewritten by GC",
		}, func() float64 { return float64(e.gcRuns.Load()) }),
	)
	return e
}

// gcLoop runs periodic garbage collection.
func (e *BadgerEngine) gcLoop() {
	defer close(e.doneCh)

	interval, err := time.ParseDuration(e.cfg.GCInterval)
	if err != nil || interval <= 0 {
		e.logger.Warn("invalid gc_interval, using default 30m", "value", e.cfg.GCInterval)
		interval = 30 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if err := e.GC(ctx); err != nil {
				e.logger.Warn("auto gc failed", "error", err)
			}
			cancel()

		case <-e.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
