// Package timeouts provides centralized timeout values for handler and
// engine operations.
//
// These are used with context.WithTimeout around database and gateway I/O.
// Guidelines:
//   - Ping: health checks
//   - Short: single-document reads
//   - Medium: list queries, simple writes
//   - Long: writes touching multiple collections (status decisions, deletes)
//   - Batch: bulk updates (year promotion)
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults, used unless Configure overrides them.
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultBatch  = 60 * time.Second
)

var mu sync.RWMutex

var (
	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	long   = DefaultLong
	batch  = DefaultBatch
)

// Ping returns the timeout for health checks.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Short returns the timeout for single-document reads.
func Short() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return short
}

// Medium returns the timeout for list queries and simple writes.
func Medium() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return medium
}

// Long returns the timeout for operations touching multiple collections.
func Long() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return long
}

// Batch returns the timeout for bulk updates.
func Batch() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return batch
}

// Config holds override values. Zero values keep the current setting.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}

// Configure sets custom timeout values. Call during startup, before
// handlers are registered.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Short > 0 {
		short = cfg.Short
	}
	if cfg.Medium > 0 {
		medium = cfg.Medium
	}
	if cfg.Long > 0 {
		long = cfg.Long
	}
	if cfg.Batch > 0 {
		batch = cfg.Batch
	}
}

// Reset restores defaults. Useful in tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping = DefaultPing
	short = DefaultShort
	medium = DefaultMedium
	long = DefaultLong
	batch = DefaultBatch
}

// WithTimeout wraps ctx with the given timeout and logs the label at debug
// level so slow operations can be traced back to their call site.
func WithTimeout(ctx context.Context, d time.Duration, log *zap.Logger, label string) (context.Context, context.CancelFunc) {
	if log != nil {
		log.Debug("operation timeout set", zap.String("op", label), zap.Duration("timeout", d))
	}
	return context.WithTimeout(ctx, d)
}
