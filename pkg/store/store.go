package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key is absent or expired.
	ErrNotFound = errors.New("store: key not found")

	// ErrUnavailable marks a backend failure that survived every
	// retry. Callers should degrade, not retry again.
	ErrUnavailable = errors.New("store: unavailable")
)

// Op is one mutation inside an atomic transaction. All ops in a Tx
// call are applied together or not at all.
type Op interface {
	isOp()
}

// SetOp writes a JSON value under key with a TTL.
type SetOp struct {
	Key   string
	Value interface{}
	TTL   time.Duration
}

// PushOp prepends a JSON value to a list, trims the list to MaxLen
// and refreshes the list TTL.
type PushOp struct {
	Key    string
	Value  interface{}
	MaxLen int64
	TTL    time.Duration
}

// DelOp removes a key.
type DelOp struct {
	Key string
}

func (SetOp) isOp()  {}
func (PushOp) isOp() {}
func (DelOp) isOp()  {}

// Snapshot holds a mutually consistent multi-key read: plain values
// and full lists fetched in one transaction. Missing keys are absent
// from the maps.
type Snapshot struct {
	Values map[string][]byte
	Lists  map[string][][]byte
}

// Store is an ordered key-value store with per-key TTL and atomic
// multi-key read/write primitives. Lists are newest-first.
type Store interface {
	// GetJSON reads key into dest, ErrNotFound when absent.
	GetJSON(ctx context.Context, key string, dest interface{}) error
	// SetJSON writes value under key with a TTL (0 means no expiry).
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Push prepends value to the list at key, capped at maxLen entries.
	Push(ctx context.Context, key string, value interface{}, maxLen int64, ttl time.Duration) error
	// Range returns raw list entries [start, stop], newest first.
	// stop=-1 means the whole list. Missing keys yield an empty slice.
	Range(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	// Delete removes keys and returns how many existed. Per-key errors
	// are joined so callers can report partial outcomes.
	Delete(ctx context.Context, keys ...string) (int64, error)
	// Exists reports whether any of the keys is present.
	Exists(ctx context.Context, keys ...string) (bool, error)
	// Tx applies the ops atomically.
	Tx(ctx context.Context, ops ...Op) error
	// View reads value keys and list keys in one transaction so a
	// concurrent writer is never observed mid-update.
	View(ctx context.Context, valueKeys, listKeys []string) (*Snapshot, error)
	// Close releases the underlying connections.
	Close() error
}
