package repository

import (
	"context"

	"BiasGuard/internal/domain/repository"
	"BiasGuard/pkg/store"
)

// Wiper implements repository.SymbolWiper on the key-value store.
type Wiper struct {
	store store.Store
}

// NewWiper creates a symbol wiper.
func NewWiper(s store.Store) repository.SymbolWiper {
	return &Wiper{store: s}
}

// Wipe deletes every key the symbol owns. Keys already expired count
// as attempted but not deleted.
func (w *Wiper) Wipe(ctx context.Context, symbol string) (int64, int, error) {
	keys := symbolKeys(symbol)
	deleted, err := w.store.Delete(ctx, keys...)
	return deleted, len(keys), err
}
