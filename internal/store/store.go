// Package store is the shared-state boundary: document stores keyed by
// table identifier with full-document writes and change subscriptions.
// The validator relies on subscribers receiving both the pre-update
// and post-update document bodies.
package store

import (
	"context"
	"errors"

	"github.com/lox/blackjackd/internal/game"
)

// ErrNotFound is returned when no document exists for the identifier.
var ErrNotFound = errors.New("store: document not found")

// GameWatchFunc observes one game-state write. before is nil for a
// create, after is nil for a delete.
type GameWatchFunc func(tableID string, before, after *game.GameState)

// TableWatchFunc observes one table write, same nil conventions.
type TableWatchFunc func(tableID string, before, after *game.Table)

// GameStore holds the authoritative game-state documents.
type GameStore interface {
	Get(ctx context.Context, tableID string) (*game.GameState, error)

	// Put replaces the whole document and notifies subscribers with
	// the before/after pair.
	Put(ctx context.Context, state *game.GameState) error

	// Restore is the compensating write used to revert a rejected
	// transition. It does not notify subscribers, so a revert cannot
	// itself be flagged and re-reverted.
	Restore(ctx context.Context, state *game.GameState) error

	Delete(ctx context.Context, tableID string) error

	// Subscribe registers a watcher for every subsequent write. The
	// returned function cancels the subscription.
	Subscribe(fn GameWatchFunc) (cancel func())
}

// TableStore holds the lobby-facing table records.
type TableStore interface {
	Get(ctx context.Context, tableID string) (*game.Table, error)
	Put(ctx context.Context, table *game.Table) error
	Delete(ctx context.Context, tableID string) error
	List(ctx context.Context) ([]*game.Table, error)
	Subscribe(fn TableWatchFunc) (cancel func())
}
