// Package reaper tears down abandoned tables. A table whose last seat
// empties gets a grace period to attract players before its record and
// game state are deleted for good.
package reaper

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blackjackd/internal/game"
	"github.com/lox/blackjackd/internal/store"
)

// TableReaper watches game-state writes and deletes tables that stay
// empty past the grace period. A player joining during the grace
// period disarms the pending deletion.
type TableReaper struct {
	games  store.GameStore
	tables store.TableStore
	clock  quartz.Clock
	logger *log.Logger
	grace  time.Duration

	mu     sync.Mutex
	timers map[string]*quartz.Timer
}

// NewTableReaper creates a reaper. It does nothing until attached.
func NewTableReaper(games store.GameStore, tables store.TableStore, clock quartz.Clock, logger *log.Logger, grace time.Duration) *TableReaper {
	return &TableReaper{
		games:  games,
		tables: tables,
		clock:  clock,
		logger: logger.WithPrefix("reaper"),
		grace:  grace,
		timers: make(map[string]*quartz.Timer),
	}
}

// Attach subscribes the reaper to the game store. The returned func
// detaches it and stops all pending deletions.
func (r *TableReaper) Attach() func() {
	cancel := r.games.Subscribe(r.OnGameWrite)
	return func() {
		cancel()
		r.Stop()
	}
}

// Stop disarms every pending deletion.
func (r *TableReaper) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for tableID, timer := range r.timers {
		timer.Stop()
		delete(r.timers, tableID)
	}
}

// OnGameWrite arms or disarms the table's deletion timer based on
// occupancy after the write. Persistent tables are never armed: the
// configured lobby stays up through any amount of idle time.
func (r *TableReaper) OnGameWrite(tableID string, before, after *game.GameState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if after == nil || len(after.Players) > 0 {
		if timer, ok := r.timers[tableID]; ok {
			timer.Stop()
			delete(r.timers, tableID)
		}
		return
	}

	if table, err := r.tables.Get(context.Background(), tableID); err == nil && table.Persistent {
		return
	}

	if _, ok := r.timers[tableID]; ok {
		return
	}
	r.timers[tableID] = r.clock.AfterFunc(r.grace, func() {
		r.reap(tableID)
	})
}

// reap deletes the table and its game document if it is still empty.
// Deleting an already-gone table is a no-op, so racing a concurrent
// teardown is safe.
func (r *TableReaper) reap(tableID string) {
	r.mu.Lock()
	if _, ok := r.timers[tableID]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.timers, tableID)
	r.mu.Unlock()

	ctx := context.Background()
	state, err := r.games.Get(ctx, tableID)
	if err == nil && len(state.Players) > 0 {
		return
	}

	r.logger.Info("reaping abandoned table", "table", tableID)
	if err := r.games.Delete(ctx, tableID); err != nil {
		r.logger.Error("failed to delete game state", "table", tableID, "error", err)
	}
	if err := r.tables.Delete(ctx, tableID); err != nil {
		r.logger.Error("failed to delete table", "table", tableID, "error", err)
	}
}
