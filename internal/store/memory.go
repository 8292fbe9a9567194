package store

import (
	"context"
	"sort"
	"sync"

	"github.com/lox/blackjackd/internal/game"
)

// MemoryGames is the in-process GameStore. Documents are deep-copied
// on the way in and out so no caller can mutate a stored snapshot, and
// subscribers always see independent before/after copies.
type MemoryGames struct {
	mu          sync.RWMutex
	games       map[string]*game.GameState
	subscribers map[int]GameWatchFunc
	nextSub     int
}

// NewMemoryGames creates an empty in-memory game store.
func NewMemoryGames() *MemoryGames {
	return &MemoryGames{
		games:       make(map[string]*game.GameState),
		subscribers: make(map[int]GameWatchFunc),
	}
}

// Get returns a copy of the stored game state.
func (m *MemoryGames) Get(ctx context.Context, tableID string) (*game.GameState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.games[tableID]
	if !ok {
		return nil, ErrNotFound
	}
	return state.Clone(), nil
}

// Put replaces the document and notifies subscribers outside the lock.
func (m *MemoryGames) Put(ctx context.Context, state *game.GameState) error {
	m.mu.Lock()
	before := m.games[state.TableID]
	stored := state.Clone()
	m.games[state.TableID] = stored
	after := stored.Clone()
	subs := m.snapshotSubscribers()
	m.mu.Unlock()

	for _, fn := range subs {
		fn(state.TableID, before, after)
	}
	return nil
}

// Restore writes the document back without notifying subscribers.
func (m *MemoryGames) Restore(ctx context.Context, state *game.GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[state.TableID] = state.Clone()
	return nil
}

// Delete removes the document. Deleting an absent document is a no-op.
func (m *MemoryGames) Delete(ctx context.Context, tableID string) error {
	m.mu.Lock()
	before, ok := m.games[tableID]
	delete(m.games, tableID)
	subs := m.snapshotSubscribers()
	m.mu.Unlock()

	if ok {
		for _, fn := range subs {
			fn(tableID, before, nil)
		}
	}
	return nil
}

// Subscribe registers a watcher; the returned func cancels it.
func (m *MemoryGames) Subscribe(fn GameWatchFunc) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

func (m *MemoryGames) snapshotSubscribers() []GameWatchFunc {
	ids := make([]int, 0, len(m.subscribers))
	for id := range m.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]GameWatchFunc, 0, len(ids))
	for _, id := range ids {
		subs = append(subs, m.subscribers[id])
	}
	return subs
}

// MemoryTables is the in-process TableStore.
type MemoryTables struct {
	mu          sync.RWMutex
	tables      map[string]*game.Table
	subscribers map[int]TableWatchFunc
	nextSub     int
}

// NewMemoryTables creates an empty in-memory table store.
func NewMemoryTables() *MemoryTables {
	return &MemoryTables{
		tables:      make(map[string]*game.Table),
		subscribers: make(map[int]TableWatchFunc),
	}
}

// Get returns a copy of the stored table record.
func (m *MemoryTables) Get(ctx context.Context, tableID string) (*game.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	table, ok := m.tables[tableID]
	if !ok {
		return nil, ErrNotFound
	}
	return table.Clone(), nil
}

// Put replaces the record and notifies subscribers.
func (m *MemoryTables) Put(ctx context.Context, table *game.Table) error {
	m.mu.Lock()
	before := m.tables[table.ID]
	stored := table.Clone()
	m.tables[table.ID] = stored
	after := stored.Clone()
	subs := m.snapshotSubscribers()
	m.mu.Unlock()

	for _, fn := range subs {
		fn(table.ID, before, after)
	}
	return nil
}

// Delete removes the record. Deleting an absent record is a no-op.
func (m *MemoryTables) Delete(ctx context.Context, tableID string) error {
	m.mu.Lock()
	before, ok := m.tables[tableID]
	delete(m.tables, tableID)
	subs := m.snapshotSubscribers()
	m.mu.Unlock()

	if ok {
		for _, fn := range subs {
			fn(tableID, before, nil)
		}
	}
	return nil
}

// List returns copies of all table records.
func (m *MemoryTables) List(ctx context.Context) ([]*game.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*game.Table, 0, len(m.tables))
	for _, t := range m.tables {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Subscribe registers a watcher; the returned func cancels it.
func (m *MemoryTables) Subscribe(fn TableWatchFunc) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

func (m *MemoryTables) snapshotSubscribers() []TableWatchFunc {
	ids := make([]int, 0, len(m.subscribers))
	for id := range m.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]TableWatchFunc, 0, len(ids))
	for _, id := range ids {
		subs = append(subs, m.subscribers[id])
	}
	return subs
}
