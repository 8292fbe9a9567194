// Package supervisor watches game-state writes and forces a stand on
// any player who sits on their turn past the configured deadline, so
// a stalled or vanished client cannot freeze the table.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blackjackd/internal/game"
	"github.com/lox/blackjackd/internal/store"
)

// MoveFunc submits an action on a player's behalf; the game service's
// move handler satisfies it, so a forced stand flows through the same
// path as a client's, settlement and broadcast included.
type MoveFunc func(ctx context.Context, tableID, playerID, action string) error

// TurnSupervisor arms one timer per table, keyed to the exact turn it
// was armed for. Any state write that changes whose turn it is, or
// what they hold, disarms and re-arms, so a player who acts in time is
// never auto-stood.
type TurnSupervisor struct {
	games   store.GameStore
	move    MoveFunc
	clock   quartz.Clock
	logger  *log.Logger
	timeout time.Duration

	mu     sync.Mutex
	timers map[string]*armedTimer
}

type armedTimer struct {
	key   string
	timer *quartz.Timer
}

// NewTurnSupervisor creates a supervisor. It does nothing until
// attached to the game store.
func NewTurnSupervisor(games store.GameStore, move MoveFunc, clock quartz.Clock, logger *log.Logger, timeout time.Duration) *TurnSupervisor {
	return &TurnSupervisor{
		games:   games,
		move:    move,
		clock:   clock,
		logger:  logger.WithPrefix("supervisor"),
		timeout: timeout,
		timers:  make(map[string]*armedTimer),
	}
}

// Attach subscribes the supervisor to the game store. The returned
// func detaches it and stops all pending timers.
func (s *TurnSupervisor) Attach() func() {
	cancel := s.games.Subscribe(s.OnGameWrite)
	return func() {
		cancel()
		s.Stop()
	}
}

// Stop disarms every pending timer.
func (s *TurnSupervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tableID, armed := range s.timers {
		armed.timer.Stop()
		delete(s.timers, tableID)
	}
}

// turnKey identifies one specific decision point: if any component
// changes, the previous timer no longer applies. Card count is
// included so a hit restarts the clock even though the turn cursor
// stays put.
func turnKey(state *game.GameState) string {
	p := state.CurrentPlayer()
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%s/%d/%d/%s/%v/%d",
		state.TableID, state.Round, state.CurrentPlayerIndex, p.ID, p.IsPlayingMainHand, p.CardCount())
}

// OnGameWrite re-keys the table's timer after every observed write.
func (s *TurnSupervisor) OnGameWrite(tableID string, before, after *game.GameState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	armed := s.timers[tableID]

	if after == nil || after.Phase != game.PhasePlaying {
		if armed != nil {
			armed.timer.Stop()
			delete(s.timers, tableID)
		}
		return
	}

	key := turnKey(after)
	if key == "" {
		if armed != nil {
			armed.timer.Stop()
			delete(s.timers, tableID)
		}
		return
	}
	if armed != nil {
		if armed.key == key {
			return
		}
		armed.timer.Stop()
	}

	s.timers[tableID] = &armedTimer{
		key: key,
		timer: s.clock.AfterFunc(s.timeout, func() {
			s.expire(tableID, key)
		}),
	}
}

// expire fires the auto-stand, but only if the turn it was armed for
// is still the live one.
func (s *TurnSupervisor) expire(tableID, key string) {
	s.mu.Lock()
	armed := s.timers[tableID]
	if armed == nil || armed.key != key {
		s.mu.Unlock()
		return
	}
	delete(s.timers, tableID)
	s.mu.Unlock()

	ctx := context.Background()
	state, err := s.games.Get(ctx, tableID)
	if err != nil {
		return
	}
	if state.Phase != game.PhasePlaying || turnKey(state) != key {
		return
	}

	p := state.CurrentPlayer()
	s.logger.Warn("turn timed out, forcing stand", "table", tableID, "player", p.ID)

	if err := s.move(ctx, tableID, p.ID, game.Stand.String()); err != nil {
		s.logger.Error("forced stand failed", "table", tableID, "player", p.ID, "error", err)
	}
}
