package supervisor

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackd/internal/deck"
	"github.com/lox/blackjackd/internal/game"
	"github.com/lox/blackjackd/internal/randutil"
	"github.com/lox/blackjackd/internal/store"
)

const turnTimeout = 30 * time.Second

func testSetup(t *testing.T) (*store.MemoryGames, *game.Engine, *quartz.Mock, func()) {
	t.Helper()
	games := store.NewMemoryGames()
	engine := game.NewEngine(game.DefaultRules(), randutil.New(42), log.New(io.Discard))
	mockClock := quartz.NewMock(t)

	move := func(ctx context.Context, tableID, playerID, actionName string) error {
		action, err := game.ParseAction(actionName)
		if err != nil {
			return err
		}
		state, err := games.Get(ctx, tableID)
		if err != nil {
			return err
		}
		if err := engine.ProcessPlayerAction(state, playerID, action); err != nil {
			return err
		}
		return games.Put(ctx, state)
	}

	sup := NewTurnSupervisor(games, move, mockClock, log.New(io.Discard), turnTimeout)
	detach := sup.Attach()
	t.Cleanup(detach)
	return games, engine, mockClock, detach
}

// playingState builds a mid-round state: every seat has a bet and two
// cards, and the first seat is to act.
func playingState(tableID string, names ...string) *game.GameState {
	state := game.NewGameState(tableID, "host", deck.New())
	state.Phase = game.PhasePlaying
	state.CurrentPlayerIndex = 0
	for i, name := range names {
		p := game.Player{
			ID:                name,
			UserID:            "u-" + name,
			Name:              name,
			Chips:             950,
			Bet:               50,
			Hand:              deck.NewHand(),
			IsPlayingMainHand: true,
			Position:          i,
		}
		card, rest, _ := deck.Deal(state.Deck)
		state.Deck = rest
		p.Hand = p.Hand.AddCard(card)
		card, rest, _ = deck.Deal(state.Deck)
		state.Deck = rest
		p.Hand = p.Hand.AddCard(card)
		state.Players = append(state.Players, p)
	}
	return state
}

func TestTimeoutForcesStand(t *testing.T) {
	ctx := context.Background()
	games, _, mockClock, _ := testSetup(t)

	state := playingState("t1", "alice", "bob")
	require.NoError(t, games.Put(ctx, state))

	mockClock.Advance(turnTimeout).MustWait(ctx)

	got, err := games.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "stand", got.LastAction)
	assert.Equal(t, "alice", got.LastActionPlayerID)
	assert.Equal(t, 1, got.CurrentPlayerIndex, "turn passed to the next seat")
	assert.Equal(t, game.PhasePlaying, got.Phase)
}

func TestTimeoutChainsThroughEverySeat(t *testing.T) {
	ctx := context.Background()
	games, _, mockClock, _ := testSetup(t)

	require.NoError(t, games.Put(ctx, playingState("t1", "alice", "bob")))

	// Each forced stand re-arms for the next seat; after the last one
	// the dealer plays out.
	mockClock.Advance(turnTimeout).MustWait(ctx)
	mockClock.Advance(turnTimeout).MustWait(ctx)

	got, err := games.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "bob", got.LastActionPlayerID)
	assert.Equal(t, game.PhaseDealer, got.Phase)
}

func TestActionInTimeDisarmsTimer(t *testing.T) {
	ctx := context.Background()
	games, engine, mockClock, _ := testSetup(t)

	state := playingState("t1", "alice")
	require.NoError(t, games.Put(ctx, state))

	mockClock.Advance(turnTimeout / 2).MustWait(ctx)

	// The player stands themselves; the round runs out to the dealer.
	require.NoError(t, engine.ProcessPlayerAction(state, "alice", game.Stand))
	require.NoError(t, games.Put(ctx, state))
	require.Equal(t, game.PhaseDealer, state.Phase)

	mockClock.Advance(turnTimeout).MustWait(ctx)

	got, err := games.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, game.PhaseDealer, got.Phase)
	assert.Equal(t, "alice", got.LastActionPlayerID)
}

func TestHitRestartsTheClock(t *testing.T) {
	ctx := context.Background()
	games, engine, mockClock, _ := testSetup(t)

	state := playingState("t1", "alice", "bob")
	require.NoError(t, games.Put(ctx, state))

	mockClock.Advance(turnTimeout - time.Second).MustWait(ctx)

	require.NoError(t, engine.ProcessPlayerAction(state, "alice", game.Hit))
	require.NoError(t, games.Put(ctx, state))

	// If the hit busted alice the turn already moved on; either way no
	// timer fires at the original deadline.
	mockClock.Advance(time.Second).MustWait(ctx)
	mid, err := games.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "hit", mid.LastAction)

	mockClock.Advance(turnTimeout - time.Second).MustWait(ctx)
	got, err := games.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "stand", got.LastAction, "fresh deadline expires with a forced stand")
}

func TestDetachStopsPendingTimers(t *testing.T) {
	ctx := context.Background()
	games, _, mockClock, detach := testSetup(t)

	state := playingState("t1", "alice")
	require.NoError(t, games.Put(ctx, state))

	detach()
	mockClock.Advance(turnTimeout).MustWait(ctx)

	got, err := games.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, got.LastAction)
	assert.Equal(t, game.PhasePlaying, got.Phase)
}

func TestDeleteDisarmsTimer(t *testing.T) {
	ctx := context.Background()
	games, _, mockClock, _ := testSetup(t)

	require.NoError(t, games.Put(ctx, playingState("t1", "alice")))
	require.NoError(t, games.Delete(ctx, "t1"))

	mockClock.Advance(turnTimeout).MustWait(ctx)

	_, err := games.Get(ctx, "t1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
