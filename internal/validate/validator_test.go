package validate

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackd/internal/deck"
	"github.com/lox/blackjackd/internal/game"
	"github.com/lox/blackjackd/internal/store"
)

func testValidator(t *testing.T, onRevert RevertFunc) (*store.MemoryGames, *store.IncidentLog, func()) {
	t.Helper()
	games := store.NewMemoryGames()
	incidents, err := store.OpenIncidentLog(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { incidents.Close() })

	v := NewValidator(games, incidents, log.New(io.Discard), onRevert)
	detach := v.Attach()
	return games, incidents, detach
}

func TestValidatorRevertsForgedPhaseJump(t *testing.T) {
	ctx := context.Background()
	var reverted []Violation
	games, incidents, detach := testValidator(t, func(tableID string, restored *game.GameState, violations []Violation) {
		reverted = violations
	})
	defer detach()

	state := stateWithPlayers(game.PhaseBetting, "alice")
	require.NoError(t, games.Put(ctx, state))

	forged := state.Clone()
	forged.Phase = game.PhaseFinished
	forged.Players[0].Chips = 5000
	require.NoError(t, games.Put(ctx, forged))

	// The store holds the pre-forgery snapshot again.
	got, err := games.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, game.PhaseBetting, got.Phase)
	assert.Equal(t, 1000, got.Players[0].Chips)

	require.NotEmpty(t, reverted)
	assert.Contains(t, rules(reverted), RulePhaseTransition)
	assert.Contains(t, rules(reverted), RuleChipConservation)

	logged, err := incidents.ListByGame(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, logged, len(reverted))
	assert.JSONEq(t, mustJSON(t, state), string(logged[0].Before))
	assert.JSONEq(t, mustJSON(t, forged), string(logged[0].After))
}

func TestValidatorRecordsImplicatedPlayer(t *testing.T) {
	ctx := context.Background()
	games, incidents, detach := testValidator(t, nil)
	defer detach()

	state := stateWithPlayers(game.PhasePlaying, "alice", "bob", "carol")
	dealTo(state, "alice", 2)
	dealTo(state, "bob", 2)
	dealTo(state, "carol", 2)
	state.CurrentPlayerIndex = 1
	require.NoError(t, games.Put(ctx, state))

	tampered := state.Clone()
	card, rest, err := deck.Deal(tampered.Deck)
	require.NoError(t, err)
	tampered.Deck = rest
	tampered.Players[2].Hand = tampered.Players[2].Hand.AddCard(card)
	require.NoError(t, games.Put(ctx, tampered))

	logged, err := incidents.ListByGame(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, RuleTurnScoping, logged[0].ViolatedRule)
	assert.Equal(t, "carol", logged[0].PlayerID)

	got, err := games.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Players[2].CardCount())
}

func TestValidatorIgnoresLegalWritesAndLifecycle(t *testing.T) {
	ctx := context.Background()
	games, incidents, detach := testValidator(t, func(string, *game.GameState, []Violation) {
		t.Fatal("onRevert must not fire for legal writes")
	})
	defer detach()

	// Create, a legal update, then delete: none should log incidents.
	state := stateWithPlayers(game.PhaseBetting, "alice")
	require.NoError(t, games.Put(ctx, state))

	state.Players[0].Chips -= 50
	state.Players[0].Bet = 50
	require.NoError(t, games.Put(ctx, state))

	require.NoError(t, games.Delete(ctx, "t1"))

	count, err := incidents.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestValidatorRevertDoesNotLoop(t *testing.T) {
	ctx := context.Background()
	fired := 0
	games, _, detach := testValidator(t, func(string, *game.GameState, []Violation) { fired++ })
	defer detach()

	state := stateWithPlayers(game.PhaseBetting, "alice")
	require.NoError(t, games.Put(ctx, state))

	forged := state.Clone()
	forged.Players[0].Chips = 9999
	require.NoError(t, games.Put(ctx, forged))

	// The compensating Restore must not itself be validated, or the
	// rollback would be flagged and reverted forever.
	assert.Equal(t, 1, fired)
}

func mustJSON(t *testing.T, state *game.GameState) string {
	t.Helper()
	data, err := json.Marshal(state)
	require.NoError(t, err)
	return string(data)
}
