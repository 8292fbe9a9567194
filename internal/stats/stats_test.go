package stats

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackd/internal/deck"
	"github.com/lox/blackjackd/internal/game"
)

func settledPair(winnings map[string]int) (*game.GameState, *game.GameState) {
	before := game.NewGameState("t1", "host", deck.New())
	before.Phase = game.PhaseDealer
	after := before.Clone()
	after.Phase = game.PhaseFinished
	for name, net := range winnings {
		after.Players = append(after.Players, game.Player{
			ID:               name,
			Name:             name,
			LastHandWinnings: net,
		})
	}
	return before, after
}

func TestCollectorCountsSettlements(t *testing.T) {
	c := NewCollector()

	before, after := settledPair(map[string]int{"alice": 50, "bob": -25})
	c.OnGameWrite("t1", before, after)

	before, after = settledPair(map[string]int{"alice": 0})
	c.OnGameWrite("t1", before, after)

	snap := c.Snapshot()
	assert.Equal(t, 2, snap.RoundsSettled)
	require.Len(t, snap.Players, 2)

	assert.Equal(t, "alice", snap.Players[0].PlayerID, "sorted by net chips")
	assert.Equal(t, 50, snap.Players[0].NetChips)
	assert.Equal(t, 2, snap.Players[0].Rounds)
	assert.Equal(t, 1, snap.Players[0].Wins)
	assert.Equal(t, 1, snap.Players[0].Pushes)

	assert.Equal(t, "bob", snap.Players[1].PlayerID)
	assert.Equal(t, 1, snap.Players[1].Losses)
}

func TestCollectorIgnoresOtherTransitions(t *testing.T) {
	c := NewCollector()

	state := game.NewGameState("t1", "host", deck.New())
	c.OnGameWrite("t1", nil, state)

	mid := state.Clone()
	mid.Phase = game.PhaseDealing
	c.OnGameWrite("t1", state, mid)

	c.OnGameWrite("t1", state, nil)

	assert.Zero(t, c.Snapshot().RoundsSettled)
}

func TestCollectorTracksHandOutcomes(t *testing.T) {
	c := NewCollector()

	before, after := settledPair(map[string]int{"alice": 75})
	after.Players[0].Hand = deck.NewHand().
		AddCard(deck.Card{Suit: deck.Spades, Rank: deck.Ace}).
		AddCard(deck.Card{Suit: deck.Hearts, Rank: deck.King})
	c.OnGameWrite("t1", before, after)

	snap := c.Snapshot()
	require.Len(t, snap.Players, 1)
	assert.Equal(t, 1, snap.Players[0].Blackjacks)
	assert.Zero(t, snap.Players[0].Busts)
}

func TestServeHTTP(t *testing.T) {
	c := NewCollector()
	before, after := settledPair(map[string]int{"alice": 10})
	c.OnGameWrite("t1", before, after)

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest("GET", "/stats", nil))

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var snap Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 1, snap.RoundsSettled)
}
