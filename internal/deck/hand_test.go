package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hand(cards ...Card) Hand {
	h := NewHand()
	for _, c := range cards {
		h = h.AddCard(c)
	}
	return h
}

func TestHandValues(t *testing.T) {
	tests := []struct {
		name      string
		cards     []Card
		value     int
		soft      bool
		blackjack bool
		busted    bool
	}{
		{"empty", nil, 0, false, false, false},
		{"hard 13", []Card{NewCard(Hearts, Six), NewCard(Spades, Seven)}, 13, false, false, false},
		{"soft 17", []Card{NewCard(Spades, Ace), NewCard(Diamonds, Six)}, 17, true, false, false},
		{"natural blackjack", []Card{NewCard(Spades, Ace), NewCard(Hearts, King)}, 21, true, true, false},
		{"three card 21", []Card{NewCard(Spades, Seven), NewCard(Hearts, Seven), NewCard(Clubs, Seven)}, 21, false, false, false},
		{"two aces", []Card{NewCard(Spades, Ace), NewCard(Hearts, Ace)}, 12, true, false, false},
		{"face cards count ten", []Card{NewCard(Spades, Jack), NewCard(Hearts, Queen)}, 20, false, false, false},
		{"bust", []Card{NewCard(Spades, King), NewCard(Hearts, Queen), NewCard(Clubs, Five)}, 25, false, false, true},
		{"ace rescues", []Card{NewCard(Spades, Ace), NewCard(Hearts, Nine), NewCard(Clubs, Five)}, 15, false, false, false},
		{"multiple ace demotion", []Card{NewCard(Spades, Ace), NewCard(Hearts, Ace), NewCard(Clubs, Nine)}, 21, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := hand(tt.cards...)
			assert.Equal(t, tt.value, h.Value)
			assert.Equal(t, tt.soft, h.IsSoft)
			assert.Equal(t, tt.blackjack, h.IsBlackjack)
			assert.Equal(t, tt.busted, h.IsBusted)
		})
	}
}

// Soft 17 hit by a 5 demotes the ace: 11+6+5 = 22 > 21, so the ace
// recounts as 1 for a hard 12.
func TestSoftHandDemotesAceOnHit(t *testing.T) {
	h := hand(NewCard(Spades, Ace), NewCard(Diamonds, Six))
	require.Equal(t, 17, h.Value)
	require.True(t, h.IsSoft)

	h = h.AddCard(NewCard(Clubs, Five))
	assert.Equal(t, 12, h.Value)
	assert.False(t, h.IsSoft)
	assert.False(t, h.IsBusted)
}

func TestAddCardDoesNotMutateReceiver(t *testing.T) {
	h := hand(NewCard(Spades, Ten))
	h2 := h.AddCard(NewCard(Hearts, Five))

	assert.Len(t, h.Cards, 1)
	assert.Equal(t, 10, h.Value)
	assert.Len(t, h2.Cards, 2)
	assert.Equal(t, 15, h2.Value)
}

func TestSplitHandCannotBeBlackjack(t *testing.T) {
	h := NewSplitHand(NewCard(Spades, Ace))
	h = h.AddCard(NewCard(Hearts, King))

	assert.Equal(t, 21, h.Value)
	assert.False(t, h.IsBlackjack, "a split 21 is not a natural")
}

func TestRevealClearsHiddenFlags(t *testing.T) {
	hole := Card{Suit: Hearts, Rank: Ten, Hidden: true}
	h := hand(hole, NewCard(Spades, Six))
	require.True(t, h.Cards[0].Hidden)

	revealed := h.Reveal()
	for _, c := range revealed.Cards {
		assert.False(t, c.Hidden)
	}
	assert.Equal(t, 16, revealed.Value)
	assert.True(t, h.Cards[0].Hidden, "receiver is not mutated")
}

// Cached fields must always equal the pure function of the card
// sequence, whatever order cards arrived in.
func TestDerivedFieldsRoundTrip(t *testing.T) {
	h := NewHand()
	for _, c := range []Card{
		NewCard(Spades, Ace),
		NewCard(Hearts, Four),
		NewCard(Clubs, Ace),
		NewCard(Diamonds, Three),
	} {
		h = h.AddCard(c)

		value, soft := Score(h.Cards)
		require.Equal(t, value, h.Value)
		require.Equal(t, soft, h.IsSoft)
		require.Equal(t, value > 21, h.IsBusted)
	}
}
