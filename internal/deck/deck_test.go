package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackd/internal/randutil"
)

func TestNewDeckHas52UniqueCards(t *testing.T) {
	cards := New()
	require.Len(t, cards, Size)

	seen := make(map[Card]bool)
	for _, c := range cards {
		require.False(t, c.Hidden, "fresh cards must be face up")
		seen[c] = true
	}
	assert.Len(t, seen, Size, "every (suit, rank) pair appears exactly once")
}

func TestShuffleIsAPermutation(t *testing.T) {
	original := New()
	shuffled := Shuffle(original, randutil.New(42))

	require.Len(t, shuffled, Size)

	count := func(cards []Card) map[Card]int {
		m := make(map[Card]int)
		for _, c := range cards {
			m[c]++
		}
		return m
	}
	assert.Equal(t, count(original), count(shuffled))
}

func TestShuffleDoesNotMutateInput(t *testing.T) {
	original := New()
	snapshot := make([]Card, len(original))
	copy(snapshot, original)

	_ = Shuffle(original, randutil.New(7))

	assert.Equal(t, snapshot, original)
}

func TestShuffleIsDeterministicForSeed(t *testing.T) {
	a := Shuffle(New(), randutil.New(99))
	b := Shuffle(New(), randutil.New(99))
	assert.Equal(t, a, b)
}

func TestDealRemovesOneCard(t *testing.T) {
	cards := Shuffle(New(), randutil.New(1))

	card, remaining, err := Deal(cards)
	require.NoError(t, err)
	assert.Equal(t, cards[0], card)
	assert.Len(t, remaining, Size-1)
	assert.Len(t, cards, Size, "input deck is not mutated")
}

func TestDealEmptyDeck(t *testing.T) {
	_, _, err := Deal(nil)
	assert.ErrorIs(t, err, ErrEmptyDeck)

	_, _, err = Deal([]Card{})
	assert.ErrorIs(t, err, ErrEmptyDeck)
}

func TestDealExhaustsDeck(t *testing.T) {
	cards := New()
	for i := 0; i < Size; i++ {
		var err error
		_, cards, err = Deal(cards)
		require.NoError(t, err)
	}
	assert.Empty(t, cards)

	_, _, err := Deal(cards)
	assert.ErrorIs(t, err, ErrEmptyDeck)
}
