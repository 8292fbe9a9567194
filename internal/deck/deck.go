package deck

import (
	"errors"
	rand "math/rand/v2"
)

// ErrEmptyDeck is returned when a card is requested from an empty deck.
var ErrEmptyDeck = errors.New("deck: no cards remaining")

// Size is the number of cards in a single standard deck.
const Size = 52

// New creates a standard 52-card deck, one of each (suit, rank) pair.
// The order is fixed; call Shuffle before dealing.
func New() []Card {
	cards := make([]Card, 0, Size)
	for suit := Hearts; suit <= Spades; suit++ {
		for rank := Ace; rank <= King; rank++ {
			cards = append(cards, NewCard(suit, rank))
		}
	}
	return cards
}

// Shuffle returns a uniformly random permutation of cards using
// Fisher-Yates. The input slice is not mutated.
func Shuffle(cards []Card, rng *rand.Rand) []Card {
	shuffled := make([]Card, len(cards))
	copy(shuffled, cards)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}

// Deal removes the top card and returns it with the remaining deck.
// The input slice is not mutated.
func Deal(cards []Card) (Card, []Card, error) {
	if len(cards) == 0 {
		return Card{}, nil, ErrEmptyDeck
	}
	remaining := make([]Card, len(cards)-1)
	copy(remaining, cards[1:])
	return cards[0], remaining, nil
}
