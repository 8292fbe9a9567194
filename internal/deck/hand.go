package deck

// Hand is a sequence of cards with its derived blackjack score. The
// Value, IsSoft, IsBlackjack and IsBusted fields are always a pure
// function of Cards (plus FromSplit); they are recomputed by
// recalculate on every mutation path and never set independently.
type Hand struct {
	Cards       []Card `json:"cards"`
	Value       int    `json:"value"`
	IsSoft      bool   `json:"isSoft"`
	IsBlackjack bool   `json:"isBlackjack"`
	IsBusted    bool   `json:"isBusted"`

	// FromSplit disqualifies a two-card 21 from counting as a natural.
	FromSplit bool `json:"fromSplit,omitempty"`
}

// NewHand creates an empty hand
func NewHand() Hand {
	return Hand{Cards: []Card{}}
}

// NewSplitHand creates a one-card hand produced by splitting a pair.
func NewSplitHand(card Card) Hand {
	h := Hand{Cards: []Card{card}, FromSplit: true}
	h.recalculate()
	return h
}

// AddCard returns a new hand with card appended and all derived fields
// recomputed. The receiver is not mutated.
func (h Hand) AddCard(card Card) Hand {
	cards := make([]Card, len(h.Cards)+1)
	copy(cards, h.Cards)
	cards[len(h.Cards)] = card
	next := Hand{Cards: cards, FromSplit: h.FromSplit}
	next.recalculate()
	return next
}

// Reveal returns the hand with all hidden cards turned face up.
func (h Hand) Reveal() Hand {
	cards := make([]Card, len(h.Cards))
	copy(cards, h.Cards)
	for i := range cards {
		cards[i].Hidden = false
	}
	next := Hand{Cards: cards, FromSplit: h.FromSplit}
	next.recalculate()
	return next
}

// Score computes the blackjack total of a card sequence. Aces count 11
// unless that busts the hand, in which case they are demoted to 1 one
// at a time. soft reports whether an ace is still counted as 11.
func Score(cards []Card) (value int, soft bool) {
	aces := 0
	for _, c := range cards {
		value += c.Rank.BaseValue()
		if c.IsAce() {
			aces++
		}
	}
	for value > 21 && aces > 0 {
		value -= 10
		aces--
	}
	return value, aces > 0
}

// recalculate rederives the cached score fields from Cards.
func (h *Hand) recalculate() {
	h.Value, h.IsSoft = Score(h.Cards)
	h.IsBlackjack = len(h.Cards) == 2 && h.Value == 21 && !h.FromSplit
	h.IsBusted = h.Value > 21
}
