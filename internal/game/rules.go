package game

import "github.com/lox/blackjackd/internal/deck"

// Rules holds the table's rule-variant settings. The engine consults
// these everywhere; the validator deliberately does not (it works off
// snapshots alone).
type Rules struct {
	MinBet        int    `json:"minBet"`
	MaxBet        int    `json:"maxBet"`
	StartingChips int    `json:"startingChips"`
	Variant       string `json:"gameVariant"`

	DealerStandsOnSoft17 bool    `json:"dealerStandsOn17"`
	DoubleAfterSplit     bool    `json:"doubleAfterSplit"`
	SurrenderAllowed     bool    `json:"surrenderAllowed"`
	InsuranceAllowed     bool    `json:"insuranceAllowed"`
	BlackjackPayout      float64 `json:"blackjackPayout"`
	MaxSplits            int     `json:"maxSplits"`
	DoubleOnAnyTwoCards  bool    `json:"doubleOnAnyTwoCards"`
	DoubleAfterSplitAces bool    `json:"doubleAfterSplitAces"`
}

// DefaultRules returns the standard table configuration: dealer stands
// on all 17s and blackjack pays 3:2.
func DefaultRules() Rules {
	return Rules{
		MinBet:               1,
		MaxBet:               500,
		StartingChips:        1000,
		Variant:              "classic",
		DealerStandsOnSoft17: true,
		DoubleAfterSplit:     true,
		SurrenderAllowed:     false,
		InsuranceAllowed:     true,
		BlackjackPayout:      1.5,
		MaxSplits:            1,
		DoubleOnAnyTwoCards:  true,
		DoubleAfterSplitAces: false,
	}
}

// DealerMustHit reports whether the dealer is obliged to draw another
// card: always below 17, and on soft 17 unless the variant stands.
func (r Rules) DealerMustHit(h deck.Hand) bool {
	if h.Value < 17 {
		return true
	}
	if h.Value == 17 && h.IsSoft && !r.DealerStandsOnSoft17 {
		return true
	}
	return false
}
