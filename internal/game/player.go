package game

import (
	"time"

	"github.com/lox/blackjackd/internal/deck"
)

// Player is one seat at a table. Bet money is escrowed: placing a bet
// moves chips into Bet, settlement moves the payout back, so chips
// never appear or vanish mid-round.
type Player struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Chips  int    `json:"chips"`

	Hand deck.Hand `json:"hand"`
	Bet  int       `json:"bet"`

	// Split state. SplitHand is non-nil iff HasSplit; SplitBet is the
	// second escrowed wager. IsPlayingMainHand is the sub-cursor: the
	// main hand is played first, then the split hand.
	HasSplit          bool       `json:"hasSplit"`
	SplitHand         *deck.Hand `json:"splitHand,omitempty"`
	SplitBet          int        `json:"splitBet,omitempty"`
	IsPlayingMainHand bool       `json:"isPlayingMainHand"`

	CanDouble bool `json:"canDouble"`
	CanSplit  bool `json:"canSplit"`

	InsuranceBet int  `json:"insuranceBet,omitempty"`
	Surrendered  bool `json:"surrendered,omitempty"`

	Position    int       `json:"position"`
	IsHost      bool      `json:"isHost"`
	IsConnected bool      `json:"isConnected"`
	LastSeen    time.Time `json:"lastSeen"`

	LastHandWinnings int `json:"lastHandWinnings"`
}

// ActiveHand returns a pointer to the hand currently in focus: the
// split hand once the main hand has been played out.
func (p *Player) ActiveHand() *deck.Hand {
	if p.HasSplit && !p.IsPlayingMainHand {
		return p.SplitHand
	}
	return &p.Hand
}

// ActiveBet returns a pointer to the wager backing the active hand.
func (p *Player) ActiveBet() *int {
	if p.HasSplit && !p.IsPlayingMainHand {
		return &p.SplitBet
	}
	return &p.Bet
}

// CardCount is the total number of cards across main and split hands.
func (p *Player) CardCount() int {
	n := len(p.Hand.Cards)
	if p.SplitHand != nil {
		n += len(p.SplitHand.Cards)
	}
	return n
}

// TotalWagered is the sum of all escrowed bets for the round.
func (p *Player) TotalWagered() int {
	return p.Bet + p.SplitBet + p.InsuranceBet
}

// resetForRound clears per-round state while preserving the chip
// balance and seat.
func (p *Player) resetForRound() {
	p.Hand = deck.NewHand()
	p.Bet = 0
	p.HasSplit = false
	p.SplitHand = nil
	p.SplitBet = 0
	p.IsPlayingMainHand = true
	p.CanDouble = false
	p.CanSplit = false
	p.InsuranceBet = 0
	p.Surrendered = false
	p.LastHandWinnings = 0
}

// clone returns a deep copy of the player.
func (p Player) clone() Player {
	out := p
	out.Hand.Cards = append([]deck.Card(nil), p.Hand.Cards...)
	if p.SplitHand != nil {
		split := *p.SplitHand
		split.Cards = append([]deck.Card(nil), p.SplitHand.Cards...)
		out.SplitHand = &split
	}
	return out
}
