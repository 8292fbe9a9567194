package sdk

// BasicStrategyAgent plays fixed basic strategy against a single-deck
// shoe: flat bets, textbook hit/stand/double/split decisions keyed on
// the dealer's upcard. It never takes insurance.
type BasicStrategyAgent struct {
	// BetAmount is wagered every round.
	BetAmount int
}

// NextBet implements Agent.
func (a *BasicStrategyAgent) NextBet(view GameStateView, self PlayerView) int {
	if a.BetAmount > self.Chips {
		return self.Chips
	}
	return a.BetAmount
}

// NextMove implements Agent.
func (a *BasicStrategyAgent) NextMove(view GameStateView, self PlayerView) string {
	up := dealerUpcard(view.Dealer)
	hand := self.Hand
	if self.HasSplit && !self.IsPlayingMainHand && self.SplitHand != nil {
		hand = *self.SplitHand
	}

	if self.CanSplit && isPair(hand) {
		if action, ok := pairAction(hand.Cards[0].Rank, up); ok {
			return action
		}
	}
	if hand.IsSoft {
		return softAction(hand.Value, up, self.CanDouble)
	}
	return hardAction(hand.Value, up, self.CanDouble)
}

// dealerUpcard returns the value of the dealer's visible card, ace
// counting 11. Zero means no card is visible yet.
func dealerUpcard(d DealerView) int {
	for _, c := range d.Cards {
		if c.Hidden {
			continue
		}
		return cardValue(c.Rank)
	}
	return 0
}

func cardValue(rank int) int {
	switch {
	case rank == 1:
		return 11
	case rank > 10:
		return 10
	default:
		return rank
	}
}

func isPair(h Hand) bool {
	return len(h.Cards) == 2 && cardValue(h.Cards[0].Rank) == cardValue(h.Cards[1].Rank)
}

func pairAction(rank, up int) (string, bool) {
	switch cardValue(rank) {
	case 11, 8:
		// Aces and eights, always.
		return ActionSplit, true
	case 9:
		if up != 7 && up != 10 && up != 11 {
			return ActionSplit, true
		}
	case 7, 3, 2:
		if up >= 2 && up <= 7 {
			return ActionSplit, true
		}
	case 6:
		if up >= 2 && up <= 6 {
			return ActionSplit, true
		}
	case 4:
		if up == 5 || up == 6 {
			return ActionSplit, true
		}
	}
	return "", false
}

func softAction(value, up int, canDouble bool) string {
	switch {
	case value >= 19:
		return ActionStand
	case value == 18:
		switch {
		case up >= 3 && up <= 6 && canDouble:
			return ActionDouble
		case up <= 8:
			return ActionStand
		default:
			return ActionHit
		}
	case value >= 15: // soft 15-17
		if up >= 4 && up <= 6 && canDouble {
			return ActionDouble
		}
		return ActionHit
	default: // soft 13-14
		if (up == 5 || up == 6) && canDouble {
			return ActionDouble
		}
		return ActionHit
	}
}

func hardAction(value, up int, canDouble bool) string {
	switch {
	case value >= 17:
		return ActionStand
	case value >= 13:
		if up >= 2 && up <= 6 {
			return ActionStand
		}
		return ActionHit
	case value == 12:
		if up >= 4 && up <= 6 {
			return ActionStand
		}
		return ActionHit
	case value == 11:
		if canDouble && up != 11 {
			return ActionDouble
		}
		return ActionHit
	case value == 10:
		if canDouble && up >= 2 && up <= 9 {
			return ActionDouble
		}
		return ActionHit
	case value == 9:
		if canDouble && up >= 3 && up <= 6 {
			return ActionDouble
		}
		return ActionHit
	default:
		return ActionHit
	}
}
