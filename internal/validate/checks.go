// Package validate re-derives the legality of game-state transitions
// from before/after snapshot pairs. It deliberately shares no logic
// with the engine and trusts nothing the writer recorded: a
// compromised client cannot lie about what changed, only change it,
// and every change is visible in the pair.
package validate

import (
	"fmt"

	"github.com/lox/blackjackd/internal/game"
)

// Rule names recorded against incidents.
const (
	RuleChipConservation = "chip-conservation"
	RuleBetSolvency      = "bet-solvency"
	RulePhaseTransition  = "phase-transition"
	RuleTurnScoping      = "turn-scoping"
	RuleDeckConservation = "deck-conservation"
)

// Violation is one failed check. PlayerID is set when a specific seat
// is implicated.
type Violation struct {
	Rule     string
	PlayerID string
	Detail   string
}

func (v Violation) String() string {
	if v.PlayerID != "" {
		return fmt.Sprintf("%s (player %s): %s", v.Rule, v.PlayerID, v.Detail)
	}
	return fmt.Sprintf("%s: %s", v.Rule, v.Detail)
}

// phaseSuccessors is the fixed adjacency table. Same-phase writes are
// always permitted; a phase change not listed here is illegal.
var phaseSuccessors = map[game.Phase][]game.Phase{
	game.PhaseBetting:  {game.PhaseDealing},
	game.PhaseDealing:  {game.PhasePlaying},
	game.PhasePlaying:  {game.PhaseDealer},
	game.PhaseDealer:   {game.PhaseFinished},
	game.PhaseFinished: {game.PhaseBetting},
}

// Check runs all four independent checks over a transition and
// returns every violation found. An empty result means the transition
// is legal. Players are matched across the pair by ID, not seat
// index, so seats joining or leaving do not shift the comparison.
func Check(before, after *game.GameState) []Violation {
	var violations []Violation
	violations = append(violations, checkChips(before, after)...)
	violations = append(violations, checkPhase(before, after)...)
	violations = append(violations, checkTurnScope(before, after)...)
	violations = append(violations, checkDeck(before, after)...)
	return violations
}

func playersByID(s *game.GameState) map[string]*game.Player {
	m := make(map[string]*game.Player, len(s.Players))
	for i := range s.Players {
		m[s.Players[i].ID] = &s.Players[i]
	}
	return m
}

// checkChips enforces that chips only ever increase on the settlement
// transition, and that no player's total escrow (main bet, split bet
// and insurance together) exceeds their pre-transition balance plus
// what they already had escrowed.
func checkChips(before, after *game.GameState) []Violation {
	var violations []Violation
	isPayout := before.Phase == game.PhaseDealer && after.Phase == game.PhaseFinished
	prior := playersByID(before)

	for i := range after.Players {
		a := &after.Players[i]
		b, ok := prior[a.ID]
		if !ok {
			continue
		}

		if a.Chips > b.Chips && !isPayout {
			violations = append(violations, Violation{
				Rule:     RuleChipConservation,
				PlayerID: a.ID,
				Detail:   fmt.Sprintf("chips rose %d -> %d outside settlement", b.Chips, a.Chips),
			})
		}
		if a.TotalWagered() > b.Chips+b.TotalWagered() {
			violations = append(violations, Violation{
				Rule:     RuleBetSolvency,
				PlayerID: a.ID,
				Detail:   fmt.Sprintf("wagered %d exceeds available %d", a.TotalWagered(), b.Chips+b.TotalWagered()),
			})
		}
	}
	return violations
}

// checkPhase enforces the phase adjacency table on any phase change.
func checkPhase(before, after *game.GameState) []Violation {
	if before.Phase == after.Phase {
		return nil
	}
	for _, next := range phaseSuccessors[before.Phase] {
		if after.Phase == next {
			return nil
		}
	}
	return []Violation{{
		Rule:   RulePhaseTransition,
		Detail: fmt.Sprintf("illegal transition %s -> %s", before.Phase, after.Phase),
	}}
}

// checkTurnScope enforces that within the playing phase only the
// acting player's hands may gain or lose cards.
func checkTurnScope(before, after *game.GameState) []Violation {
	if before.Phase != game.PhasePlaying || after.Phase != game.PhasePlaying {
		return nil
	}

	actingID := ""
	if p := before.CurrentPlayer(); p != nil {
		actingID = p.ID
	}

	var violations []Violation
	prior := playersByID(before)
	for i := range after.Players {
		a := &after.Players[i]
		if a.ID == actingID {
			continue
		}
		b, ok := prior[a.ID]
		if !ok {
			// A seat that joined mid-turn must arrive empty-handed.
			if a.CardCount() > 0 {
				violations = append(violations, Violation{
					Rule:     RuleTurnScoping,
					PlayerID: a.ID,
					Detail:   fmt.Sprintf("joined holding %d cards", a.CardCount()),
				})
			}
			continue
		}
		if a.CardCount() != b.CardCount() {
			violations = append(violations, Violation{
				Rule:     RuleTurnScoping,
				PlayerID: a.ID,
				Detail: fmt.Sprintf("cards changed %d -> %d out of turn",
					b.CardCount(), a.CardCount()),
			})
		}
	}
	return violations
}

// checkDeck enforces conservation: the deck never grows, and its
// shrinkage exactly accounts for every card that appeared in a hand.
// The round-reset transition is exempt, since a fresh deck is built
// and all hands clear.
func checkDeck(before, after *game.GameState) []Violation {
	if before.Phase == game.PhaseFinished && after.Phase == game.PhaseBetting {
		return nil
	}

	deckDelta := len(before.Deck) - len(after.Deck)
	if deckDelta < 0 {
		return []Violation{{
			Rule:   RuleDeckConservation,
			Detail: fmt.Sprintf("deck grew %d -> %d", len(before.Deck), len(after.Deck)),
		}}
	}

	dealt := len(after.Dealer.Cards) - len(before.Dealer.Cards)
	prior := playersByID(before)
	for i := range after.Players {
		a := &after.Players[i]
		if b, ok := prior[a.ID]; ok {
			dealt += a.CardCount() - b.CardCount()
		} else {
			dealt += a.CardCount()
		}
	}

	if dealt != deckDelta {
		return []Violation{{
			Rule: RuleDeckConservation,
			Detail: fmt.Sprintf("deck shrank by %d but hands grew by %d",
				deckDelta, dealt),
		}}
	}
	return nil
}
