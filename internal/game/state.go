package game

import (
	"time"

	"github.com/lox/blackjackd/internal/deck"
)

// GameState is the complete authoritative state of one table's game.
// It is 1:1 with a Table (same identifier) and lives in the shared
// store as a single document; every mutation writes the whole thing.
type GameState struct {
	TableID string      `json:"tableId"`
	Deck    []deck.Card `json:"deck"`
	Players []Player    `json:"players"`
	Dealer  deck.Hand   `json:"dealer"`

	CurrentPlayerIndex int   `json:"currentPlayerIndex"`
	Phase              Phase `json:"phase"`
	Round              int   `json:"round"`

	HostUserID string   `json:"hostUserId"`
	Spectators []string `json:"spectators,omitempty"`

	LastAction          string    `json:"lastAction,omitempty"`
	LastActionPlayerID  string    `json:"lastActionPlayerId,omitempty"`
	LastActionTimestamp time.Time `json:"lastActionTimestamp"`

	PlayerConnections map[string]bool `json:"playerConnections,omitempty"`
}

// NewGameState creates the game document for a freshly created table,
// ready for the first round of betting.
func NewGameState(tableID, hostUserID string, cards []deck.Card) *GameState {
	return &GameState{
		TableID:            tableID,
		Deck:               cards,
		Players:            []Player{},
		Dealer:             deck.NewHand(),
		CurrentPlayerIndex: -1,
		Phase:              PhaseBetting,
		Round:              1,
		HostUserID:         hostUserID,
		PlayerConnections:  make(map[string]bool),
	}
}

// Clone returns a deep copy, used to capture before/after snapshots.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	out := *s
	out.Deck = append([]deck.Card(nil), s.Deck...)
	out.Dealer.Cards = append([]deck.Card(nil), s.Dealer.Cards...)
	out.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		out.Players[i] = p.clone()
	}
	out.Spectators = append([]string(nil), s.Spectators...)
	if s.PlayerConnections != nil {
		out.PlayerConnections = make(map[string]bool, len(s.PlayerConnections))
		for k, v := range s.PlayerConnections {
			out.PlayerConnections[k] = v
		}
	}
	return &out
}

// FindPlayer returns the index of the player with the given ID.
func (s *GameState) FindPlayer(playerID string) (int, bool) {
	for i := range s.Players {
		if s.Players[i].ID == playerID {
			return i, true
		}
	}
	return -1, false
}

// CurrentPlayer returns the player whose turn it is, or nil.
func (s *GameState) CurrentPlayer() *Player {
	if s.CurrentPlayerIndex < 0 || s.CurrentPlayerIndex >= len(s.Players) {
		return nil
	}
	return &s.Players[s.CurrentPlayerIndex]
}

// BettingPlayerCount is the number of seats with a live wager.
func (s *GameState) BettingPlayerCount() int {
	n := 0
	for i := range s.Players {
		if s.Players[i].Bet > 0 {
			n++
		}
	}
	return n
}
