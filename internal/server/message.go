package server

import (
	"encoding/json"
	"time"

	"github.com/lox/blackjackd/internal/deck"
	"github.com/lox/blackjackd/internal/game"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type AuthData struct {
	PlayerName string `json:"playerName"`
	Token      string `json:"token,omitempty"`
}

type CreateTableData struct {
	Name       string `json:"name"`
	MaxPlayers int    `json:"maxPlayers,omitempty"`
	Private    bool   `json:"private,omitempty"`
	Password   string `json:"password,omitempty"`
}

type JoinTableData struct {
	TableID   string `json:"tableId"`
	Password  string `json:"password,omitempty"`
	Spectator bool   `json:"spectator,omitempty"`
}

type LeaveTableData struct {
	TableID string `json:"tableId"`
}

type PlaceBetData struct {
	TableID string `json:"tableId"`
	Amount  int    `json:"amount"`
}

type PlayerMoveData struct {
	TableID string `json:"tableId"`
	Action  string `json:"action"`
}

type InsuranceData struct {
	TableID string `json:"tableId"`
	Amount  int    `json:"amount"`
}

// Server → Client Messages

type AuthResponseData struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"playerId,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type TableInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	MinBet      int    `json:"minBet"`
	MaxBet      int    `json:"maxBet"`
	Private     bool   `json:"private"`
	Status      string `json:"status"`
}

type TableListData struct {
	Tables []TableInfo `json:"tables"`
}

type TableCreatedData struct {
	Table TableInfo `json:"table"`
}

type TableJoinedData struct {
	TableID   string        `json:"tableId"`
	Position  int           `json:"position"`
	Spectator bool          `json:"spectator,omitempty"`
	State     GameStateView `json:"state"`
}

type GameStateData struct {
	TableID string        `json:"tableId"`
	State   GameStateView `json:"state"`
}

type PlayerResult struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Winnings int    `json:"winnings"`
	Chips    int    `json:"chips"`
}

type RoundResultData struct {
	TableID string         `json:"tableId"`
	Round   int            `json:"round"`
	Dealer  deck.Hand      `json:"dealer"`
	Results []PlayerResult `json:"results"`
}

// StateRestoreData tells clients their last observed state was rolled
// back and carries the authoritative replacement.
type StateRestoreData struct {
	TableID string        `json:"tableId"`
	Reason  string        `json:"reason"`
	State   GameStateView `json:"state"`
}

// Client-facing views. The deck itself never leaves the server, and
// the dealer's hole card is blanked until the dealer phase reveals it.

type GameStateView struct {
	TableID            string       `json:"tableId"`
	Phase              game.Phase   `json:"phase"`
	Round              int          `json:"round"`
	DeckCount          int          `json:"deckCount"`
	Dealer             DealerView   `json:"dealer"`
	Players            []PlayerView `json:"players"`
	CurrentPlayerIndex int          `json:"currentPlayerIndex"`
	HostUserID         string       `json:"hostUserId"`
	Spectators         []string     `json:"spectators,omitempty"`
	LastAction         string       `json:"lastAction,omitempty"`
	LastActionPlayerID string       `json:"lastActionPlayerId,omitempty"`
}

type DealerView struct {
	Cards   []deck.Card `json:"cards"`
	Value   int         `json:"value"`
	Upcard  int         `json:"upcardValue,omitempty"`
	Hidden  bool        `json:"holeCardHidden"`
	IsBust  bool        `json:"isBusted"`
	IsSoft  bool        `json:"isSoft"`
	Natural bool        `json:"isBlackjack"`
}

type PlayerView struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Chips             int        `json:"chips"`
	Hand              deck.Hand  `json:"hand"`
	Bet               int        `json:"bet"`
	HasSplit          bool       `json:"hasSplit,omitempty"`
	SplitHand         *deck.Hand `json:"splitHand,omitempty"`
	SplitBet          int        `json:"splitBet,omitempty"`
	IsPlayingMainHand bool       `json:"isPlayingMainHand"`
	CanDouble         bool       `json:"canDouble"`
	CanSplit          bool       `json:"canSplit"`
	InsuranceBet      int        `json:"insuranceBet,omitempty"`
	Surrendered       bool       `json:"surrendered,omitempty"`
	Position          int        `json:"position"`
	IsHost            bool       `json:"isHost"`
	IsConnected       bool       `json:"isConnected"`
	LastHandWinnings  int        `json:"lastHandWinnings"`
}

// ViewFromState builds the broadcast view, stripping the deck and
// redacting any card still marked hidden.
func ViewFromState(state *game.GameState) GameStateView {
	view := GameStateView{
		TableID:            state.TableID,
		Phase:              state.Phase,
		Round:              state.Round,
		DeckCount:          len(state.Deck),
		Dealer:             dealerView(state.Dealer),
		Players:            make([]PlayerView, len(state.Players)),
		CurrentPlayerIndex: state.CurrentPlayerIndex,
		HostUserID:         state.HostUserID,
		Spectators:         state.Spectators,
		LastAction:         state.LastAction,
		LastActionPlayerID: state.LastActionPlayerID,
	}
	for i := range state.Players {
		view.Players[i] = playerView(&state.Players[i])
	}
	return view
}

func dealerView(h deck.Hand) DealerView {
	cards := make([]deck.Card, len(h.Cards))
	copy(cards, h.Cards)

	hidden := false
	upcard := 0
	for i := range cards {
		if cards[i].Hidden {
			hidden = true
			cards[i] = deck.Card{Hidden: true}
		} else {
			upcard += cards[i].Rank.BaseValue()
		}
	}

	view := DealerView{
		Cards:  cards,
		Hidden: hidden,
	}
	if hidden {
		// Only the visible total is shared while the hole card is down.
		view.Upcard = upcard
		return view
	}
	view.Value = h.Value
	view.IsBust = h.IsBusted
	view.IsSoft = h.IsSoft
	view.Natural = h.IsBlackjack
	return view
}

func playerView(p *game.Player) PlayerView {
	return PlayerView{
		ID:                p.ID,
		Name:              p.Name,
		Chips:             p.Chips,
		Hand:              p.Hand,
		Bet:               p.Bet,
		HasSplit:          p.HasSplit,
		SplitHand:         p.SplitHand,
		SplitBet:          p.SplitBet,
		IsPlayingMainHand: p.IsPlayingMainHand,
		CanDouble:         p.CanDouble,
		CanSplit:          p.CanSplit,
		InsuranceBet:      p.InsuranceBet,
		Surrendered:       p.Surrendered,
		Position:          p.Position,
		IsHost:            p.IsHost,
		IsConnected:       p.IsConnected,
		LastHandWinnings:  p.LastHandWinnings,
	}
}

// TableInfoFromGame converts a table record for the lobby listing.
func TableInfoFromGame(t *game.Table) TableInfo {
	return TableInfo{
		ID:          t.ID,
		Name:        t.Name,
		PlayerCount: t.CurrentPlayers,
		MaxPlayers:  t.MaxPlayers,
		MinBet:      t.Settings.MinBet,
		MaxBet:      t.Settings.MaxBet,
		Private:     t.IsPrivate,
		Status:      string(t.Status),
	}
}
