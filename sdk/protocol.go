// Package sdk is the client library for blackjackd. It speaks the
// server's WebSocket protocol and drives a pluggable Agent, so bots
// and interactive clients share one connection layer.
//
// The wire types here mirror the server's message schema. They are
// defined independently so external programs can depend on this
// package alone.
package sdk

import (
	"encoding/json"
	"time"
)

// MessageType identifies a WebSocket message on the wire.
type MessageType string

const (
	// Client to server messages
	MessageTypeAuth        MessageType = "auth"
	MessageTypeCreateTable MessageType = "create_table"
	MessageTypeJoinTable   MessageType = "join_table"
	MessageTypeLeaveTable  MessageType = "leave_table"
	MessageTypeListTables  MessageType = "list_tables"
	MessageTypePlaceBet    MessageType = "place_bet"
	MessageTypePlayerMove  MessageType = "player_move"
	MessageTypeInsurance   MessageType = "insurance"

	// Server to client messages
	MessageTypeAuthResponse MessageType = "auth_response"
	MessageTypeTableCreated MessageType = "table_created"
	MessageTypeTableJoined  MessageType = "table_joined"
	MessageTypeTableLeft    MessageType = "table_left"
	MessageTypeTableList    MessageType = "table_list"
	MessageTypeGameState    MessageType = "game_state"
	MessageTypeRoundResult  MessageType = "round_result"
	MessageTypeStateRestore MessageType = "state_restore"
	MessageTypeError        MessageType = "error"
)

// Message is the wire envelope.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage wraps a payload in the envelope.
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

// Game phases as the server reports them.
const (
	PhaseBetting  = "betting"
	PhaseDealing  = "dealing"
	PhasePlaying  = "playing"
	PhaseDealer   = "dealer"
	PhaseFinished = "finished"
)

// Player actions accepted by the server.
const (
	ActionHit       = "hit"
	ActionStand     = "stand"
	ActionDouble    = "double"
	ActionSplit     = "split"
	ActionSurrender = "surrender"
)

// Card is one playing card. Rank runs ace=1 through king=13; a hidden
// card arrives with both fields zeroed.
type Card struct {
	Suit   int  `json:"suit"`
	Rank   int  `json:"rank"`
	Hidden bool `json:"hidden,omitempty"`
}

// Hand is a scored card sequence.
type Hand struct {
	Cards       []Card `json:"cards"`
	Value       int    `json:"value"`
	IsSoft      bool   `json:"isSoft"`
	IsBlackjack bool   `json:"isBlackjack"`
	IsBusted    bool   `json:"isBusted"`
	FromSplit   bool   `json:"fromSplit,omitempty"`
}

// DealerView is the dealer's hand with the hole card redacted until
// the reveal.
type DealerView struct {
	Cards   []Card `json:"cards"`
	Value   int    `json:"value"`
	Upcard  int    `json:"upcardValue,omitempty"`
	Hidden  bool   `json:"holeCardHidden"`
	IsBust  bool   `json:"isBusted"`
	IsSoft  bool   `json:"isSoft"`
	Natural bool   `json:"isBlackjack"`
}

// PlayerView is one seat as broadcast by the server.
type PlayerView struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Chips             int    `json:"chips"`
	Hand              Hand   `json:"hand"`
	Bet               int    `json:"bet"`
	HasSplit          bool   `json:"hasSplit,omitempty"`
	SplitHand         *Hand  `json:"splitHand,omitempty"`
	SplitBet          int    `json:"splitBet,omitempty"`
	IsPlayingMainHand bool   `json:"isPlayingMainHand"`
	CanDouble         bool   `json:"canDouble"`
	CanSplit          bool   `json:"canSplit"`
	InsuranceBet      int    `json:"insuranceBet,omitempty"`
	Surrendered       bool   `json:"surrendered,omitempty"`
	Position          int    `json:"position"`
	IsHost            bool   `json:"isHost"`
	IsConnected       bool   `json:"isConnected"`
	LastHandWinnings  int    `json:"lastHandWinnings"`
}

// GameStateView is the full table broadcast.
type GameStateView struct {
	TableID            string       `json:"tableId"`
	Phase              string       `json:"phase"`
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

// Seat returns the view of the named player, if seated.
func (v *GameStateView) Seat(playerID string) (PlayerView, bool) {
	for _, p := range v.Players {
		if p.ID == playerID {
			return p, true
		}
	}
	return PlayerView{}, false
}

// ActingPlayerID returns the ID of the seat holding the turn, or "".
func (v *GameStateView) ActingPlayerID() string {
	if v.CurrentPlayerIndex < 0 || v.CurrentPlayerIndex >= len(v.Players) {
		return ""
	}
	return v.Players[v.CurrentPlayerIndex].ID
}

// Payloads.

type AuthData struct {
	PlayerName string `json:"playerName"`
	Token      string `json:"token,omitempty"`
}

type AuthResponseData struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"playerId,omitempty"`
	Error    string `json:"error,omitempty"`
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

type GameStateData struct {
	TableID string        `json:"tableId"`
	State   GameStateView `json:"state"`
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

type PlayerResult struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Winnings int    `json:"winnings"`
	Chips    int    `json:"chips"`
}

type RoundResultData struct {
	TableID string         `json:"tableId"`
	Round   int            `json:"round"`
	Dealer  Hand           `json:"dealer"`
	Results []PlayerResult `json:"results"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
