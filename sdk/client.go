package sdk

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
)

// Agent decides what a bot does with the state broadcasts it receives.
type Agent interface {
	// NextBet is asked once per betting phase; return 0 to sit out.
	NextBet(view GameStateView, self PlayerView) int
	// NextMove is asked whenever the bot holds the turn.
	NextMove(view GameStateView, self PlayerView) string
}

// BotClient connects an Agent to a blackjackd server. It reacts to
// every game_state broadcast: betting when a wager is due, acting when
// the turn comes around.
type BotClient struct {
	client   *WSClient
	agent    Agent
	logger   *log.Logger
	tableID  string
	playerID string
	betRound int
}

// NewBotClient creates a bot client for the given server.
func NewBotClient(serverURL string, agent Agent, logger *log.Logger) *BotClient {
	return &BotClient{
		client: NewWSClient(serverURL, logger),
		agent:  agent,
		logger: logger,
	}
}

// Connect establishes the connection and authenticates.
func (bc *BotClient) Connect(botName string) error {
	if err := bc.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	bc.setupEventHandlers()
	return bc.client.Auth(botName)
}

// Disconnect closes the connection.
func (bc *BotClient) Disconnect() error {
	return bc.client.Disconnect()
}

// JoinTable requests a seat at the table.
func (bc *BotClient) JoinTable(tableID string) error {
	bc.tableID = tableID
	return bc.client.JoinTable(tableID, "")
}

func (bc *BotClient) setupEventHandlers() {
	bc.client.AddEventHandler(MessageTypeAuthResponse, bc.handleAuthResponse)
	bc.client.AddEventHandler(MessageTypeGameState, bc.handleGameState)
	bc.client.AddEventHandler(MessageTypeStateRestore, bc.handleStateRestore)
	bc.client.AddEventHandler(MessageTypeError, bc.handleError)
}

func (bc *BotClient) handleAuthResponse(msg *Message) {
	var data AuthResponseData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		bc.logger.Error("Failed to parse auth response", "error", err)
		return
	}

	if data.Success {
		bc.playerID = data.PlayerID
		bc.logger.Info("Successfully authenticated", "playerId", bc.playerID)
	} else {
		bc.logger.Error("Authentication failed", "error", data.Error)
	}
}

func (bc *BotClient) handleGameState(msg *Message) {
	var data GameStateData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		bc.logger.Error("Failed to parse game state", "error", err)
		return
	}

	reply := bc.react(data.State)
	if reply == nil {
		return
	}
	if err := bc.client.SendMessage(reply); err != nil {
		bc.logger.Error("Failed to send reply", "error", err)
	}
}

// react computes the bot's response to one state broadcast, or nil if
// nothing is owed. betRound stops the bot re-betting every broadcast
// within the same betting phase.
func (bc *BotClient) react(view GameStateView) *Message {
	if view.TableID != bc.tableID || bc.playerID == "" {
		return nil
	}
	self, seated := view.Seat(bc.playerID)
	if !seated {
		return nil
	}

	switch view.Phase {
	case PhaseBetting:
		if self.Bet > 0 || bc.betRound == view.Round {
			return nil
		}
		amount := bc.agent.NextBet(view, self)
		if amount <= 0 {
			return nil
		}
		bc.betRound = view.Round
		msg, err := NewMessage(MessageTypePlaceBet, PlaceBetData{TableID: view.TableID, Amount: amount})
		if err != nil {
			bc.logger.Error("Failed to create bet message", "error", err)
			return nil
		}
		return msg

	case PhasePlaying:
		if view.ActingPlayerID() != bc.playerID {
			return nil
		}
		action := bc.agent.NextMove(view, self)
		if action == "" {
			action = ActionStand
		}
		msg, err := NewMessage(MessageTypePlayerMove, PlayerMoveData{TableID: view.TableID, Action: action})
		if err != nil {
			bc.logger.Error("Failed to create move message", "error", err)
			return nil
		}
		return msg
	}
	return nil
}

func (bc *BotClient) handleStateRestore(msg *Message) {
	bc.logger.Warn("Server restored table state", "tableId", bc.tableID)
}

func (bc *BotClient) handleError(msg *Message) {
	var data ErrorData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return
	}
	bc.logger.Error("Server error", "code", data.Code, "message", data.Message)
}
