package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/blackjackd/internal/auth"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn        *websocket.Conn
	send        chan *Message
	playerID    string
	tableID     string
	logger      *log.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.RWMutex
	closeOnce   sync.Once
	gameService *GameService
	validator   auth.Validator
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, gameService *GameService, validator auth.Validator) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:        conn,
		send:        make(chan *Message, 256),
		logger:      logger.WithPrefix("conn"),
		ctx:         ctx,
		cancel:      cancel,
		gameService: gameService,
		validator:   validator,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, expected during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// SetPlayer associates this connection with a player
func (c *Connection) SetPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// GetPlayer returns the associated player ID
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// SetTable associates this connection with a table
func (c *Connection) SetTable(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableID = tableID
}

// GetTable returns the associated table ID
func (c *Connection) GetTable() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.GetPlayer())

	switch msg.Type {
	case MessageTypeAuth:
		var data AuthData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse auth data")
			return
		}
		c.handleAuth(data)

	case MessageTypeCreateTable:
		var data CreateTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse create table data")
			return
		}
		c.handleCreateTable(data)

	case MessageTypeJoinTable:
		var data JoinTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse join table data")
			return
		}
		c.handleJoinTable(data)

	case MessageTypeLeaveTable:
		var data LeaveTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse leave table data")
			return
		}
		c.handleLeaveTable(data)

	case MessageTypeListTables:
		c.handleListTables()

	case MessageTypePlaceBet:
		var data PlaceBetData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse bet data")
			return
		}
		c.handlePlaceBet(data)

	case MessageTypePlayerMove:
		var data PlayerMoveData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse move data")
			return
		}
		c.handlePlayerMove(data)

	case MessageTypeInsurance:
		var data InsuranceData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse insurance data")
			return
		}
		c.handleInsurance(data)

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg)
}

// requirePlayer returns the authenticated player ID, or sends an error
// and returns empty.
func (c *Connection) requirePlayer() string {
	playerID := c.GetPlayer()
	if playerID == "" {
		c.sendError("not_authenticated", "Must authenticate first")
	}
	return playerID
}

func (c *Connection) handleAuth(data AuthData) {
	c.logger.Info("Auth request", "playerName", data.PlayerName)

	playerID := data.PlayerName
	if c.validator != nil {
		identity, err := c.validator.Validate(c.ctx, data.Token)
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			c.sendError("invalid_auth", "Invalid token")
			return
		case err != nil:
			// Fail closed when the auth service is down.
			c.sendError("auth_unavailable", "Authentication service unavailable")
			return
		case identity != nil:
			playerID = identity.UserID
		}
	}

	if playerID == "" {
		c.sendError("invalid_auth", "Player name required")
		return
	}

	c.SetPlayer(playerID)

	response, _ := NewMessage(MessageTypeAuthResponse, AuthResponseData{
		Success:  true,
		PlayerID: playerID,
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleCreateTable(data CreateTableData) {
	playerID := c.requirePlayer()
	if playerID == "" {
		return
	}

	table, err := c.gameService.CreateTable(c.ctx, playerID, data)
	if err != nil {
		c.sendError("create_failed", err.Error())
		return
	}

	response, _ := NewMessage(MessageTypeTableCreated, TableCreatedData{
		Table: TableInfoFromGame(table),
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleJoinTable(data JoinTableData) {
	c.logger.Info("Join table request", "tableId", data.TableID, "player", c.GetPlayer())

	playerID := c.requirePlayer()
	if playerID == "" {
		return
	}

	state, position, err := c.gameService.JoinTable(c.ctx, data.TableID, playerID, playerID, data.Password, data.Spectator)
	if err != nil {
		c.sendError("join_failed", err.Error())
		return
	}

	c.SetTable(data.TableID)

	response, _ := NewMessage(MessageTypeTableJoined, TableJoinedData{
		TableID:   data.TableID,
		Position:  position,
		Spectator: data.Spectator,
		State:     ViewFromState(state),
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleLeaveTable(data LeaveTableData) {
	c.logger.Info("Leave table request", "tableId", data.TableID, "player", c.GetPlayer())

	playerID := c.requirePlayer()
	if playerID == "" {
		return
	}

	if err := c.gameService.LeaveTable(c.ctx, data.TableID, playerID); err != nil {
		c.sendError("leave_failed", err.Error())
		return
	}

	c.SetTable("")

	response, _ := NewMessage(MessageTypeTableLeft, map[string]string{"tableId": data.TableID})
	_ = c.SendMessage(response)
}

func (c *Connection) handleListTables() {
	tables, err := c.gameService.ListTables(c.ctx)
	if err != nil {
		c.sendError("list_failed", err.Error())
		return
	}
	response, _ := NewMessage(MessageTypeTableList, TableListData{Tables: tables})
	_ = c.SendMessage(response)
}

func (c *Connection) handlePlaceBet(data PlaceBetData) {
	playerID := c.requirePlayer()
	if playerID == "" {
		return
	}

	if err := c.gameService.PlaceBet(c.ctx, data.TableID, playerID, data.Amount); err != nil {
		c.sendError("bet_failed", err.Error())
	}
}

func (c *Connection) handlePlayerMove(data PlayerMoveData) {
	playerID := c.requirePlayer()
	if playerID == "" {
		return
	}

	if err := c.gameService.HandleMove(c.ctx, data.TableID, playerID, data.Action); err != nil {
		c.sendError("move_failed", err.Error())
	}
}

func (c *Connection) handleInsurance(data InsuranceData) {
	playerID := c.requirePlayer()
	if playerID == "" {
		return
	}

	if err := c.gameService.HandleInsurance(c.ctx, data.TableID, playerID, data.Amount); err != nil {
		c.sendError("insurance_failed", err.Error())
	}
}
