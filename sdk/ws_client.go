package sdk

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// EventHandler is a function that handles incoming messages
type EventHandler func(*Message)

// WSClient provides a WebSocket client for connecting to the server
type WSClient struct {
	serverURL     string
	conn          *websocket.Conn
	logger        *log.Logger
	mu            sync.RWMutex
	eventHandlers map[MessageType][]EventHandler
	connected     bool
	stopChan      chan struct{}
}

// NewWSClient creates a new WebSocket client
func NewWSClient(serverURL string, logger *log.Logger) *WSClient {
	return &WSClient{
		serverURL:     serverURL,
		logger:        logger,
		eventHandlers: make(map[MessageType][]EventHandler),
		stopChan:      make(chan struct{}),
	}
}

// Connect establishes a WebSocket connection to the server
func (c *WSClient) Connect() error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		u.Scheme = "ws"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}

	c.logger.Info("Connecting to server", "url", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readMessages()

	return nil
}

// Disconnect closes the WebSocket connection
func (c *WSClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}

	c.connected = false
	close(c.stopChan)

	if c.conn != nil {
		_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return c.conn.Close()
	}

	return nil
}

// SendMessage sends a message to the server
func (c *WSClient) SendMessage(msg *Message) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteJSON(msg)
}

// AddEventHandler registers a handler for a message type. Handlers run
// on the reader goroutine, in registration order.
func (c *WSClient) AddEventHandler(messageType MessageType, handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eventHandlers[messageType] = append(c.eventHandlers[messageType], handler)
}

// readMessages pumps incoming messages to their handlers.
func (c *WSClient) readMessages() {
	for {
		select {
		case <-c.stopChan:
			return
		default:
		}

		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.mu.RLock()
			connected := c.connected
			c.mu.RUnlock()
			if connected {
				c.logger.Error("Failed to read message", "error", err)
			}
			return
		}

		c.dispatch(&msg)
	}
}

func (c *WSClient) dispatch(msg *Message) {
	c.mu.RLock()
	handlers := append([]EventHandler(nil), c.eventHandlers[msg.Type]...)
	c.mu.RUnlock()

	for _, handler := range handlers {
		handler(msg)
	}
}

// Convenience senders.

// Auth authenticates with the server under the given name.
func (c *WSClient) Auth(playerName string) error {
	msg, err := NewMessage(MessageTypeAuth, AuthData{PlayerName: playerName})
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// JoinTable requests a seat at the table.
func (c *WSClient) JoinTable(tableID, password string) error {
	msg, err := NewMessage(MessageTypeJoinTable, JoinTableData{TableID: tableID, Password: password})
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// LeaveTable vacates the seat.
func (c *WSClient) LeaveTable(tableID string) error {
	msg, err := NewMessage(MessageTypeLeaveTable, LeaveTableData{TableID: tableID})
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// ListTables asks for the lobby listing.
func (c *WSClient) ListTables() error {
	msg, err := NewMessage(MessageTypeListTables, struct{}{})
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// PlaceBet escrows a wager for the coming round.
func (c *WSClient) PlaceBet(tableID string, amount int) error {
	msg, err := NewMessage(MessageTypePlaceBet, PlaceBetData{TableID: tableID, Amount: amount})
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// SendMove submits a playing-phase action.
func (c *WSClient) SendMove(tableID, action string) error {
	msg, err := NewMessage(MessageTypePlayerMove, PlayerMoveData{TableID: tableID, Action: action})
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}
