package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blackjackd/internal/game"
	"github.com/lox/blackjackd/internal/gameid"
	"github.com/lox/blackjackd/internal/randutil"
	"github.com/lox/blackjackd/internal/store"
	"github.com/lox/blackjackd/internal/validate"
)

// Broadcaster delivers messages to connected clients. The WebSocket
// server implements it; tests substitute a recorder.
type Broadcaster interface {
	BroadcastToTable(tableID string, msg *Message)
	SendToPlayer(playerID string, msg *Message) error
}

// GameService owns all table and game mutations. Every operation is a
// read-modify-write against the store under one lock, so writes are
// serialized and each one is a complete, validatable transition.
type GameService struct {
	broadcaster Broadcaster
	games       store.GameStore
	tables      store.TableStore
	config      *ServerConfig
	clock       quartz.Clock
	logger      *log.Logger

	mu       sync.Mutex
	engines  map[string]*game.Engine
	seed     int64
	nextSeed int64
}

// NewGameService creates the service. seed fixes the shuffle sequence
// for reproducible games; use a time-derived seed in production.
func NewGameService(broadcaster Broadcaster, games store.GameStore, tables store.TableStore, config *ServerConfig, clock quartz.Clock, logger *log.Logger, seed int64) *GameService {
	return &GameService{
		broadcaster: broadcaster,
		games:       games,
		tables:      tables,
		config:      config,
		clock:       clock,
		logger:      logger.WithPrefix("game-service"),
		engines:     make(map[string]*game.Engine),
		seed:        seed,
	}
}

// Bootstrap creates the tables declared in configuration. The server
// itself hosts them, so they outlive any particular player.
func (gs *GameService) Bootstrap(ctx context.Context) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	for _, tc := range gs.config.Tables {
		table := &game.Table{
			ID:         gameid.Generate(),
			Name:       tc.Name,
			HostUserID: "server",
			MaxPlayers: tc.MaxPlayers,
			Status:     game.TableWaiting,
			CreatedAt:  gs.clock.Now(),
			Settings:   tc.Rules(),
			Persistent: true,
		}
		if err := gs.createTableLocked(ctx, table); err != nil {
			return fmt.Errorf("bootstrap table %s: %w", tc.Name, err)
		}
		gs.logger.Info("Created configured table", "name", tc.Name, "table", table.ID)
	}
	return nil
}

// CreateTable creates a player-hosted table with house rules.
func (gs *GameService) CreateTable(ctx context.Context, hostUserID string, data CreateTableData) (*game.Table, error) {
	if data.Name == "" {
		return nil, errors.New("table name required")
	}
	maxPlayers := data.MaxPlayers
	if maxPlayers <= 0 {
		maxPlayers = 5
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	table := &game.Table{
		ID:         gameid.Generate(),
		Name:       data.Name,
		HostUserID: hostUserID,
		MaxPlayers: maxPlayers,
		IsPrivate:  data.Private,
		Password:   data.Password,
		Status:     game.TableWaiting,
		CreatedAt:  gs.clock.Now(),
		Settings:   game.DefaultRules(),
	}
	if err := gs.createTableLocked(ctx, table); err != nil {
		return nil, err
	}
	gs.logger.Info("Table created", "table", table.ID, "host", hostUserID)
	return table, nil
}

func (gs *GameService) createTableLocked(ctx context.Context, table *game.Table) error {
	engine := gs.engineForLocked(table)
	state := game.NewGameState(table.ID, table.HostUserID, engine.FreshDeck())

	if err := gs.tables.Put(ctx, table); err != nil {
		return err
	}
	return gs.games.Put(ctx, state)
}

// engineForLocked returns the table's engine, building one from its
// rule settings on first use. Each engine gets its own shuffle stream.
func (gs *GameService) engineForLocked(table *game.Table) *game.Engine {
	if engine, ok := gs.engines[table.ID]; ok {
		return engine
	}
	gs.nextSeed++
	engine := game.NewEngine(table.Settings, randutil.New(gs.seed+gs.nextSeed), gs.logger)
	gs.engines[table.ID] = engine
	return engine
}

// ListTables returns lobby records for all tables.
func (gs *GameService) ListTables(ctx context.Context) ([]TableInfo, error) {
	tables, err := gs.tables.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TableInfo, len(tables))
	for i, t := range tables {
		out[i] = TableInfoFromGame(t)
	}
	return out, nil
}

// JoinTable seats a player, or registers them as a spectator. Joining
// mid-round seats the player with no wager until the next betting
// phase.
func (gs *GameService) JoinTable(ctx context.Context, tableID, userID, name, password string, spectator bool) (*game.GameState, int, error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	table, err := gs.tables.Get(ctx, tableID)
	if err != nil {
		return nil, 0, err
	}
	if table.IsPrivate && table.Password != password {
		return nil, 0, errors.New("wrong table password")
	}

	state, err := gs.games.Get(ctx, tableID)
	if err != nil {
		return nil, 0, err
	}

	if spectator {
		for _, id := range state.Spectators {
			if id == userID {
				return state, -1, nil
			}
		}
		state.Spectators = append(state.Spectators, userID)
		if err := gs.games.Put(ctx, state); err != nil {
			return nil, 0, err
		}
		gs.broadcastState(state)
		return state, -1, nil
	}

	if len(state.Players) >= table.MaxPlayers {
		return nil, 0, errors.New("table is full")
	}

	engine := gs.engineForLocked(table)
	player := game.Player{
		ID:     userID,
		UserID: userID,
		Name:   name,
		Chips:  table.Settings.StartingChips,
		IsHost: userID == state.HostUserID,
	}
	if err := engine.AddPlayer(state, player); err != nil {
		return nil, 0, err
	}

	// The first human to sit at a server-hosted table becomes host.
	if state.HostUserID == "server" {
		state.HostUserID = userID
		state.Players[len(state.Players)-1].IsHost = true
		table.HostUserID = userID
	}

	table.CurrentPlayers = len(state.Players)
	if err := gs.tables.Put(ctx, table); err != nil {
		return nil, 0, err
	}
	if err := gs.games.Put(ctx, state); err != nil {
		return nil, 0, err
	}

	gs.logger.Info("Player joined", "table", tableID, "player", userID)
	gs.broadcastState(state)
	return state, len(state.Players) - 1, nil
}

// LeaveTable vacates a seat or drops a spectator. Any escrowed bet is
// forfeited. The host role passes to the next remaining seat.
func (gs *GameService) LeaveTable(ctx context.Context, tableID, userID string) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	state, err := gs.games.Get(ctx, tableID)
	if err != nil {
		return err
	}

	if idx := spectatorIndex(state.Spectators, userID); idx >= 0 {
		state.Spectators = append(state.Spectators[:idx], state.Spectators[idx+1:]...)
		return gs.games.Put(ctx, state)
	}

	table, err := gs.tables.Get(ctx, tableID)
	if err != nil {
		return err
	}
	engine := gs.engineForLocked(table)
	if err := engine.RemovePlayer(state, userID); err != nil {
		return err
	}

	if state.HostUserID == userID {
		if len(state.Players) > 0 {
			state.HostUserID = state.Players[0].UserID
			state.Players[0].IsHost = true
		} else {
			state.HostUserID = "server"
		}
		table.HostUserID = state.HostUserID
	}

	table.CurrentPlayers = len(state.Players)
	if err := gs.tables.Put(ctx, table); err != nil {
		return err
	}
	if err := gs.games.Put(ctx, state); err != nil {
		return err
	}

	gs.logger.Info("Player left", "table", tableID, "player", userID)
	gs.broadcastState(state)
	gs.settleIfDealerDoneLocked(ctx, tableID)
	return nil
}

// SetConnected flips a player's liveness flag without vacating the
// seat, so a dropped socket can reconnect into the same hand.
func (gs *GameService) SetConnected(ctx context.Context, tableID, userID string, connected bool) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	state, err := gs.games.Get(ctx, tableID)
	if err != nil {
		return err
	}
	table, err := gs.tables.Get(ctx, tableID)
	if err != nil {
		return err
	}
	if err := gs.engineForLocked(table).SetConnected(state, userID, connected); err != nil {
		return err
	}
	if err := gs.games.Put(ctx, state); err != nil {
		return err
	}
	gs.broadcastState(state)
	return nil
}

// PlaceBet escrows a wager. Once every seated player has one, the
// cards go out and play begins.
func (gs *GameService) PlaceBet(ctx context.Context, tableID, playerID string, amount int) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	state, table, engine, err := gs.loadLocked(ctx, tableID)
	if err != nil {
		return err
	}

	if err := engine.ProcessBet(state, playerID, amount); err != nil {
		return err
	}
	if err := gs.games.Put(ctx, state); err != nil {
		return err
	}
	gs.broadcastState(state)

	if state.BettingPlayerCount() < len(state.Players) {
		return nil
	}

	// All wagers are in: deal, then open play. Each step is its own
	// write so observers see the full phase sequence.
	if err := engine.StartDealing(state); err != nil {
		return err
	}
	if err := gs.games.Put(ctx, state); err != nil {
		return err
	}
	gs.broadcastState(state)

	if err := engine.BeginPlay(state); err != nil {
		return err
	}
	if err := gs.games.Put(ctx, state); err != nil {
		return err
	}
	gs.broadcastState(state)

	table.Status = game.TablePlaying
	return gs.tables.Put(ctx, table)
}

// HandleMove applies a playing-phase action for the player.
func (gs *GameService) HandleMove(ctx context.Context, tableID, playerID, actionName string) error {
	action, err := game.ParseAction(actionName)
	if err != nil {
		return err
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	state, _, engine, err := gs.loadLocked(ctx, tableID)
	if err != nil {
		return err
	}
	if err := engine.ProcessPlayerAction(state, playerID, action); err != nil {
		return err
	}
	if err := gs.games.Put(ctx, state); err != nil {
		return err
	}
	gs.broadcastState(state)

	gs.settleIfDealerDoneLocked(ctx, tableID)
	return nil
}

// HandleInsurance places a side bet against a dealer natural.
func (gs *GameService) HandleInsurance(ctx context.Context, tableID, playerID string, amount int) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	state, _, engine, err := gs.loadLocked(ctx, tableID)
	if err != nil {
		return err
	}
	if err := engine.ProcessInsurance(state, playerID, amount); err != nil {
		return err
	}
	if err := gs.games.Put(ctx, state); err != nil {
		return err
	}
	gs.broadcastState(state)
	return nil
}

// settleIfDealerDoneLocked pays the round out once the dealer's hand
// is complete, then schedules the next betting phase after a short
// pause so clients can show the result.
func (gs *GameService) settleIfDealerDoneLocked(ctx context.Context, tableID string) {
	state, table, engine, err := gs.loadLocked(ctx, tableID)
	if err != nil || state.Phase != game.PhaseDealer {
		return
	}

	if err := engine.CalculateResults(state); err != nil {
		gs.logger.Error("Settlement failed", "table", tableID, "error", err)
		return
	}
	if err := gs.games.Put(ctx, state); err != nil {
		gs.logger.Error("Failed to persist settlement", "table", tableID, "error", err)
		return
	}
	gs.broadcastState(state)
	gs.broadcastRoundResult(state)

	table.Status = game.TableFinished
	if err := gs.tables.Put(ctx, table); err != nil {
		gs.logger.Error("Failed to update table status", "table", tableID, "error", err)
	}

	gs.clock.AfterFunc(gs.config.ResultPause(), func() {
		gs.startNextRound(tableID)
	})
}

// startNextRound resets the table to betting once the result pause
// has elapsed.
func (gs *GameService) startNextRound(tableID string) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	ctx := context.Background()
	state, table, engine, err := gs.loadLocked(ctx, tableID)
	if err != nil {
		return
	}
	if state.Phase != game.PhaseFinished || len(state.Players) == 0 {
		return
	}
	if err := engine.InitializeRound(state); err != nil {
		gs.logger.Error("Failed to start next round", "table", tableID, "error", err)
		return
	}
	if err := gs.games.Put(ctx, state); err != nil {
		gs.logger.Error("Failed to persist next round", "table", tableID, "error", err)
		return
	}
	table.Status = game.TableWaiting
	if err := gs.tables.Put(ctx, table); err != nil {
		gs.logger.Error("Failed to update table status", "table", tableID, "error", err)
	}
	gs.broadcastState(state)
}

// OnRevert is wired as the validator's callback: clients that saw the
// rejected write get the authoritative state back.
func (gs *GameService) OnRevert(tableID string, restored *game.GameState, violations []validate.Violation) {
	reason := ""
	if len(violations) > 0 {
		reason = violations[0].String()
	}
	msg, err := NewMessage(MessageTypeStateRestore, StateRestoreData{
		TableID: tableID,
		Reason:  reason,
		State:   ViewFromState(restored),
	})
	if err != nil {
		gs.logger.Error("Failed to create restore message", "error", err)
		return
	}
	gs.broadcaster.BroadcastToTable(tableID, msg)
}

func (gs *GameService) loadLocked(ctx context.Context, tableID string) (*game.GameState, *game.Table, *game.Engine, error) {
	table, err := gs.tables.Get(ctx, tableID)
	if err != nil {
		return nil, nil, nil, err
	}
	state, err := gs.games.Get(ctx, tableID)
	if err != nil {
		return nil, nil, nil, err
	}
	return state, table, gs.engineForLocked(table), nil
}

func (gs *GameService) broadcastState(state *game.GameState) {
	msg, err := NewMessage(MessageTypeGameState, GameStateData{
		TableID: state.TableID,
		State:   ViewFromState(state),
	})
	if err != nil {
		gs.logger.Error("Failed to create state message", "error", err)
		return
	}
	gs.broadcaster.BroadcastToTable(state.TableID, msg)
}

func (gs *GameService) broadcastRoundResult(state *game.GameState) {
	results := make([]PlayerResult, len(state.Players))
	for i := range state.Players {
		p := &state.Players[i]
		results[i] = PlayerResult{
			PlayerID: p.ID,
			Name:     p.Name,
			Winnings: p.LastHandWinnings,
			Chips:    p.Chips,
		}
	}
	msg, err := NewMessage(MessageTypeRoundResult, RoundResultData{
		TableID: state.TableID,
		Round:   state.Round,
		Dealer:  state.Dealer,
		Results: results,
	})
	if err != nil {
		gs.logger.Error("Failed to create result message", "error", err)
		return
	}
	gs.broadcaster.BroadcastToTable(state.TableID, msg)
}

func spectatorIndex(spectators []string, userID string) int {
	for i, id := range spectators {
		if id == userID {
			return i
		}
	}
	return -1
}
