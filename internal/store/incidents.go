package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lox/blackjackd/internal/game"
	"github.com/lox/blackjackd/internal/gameid"
)

// Incident is one reverted transition: which rule failed, who it
// implicates, and both full snapshots for audit.
type Incident struct {
	ID           string          `json:"id"`
	GameID       string          `json:"gameId"`
	Timestamp    time.Time       `json:"timestamp"`
	ViolatedRule string          `json:"violatedRule"`
	PlayerID     string          `json:"playerId,omitempty"`
	Detail       string          `json:"detail,omitempty"`
	Before       json.RawMessage `json:"before"`
	After        json.RawMessage `json:"after"`
}

// IncidentLog is the append-only anti-cheat audit trail, persisted in
// SQLite so incidents survive restarts. Use path ":memory:" for an
// ephemeral log in tests.
type IncidentLog struct {
	db *sql.DB
}

// OpenIncidentLog opens (creating if needed) the incident database.
func OpenIncidentLog(path string) (*IncidentLog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open incident log: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS incidents (
			id TEXT PRIMARY KEY,
			game_id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			violated_rule TEXT NOT NULL,
			player_id TEXT,
			detail TEXT,
			before_state TEXT NOT NULL,
			after_state TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create incidents table: %w", err)
	}
	return &IncidentLog{db: db}, nil
}

// Record serialises the snapshots and appends an incident, returning
// the stored record.
func (l *IncidentLog) Record(ctx context.Context, gameID, rule, playerID, detail string, before, after *game.GameState) (*Incident, error) {
	beforeJSON, err := json.Marshal(before)
	if err != nil {
		return nil, fmt.Errorf("marshal before snapshot: %w", err)
	}
	afterJSON, err := json.Marshal(after)
	if err != nil {
		return nil, fmt.Errorf("marshal after snapshot: %w", err)
	}

	incident := &Incident{
		ID:           gameid.Generate(),
		GameID:       gameID,
		Timestamp:    time.Now().UTC(),
		ViolatedRule: rule,
		PlayerID:     playerID,
		Detail:       detail,
		Before:       beforeJSON,
		After:        afterJSON,
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO incidents (id, game_id, timestamp, violated_rule, player_id, detail, before_state, after_state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		incident.ID,
		incident.GameID,
		incident.Timestamp.Format(time.RFC3339Nano),
		incident.ViolatedRule,
		incident.PlayerID,
		incident.Detail,
		string(incident.Before),
		string(incident.After),
	)
	if err != nil {
		return nil, fmt.Errorf("append incident: %w", err)
	}
	return incident, nil
}

// ListByGame returns all incidents recorded against one game, oldest
// first.
func (l *IncidentLog) ListByGame(ctx context.Context, gameID string) ([]*Incident, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, game_id, timestamp, violated_rule, player_id, detail, before_state, after_state
		FROM incidents WHERE game_id = ? ORDER BY timestamp`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var out []*Incident
	for rows.Next() {
		var inc Incident
		var ts, before, after string
		if err := rows.Scan(&inc.ID, &inc.GameID, &ts, &inc.ViolatedRule, &inc.PlayerID, &inc.Detail, &before, &after); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		inc.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse incident timestamp: %w", err)
		}
		inc.Before = json.RawMessage(before)
		inc.After = json.RawMessage(after)
		out = append(out, &inc)
	}
	return out, rows.Err()
}

// Count returns the total number of recorded incidents.
func (l *IncidentLog) Count(ctx context.Context) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM incidents`).Scan(&n)
	return n, err
}

// Close releases the underlying database handle.
func (l *IncidentLog) Close() error {
	return l.db.Close()
}
