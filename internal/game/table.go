package game

import "time"

// TableStatus describes the table lifecycle as seen in the lobby.
type TableStatus string

const (
	TableWaiting  TableStatus = "waiting"
	TablePlaying  TableStatus = "playing"
	TableFinished TableStatus = "finished"
)

// Table is the lobby-facing record for one game. CurrentPlayers is
// maintained on join/leave; the reaper deletes tables that stay at
// zero beyond the grace period, except persistent ones.
type Table struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	HostUserID     string      `json:"hostUserId"`
	MaxPlayers     int         `json:"maxPlayers"`
	CurrentPlayers int         `json:"currentPlayers"`
	IsPrivate      bool        `json:"isPrivate"`
	Password       string      `json:"-"`
	Status         TableStatus `json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
	Settings       Rules       `json:"settings"`

	// Persistent marks a table declared in server configuration. It is
	// never reaped, so the lobby always offers the configured tables.
	Persistent bool `json:"persistent,omitempty"`
}

// Clone returns a copy of the table record.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := *t
	return &out
}
