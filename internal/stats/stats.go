// Package stats aggregates per-player session statistics by watching
// settlement writes. It is read-only over the game store and never
// influences play.
package stats

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"

	"github.com/lox/blackjackd/internal/game"
)

// PlayerStatistics accumulates one player's results across rounds.
type PlayerStatistics struct {
	PlayerID   string `json:"playerId"`
	Name       string `json:"name"`
	Rounds     int    `json:"rounds"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
	Pushes     int    `json:"pushes"`
	Blackjacks int    `json:"blackjacks"`
	Busts      int    `json:"busts"`
	Surrenders int    `json:"surrenders"`
	NetChips   int    `json:"netChips"`
}

// Snapshot is the full report, one entry per player seen this session.
type Snapshot struct {
	RoundsSettled int                `json:"roundsSettled"`
	Players       []PlayerStatistics `json:"players"`
}

// Collector listens for settlement transitions and folds each player's
// result into their running totals. It also serves its snapshot as
// JSON over HTTP.
type Collector struct {
	mu      sync.RWMutex
	rounds  int
	players map[string]*PlayerStatistics
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		players: make(map[string]*PlayerStatistics),
	}
}

// OnGameWrite observes one store write; only the settlement
// transition contributes.
func (c *Collector) OnGameWrite(tableID string, before, after *game.GameState) {
	if before == nil || after == nil {
		return
	}
	if before.Phase != game.PhaseDealer || after.Phase != game.PhaseFinished {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rounds++

	for i := range after.Players {
		p := &after.Players[i]
		stat, ok := c.players[p.ID]
		if !ok {
			stat = &PlayerStatistics{PlayerID: p.ID, Name: p.Name}
			c.players[p.ID] = stat
		}

		stat.Rounds++
		stat.NetChips += p.LastHandWinnings
		switch {
		case p.LastHandWinnings > 0:
			stat.Wins++
		case p.LastHandWinnings < 0:
			stat.Losses++
		default:
			stat.Pushes++
		}
		if p.Hand.IsBlackjack {
			stat.Blackjacks++
		}
		if p.Hand.IsBusted || (p.SplitHand != nil && p.SplitHand.IsBusted) {
			stat.Busts++
		}
		if p.Surrendered {
			stat.Surrenders++
		}
	}
}

// Snapshot returns a copy of the current totals, players sorted by net
// chips descending.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := Snapshot{
		RoundsSettled: c.rounds,
		Players:       make([]PlayerStatistics, 0, len(c.players)),
	}
	for _, stat := range c.players {
		out.Players = append(out.Players, *stat)
	}
	sort.Slice(out.Players, func(i, j int) bool {
		if out.Players[i].NetChips != out.Players[j].NetChips {
			return out.Players[i].NetChips > out.Players[j].NetChips
		}
		return out.Players[i].PlayerID < out.Players[j].PlayerID
	})
	return out
}

// ServeHTTP reports the snapshot as JSON.
func (c *Collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(c.Snapshot())
}
