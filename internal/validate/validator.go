package validate

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjackd/internal/game"
	"github.com/lox/blackjackd/internal/store"
)

// RevertFunc is invoked after a violating write has been rolled back,
// so the server can rebroadcast the restored state to clients that may
// have seen the bad write.
type RevertFunc func(tableID string, restored *game.GameState, violations []Violation)

// Validator watches every game-state write and rolls back any
// transition that fails a check, leaving an incident behind. It is the
// backstop for the engine: the engine should never produce an illegal
// transition, so every incident is either a bug or tampering.
type Validator struct {
	games     store.GameStore
	incidents *store.IncidentLog
	logger    *log.Logger
	onRevert  RevertFunc
}

// NewValidator creates a validator over the given stores. onRevert may
// be nil.
func NewValidator(games store.GameStore, incidents *store.IncidentLog, logger *log.Logger, onRevert RevertFunc) *Validator {
	return &Validator{
		games:     games,
		incidents: incidents,
		logger:    logger.WithPrefix("validate"),
		onRevert:  onRevert,
	}
}

// Attach subscribes the validator to the game store. The returned
// func detaches it.
func (v *Validator) Attach() func() {
	return v.games.Subscribe(v.OnGameWrite)
}

// OnGameWrite validates one observed write. Creates and deletes have
// no transition to judge and pass through untouched.
func (v *Validator) OnGameWrite(tableID string, before, after *game.GameState) {
	if before == nil || after == nil {
		return
	}

	violations := Check(before, after)
	if len(violations) == 0 {
		return
	}

	ctx := context.Background()

	// Roll back first so the window in which the bad state is
	// readable stays as small as possible. Restore is a silent write,
	// it does not come back through this subscription.
	if err := v.games.Restore(ctx, before); err != nil {
		v.logger.Error("failed to restore game state", "table", tableID, "error", err)
	}

	for _, violation := range violations {
		v.logger.Warn("reverted illegal transition",
			"table", tableID,
			"rule", violation.Rule,
			"player", violation.PlayerID,
			"detail", violation.Detail,
		)
		if v.incidents != nil {
			if _, err := v.incidents.Record(ctx, tableID, violation.Rule, violation.PlayerID, violation.Detail, before, after); err != nil {
				v.logger.Error("failed to record incident", "table", tableID, "error", err)
			}
		}
	}

	if v.onRevert != nil {
		v.onRevert(tableID, before.Clone(), violations)
	}
}
