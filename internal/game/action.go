package game

import "fmt"

// Action is a player decision during the playing phase.
type Action int

const (
	Hit Action = iota
	Stand
	Double
	Split
	Surrender
)

// String returns the string representation of an action
func (a Action) String() string {
	switch a {
	case Hit:
		return "hit"
	case Stand:
		return "stand"
	case Double:
		return "double"
	case Split:
		return "split"
	case Surrender:
		return "surrender"
	default:
		return "unknown"
	}
}

// ParseAction converts a wire-format action name back to an Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case "hit":
		return Hit, nil
	case "stand":
		return Stand, nil
	case "double":
		return Double, nil
	case "split":
		return Split, nil
	case "surrender":
		return Surrender, nil
	default:
		return 0, fmt.Errorf("unknown action: %q", s)
	}
}
