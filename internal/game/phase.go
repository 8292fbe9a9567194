package game

import "fmt"

// Phase represents where a table is in the round lifecycle. A round
// moves betting → dealing → playing → dealer → finished and wraps back
// to betting when the next round starts.
type Phase int

const (
	PhaseBetting Phase = iota
	PhaseDealing
	PhasePlaying
	PhaseDealer
	PhaseFinished
)

// String returns the string representation of a phase
func (p Phase) String() string {
	switch p {
	case PhaseBetting:
		return "betting"
	case PhaseDealing:
		return "dealing"
	case PhasePlaying:
		return "playing"
	case PhaseDealer:
		return "dealer"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// ParsePhase converts a wire-format phase name back to a Phase.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "betting":
		return PhaseBetting, nil
	case "dealing":
		return PhaseDealing, nil
	case "playing":
		return PhasePlaying, nil
	case "dealer":
		return PhaseDealer, nil
	case "finished":
		return PhaseFinished, nil
	default:
		return 0, fmt.Errorf("unknown phase: %q", s)
	}
}

// MarshalJSON encodes the phase as its string name.
func (p Phase) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON decodes a phase from its string name.
func (p *Phase) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid phase: %s", data)
	}
	parsed, err := ParsePhase(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
