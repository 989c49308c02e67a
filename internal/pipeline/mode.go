package pipeline

import "fmt"

// Mode selects whether continuous frames reach the sink.
type Mode int32

const (
	// Paused is manual capture: continuous frames are skipped.
	Paused Mode = iota
	// RealTime classifies and delivers every continuous frame.
	RealTime
)

func (m Mode) String() string {
	switch m {
	case Paused:
		return "paused"
	case RealTime:
		return "real-time"
	default:
		return fmt.Sprintf("mode(%d)", int32(m))
	}
}

// ParseMode accepts the String forms plus "realtime".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "paused", "pause":
		return Paused, nil
	case "real-time", "realtime":
		return RealTime, nil
	}
	return Paused, fmt.Errorf("pipeline: unknown mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
