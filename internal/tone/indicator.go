package tone

import "log/slog"

// Color selects one channel of the status LED.
type Color int

const (
	Red Color = iota
	Green
	Blue
)

func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	default:
		return "unknown"
	}
}

// Indicator drives the status LED.
type Indicator interface {
	Set(c Color, on bool)
}

// NopIndicator ignores every request.
type NopIndicator struct{}

func (NopIndicator) Set(Color, bool) {}

// LogIndicator reports LED changes to a logger at debug level.
type LogIndicator struct {
	Logger *slog.Logger
}

func (li LogIndicator) Set(c Color, on bool) {
	if li.Logger == nil {
		return
	}
	li.Logger.Debug("led", "color", c.String(), "on", on)
}
