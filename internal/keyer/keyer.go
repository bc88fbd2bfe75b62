// Package keyer is the Morse engine: a polling decoder for live keying and a
// cancellable playback renderer that share one tone output.
package keyer

import (
	"errors"
	"time"
)

var (
	// ErrAlreadyRunning indicates Start was called on a running worker
	ErrAlreadyRunning = errors.New("worker already running")
	// ErrNotRunning indicates Stop was called on a worker that was not started
	ErrNotRunning = errors.New("worker not running")
	// ErrSpeakerRequired indicates a worker needs a speaker to arbitrate
	ErrSpeakerRequired = errors.New("speaker is required")
	// ErrInvalidDit indicates the dit unit must be positive
	ErrInvalidDit = errors.New("dit unit must be positive")
	// ErrInvalidVolume indicates volume must be between 0 and 1
	ErrInvalidVolume = errors.New("volume must be between 0.0 and 1.0")
	// ErrInvalidTick indicates the decode poll period must be positive
	ErrInvalidTick = errors.New("tick must be positive")
	// ErrInvalidSlice indicates the playback checkpoint slice must be positive
	ErrInvalidSlice = errors.New("slice must be positive")
	// ErrInvalidFrequency indicates the tone frequency must be positive
	ErrInvalidFrequency = errors.New("frequency must be positive")
)

// VolumeSteps maps the UI's discrete volume steps to amplitudes.
var VolumeSteps = [...]float64{0.0, 0.25, 0.5, 0.75, 1.0}

const (
	// DitStep is the UI increment for the dit unit.
	DitStep = 10 * time.Millisecond
	// MinDit is the smallest dit the UI steps down to.
	MinDit = 10 * time.Millisecond
)

// VolumeForStep clamps step into range and returns its amplitude.
func VolumeForStep(step int) float64 {
	step = max(0, min(step, len(VolumeSteps)-1))
	return VolumeSteps[step]
}

// StepDit moves d one DitStep up or down, never below MinDit.
func StepDit(d time.Duration, up bool) time.Duration {
	if up {
		return d + DitStep
	}
	if d-DitStep < MinDit {
		return d
	}
	return d - DitStep
}

// Config holds the engine parameters. Dit and Volume are only the initial
// values; both can be changed at runtime.
type Config struct {
	// Dit is the timing unit
	Dit time.Duration
	// Volume is the tone amplitude (0.0-1.0)
	Volume float64
	// Frequency is the tone pitch in Hz
	Frequency float64
	// Tick is the decode poll period
	Tick time.Duration
	// Slice bounds how long playback sleeps between cancellation checks
	Slice time.Duration
	// AcquireTimeout is how long a playback element waits for the speaker
	AcquireTimeout time.Duration
	// CancelFlash is how long the red LED stays on after a cancelled run
	CancelFlash time.Duration
}

// DefaultConfig returns the values the handheld keyer ships with.
func DefaultConfig() Config {
	return Config{
		Dit:            150 * time.Millisecond,
		Volume:         VolumeSteps[3],
		Frequency:      261.63,
		Tick:           10 * time.Millisecond,
		Slice:          5 * time.Millisecond,
		AcquireTimeout: time.Second,
		CancelFlash:    120 * time.Millisecond,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.Dit <= 0:
		return ErrInvalidDit
	case c.Volume < 0 || c.Volume > 1:
		return ErrInvalidVolume
	case c.Frequency <= 0:
		return ErrInvalidFrequency
	case c.Tick <= 0:
		return ErrInvalidTick
	case c.Slice <= 0:
		return ErrInvalidSlice
	}
	return nil
}

// DecodedTextObserver receives the decoded text whenever it changes. It is
// called from the decode goroutine and from ResetText/SetText callers, so
// implementations must be safe for concurrent use and must not block.
type DecodedTextObserver interface {
	TextChanged(text string)
}

// ObserverFunc adapts a function to DecodedTextObserver.
type ObserverFunc func(text string)

func (f ObserverFunc) TextChanged(text string) { f(text) }
