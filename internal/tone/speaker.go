// Package tone arbitrates the single tone output shared by live keying and playback.
package tone

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrBusy indicates another holder kept the speaker past the acquire timeout
	ErrBusy = errors.New("speaker busy")
	// ErrReleased indicates the lease was already given back
	ErrReleased = errors.New("speaker lease released")
)

// Device produces a continuous tone until stopped.
type Device interface {
	Start(frequency, volume float64) error
	Stop() error
}

// Speaker owns a Device and hands it out to one holder at a time.
type Speaker struct {
	dev Device
	sem chan struct{}
}

// NewSpeaker wraps dev. A nil dev yields a silent speaker that still enforces ownership.
func NewSpeaker(dev Device) *Speaker {
	if dev == nil {
		dev = Silent{}
	}
	return &Speaker{
		dev: dev,
		sem: make(chan struct{}, 1),
	}
}

// Acquire waits up to timeout for the speaker. A zero timeout only tries once.
// Cancelling ctx abandons the wait and returns ctx.Err().
func (s *Speaker) Acquire(ctx context.Context, timeout time.Duration) (*Lease, error) {
	select {
	case s.sem <- struct{}{}:
		return &Lease{s: s}, nil
	default:
	}
	if timeout <= 0 {
		return nil, ErrBusy
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case s.sem <- struct{}{}:
		return &Lease{s: s}, nil
	case <-timer.C:
		return nil, ErrBusy
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Busy reports whether someone currently holds the speaker.
func (s *Speaker) Busy() bool {
	return len(s.sem) > 0
}

// Lease is exclusive ownership of the speaker. Release is idempotent and
// silences the device, so a deferred Release covers every exit path.
type Lease struct {
	s       *Speaker
	mu      sync.Mutex
	playing bool
	done    bool
}

// Start begins a tone.
func (l *Lease) Start(frequency, volume float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return ErrReleased
	}
	if err := l.s.dev.Start(frequency, volume); err != nil {
		return fmt.Errorf("start tone: %w", err)
	}
	l.playing = true
	return nil
}

// Stop silences the tone but keeps ownership.
func (l *Lease) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopLocked()
}

func (l *Lease) stopLocked() error {
	if !l.playing {
		return nil
	}
	l.playing = false
	if err := l.s.dev.Stop(); err != nil {
		return fmt.Errorf("stop tone: %w", err)
	}
	return nil
}

// Release stops any tone and returns the speaker.
func (l *Lease) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return nil
	}
	l.done = true
	err := l.stopLocked()
	<-l.s.sem
	return err
}

// Silent is a Device that produces nothing. Timing is unaffected.
type Silent struct{}

func (Silent) Start(float64, float64) error { return nil }
func (Silent) Stop() error                  { return nil }
