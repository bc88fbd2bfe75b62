// Package audio wraps the malgo backend: a playback Sink that serves as the
// keyer's tone device and a Capture that feeds the listen detector.
package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"github.com/gen2brain/malgo"
)

var (
	ErrNotInitialized = errors.New("audio backend not initialized")
	ErrAlreadyRunning = errors.New("audio device already running")
	ErrNotRunning     = errors.New("audio device not running")
	ErrDeviceRange    = errors.New("device index out of range")
)

// Config holds the device parameters shared by playback and capture.
type Config struct {
	DeviceIndex int    // -1 for default device
	SampleRate  uint32 // e.g., 48000
	BufferSize  uint32 // frames per callback
}

// DefaultConfig returns the default device at 48 kHz.
func DefaultConfig() Config {
	return Config{
		DeviceIndex: -1,
		SampleRate:  48000,
		BufferSize:  512,
	}
}

// Backend owns the malgo context. Sinks and captures opened from it must be
// closed before the backend.
type Backend struct {
	mu  sync.RWMutex
	ctx *malgo.AllocatedContext
	log *slog.Logger
}

// Open initializes the platform audio context.
func Open(logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		logger.Debug("malgo", "msg", msg)
	})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return &Backend{ctx: ctx, log: logger}, nil
}

// Devices lists the devices of the given kind.
func (b *Backend) Devices(kind malgo.DeviceType) ([]malgo.DeviceInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.ctx == nil {
		return nil, ErrNotInitialized
	}
	infos, err := b.ctx.Devices(kind)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return infos, nil
}

// deviceID resolves index to a device pointer; -1 selects the default (nil).
func (b *Backend) deviceID(kind malgo.DeviceType, index int) (unsafe.Pointer, error) {
	if index < 0 {
		return nil, nil
	}
	devices, err := b.Devices(kind)
	if err != nil {
		return nil, err
	}
	if index >= len(devices) {
		return nil, fmt.Errorf("%w: %d (have %d devices)", ErrDeviceRange, index, len(devices))
	}
	return devices[index].ID.Pointer(), nil
}

func (b *Backend) context() (malgo.Context, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var c malgo.Context
	if b.ctx == nil {
		return c, ErrNotInitialized
	}
	return b.ctx.Context, nil
}

// Close releases the audio context.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx == nil {
		return nil
	}
	err := b.ctx.Uninit()
	b.ctx.Free()
	b.ctx = nil
	if err != nil {
		return fmt.Errorf("uninit context: %w", err)
	}
	return nil
}
