package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// SampleCallback is called directly from the audio thread with new samples.
// Must be non-blocking and fast.
type SampleCallback func(samples []float32)

// Capture streams mono samples from an input device to a callback.
type Capture struct {
	backend  *Backend
	config   Config
	device   *malgo.Device
	running  bool
	mu       sync.Mutex
	callback atomic.Pointer[SampleCallback]
}

// NewCapture creates a capture on backend. Nothing is opened until Start.
func NewCapture(backend *Backend, cfg Config) *Capture {
	return &Capture{backend: backend, config: cfg}
}

// SetCallback sets the sample consumer. Safe to call while running.
func (c *Capture) SetCallback(cb SampleCallback) {
	if cb == nil {
		c.callback.Store(nil)
		return
	}
	c.callback.Store(&cb)
}

// Start opens the device and begins capture; cancelling ctx stops it.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyRunning
	}
	if c.backend == nil {
		return ErrNotInitialized
	}
	mctx, err := c.backend.context()
	if err != nil {
		return err
	}
	id, err := c.backend.deviceID(malgo.Capture, c.config.DeviceIndex)
	if err != nil {
		return err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.SampleRate = c.config.SampleRate
	deviceConfig.PeriodSizeInFrames = c.config.BufferSize
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.Capture.DeviceID = id

	onRecvFrames := func(_, input []byte, _ uint32) {
		if len(input) == 0 {
			return
		}
		if cb := c.callback.Load(); cb != nil {
			(*cb)(bytesToFloat32(input))
		}
	}

	device, err := malgo.InitDevice(mctx, deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		return fmt.Errorf("init capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("start capture device: %w", err)
	}
	c.device = device
	c.running = true

	go func() {
		<-ctx.Done()
		_ = c.Stop()
	}()
	return nil
}

// Stop halts capture.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return ErrNotRunning
	}
	_ = c.device.Stop()
	c.device.Uninit()
	c.device = nil
	c.running = false
	return nil
}

// IsRunning returns true if capture is active
func (c *Capture) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// bytesToFloat32 converts raw little-endian bytes to float32 samples
func bytesToFloat32(data []byte) []float32 {
	samples := make([]float32, len(data)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return samples
}
