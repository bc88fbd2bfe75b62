package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// rampSeconds shapes tone edges so keying does not click.
const rampSeconds = 0.004

// oscillator is a phase-accumulator sine with a linear gain ramp toward target.
type oscillator struct {
	phase  float64
	step   float64 // radians per sample
	gain   float64
	target float64
	slew   float64 // gain change per sample
}

func newOscillator(sampleRate float64) oscillator {
	return oscillator{slew: 1 / (rampSeconds * sampleRate)}
}

func (o *oscillator) tune(freq, sampleRate float64) {
	o.step = 2 * math.Pi * freq / sampleRate
}

func (o *oscillator) fill(out []float32) {
	for i := range out {
		switch {
		case o.gain < o.target:
			o.gain = math.Min(o.gain+o.slew, o.target)
		case o.gain > o.target:
			o.gain = math.Max(o.gain-o.slew, o.target)
		}
		if o.gain == 0 {
			out[i] = 0
			continue
		}
		out[i] = float32(o.gain * math.Sin(o.phase))
		o.phase += o.step
		if o.phase >= 2*math.Pi {
			o.phase -= 2 * math.Pi
		}
	}
}

// Sink is a mono playback device that implements tone.Device. The stream
// runs from Open until Close; Start and Stop only move the gain.
type Sink struct {
	cfg    Config
	device *malgo.Device

	mu      sync.Mutex
	osc     oscillator
	scratch []float32
}

// OpenSink starts a playback stream on the configured device.
func (b *Backend) OpenSink(cfg Config) (*Sink, error) {
	ctx, err := b.context()
	if err != nil {
		return nil, err
	}
	id, err := b.deviceID(malgo.Playback, cfg.DeviceIndex)
	if err != nil {
		return nil, err
	}

	s := &Sink{cfg: cfg, osc: newOscillator(float64(cfg.SampleRate))}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.SampleRate = cfg.SampleRate
	deviceConfig.PeriodSizeInFrames = cfg.BufferSize
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = 1
	deviceConfig.Playback.DeviceID = id

	device, err := malgo.InitDevice(ctx, deviceConfig, malgo.DeviceCallbacks{
		Data: func(output, _ []byte, _ uint32) { s.render(output) },
	})
	if err != nil {
		return nil, fmt.Errorf("init playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("start playback device: %w", err)
	}
	s.device = device

	b.log.Debug("playback device open", "device", cfg.DeviceIndex, "rate", cfg.SampleRate)
	return s, nil
}

// Start ramps a tone of the given pitch up to volume.
func (s *Sink) Start(frequency, volume float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.osc.tune(frequency, float64(s.cfg.SampleRate))
	s.osc.target = volume
	return nil
}

// Stop ramps the tone down to silence.
func (s *Sink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.osc.target = 0
	return nil
}

// render runs on the audio thread.
func (s *Sink) render(output []byte) {
	n := len(output) / 4
	s.mu.Lock()
	if cap(s.scratch) < n {
		s.scratch = make([]float32, n)
	}
	buf := s.scratch[:n]
	s.osc.fill(buf)
	s.mu.Unlock()
	float32ToBytes(buf, output)
}

// Close stops the stream.
func (s *Sink) Close() error {
	if s.device == nil {
		return ErrNotRunning
	}
	_ = s.device.Stop()
	s.device.Uninit()
	s.device = nil
	return nil
}

// float32ToBytes writes little-endian samples into dst.
func float32ToBytes(samples []float32, dst []byte) {
	for i, v := range samples {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}
