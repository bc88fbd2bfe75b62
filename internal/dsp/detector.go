package dsp

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrInvalidThreshold indicates threshold must be between 0 and 1
	ErrInvalidThreshold = errors.New("threshold must be between 0.0 and 1.0")
	// ErrInvalidHysteresis indicates hysteresis must be at least one block
	ErrInvalidHysteresis = errors.New("hysteresis must be at least 1")
	// ErrGoertzelRequired indicates Goertzel instance is required
	ErrGoertzelRequired = errors.New("goertzel instance is required")
)

// KeyFunc receives debounced key transitions. It runs on the audio thread
// and must not block.
type KeyFunc func(down bool)

// KeyDetector turns a stream of samples into key up/down transitions using a
// magnitude threshold debounced over consecutive blocks.
type KeyDetector struct {
	goertzel   *Goertzel
	threshold  float64
	hysteresis int

	pending []float32

	down  bool
	count int // consecutive blocks disagreeing with down

	onKey atomic.Pointer[KeyFunc]
}

// NewKeyDetector creates a detector. A state change needs hysteresis
// consecutive blocks on the other side of threshold.
func NewKeyDetector(g *Goertzel, threshold float64, hysteresis int) (*KeyDetector, error) {
	if g == nil {
		return nil, ErrGoertzelRequired
	}
	if threshold < 0 || threshold > 1 {
		return nil, ErrInvalidThreshold
	}
	if hysteresis < 1 {
		return nil, ErrInvalidHysteresis
	}
	return &KeyDetector{
		goertzel:   g,
		threshold:  threshold,
		hysteresis: hysteresis,
		pending:    make([]float32, 0, 2*g.BlockSize()),
	}, nil
}

// OnKey sets the transition callback; nil removes it.
func (d *KeyDetector) OnKey(fn KeyFunc) {
	if fn == nil {
		d.onKey.Store(nil)
		return
	}
	d.onKey.Store(&fn)
}

// Process consumes samples, buffering any partial block for the next call.
func (d *KeyDetector) Process(samples []float32) {
	n := d.goertzel.BlockSize()
	d.pending = append(d.pending, samples...)

	consumed := 0
	for len(d.pending)-consumed >= n {
		d.block(d.pending[consumed : consumed+n])
		consumed += n
	}
	d.pending = d.pending[:copy(d.pending, d.pending[consumed:])]
}

func (d *KeyDetector) block(b []float32) {
	present := d.goertzel.Magnitude(b) > d.threshold
	if present == d.down {
		d.count = 0
		return
	}
	d.count++
	if d.count < d.hysteresis {
		return
	}
	d.down = present
	d.count = 0
	if fn := d.onKey.Load(); fn != nil {
		(*fn)(d.down)
	}
}

// Down reports the debounced key state.
func (d *KeyDetector) Down() bool {
	return d.down
}

// Reset forgets buffered samples and returns to key up without a callback.
func (d *KeyDetector) Reset() {
	d.pending = d.pending[:0]
	d.down = false
	d.count = 0
}
