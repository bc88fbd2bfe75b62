package keyer

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ColonelBlimp/cwkeyer/internal/cw"
	"github.com/ColonelBlimp/cwkeyer/internal/logging"
	"github.com/ColonelBlimp/cwkeyer/internal/tone"
)

// Worker is the engine facade. The UI sets parameters and keying through it,
// triggers playback, and observes decoded text.
type Worker struct {
	cfg     Config
	speaker *tone.Speaker
	led     tone.Indicator
	log     *slog.Logger

	// Single writer per field, read by the background goroutines.
	dit    atomic.Int64
	volume atomic.Uint64
	keying atomic.Bool

	// decodeMu serializes decoder steps against ResetText.
	decodeMu sync.Mutex
	dec      *cw.Decoder

	text     cw.Text
	observer atomic.Pointer[DecodedTextObserver]

	// Decode goroutine lifecycle.
	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}

	// handoff serializes playback submission and teardown so a new run only
	// starts after the previous one has been joined.
	handoff sync.Mutex
	pb      runState

	sleep func(time.Duration)
	now   func() time.Time
}

// Option customizes a Worker.
type Option func(*Worker)

// WithIndicator sets the LED driver. The default ignores LED requests.
func WithIndicator(led tone.Indicator) Option {
	return func(w *Worker) {
		if led != nil {
			w.led = led
		}
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.log = logger
		}
	}
}

// New creates a worker around speaker. The decode goroutine does not run
// until Start; playback works either way.
func New(cfg Config, speaker *tone.Speaker, opts ...Option) (*Worker, error) {
	if speaker == nil {
		return nil, ErrSpeakerRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	w := &Worker{
		cfg:     cfg,
		speaker: speaker,
		led:     tone.NopIndicator{},
		log:     logging.Discard(),
		sleep:   time.Sleep,
		now:     time.Now,
	}
	w.dec = cw.NewDecoder(&w.text)
	for _, opt := range opts {
		opt(w)
	}
	w.dit.Store(int64(cfg.Dit))
	w.volume.Store(math.Float64bits(cfg.Volume))
	return w, nil
}

// Start launches the decode goroutine.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		return ErrAlreadyRunning
	}
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	w.decodeMu.Lock()
	w.dec = cw.NewDecoder(&w.text)
	w.decodeMu.Unlock()

	go w.decodeLoop(w.stopCh, w.doneCh)

	w.log.Info("worker started", "dit", w.Dit(), "volume", w.Volume(), "tick", w.cfg.Tick)
	return nil
}

// Stop halts and joins the decode goroutine, then cancels and joins any
// playback run. Nothing the worker started outlives Stop. It returns
// ErrNotRunning if Start was never called, after still tearing down playback.
func (w *Worker) Stop() error {
	w.keying.Store(false)

	w.mu.Lock()
	stopCh, doneCh := w.stopCh, w.doneCh
	w.stopCh, w.doneCh = nil, nil
	w.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}

	w.handoff.Lock()
	w.joinPlayback()
	w.handoff.Unlock()

	w.led.Set(tone.Green, false)

	if stopCh == nil {
		return ErrNotRunning
	}
	w.log.Info("worker stopped")
	return nil
}

// SetKeying sets the live key state. Key-down requests are dropped while a
// playback run owns the output.
func (w *Worker) SetKeying(on bool) {
	w.pb.mu.Lock()
	defer w.pb.mu.Unlock()
	if on && w.pb.running {
		return
	}
	w.keying.Store(on)
}

// Keying reports the live key state.
func (w *Worker) Keying() bool {
	return w.keying.Load()
}

// SetVolume sets the tone amplitude. Callers clamp; see VolumeForStep.
func (w *Worker) SetVolume(level float64) {
	w.volume.Store(math.Float64bits(level))
}

func (w *Worker) Volume() float64 {
	return math.Float64frombits(w.volume.Load())
}

// SetDitUnit sets the timing unit. Non-positive values are ignored.
func (w *Worker) SetDitUnit(d time.Duration) {
	if d <= 0 {
		return
	}
	w.dit.Store(int64(d))
}

func (w *Worker) Dit() time.Duration {
	return time.Duration(w.dit.Load())
}

// RegisterObserver installs the single text observer; nil removes it.
func (w *Worker) RegisterObserver(o DecodedTextObserver) {
	if o == nil {
		w.observer.Store(nil)
		return
	}
	w.observer.Store(&o)
}

// Text returns a snapshot of the decoded text.
func (w *Worker) Text() string {
	return w.text.String()
}

// ResetText erases the decoded text and the letter being keyed. A decode
// step in flight finishes first, so no letter from the old code lands after.
func (w *Worker) ResetText() {
	w.decodeMu.Lock()
	w.dec.Reset()
	w.text.Reset()
	w.decodeMu.Unlock()
	w.notify()
}

// SetText overwrites the decoded text.
func (w *Worker) SetText(s string) {
	w.text.Set(s)
	w.notify()
}

func (w *Worker) notify() {
	if o := w.observer.Load(); o != nil {
		(*o).TextChanged(w.text.String())
	}
}
