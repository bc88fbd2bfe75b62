package keyer

import (
	"sync"
	"time"

	"github.com/ColonelBlimp/cwkeyer/internal/tone"
)

// fakeClock is a virtual clock driven by the playback goroutine's sleeps.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Duration
	late    time.Duration // added to every sleep, like scheduler overshoot
	onSleep func(now time.Duration)
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now += d + c.late
	now, hook := c.now, c.onSleep
	c.mu.Unlock()
	if hook != nil {
		hook(now)
	}
}

func (c *fakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Time maps the virtual offset onto a wall-clock instant.
func (c *fakeClock) Time() time.Time {
	return time.Unix(0, 0).Add(c.Now())
}

type segment struct {
	on, off time.Duration
}

// toneRecorder is a tone.Device that logs on/off times.
type toneRecorder struct {
	mu       sync.Mutex
	now      func() time.Duration
	segments []segment
	playing  bool
	overlap  bool
	volumes  []float64
}

func newToneRecorder(now func() time.Duration) *toneRecorder {
	return &toneRecorder{now: now}
}

func (r *toneRecorder) Start(_ float64, volume float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.playing {
		r.overlap = true
	}
	r.playing = true
	r.segments = append(r.segments, segment{on: r.now()})
	r.volumes = append(r.volumes, volume)
	return nil
}

func (r *toneRecorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playing = false
	r.segments[len(r.segments)-1].off = r.now()
	return nil
}

func (r *toneRecorder) Segments() []segment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]segment(nil), r.segments...)
}

func (r *toneRecorder) Overlap() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overlap
}

func (r *toneRecorder) Playing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playing
}

type ledEvent struct {
	color tone.Color
	on    bool
}

type ledRecorder struct {
	mu     sync.Mutex
	events []ledEvent
}

func (l *ledRecorder) Set(c tone.Color, on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ledEvent{c, on})
}

func (l *ledRecorder) Count(c tone.Color, on bool) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.color == c && e.on == on {
			n++
		}
	}
	return n
}

// textSink collects observer notifications.
type textSink struct {
	mu    sync.Mutex
	texts []string
	ch    chan string
}

func newTextSink() *textSink {
	return &textSink{ch: make(chan string, 64)}
}

func (s *textSink) TextChanged(text string) {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()
	select {
	case s.ch <- text:
	default:
	}
}

func (s *textSink) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}
