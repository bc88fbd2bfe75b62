package keyer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ColonelBlimp/cwkeyer/internal/cw"
	"github.com/ColonelBlimp/cwkeyer/internal/recovery"
	"github.com/ColonelBlimp/cwkeyer/internal/tone"
)

// Request is one playback job, copied when the run starts.
type Request struct {
	Text     string
	FlashLED bool
}

// runState is shared between the submitting caller and the playback goroutine.
type runState struct {
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// StartPlayback renders text on a background goroutine and returns at once.
// A run already in progress is cancelled and joined first, and live keying
// is forced off so the speaker is free.
func (w *Worker) StartPlayback(text string, flashLED bool) {
	w.handoff.Lock()
	defer w.handoff.Unlock()

	w.joinPlayback()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	req := Request{Text: text, FlashLED: flashLED}

	// SetKeying checks running under the same lock, so no key-down can land
	// between forcing the key up and the run starting.
	w.pb.mu.Lock()
	w.keying.Store(false)
	w.pb.running = true
	w.pb.cancel = cancel
	w.pb.done = done
	w.pb.mu.Unlock()

	go w.playback(ctx, cancel, req, done)
}

// CancelPlayback asks the current run to stop. It returns without waiting.
func (w *Worker) CancelPlayback() {
	w.pb.mu.Lock()
	defer w.pb.mu.Unlock()
	if w.pb.cancel != nil {
		w.pb.cancel()
	}
}

// IsPlaybackActive reports whether a run is rendering.
func (w *Worker) IsPlaybackActive() bool {
	w.pb.mu.Lock()
	defer w.pb.mu.Unlock()
	return w.pb.running
}

// WaitPlayback blocks until the current run finishes or ctx is done.
func (w *Worker) WaitPlayback(ctx context.Context) error {
	w.pb.mu.Lock()
	done := w.pb.done
	w.pb.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// joinPlayback cancels and waits for the outstanding run. Callers hold handoff.
func (w *Worker) joinPlayback() {
	w.pb.mu.Lock()
	cancel, done := w.pb.cancel, w.pb.done
	w.pb.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done

	w.pb.mu.Lock()
	w.pb.cancel = nil
	w.pb.done = nil
	w.pb.mu.Unlock()
}

func (w *Worker) playback(ctx context.Context, cancel context.CancelFunc, req Request, done chan struct{}) {
	defer close(done)
	defer cancel()
	defer func() {
		w.pb.mu.Lock()
		w.pb.running = false
		w.pb.mu.Unlock()
	}()
	defer recovery.Recover(w.log, "playback", nil)

	w.log.Debug("playback started", "text", req.Text, "dit", w.Dit())
	if !w.render(ctx, req) {
		w.log.Debug("playback cancelled")
		w.flashCancelled()
		return
	}
	w.log.Debug("playback finished")
}

// render plays req and reports false if it was cancelled.
func (w *Worker) render(ctx context.Context, req Request) bool {
	tm := cw.Timing{Dit: w.Dit()}
	p := &pacer{w: w, at: w.now()}

	for _, r := range strings.ToUpper(req.Text) {
		if r == ' ' {
			if !p.wait(ctx, tm.WordGap()) {
				return false
			}
			continue
		}

		code, ok := cw.Lookup(r)
		if !ok {
			if !p.wait(ctx, tm.LetterGap()) {
				return false
			}
			continue
		}

		for i := 0; i < len(code); i++ {
			if !w.element(ctx, p, tm.Element(cw.Symbol(code[i])), req.FlashLED) {
				return false
			}
			if i < len(code)-1 && !p.wait(ctx, tm.IntraGap()) {
				return false
			}
		}
		if !p.wait(ctx, tm.LetterGap()) {
			return false
		}
	}
	return true
}

// element sounds one dot or dash. Without the speaker it still takes d.
func (w *Worker) element(ctx context.Context, p *pacer, d time.Duration, flashLED bool) bool {
	lease, err := w.speaker.Acquire(ctx, w.cfg.AcquireTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		w.log.Debug("speaker busy, element silent", "duration", d)
		return p.wait(ctx, d)
	}
	defer func() { _ = lease.Release() }()

	if flashLED {
		w.led.Set(tone.Blue, true)
		defer w.led.Set(tone.Blue, false)
	}
	if err := lease.Start(w.cfg.Frequency, w.Volume()); err != nil {
		w.log.Debug("tone failed", "error", err)
	}
	return p.wait(ctx, d)
}

// pacer keeps a run on an absolute schedule so sleep overshoot does not
// add up. Falling more than a slice behind, as after waiting for the
// speaker, restarts the schedule from now.
type pacer struct {
	w  *Worker
	at time.Time
}

func (p *pacer) wait(ctx context.Context, d time.Duration) bool {
	if now := p.w.now(); now.Sub(p.at) > p.w.cfg.Slice {
		p.at = now
	}
	p.at = p.at.Add(d)
	return p.w.holdUntil(ctx, p.at)
}

// holdUntil waits for end in slices, checking for cancellation before each one.
func (w *Worker) holdUntil(ctx context.Context, end time.Time) bool {
	for {
		remaining := end.Sub(w.now())
		if remaining <= 0 {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		w.sleep(min(w.cfg.Slice, remaining))
	}
}

func (w *Worker) flashCancelled() {
	w.led.Set(tone.Red, true)
	w.sleep(w.cfg.CancelFlash)
	w.led.Set(tone.Red, false)
}
