package keyer

import (
	"context"
	"time"

	"github.com/ColonelBlimp/cwkeyer/internal/cw"
	"github.com/ColonelBlimp/cwkeyer/internal/recovery"
	"github.com/ColonelBlimp/cwkeyer/internal/tone"
)

// decodeLoop polls the key state once per tick until stop is closed.
func (w *Worker) decodeLoop(stop <-chan struct{}, done chan<- struct{}) {
	var lease *tone.Lease
	defer close(done)
	defer func() {
		if lease != nil {
			_ = lease.Release()
		}
	}()
	defer recovery.Recover(w.log, "decode", nil)

	ticker := time.NewTicker(w.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		res, pending := w.step(time.Now())

		switch res.Edge {
		case cw.EdgeToneOn:
			lease = w.sidetone()
		case cw.EdgeToneOff:
			if lease != nil {
				_ = lease.Release()
				lease = nil
			}
			w.log.Debug("tone", "duration", res.Duration, "noise", res.Noise, "pending", pending)
		}

		if res.Letter != 0 {
			w.log.Debug("letter", "char", string(res.Letter))
		}
		for i := 0; i < res.Flushes; i++ {
			w.notify()
		}
	}
}

func (w *Worker) step(now time.Time) (cw.StepResult, string) {
	w.decodeMu.Lock()
	defer w.decodeMu.Unlock()
	res := w.dec.Step(now, w.keying.Load(), w.Dit())
	return res, w.dec.Pending()
}

// sidetone grabs the speaker for a keyed tone without waiting; a busy speaker
// only costs the audio, decoding carries on.
func (w *Worker) sidetone() *tone.Lease {
	lease, err := w.speaker.Acquire(context.Background(), 0)
	if err != nil {
		w.log.Debug("speaker busy, keying silently")
		return nil
	}
	if err := lease.Start(w.cfg.Frequency, w.Volume()); err != nil {
		w.log.Debug("sidetone failed", "error", err)
	}
	return lease
}
