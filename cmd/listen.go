package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/ColonelBlimp/cwkeyer/internal/audio"
	"github.com/ColonelBlimp/cwkeyer/internal/config"
	"github.com/ColonelBlimp/cwkeyer/internal/dsp"
	"github.com/spf13/cobra"
)

var errNoBackend = errors.New("audio backend unavailable")

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Decode Morse heard on the audio input",
	Long: `Detects the configured tone on the capture device and keys the
decoder with it. Decoded text is printed as it arrives; Ctrl-C stops.`,
	RunE: runListen,
}

// newDetector builds the tone keyer for the configured pitch.
func newDetector(s *config.Settings) (*dsp.KeyDetector, error) {
	g, err := dsp.NewGoertzel(s.ToneFrequency, float64(s.SampleRate), s.BlockSize)
	if err != nil {
		return nil, err
	}
	return dsp.NewKeyDetector(g, s.Threshold, s.Hysteresis)
}

// textPrinter prints only what was added since the last change, and a
// newline when the text was cleared or rewritten.
type textPrinter struct {
	mu   sync.Mutex
	out  io.Writer
	last string
}

func (p *textPrinter) TextChanged(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(text) >= len(p.last) && text[:len(p.last)] == p.last {
		fmt.Fprint(p.out, text[len(p.last):])
	} else {
		fmt.Fprint(p.out, "\n"+text)
	}
	p.last = text
}

func runListen(cmd *cobra.Command, _ []string) error {
	e, err := newEngine(cmd.ErrOrStderr(), "")
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	if e.backend == nil {
		return errNoBackend
	}
	det, err := newDetector(e.settings)
	if err != nil {
		return fmt.Errorf("detector: %w", err)
	}
	det.OnKey(e.worker.SetKeying)

	e.worker.RegisterObserver(&textPrinter{out: cmd.OutOrStdout()})
	if err := e.worker.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	capture := audio.NewCapture(e.backend, audioConfig(e.settings))
	capture.SetCallback(det.Process)
	if err := capture.Start(ctx); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	e.log.Info("listening", "frequency", e.settings.ToneFrequency, "threshold", e.settings.Threshold)

	<-ctx.Done()
	if err := capture.Stop(); err != nil && !errors.Is(err, audio.ErrNotRunning) {
		e.log.Warn("stop capture", "error", err)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}
