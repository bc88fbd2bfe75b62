package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ColonelBlimp/cwkeyer/internal/keyer"
	"github.com/ColonelBlimp/cwkeyer/internal/recovery"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var errNotTerminal = errors.New("key needs an interactive terminal")

const (
	keyCtrlC     = 0x03
	keyCtrlD     = 0x04
	keyBackspace = 0x08
	keyEsc       = 0x1b
	keyDelete    = 0x7f
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Interactive keyer on the terminal",
	Long: `Turns the terminal into a straight key and text pad.

  space        key down / key up
  a-z 0-9      append the character to the text
  /            append a word space
  A-Z          play that letter
  enter        play the text
  backspace    erase the last character
  + -          volume up / down
  < >          slower / faster (10 ms per step)
  esc          cancel playback
  ctrl-c       quit

Logs go to a file so they do not disturb the display.`,
	RunE: runKey,
}

func init() {
	keyCmd.Flags().String("log-file", "", "log file (default: config log_file or $TMPDIR/cwkeyer.log)")
}

// control is the part of the worker the key pad drives.
type control interface {
	SetKeying(on bool)
	Keying() bool
	StartPlayback(text string, flashLED bool)
	CancelPlayback()
	IsPlaybackActive() bool
	SetVolume(level float64)
	SetDitUnit(d time.Duration)
	Dit() time.Duration
	Text() string
	SetText(s string)
}

// keyPad maps terminal input to worker calls and redraws the status line.
type keyPad struct {
	w     control
	flash bool

	// mu guards step and out; redraw also runs on the decode goroutine.
	mu   sync.Mutex
	step int
	out  io.Writer
}

func newKeyPad(w control, out io.Writer, volumeStep int, flash bool) *keyPad {
	return &keyPad{w: w, out: out, step: volumeStep, flash: flash}
}

// input handles one read from the terminal and reports whether to quit.
func (k *keyPad) input(p []byte) bool {
	if len(p) == 0 {
		return false
	}
	// Escape sequences (arrow keys and friends) are ignored whole.
	if p[0] == keyEsc && len(p) > 1 {
		return false
	}
	for _, b := range p {
		if k.key(b) {
			return true
		}
	}
	k.redraw()
	return false
}

func (k *keyPad) key(b byte) bool {
	switch b {
	case keyCtrlC, keyCtrlD:
		return true
	case keyEsc:
		k.w.CancelPlayback()
		return false
	}
	if k.w.IsPlaybackActive() {
		return false
	}

	switch {
	case b == ' ':
		k.w.SetKeying(!k.w.Keying())
	case b == '\r' || b == '\n':
		if text := k.w.Text(); strings.TrimSpace(text) != "" {
			k.w.StartPlayback(text, k.flash)
		}
	case b == keyBackspace || b == keyDelete:
		if r := []rune(k.w.Text()); len(r) > 0 {
			k.w.SetText(string(r[:len(r)-1]))
		}
	case b == '/':
		k.w.SetText(k.w.Text() + " ")
	case b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		k.w.SetText(k.w.Text() + strings.ToUpper(string(b)))
	case b >= 'A' && b <= 'Z':
		k.w.StartPlayback(string(b), k.flash)
	case b == '+' || b == '=':
		k.stepVolume(1)
	case b == '-' || b == '_':
		k.stepVolume(-1)
	case b == '>' || b == '.':
		k.w.SetDitUnit(keyer.StepDit(k.w.Dit(), false))
	case b == '<' || b == ',':
		k.w.SetDitUnit(keyer.StepDit(k.w.Dit(), true))
	}
	return false
}

func (k *keyPad) stepVolume(delta int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.step = max(0, min(k.step+delta, len(keyer.VolumeSteps)-1))
	k.w.SetVolume(keyer.VolumeForStep(k.step))
}

// TextChanged redraws on every decoded text change.
func (k *keyPad) TextChanged(string) {
	k.redraw()
}

func (k *keyPad) redraw() {
	k.mu.Lock()
	defer k.mu.Unlock()

	state := "up  "
	switch {
	case k.w.IsPlaybackActive():
		state = "play"
	case k.w.Keying():
		state = "DOWN"
	}
	fmt.Fprintf(k.out, "\r\x1b[K[%s %3dms vol %d] %s", state, k.w.Dit().Milliseconds(), k.step, k.w.Text())
}

func runKey(cmd *cobra.Command, _ []string) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errNotTerminal
	}

	logFile, _ := cmd.Flags().GetString("log-file")
	if logFile == "" && viper.GetString("log_file") == "" {
		logFile = filepath.Join(os.TempDir(), "cwkeyer.log")
	}
	e, err := newEngine(cmd.ErrOrStderr(), logFile)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("raw terminal: %w", err)
	}
	restore := func() { _ = term.Restore(fd, state) }
	defer restore()
	defer recovery.HandlePanicFunc(restore)

	out := cmd.OutOrStdout()
	pad := newKeyPad(e.worker, out, e.settings.VolumeStep, e.settings.FlashLED)
	e.worker.RegisterObserver(pad)
	if err := e.worker.Start(); err != nil {
		return err
	}

	input := make(chan []byte)
	go func() {
		buf := make([]byte, 16)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				close(input)
				return
			}
			input <- append([]byte(nil), buf[:n]...)
		}
	}()

	pad.redraw()
	// Playback ends without a text change, so poll to clear the play marker.
	refresh := time.NewTicker(250 * time.Millisecond)
	defer refresh.Stop()

	for {
		select {
		case p, ok := <-input:
			if !ok || pad.input(p) {
				fmt.Fprint(out, "\r\n")
				return nil
			}
		case <-refresh.C:
			pad.redraw()
		case <-cmd.Context().Done():
			fmt.Fprint(out, "\r\n")
			return nil
		}
	}
}
