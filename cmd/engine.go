package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ColonelBlimp/cwkeyer/internal/audio"
	"github.com/ColonelBlimp/cwkeyer/internal/config"
	"github.com/ColonelBlimp/cwkeyer/internal/keyer"
	"github.com/ColonelBlimp/cwkeyer/internal/logging"
	"github.com/ColonelBlimp/cwkeyer/internal/tone"
)

// engine is everything a command needs to drive the keyer.
type engine struct {
	settings *config.Settings
	log      *slog.Logger
	backend  *audio.Backend
	worker   *keyer.Worker

	closers []io.Closer
}

// openToneDevice opens the audio output. Tests replace it to stay off the hardware.
var openToneDevice = func(e *engine) (tone.Device, error) {
	backend, err := audio.Open(e.log)
	if err != nil {
		return nil, err
	}
	e.backend = backend
	e.closers = append(e.closers, backend)

	sink, err := backend.OpenSink(audioConfig(e.settings))
	if err != nil {
		return nil, err
	}
	// Sink closes before the backend.
	e.closers = append(e.closers, sink)
	return sink, nil
}

func audioConfig(s *config.Settings) audio.Config {
	return audio.Config{
		DeviceIndex: s.DeviceIndex,
		SampleRate:  uint32(s.SampleRate),
		BufferSize:  uint32(s.BufferSize),
	}
}

func keyerConfig(s *config.Settings) keyer.Config {
	return keyer.Config{
		Dit:            s.Dit(),
		Volume:         keyer.VolumeForStep(s.VolumeStep),
		Frequency:      s.ToneFrequency,
		Tick:           s.Tick(),
		Slice:          s.Slice(),
		AcquireTimeout: s.AcquireTimeout(),
		CancelFlash:    s.CancelFlash(),
	}
}

// newEngine loads the settings, builds the logger and worker, and opens the
// tone output. A missing audio device degrades to a silent speaker.
func newEngine(logOut io.Writer, logFile string) (*engine, error) {
	settings, err := config.Get()
	if err != nil {
		return nil, err
	}
	if logFile == "" {
		logFile = settings.LogFile
	}
	logger, logCloser, err := logging.New(settings.Level(), logFile, logOut)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	e := &engine{settings: settings, log: logger, closers: []io.Closer{logCloser}}

	dev, err := openToneDevice(e)
	if err != nil {
		logger.Warn("audio output unavailable, running silent", "error", err)
		dev = tone.Silent{}
	}

	e.worker, err = keyer.New(keyerConfig(settings), tone.NewSpeaker(dev),
		keyer.WithIndicator(tone.LogIndicator{Logger: logger}),
		keyer.WithLogger(logger),
	)
	if err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("keyer: %w", err)
	}
	return e, nil
}

// Close stops the worker and releases resources in reverse order.
func (e *engine) Close() error {
	var errs []error
	if e.worker != nil {
		if err := e.worker.Stop(); err != nil && !errors.Is(err, keyer.ErrNotRunning) {
			errs = append(errs, err)
		}
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}
