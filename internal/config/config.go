// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ColonelBlimp/cwkeyer/internal/logging"
	"github.com/spf13/viper"
)

const (
	AppName       = "cwkeyer"
	ConfigType    = "yaml"
	DefaultConfig = `# CW Keyer Configuration

# Audio device settings
device_index: -1        # -1 for default device (see 'cwkeyer devices')
sample_rate: 48000      # Audio sample rate in Hz
buffer_size: 512        # Frames per audio callback

# Tone
tone_frequency: 261.63  # Sidetone and playback pitch in Hz
volume_step: 3          # 0 (mute) to 4 (full)

# Timing
dit_ms: 150             # Dit unit; dah, gaps and word space derive from it
tick_ms: 10             # Decode poll period while keying
slice_ms: 5             # Playback checks for cancel at least this often
acquire_timeout_ms: 1000 # How long a playback element waits for the speaker
cancel_flash_ms: 120    # Red LED flash after a cancelled playback
flash_led: true         # Pulse the blue LED with each played element

# Listen (tone detection from audio input)
block_size: 512         # Goertzel block size (samples per detection window)
threshold: 0.3          # Detection threshold (0.0-1.0)
hysteresis: 2           # Consecutive blocks required to confirm a key change

# Logging
log_level: "info"       # debug, info, warn, error
log_file: ""            # Rotating log file; empty logs to stderr
debug: false            # Shorthand for log_level debug
`
)

// Settings holds all application configuration
type Settings struct {
	// Audio device settings
	DeviceIndex int `mapstructure:"device_index"`
	SampleRate  int `mapstructure:"sample_rate"`
	BufferSize  int `mapstructure:"buffer_size"`

	// Tone
	ToneFrequency float64 `mapstructure:"tone_frequency"`
	VolumeStep    int     `mapstructure:"volume_step"`

	// Timing
	DitMS            int  `mapstructure:"dit_ms"`
	TickMS           int  `mapstructure:"tick_ms"`
	SliceMS          int  `mapstructure:"slice_ms"`
	AcquireTimeoutMS int  `mapstructure:"acquire_timeout_ms"`
	CancelFlashMS    int  `mapstructure:"cancel_flash_ms"`
	FlashLED         bool `mapstructure:"flash_led"`

	// Listen
	BlockSize  int     `mapstructure:"block_size"`
	Threshold  float64 `mapstructure:"threshold"`
	Hysteresis int     `mapstructure:"hysteresis"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
	Debug    bool   `mapstructure:"debug"`
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/cwkeyer/
func Init() error {
	viper.SetDefault("device_index", -1)
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("buffer_size", 512)
	viper.SetDefault("tone_frequency", 261.63)
	viper.SetDefault("volume_step", 3)
	viper.SetDefault("dit_ms", 150)
	viper.SetDefault("tick_ms", 10)
	viper.SetDefault("slice_ms", 5)
	viper.SetDefault("acquire_timeout_ms", 1000)
	viper.SetDefault("cancel_flash_ms", 120)
	viper.SetDefault("flash_led", true)
	viper.SetDefault("block_size", 512)
	viper.SetDefault("threshold", 0.3)
	viper.SetDefault("hysteresis", 2)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_file", "")
	viper.SetDefault("debug", false)

	viper.SetConfigType(ConfigType)

	// Priority order: current directory first, then XDG config
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// Try .config.yaml first (hidden file), then config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("read config: %w", err)
		}
		// No config found - create default in ~/.config/cwkeyer/
		if err = ensureConfigExists(filepath.Join(configDir, AppName)); err != nil {
			return err
		}
		if err = viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	// Audio device settings
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %d", s.SampleRate))
	}
	if s.BufferSize < 64 || s.BufferSize > 8192 {
		errs = append(errs, fmt.Errorf("buffer_size must be between 64 and 8192, got %d", s.BufferSize))
	}
	if s.BufferSize&(s.BufferSize-1) != 0 {
		errs = append(errs, fmt.Errorf("buffer_size should be a power of 2, got %d", s.BufferSize))
	}

	// Tone
	if s.ToneFrequency < 100 || s.ToneFrequency > 3000 {
		errs = append(errs, fmt.Errorf("tone_frequency must be between 100 and 3000 Hz, got %v", s.ToneFrequency))
	}
	if s.VolumeStep < 0 || s.VolumeStep > 4 {
		errs = append(errs, fmt.Errorf("volume_step must be between 0 and 4, got %d", s.VolumeStep))
	}

	// Timing
	if s.DitMS < 10 || s.DitMS > 2000 {
		errs = append(errs, fmt.Errorf("dit_ms must be between 10 and 2000, got %d", s.DitMS))
	}
	if s.TickMS < 1 || s.TickMS > 100 {
		errs = append(errs, fmt.Errorf("tick_ms must be between 1 and 100, got %d", s.TickMS))
	}
	if s.SliceMS < 1 || s.SliceMS > 50 {
		errs = append(errs, fmt.Errorf("slice_ms must be between 1 and 50, got %d", s.SliceMS))
	}
	if s.AcquireTimeoutMS < 0 || s.AcquireTimeoutMS > 10000 {
		errs = append(errs, fmt.Errorf("acquire_timeout_ms must be between 0 and 10000, got %d", s.AcquireTimeoutMS))
	}
	if s.CancelFlashMS < 0 || s.CancelFlashMS > 2000 {
		errs = append(errs, fmt.Errorf("cancel_flash_ms must be between 0 and 2000, got %d", s.CancelFlashMS))
	}

	// Listen
	if s.BlockSize < 32 || s.BlockSize > 4096 {
		errs = append(errs, fmt.Errorf("block_size must be between 32 and 4096, got %d", s.BlockSize))
	}
	if s.Threshold < 0.0 || s.Threshold > 1.0 {
		errs = append(errs, fmt.Errorf("threshold must be between 0.0 and 1.0, got %v", s.Threshold))
	}
	if s.Hysteresis < 1 || s.Hysteresis > 50 {
		errs = append(errs, fmt.Errorf("hysteresis must be between 1 and 50, got %d", s.Hysteresis))
	}

	// Logging
	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}

	// Nyquist check: tone frequency must be less than half the sample rate
	if s.ToneFrequency >= float64(s.SampleRate)/2 {
		errs = append(errs, fmt.Errorf("tone_frequency (%v Hz) must be less than Nyquist frequency (%v Hz)", s.ToneFrequency, float64(s.SampleRate)/2))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Dit returns the configured dit unit.
func (s *Settings) Dit() time.Duration {
	return ms(s.DitMS)
}

// Tick returns the decode poll period.
func (s *Settings) Tick() time.Duration {
	return ms(s.TickMS)
}

// Slice returns the playback cancellation checkpoint.
func (s *Settings) Slice() time.Duration {
	return ms(s.SliceMS)
}

// AcquireTimeout returns how long playback waits for the speaker.
func (s *Settings) AcquireTimeout() time.Duration {
	return ms(s.AcquireTimeoutMS)
}

// CancelFlash returns the red LED flash length.
func (s *Settings) CancelFlash() time.Duration {
	return ms(s.CancelFlashMS)
}

// Level returns the effective log level; debug overrides log_level.
func (s *Settings) Level() string {
	if s.Debug {
		return "debug"
	}
	return s.LogLevel
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
