// cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/ColonelBlimp/cwkeyer/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "cwkeyer",
	Short: "Morse keyer: live keying decoder and text playback",
	Long: `A real-time Morse engine. Key by hand and watch the decoded text,
or type text and hear it played back at the configured speed.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	rootCmd.PersistentFlags().IntP("device", "d", -1, "audio device index (-1 for default)")
	rootCmd.PersistentFlags().Float64P("frequency", "f", 261.63, "tone frequency in Hz")
	rootCmd.PersistentFlags().IntP("dit", "t", 150, "dit unit in milliseconds")
	rootCmd.PersistentFlags().IntP("volume", "v", 3, "volume step 0-4")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug output")

	rootCmd.AddCommand(playCmd, keyCmd, listenCmd, tableCmd, devicesCmd)
}

// flagKeys maps persistent flags to their viper keys.
var flagKeys = map[string]string{
	"device":    "device_index",
	"frequency": "tone_frequency",
	"dit":       "dit_ms",
	"volume":    "volume_step",
	"debug":     "debug",
}

// bindFlags is repeated on every initialization so a viper.Reset does not
// lose the bindings.
func bindFlags() error {
	for flag, key := range flagKeys {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

func initConfig() {
	if err := bindFlags(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
}
