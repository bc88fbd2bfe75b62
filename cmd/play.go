package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
)

var errNoText = errors.New("nothing to play")

var playCmd = &cobra.Command{
	Use:   "play [text...]",
	Short: "Play text as Morse",
	Long: `Renders the text as timed tones. Letters A-Z and digits are sent,
spaces become word gaps and anything else is skipped with a letter gap.
Interrupt (Ctrl-C) cancels the run.`,
	Example: `  cwkeyer play CQ CQ DE K1ABC
  cwkeyer play --dit 60 "PARIS PARIS"`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().Bool("no-led", false, "do not pulse the LED with each element")
}

func runPlay(cmd *cobra.Command, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return errNoText
	}

	e, err := newEngine(cmd.ErrOrStderr(), "")
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	noLED, _ := cmd.Flags().GetBool("no-led")
	flash := e.settings.FlashLED && !noLED

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if err := e.worker.Start(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", strings.ToUpper(text))
	e.worker.StartPlayback(text, flash)

	if err := e.worker.WaitPlayback(ctx); err != nil {
		e.worker.CancelPlayback()
		_ = e.worker.WaitPlayback(context.Background())
		fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
	}
	return nil
}
