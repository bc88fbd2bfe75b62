package cmd

import (
	"fmt"

	"github.com/ColonelBlimp/cwkeyer/internal/audio"
	"github.com/gen2brain/malgo"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio devices for --device",
	RunE: func(cmd *cobra.Command, _ []string) error {
		backend, err := audio.Open(nil)
		if err != nil {
			return err
		}
		defer func() { _ = backend.Close() }()

		out := cmd.OutOrStdout()
		for _, kind := range []struct {
			name string
			typ  malgo.DeviceType
		}{{"Playback", malgo.Playback}, {"Capture", malgo.Capture}} {
			infos, err := backend.Devices(kind.typ)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s devices:\n", kind.name)
			for i, info := range infos {
				fmt.Fprintf(out, "  [%d] %s\n", i, info.Name())
			}
		}
		return nil
	},
}
