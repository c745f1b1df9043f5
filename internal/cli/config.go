// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ik5/audmix/spatial"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
		Long:  "Commands for showing and validating audmix configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		Long:  "Validate the current configuration file, environment variables and flags.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.loadConfig(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✅ Configuration is valid")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the configuration values after merging file, environment and flags.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			m := cfg.Mixer
			fmt.Fprintln(out, "Current Configuration:")
			fmt.Fprintf(out, "  Mixer:\n")
			fmt.Fprintf(out, "    Sample rate: %d\n", m.SampleRate)
			fmt.Fprintf(out, "    Speaker mode: %s\n", m.SpeakerMode)
			fmt.Fprintf(out, "    Max channels: %d\n", m.MaxChannels)
			fmt.Fprintf(out, "    Channel pool: %d\n", m.ChannelPool)
			fmt.Fprintf(out, "    DSP buffer: %d frames\n", m.DSPBufferLength)
			fmt.Fprintf(out, "    Stream buffer: %d ms\n", m.StreamBufferMS)
			fmt.Fprintf(out, "    Rolloff: %s (scale %g)\n", m.Rolloff, m.RolloffScale)
			fmt.Fprintf(out, "    Doppler scale: %g\n", m.DopplerScale)
			fmt.Fprintf(out, "    Distance factor: %g\n", m.DistanceFactor)
			fmt.Fprintf(out, "    Volume threshold: %g\n", m.VolumeThreshold)
			fmt.Fprintf(out, "  Output:\n")
			fmt.Fprintf(out, "    Bit depth: %d\n", cfg.Output.BitDepth)
			fmt.Fprintf(out, "    Latency: %s\n", cfg.Output.Latency)
			fmt.Fprintf(out, "  Logging:\n")
			fmt.Fprintf(out, "    Level: %s\n", cfg.Logging.Level)
			fmt.Fprintf(out, "    Format: %s\n", cfg.Logging.Format)
			fmt.Fprintf(out, "  Reverb presets: %v\n", spatial.PresetNames())

			return nil
		},
	})

	return cmd
}
