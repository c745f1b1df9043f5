// SPDX-License-Identifier: EPL-2.0

// Package cli implements the audmix command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ik5/audmix/config"
	"github.com/ik5/audmix/logger"
)

type app struct {
	v       *viper.Viper
	cfgFile string
	verbose bool
}

// NewRootCommand builds the command tree with its own viper instance.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "audmix",
		Short: "Software mixer and DSP graph engine",
		Long: `audmix mixes many sound channels through a graph of DSP units into one
output stream, with 3D positioning, occlusion, reverb zones and a
virtual-voice limiter.

Scenes are YAML files listing sounds, channel groups, channels and
reverb zones. They can be rendered offline to a WAV file or played on
the default audio device.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./audmix.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "text", "log format (text, json)")
	root.PersistentFlags().Int("sample-rate", 48000, "output sample rate")
	root.PersistentFlags().String("speaker-mode", "stereo", "output layout (mono, stereo, quad, 5.0, 5.1, 7.1)")
	root.PersistentFlags().Int("max-channels", 64, "real voice limit")

	_ = a.v.BindPFlag("logging.level", root.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", root.PersistentFlags().Lookup("log-format"))
	_ = a.v.BindPFlag("mixer.sample_rate", root.PersistentFlags().Lookup("sample-rate"))
	_ = a.v.BindPFlag("mixer.speaker_mode", root.PersistentFlags().Lookup("speaker-mode"))
	_ = a.v.BindPFlag("mixer.max_channels", root.PersistentFlags().Lookup("max-channels"))

	root.AddCommand(
		newRenderCommand(a),
		newPlayCommand(a),
		newConfigCommand(a),
		newVersionCommand(),
	)

	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads, validates and applies the logging settings.
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}
