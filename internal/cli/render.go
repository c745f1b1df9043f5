// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ik5/audmix/config"
	"github.com/ik5/audmix/logger"
	"github.com/ik5/audmix/mixer"
	"github.com/ik5/audmix/sink/wavfile"
)

const defaultSeconds = 5

func newRenderCommand(a *app) *cobra.Command {
	var (
		scenePath string
		out       string
		seconds   float64
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a scene to a WAV file",
		Long: `Render a scene offline through the full engine and write the mix as
a WAV file in the configured layout and bit depth.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			frames, err := render(cmd.Context(), cfg, scenePath, out, seconds)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d frames to %s\n", frames, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&scenePath, "scene", "s", "", "scene file")
	cmd.Flags().StringVarP(&out, "out", "o", "mix.wav", "output WAV file")
	cmd.Flags().Float64Var(&seconds, "seconds", 0, "length to render (default: the scene's, else 5)")
	cmd.Flags().Int("bit-depth", 16, "output bit depth (8, 16, 24, 32)")
	_ = a.v.BindPFlag("output.bit_depth", cmd.Flags().Lookup("bit-depth"))
	_ = cmd.MarkFlagRequired("scene")

	return cmd
}

// openStage starts a system from cfg and builds the scene on it. The
// caller releases both.
func openStage(ctx context.Context, cfg *config.Config, scenePath string) (*mixer.System, *Stage, *Scene, error) {
	sc, err := LoadScene(scenePath)
	if err != nil {
		return nil, nil, nil, err
	}

	mc := cfg.MixerConfig()
	mc.Logger = slog.Default()
	sys := mixer.NewSystem(mc)
	if err := sys.Initialize(cfg.InitFlags(), cfg.Mixer.MaxChannels); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize mixer: %w", err)
	}

	st, err := Build(ctx, sys, sc, filepath.Dir(scenePath))
	if err != nil {
		_ = sys.Release()
		return nil, nil, nil, err
	}
	return sys, st, sc, nil
}

func render(ctx context.Context, cfg *config.Config, scenePath, out string, seconds float64) (int64, error) {
	log := logger.WithComponent("render")

	sys, st, sc, err := openStage(ctx, cfg, scenePath)
	if err != nil {
		return 0, err
	}
	defer sys.Release()
	defer st.Release()

	if seconds <= 0 {
		seconds = sc.Seconds
	}
	if seconds <= 0 {
		seconds = defaultSeconds
	}

	rate, _ := sys.SoftwareFormat()
	channels := sys.SpeakerModeChannels()
	block := sys.DSPBufferSize()
	total := int(seconds * float64(rate))

	sink, err := wavfile.Create(out, rate, channels, cfg.Output.BitDepth)
	if err != nil {
		return 0, err
	}

	buf := make([]float32, block*channels)
	for done := 0; done < total; {
		if err := ctx.Err(); err != nil {
			return 0, errors.Join(err, sink.Close())
		}

		n := min(block, total-done)
		if err := sys.Tick(buf, n); err != nil {
			return 0, errors.Join(err, sink.Close())
		}
		if err := sink.Write(buf[:n*channels]); err != nil {
			return 0, errors.Join(err, sink.Close())
		}
		done += n

		logEvents(log, sys.PollEvents())
	}

	frames := sink.Frames()
	if err := sink.Close(); err != nil {
		return 0, err
	}

	log.Info("rendered scene", "scene", scenePath, "out", out, "frames", frames, "cpu", sys.CPUUsage())
	return frames, nil
}

func logEvents(log *slog.Logger, events []mixer.Event) {
	for _, e := range events {
		switch e.Kind {
		case mixer.EventChannelError:
			log.Warn("channel failed", "error", e.Err)
		default:
			log.Debug("mixer event", "kind", e.Kind.String())
		}
	}
}
