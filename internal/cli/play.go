// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ik5/audmix/config"
	"github.com/ik5/audmix/logger"
	"github.com/ik5/audmix/sink/otosink"
)

const playPoll = 50 * time.Millisecond

func newPlayCommand(a *app) *cobra.Command {
	var (
		scenePath string
		seconds   float64
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a scene on the audio device",
		Long: `Play a scene through the default audio device until every channel has
ended, the requested time has passed or the process is interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return play(ctx, cfg, scenePath, seconds)
		},
	}

	cmd.Flags().StringVarP(&scenePath, "scene", "s", "", "scene file")
	cmd.Flags().Float64Var(&seconds, "seconds", 0, "stop after this long (default: the scene's, else until all channels end)")
	cmd.Flags().Duration("latency", 100*time.Millisecond, "device buffer length")
	_ = a.v.BindPFlag("output.latency", cmd.Flags().Lookup("latency"))
	_ = cmd.MarkFlagRequired("scene")

	return cmd
}

func play(ctx context.Context, cfg *config.Config, scenePath string, seconds float64) error {
	log := logger.WithComponent("play")

	sys, st, sc, err := openStage(ctx, cfg, scenePath)
	if err != nil {
		return err
	}
	defer sys.Release()
	defer st.Release()

	if seconds <= 0 {
		seconds = sc.Seconds
	}
	if seconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(seconds*float64(time.Second)))
		defer cancel()
	}

	p, err := otosink.New(sys, cfg.Output.Latency, log)
	if err != nil {
		return err
	}
	defer p.Close()

	p.Start()
	log.Info("playing", "scene", scenePath)

	t := time.NewTicker(playPoll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			p.Stop()
			return nil
		case <-t.C:
		}

		logEvents(log, sys.PollEvents())
		if err := p.Err(); err != nil {
			return fmt.Errorf("audio device: %w", err)
		}
		total, _, err := sys.ChannelsPlaying()
		if err != nil {
			return err
		}
		if total == 0 {
			p.Stop()
			return nil
		}
	}
}
