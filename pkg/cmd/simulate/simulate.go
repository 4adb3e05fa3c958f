package simulate

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/kartrace/kartrace-go/log"
	"github.com/kartrace/kartrace-go/pkg/cmd/cmdutil"
	trackcmd "github.com/kartrace/kartrace-go/pkg/cmd/track"
	"github.com/kartrace/kartrace-go/pkg/config"
	"github.com/kartrace/kartrace-go/pkg/input"
	"github.com/kartrace/kartrace-go/pkg/model"
	"github.com/kartrace/kartrace-go/pkg/physics/aabb"
	"github.com/kartrace/kartrace-go/pkg/processing/progress"
	"github.com/kartrace/kartrace-go/pkg/profile"
	"github.com/kartrace/kartrace-go/pkg/relay/client"
	"github.com/kartrace/kartrace-go/pkg/session"
	"github.com/kartrace/kartrace-go/pkg/track"
	"github.com/kartrace/kartrace-go/pkg/utils"
)

type options struct {
	maxDuration time.Duration
	tick        time.Duration
	relayURL    string
	username    string
	code        string
}

func NewSimulateCmd() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:   "simulate <file|trackname>",
		Short: "drives a track headless and reports the race time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdutil.SetupLogger()
			text, err := trackcmd.LoadDescriptor(args[0])
			if err != nil {
				return err
			}
			return simulate(cmd.Context(), cmd.OutOrStdout(), text, opts)
		},
	}
	cmd.Flags().DurationVar(&opts.maxDuration, "max-duration", 3*time.Minute,
		"give up after this much race time")
	cmd.Flags().DurationVar(&opts.tick, "tick", 12*time.Millisecond,
		"physics step")
	cmd.Flags().StringVar(&opts.relayURL, "relay-url", "",
		"relay websocket url; render and finish packets are sent in real time when set")
	cmd.Flags().StringVar(&opts.username, "username", "simulator",
		"username used on the relay")
	cmd.Flags().StringVar(&opts.code, "code", "",
		"game code to join on the relay")
	cmd.Flags().StringVar(&config.LogLevel, "log-level", "warn",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.LogFormat, "log-format", "text",
		"controls the log output format")
	return cmd
}

//nolint:funlen // by design
func simulate(ctx context.Context, out io.Writer, text string, opts options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	world := aabb.New()
	t, err := track.Build(world, text)
	if err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}

	cfg := progress.DefaultConfig()
	cfg.Countdown = 0
	in := input.NewState()
	var result time.Duration
	sessOpts := []session.Option{
		session.WithProgressConfig(cfg),
		session.WithFinishHandler(func(elapsed time.Duration) { result = elapsed }),
	}

	realtime := false
	if opts.relayURL != "" {
		if err := waitForRelay(opts.relayURL); err != nil {
			return err
		}
		tr, err := client.Dial(ctx, opts.relayURL)
		if err != nil {
			return fmt.Errorf("connect relay: %w", err)
		}
		defer tr.Close()
		if opts.code != "" {
			tr.Send(model.Packet{Method: model.MethodJoin, Username: opts.username, Code: opts.code})
		}
		sessOpts = append(sessOpts, session.WithMultiplayer(tr, opts.username, opts.code))
		realtime = true
	}

	s := session.New(world, t, in, sessOpts...)
	defer s.Teardown()
	pilot := session.NewAutopilot(s)

	start := time.Now()
	now := start
	s.Begin(now)
	var ticker *time.Ticker
	if realtime {
		ticker = time.NewTicker(opts.tick)
		defer ticker.Stop()
	}
	for s.Machine().State() != progress.StateFinished && now.Sub(start) < opts.maxDuration {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
		now = now.Add(opts.tick)
		pilot.Drive()
		s.Tick(now, opts.tick.Seconds())
		s.Render()
	}

	st := s.Status(now)
	if st.State != progress.StateFinished {
		log.Warn("race not finished", log.Duration("limit", opts.maxDuration))
		fmt.Fprintf(out, "not finished after %s (lap %d/%d)\n", opts.maxDuration, st.Lap, st.Laps)
		return nil
	}
	fmt.Fprintf(out, "finished in %s (%d laps)\n", profile.FormatTime(result), st.Laps)
	return nil
}

// waitForRelay polls the health endpoint of the relay behind wsURL.
func waitForRelay(wsURL string) error {
	addr, proto := utils.ExtractFromWebsocketURL(wsURL)
	if addr == "" {
		return fmt.Errorf("invalid relay url %q", wsURL)
	}
	scheme := "http"
	if proto == "wss" {
		scheme = "https"
	}
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		timeout = 15 * time.Second
	}
	return utils.WaitForHTTPResponse(fmt.Sprintf("%s://%s/health", scheme, addr), timeout)
}
