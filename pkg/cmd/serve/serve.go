package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // by design
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	natsgo "github.com/nats-io/nats.go"
	"github.com/pgx-contrib/pgxtrace"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/kartrace/kartrace-go/log"
	"github.com/kartrace/kartrace-go/pkg/cmd/cmdutil"
	"github.com/kartrace/kartrace-go/pkg/config"
	"github.com/kartrace/kartrace-go/pkg/db/postgres"
	"github.com/kartrace/kartrace-go/pkg/profile"
	"github.com/kartrace/kartrace-go/pkg/relay"
	natsproxy "github.com/kartrace/kartrace-go/pkg/relay/proxy/nats"
)

//nolint:funlen // by design
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "starts the multiplayer relay server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&config.Addr,
		"addr",
		"a",
		"localhost:8080",
		"relay server listen address")
	cmd.Flags().StringVar(&config.NatsURL,
		"nats-url",
		"",
		"nats server url; rooms are shared between relay instances when set")
	cmd.Flags().IntVar(&config.RoomCapacity,
		"room-capacity",
		8,
		"max number of players per room")
	cmd.Flags().StringVar(&config.RequiredClientVersion,
		"required-client-version",
		"",
		"reject clients older than this version")
	cmd.Flags().StringSliceVar(&config.AllowedOrigins,
		"allowed-origins",
		nil,
		"allowed origins for websocket and http requests (default: all)")
	cmd.Flags().StringVar(&config.ProfileCacheTTL,
		"profile-cache-ttl",
		"5m",
		"how long loaded user profiles are cached")
	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.SQLLogLevel,
		"sql-log-level",
		"debug",
		"controls the log level for sql methods")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"json",
		"controls the log output format")
	cmd.Flags().StringVar(&config.LogConfig,
		"log-config",
		"",
		"path to a log filter config file")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	return cmd
}

//nolint:funlen,cyclop // by design
func startServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := cmdutil.SetupLogger()
	log.Debug("Config:",
		log.String("addr", config.Addr),
		log.String("nats", config.NatsURL),
		log.Int("roomCapacity", config.RoomCapacity),
	)

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // by design
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	if err := cmdutil.WaitForRequiredServices(); err != nil {
		log.Error("required services not ready", log.ErrorField(err))
		return err
	}

	var telemetry *config.Telemetry
	pgTracer := pgxtrace.CompositeQueryTracer{
		postgres.NewQueryLogTracer(logger.Named("sql"),
			cmdutil.ParseLogLevel(config.SQLLogLevel, log.DebugLevel)),
	}
	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		var err error
		if telemetry, err = config.SetupTelemetry(ctx); err == nil {
			pgTracer = append(pgTracer, postgres.NewOtlpTracer())
		} else {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	opts := []relay.Option{
		relay.WithLogger(logger.Named("relay")),
		relay.WithRoomCapacity(config.RoomCapacity),
		relay.WithRequiredClientVersion(config.RequiredClientVersion),
		relay.WithAllowedOrigins(config.AllowedOrigins...),
	}

	var pool *pgxpool.Pool
	if config.DB != "" {
		var err error
		pool, err = postgres.InitWithURL(ctx, config.DB, postgres.WithTracer(pgTracer))
		if err != nil {
			log.Error("could not connect to database", log.ErrorField(err))
			return err
		}
		defer pool.Close()
		ttl, err := time.ParseDuration(config.ProfileCacheTTL)
		if err != nil {
			ttl = 5 * time.Minute
		}
		opts = append(opts, relay.WithProfiles(profile.NewService(
			profile.NewPostgresStore(pool),
			profile.WithCacheTTL(ttl),
			profile.WithLogger(logger.Named("profile")))))
	} else {
		log.Info("No database configured, user profiles are disabled")
	}

	if config.NatsURL != "" {
		nc, err := natsgo.Connect(config.NatsURL, natsgo.Name("kartrace-relay"))
		if err != nil {
			log.Error("could not connect to nats", log.ErrorField(err))
			return err
		}
		defer nc.Close()
		opts = append(opts, relay.WithProxy(
			natsproxy.NewNatsProxy(nc, natsproxy.WithLogger(logger.Named("nats")))))
	}

	srv := relay.NewServer(opts...)
	//nolint:gosec // by design
	httpServer := &http.Server{
		Addr:    config.Addr,
		Handler: srv.Handler(),
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting relay server", log.String("addr", config.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	setupGoRoutinesDump()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	var runErr error
	select {
	case v := <-sigChan:
		log.Debug("Got signal ", log.Any("signal", v))
	case err := <-errCh:
		log.Error("server could not be started", log.ErrorField(err))
		runErr = err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	srv.Close()
	if telemetry != nil {
		telemetry.Shutdown()
	}
	log.Info("Server terminated")
	return runErr
}

func setupGoRoutinesDump() {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGQUIT)
		buf := make([]byte, 1<<20)
		for {
			<-sigs
			stacklen := runtime.Stack(buf, true)
			fmt.Printf("=== received SIGQUIT ===\n*** goroutine dump...\n%s\n*** end\n",
				buf[:stacklen])
		}
	}()
}
