package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iudanet/notesync/internal/config"
	"github.com/iudanet/notesync/internal/server"
	"github.com/iudanet/notesync/internal/server/jwt"
	"github.com/iudanet/notesync/internal/server/storage/sqlite"
	"github.com/iudanet/notesync/internal/telemetry"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := config.NewServerViper()
	var configFile string

	root := &cobra.Command{
		Use:           "notesync-server",
		Short:         "Authoritative store for notesync clients",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.ReadFile(v, configFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "path to config file")
	flags.String("addr", "", "listen address")
	flags.String("db", "", "path to sqlite database")
	flags.String("jwt-secret", "", "HMAC secret for access tokens")
	flags.Duration("token-ttl", 0, "lifetime of issued access tokens")
	flags.Int("rate-limit", 0, "requests per minute allowed for each user, 0 disables the limit")
	flags.String("telemetry-file", "", "append sync events as JSON lines to this file")
	flags.String("log-level", "", "log level: debug, info, warn, error")

	for key, flag := range map[string]string{
		config.KeyAddr:          "addr",
		config.KeyDBPath:        "db",
		config.KeyJWTSecret:     "jwt-secret",
		config.KeyTokenTTL:      "token-ttl",
		config.KeyRateLimit:     "rate-limit",
		config.KeyTelemetryFile: "telemetry-file",
		config.KeyLogLevel:      "log-level",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(serveCommand(v), tokenCommand(v), versionCommand())
	return root
}

func serveCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServer(v)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Server) error {
	logger := config.NewLogger(os.Stderr, cfg.LogLevel)
	clock := clockwork.NewRealClock()

	store, err := sqlite.New(ctx, cfg.DBPath, sqlite.WithClock(clock))
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics, err := telemetry.NewMetricsSink(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	sinks := telemetry.Multi{telemetry.NewLogSink(logger), metrics}
	if cfg.TelemetryFile != "" {
		file := telemetry.NewFileSink(cfg.TelemetryFile, telemetry.FileOptions{MaxSizeMB: 50, MaxBackups: 5, MaxAgeDays: 30, Compress: true}, clock)
		defer func() { _ = file.Close() }()
		sinks = append(sinks, file)
	}

	srv := server.New(server.Config{
		Addr:      cfg.Addr,
		Store:     server.Observe(store, sinks),
		Pinger:    store,
		Tokens:    jwt.NewService(cfg.JWTSecret, cfg.TokenTTL, jwt.WithClock(clock)),
		Gatherer:  reg,
		Logger:    logger,
		Clock:     clock,
		Version:   Version,
		RateLimit: cfg.RateLimit,
	})

	logger.Info("Starting notesync server", "addr", cfg.Addr, "db_path", cfg.DBPath, "version", Version)
	return srv.Run(ctx)
}

func tokenCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue an access token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServer(v)
			if err != nil {
				return err
			}

			token, ttl, err := jwt.NewService(cfg.JWTSecret, cfg.TokenTTL).GenerateAccessToken(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires in %s\n", time.Duration(ttl)*time.Second)
			return nil
		},
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "notesync server\n")
			fmt.Fprintf(out, "Version:    %s\n", Version)
			fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
		},
	}
}
