package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iudanet/notesync/internal/client/api"
	"github.com/iudanet/notesync/internal/client/iocli"
	"github.com/iudanet/notesync/internal/client/notes"
	"github.com/iudanet/notesync/internal/client/storage/boltdb"
	syncsvc "github.com/iudanet/notesync/internal/client/sync"
	"github.com/iudanet/notesync/internal/config"
	"github.com/iudanet/notesync/internal/models"
	"github.com/iudanet/notesync/internal/telemetry"
)

// annotationOffline помечает команды, которым не нужно локальное хранилище
const annotationOffline = "offline"

// ErrNoUser indicates that no user id is configured
var ErrNoUser = errors.New("user id is not configured, set --user or NOTESYNC_USER_ID")

// app открывает зависимости команд после разбора флагов
type app struct {
	io         iocli.IO
	viper      *viper.Viper
	cli        *Cli
	closers    []func() error
	configFile string
}

// NewRootCommand builds the client command tree
func NewRootCommand(stdio iocli.IO, version string) *cobra.Command {
	a := &app{
		io:    stdio,
		viper: config.NewClientViper(),
	}

	root := &cobra.Command{
		Use:               "notesync",
		Short:             "Offline-first notes with server synchronization",
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.open,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "path to config file")
	flags.String("server", "", "server URL")
	flags.String("db", "", "path to local database")
	flags.String("user", "", "user id")
	flags.String("token", "", "bearer access token")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("telemetry-file", "", "append sync events as JSON lines to this file")

	for key, flag := range map[string]string{
		config.KeyServerURL:     "server",
		config.KeyDBPath:        "db",
		config.KeyUserID:        "user",
		config.KeyAccessToken:   "token",
		config.KeyLogLevel:      "log-level",
		config.KeyTelemetryFile: "telemetry-file",
	} {
		_ = a.viper.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		a.newCommand(),
		a.editCommand(),
		a.showCommand(),
		a.listCommand(),
		a.deleteCommand(),
		a.rollbackCommand(),
		a.historyCommand(),
		a.syncCommand(),
		a.conflictsCommand(),
		a.statusCommand(),
		versionCommand(stdio, version),
	)

	return root
}

func (a *app) open(cmd *cobra.Command, _ []string) error {
	if _, ok := cmd.Annotations[annotationOffline]; ok {
		return nil
	}

	if err := config.ReadFile(a.viper, a.configFile); err != nil {
		return err
	}
	cfg, err := config.LoadClient(a.viper)
	if err != nil {
		return err
	}
	if cfg.UserID == "" {
		return ErrNoUser
	}

	logger := config.NewLogger(os.Stderr, cfg.LogLevel)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := boltdb.New(cmd.Context(), cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open local storage: %w", err)
	}
	a.closers = append(a.closers, store.Close)

	sinks := telemetry.Multi{telemetry.NewLogSink(logger)}
	if cfg.TelemetryFile != "" {
		file := telemetry.NewFileSink(cfg.TelemetryFile, telemetry.FileOptions{MaxSizeMB: 10, MaxBackups: 3}, clockwork.NewRealClock())
		a.closers = append(a.closers, file.Close)
		sinks = append(sinks, file)
	}

	client := api.NewClient(cfg.ServerURL, cfg.AccessToken)
	syncer := syncsvc.NewService(client, syncsvc.WithLogger(logger), syncsvc.WithTelemetry(sinks))
	notesService := notes.NewService(store, syncer, cfg.UserID, notes.WithLogger(logger))

	a.cli = New(a.io, notesService, client, cfg.UserID)
	logger.Debug("Client initialized", "user_id", cfg.UserID, "db_path", cfg.DBPath, "server", cfg.ServerURL)
	return nil
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) newCommand() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "new [text...]",
		Short: "Create a note; text is read from stdin when omitted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runNew(cmd.Context(), id, args)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "note id (generated when empty)")
	return cmd
}

func (a *app) editCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> [text...]",
		Short: "Replace the text of a note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runEdit(cmd.Context(), args[0], args[1:])
		},
	}
}

func (a *app) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runShow(cmd.Context(), args[0])
		},
	}
}

func (a *app) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runList(cmd.Context())
		},
	}
}

func (a *app) deleteCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runDelete(cmd.Context(), args[0], force)
		},
	}
	cmd.Flags().BoolVarP(&force, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (a *app) rollbackCommand() *cobra.Command {
	var entry int
	cmd := &cobra.Command{
		Use:   "rollback <id>",
		Short: "Restore a previous value of a note as a new version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runRollback(cmd.Context(), args[0], entry)
		},
	}
	cmd.Flags().IntVar(&entry, "entry", notes.LatestEntry, "history entry index (default: latest)")
	return cmd
}

func (a *app) historyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show previous values of a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runHistory(cmd.Context(), args[0])
		},
	}
}

func (a *app) syncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push local changes and pull server changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runSync(cmd.Context())
		},
	}
}

func (a *app) conflictsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Inspect and resolve conflict copies",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List conflict copies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runConflictsList(cmd.Context())
		},
	}

	show := &cobra.Command{
		Use:   "show <copy-id>",
		Short: "Compare a conflict copy with the synced note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runConflictShow(cmd.Context(), args[0])
		},
	}

	discard := &cobra.Command{
		Use:   "discard <copy-id>",
		Short: "Drop a conflict copy and keep the synced note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runConflictDiscard(cmd.Context(), args[0])
		},
	}

	var strategy string
	apply := &cobra.Command{
		Use:   "apply <copy-id>",
		Short: "Apply a merge suggestion to the note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runConflictApply(cmd.Context(), args[0], strategy)
		},
	}
	apply.Flags().StringVar(&strategy, "strategy", string(models.StrategyKeepLocal),
		fmt.Sprintf("%s, %s or %s", models.StrategyKeepLocal, models.StrategyKeepServer, models.StrategyAutoMerge))

	cmd.AddCommand(list, show, discard, apply)
	return cmd
}

func (a *app) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server reachability, pending operations and conflicts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runStatus(cmd.Context())
		},
	}
}

func versionCommand(stdio iocli.IO, version string) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationOffline: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			stdio.Printf("notesync %s\n", version)
		},
	}
}
