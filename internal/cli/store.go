package cli

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veryx/veryx/internal/command"
	"github.com/veryx/veryx/internal/config"
	"github.com/veryx/veryx/internal/eventlog"
	"github.com/veryx/veryx/internal/filestore"
	"github.com/veryx/veryx/internal/logging"
	"github.com/veryx/veryx/internal/pgstore"
	"github.com/veryx/veryx/internal/store"
)

// StoreOptions selects the event log backend. Unset flags fall back to the
// environment.
type StoreOptions struct {
	Backend     string
	Path        string
	DatabaseURL string
}

func addStoreFlags(cmd *cobra.Command, opts *StoreOptions) {
	cmd.Flags().StringVar(&opts.Backend, "store", "", "event log backend (sqlite|postgres|file), default $VERYX_STORE")
	cmd.Flags().StringVar(&opts.Path, "db", "", "SQLite database or JSONL log path, default from the environment")
	cmd.Flags().StringVar(&opts.DatabaseURL, "database-url", "", "PostgreSQL URL, default $VERYX_DATABASE_URL")
}

// loadConfig reads the environment and applies the flag overrides.
func loadConfig(opts *StoreOptions) (config.Config, error) {
	return config.Load(func(cfg *config.Config) {
		if opts.Backend != "" {
			cfg.Store = opts.Backend
		}
		if opts.Path != "" {
			switch strings.ToLower(strings.TrimSpace(cfg.Store)) {
			case config.StoreFile:
				cfg.FilePath = opts.Path
			default:
				cfg.SQLitePath = opts.Path
			}
		}
		if opts.DatabaseURL != "" {
			cfg.DatabaseURL = opts.DatabaseURL
		}
	})
}

// backend is a concrete event log.
type backend interface {
	eventlog.Log
	Ping(ctx context.Context) error
}

// session is an open event log with the command service on top.
type session struct {
	cfg     config.Config
	logger  *slog.Logger
	backend backend
	svc     *command.Service
}

func (s *session) Close() error {
	return s.svc.Log().Close()
}

// openSession loads configuration, opens the configured backend and wraps
// it with retries and instrumentation.
func openSession(ctx context.Context, rootOpts *RootOptions, opts *StoreOptions, cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	level := cfg.LogLevel
	if rootOpts.Verbose {
		level = "debug"
	}
	logger := logging.NewLogger(cmd.ErrOrStderr(), cfg.Env, level)

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open event log", err)
	}

	retry := eventlog.DefaultRetryOptions()
	retry.MaxTries = cfg.AppendMaxTries
	retry.Logger = logger
	log := eventlog.Instrument(eventlog.WithRetry(b, retry), logger)

	return &session{
		cfg:     cfg,
		logger:  logger,
		backend: b,
		svc:     command.New(log, command.WithLogger(logger)),
	}, nil
}

func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (backend, error) {
	switch cfg.Store {
	case config.StorePostgres:
		return pgstore.Open(ctx, cfg.DatabaseURL, pgstore.WithLogger(logger))
	case config.StoreFile:
		policy, err := cfg.Policy()
		if err != nil {
			return nil, err
		}
		return filestore.Open(cfg.FilePath,
			filestore.WithCorruptPolicy(policy),
			filestore.WithLogger(logger),
		)
	default:
		return store.Open(cfg.SQLitePath)
	}
}

// withSession opens a session for the duration of fn.
func withSession(rootOpts *RootOptions, opts *StoreOptions, cmd *cobra.Command, fn func(context.Context, *session) error) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx, rootOpts, opts, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()
	return fn(ctx, sess)
}

// storeError maps a read failure to the command error exit code.
func storeError(f *OutputFormatter, err error) error {
	code := "E_STORE"
	switch {
	case eventlog.IsCorruptLog(err):
		code = "E_CORRUPT_LOG"
	case eventlog.IsStorageUnavailable(err):
		code = "E_STORE_UNAVAILABLE"
	}
	if f.JSON() {
		if encErr := f.Error(code, err.Error(), nil); encErr != nil {
			return encErr
		}
	}
	return WrapExitError(ExitCommandError, "failed to read event log", err)
}
