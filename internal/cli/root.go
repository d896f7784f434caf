// ABOUTME: Root command and shared wiring for the fold-ledger CLI
// ABOUTME: Loads config, sets up slog, and opens the store for subcommands

package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/2389/fold-ledger/internal/config"
	"github.com/2389/fold-ledger/internal/identity"
	"github.com/2389/fold-ledger/internal/store"
)

// RootOptions holds global flags and loaded configuration for all commands.
type RootOptions struct {
	ConfigPath string
	Config     *config.Config
}

// NewRootCommand creates the root command for the fold-ledger CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "fold-ledger",
		Short:         "Sovereign signed message ledger",
		Long:          "fold-ledger keeps a signed, append-only, per-identity message log\nand syncs it with peers without ever discarding history.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := opts.ConfigPath
			if path == "" {
				path = config.DefaultPath()
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			opts.Config = cfg
			setupLogging(cfg.Logging)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to config file")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewPostCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewRecallCommand(opts))
	cmd.AddCommand(NewHeadCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewRemoteCommand(opts))

	return cmd
}

// setupLogging configures the process-wide slog default from config.
func setupLogging(cfg config.LoggingConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

// openStore opens the configured message store.
func (opts *RootOptions) openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(opts.Config.Store.Path)
}

// loadIdentity loads the configured identity, with a friendlier error when
// none exists yet.
func (opts *RootOptions) loadIdentity() (*identity.Identity, error) {
	id, err := identity.Load(opts.Config.Identity.Dir)
	if err == identity.ErrNoIdentity {
		return nil, fmt.Errorf("no identity found; run 'fold-ledger init' first")
	}
	return id, err
}
