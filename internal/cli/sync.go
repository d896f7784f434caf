// ABOUTME: Sync and remote subcommands reconciling the log with named peers
// ABOUTME: Pull-then-push against store files listed in the remotes manifest

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2389/fold-ledger/internal/config"
	"github.com/2389/fold-ledger/internal/store"
	"github.com/2389/fold-ledger/internal/sync"
)

// NewSyncCommand reconciles every namespace with one or all remotes.
func NewSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [remote]",
		Short: "Pull from and push to remotes (pull always completes first)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := config.LoadRemotes(opts.Config.Remotes.Manifest)
			if err != nil {
				return err
			}

			names := manifest.Names()
			if len(args) == 1 {
				if _, ok := manifest.Remotes[args[0]]; !ok {
					return fmt.Errorf("unknown remote %q (add it with 'fold-ledger remote add')", args[0])
				}
				names = args[:1]
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No remotes configured. Add one with 'fold-ledger remote add <name> <path>'.")
				return nil
			}

			s, err := opts.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			engine := sync.NewEngine(s)
			for _, name := range names {
				remote := manifest.Remotes[name]
				if err := syncWithRemote(cmd, engine, name, remote.Path); err != nil {
					return fmt.Errorf("syncing with %s: %w", name, err)
				}
			}
			return nil
		},
	}
}

// syncWithRemote opens the remote store file and runs a full sync.
func syncWithRemote(cmd *cobra.Command, engine *sync.Engine, name, path string) error {
	remoteStore, err := store.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer remoteStore.Close()

	if err := engine.SyncAll(cmd.Context(), sync.NewStorePeer(remoteStore)); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Synced with %s\n", name)
	return nil
}

// NewRemoteCommand manages the remotes manifest.
func NewRemoteCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Manage sync remotes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name> <path>",
		Short: "Add a named remote store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := config.LoadRemotes(opts.Config.Remotes.Manifest)
			if err != nil {
				return err
			}
			manifest.Remotes[args[0]] = config.Remote{Path: args[1]}
			if err := config.SaveRemotes(opts.Config.Remotes.Manifest, manifest); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added remote %s -> %s\n", args[0], args[1])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured remotes",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := config.LoadRemotes(opts.Config.Remotes.Manifest)
			if err != nil {
				return err
			}
			if len(manifest.Remotes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No remotes configured.")
				return nil
			}
			for _, name := range manifest.Names() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, manifest.Remotes[name].Path)
			}
			return nil
		},
	})

	return cmd
}
