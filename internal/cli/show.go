// ABOUTME: Show and head subcommands replaying a namespace's history
// ABOUTME: Replays oldest-first with per-entry signature verification status

package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/fold-ledger/internal/message"
	"github.com/2389/fold-ledger/internal/store"
)

// NewShowCommand replays a namespace's log oldest-first.
func NewShowCommand(opts *RootOptions) *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Replay a log's history",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ns := namespace
			if ns == "" {
				id, err := opts.loadIdentity()
				if err != nil {
					return err
				}
				ns = id.Fingerprint()
			}

			entries, err := s.HistorySlice(cmd.Context(), ns)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No entries in namespace %s\n", ns)
				return nil
			}

			// Best-effort: without a local identity, sealed content stays
			// sealed but the replay still works.
			var key *[32]byte
			if id, err := opts.loadIdentity(); err == nil {
				k := id.EncryptionKey()
				key = &k
			}

			out := cmd.OutOrStdout()
			good := color.New(color.FgGreen)
			bad := color.New(color.FgRed, color.Bold)
			dim := color.New(color.Faint)

			for _, entry := range entries {
				if entry.IsMerge() {
					dim.Fprintf(out, "%s  merge of %d lines\n", shortHash(entry.Hash), len(entry.Parents))
					continue
				}

				status := good.Sprint("ok")
				if !message.Verify(&entry.Message) {
					status = bad.Sprint("BAD SIGNATURE")
				}
				fmt.Fprintf(out, "%s  %s  [%s]  %s\n",
					shortHash(entry.Hash), entry.Message.Timestamp, status, renderContent(key, entry.Message.Content))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&namespace, "namespace", "", "namespace fingerprint (defaults to your own)")
	return cmd
}

// renderContent opens sealed content when the key fits; anything else
// passes through as-is.
func renderContent(key *[32]byte, content string) string {
	if !message.IsSealed(content) {
		return content
	}
	if key != nil {
		if plaintext, err := message.Open(key, content); err == nil {
			return "(sealed) " + plaintext
		}
	}
	return "(sealed, no key)"
}

// NewHeadCommand prints the current head of a namespace.
func NewHeadCommand(opts *RootOptions) *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "head",
		Short: "Show the current head entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ns := namespace
			if ns == "" {
				id, err := opts.loadIdentity()
				if err != nil {
					return err
				}
				ns = id.Fingerprint()
			}

			head, err := s.Head(cmd.Context(), ns)
			if err == store.ErrNotFound {
				fmt.Fprintf(cmd.OutOrStdout(), "Namespace %s is empty\n", ns)
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s (seq %d, %s)\n", head.Hash, head.Seq, head.Kind)
			return nil
		},
	}

	cmd.Flags().StringVar(&namespace, "namespace", "", "namespace fingerprint (defaults to your own)")
	return cmd
}
