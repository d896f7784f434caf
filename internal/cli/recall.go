// ABOUTME: Recall subcommand replaying a namespace filtered by tags and time
// ABOUTME: Filters over the unsigned envelope so recall never touches signatures

package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/fold-ledger/internal/store"
)

// NewRecallCommand replays a namespace's log filtered by envelope tags
// and recency.
func NewRecallCommand(opts *RootOptions) *cobra.Command {
	var (
		namespace string
		tags      []string
		within    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "recall",
		Short: "Replay messages matching tag and time filters",
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

			filter := &store.Filter{}
			for _, tag := range tags {
				if filter.Tags == nil {
					filter.Tags = make(map[string]string)
				}
				key, value, _ := strings.Cut(tag, "=")
				filter.Tags[key] = value
			}
			if within > 0 {
				filter.After = time.Now().UTC().Add(-within)
			}

			entries, err := s.HistorySlice(cmd.Context(), ns)
			if err != nil {
				return err
			}
			matched := store.FilterEntries(entries, filter)
			if len(matched) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No matching entries in namespace %s\n", ns)
				return nil
			}

			out := cmd.OutOrStdout()
			dim := color.New(color.Faint)
			for _, entry := range matched {
				fmt.Fprintf(out, "%s  %s  %s\n",
					shortHash(entry.Hash), entry.Message.Timestamp, entry.Message.Content)
				if len(entry.Message.Extensions) > 0 {
					dim.Fprintf(out, "              %s\n", formatTags(entry.Message.Extensions))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&namespace, "namespace", "", "namespace fingerprint (defaults to your own)")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "require an envelope tag, key or key=value (repeatable)")
	cmd.Flags().DurationVar(&within, "within", 0, "only messages from the last duration, e.g. 24h")
	return cmd
}

// formatTags renders an extensions map as sorted key=value pairs.
func formatTags(ext map[string]string) string {
	keys := make([]string, 0, len(ext))
	for k := range ext {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+ext[k])
	}
	return strings.Join(pairs, " ")
}
