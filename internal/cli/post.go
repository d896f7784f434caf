// ABOUTME: Post subcommand appending a signed message to the local log
// ABOUTME: Optional --tag key=value pairs ride in the unsigned envelope

package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/2389/fold-ledger/internal/message"
)

// NewPostCommand signs and appends one message to the author's namespace.
func NewPostCommand(opts *RootOptions) *cobra.Command {
	var (
		tags []string
		seal bool
	)

	cmd := &cobra.Command{
		Use:   "post <content>",
		Short: "Sign and append a message to your log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := opts.loadIdentity()
			if err != nil {
				return err
			}

			s, err := opts.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			content := args[0]
			if seal {
				// Seal before signing: the signature covers the sealed
				// form, so whoever hosts the log sees only ciphertext.
				key := id.EncryptionKey()
				content, err = message.Seal(&key, content, id.PublicKey())
				if err != nil {
					return err
				}
			}

			msg := message.Sign(id, content, time.Now())
			if len(tags) > 0 {
				msg.Extensions = map[string]string{"ext_version": "1"}
				for _, tag := range tags {
					key, value, found := strings.Cut(tag, "=")
					if !found {
						return fmt.Errorf("tag %q is not key=value", tag)
					}
					msg.Extensions[key] = value
				}
			}

			entry, err := s.Append(cmd.Context(), id.Fingerprint(), msg)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Appended %s (seq %d)\n", shortHash(entry.Hash), entry.Seq)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&tags, "tag", nil, "envelope metadata as key=value (repeatable)")
	cmd.Flags().BoolVar(&seal, "seal", false, "encrypt the content before signing")
	return cmd
}

// shortHash abbreviates a content hash for display.
func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
