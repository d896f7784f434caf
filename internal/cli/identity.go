// ABOUTME: Identity subcommands: init, import, whoami
// ABOUTME: Generates or re-imports a seed phrase and shows the active identity

package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/fold-ledger/internal/identity"
)

// NewInitCommand creates a new identity and saves its seed phrase.
func NewInitCommand(opts *RootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a new identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := identity.Load(opts.Config.Identity.Dir); err == nil && !force {
				return fmt.Errorf("an identity already exists in %s (use --force to replace it)", opts.Config.Identity.Dir)
			}

			id, err := identity.Generate()
			if err != nil {
				return err
			}
			if err := identity.Save(id, opts.Config.Identity.Dir); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			warn := color.New(color.FgYellow, color.Bold)

			fmt.Fprintln(out, "Your seed phrase (write this down, it is the ONLY recovery path):")
			fmt.Fprintln(out)
			printPhrase(cmd, id.Phrase())
			fmt.Fprintln(out)
			warn.Fprintln(out, "Losing the phrase loses the identity. There is no reset.")
			fmt.Fprintf(out, "\nFingerprint: %s\n", id.Fingerprint())
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "replace an existing identity")
	return cmd
}

// printPhrase renders the 24 words in numbered rows of four.
func printPhrase(cmd *cobra.Command, phrase string) {
	out := cmd.OutOrStdout()
	words := strings.Fields(phrase)
	for i := 0; i < len(words); i += 4 {
		for j := i; j < i+4 && j < len(words); j++ {
			fmt.Fprintf(out, "%2d. %-12s ", j+1, words[j])
		}
		fmt.Fprintln(out)
	}
}

// NewImportCommand re-derives an identity from an existing seed phrase.
func NewImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Import an identity from a seed phrase (read from stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "Enter your 24-word seed phrase:")

			reader := bufio.NewReader(cmd.InOrStdin())
			phrase, err := reader.ReadString('\n')
			if err != nil && phrase == "" {
				return fmt.Errorf("reading phrase: %w", err)
			}

			id, err := identity.Import(phrase)
			if err != nil {
				return err
			}
			if err := identity.Save(id, opts.Config.Identity.Dir); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported identity %s\n", id.Fingerprint())
			return nil
		},
	}
}

// NewWhoamiCommand prints the active identity's public details.
func NewWhoamiCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the active identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := opts.loadIdentity()
			if err != nil {
				return err
			}

			authorized, err := id.AuthorizedKey()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Fingerprint: %s\n", id.Fingerprint())
			fmt.Fprintf(out, "Public key:  %s\n", id.PublicKeyHex())
			fmt.Fprintf(out, "SSH key:     %s\n", authorized)
			return nil
		},
	}
}
