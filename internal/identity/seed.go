// ABOUTME: Seed phrase persistence for local identities
// ABOUTME: Stores the mnemonic in a 0600 .seed file outside any synced data

package identity

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoIdentity is returned when no seed file exists in the config directory.
var ErrNoIdentity = errors.New("no identity found")

// seedFileName is the on-disk name of the mnemonic file. Lives in the config
// directory, never inside the message store itself.
const seedFileName = ".seed"

// Save writes the identity's seed phrase to dir/.seed with owner-only
// permissions. The parent directory is created if needed.
func Save(id *Identity, dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating identity directory: %w", err)
	}

	path := filepath.Join(dir, seedFileName)
	if err := os.WriteFile(path, []byte(id.Phrase()+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing seed file: %w", err)
	}

	slog.Default().With("component", "identity").Info("saved identity", "path", path, "fingerprint", id.Fingerprint())
	return nil
}

// Load reads dir/.seed and re-derives the identity.
// Returns ErrNoIdentity if the file does not exist.
func Load(dir string) (*Identity, error) {
	path := filepath.Join(dir, seedFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoIdentity
	}
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	id, err := Import(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return id, nil
}
