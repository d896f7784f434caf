// ABOUTME: Remotes manifest listing named sync peers
// ABOUTME: TOML file mapping remote names to store paths

package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
)

// Remote describes one named sync peer. Path points at a peer store
// reachable through the filesystem (a second device's store on a mount,
// a USB drive, a synced folder).
type Remote struct {
	Path string `toml:"path"`
}

// RemotesManifest is the parsed remotes.toml file.
type RemotesManifest struct {
	Remotes map[string]Remote `toml:"remotes"`
}

// LoadRemotes reads the remotes manifest at path. A missing file is an
// empty manifest, not an error.
func LoadRemotes(path string) (*RemotesManifest, error) {
	m := &RemotesManifest{Remotes: map[string]Remote{}}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return m, nil
	}

	if _, err := toml.DecodeFile(path, m); err != nil {
		return nil, fmt.Errorf("parsing remotes manifest: %w", err)
	}

	for name, r := range m.Remotes {
		if r.Path == "" {
			return nil, fmt.Errorf("remote %q has no path", name)
		}
	}
	return m, nil
}

// SaveRemotes writes the manifest back to path.
func SaveRemotes(path string, m *RemotesManifest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating remotes manifest: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(m); err != nil {
		return fmt.Errorf("encoding remotes manifest: %w", err)
	}
	return nil
}

// Names returns the remote names in stable order.
func (m *RemotesManifest) Names() []string {
	names := make([]string, 0, len(m.Remotes))
	for name := range m.Remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
