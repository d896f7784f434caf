// Package config loads fold-ledger configuration.
//
// The main config is YAML with ${VAR} environment expansion, covering the
// store path, identity directory, logging, and the location of the remotes
// manifest. The remotes manifest is a small TOML file naming sync peers.
// A missing config file means defaults (XDG paths), not an error.
package config
