// Package cli implements the fold-ledger command surface.
//
// Subcommands map onto the core operations: init/import/whoami for
// identity, post for signed appends, show/head for history replay, and
// sync/remote for reconciling with peer stores named in the remotes
// manifest. Commands are constructed per invocation so tests can wire
// their own config, stdin, and output buffers.
package cli
