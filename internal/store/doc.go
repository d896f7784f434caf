// Package store provides the append-only, content-addressed message log,
// backed by SQLite.
//
// # Model
//
// The log is partitioned into namespaces, one per identity fingerprint.
// Namespaces share no ancestry: an entry belongs to exactly one namespace
// and every lookup is namespace-scoped. Within a namespace, entries form a
// DAG of parent references - a straight chain under normal appends, with
// merge entries joining divergent lines after sync.
//
// Every entry is content-addressed: its hash is a pure function of the
// namespace, kind, wrapped message, and parent hashes (ComputeHash).
// Entries are immutable once written; the package has no update, delete,
// or truncate path for them.
//
// # Atomicity
//
// Append runs in a single transaction: insert the entry, then advance the
// head with a guarded UPDATE whose WHERE clause names the head the writer
// read. A concurrent advance makes the guard miss, the transaction rolls
// back, and the append retries against the fresh head. A crash mid-append
// therefore leaves the previous head intact and no partial entry visible.
//
// # Replay
//
// History replays a namespace oldest-first in exact append order via a
// per-namespace sequence number assigned at insert. Replay alone
// reconstructs full state.
//
// # SQLite configuration
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// The pool is pinned to one connection so ":memory:" databases stay
// coherent in tests and writers serialize ahead of SQLite's busy handling.
//
// # Errors
//
//   - ErrNotFound: entry or namespace does not exist
//   - ErrVerificationFailed: message signature rejected; never admitted
//   - ErrBadEntry: hash mismatch or malformed structure
//   - ErrHeadContention: optimistic retry exhausted; retryable
package store
