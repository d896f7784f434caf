// ABOUTME: Store interface and entry types for the append-only message log
// ABOUTME: Defines Entry, EntryKind and the namespace-partitioned Store contract

package store

import (
	"context"
	"errors"
	"time"

	"github.com/2389/fold-ledger/internal/message"
)

// ErrNotFound is returned when a requested entry or namespace does not exist.
var ErrNotFound = errors.New("not found")

// ErrVerificationFailed is returned when a message's signature does not
// match its canonical content. Such messages are never admitted.
var ErrVerificationFailed = errors.New("signature verification failed")

// ErrBadEntry is returned when an entry's recorded hash does not match its
// recomputed hash, or its structure is malformed.
var ErrBadEntry = errors.New("malformed entry")

// ErrHeadContention is returned when an append keeps losing the optimistic
// head check against concurrent writers. Retryable.
var ErrHeadContention = errors.New("head moved during append")

// EntryKind distinguishes signed event entries from store-level merge entries.
type EntryKind string

const (
	// EntryKindEvent wraps exactly one signed message.
	EntryKindEvent EntryKind = "event"

	// EntryKindMerge joins two divergent heads. Merge entries carry no
	// message payload and no signature; they exist so both lines of
	// history stay reachable from the head.
	EntryKindMerge EntryKind = "merge"
)

// Entry is one immutable, content-addressed element of a namespace's log.
// Hash is a pure function of the namespace, kind, wrapped message, and
// parent references; Seq and CreatedAt are store-local replay metadata and
// are not part of the hash preimage.
type Entry struct {
	Hash      string
	Namespace string
	Kind      EntryKind
	Parents   []string
	Message   message.Message // zero-valued for merge entries
	Seq       int64
	CreatedAt time.Time
}

// IsMerge reports whether the entry is a store-level merge entry.
func (e *Entry) IsMerge() bool {
	return e.Kind == EntryKindMerge
}

// Store is the append-only, branch-isolated log. One namespace per
// identity; histories never cross namespaces. Entries are immutable once
// written: there is no update, delete, or truncate.
type Store interface {
	// Append verifies msg, wraps it in an entry whose parent is the
	// current namespace head, and atomically advances the head.
	Append(ctx context.Context, namespace string, msg *message.Message) (*Entry, error)

	// Get returns the entry with the given hash within the namespace.
	Get(ctx context.Context, namespace, hash string) (*Entry, error)

	// Has reports whether the namespace contains the given hash.
	Has(ctx context.Context, namespace, hash string) (bool, error)

	// Head returns the most recent entry, or ErrNotFound for an empty or
	// unknown namespace.
	Head(ctx context.Context, namespace string) (*Entry, error)

	// History replays the namespace oldest-first in exact append order.
	History(ctx context.Context, namespace string) (*Iterator, error)

	// HistorySlice is History collected into memory.
	HistorySlice(ctx context.Context, namespace string) ([]*Entry, error)

	// Hashes lists every entry hash in the namespace, append order.
	Hashes(ctx context.Context, namespace string) ([]string, error)

	// Namespaces lists every namespace with at least one entry.
	Namespaces(ctx context.Context) ([]string, error)

	// Ingest admits an externally produced entry (from a peer) after
	// verifying its hash and, for event entries, its signature. The
	// namespace head does not move; the sync engine advances it through
	// FastForward or Merge once the entry's line is complete.
	Ingest(ctx context.Context, entry *Entry) error

	// IsAncestor reports whether ancestor is reachable from descendant by
	// walking parent references within the namespace.
	IsAncestor(ctx context.Context, namespace, ancestor, descendant string) (bool, error)

	// FastForward moves the namespace head to an existing entry that
	// descends from the current head (or to any entry when the namespace
	// has no head yet).
	FastForward(ctx context.Context, namespace, hash string) error

	// Merge creates a merge entry over the given parent hashes and
	// atomically advances the head to it. The current head must be one of
	// the parents.
	Merge(ctx context.Context, namespace string, parents []string) (*Entry, error)

	// Close releases any resources held by the store.
	Close() error
}
