// ABOUTME: Peer transport abstraction and the local store-backed peer
// ABOUTME: A Peer exchanges (namespace, entry) pairs; the wire protocol lives elsewhere

package sync

import (
	"context"
	"fmt"

	"github.com/2389/fold-ledger/internal/store"
)

// Peer is the transport abstraction for a sync counterparty. Implementations
// carry (namespace, entry) pairs over whatever wire they like; the engine
// only depends on these semantics. Any transport error aborts the current
// step cleanly and is surfaced wrapped in ErrTransport.
type Peer interface {
	// Namespaces lists the namespaces the peer holds entries for.
	Namespaces(ctx context.Context) ([]string, error)

	// Hashes lists the peer's entry hashes for a namespace.
	Hashes(ctx context.Context, namespace string) ([]string, error)

	// Fetch retrieves the named entries. Order is unspecified; the engine
	// orders parents before children itself.
	Fetch(ctx context.Context, namespace string, hashes []string) ([]*store.Entry, error)

	// Send delivers entries to the peer. The peer integrates them through
	// its own verify/merge path; a send never force-moves the peer's head.
	Send(ctx context.Context, namespace string, entries []*store.Entry) error
}

// StorePeer adapts a local store into a Peer. It stands in for a remote
// replica reachable through a shared filesystem, and backs the engine's
// tests. Sent entries go through a full Engine apply, so the store-peer
// honors the same never-force, conflict-preserving semantics as a pull.
type StorePeer struct {
	store  store.Store
	engine *Engine
}

// NewStorePeer wraps s as a sync counterparty.
func NewStorePeer(s store.Store) *StorePeer {
	return &StorePeer{
		store:  s,
		engine: NewEngine(s),
	}
}

// Namespaces implements Peer.
func (p *StorePeer) Namespaces(ctx context.Context) ([]string, error) {
	return p.store.Namespaces(ctx)
}

// Hashes implements Peer.
func (p *StorePeer) Hashes(ctx context.Context, namespace string) ([]string, error) {
	return p.store.Hashes(ctx, namespace)
}

// Fetch implements Peer.
func (p *StorePeer) Fetch(ctx context.Context, namespace string, hashes []string) ([]*store.Entry, error) {
	entries := make([]*store.Entry, 0, len(hashes))
	for _, h := range hashes {
		entry, err := p.store.Get(ctx, namespace, h)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", h, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Send implements Peer by integrating entries into the wrapped store.
func (p *StorePeer) Send(ctx context.Context, namespace string, entries []*store.Entry) error {
	return p.engine.apply(ctx, namespace, entries)
}

// Ensure StorePeer implements Peer
var _ Peer = (*StorePeer)(nil)
