// ABOUTME: Sync engine reconciling divergent replicas of a namespace
// ABOUTME: Pull before push, conflict-preserving merges, no entry ever discarded

package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/fold-ledger/internal/store"
)

// ErrDivergentHistory is returned when remote history cannot be joined to
// local history because intermediate entries are missing. Nothing is
// committed in that case.
var ErrDivergentHistory = errors.New("divergent history cannot be merged")

// ErrTransport wraps peer failures. The local store is left in its last
// consistent state; the sync can simply be retried.
var ErrTransport = errors.New("transport failure")

// Engine reconciles a local store with remote peers. All integration of
// remote entries funnels through one apply path that verifies every entry,
// orders parents before children, and advances the head only by
// fast-forward or conflict-preserving merge. No entry is ever discarded to
// resolve a conflict.
type Engine struct {
	store  store.Store
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates a sync engine over the given local store.
func NewEngine(s store.Store) *Engine {
	return &Engine{
		store:  s,
		logger: slog.Default().With("component", "sync"),
		locks:  make(map[string]*sync.Mutex),
	}
}

// nsLock returns the mutex serializing integration for one namespace.
// Cross-namespace syncs proceed in parallel.
func (e *Engine) nsLock(namespace string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[namespace]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[namespace] = lock
	}
	return lock
}

// Diff compares entry sets by content hash and returns the hashes missing
// from the local store and those missing from the peer.
func (e *Engine) Diff(ctx context.Context, namespace string, peer Peer) (missingLocal, missingRemote []string, err error) {
	localHashes, err := e.store.Hashes(ctx, namespace)
	if err != nil {
		return nil, nil, err
	}
	remoteHashes, err := peer.Hashes(ctx, namespace)
	if err != nil {
		return nil, nil, fmt.Errorf("listing remote hashes: %w (%w)", err, ErrTransport)
	}

	local := make(map[string]bool, len(localHashes))
	for _, h := range localHashes {
		local[h] = true
	}
	remote := make(map[string]bool, len(remoteHashes))
	for _, h := range remoteHashes {
		remote[h] = true
	}

	for _, h := range remoteHashes {
		if !local[h] {
			missingLocal = append(missingLocal, h)
		}
	}
	for _, h := range localHashes {
		if !remote[h] {
			missingRemote = append(missingRemote, h)
		}
	}
	return missingLocal, missingRemote, nil
}

// Pull fetches the entries missing locally and integrates them. A remote
// line that linearly extends local history fast-forwards the head; a
// diverged line is joined by a merge entry keeping both sides reachable.
// Invalid entries are rejected and logged, the rest of the batch proceeds.
func (e *Engine) Pull(ctx context.Context, namespace string, peer Peer) error {
	session := sessionID()
	logger := e.logger.With("session", session, "namespace", namespace)

	missingLocal, _, err := e.Diff(ctx, namespace, peer)
	if err != nil {
		return err
	}
	if len(missingLocal) == 0 {
		logger.Debug("pull: nothing missing")
		return nil
	}

	entries, err := peer.Fetch(ctx, namespace, missingLocal)
	if err != nil {
		return fmt.Errorf("fetching %d entries: %w (%w)", len(missingLocal), err, ErrTransport)
	}

	logger.Info("pulling entries", "count", len(entries))
	return e.apply(ctx, namespace, entries)
}

// Push sends the entries missing remotely. The peer integrates them through
// its own verify/merge path; the remote head is never force-moved.
func (e *Engine) Push(ctx context.Context, namespace string, peer Peer) error {
	session := sessionID()
	logger := e.logger.With("session", session, "namespace", namespace)

	_, missingRemote, err := e.Diff(ctx, namespace, peer)
	if err != nil {
		return err
	}
	if len(missingRemote) == 0 {
		logger.Debug("push: nothing missing remotely")
		return nil
	}

	entries := make([]*store.Entry, 0, len(missingRemote))
	for _, h := range missingRemote {
		entry, err := e.store.Get(ctx, namespace, h)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	logger.Info("pushing entries", "count", len(entries))
	if err := peer.Send(ctx, namespace, entries); err != nil {
		return fmt.Errorf("sending %d entries: %w (%w)", len(entries), err, ErrTransport)
	}
	return nil
}

// Sync reconciles one namespace with a peer: pull completes fully before
// push begins, so this side never advertises a view of history already
// stale against what it just learned.
func (e *Engine) Sync(ctx context.Context, namespace string, peer Peer) error {
	if err := e.Pull(ctx, namespace, peer); err != nil {
		return err
	}
	return e.Push(ctx, namespace, peer)
}

// SyncAll reconciles every namespace known on either side.
func (e *Engine) SyncAll(ctx context.Context, peer Peer) error {
	local, err := e.store.Namespaces(ctx)
	if err != nil {
		return err
	}
	remote, err := peer.Namespaces(ctx)
	if err != nil {
		return fmt.Errorf("listing remote namespaces: %w (%w)", err, ErrTransport)
	}

	seen := make(map[string]bool)
	for _, ns := range append(local, remote...) {
		if seen[ns] {
			continue
		}
		seen[ns] = true
		if err := e.Sync(ctx, ns, peer); err != nil {
			return fmt.Errorf("syncing namespace %s: %w", ns, err)
		}
	}
	return nil
}

// apply integrates externally produced entries into the local store:
// verify and ingest parents-before-children, then advance the head by
// fast-forward where the new line extends it, or by a merge entry where it
// diverged. Serialized per namespace.
func (e *Engine) apply(ctx context.Context, namespace string, entries []*store.Entry) error {
	lock := e.nsLock(namespace)
	lock.Lock()
	defer lock.Unlock()

	ingested := make(map[string]bool)
	rejected := 0
	pending := make(map[string]*store.Entry, len(entries))
	for _, entry := range entries {
		pending[entry.Hash] = entry
	}

	// Parents before children: repeatedly admit entries whose parents are
	// all resolvable, until a pass makes no progress.
	for len(pending) > 0 {
		progressed := false

		for hash, entry := range pending {
			if err := ctx.Err(); err != nil {
				return err
			}

			ready, err := e.parentsPresent(ctx, namespace, entry, ingested)
			if err != nil {
				return err
			}
			if !ready {
				continue
			}

			delete(pending, hash)
			progressed = true

			switch err := e.store.Ingest(ctx, entry); {
			case err == nil:
				ingested[hash] = true
			case errors.Is(err, store.ErrVerificationFailed) || errors.Is(err, store.ErrBadEntry):
				rejected++
				e.logger.Warn("rejected remote entry", "namespace", namespace, "hash", hash, "reason", err)
			default:
				return err
			}
		}

		if !progressed {
			break
		}
	}

	if err := e.advance(ctx, namespace, ingested); err != nil {
		return err
	}

	if len(pending) > 0 {
		// Entries whose ancestry never resolved: missing intermediates on
		// the wire. Whatever did integrate stays; the rest needs a peer
		// that can supply the gap.
		return fmt.Errorf("%d entries with unresolved ancestry: %w", len(pending), ErrDivergentHistory)
	}
	if rejected > 0 {
		e.logger.Warn("apply finished with rejections", "namespace", namespace, "rejected", rejected)
	}
	return nil
}

// parentsPresent reports whether all of entry's parents are resolvable:
// already in the local store or ingested earlier in this apply.
func (e *Engine) parentsPresent(ctx context.Context, namespace string, entry *store.Entry, ingested map[string]bool) (bool, error) {
	for _, p := range entry.Parents {
		if ingested[p] {
			continue
		}
		ok, err := e.store.Has(ctx, namespace, p)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// advance moves the namespace head over the tips of the newly ingested
// set. A tip extending the current head fast-forwards; a diverged tip is
// joined with a merge entry whose parents are the old head and the tip.
func (e *Engine) advance(ctx context.Context, namespace string, ingested map[string]bool) error {
	if len(ingested) == 0 {
		return nil
	}

	// Tips: ingested entries no other ingested entry claims as parent.
	isParent := make(map[string]bool)
	for hash := range ingested {
		entry, err := e.store.Get(ctx, namespace, hash)
		if err != nil {
			return err
		}
		for _, p := range entry.Parents {
			isParent[p] = true
		}
	}

	for hash := range ingested {
		if isParent[hash] {
			continue
		}
		if err := e.integrateTip(ctx, namespace, hash); err != nil {
			return err
		}
	}
	return nil
}

// integrateTip advances the head to include tip, by fast-forward when tip
// descends from the head, by nothing when the head already covers tip, and
// by a conflict-preserving merge otherwise.
func (e *Engine) integrateTip(ctx context.Context, namespace, tip string) error {
	head, err := e.store.Head(ctx, namespace)
	if errors.Is(err, store.ErrNotFound) {
		return e.store.FastForward(ctx, namespace, tip)
	}
	if err != nil {
		return err
	}
	if head.Hash == tip {
		return nil
	}

	headCovered, err := e.store.IsAncestor(ctx, namespace, head.Hash, tip)
	if err != nil {
		return err
	}
	if headCovered {
		e.logger.Debug("fast-forwarding", "namespace", namespace, "to", tip)
		return e.store.FastForward(ctx, namespace, tip)
	}

	tipCovered, err := e.store.IsAncestor(ctx, namespace, tip, head.Hash)
	if err != nil {
		return err
	}
	if tipCovered {
		return nil // local history already contains the tip
	}

	e.logger.Info("histories diverged, merging", "namespace", namespace, "head", head.Hash, "tip", tip)
	if _, err := e.store.Merge(ctx, namespace, []string{head.Hash, tip}); err != nil {
		return fmt.Errorf("constructing merge entry: %w", err)
	}
	return nil
}

// sessionID returns a short correlation id for one sync run's log lines.
func sessionID() string {
	return uuid.NewString()[:8]
}
