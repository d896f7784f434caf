// Package sync reconciles divergent replicas of a namespace without ever
// discarding an entry.
//
// The engine compares entry sets by content hash (Diff), fetches what the
// local store lacks (Pull), and sends what the peer lacks (Push). Sync runs
// pull to completion before push, so a replica never advertises history it
// just learned is stale.
//
// Remote entries integrate through a single apply path: every entry is
// re-verified, parents are admitted before children, and the head advances
// only by fast-forward (the remote line extends local history) or by a
// merge entry whose parents are the old head and the remote tip (the lines
// diverged). Both sides of a divergence stay permanently reachable.
//
// Transports are abstracted behind the Peer interface as a flow of
// (namespace, entry) pairs; StorePeer adapts a second local store, which
// covers filesystem-reachable replicas and the package's tests. Transport
// failures abort the current step cleanly - the atomic store operations
// make cancellation safe at any point, with an incomplete sync as the
// worst outcome.
package sync
