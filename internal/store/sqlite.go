// ABOUTME: SQLite implementation of the append-only Store using modernc.org/sqlite
// ABOUTME: Single-transaction appends with an optimistic head check and retry

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/2389/fold-ledger/internal/message"
)

// maxAppendRetries bounds the optimistic-concurrency retry loop. Each retry
// re-reads the head, so losing this many races in a row means pathological
// contention rather than normal concurrent use.
const maxAppendRetries = 8

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed. Use ":memory:" for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single pooled connection keeps in-memory databases coherent and
	// serializes writers ahead of SQLite's own busy handling.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist.
// There are deliberately no UPDATE or DELETE paths for entries anywhere in
// this package: the log is append-only at the schema's level of use.
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS entries (
			hash       TEXT PRIMARY KEY,
			namespace  TEXT NOT NULL,
			kind       TEXT NOT NULL,
			parents    TEXT NOT NULL,
			content    TEXT NOT NULL,
			author     TEXT NOT NULL,
			timestamp  TEXT NOT NULL,
			signature  TEXT NOT NULL,
			extensions TEXT,
			seq        INTEGER NOT NULL,
			created_at TEXT NOT NULL,

			CHECK (kind IN ('event', 'merge'))
		);

		CREATE INDEX IF NOT EXISTS idx_entries_namespace_seq
			ON entries(namespace, seq);

		CREATE TABLE IF NOT EXISTS heads (
			namespace TEXT PRIMARY KEY,
			hash      TEXT NOT NULL REFERENCES entries(hash),
			seq       INTEGER NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// Append verifies msg and writes it as a new entry whose parent is the
// current head of the namespace, advancing the head atomically. A head
// that moves between the read and the guarded update triggers a retry
// against the new head; the caller never observes a half-advanced state.
func (s *SQLiteStore) Append(ctx context.Context, namespace string, msg *message.Message) (*Entry, error) {
	if !message.Verify(msg) {
		return nil, ErrVerificationFailed
	}
	fp, err := AuthorFingerprint(msg.Author)
	if err != nil {
		return nil, err
	}
	if fp != namespace {
		return nil, fmt.Errorf("author owns namespace %s, not %s: %w", fp, namespace, ErrBadEntry)
	}

	for attempt := 0; attempt < maxAppendRetries; attempt++ {
		entry, err := s.tryAppend(ctx, namespace, msg)
		if errors.Is(err, ErrHeadContention) {
			s.logger.Debug("append lost head race, retrying", "namespace", namespace, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, err
		}
		s.logger.Debug("appended entry", "namespace", namespace, "hash", entry.Hash, "seq", entry.Seq)
		return entry, nil
	}

	return nil, fmt.Errorf("appending to %s: %w", namespace, ErrHeadContention)
}

func (s *SQLiteStore) tryAppend(ctx context.Context, namespace string, msg *message.Message) (*Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning append transaction: %w", err)
	}
	defer tx.Rollback()

	headHash, _, err := s.headInTx(ctx, tx, namespace)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var parents []string
	if headHash != "" {
		parents = []string{headHash}
	}

	entry := &Entry{
		Hash:      ComputeHash(namespace, EntryKindEvent, msg, parents),
		Namespace: namespace,
		Kind:      EntryKindEvent,
		Parents:   parents,
		Message:   *msg,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.insertEntry(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := s.advanceHead(ctx, tx, namespace, headHash, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing append: %w", err)
	}
	return entry, nil
}

// headInTx reads the current head hash and seq inside a transaction.
func (s *SQLiteStore) headInTx(ctx context.Context, tx *sql.Tx, namespace string) (string, int64, error) {
	var hash string
	var seq int64
	err := tx.QueryRowContext(ctx, `SELECT hash, seq FROM heads WHERE namespace = ?`, namespace).Scan(&hash, &seq)
	if err == sql.ErrNoRows {
		return "", 0, ErrNotFound
	}
	if err != nil {
		return "", 0, fmt.Errorf("querying head: %w", err)
	}
	return hash, seq, nil
}

// insertEntry writes an entry row, assigning the next per-namespace seq.
func (s *SQLiteStore) insertEntry(ctx context.Context, tx *sql.Tx, entry *Entry) error {
	var seq int64
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM entries WHERE namespace = ?`,
		entry.Namespace,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("assigning sequence: %w", err)
	}
	entry.Seq = seq

	parentsJSON, err := json.Marshal(entry.Parents)
	if err != nil {
		return fmt.Errorf("encoding parents: %w", err)
	}

	var extJSON any
	if len(entry.Message.Extensions) > 0 {
		raw, err := json.Marshal(entry.Message.Extensions)
		if err != nil {
			return fmt.Errorf("encoding extensions: %w", err)
		}
		extJSON = string(raw)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (hash, namespace, kind, parents, content, author, timestamp, signature, extensions, seq, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.Hash,
		entry.Namespace,
		string(entry.Kind),
		string(parentsJSON),
		entry.Message.Content,
		entry.Message.Author,
		entry.Message.Timestamp,
		entry.Message.Signature,
		extJSON,
		entry.Seq,
		entry.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			// Content-addressing makes re-inserting the same entry a no-op
			// in effect; surface it as a bad entry so callers notice.
			return fmt.Errorf("entry %s already exists: %w", entry.Hash, ErrBadEntry)
		}
		return fmt.Errorf("inserting entry: %w", err)
	}
	return nil
}

// advanceHead moves the namespace head from expectedOld to entry inside tx.
// The WHERE clause on the old hash is the optimistic-concurrency guard: if
// another writer advanced the head first, zero rows update and the caller
// retries against the fresh head.
func (s *SQLiteStore) advanceHead(ctx context.Context, tx *sql.Tx, namespace, expectedOld string, entry *Entry) error {
	if expectedOld == "" {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO heads (namespace, hash, seq) VALUES (?, ?, ?)`,
			namespace, entry.Hash, entry.Seq,
		)
		if err != nil {
			if isConstraintViolation(err) {
				return ErrHeadContention
			}
			return fmt.Errorf("creating head: %w", err)
		}
		return nil
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE heads SET hash = ?, seq = ? WHERE namespace = ? AND hash = ?`,
		entry.Hash, entry.Seq, namespace, expectedOld,
	)
	if err != nil {
		return fmt.Errorf("advancing head: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return ErrHeadContention
	}
	return nil
}

// isConstraintViolation checks if the error is a SQLite constraint violation.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// Get retrieves an entry by hash within a namespace.
// Returns ErrNotFound if no such entry exists there.
func (s *SQLiteStore) Get(ctx context.Context, namespace, hash string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT hash, namespace, kind, parents, content, author, timestamp, signature, extensions, seq, created_at
		FROM entries
		WHERE namespace = ? AND hash = ?
	`, namespace, hash)

	entry, err := scanEntry(row)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Has reports whether the namespace contains an entry with the given hash.
func (s *SQLiteStore) Has(ctx context.Context, namespace, hash string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM entries WHERE namespace = ? AND hash = ?`,
		namespace, hash,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying entry existence: %w", err)
	}
	return true, nil
}

// Head returns the namespace's current head entry.
// Returns ErrNotFound for an empty or unknown namespace.
func (s *SQLiteStore) Head(ctx context.Context, namespace string) (*Entry, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT hash FROM heads WHERE namespace = ?`, namespace).Scan(&hash)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying head: %w", err)
	}
	return s.Get(ctx, namespace, hash)
}

// Hashes lists every entry hash in the namespace in append order.
func (s *SQLiteStore) Hashes(ctx context.Context, namespace string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hash FROM entries WHERE namespace = ? ORDER BY seq ASC`,
		namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("querying hashes: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scanning hash: %w", err)
		}
		hashes = append(hashes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hashes: %w", err)
	}
	return hashes, nil
}

// Namespaces lists every namespace with at least one entry.
func (s *SQLiteStore) Namespaces(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT namespace FROM entries ORDER BY namespace`)
	if err != nil {
		return nil, fmt.Errorf("querying namespaces: %w", err)
	}
	defer rows.Close()

	var namespaces []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, fmt.Errorf("scanning namespace: %w", err)
		}
		namespaces = append(namespaces, ns)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating namespaces: %w", err)
	}
	return namespaces, nil
}

// Ingest admits an externally produced entry after full validation. The
// head does not move; FastForward or Merge advance it once the entry's
// line is complete. Ingesting an entry that is already present is a no-op.
func (s *SQLiteStore) Ingest(ctx context.Context, entry *Entry) error {
	if err := CheckEntry(entry); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning ingest transaction: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM entries WHERE namespace = ? AND hash = ?`,
		entry.Namespace, entry.Hash,
	).Scan(&one)
	if err == nil {
		return nil // already present
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("checking for existing entry: %w", err)
	}

	// A copy keeps the caller's Seq untouched; this store assigns its own
	// replay order.
	local := *entry
	local.CreatedAt = time.Now().UTC()
	if err := s.insertEntry(ctx, tx, &local); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing ingest: %w", err)
	}
	s.logger.Debug("ingested entry", "namespace", entry.Namespace, "hash", entry.Hash, "kind", entry.Kind)
	return nil
}

// FastForward moves the namespace head to hash, which must be an existing
// entry descending from the current head. A namespace with no head yet
// accepts any existing entry. A head that moves between the ancestry check
// and the guarded update triggers a retry against the refreshed head, same
// as Append.
func (s *SQLiteStore) FastForward(ctx context.Context, namespace, hash string) error {
	target, err := s.Get(ctx, namespace, hash)
	if err != nil {
		return err
	}

	for attempt := 0; attempt < maxAppendRetries; attempt++ {
		err := s.tryFastForward(ctx, namespace, target)
		if errors.Is(err, ErrHeadContention) {
			s.logger.Debug("fast-forward lost head race, retrying", "namespace", namespace, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return err
		}
		return nil
	}

	return fmt.Errorf("fast-forwarding %s: %w", namespace, ErrHeadContention)
}

func (s *SQLiteStore) tryFastForward(ctx context.Context, namespace string, target *Entry) error {
	// Ancestry is checked outside the transaction; the guarded head update
	// below catches any head movement in between.
	var headHash string
	head, err := s.Head(ctx, namespace)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if head != nil {
		headHash = head.Hash
		if headHash == target.Hash {
			return nil // already there
		}
		reachable, err := s.IsAncestor(ctx, namespace, headHash, target.Hash)
		if err != nil {
			return err
		}
		if !reachable {
			return fmt.Errorf("%s does not descend from head %s: %w", target.Hash, headHash, ErrBadEntry)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning fast-forward transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.advanceHead(ctx, tx, namespace, headHash, target); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing fast-forward: %w", err)
	}
	s.logger.Debug("fast-forwarded head", "namespace", namespace, "head", target.Hash)
	return nil
}

// Merge creates a merge entry over parents and advances the head to it.
// The current head must be among the parents so no committed entry ever
// becomes unreachable.
func (s *SQLiteStore) Merge(ctx context.Context, namespace string, parents []string) (*Entry, error) {
	if len(parents) < 2 {
		return nil, fmt.Errorf("merge needs at least two parents: %w", ErrBadEntry)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning merge transaction: %w", err)
	}
	defer tx.Rollback()

	headHash, _, err := s.headInTx(ctx, tx, namespace)
	if err != nil {
		return nil, err
	}

	headIsParent := false
	for _, p := range parents {
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM entries WHERE namespace = ? AND hash = ?`,
			namespace, p,
		).Scan(&one)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("merge parent %s: %w", p, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("checking merge parent: %w", err)
		}
		if p == headHash {
			headIsParent = true
		}
	}
	if !headIsParent {
		return nil, fmt.Errorf("current head %s is not a merge parent: %w", headHash, ErrBadEntry)
	}

	mergeMsg := message.Message{Timestamp: message.FormatTimestamp(time.Now())}
	entry := &Entry{
		Hash:      ComputeHash(namespace, EntryKindMerge, &mergeMsg, parents),
		Namespace: namespace,
		Kind:      EntryKindMerge,
		Parents:   parents,
		Message:   mergeMsg,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.insertEntry(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := s.advanceHead(ctx, tx, namespace, headHash, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing merge: %w", err)
	}
	s.logger.Info("created merge entry", "namespace", namespace, "hash", entry.Hash, "parents", len(parents))
	return entry, nil
}

// IsAncestor walks parent references from descendant back toward the roots,
// reporting whether ancestor is reachable.
func (s *SQLiteStore) IsAncestor(ctx context.Context, namespace, ancestor, descendant string) (bool, error) {
	seen := map[string]bool{}
	frontier := []string{descendant}

	for len(frontier) > 0 {
		hash := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		if hash == ancestor {
			return true, nil
		}
		if seen[hash] {
			continue
		}
		seen[hash] = true

		entry, err := s.Get(ctx, namespace, hash)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}
		frontier = append(frontier, entry.Parents...)
	}
	return false, nil
}

// Ensure SQLiteStore implements the Store interface
var _ Store = (*SQLiteStore)(nil)
