// ABOUTME: Lazy, restartable history replay for one namespace
// ABOUTME: Row-cursor backed iterator returning entries oldest-first in append order

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Iterator replays a namespace's entries oldest-first, in exact append
// order. It is lazy (rows are decoded on demand) and restartable (call
// History again for a fresh replay). The iterator holds the store's
// database connection until Close, so finish or close it before making
// other store calls.
type Iterator struct {
	rows    *sql.Rows
	current *Entry
	err     error
}

// History begins an oldest-first replay of the namespace. Replaying from
// the log alone reconstructs full state; no other persisted structure is
// required.
func (s *SQLiteStore) History(ctx context.Context, namespace string) (*Iterator, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, namespace, kind, parents, content, author, timestamp, signature, extensions, seq, created_at
		FROM entries
		WHERE namespace = ?
		ORDER BY seq ASC
	`, namespace)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	return &Iterator{rows: rows}, nil
}

// Next advances to the next entry, returning false at the end of the log
// or on error. Check Err after a false return.
func (it *Iterator) Next() bool {
	if it.err != nil || !it.rows.Next() {
		if it.err == nil {
			it.err = it.rows.Err()
		}
		return false
	}

	entry, err := scanEntry(it.rows)
	if err != nil {
		it.err = err
		return false
	}
	it.current = entry
	return true
}

// Entry returns the entry at the current position.
func (it *Iterator) Entry() *Entry {
	return it.current
}

// Err returns the first error encountered during iteration, if any.
func (it *Iterator) Err() error {
	return it.err
}

// Close releases the underlying cursor. Safe to call multiple times.
func (it *Iterator) Close() error {
	return it.rows.Close()
}

// HistorySlice is History collected into memory.
func (s *SQLiteStore) HistorySlice(ctx context.Context, namespace string) ([]*Entry, error) {
	it, err := s.History(ctx, namespace)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var entries []*Entry
	for it.Next() {
		entries = append(entries, it.Entry())
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("replaying history: %w", err)
	}
	return entries, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntry decodes one entries row.
func scanEntry(row rowScanner) (*Entry, error) {
	var entry Entry
	var kind, parentsJSON, createdAtStr string
	var extJSON sql.NullString

	err := row.Scan(
		&entry.Hash,
		&entry.Namespace,
		&kind,
		&parentsJSON,
		&entry.Message.Content,
		&entry.Message.Author,
		&entry.Message.Timestamp,
		&entry.Message.Signature,
		&extJSON,
		&entry.Seq,
		&createdAtStr,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning entry: %w", err)
	}

	entry.Kind = EntryKind(kind)

	if err := json.Unmarshal([]byte(parentsJSON), &entry.Parents); err != nil {
		return nil, fmt.Errorf("decoding parents: %w", err)
	}
	if len(entry.Parents) == 0 {
		entry.Parents = nil
	}

	if extJSON.Valid && extJSON.String != "" {
		if err := json.Unmarshal([]byte(extJSON.String), &entry.Message.Extensions); err != nil {
			return nil, fmt.Errorf("decoding extensions: %w", err)
		}
	}

	entry.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &entry, nil
}
