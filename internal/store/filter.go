// ABOUTME: Entry filtering over envelope tags and signed timestamps
// ABOUTME: Backs recall-style queries without touching the persisted log

package store

import (
	"time"

	"github.com/2389/fold-ledger/internal/message"
)

// Filter selects event entries by their envelope tags and signed
// timestamp. The zero Filter matches every event entry; merge entries
// never match, they carry no author content to recall.
type Filter struct {
	// Tags maps required envelope keys to required values. An empty
	// value means the key just has to be present.
	Tags map[string]string

	// After and Before bound the signed timestamp, inclusive. A zero
	// time leaves that side unbounded.
	After  time.Time
	Before time.Time
}

// Match reports whether e satisfies every criterion in the filter.
func (f *Filter) Match(e *Entry) bool {
	if e == nil || e.IsMerge() {
		return false
	}

	for key, want := range f.Tags {
		got, ok := e.Message.Extensions[key]
		if !ok {
			return false
		}
		if want != "" && got != want {
			return false
		}
	}

	if f.After.IsZero() && f.Before.IsZero() {
		return true
	}
	ts, err := time.Parse(message.TimestampFormat, e.Message.Timestamp)
	if err != nil {
		return false
	}
	if !f.After.IsZero() && ts.Before(f.After) {
		return false
	}
	if !f.Before.IsZero() && ts.After(f.Before) {
		return false
	}
	return true
}

// FilterEntries returns the entries matching f, preserving order.
func FilterEntries(entries []*Entry, f *Filter) []*Entry {
	var out []*Entry
	for _, e := range entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}
