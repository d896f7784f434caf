// ABOUTME: Tests for canonical encoding injectivity and signature round-trips
// ABOUTME: Covers field tampering, malformed inputs, and timestamp formatting

package message

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/fold-ledger/internal/identity"
)

const testPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon " +
	"abandon abandon abandon abandon abandon abandon abandon abandon " +
	"abandon abandon abandon abandon abandon abandon abandon art"

func testIdentity(t *testing.T) *identity.Identity {
	t.Helper()
	id, err := identity.Import(testPhrase)
	require.NoError(t, err)
	return id
}

func TestSignVerify_RoundTrip(t *testing.T) {
	id := testIdentity(t)

	msg := Sign(id, "hello, sovereign world", time.Now())
	assert.Equal(t, id.PublicKeyHex(), msg.Author)
	assert.True(t, Verify(msg))
}

func TestVerify_TamperedFields(t *testing.T) {
	id := testIdentity(t)
	base := Sign(id, "original content", time.Now())

	tests := []struct {
		name   string
		mutate func(m *Message)
	}{
		{"content", func(m *Message) { m.Content = "edited content" }},
		{"author", func(m *Message) {
			other, err := identity.Generate()
			require.NoError(t, err)
			m.Author = other.PublicKeyHex()
		}},
		{"timestamp", func(m *Message) { m.Timestamp = FormatTimestamp(time.Now().Add(time.Hour)) }},
		{"signature", func(m *Message) { m.Signature = strings.Repeat("ab", 64) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tampered := *base
			tt.mutate(&tampered)
			assert.False(t, Verify(&tampered))
		})
	}
}

func TestVerify_Malformed(t *testing.T) {
	id := testIdentity(t)
	valid := Sign(id, "x", time.Now())

	tests := []struct {
		name string
		msg  *Message
	}{
		{"nil message", nil},
		{"empty message", &Message{}},
		{"author not hex", &Message{Content: "x", Author: "zz", Timestamp: valid.Timestamp, Signature: valid.Signature}},
		{"author wrong length", &Message{Content: "x", Author: "abcd", Timestamp: valid.Timestamp, Signature: valid.Signature}},
		{"signature not hex", &Message{Content: "x", Author: valid.Author, Timestamp: valid.Timestamp, Signature: "not-hex"}},
		{"signature truncated", &Message{Content: "x", Author: valid.Author, Timestamp: valid.Timestamp, Signature: valid.Signature[:20]}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, Verify(tt.msg))
		})
	}
}

func TestVerify_ExtensionsNotSigned(t *testing.T) {
	id := testIdentity(t)
	msg := Sign(id, "tagged thought", time.Now())

	// Envelope metadata may be added or rewritten after signing without
	// invalidating the signature.
	msg.Extensions = map[string]string{"ext_version": "1", "tags": "observation", "confidence": "0.9"}
	assert.True(t, Verify(msg))

	msg.Extensions["tags"] = "rewritten"
	assert.True(t, Verify(msg))
}

func TestCanonicalize_Injective(t *testing.T) {
	// Pairs that would collide under naive concatenation must not collide
	// under length-prefixed encoding.
	tests := []struct {
		name string
		a, b [3]string
	}{
		{"boundary shift", [3]string{"ab", "c", "t"}, [3]string{"a", "bc", "t"}},
		{"field swap", [3]string{"x", "y", "t"}, [3]string{"y", "x", "t"}},
		{"empty migration", [3]string{"", "xy", "t"}, [3]string{"xy", "", "t"}},
		{"timestamp bleed", [3]string{"a", "b", "2026t"}, [3]string{"a", "b2026", "t"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ca := Canonicalize(tt.a[0], tt.a[1], tt.a[2])
			cb := Canonicalize(tt.b[0], tt.b[1], tt.b[2])
			assert.False(t, bytes.Equal(ca, cb))
		})
	}
}

func TestCanonicalize_Deterministic(t *testing.T) {
	a := Canonicalize("content", "author", "timestamp")
	b := Canonicalize("content", "author", "timestamp")
	assert.Equal(t, a, b)
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, 8, 29, 12, 30, 45, 123456789, time.FixedZone("PST", -8*3600))
	got := FormatTimestamp(ts)

	// Always UTC, always fixed width.
	assert.Equal(t, "2026-08-29T20:30:45.123456789Z", got)
	assert.Len(t, got, len(TimestampFormat))

	// String order tracks time order.
	later := FormatTimestamp(ts.Add(time.Second))
	assert.Less(t, got, later)
}
