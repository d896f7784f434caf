// ABOUTME: Signed message type and canonical byte encoding for signing
// ABOUTME: Injective length-prefixed encoding prevents field-boundary malleability

package message

import (
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/2389/fold-ledger/internal/identity"
)

// TimestampFormat is the fixed-width, lexically sortable UTC timestamp
// layout used on every message. Fixed width keeps canonical bytes stable
// and string ordering equal to time ordering.
const TimestampFormat = "2006-01-02T15:04:05.000000000Z"

// Message is one signed event. Content, Author, and Timestamp are covered
// by the signature and immutable once signed. Extensions ride in the
// unsigned envelope only - they never enter the canonical bytes, so adding
// or rewriting them cannot break or forge a signature.
type Message struct {
	Content   string `json:"content"`
	Author    string `json:"author"`    // hex-encoded ed25519 public key
	Timestamp string `json:"timestamp"` // TimestampFormat, always UTC
	Signature string `json:"signature"` // hex-encoded ed25519 signature

	// Extensions carries optional schema-less metadata (tags, confidence,
	// client hints). Convention: an "ext_version" key versions the map.
	Extensions map[string]string `json:"extensions,omitempty"`
}

// Canonicalize produces the unique byte encoding of the signed fields.
// Each field is emitted as a big-endian uint32 length prefix followed by
// the raw bytes, in fixed order. Length prefixes make the encoding
// injective: no choice of field contents can shift a byte across a field
// boundary and still decode the same way.
func Canonicalize(content, author, timestamp string) []byte {
	buf := make([]byte, 0, 12+len(content)+len(author)+len(timestamp))
	for _, field := range []string{content, author, timestamp} {
		var prefix [4]byte
		binary.BigEndian.PutUint32(prefix[:], uint32(len(field)))
		buf = append(buf, prefix[:]...)
		buf = append(buf, field...)
	}
	return buf
}

// FormatTimestamp renders t in the protocol timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// Sign creates a fully populated signed message from id at time ts.
func Sign(id *identity.Identity, content string, ts time.Time) *Message {
	author := id.PublicKeyHex()
	timestamp := FormatTimestamp(ts)
	sig := id.Sign(Canonicalize(content, author, timestamp))

	return &Message{
		Content:   content,
		Author:    author,
		Timestamp: timestamp,
		Signature: hex.EncodeToString(sig),
	}
}

// Verify recomputes the canonical bytes and checks the signature against
// the author's public key. Returns false on any malformed input; malformed
// messages from untrusted peers are expected, not exceptional, so this
// never panics and never returns an error.
func Verify(m *Message) bool {
	if m == nil {
		return false
	}

	pub, err := hex.DecodeString(m.Author)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}

	sig, err := hex.DecodeString(m.Signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}

	canonical := Canonicalize(m.Content, m.Author, m.Timestamp)
	return ed25519.Verify(ed25519.PublicKey(pub), canonical, sig)
}
