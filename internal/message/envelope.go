// ABOUTME: Sealed content envelope using XChaCha20-Poly1305 AEAD
// ABOUTME: Sealing wraps plaintext before signing so the persisted record stays four fields

package message

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

// EnvelopeVersion is the current sealed-envelope protocol version.
const EnvelopeVersion = 1

// RecipientHintLen is the length in hex characters of a recipient hint:
// the first 8 bytes of the recipient's public key. Enough to tell whether
// an envelope is addressed to you without identifying you to anyone who
// doesn't already hold the key.
const RecipientHintLen = 16

// ErrSealedContent is returned when an envelope cannot be opened: wrong
// key, tampered ciphertext, or an unsupported version.
var ErrSealedContent = errors.New("cannot open sealed content")

// Envelope is the sealed form a message's content takes when the host
// storing the log should not be able to read it. The envelope rides inside
// the Content field as JSON, and the signature covers the sealed form, so
// nothing about the persisted record changes. The extended 192-bit nonce
// makes random generation safe across any realistic message volume.
type Envelope struct {
	Version       int    `json:"version"`
	Nonce         []byte `json:"nonce"`
	Ciphertext    []byte `json:"ciphertext"`
	RecipientHint string `json:"recipient_hint,omitempty"`
	SealedAt      string `json:"sealed_at"`
}

// Seal encrypts plaintext under key and returns the envelope as a JSON
// string suitable for use as a message's Content. A non-nil recipient key
// adds a hint so readers can tell which envelopes they hold the key for.
func Seal(key *[32]byte, plaintext string, recipient ed25519.PublicKey) (string, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return "", fmt.Errorf("initializing cipher: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	env := Envelope{
		Version:    EnvelopeVersion,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, []byte(plaintext), nil),
		SealedAt:   FormatTimestamp(time.Now()),
	}
	if recipient != nil {
		env.RecipientHint = hex.EncodeToString(recipient[:RecipientHintLen/2])
	}

	out, err := json.Marshal(&env)
	if err != nil {
		return "", fmt.Errorf("encoding envelope: %w", err)
	}
	return string(out), nil
}

// Open decrypts a sealed content string produced by Seal. Returns
// ErrSealedContent when the key is wrong or the envelope was tampered
// with; the two cases are indistinguishable by AEAD design.
func Open(key *[32]byte, sealed string) (string, error) {
	env, ok := parseEnvelope(sealed)
	if !ok {
		return "", fmt.Errorf("content is not a sealed envelope: %w", ErrSealedContent)
	}
	if env.Version != EnvelopeVersion {
		return "", fmt.Errorf("envelope version %d: %w", env.Version, ErrSealedContent)
	}

	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return "", fmt.Errorf("initializing cipher: %w", err)
	}

	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return "", ErrSealedContent
	}
	return string(plaintext), nil
}

// IsSealed reports whether content carries a sealed envelope. Plain text
// never parses as one; the nonce length check keeps arbitrary JSON content
// from false-matching.
func IsSealed(content string) bool {
	_, ok := parseEnvelope(content)
	return ok
}

func parseEnvelope(content string) (*Envelope, bool) {
	var env Envelope
	if err := json.Unmarshal([]byte(content), &env); err != nil {
		return nil, false
	}
	if env.Version == 0 || len(env.Nonce) != chacha20poly1305.NonceSizeX || len(env.Ciphertext) == 0 {
		return nil, false
	}
	return &env, true
}
