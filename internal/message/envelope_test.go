// ABOUTME: Tests for the sealed content envelope
// ABOUTME: Covers round-trips, wrong keys, tamper detection, and sealed-form detection

package message

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen_RoundTrip(t *testing.T) {
	id := testIdentity(t)
	key := id.EncryptionKey()

	sealed, err := Seal(&key, "blind storage cannot read this", id.PublicKey())
	require.NoError(t, err)
	require.True(t, IsSealed(sealed))

	plaintext, err := Open(&key, sealed)
	require.NoError(t, err)
	assert.Equal(t, "blind storage cannot read this", plaintext)
}

func TestSealedContentStaysSignable(t *testing.T) {
	id := testIdentity(t)
	key := id.EncryptionKey()

	sealed, err := Seal(&key, "secret", id.PublicKey())
	require.NoError(t, err)

	// Sealing happens before signing: the persisted record keeps its
	// shape, the signature covers the sealed form.
	msg := Sign(id, sealed, time.Now())
	assert.True(t, Verify(msg))

	plaintext, err := Open(&key, msg.Content)
	require.NoError(t, err)
	assert.Equal(t, "secret", plaintext)
}

func TestOpen_WrongKeyFails(t *testing.T) {
	key1 := [32]byte{1}
	key2 := [32]byte{2}

	sealed, err := Seal(&key1, "secret", nil)
	require.NoError(t, err)

	_, err = Open(&key2, sealed)
	assert.ErrorIs(t, err, ErrSealedContent)
}

func TestOpen_TamperedCiphertextFails(t *testing.T) {
	key := [32]byte{42}

	sealed, err := Seal(&key, "do not touch", nil)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(sealed), &env))
	env.Ciphertext[0] ^= 1
	tampered, err := json.Marshal(&env)
	require.NoError(t, err)

	_, err = Open(&key, string(tampered))
	assert.ErrorIs(t, err, ErrSealedContent)
}

func TestOpen_UnsupportedVersionFails(t *testing.T) {
	key := [32]byte{42}

	sealed, err := Seal(&key, "future", nil)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(sealed), &env))
	env.Version = 99
	bumped, err := json.Marshal(&env)
	require.NoError(t, err)

	_, err = Open(&key, string(bumped))
	assert.ErrorIs(t, err, ErrSealedContent)
}

func TestIsSealed_RejectsPlainContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"plain text", "just a message"},
		{"empty", ""},
		{"arbitrary json", `{"content": "hello", "version": 1}`},
		{"short nonce", `{"version": 1, "nonce": "AAAA", "ciphertext": "AAAA"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, IsSealed(tt.content))
		})
	}
}

func TestSeal_RecipientHint(t *testing.T) {
	id := testIdentity(t)
	key := id.EncryptionKey()

	sealed, err := Seal(&key, "addressed", id.PublicKey())
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(sealed), &env))
	assert.Len(t, env.RecipientHint, RecipientHintLen)
	assert.Equal(t, id.PublicKeyHex()[:RecipientHintLen], env.RecipientHint)

	unaddressed, err := Seal(&key, "broadcast", nil)
	require.NoError(t, err)
	env = Envelope{}
	require.NoError(t, json.Unmarshal([]byte(unaddressed), &env))
	assert.Empty(t, env.RecipientHint)
}
