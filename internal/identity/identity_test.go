// ABOUTME: Tests for identity generation, import determinism, and fingerprints
// ABOUTME: Covers phrase validation, seed file round-trips, and derivation stability

package identity

import (
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPhrase is a fixed valid 24-word mnemonic (the all-zero entropy vector).
const testPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon " +
	"abandon abandon abandon abandon abandon abandon abandon abandon " +
	"abandon abandon abandon abandon abandon abandon abandon art"

func TestGenerate(t *testing.T) {
	id, err := Generate()
	require.NoError(t, err)

	words := strings.Fields(id.Phrase())
	assert.Len(t, words, 24)
	assert.Len(t, id.PublicKey(), ed25519.PublicKeySize)
	assert.Len(t, id.Fingerprint(), FingerprintLen)
}

func TestGenerate_UniquePhrases(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	assert.NotEqual(t, a.Phrase(), b.Phrase())
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestImport_Deterministic(t *testing.T) {
	first, err := Import(testPhrase)
	require.NoError(t, err)

	second, err := Import(testPhrase)
	require.NoError(t, err)

	assert.Equal(t, first.PublicKeyHex(), second.PublicKeyHex())
	assert.Equal(t, first.Fingerprint(), second.Fingerprint())
}

func TestImport_RoundTripFromGenerate(t *testing.T) {
	id, err := Generate()
	require.NoError(t, err)

	reimported, err := Import(id.Phrase())
	require.NoError(t, err)
	assert.Equal(t, id.PublicKeyHex(), reimported.PublicKeyHex())
}

func TestImport_InvalidPhrase(t *testing.T) {
	tests := []struct {
		name   string
		phrase string
	}{
		{"empty", ""},
		{"garbage words", "not a real bip39 phrase at all honestly"},
		{"bad checksum", strings.Replace(testPhrase, "art", "abandon", 1)},
		{"too short", "abandon abandon abandon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Import(tt.phrase)
			assert.ErrorIs(t, err, ErrInvalidPhrase)
		})
	}
}

func TestImport_TrimsWhitespace(t *testing.T) {
	id, err := Import("  " + testPhrase + "\n")
	require.NoError(t, err)

	canonical, err := Import(testPhrase)
	require.NoError(t, err)
	assert.Equal(t, canonical.PublicKeyHex(), id.PublicKeyHex())
}

func TestFingerprint_StableAndHex(t *testing.T) {
	id, err := Import(testPhrase)
	require.NoError(t, err)

	fp := id.Fingerprint()
	assert.Len(t, fp, FingerprintLen)
	assert.Equal(t, strings.ToLower(fp), fp)
	assert.Equal(t, fp, Fingerprint(id.PublicKey()))
}

func TestSign_VerifiesWithPublicKey(t *testing.T) {
	id, err := Import(testPhrase)
	require.NoError(t, err)

	msg := []byte("the phrase is the identity")
	sig := id.Sign(msg)
	assert.True(t, ed25519.Verify(id.PublicKey(), msg, sig))
	assert.False(t, ed25519.Verify(id.PublicKey(), []byte("tampered"), sig))
}

func TestAuthorizedKey(t *testing.T) {
	id, err := Import(testPhrase)
	require.NoError(t, err)

	key, err := id.AuthorizedKey()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "ssh-ed25519 "))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	id, err := Import(testPhrase)
	require.NoError(t, err)
	require.NoError(t, Save(id, dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, id.PublicKeyHex(), loaded.PublicKeyHex())
	assert.Equal(t, id.Phrase(), loaded.Phrase())
}

func TestLoad_NoIdentity(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrNoIdentity)
}
