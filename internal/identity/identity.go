// ABOUTME: Sovereign identity derivation from BIP39 seed phrases
// ABOUTME: One phrase deterministically yields one ed25519 keypair and namespace fingerprint

package identity

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	bip39 "github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/ssh"
)

// ErrInvalidPhrase is returned when a seed phrase fails wordlist or checksum validation.
var ErrInvalidPhrase = errors.New("invalid seed phrase")

const (
	// EntropyBits is the mnemonic entropy size. 24 words = 256 bits; never less.
	EntropyBits = 256

	// FingerprintLen is the length in hex characters of a namespace fingerprint.
	// 16 hex chars = 64 bits, comfortably above the 2^32 namespace target.
	FingerprintLen = 16
)

// Identity is a keypair derived from a seed phrase. The phrase is the only
// recovery path - there is no escrow and no rotation in place.
type Identity struct {
	phrase  string
	private ed25519.PrivateKey
	public  ed25519.PublicKey
}

// Generate creates a new identity from fresh entropy.
// Fails only if the system entropy source fails.
func Generate() (*Identity, error) {
	entropy, err := bip39.NewEntropy(EntropyBits)
	if err != nil {
		return nil, fmt.Errorf("generating entropy: %w", err)
	}

	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("building mnemonic: %w", err)
	}

	return Import(phrase)
}

// Import re-derives an identity from an existing seed phrase.
// The same phrase always yields the same keypair and fingerprint.
// Returns ErrInvalidPhrase if the phrase fails wordlist or checksum validation.
func Import(phrase string) (*Identity, error) {
	phrase = strings.TrimSpace(phrase)
	if !bip39.IsMnemonicValid(phrase) {
		return nil, ErrInvalidPhrase
	}

	// Empty passphrase, first 32 bytes of the 64-byte BIP39 seed become the
	// ed25519 seed. This derivation is a protocol constant - changing it
	// orphans every existing identity.
	seed := bip39.NewSeed(phrase, "")
	private := ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])

	return &Identity{
		phrase:  phrase,
		private: private,
		public:  private.Public().(ed25519.PublicKey),
	}, nil
}

// Phrase returns the seed phrase. Callers are responsible for keeping it off
// the network and out of logs.
func (id *Identity) Phrase() string {
	return id.phrase
}

// PublicKey returns the raw ed25519 public key.
func (id *Identity) PublicKey() ed25519.PublicKey {
	return id.public
}

// PublicKeyHex returns the public key as 64 lowercase hex characters.
// This is the author field on every signed message.
func (id *Identity) PublicKeyHex() string {
	return hex.EncodeToString(id.public)
}

// Sign signs msg with the identity's private key.
func (id *Identity) Sign(msg []byte) []byte {
	return ed25519.Sign(id.private, msg)
}

// EncryptionKey derives the 32-byte symmetric key this identity seals
// content with: the ed25519 seed itself. Reusing the signing seed keeps
// key management to one phrase; a proper X25519 agreement scheme can
// replace this without touching the envelope format.
func (id *Identity) EncryptionKey() [32]byte {
	var key [32]byte
	copy(key[:], id.private.Seed())
	return key
}

// Fingerprint returns the namespace identifier for this identity:
// the SHA256 of the raw public key, lowercase hex, truncated to
// FingerprintLen characters.
func (id *Identity) Fingerprint() string {
	return Fingerprint(id.public)
}

// Fingerprint computes the namespace identifier for a raw public key.
// Pure function: same key in, same fingerprint out.
func Fingerprint(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:])[:FingerprintLen]
}

// AuthorizedKey renders the public key in SSH authorized_keys format,
// for interop with SSH-keyed transports and tooling.
func (id *Identity) AuthorizedKey() (string, error) {
	sshPub, err := ssh.NewPublicKey(id.public)
	if err != nil {
		return "", fmt.Errorf("converting public key: %w", err)
	}
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub))), nil
}
