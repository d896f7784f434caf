// Package identity derives sovereign cryptographic identities from BIP39
// seed phrases.
//
// The phrase is the identity: a 24-word English mnemonic (256 bits of
// entropy) deterministically derives an ed25519 keypair, and the keypair
// derives a short namespace fingerprint that partitions the message store.
// There is no account recovery, no password reset, and no key rotation in
// place - losing the phrase loses the identity, and rotating means creating
// a new identity and migrating history explicitly.
//
// Derivation is fixed by protocol: the BIP39 seed is computed with an empty
// passphrase and its first 32 bytes are used as the ed25519 seed. Two
// implementations that disagree on this cannot interoperate.
//
// Persistence is deliberately minimal: Save/Load keep the raw mnemonic in a
// 0600 file in the caller's config directory. Anything stronger (hardware
// keys, OS keychains) is an external collaborator's concern.
package identity
