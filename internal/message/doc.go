// Package message defines the signed event format and its canonical byte
// encoding.
//
// A message has exactly three signed fields - content, author, timestamp -
// plus the signature over them. The canonical encoding length-prefixes each
// field, which makes it injective: two distinct (content, author, timestamp)
// triples can never canonicalize to the same bytes, so the ed25519 signature
// binds all three fields with no malleability at field boundaries.
//
// Verify is pure and total: any malformed message simply verifies false.
// Callers processing batches from untrusted peers reject and continue.
package message
