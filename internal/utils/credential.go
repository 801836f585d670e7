package utils // package utils provides helper functions for credential creation and hashing

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA-256 hashing for stored credentials
	"encoding/hex"  // hex encoding of tokens and digests
)

// CredentialBytes is the entropy of a cancellation credential.  32
// random bytes render as a 64-character hex string; collisions are
// probabilistically negligible at any plausible reservation volume,
// so uniqueness is not re-checked against existing rows.
const CredentialBytes = 32

// Credential pairs the raw cancellation token handed to the guest
// with the digest kept in the ledger.  The Raw value appears exactly
// once, in the booking response and confirmation mail; only the Hash
// is persisted, so a leaked database dump does not permit
// cancellations.
type Credential struct {
	Raw  string // 64-char hex token embedded in the cancellation URL
	Hash string // SHA-256 hex digest stored in reservations.credential_hash
}

// NewCredential generates a fresh cancellation credential from the
// system CSPRNG.  It fails only when the random source does.
func NewCredential() (Credential, error) {
	buf := make([]byte, CredentialBytes)
	if _, err := rand.Read(buf); err != nil {
		return Credential{}, err
	}
	raw := hex.EncodeToString(buf)
	return Credential{Raw: raw, Hash: HashCredential(raw)}, nil
}

// HashCredential returns the hex SHA-256 digest of a raw credential.
// The same function is used at issue time and at lookup time so the
// ledger can be queried deterministically by credential.
func HashCredential(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
