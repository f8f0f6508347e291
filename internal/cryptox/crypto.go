// Package cryptox holds the password key-derivation schemes used to turn a
// password and a per-credential salt into a stored hash.
package cryptox

import (
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// Scheme names as persisted alongside each credential.
const (
	SchemeHMACSHA512 = "hmac-sha512"
	SchemeArgon2ID   = "argon2id"
)

// SaltSize is the number of random bytes generated per credential. It matches
// the key size of HMAC-SHA512 (one hash block).
const SaltSize = 128

// Deriver computes a deterministic hash of password keyed by salt.
type Deriver interface {
	Name() string
	Derive(password, salt []byte) []byte
}

// HMACSHA512 uses the salt directly as the HMAC key.
type HMACSHA512 struct{}

func (HMACSHA512) Name() string { return SchemeHMACSHA512 }

func (HMACSHA512) Derive(password, salt []byte) []byte {
	mac := hmac.New(sha512.New, salt)
	mac.Write(password)
	return mac.Sum(nil)
}

// Argon2ID derives a 64-byte key with argon2id.
type Argon2ID struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

// DefaultArgon2ID returns the parameters used for new credentials.
func DefaultArgon2ID() Argon2ID {
	return Argon2ID{Time: 1, Memory: 64 * 1024, Threads: 4}
}

func (Argon2ID) Name() string { return SchemeArgon2ID }

func (a Argon2ID) Derive(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, a.Time, a.Memory, a.Threads, 64)
}

// Equal compares two hashes in constant time.
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
