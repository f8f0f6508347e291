// Package credentials implements password hashing, verification and the
// username/password policy applied at registration.
package credentials

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/profilekeeper/internal/common"
	"github.com/dmitrijs2005/profilekeeper/internal/cryptox"
)

const (
	MinUsernameLength = 8
	MaxUsernameLength = 20

	MinPasswordLength = 12
	// minClassCount is required of each character class in a complex password.
	minClassCount = 2
)

// PasswordHash is what gets persisted for a credential.
type PasswordHash struct {
	Hash   []byte
	Salt   []byte
	Scheme string
}

// Manager hashes new passwords with its default scheme and verifies stored
// hashes with whichever scheme produced them. A Manager holds no mutable
// state and may be shared between goroutines.
type Manager struct {
	def      cryptox.Deriver
	derivers map[string]cryptox.Deriver
	salt     func(int) []byte
}

// NewManager returns a Manager hashing with the named scheme.
func NewManager(scheme string) (*Manager, error) {
	derivers := map[string]cryptox.Deriver{
		cryptox.SchemeHMACSHA512: cryptox.HMACSHA512{},
		cryptox.SchemeArgon2ID:   cryptox.DefaultArgon2ID(),
	}

	if scheme == "" {
		scheme = cryptox.SchemeHMACSHA512
	}
	def, ok := derivers[scheme]
	if !ok {
		return nil, fmt.Errorf("unknown password scheme %q", scheme)
	}

	return &Manager{def: def, derivers: derivers, salt: common.GenerateRandByteArray}, nil
}

// Hash derives a hash of password with a freshly generated random salt.
func (m *Manager) Hash(password string) PasswordHash {
	salt := m.salt(cryptox.SaltSize)
	return PasswordHash{
		Hash:   m.def.Derive([]byte(password), salt),
		Salt:   salt,
		Scheme: m.def.Name(),
	}
}

// Verify recomputes the hash of password with the stored salt and compares
// it with the stored hash. Unknown schemes never verify.
func (m *Manager) Verify(password string, stored PasswordHash) bool {
	scheme := stored.Scheme
	if scheme == "" {
		scheme = cryptox.SchemeHMACSHA512
	}
	d, ok := m.derivers[scheme]
	if !ok || len(stored.Salt) == 0 {
		return false
	}
	return cryptox.Equal(d.Derive([]byte(password), stored.Salt), stored.Hash)
}

// IsComplex reports whether password has at least MinPasswordLength
// characters including at least two upper-case letters, two lower-case
// letters, two digits and two symbols. A symbol is anything that is neither
// a letter, a digit nor whitespace.
func IsComplex(password string) bool {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return false
	}

	var upper, lower, digit, symbol int
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper++
		case unicode.IsLower(r):
			lower++
		case unicode.IsDigit(r):
			digit++
		case unicode.IsLetter(r), unicode.IsNumber(r), unicode.IsSpace(r):
		default:
			symbol++
		}
	}

	return upper >= minClassCount && lower >= minClassCount &&
		digit >= minClassCount && symbol >= minClassCount
}

// ValidUsernameLength reports whether username has between
// MinUsernameLength and MaxUsernameLength characters.
func ValidUsernameLength(username string) bool {
	n := utf8.RuneCountInString(username)
	return n >= MinUsernameLength && n <= MaxUsernameLength
}
