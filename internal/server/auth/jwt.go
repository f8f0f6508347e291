// Package auth issues and verifies the signed access tokens handed out at login.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/profilekeeper/internal/access"
	"github.com/dmitrijs2005/profilekeeper/internal/common"
)

// Claims binds a principal's identity and role to the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	Username string      `json:"username"`
	Role     access.Role `json:"role"`
	UserID   string      `json:"uid"`
}

// Principal is the verified identity carried by a token.
type Principal struct {
	UserID    string
	Username  string
	Role      access.Role
	ExpiresAt time.Time
}

// Issuer signs and verifies HS256 tokens. Given the same claims, clock and
// key it always produces the same token.
type Issuer struct {
	secretKey []byte
	issuer    string
	audience  string
	validity  time.Duration
	now       func() time.Time
}

type IssuerOption func(*Issuer)

// WithClock overrides the time source used for iat, exp and verification.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) { i.now = now }
}

func NewIssuer(secretKey []byte, issuer, audience string, validity time.Duration, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		secretKey: secretKey,
		issuer:    issuer,
		audience:  audience,
		validity:  validity,
		now:       time.Now,
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Issue returns a signed token for the principal and its expiry time.
func (i *Issuer) Issue(userID, username string, role access.Role) (string, time.Time, error) {
	now := i.now().Truncate(time.Second)
	exp := now.Add(i.validity)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Username: username,
		Role:     role,
		UserID:   userID,
	})

	signed, err := token.SignedString(i.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature, algorithm, issuer, audience and expiry before
// returning the principal. Expired tokens yield common.ErrorTokenExpired,
// every other failure common.ErrorInvalidToken.
func (i *Issuer) Verify(tokenString string) (*Principal, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return i.secretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrorTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" || !claims.Role.Valid() {
		return nil, common.ErrorInvalidToken
	}

	return &Principal{
		UserID:    claims.UserID,
		Username:  claims.Username,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
