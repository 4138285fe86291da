// Package token issues and verifies signed bearer credentials.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalid is returned for credentials that fail signature or
	// structural validation.
	ErrInvalid = errors.New("token: invalid credential")

	// ErrExpired is returned for well-formed credentials past their
	// expiry.
	ErrExpired = errors.New("token: credential expired")
)

// Claims is the verified payload of a credential.
type Claims struct {
	UserID    string
	Name      string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Verifier validates a raw credential and extracts its claims.
type Verifier interface {
	Verify(credential string) (*Claims, error)
}

// Issuer mints a signed credential for a user.
type Issuer interface {
	Issue(userID, name, email string) (string, error)
}

type jwtClaims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// HS256 issues and verifies HMAC-SHA256 signed JWTs. It implements both
// Issuer and Verifier.
type HS256 struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewHS256 returns a signer/verifier using the given shared secret. ttl is
// the lifetime of issued credentials.
func NewHS256(secret []byte, ttl time.Duration) *HS256 {
	return &HS256{secret: secret, ttl: ttl, now: time.Now}
}

// Issue mints a signed credential with the user ID as subject.
func (h *HS256) Issue(userID, name, email string) (string, error) {
	now := h.now()
	claims := jwtClaims{
		Name:  name,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry. Expired credentials return ErrExpired;
// everything else that fails validation returns ErrInvalid.
func (h *HS256) Verify(credential string) (*Claims, error) {
	var claims jwtClaims
	_, err := jwt.ParseWithClaims(credential, &claims,
		func(*jwt.Token) (any, error) { return h.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(h.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	out := &Claims{
		UserID: claims.Subject,
		Name:   claims.Name,
		Email:  claims.Email,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
