// Package auth issues and verifies bearer and password-reset tokens and hashes passwords.
package auth

import (
	"context"
	"crypto/sha256"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

const (
	SessionTTL = 24 * time.Hour
	ResetTTL   = 15 * time.Minute

	resetSalt = "password-recovery"
)

// Subject is the identity embedded in a session token.
type Subject struct {
	UserID   int64
	Username string
	IsAdmin  bool
}

type sessionClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

type resetClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Tokens signs session tokens with the shared secret and reset tokens with a key
// derived from the secret and a fixed salt, so one can never be replayed as the other.
type Tokens struct {
	sessionKey []byte
	resetKey   []byte
	now        func() time.Time
}

func NewTokens(secret string) *Tokens {
	return &Tokens{
		sessionKey: []byte(secret),
		resetKey:   deriveKey(secret, resetSalt),
		now:        time.Now,
	}
}

// WithClock returns a copy of t that reads the current time from now.
func (t *Tokens) WithClock(now func() time.Time) *Tokens {
	cp := *t
	cp.now = now
	return &cp
}

func deriveKey(secret, salt string) []byte {
	sum := sha256.Sum256([]byte(salt + ":" + secret))
	return sum[:]
}

func (t *Tokens) Issue(sub Subject) (string, error) {
	now := t.now()
	claims := sessionClaims{
		UserID:   sub.UserID,
		Username: sub.Username,
		IsAdmin:  sub.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(sub.UserID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.sessionKey)
}

// Parse checks signature and expiry and returns the embedded subject.
func (t *Tokens) Parse(token string) (Subject, error) {
	var claims sessionClaims
	if err := t.parse(token, t.sessionKey, &claims); err != nil {
		return Subject{}, err
	}
	if claims.UserID <= 0 {
		return Subject{}, ErrTokenInvalid
	}
	return Subject{UserID: claims.UserID, Username: claims.Username, IsAdmin: claims.IsAdmin}, nil
}

// Verify parses token and resolves its user id through lookup. Any lookup failure
// makes the token invalid.
func Verify[U any](ctx context.Context, t *Tokens, token string, lookup func(context.Context, int64) (U, error)) (U, error) {
	var zero U
	sub, err := t.Parse(token)
	if err != nil {
		return zero, err
	}
	u, err := lookup(ctx, sub.UserID)
	if err != nil {
		return zero, ErrTokenInvalid
	}
	return u, nil
}

func (t *Tokens) IssueReset(email string) (string, error) {
	now := t.now()
	claims := resetClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ResetTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.resetKey)
}

// VerifyReset returns the email carried by a reset token. Tokens are not consumed:
// a link stays usable until it expires.
func (t *Tokens) VerifyReset(token string) (string, error) {
	var claims resetClaims
	if err := t.parse(token, t.resetKey, &claims); err != nil {
		return "", err
	}
	if claims.Email == "" {
		return "", ErrTokenInvalid
	}
	return claims.Email, nil
}

func (t *Tokens) parse(token string, key []byte, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenInvalid
	}
}
