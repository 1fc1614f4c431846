package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var errTokenType = errors.New("unexpected token type")

type claims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// Tokens mints and verifies HS256 access and refresh tokens. Each kind is
// signed with its own secret.
type Tokens struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokens builds a token issuer.
func NewTokens(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Tokens {
	return &Tokens{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// IssueAccess returns a signed access token for userID and its expiry.
func (t *Tokens) IssueAccess(userID int64) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.accessTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Type: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString(t.accessSecret)
	return signed, exp, err
}

// IssueRefresh returns a signed refresh token and its unique id.
func (t *Tokens) IssueRefresh(userID int64) (string, string, error) {
	now := t.now()
	id := uuid.NewString()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Type: tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.refreshTTL)),
		},
	})
	signed, err := token.SignedString(t.refreshSecret)
	return signed, id, err
}

// ParseAccess verifies an access token and returns its user id.
func (t *Tokens) ParseAccess(raw string) (int64, error) {
	c, err := t.parse(raw, t.accessSecret, tokenTypeAccess)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(c.Subject, 10, 64)
}

// ParseRefresh verifies a refresh token and returns its user id and token id.
func (t *Tokens) ParseRefresh(raw string) (int64, string, error) {
	c, err := t.parse(raw, t.refreshSecret, tokenTypeRefresh)
	if err != nil {
		return 0, "", err
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, "", err
	}
	if c.ID == "" {
		return 0, "", errors.New("refresh token without id")
	}
	return id, c.ID, nil
}

func (t *Tokens) parse(raw string, secret []byte, wantType string) (*claims, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, err
	}
	if c.Type != wantType {
		return nil, errTokenType
	}
	return &c, nil
}
