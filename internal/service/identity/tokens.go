package identity

import (
	"errors"
	"fmt"
	"time"

	"smartpos/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// claims carried by every token. Role and space are embedded at issuance so
// role resolution needs no database round trip.
type claims struct {
	Role  string `json:"role"`
	Space string `json:"space"`
	Typ   string `json:"typ"`
	jwt.RegisteredClaims
}

type tokenSigner struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func newTokenSigner(secret string, accessTTL, refreshTTL time.Duration, now func() time.Time) *tokenSigner {
	if now == nil {
		now = time.Now
	}
	return &tokenSigner{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
	}
}

func (s *tokenSigner) sign(p *domain.Principal, typ string) (string, error) {
	ttl := s.accessTTL
	if typ == tokenTypeRefresh {
		ttl = s.refreshTTL
	}
	now := s.now().UTC()
	c := claims{
		Role:  string(p.Role),
		Space: string(p.Space),
		Typ:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// parse verifies signature and expiry and returns the token claims.
func (s *tokenSigner) parse(token string) (*claims, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, errors.Join(domain.ErrInvalidToken, err)
	}
	return &c, nil
}
