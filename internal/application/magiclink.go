package application

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const magicLinkIssuer = "mediation-portal"

// MagicLinkSigner mints and verifies the signed claims embedded in magic join
// links for sessions using the magic_link verification method.
type MagicLinkSigner struct {
	secret  []byte
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

// MagicLinkClaims are the verified attributes carried by a magic link.
type MagicLinkClaims struct {
	SessionID string
	Name      string
	Side      string
}

// NewMagicLinkSigner constructs a signer for magic-link claims.
func NewMagicLinkSigner(secret string, baseURL string, ttl time.Duration, now func() time.Time) (*MagicLinkSigner, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return nil, errors.New("magic link secret is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &MagicLinkSigner{
		secret:  []byte(trimmed),
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
		now:     now,
	}, nil
}

// Sign produces an HMAC-signed assertion for the given claims.
func (s *MagicLinkSigner) Sign(claims MagicLinkClaims) (string, error) {
	if s == nil {
		return "", errors.New("magic link signer is not configured")
	}
	if claims.SessionID == "" || claims.Name == "" {
		return "", errors.New("magic link claims require a session and a name")
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":  magicLinkIssuer,
		"sub":  claims.Name,
		"sid":  claims.SessionID,
		"side": claims.Side,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	})
	return token.SignedString(s.secret)
}

// Link builds the full magic join URL embedding a signed assertion.
func (s *MagicLinkSigner) Link(claims MagicLinkClaims) (string, error) {
	signed, err := s.Sign(claims)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s?link=%s", s.baseURL, claims.SessionID, url.QueryEscape(signed)), nil
}

// Verify parses a signed assertion and returns its claims. Expired or
// tampered assertions fail with an error from the jwt library.
func (s *MagicLinkSigner) Verify(assertion string) (MagicLinkClaims, error) {
	if s == nil {
		return MagicLinkClaims{}, errors.New("magic link signer is not configured")
	}

	parsed, err := jwt.Parse(assertion, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(magicLinkIssuer), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return MagicLinkClaims{}, err
	}

	mapped, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return MagicLinkClaims{}, errors.New("invalid magic link claims")
	}

	claims := MagicLinkClaims{}
	if sid, ok := mapped["sid"].(string); ok {
		claims.SessionID = sid
	}
	if sub, ok := mapped["sub"].(string); ok {
		claims.Name = sub
	}
	if side, ok := mapped["side"].(string); ok {
		claims.Side = side
	}
	if claims.SessionID == "" || claims.Name == "" {
		return MagicLinkClaims{}, errors.New("magic link claims are incomplete")
	}
	return claims, nil
}
