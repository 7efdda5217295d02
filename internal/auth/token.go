package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/procurement-auth/internal/domain"
)

// TokenCodec issues and validates signed tokens. Access tokens embed a
// snapshot of the subject's authorities for self-description; that snapshot
// is never consulted for authorization, the authority cache is.
type TokenCodec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenCodec builds a codec from the signing secret and TTL policy.
func NewTokenCodec(secret, issuer string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	if accessTTL <= 0 {
		accessTTL = 30 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 14 * 24 * time.Hour
	}
	return &TokenCodec{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// TokenClaims describes the JWT payload.
type TokenClaims struct {
	Authorities string `json:"authorities,omitempty"`
	jwt.RegisteredClaims
}

// AuthorityList parses the embedded authority snapshot.
func (c *TokenClaims) AuthorityList() []string {
	return domain.SplitAuthorities(c.Authorities)
}

// IssueAccess signs a short-lived access token carrying the authority snapshot.
func (tc *TokenCodec) IssueAccess(subject string, authorities []string) (string, time.Time, error) {
	return tc.issue(subject, domain.JoinAuthorities(authorities), tc.accessTTL)
}

// IssueRefresh signs a long-lived refresh token. Refresh tokens carry no
// authorities; the cache is re-read at exchange time.
func (tc *TokenCodec) IssueRefresh(subject string) (string, time.Time, error) {
	return tc.issue(subject, "", tc.refreshTTL)
}

func (tc *TokenCodec) issue(subject, authorities string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := &TokenClaims{
		Authorities: authorities,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    tc.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tc.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Decode verifies signature and expiry and returns the claims. Expiry is
// checked against wall-clock time at the moment of verification.
func (tc *TokenCodec) Decode(tokenStr string) (*TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tc.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExpiringWithin reports whether the given expiry falls inside the window
// from now. Used for the refresh rotation decision.
func ExpiringWithin(expiresAt time.Time, window time.Duration) bool {
	return time.Until(expiresAt) <= window
}
