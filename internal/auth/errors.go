package auth

import (
	"errors"

	"github.com/spec-kit/procurement-auth/pkg/util"
)

// Sentinel errors for every way authentication can fail. Services and the
// guard return these; the HTTP boundary maps them to uniform 401 responses.
var (
	ErrMissingToken         = errors.New("missing token")
	ErrInvalidToken         = errors.New("invalid token")
	ErrExpiredToken         = errors.New("expired token")
	ErrAuthoritiesNotFound  = errors.New("authorities not found")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUpstreamTimeout      = errors.New("upstream timeout")
)

// ToDomain converts an auth sentinel into the boundary's DomainError. Every
// taxonomy entry surfaces as 401; anything else is internal.
func ToDomain(err error) error {
	switch {
	case errors.Is(err, ErrMissingToken):
		return util.NewUnauthorized("MISSING_TOKEN", "missing token")
	case errors.Is(err, ErrInvalidToken):
		return util.NewUnauthorized("INVALID_TOKEN", "invalid or expired token")
	case errors.Is(err, ErrExpiredToken):
		return util.NewUnauthorized("EXPIRED_TOKEN", "invalid or expired token")
	case errors.Is(err, ErrAuthoritiesNotFound):
		return util.NewUnauthorized("AUTHORITIES_NOT_FOUND", "authorities not found")
	case errors.Is(err, ErrRefreshTokenNotFound):
		return util.NewUnauthorized("REFRESH_TOKEN_NOT_FOUND", "refresh token not recognized")
	case errors.Is(err, ErrRefreshTokenExpired):
		return util.NewUnauthorized("REFRESH_TOKEN_EXPIRED", "refresh token expired")
	case errors.Is(err, ErrInvalidCredentials):
		return util.NewUnauthorized("INVALID_CREDENTIALS", "invalid credentials")
	case errors.Is(err, ErrUpstreamTimeout):
		return util.NewUnauthorized("UPSTREAM_TIMEOUT", "authorities not found")
	default:
		return util.MapError(err)
	}
}
