package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/procurement-auth/internal/cache"
)

// Guard authenticates every request that is not on the bypass list: extract
// the access cookie, decode it, resolve authorities from the cache, attach
// the principal. Any failure short-circuits with 401 before business
// handlers run.
type Guard struct {
	codec          *TokenCodec
	authorities    cache.AuthorityCache
	cookieName     string
	bypassPrefixes []string
	logger         *zap.Logger
}

// NewGuard constructs the middleware.
func NewGuard(codec *TokenCodec, authorities cache.AuthorityCache, cookieName string, bypassPrefixes []string, logger *zap.Logger) *Guard {
	return &Guard{
		codec:          codec,
		authorities:    authorities,
		cookieName:     cookieName,
		bypassPrefixes: bypassPrefixes,
		logger:         logger,
	}
}

// Handle enforces authentication for protected routes.
func (g *Guard) Handle(c *fiber.Ctx) error {
	if g.bypassed(c.Path()) {
		return c.Next()
	}

	tokenStr := c.Cookies(g.cookieName)
	if tokenStr == "" {
		return ToDomain(ErrMissingToken)
	}

	claims, err := g.codec.Decode(tokenStr)
	if err != nil {
		return ToDomain(err)
	}

	subject := claims.Subject
	authorities, err := g.authorities.Get(c.UserContext(), subject)
	if err != nil {
		// The token payload carries an authority snapshot, but it is never a
		// fallback here: a missing entry forces re-authentication.
		if errors.Is(err, cache.ErrUnavailable) {
			g.logger.Warn("rejecting request on cache failure",
				zap.String("subject", subject), zap.String("path", c.Path()))
			return ToDomain(ErrUpstreamTimeout)
		}
		return ToDomain(ErrAuthoritiesNotFound)
	}

	setPrincipal(c, &Principal{Subject: subject, Authorities: authorities})
	return c.Next()
}

func (g *Guard) bypassed(path string) bool {
	for _, prefix := range g.bypassPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
