package auth

import "github.com/gofiber/fiber/v2"

const principalKey = "auth_principal"

// Principal is the verified caller for a single request: the token subject
// plus the authority set resolved from the cache. It lives only in the
// request's Locals and is never persisted.
type Principal struct {
	Subject     string
	Authorities []string
}

// HasAuthority reports whether the principal holds the given authority string.
func (p *Principal) HasAuthority(authority string) bool {
	for _, a := range p.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}

// CurrentPrincipal retrieves the verified caller. Valid only inside a request
// that passed the guard.
func CurrentPrincipal(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

func setPrincipal(c *fiber.Ctx, p *Principal) {
	c.Locals(principalKey, p)
}
