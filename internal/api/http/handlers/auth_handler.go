package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/procurement-auth/internal/api/dto"
	"github.com/spec-kit/procurement-auth/internal/auth"
	"github.com/spec-kit/procurement-auth/internal/config"
	"github.com/spec-kit/procurement-auth/internal/service"
)

// AuthHandler exposes the login, refresh, registration and logout endpoints.
// Tokens travel only in HTTP-only path-scoped cookies.
type AuthHandler struct {
	login   *service.LoginService
	refresh *service.RefreshService
	cfg     config.AuthConfig
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(login *service.LoginService, refresh *service.RefreshService, cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{login: login, refresh: refresh, cfg: cfg}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Subject == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "subject and password required")
	}

	result, err := h.login.Login(c.UserContext(), req.Subject, req.Password)
	if err != nil {
		return auth.ToDomain(err)
	}

	h.setAccessCookie(c, result.AccessToken, result.AccessExpiresAt)
	h.setRefreshCookie(c, result.RefreshToken, result.RefreshExpiresAt)

	return c.JSON(dto.LoginResponse{
		Status:      "authenticated",
		Subject:     result.Subject,
		Authorities: result.Authorities,
	})
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Subject == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "subject and password required")
	}

	account, err := h.login.Register(c.UserContext(), req.Subject, req.Password, req.Authorities)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"id":      account.ID,
			"subject": account.Subject,
		},
	})
}

// Refresh handles POST /auth/refresh. The refresh cookie is the only carrier
// consulted; this path bypasses the access guard.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	presented := c.Cookies(h.cfg.RefreshCookieName)
	if presented == "" {
		return auth.ToDomain(auth.ErrMissingToken)
	}

	result, err := h.refresh.Refresh(c.UserContext(), presented)
	if err != nil {
		return auth.ToDomain(err)
	}

	h.setAccessCookie(c, result.AccessToken, result.AccessExpiresAt)
	if result.Rotated {
		h.setRefreshCookie(c, result.RefreshToken, result.RefreshExpiresAt)
	}

	return c.JSON(dto.RefreshResponse{
		Status:  "refreshed",
		Subject: result.Subject,
		Message: "access token reissued",
	})
}

// Logout handles POST /auth/logout on the protected surface.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.CurrentPrincipal(c)
	if !ok {
		return auth.ToDomain(auth.ErrMissingToken)
	}
	if err := h.login.Logout(c.UserContext(), principal.Subject); err != nil {
		return err
	}

	h.clearCookie(c, h.cfg.AccessCookieName, "/")
	h.clearCookie(c, h.cfg.RefreshCookieName, h.cfg.RefreshCookiePath)

	return c.JSON(fiber.Map{"status": "logged_out"})
}

// Me handles GET /auth/me, surfacing the verified principal.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.CurrentPrincipal(c)
	if !ok {
		return auth.ToDomain(auth.ErrMissingToken)
	}
	return c.JSON(dto.PrincipalResponse{
		Subject:     principal.Subject,
		Authorities: principal.Authorities,
	})
}

func (h *AuthHandler) setAccessCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.AccessCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.RefreshCookieName,
		Value:    token,
		Path:     h.cfg.RefreshCookiePath,
		Expires:  expires,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func (h *AuthHandler) clearCookie(c *fiber.Ctx, name, path string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}
