package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/procurement-auth/internal/cache"
	"github.com/spec-kit/procurement-auth/pkg/util"
)

var testBypassPrefixes = []string{"/auth/login", "/health", "/public"}

func newGuardApp(t *testing.T) (*fiber.App, *TokenCodec, *miniredis.Miniredis, cache.AuthorityCache) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	authorities := cache.NewRedisAuthorityCache(client, time.Hour, 500*time.Millisecond, zap.NewNop())
	codec := newTestCodec("guard-secret")
	guard := NewGuard(codec, authorities, "access_token", testBypassPrefixes, zap.NewNop())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := util.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{
				"code":    de.Code,
				"message": de.Message,
			}})
		},
	})
	app.Use(guard.Handle)

	app.Get("/protected", func(c *fiber.Ctx) error {
		principal, ok := CurrentPrincipal(c)
		if !ok {
			return fiber.NewError(http.StatusInternalServerError, "no principal")
		}
		return c.JSON(fiber.Map{
			"subject":     principal.Subject,
			"authorities": principal.Authorities,
		})
	})
	app.Post("/auth/login", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "public"})
	})
	app.Get("/health/live", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	return app, codec, mr, authorities
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload.Error.Code
}

func TestGuardRejectsMissingToken(t *testing.T) {
	app, _, _, _ := newGuardApp(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "MISSING_TOKEN", errorCode(t, resp))
}

func TestGuardRejectsInvalidToken(t *testing.T) {
	app, _, _, _ := newGuardApp(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "garbage"})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_TOKEN", errorCode(t, resp))
}

func TestGuardRejectsExpiredToken(t *testing.T) {
	app, codec, _, authorities := newGuardApp(t)

	require.NoError(t, authorities.Put(context.Background(), "buyer01", []string{"ROLE_BUYER"}))
	token, _, err := codec.issue("buyer01", "ROLE_BUYER", -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "EXPIRED_TOKEN", errorCode(t, resp))
}

func TestGuardRejectsTokenSignedWithOtherSecret(t *testing.T) {
	app, _, _, authorities := newGuardApp(t)

	require.NoError(t, authorities.Put(context.Background(), "buyer01", []string{"ROLE_BUYER"}))
	other := newTestCodec("other-secret")
	token, _, err := other.IssueAccess("buyer01", []string{"ROLE_BUYER"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_TOKEN", errorCode(t, resp))
}

func TestGuardRejectsCacheMissDespiteValidToken(t *testing.T) {
	app, codec, _, _ := newGuardApp(t)

	// Valid unexpired token whose embedded snapshot claims an authority, but
	// no cache entry: must reject, never allow on the snapshot.
	token, _, err := codec.IssueAccess("buyer01", []string{"ROLE_BUYER"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "AUTHORITIES_NOT_FOUND", errorCode(t, resp))
}

func TestGuardRejectsWhenCacheDown(t *testing.T) {
	app, codec, mr, authorities := newGuardApp(t)

	require.NoError(t, authorities.Put(context.Background(), "buyer01", []string{"ROLE_BUYER"}))
	token, _, err := codec.IssueAccess("buyer01", []string{"ROLE_BUYER"})
	require.NoError(t, err)
	mr.Close()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UPSTREAM_TIMEOUT", errorCode(t, resp))
}

func TestGuardAllowsResolvedPrincipal(t *testing.T) {
	app, codec, _, authorities := newGuardApp(t)

	// The cache, not the token, is authoritative: the snapshot in the token
	// says ROLE_BUYER but the cache has been rewritten since.
	require.NoError(t, authorities.Put(context.Background(), "buyer01", []string{"ROLE_SUPPLIER"}))
	token, _, err := codec.IssueAccess("buyer01", []string{"ROLE_BUYER"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var payload struct {
		Subject     string   `json:"subject"`
		Authorities []string `json:"authorities"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "buyer01", payload.Subject)
	assert.Equal(t, []string{"ROLE_SUPPLIER"}, payload.Authorities)
}

func TestGuardBypassesAllowListedPaths(t *testing.T) {
	app, _, _, _ := newGuardApp(t)

	for _, path := range []string{"/auth/login", "/health/live"} {
		method := http.MethodGet
		if path == "/auth/login" {
			method = http.MethodPost
		}
		req := httptest.NewRequest(method, path, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
