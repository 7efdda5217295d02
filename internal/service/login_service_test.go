package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/procurement-auth/internal/auth"
	"github.com/spec-kit/procurement-auth/internal/config"
	"github.com/spec-kit/procurement-auth/internal/domain"
	"github.com/spec-kit/procurement-auth/internal/events"
)

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "service-test-secret",
			Issuer:                "procurement-auth-test",
			AccessTokenTTLMinutes: 30,
			RefreshTokenTTLHours:  336,
			RotationWindowHours:   72,
			BcryptCost:            bcrypt.MinCost,
		},
	}
}

func testCodec(cfg config.Config) *auth.TokenCodec {
	return auth.NewTokenCodec(
		cfg.Auth.JWTSecret,
		cfg.Auth.Issuer,
		cfg.Auth.AccessTokenTTL(),
		cfg.Auth.RefreshTokenTTL(),
	)
}

type loginFixture struct {
	service   *LoginService
	accounts  *fakeAccountRepo
	refreshes *fakeRefreshRepo
	cache     *fakeAuthorityCache
	codec     *auth.TokenCodec
}

func newLoginFixture(t *testing.T) *loginFixture {
	t.Helper()

	cfg := testConfig()
	codec := testCodec(cfg)
	accounts := newFakeAccountRepo()
	refreshes := newFakeRefreshRepo()
	authorities := newFakeAuthorityCache()

	svc := NewLoginService(cfg, LoginDependencies{
		AccountRepo: accounts,
		RefreshRepo: refreshes,
		Authorities: authorities,
		Codec:       codec,
		Dispatcher:  events.NewInMemoryDispatcher(),
		Logger:      zap.NewNop(),
	})

	return &loginFixture{service: svc, accounts: accounts, refreshes: refreshes, cache: authorities, codec: codec}
}

func (f *loginFixture) seedAccount(t *testing.T, subject, password string, authorities []string, active bool) {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	f.accounts.accounts[subject] = &domain.Account{
		ID:           subject + "-id",
		Subject:      subject,
		PasswordHash: hash,
		Authorities:  authorities,
		Active:       active,
	}
}

func TestLoginSuccess(t *testing.T) {
	f := newLoginFixture(t)
	f.seedAccount(t, "buyer01", "secret-pass", []string{"ROLE_BUYER"}, true)

	result, err := f.service.Login(context.Background(), "buyer01", "secret-pass")
	require.NoError(t, err)

	assert.Equal(t, "buyer01", result.Subject)
	assert.Equal(t, []string{"ROLE_BUYER"}, result.Authorities)
	assert.True(t, result.AccessExpiresAt.After(time.Now()))
	assert.True(t, result.RefreshExpiresAt.After(result.AccessExpiresAt))

	// Cache populated.
	cached, err := f.cache.Get(context.Background(), "buyer01")
	require.NoError(t, err)
	assert.Equal(t, []string{"ROLE_BUYER"}, cached)

	// Refresh record stored under the issued token.
	record, err := f.refreshes.GetByToken(context.Background(), result.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "buyer01", record.Subject)

	// Both tokens decode to the subject.
	claims, err := f.codec.Decode(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "buyer01", claims.Subject)
}

func TestLoginFailsUniformly(t *testing.T) {
	f := newLoginFixture(t)
	f.seedAccount(t, "buyer01", "secret-pass", []string{"ROLE_BUYER"}, true)
	f.seedAccount(t, "inactive01", "secret-pass", []string{"ROLE_BUYER"}, false)

	cases := map[string]struct {
		subject  string
		password string
	}{
		"unknown subject":     {"ghost", "secret-pass"},
		"wrong password":      {"buyer01", "wrong"},
		"deactivated account": {"inactive01", "secret-pass"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.service.Login(context.Background(), tc.subject, tc.password)
			assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		})
	}
}

func TestLoginFailureLeavesNoState(t *testing.T) {
	f := newLoginFixture(t)
	f.seedAccount(t, "buyer01", "secret-pass", []string{"ROLE_BUYER"}, true)

	_, err := f.service.Login(context.Background(), "buyer01", "wrong")
	require.Error(t, err)

	_, err = f.cache.Get(context.Background(), "buyer01")
	assert.Error(t, err)
	_, err = f.refreshes.GetBySubject(context.Background(), "buyer01")
	assert.Error(t, err)
}

func TestLoginSupersedesPreviousRefreshRecord(t *testing.T) {
	f := newLoginFixture(t)
	f.seedAccount(t, "buyer01", "secret-pass", []string{"ROLE_BUYER"}, true)

	first, err := f.service.Login(context.Background(), "buyer01", "secret-pass")
	require.NoError(t, err)
	second, err := f.service.Login(context.Background(), "buyer01", "secret-pass")
	require.NoError(t, err)

	// Single record per subject: only the latest token resolves.
	_, err = f.refreshes.GetByToken(context.Background(), first.RefreshToken)
	assert.Error(t, err)
	record, err := f.refreshes.GetByToken(context.Background(), second.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "buyer01", record.Subject)
}

func TestLoginFailsClosedWhenCacheDown(t *testing.T) {
	f := newLoginFixture(t)
	f.seedAccount(t, "buyer01", "secret-pass", []string{"ROLE_BUYER"}, true)
	f.cache.unavailable = true

	_, err := f.service.Login(context.Background(), "buyer01", "secret-pass")
	assert.ErrorIs(t, err, auth.ErrUpstreamTimeout)
}

func TestRegisterAndDuplicate(t *testing.T) {
	f := newLoginFixture(t)

	account, err := f.service.Register(context.Background(), "supplier01", "secret-pass", []string{"ROLE_SUPPLIER"})
	require.NoError(t, err)
	assert.Equal(t, "supplier01", account.Subject)
	assert.True(t, account.Active)

	_, err = f.service.Register(context.Background(), "supplier01", "other-pass", nil)
	assert.Error(t, err)

	// Registered credentials log in.
	_, err = f.service.Login(context.Background(), "supplier01", "secret-pass")
	assert.NoError(t, err)
}

func TestLogoutInvalidatesCacheAndRecord(t *testing.T) {
	f := newLoginFixture(t)
	f.seedAccount(t, "buyer01", "secret-pass", []string{"ROLE_BUYER"}, true)

	result, err := f.service.Login(context.Background(), "buyer01", "secret-pass")
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(context.Background(), "buyer01"))

	_, err = f.cache.Get(context.Background(), "buyer01")
	assert.Error(t, err)
	_, err = f.refreshes.GetByToken(context.Background(), result.RefreshToken)
	assert.Error(t, err)

	// Logout is idempotent for a subject with no remaining record.
	assert.NoError(t, f.service.Logout(context.Background(), "buyer01"))
}
