package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/procurement-auth/internal/auth"
	"github.com/spec-kit/procurement-auth/internal/cache"
	"github.com/spec-kit/procurement-auth/internal/config"
	"github.com/spec-kit/procurement-auth/internal/domain"
	"github.com/spec-kit/procurement-auth/internal/events"
	"github.com/spec-kit/procurement-auth/internal/repository"
	"github.com/spec-kit/procurement-auth/pkg/util"
)

// LoginResult carries everything the transport needs to set token carriers.
type LoginResult struct {
	Subject          string
	Authorities      []string
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// LoginService verifies credentials and establishes the subject's
// authenticated state: authority cache entry, access token, refresh record.
type LoginService struct {
	accounts    repository.AccountRepository
	refreshes   repository.RefreshRecordRepository
	authorities cache.AuthorityCache
	codec       *auth.TokenCodec
	dispatcher  events.Dispatcher
	bcryptCost  int
	logger      *zap.Logger
}

// LoginDependencies encapsulates collaborator requirements.
type LoginDependencies struct {
	AccountRepo repository.AccountRepository
	RefreshRepo repository.RefreshRecordRepository
	Authorities cache.AuthorityCache
	Codec       *auth.TokenCodec
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewLoginService builds the service.
func NewLoginService(cfg config.Config, deps LoginDependencies) *LoginService {
	return &LoginService{
		accounts:    deps.AccountRepo,
		refreshes:   deps.RefreshRepo,
		authorities: deps.Authorities,
		codec:       deps.Codec,
		dispatcher:  deps.Dispatcher,
		bcryptCost:  cfg.Auth.BcryptCost,
		logger:      deps.Logger,
	}
}

// Login authenticates a subject. Unknown subject, wrong password and
// deactivated account all fail identically so callers cannot enumerate
// usernames.
func (s *LoginService) Login(ctx context.Context, subject, password string) (*LoginResult, error) {
	account, err := s.accounts.GetBySubject(ctx, subject)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, s.failLogin(ctx, "unknown subject")
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, s.failLogin(ctx, "password mismatch")
	}
	if !account.Active {
		return nil, s.failLogin(ctx, "account deactivated")
	}

	if err := s.authorities.Put(ctx, account.Subject, account.Authorities); err != nil {
		return nil, auth.ErrUpstreamTimeout
	}

	accessToken, accessExp, err := s.codec.IssueAccess(account.Subject, account.Authorities)
	if err != nil {
		return nil, err
	}
	refreshToken, refreshExp, err := s.codec.IssueRefresh(account.Subject)
	if err != nil {
		return nil, err
	}

	// Overwrites any previous record for this subject: one active refresh
	// token per subject, so a login supersedes other sessions' refresh tokens.
	record := &domain.RefreshRecord{
		Subject:   account.Subject,
		Token:     refreshToken,
		ExpiresAt: refreshExp,
	}
	if err := s.refreshes.Upsert(ctx, record); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventLoginSucceeded,
		Subject:   account.Subject,
		Timestamp: time.Now(),
	})

	return &LoginResult{
		Subject:          account.Subject,
		Authorities:      account.Authorities,
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Register creates a new account. Duplicate subjects conflict.
func (s *LoginService) Register(ctx context.Context, subject, password string, authorities []string) (*domain.Account, error) {
	if _, err := s.accounts.GetBySubject(ctx, subject); err == nil {
		return nil, util.NewConflict("subject already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		Subject:      subject,
		PasswordHash: hash,
		Authorities:  authorities,
		Active:       true,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Logout tears down the subject's authenticated state: the cache entry goes
// so the guard rejects further requests, and the refresh record goes so the
// outstanding refresh token cannot be exchanged.
func (s *LoginService) Logout(ctx context.Context, subject string) error {
	if err := s.authorities.Delete(ctx, subject); err != nil {
		s.logger.Warn("cache invalidation on logout failed", zap.String("subject", subject), zap.Error(err))
	}
	if err := s.refreshes.DeleteBySubject(ctx, subject); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventLoggedOut,
		Subject:   subject,
		Timestamp: time.Now(),
	})
	return nil
}

func (s *LoginService) failLogin(ctx context.Context, reason string) error {
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventLoginFailed,
		Timestamp: time.Now(),
		Payload:   events.LoginFailedPayload{Reason: reason},
	})
	return auth.ErrInvalidCredentials
}
