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
)

// RefreshResult is the outcome of a refresh exchange. RefreshToken always
// holds a usable value: the rotated token when rotation fired, otherwise the
// presented one.
type RefreshResult struct {
	Subject          string
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	Rotated          bool
}

// RefreshService exchanges a refresh token for a new access token, rotating
// the stored refresh token when its remaining validity drops below the
// configured window.
type RefreshService struct {
	refreshes      repository.RefreshRecordRepository
	authorities    cache.AuthorityCache
	codec          *auth.TokenCodec
	dispatcher     events.Dispatcher
	rotationWindow time.Duration
	logger         *zap.Logger
}

// RefreshDependencies encapsulates collaborator requirements.
type RefreshDependencies struct {
	RefreshRepo repository.RefreshRecordRepository
	Authorities cache.AuthorityCache
	Codec       *auth.TokenCodec
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewRefreshService builds the service.
func NewRefreshService(cfg config.Config, deps RefreshDependencies) *RefreshService {
	return &RefreshService{
		refreshes:      deps.RefreshRepo,
		authorities:    deps.Authorities,
		codec:          deps.Codec,
		dispatcher:     deps.Dispatcher,
		rotationWindow: cfg.Auth.RotationWindow(),
		logger:         deps.Logger,
	}
}

// Refresh validates the presented token against the store and issues a new
// access token from the cached authorities. Lookup is by the literal token
// string, so a superseded token fails here even though its own signature and
// expiry are still good.
func (s *RefreshService) Refresh(ctx context.Context, presented string) (*RefreshResult, error) {
	claims, err := s.codec.Decode(presented)
	if err != nil {
		return nil, err
	}

	record, err := s.refreshes.GetByToken(ctx, presented)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrRefreshTokenNotFound
		}
		return nil, err
	}

	if record.Expired(time.Now()) {
		if err := s.refreshes.DeleteBySubject(ctx, record.Subject); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("expired refresh record cleanup failed", zap.String("subject", record.Subject), zap.Error(err))
		}
		return nil, auth.ErrRefreshTokenExpired
	}

	subject := claims.Subject
	authorities, err := s.authorities.Get(ctx, subject)
	if err != nil {
		if errors.Is(err, cache.ErrUnavailable) {
			return nil, auth.ErrUpstreamTimeout
		}
		return nil, auth.ErrAuthoritiesNotFound
	}

	accessToken, accessExp, err := s.codec.IssueAccess(subject, authorities)
	if err != nil {
		return nil, err
	}

	result := &RefreshResult{
		Subject:          subject,
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     record.Token,
		RefreshExpiresAt: record.ExpiresAt,
	}

	if auth.ExpiringWithin(record.ExpiresAt, s.rotationWindow) {
		if err := s.rotate(ctx, result); err != nil {
			return nil, err
		}
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTokenRefreshed,
		Subject:   subject,
		Timestamp: time.Now(),
		Payload:   events.TokenRefreshedPayload{Rotated: result.Rotated},
	})

	return result, nil
}

// rotate overwrites the subject's record with a fresh token. Last write wins
// under concurrent refreshes; access tokens already issued stay valid.
func (s *RefreshService) rotate(ctx context.Context, result *RefreshResult) error {
	refreshToken, refreshExp, err := s.codec.IssueRefresh(result.Subject)
	if err != nil {
		return err
	}

	record := &domain.RefreshRecord{
		Subject:   result.Subject,
		Token:     refreshToken,
		ExpiresAt: refreshExp,
	}
	if err := s.refreshes.Upsert(ctx, record); err != nil {
		return err
	}

	result.RefreshToken = refreshToken
	result.RefreshExpiresAt = refreshExp
	result.Rotated = true

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTokenRotated,
		Subject:   result.Subject,
		Timestamp: time.Now(),
	})
	return nil
}
