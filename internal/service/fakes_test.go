package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/procurement-auth/internal/cache"
	"github.com/spec-kit/procurement-auth/internal/domain"
)

type fakeAccountRepo struct {
	accounts map[string]*domain.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: map[string]*domain.Account{}}
}

func (r *fakeAccountRepo) Create(_ context.Context, account *domain.Account) error {
	if _, ok := r.accounts[account.Subject]; ok {
		return errors.New("duplicate subject")
	}
	account.ID = account.Subject + "-id"
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	copied := *account
	r.accounts[account.Subject] = &copied
	return nil
}

func (r *fakeAccountRepo) GetBySubject(_ context.Context, subject string) (*domain.Account, error) {
	account, ok := r.accounts[subject]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *account
	return &copied, nil
}

func (r *fakeAccountRepo) SetActive(_ context.Context, subject string, active bool) error {
	account, ok := r.accounts[subject]
	if !ok {
		return pgx.ErrNoRows
	}
	account.Active = active
	return nil
}

type fakeRefreshRepo struct {
	bySubject map[string]*domain.RefreshRecord
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{bySubject: map[string]*domain.RefreshRecord{}}
}

func (r *fakeRefreshRepo) Upsert(_ context.Context, record *domain.RefreshRecord) error {
	now := time.Now()
	if existing, ok := r.bySubject[record.Subject]; ok {
		record.CreatedAt = existing.CreatedAt
	} else {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	copied := *record
	r.bySubject[record.Subject] = &copied
	return nil
}

func (r *fakeRefreshRepo) GetByToken(_ context.Context, token string) (*domain.RefreshRecord, error) {
	for _, record := range r.bySubject {
		if record.Token == token {
			copied := *record
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRefreshRepo) GetBySubject(_ context.Context, subject string) (*domain.RefreshRecord, error) {
	record, ok := r.bySubject[subject]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *record
	return &copied, nil
}

func (r *fakeRefreshRepo) DeleteBySubject(_ context.Context, subject string) error {
	if _, ok := r.bySubject[subject]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.bySubject, subject)
	return nil
}

type fakeAuthorityCache struct {
	entries     map[string][]string
	unavailable bool
}

func newFakeAuthorityCache() *fakeAuthorityCache {
	return &fakeAuthorityCache{entries: map[string][]string{}}
}

func (c *fakeAuthorityCache) Put(_ context.Context, subject string, authorities []string) error {
	if c.unavailable {
		return errors.Join(cache.ErrUnavailable, cache.ErrMiss)
	}
	c.entries[subject] = append([]string(nil), authorities...)
	return nil
}

func (c *fakeAuthorityCache) Get(_ context.Context, subject string) ([]string, error) {
	if c.unavailable {
		return nil, errors.Join(cache.ErrUnavailable, cache.ErrMiss)
	}
	authorities, ok := c.entries[subject]
	if !ok {
		return nil, cache.ErrMiss
	}
	return append([]string(nil), authorities...), nil
}

func (c *fakeAuthorityCache) Delete(_ context.Context, subject string) error {
	if c.unavailable {
		return errors.Join(cache.ErrUnavailable, cache.ErrMiss)
	}
	delete(c.entries, subject)
	return nil
}
