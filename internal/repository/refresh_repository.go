package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/procurement-auth/internal/domain"
)

// RefreshRecordRepository is the durable store for the single active refresh
// token per subject.
type RefreshRecordRepository interface {
	// Upsert writes the subject's record, overwriting any existing one.
	// Last write wins: the previous token string stops resolving.
	Upsert(ctx context.Context, record *domain.RefreshRecord) error
	GetByToken(ctx context.Context, token string) (*domain.RefreshRecord, error)
	GetBySubject(ctx context.Context, subject string) (*domain.RefreshRecord, error)
	DeleteBySubject(ctx context.Context, subject string) error
}

type refreshRecordRepository struct {
	pool *pgxpool.Pool
}

// NewRefreshRecordRepository returns a Postgres-backed implementation.
func NewRefreshRecordRepository(pool *pgxpool.Pool) RefreshRecordRepository {
	return &refreshRecordRepository{pool: pool}
}

func (r *refreshRecordRepository) Upsert(ctx context.Context, record *domain.RefreshRecord) error {
	const query = `
        INSERT INTO refresh_tokens (subject, token, expires_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (subject) DO UPDATE
        SET token=EXCLUDED.token, expires_at=EXCLUDED.expires_at, updated_at=NOW()
        RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		record.Subject,
		record.Token,
		record.ExpiresAt,
	).Scan(&record.CreatedAt, &record.UpdatedAt)
}

func (r *refreshRecordRepository) GetByToken(ctx context.Context, token string) (*domain.RefreshRecord, error) {
	const query = `
        SELECT subject, token, expires_at, created_at, updated_at
        FROM refresh_tokens WHERE token=$1`

	return r.scanOne(r.pool.QueryRow(ctx, query, token))
}

func (r *refreshRecordRepository) GetBySubject(ctx context.Context, subject string) (*domain.RefreshRecord, error) {
	const query = `
        SELECT subject, token, expires_at, created_at, updated_at
        FROM refresh_tokens WHERE subject=$1`

	return r.scanOne(r.pool.QueryRow(ctx, query, subject))
}

func (r *refreshRecordRepository) DeleteBySubject(ctx context.Context, subject string) error {
	const query = `DELETE FROM refresh_tokens WHERE subject=$1`

	cmd, err := r.pool.Exec(ctx, query, subject)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *refreshRecordRepository) scanOne(row pgx.Row) (*domain.RefreshRecord, error) {
	var record domain.RefreshRecord
	if err := row.Scan(
		&record.Subject,
		&record.Token,
		&record.ExpiresAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &record, nil
}
