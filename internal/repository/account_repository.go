package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/procurement-auth/internal/domain"
)

// AccountRepository defines persistence access for principals.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetBySubject(ctx context.Context, subject string) (*domain.Account, error)
	SetActive(ctx context.Context, subject string, active bool) error
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (subject, password_hash, authorities, active)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		account.Subject,
		account.PasswordHash,
		domain.JoinAuthorities(account.Authorities),
		account.Active,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
}

func (r *accountRepository) GetBySubject(ctx context.Context, subject string) (*domain.Account, error) {
	const query = `
        SELECT id, subject, password_hash, authorities, active, created_at, updated_at
        FROM accounts WHERE subject=$1`

	var account domain.Account
	var authorities string
	if err := r.pool.QueryRow(ctx, query, subject).Scan(
		&account.ID,
		&account.Subject,
		&account.PasswordHash,
		&authorities,
		&account.Active,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	account.Authorities = domain.SplitAuthorities(authorities)
	return &account, nil
}

func (r *accountRepository) SetActive(ctx context.Context, subject string, active bool) error {
	const query = `
        UPDATE accounts SET active=$1, updated_at=NOW() WHERE subject=$2`

	cmd, err := r.pool.Exec(ctx, query, active, subject)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
