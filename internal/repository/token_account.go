package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/krishn-mehta/speak-code-build-sub000/internal/model"
)

type TokenAccountRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.TokenAccount, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.TokenAccount, error)
	Create(ctx context.Context, params model.CreateTokenAccountParams) (*model.TokenAccount, error)
	// DebitBalance decrements the balance only if it covers the amount, as a
	// single conditional write. Returns nil when the condition did not hold.
	DebitBalance(ctx context.Context, userID string, amount int) (*model.TokenAccount, error)
	// CreditBalance adds amount to the balance, capped at max_rollover.
	CreditBalance(ctx context.Context, userID string, amount int) (*model.TokenAccount, error)
	AdvancePeriodAnchor(ctx context.Context, userID string, next time.Time) error
	FindDueForRefill(ctx context.Context, now time.Time, limit int) ([]model.TokenAccount, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) TokenAccountRepository
}

type tokenAccountRepo struct {
	db sqlxDB
}

// sqlxDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sqlxDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func NewTokenAccountRepository(db *sqlx.DB) TokenAccountRepository {
	return &tokenAccountRepo{db: db}
}

func (r *tokenAccountRepo) WithTx(tx *sqlx.Tx) TokenAccountRepository {
	return &tokenAccountRepo{db: tx}
}

func (r *tokenAccountRepo) FindByUserID(ctx context.Context, userID string) (*model.TokenAccount, error) {
	var account model.TokenAccount
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM token_accounts WHERE user_id = $1
	`, userID)
	return HandleNotFound(&account, err)
}

func (r *tokenAccountRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.TokenAccount, error) {
	var account model.TokenAccount
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM token_accounts WHERE api_token_hash = $1
	`, tokenHash)
	return HandleNotFound(&account, err)
}

func (r *tokenAccountRepo) Create(ctx context.Context, params model.CreateTokenAccountParams) (*model.TokenAccount, error) {
	var account model.TokenAccount
	err := r.db.GetContext(ctx, &account, `
		INSERT INTO token_accounts (user_id, api_token_hash, current_balance, monthly_allowance, max_rollover, period_anchor)
		VALUES ($1, $2, $3, $3, $4, $5)
		RETURNING *
	`, params.UserID, params.APITokenHash, params.MonthlyAllowance, params.MaxRollover, params.PeriodAnchor)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *tokenAccountRepo) DebitBalance(ctx context.Context, userID string, amount int) (*model.TokenAccount, error) {
	var account model.TokenAccount
	err := r.db.GetContext(ctx, &account, `
		UPDATE token_accounts SET
			current_balance = current_balance - $2,
			updated_at = $3
		WHERE user_id = $1 AND current_balance >= $2
		RETURNING *
	`, userID, amount, time.Now())
	return HandleNotFound(&account, err)
}

func (r *tokenAccountRepo) CreditBalance(ctx context.Context, userID string, amount int) (*model.TokenAccount, error) {
	var account model.TokenAccount
	err := r.db.GetContext(ctx, &account, `
		UPDATE token_accounts SET
			current_balance = LEAST(current_balance + $2, max_rollover),
			updated_at = $3
		WHERE user_id = $1
		RETURNING *
	`, userID, amount, time.Now())
	return HandleNotFound(&account, err)
}

func (r *tokenAccountRepo) AdvancePeriodAnchor(ctx context.Context, userID string, next time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE token_accounts SET period_anchor = $2, updated_at = $3 WHERE user_id = $1
	`, userID, next, time.Now())
	return err
}

func (r *tokenAccountRepo) FindDueForRefill(ctx context.Context, now time.Time, limit int) ([]model.TokenAccount, error) {
	var accounts []model.TokenAccount
	err := r.db.SelectContext(ctx, &accounts, `
		SELECT * FROM token_accounts
		WHERE period_anchor <= $1
		ORDER BY period_anchor ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}
