package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/krishn-mehta/speak-code-build-sub000/internal/model"
)

// UsageRecordRepository is append-only: rows are the ledger's audit trail and
// are never updated or deleted.
type UsageRecordRepository interface {
	Create(ctx context.Context, params model.CreateUsageRecordParams) (*model.UsageRecord, error)
	FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.UsageRecord, error)
	CountByUserID(ctx context.Context, userID string) (int, error)
	// SumByUserID reconstructs a balance delta from the trail alone.
	SumByUserID(ctx context.Context, userID string) (int, error)
	WithTx(tx *sqlx.Tx) UsageRecordRepository
}

type usageRecordRepo struct {
	db sqlxDB
}

func NewUsageRecordRepository(db *sqlx.DB) UsageRecordRepository {
	return &usageRecordRepo{db: db}
}

func (r *usageRecordRepo) WithTx(tx *sqlx.Tx) UsageRecordRepository {
	return &usageRecordRepo{db: tx}
}

func (r *usageRecordRepo) Create(ctx context.Context, params model.CreateUsageRecordParams) (*model.UsageRecord, error) {
	var record model.UsageRecord
	err := r.db.GetContext(ctx, &record, `
		INSERT INTO usage_records (user_id, action_kind, amount, site_id)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, params.UserID, params.ActionKind, params.Amount, params.SiteID)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *usageRecordRepo) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.UsageRecord, error) {
	var records []model.UsageRecord
	err := r.db.SelectContext(ctx, &records, `
		SELECT * FROM usage_records
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *usageRecordRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM usage_records WHERE user_id = $1`, userID)
	return count, err
}

func (r *usageRecordRepo) SumByUserID(ctx context.Context, userID string) (int, error) {
	var sum int
	err := r.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0) FROM usage_records WHERE user_id = $1
	`, userID)
	return sum, err
}
