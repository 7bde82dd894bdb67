package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/krishn-mehta/speak-code-build-sub000/internal/model"
)

type ConversationRepository interface {
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	FindByOwnerID(ctx context.Context, ownerID string, limit, offset int) ([]model.Conversation, error)
	Create(ctx context.Context, params model.CreateConversationParams) (*model.Conversation, error)
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	WithTx(tx *sqlx.Tx) ConversationRepository
}

type conversationRepo struct {
	db sqlxDB
}

func NewConversationRepository(db *sqlx.DB) ConversationRepository {
	return &conversationRepo{db: db}
}

func (r *conversationRepo) WithTx(tx *sqlx.Tx) ConversationRepository {
	return &conversationRepo{db: tx}
}

func (r *conversationRepo) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.GetContext(ctx, &conv, `
		SELECT * FROM conversations WHERE id = $1
	`, id)
	return HandleNotFound(&conv, err)
}

func (r *conversationRepo) FindByOwnerID(ctx context.Context, ownerID string, limit, offset int) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := r.db.SelectContext(ctx, &convs, `
		SELECT * FROM conversations
		WHERE owner_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return convs, nil
}

func (r *conversationRepo) Create(ctx context.Context, params model.CreateConversationParams) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.GetContext(ctx, &conv, `
		INSERT INTO conversations (owner_id, title)
		VALUES ($1, $2)
		RETURNING *
	`, params.OwnerID, params.Title)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepo) Touch(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET updated_at = $2 WHERE id = $1
	`, id, time.Now())
	return err
}

func (r *conversationRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	return err
}
