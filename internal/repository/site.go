package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/krishn-mehta/speak-code-build-sub000/internal/model"
)

type SiteRepository interface {
	FindByID(ctx context.Context, id string) (*model.Site, error)
	FindByOwnerID(ctx context.Context, ownerID string, limit, offset int) ([]model.Site, error)
	CountByOwnerID(ctx context.Context, ownerID string) (int, error)
	Create(ctx context.Context, params model.CreateSiteParams) (*model.Site, error)
	// UpdateContent sets the current-content fields and version pointer. The
	// caller runs this in the same transaction as the version insert so the
	// site row can never drift from its highest-numbered version.
	UpdateContent(ctx context.Context, id string, content model.SiteContent, currentVersion int) (*model.Site, error)
	UpdateStatusMetadata(ctx context.Context, id string, metadata json.RawMessage) error
	Delete(ctx context.Context, id string) error
	WithTx(tx *sqlx.Tx) SiteRepository
}

type siteRepo struct {
	db sqlxDB
}

func NewSiteRepository(db *sqlx.DB) SiteRepository {
	return &siteRepo{db: db}
}

func (r *siteRepo) WithTx(tx *sqlx.Tx) SiteRepository {
	return &siteRepo{db: tx}
}

func (r *siteRepo) FindByID(ctx context.Context, id string) (*model.Site, error) {
	var site model.Site
	err := r.db.GetContext(ctx, &site, `
		SELECT * FROM sites WHERE id = $1
	`, id)
	return HandleNotFound(&site, err)
}

func (r *siteRepo) FindByOwnerID(ctx context.Context, ownerID string, limit, offset int) ([]model.Site, error) {
	var sites []model.Site
	err := r.db.SelectContext(ctx, &sites, `
		SELECT * FROM sites
		WHERE owner_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return sites, nil
}

func (r *siteRepo) CountByOwnerID(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM sites WHERE owner_id = $1`, ownerID)
	return count, err
}

func (r *siteRepo) Create(ctx context.Context, params model.CreateSiteParams) (*model.Site, error) {
	var site model.Site
	err := r.db.GetContext(ctx, &site, `
		INSERT INTO sites (owner_id, conversation_id, title, description, markup, style, script, template_kind, current_version, status_metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9)
		RETURNING *
	`, params.OwnerID, params.ConversationID, params.Title, params.Description,
		params.Content.Markup, params.Content.Style, params.Content.Script,
		params.TemplateKind, params.StatusMetadata)
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *siteRepo) UpdateContent(ctx context.Context, id string, content model.SiteContent, currentVersion int) (*model.Site, error) {
	var site model.Site
	err := r.db.GetContext(ctx, &site, `
		UPDATE sites SET
			markup = $2,
			style = $3,
			script = $4,
			current_version = $5,
			updated_at = $6
		WHERE id = $1
		RETURNING *
	`, id, content.Markup, content.Style, content.Script, currentVersion, time.Now())
	return HandleNotFound(&site, err)
}

func (r *siteRepo) UpdateStatusMetadata(ctx context.Context, id string, metadata json.RawMessage) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sites SET status_metadata = $2, updated_at = $3 WHERE id = $1
	`, id, metadata, time.Now())
	return err
}

func (r *siteRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sites WHERE id = $1`, id)
	return err
}
