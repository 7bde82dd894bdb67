package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/krishn-mehta/speak-code-build-sub000/internal/model"
)

// SiteVersionRepository owns the immutable history. Versions are only ever
// inserted; a unique (site_id, version_number) index is the last line of
// defence against two writers claiming the same number.
type SiteVersionRepository interface {
	Create(ctx context.Context, params model.CreateSiteVersionParams) (*model.SiteVersion, error)
	FindBySiteAndNumber(ctx context.Context, siteID string, versionNumber int) (*model.SiteVersion, error)
	FindBySiteID(ctx context.Context, siteID string) ([]model.SiteVersion, error)
	MaxVersionNumber(ctx context.Context, siteID string) (int, error)
	DeleteBySiteID(ctx context.Context, siteID string) error
	WithTx(tx *sqlx.Tx) SiteVersionRepository
}

type siteVersionRepo struct {
	db sqlxDB
}

func NewSiteVersionRepository(db *sqlx.DB) SiteVersionRepository {
	return &siteVersionRepo{db: db}
}

func (r *siteVersionRepo) WithTx(tx *sqlx.Tx) SiteVersionRepository {
	return &siteVersionRepo{db: tx}
}

func (r *siteVersionRepo) Create(ctx context.Context, params model.CreateSiteVersionParams) (*model.SiteVersion, error) {
	var version model.SiteVersion
	err := r.db.GetContext(ctx, &version, `
		INSERT INTO site_versions (site_id, version_number, markup, style, script, change_summary)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, params.SiteID, params.VersionNumber,
		params.Content.Markup, params.Content.Style, params.Content.Script,
		params.ChangeSummary)
	if err != nil {
		return nil, err
	}
	return &version, nil
}

func (r *siteVersionRepo) FindBySiteAndNumber(ctx context.Context, siteID string, versionNumber int) (*model.SiteVersion, error) {
	var version model.SiteVersion
	err := r.db.GetContext(ctx, &version, `
		SELECT * FROM site_versions
		WHERE site_id = $1 AND version_number = $2
	`, siteID, versionNumber)
	return HandleNotFound(&version, err)
}

func (r *siteVersionRepo) FindBySiteID(ctx context.Context, siteID string) ([]model.SiteVersion, error) {
	var versions []model.SiteVersion
	err := r.db.SelectContext(ctx, &versions, `
		SELECT * FROM site_versions
		WHERE site_id = $1
		ORDER BY version_number ASC
	`, siteID)
	if err != nil {
		return nil, err
	}
	return versions, nil
}

func (r *siteVersionRepo) MaxVersionNumber(ctx context.Context, siteID string) (int, error) {
	var max int
	err := r.db.GetContext(ctx, &max, `
		SELECT COALESCE(MAX(version_number), 0) FROM site_versions WHERE site_id = $1
	`, siteID)
	return max, err
}

func (r *siteVersionRepo) DeleteBySiteID(ctx context.Context, siteID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM site_versions WHERE site_id = $1`, siteID)
	return err
}
