package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/krishn-mehta/speak-code-build-sub000/internal/audit"
	apperrors "github.com/krishn-mehta/speak-code-build-sub000/internal/errors"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/model"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/repository"
)

// SiteService owns artifact identity, current content and the immutable
// version history. It raises but never self-heals: token compensation on
// failure is the orchestrator's job.
type SiteService struct {
	tx          TxRunner
	siteRepo    repository.SiteRepository
	versionRepo repository.SiteVersionRepository
	convRepo    repository.ConversationRepository
}

func NewSiteService(
	tx TxRunner,
	siteRepo repository.SiteRepository,
	versionRepo repository.SiteVersionRepository,
	convRepo repository.ConversationRepository,
) *SiteService {
	return &SiteService{
		tx:          tx,
		siteRepo:    siteRepo,
		versionRepo: versionRepo,
		convRepo:    convRepo,
	}
}

// Create writes the site and its version 1 in one transaction, so a partial
// artifact with missing history is never observable.
func (s *SiteService) Create(ctx context.Context, params model.CreateSiteParams) (*model.Site, error) {
	var site *model.Site
	err := s.tx.WithTx(ctx, func(tx TxHandle) error {
		created, err := tx.Sites().Create(ctx, params)
		if err != nil {
			return err
		}
		if _, err := tx.SiteVersions().Create(ctx, model.CreateSiteVersionParams{
			SiteID:        created.ID,
			VersionNumber: 1,
			Content:       params.Content,
			ChangeSummary: "Initial generation",
		}); err != nil {
			return err
		}
		site = created
		return nil
	})
	if err != nil {
		return nil, apperrors.Persistence(err)
	}

	if params.ConversationID != nil {
		if err := s.convRepo.Touch(ctx, *params.ConversationID); err != nil {
			log.Warn().Err(err).Str("conversationId", *params.ConversationID).Msg("failed to touch conversation")
		}
	}

	log.Info().
		Str("siteId", site.ID).
		Str("ownerId", site.OwnerID).
		Str("templateKind", string(site.TemplateKind)).
		Msg("site created")

	return site, nil
}

// AppendVersion writes the next version and updates the site's current
// fields as one transaction. A concurrent append for the same site loses the
// race on the (site_id, version_number) unique index and surfaces as a
// version conflict, never a silent overwrite. statusMetadata replaces the
// site's previous metadata so it always describes the operation that
// produced the current version; nil clears it.
func (s *SiteService) AppendVersion(ctx context.Context, siteID, ownerID string, content model.SiteContent, changeSummary string, statusMetadata *json.RawMessage) (*model.Site, error) {
	if _, err := s.requireOwned(ctx, siteID, ownerID); err != nil {
		return nil, err
	}

	var site *model.Site
	err := s.tx.WithTx(ctx, func(tx TxHandle) error {
		max, err := tx.SiteVersions().MaxVersionNumber(ctx, siteID)
		if err != nil {
			return err
		}
		next := max + 1

		if _, err := tx.SiteVersions().Create(ctx, model.CreateSiteVersionParams{
			SiteID:        siteID,
			VersionNumber: next,
			Content:       content,
			ChangeSummary: changeSummary,
		}); err != nil {
			return err
		}

		updated, err := tx.Sites().UpdateContent(ctx, siteID, content, next)
		if err != nil {
			return err
		}
		if updated == nil {
			return apperrors.NotFound("Site")
		}

		var meta json.RawMessage
		if statusMetadata != nil {
			meta = *statusMetadata
		}
		if err := tx.Sites().UpdateStatusMetadata(ctx, siteID, meta); err != nil {
			return err
		}
		updated.StatusMetadata = statusMetadata

		site = updated
		return nil
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.VersionConflict(siteID)
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Persistence(err)
	}

	log.Info().
		Str("siteId", siteID).
		Int("version", site.CurrentVersion).
		Msg("version appended")

	return site, nil
}

// Restore appends a new version whose content equals a prior version's.
// Restoring to version K when the latest is N produces N+1; history is never
// rewound.
func (s *SiteService) Restore(ctx context.Context, siteID, ownerID string, targetVersion int) (*model.Site, error) {
	if _, err := s.requireOwned(ctx, siteID, ownerID); err != nil {
		return nil, err
	}

	version, err := s.versionRepo.FindBySiteAndNumber(ctx, siteID, targetVersion)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if version == nil {
		return nil, apperrors.NotFound("Version")
	}

	summary := fmt.Sprintf("Restored from version %d", targetVersion)
	return s.AppendVersion(ctx, siteID, ownerID, version.Content(), summary, nil)
}

// Delete removes the site and its whole history. Irreversible; confirmation
// is the UI shell's responsibility.
func (s *SiteService) Delete(ctx context.Context, siteID, ownerID string) error {
	if _, err := s.requireOwned(ctx, siteID, ownerID); err != nil {
		return err
	}

	err := s.tx.WithTx(ctx, func(tx TxHandle) error {
		if err := tx.SiteVersions().DeleteBySiteID(ctx, siteID); err != nil {
			return err
		}
		return tx.Sites().Delete(ctx, siteID)
	})
	if err != nil {
		return apperrors.Persistence(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventSiteDelete, UserID: ownerID, SiteID: siteID})
	log.Info().Str("siteId", siteID).Str("ownerId", ownerID).Msg("site deleted")
	return nil
}

func (s *SiteService) Get(ctx context.Context, siteID, ownerID string) (*model.Site, error) {
	return s.requireOwned(ctx, siteID, ownerID)
}

func (s *SiteService) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Site, int, error) {
	sites, err := s.siteRepo.FindByOwnerID(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Database(err)
	}
	total, err := s.siteRepo.CountByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, 0, apperrors.Database(err)
	}
	return sites, total, nil
}

// ListVersions returns the full history ordered and gapless from 1.
func (s *SiteService) ListVersions(ctx context.Context, siteID, ownerID string) ([]model.SiteVersion, error) {
	if _, err := s.requireOwned(ctx, siteID, ownerID); err != nil {
		return nil, err
	}
	versions, err := s.versionRepo.FindBySiteID(ctx, siteID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return versions, nil
}

// requireOwned loads the site and checks ownership before any side effect.
func (s *SiteService) requireOwned(ctx context.Context, siteID, ownerID string) (*model.Site, error) {
	site, err := s.siteRepo.FindByID(ctx, siteID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if site == nil {
		return nil, apperrors.NotFound("Site")
	}
	if site.OwnerID != ownerID {
		return nil, apperrors.Forbidden("You do not own this site")
	}
	return site, nil
}
