package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/krishn-mehta/speak-code-build-sub000/internal/errors"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/model"
)

func newSiteFixture() (*SiteService, *mockSiteRepo, *mockSiteVersionRepo, *mockConversationRepo) {
	sites := new(mockSiteRepo)
	versions := new(mockSiteVersionRepo)
	convs := new(mockConversationRepo)
	tx := &fakeTx{sites: sites, versions: versions}
	svc := NewSiteService(tx, sites, versions, convs)
	return svc, sites, versions, convs
}

func ownedSite(id, ownerID string) *model.Site {
	return &model.Site{
		ID:             id,
		OwnerID:        ownerID,
		Title:          "My Site",
		Markup:         "<h1>Hello</h1>",
		Style:          "h1 { color: red; }",
		TemplateKind:   model.TemplatePortfolio,
		CurrentVersion: 3,
	}
}

func TestSiteCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("writes site and version 1 together", func(t *testing.T) {
		svc, sites, versions, _ := newSiteFixture()
		content := model.SiteContent{Markup: "<p>hi</p>", Style: "p {}"}
		sites.On("Create", ctx, mock.Anything).
			Return(&model.Site{ID: "site-1", OwnerID: "user-1", CurrentVersion: 1}, nil)
		versions.On("Create", ctx, model.CreateSiteVersionParams{
			SiteID:        "site-1",
			VersionNumber: 1,
			Content:       content,
			ChangeSummary: "Initial generation",
		}).Return(&model.SiteVersion{SiteID: "site-1", VersionNumber: 1}, nil)

		site, err := svc.Create(ctx, model.CreateSiteParams{
			OwnerID: "user-1",
			Title:   "My Site",
			Content: content,
		})
		require.NoError(t, err)
		assert.Equal(t, "site-1", site.ID)
		versions.AssertExpectations(t)
	})

	t.Run("touches the conversation when linked", func(t *testing.T) {
		svc, sites, versions, convs := newSiteFixture()
		convID := "conv-1"
		sites.On("Create", ctx, mock.Anything).
			Return(&model.Site{ID: "site-1", OwnerID: "user-1"}, nil)
		versions.On("Create", ctx, mock.Anything).Return(&model.SiteVersion{}, nil)
		convs.On("Touch", ctx, "conv-1").Return(nil)

		_, err := svc.Create(ctx, model.CreateSiteParams{
			OwnerID:        "user-1",
			ConversationID: &convID,
			Content:        model.SiteContent{Markup: "<p></p>"},
		})
		require.NoError(t, err)
		convs.AssertExpectations(t)
	})
}

func TestAppendVersion(t *testing.T) {
	ctx := context.Background()
	content := model.SiteContent{Markup: "<p>v4</p>", Style: ""}

	t.Run("assigns the next gapless number", func(t *testing.T) {
		svc, sites, versions, _ := newSiteFixture()
		sites.On("FindByID", ctx, "site-1").Return(ownedSite("site-1", "user-1"), nil)
		versions.On("MaxVersionNumber", ctx, "site-1").Return(3, nil)
		versions.On("Create", ctx, model.CreateSiteVersionParams{
			SiteID:        "site-1",
			VersionNumber: 4,
			Content:       content,
			ChangeSummary: "tweak",
		}).Return(&model.SiteVersion{SiteID: "site-1", VersionNumber: 4}, nil)
		sites.On("UpdateContent", ctx, "site-1", content, 4).
			Return(&model.Site{ID: "site-1", OwnerID: "user-1", CurrentVersion: 4}, nil)
		sites.On("UpdateStatusMetadata", ctx, "site-1", json.RawMessage(nil)).Return(nil)

		site, err := svc.AppendVersion(ctx, "site-1", "user-1", content, "tweak", nil)
		require.NoError(t, err)
		assert.Equal(t, 4, site.CurrentVersion)
	})

	t.Run("status metadata lands on the site row", func(t *testing.T) {
		svc, sites, versions, _ := newSiteFixture()
		meta := json.RawMessage(`{"fallbackUsed":true}`)
		sites.On("FindByID", ctx, "site-1").Return(ownedSite("site-1", "user-1"), nil)
		versions.On("MaxVersionNumber", ctx, "site-1").Return(3, nil)
		versions.On("Create", ctx, mock.Anything).Return(&model.SiteVersion{}, nil)
		sites.On("UpdateContent", ctx, "site-1", content, 4).
			Return(&model.Site{ID: "site-1", OwnerID: "user-1", CurrentVersion: 4}, nil)
		sites.On("UpdateStatusMetadata", ctx, "site-1", meta).Return(nil)

		site, err := svc.AppendVersion(ctx, "site-1", "user-1", content, "tweak", &meta)
		require.NoError(t, err)
		require.NotNil(t, site.StatusMetadata)
		assert.JSONEq(t, `{"fallbackUsed":true}`, string(*site.StatusMetadata))
		sites.AssertExpectations(t)
	})

	t.Run("lost race surfaces as version conflict", func(t *testing.T) {
		svc, sites, versions, _ := newSiteFixture()
		sites.On("FindByID", ctx, "site-1").Return(ownedSite("site-1", "user-1"), nil)
		versions.On("MaxVersionNumber", ctx, "site-1").Return(3, nil)
		versions.On("Create", ctx, mock.Anything).Return(nil, &pq.Error{Code: "23505"})

		_, err := svc.AppendVersion(ctx, "site-1", "user-1", content, "tweak", nil)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeVersionConflict))
	})

	t.Run("non-owner is forbidden before any write", func(t *testing.T) {
		svc, sites, versions, _ := newSiteFixture()
		sites.On("FindByID", ctx, "site-1").Return(ownedSite("site-1", "someone-else"), nil)

		_, err := svc.AppendVersion(ctx, "site-1", "user-1", content, "tweak", nil)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeForbidden))
		versions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unknown site is not found", func(t *testing.T) {
		svc, sites, _, _ := newSiteFixture()
		sites.On("FindByID", ctx, "ghost").Return(nil, nil)

		_, err := svc.AppendVersion(ctx, "ghost", "user-1", content, "tweak", nil)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
	})
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("appends a copy of the target version", func(t *testing.T) {
		svc, sites, versions, _ := newSiteFixture()
		script := "console.log('v2')"
		sites.On("FindByID", ctx, "site-1").Return(ownedSite("site-1", "user-1"), nil)
		versions.On("FindBySiteAndNumber", ctx, "site-1", 2).Return(&model.SiteVersion{
			SiteID:        "site-1",
			VersionNumber: 2,
			Markup:        "<p>v2</p>",
			Style:         "p { margin: 0; }",
			Script:        &script,
		}, nil)
		versions.On("MaxVersionNumber", ctx, "site-1").Return(3, nil)
		versions.On("Create", ctx, mock.MatchedBy(func(p model.CreateSiteVersionParams) bool {
			return p.VersionNumber == 4 &&
				p.Content.Markup == "<p>v2</p>" &&
				p.ChangeSummary == "Restored from version 2"
		})).Return(&model.SiteVersion{SiteID: "site-1", VersionNumber: 4}, nil)
		sites.On("UpdateContent", ctx, "site-1", mock.Anything, 4).
			Return(&model.Site{ID: "site-1", OwnerID: "user-1", CurrentVersion: 4}, nil)
		sites.On("UpdateStatusMetadata", ctx, "site-1", json.RawMessage(nil)).Return(nil)

		site, err := svc.Restore(ctx, "site-1", "user-1", 2)
		require.NoError(t, err)
		assert.Equal(t, 4, site.CurrentVersion)
		versions.AssertExpectations(t)
	})

	t.Run("missing target version is not found", func(t *testing.T) {
		svc, sites, versions, _ := newSiteFixture()
		sites.On("FindByID", ctx, "site-1").Return(ownedSite("site-1", "user-1"), nil)
		versions.On("FindBySiteAndNumber", ctx, "site-1", 99).Return(nil, nil)

		_, err := svc.Restore(ctx, "site-1", "user-1", 99)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
	})
}

func TestSiteDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes history and site together", func(t *testing.T) {
		svc, sites, versions, _ := newSiteFixture()
		sites.On("FindByID", ctx, "site-1").Return(ownedSite("site-1", "user-1"), nil)
		versions.On("DeleteBySiteID", ctx, "site-1").Return(nil)
		sites.On("Delete", ctx, "site-1").Return(nil)

		require.NoError(t, svc.Delete(ctx, "site-1", "user-1"))
		versions.AssertExpectations(t)
	})

	t.Run("non-owner cannot delete", func(t *testing.T) {
		svc, sites, versions, _ := newSiteFixture()
		sites.On("FindByID", ctx, "site-1").Return(ownedSite("site-1", "someone-else"), nil)

		err := svc.Delete(ctx, "site-1", "user-1")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeForbidden))
		versions.AssertNotCalled(t, "DeleteBySiteID", mock.Anything, mock.Anything)
	})
}
