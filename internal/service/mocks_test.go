package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/krishn-mehta/speak-code-build-sub000/internal/llm"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/model"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/repository"
)

// fakeTx satisfies TxRunner and TxHandle with no real transaction: the
// function just runs against the same mocks.
type fakeTx struct {
	accounts repository.TokenAccountRepository
	usage    repository.UsageRecordRepository
	sites    repository.SiteRepository
	versions repository.SiteVersionRepository
}

func (f *fakeTx) WithTx(ctx context.Context, fn func(tx TxHandle) error) error {
	return fn(f)
}

func (f *fakeTx) TokenAccounts() repository.TokenAccountRepository { return f.accounts }
func (f *fakeTx) UsageRecords() repository.UsageRecordRepository   { return f.usage }
func (f *fakeTx) Sites() repository.SiteRepository                 { return f.sites }
func (f *fakeTx) SiteVersions() repository.SiteVersionRepository   { return f.versions }

type mockTokenAccountRepo struct {
	mock.Mock
}

func (m *mockTokenAccountRepo) FindByUserID(ctx context.Context, userID string) (*model.TokenAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenAccount), args.Error(1)
}

func (m *mockTokenAccountRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.TokenAccount, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenAccount), args.Error(1)
}

func (m *mockTokenAccountRepo) Create(ctx context.Context, params model.CreateTokenAccountParams) (*model.TokenAccount, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenAccount), args.Error(1)
}

func (m *mockTokenAccountRepo) DebitBalance(ctx context.Context, userID string, amount int) (*model.TokenAccount, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenAccount), args.Error(1)
}

func (m *mockTokenAccountRepo) CreditBalance(ctx context.Context, userID string, amount int) (*model.TokenAccount, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenAccount), args.Error(1)
}

func (m *mockTokenAccountRepo) AdvancePeriodAnchor(ctx context.Context, userID string, next time.Time) error {
	args := m.Called(ctx, userID, next)
	return args.Error(0)
}

func (m *mockTokenAccountRepo) FindDueForRefill(ctx context.Context, now time.Time, limit int) ([]model.TokenAccount, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]model.TokenAccount), args.Error(1)
}

func (m *mockTokenAccountRepo) WithTx(tx *sqlx.Tx) repository.TokenAccountRepository {
	return m
}

type mockUsageRecordRepo struct {
	mock.Mock
}

func (m *mockUsageRecordRepo) Create(ctx context.Context, params model.CreateUsageRecordParams) (*model.UsageRecord, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UsageRecord), args.Error(1)
}

func (m *mockUsageRecordRepo) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.UsageRecord, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]model.UsageRecord), args.Error(1)
}

func (m *mockUsageRecordRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockUsageRecordRepo) SumByUserID(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockUsageRecordRepo) WithTx(tx *sqlx.Tx) repository.UsageRecordRepository {
	return m
}

type mockSiteRepo struct {
	mock.Mock
}

func (m *mockSiteRepo) FindByID(ctx context.Context, id string) (*model.Site, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Site), args.Error(1)
}

func (m *mockSiteRepo) FindByOwnerID(ctx context.Context, ownerID string, limit, offset int) ([]model.Site, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	return args.Get(0).([]model.Site), args.Error(1)
}

func (m *mockSiteRepo) CountByOwnerID(ctx context.Context, ownerID string) (int, error) {
	args := m.Called(ctx, ownerID)
	return args.Int(0), args.Error(1)
}

func (m *mockSiteRepo) Create(ctx context.Context, params model.CreateSiteParams) (*model.Site, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Site), args.Error(1)
}

func (m *mockSiteRepo) UpdateContent(ctx context.Context, id string, content model.SiteContent, currentVersion int) (*model.Site, error) {
	args := m.Called(ctx, id, content, currentVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Site), args.Error(1)
}

func (m *mockSiteRepo) UpdateStatusMetadata(ctx context.Context, id string, metadata json.RawMessage) error {
	args := m.Called(ctx, id, metadata)
	return args.Error(0)
}

func (m *mockSiteRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSiteRepo) WithTx(tx *sqlx.Tx) repository.SiteRepository {
	return m
}

type mockSiteVersionRepo struct {
	mock.Mock
}

func (m *mockSiteVersionRepo) Create(ctx context.Context, params model.CreateSiteVersionParams) (*model.SiteVersion, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SiteVersion), args.Error(1)
}

func (m *mockSiteVersionRepo) FindBySiteAndNumber(ctx context.Context, siteID string, versionNumber int) (*model.SiteVersion, error) {
	args := m.Called(ctx, siteID, versionNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SiteVersion), args.Error(1)
}

func (m *mockSiteVersionRepo) FindBySiteID(ctx context.Context, siteID string) ([]model.SiteVersion, error) {
	args := m.Called(ctx, siteID)
	return args.Get(0).([]model.SiteVersion), args.Error(1)
}

func (m *mockSiteVersionRepo) MaxVersionNumber(ctx context.Context, siteID string) (int, error) {
	args := m.Called(ctx, siteID)
	return args.Int(0), args.Error(1)
}

func (m *mockSiteVersionRepo) DeleteBySiteID(ctx context.Context, siteID string) error {
	args := m.Called(ctx, siteID)
	return args.Error(0)
}

func (m *mockSiteVersionRepo) WithTx(tx *sqlx.Tx) repository.SiteVersionRepository {
	return m
}

type mockConversationRepo struct {
	mock.Mock
}

func (m *mockConversationRepo) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *mockConversationRepo) FindByOwnerID(ctx context.Context, ownerID string, limit, offset int) ([]model.Conversation, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	return args.Get(0).([]model.Conversation), args.Error(1)
}

func (m *mockConversationRepo) Create(ctx context.Context, params model.CreateConversationParams) (*model.Conversation, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *mockConversationRepo) Touch(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockConversationRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockConversationRepo) WithTx(tx *sqlx.Tx) repository.ConversationRepository {
	return m
}

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) GenerateSite(ctx context.Context, req llm.Request) (*llm.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Response), args.Error(1)
}
