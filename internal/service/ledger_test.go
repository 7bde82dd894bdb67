package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/krishn-mehta/speak-code-build-sub000/internal/errors"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/model"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/util"
)

func newLedgerFixture() (*LedgerService, *mockTokenAccountRepo, *mockUsageRecordRepo) {
	accounts := new(mockTokenAccountRepo)
	usage := new(mockUsageRecordRepo)
	tx := &fakeTx{accounts: accounts, usage: usage}
	svc := NewLedgerService(tx, accounts, usage, 200, 400)
	return svc, accounts, usage
}

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("mints a token and stores only its hash", func(t *testing.T) {
		svc, accounts, _ := newLedgerFixture()
		accounts.On("FindByUserID", ctx, "user-1").Return(nil, nil)
		accounts.On("Create", ctx, mock.MatchedBy(func(p model.CreateTokenAccountParams) bool {
			return p.UserID == "user-1" && p.MonthlyAllowance == 200 && p.MaxRollover == 400 && len(p.APITokenHash) == 64
		})).Return(&model.TokenAccount{UserID: "user-1", CurrentBalance: 200}, nil)

		created, err := svc.CreateAccount(ctx, "user-1")
		require.NoError(t, err)
		assert.NotEmpty(t, created.APIToken)
		assert.Equal(t, 200, created.Account.CurrentBalance)

		// the raw token must hash to what was persisted
		createCall := accounts.Calls[len(accounts.Calls)-1]
		params := createCall.Arguments.Get(1).(model.CreateTokenAccountParams)
		assert.Equal(t, util.HashToken(created.APIToken), params.APITokenHash)
	})

	t.Run("rejects duplicate account", func(t *testing.T) {
		svc, accounts, _ := newLedgerFixture()
		accounts.On("FindByUserID", ctx, "user-1").Return(&model.TokenAccount{UserID: "user-1"}, nil)

		_, err := svc.CreateAccount(ctx, "user-1")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAlreadyExists))
		accounts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestCheckAndDebit(t *testing.T) {
	ctx := context.Background()

	t.Run("debits cost and appends a negative usage record", func(t *testing.T) {
		svc, accounts, usage := newLedgerFixture()
		accounts.On("DebitBalance", ctx, "user-1", 25).
			Return(&model.TokenAccount{UserID: "user-1", CurrentBalance: 75}, nil)
		usage.On("Create", ctx, model.CreateUsageRecordParams{
			UserID:     "user-1",
			ActionKind: model.ActionGenerate,
			Amount:     -25,
		}).Return(&model.UsageRecord{}, nil)

		result, err := svc.CheckAndDebit(ctx, "user-1", model.ActionGenerate, nil)
		require.NoError(t, err)
		assert.Equal(t, 75, result.Remaining)
		assert.Equal(t, 25, result.Cost)
		usage.AssertExpectations(t)
	})

	t.Run("short balance yields insufficient tokens with details", func(t *testing.T) {
		svc, accounts, usage := newLedgerFixture()
		accounts.On("DebitBalance", ctx, "user-1", 25).Return(nil, nil)
		accounts.On("FindByUserID", ctx, "user-1").
			Return(&model.TokenAccount{UserID: "user-1", CurrentBalance: 10}, nil)

		_, err := svc.CheckAndDebit(ctx, "user-1", model.ActionGenerate, nil)
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInsufficientTokens))

		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		details, ok := appErr.Details.(apperrors.InsufficientTokensDetails)
		require.True(t, ok)
		assert.Equal(t, 25, details.Required)
		assert.Equal(t, 10, details.Available)
		usage.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("missing account is not found", func(t *testing.T) {
		svc, accounts, _ := newLedgerFixture()
		accounts.On("DebitBalance", ctx, "nobody", 15).Return(nil, nil)
		accounts.On("FindByUserID", ctx, "nobody").Return(nil, nil)

		_, err := svc.CheckAndDebit(ctx, "nobody", model.ActionIterate, nil)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
	})

	t.Run("balance can reach exactly zero", func(t *testing.T) {
		svc, accounts, usage := newLedgerFixture()
		accounts.On("DebitBalance", ctx, "user-1", 25).
			Return(&model.TokenAccount{UserID: "user-1", CurrentBalance: 0}, nil)
		usage.On("Create", ctx, mock.Anything).Return(&model.UsageRecord{}, nil)

		result, err := svc.CheckAndDebit(ctx, "user-1", model.ActionGenerate, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Remaining)
	})
}

func TestCredit(t *testing.T) {
	ctx := context.Background()

	t.Run("records the applied amount when the cap truncates", func(t *testing.T) {
		svc, accounts, usage := newLedgerFixture()
		accounts.On("FindByUserID", ctx, "user-1").
			Return(&model.TokenAccount{UserID: "user-1", CurrentBalance: 390, MaxRollover: 400}, nil)
		accounts.On("CreditBalance", ctx, "user-1", 25).
			Return(&model.TokenAccount{UserID: "user-1", CurrentBalance: 400, MaxRollover: 400}, nil)
		usage.On("Create", ctx, model.CreateUsageRecordParams{
			UserID:     "user-1",
			ActionKind: model.ActionGenerate,
			Amount:     10,
		}).Return(&model.UsageRecord{}, nil)

		account, err := svc.Credit(ctx, "user-1", 25, model.ActionGenerate, nil)
		require.NoError(t, err)
		assert.Equal(t, 400, account.CurrentBalance)
		usage.AssertExpectations(t)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		svc, _, _ := newLedgerFixture()
		_, err := svc.Credit(ctx, "user-1", 0, model.ActionGenerate, nil)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
	})
}

func TestRefill(t *testing.T) {
	ctx := context.Background()
	anchor := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	t.Run("credits the allowance and advances the anchor", func(t *testing.T) {
		svc, accounts, usage := newLedgerFixture()
		accounts.On("FindByUserID", ctx, "user-1").Return(&model.TokenAccount{
			UserID:           "user-1",
			CurrentBalance:   50,
			MonthlyAllowance: 200,
			MaxRollover:      400,
			PeriodAnchor:     anchor,
		}, nil)
		accounts.On("CreditBalance", ctx, "user-1", 200).
			Return(&model.TokenAccount{UserID: "user-1", CurrentBalance: 250}, nil)
		usage.On("Create", ctx, model.CreateUsageRecordParams{
			UserID:     "user-1",
			ActionKind: model.ActionRefill,
			Amount:     200,
		}).Return(&model.UsageRecord{}, nil)
		accounts.On("AdvancePeriodAnchor", ctx, "user-1", mock.MatchedBy(func(next time.Time) bool {
			return next.After(anchor)
		})).Return(nil)

		require.NoError(t, svc.Refill(ctx, "user-1"))
		accounts.AssertExpectations(t)
		usage.AssertExpectations(t)
	})

	t.Run("partial headroom credits only up to the cap", func(t *testing.T) {
		svc, accounts, usage := newLedgerFixture()
		accounts.On("FindByUserID", ctx, "user-1").Return(&model.TokenAccount{
			UserID:           "user-1",
			CurrentBalance:   350,
			MonthlyAllowance: 200,
			MaxRollover:      400,
			PeriodAnchor:     anchor,
		}, nil)
		accounts.On("CreditBalance", ctx, "user-1", 50).
			Return(&model.TokenAccount{UserID: "user-1", CurrentBalance: 400}, nil)
		usage.On("Create", ctx, mock.MatchedBy(func(p model.CreateUsageRecordParams) bool {
			return p.ActionKind == model.ActionRefill && p.Amount == 50
		})).Return(&model.UsageRecord{}, nil)
		accounts.On("AdvancePeriodAnchor", ctx, "user-1", mock.Anything).Return(nil)

		require.NoError(t, svc.Refill(ctx, "user-1"))
	})

	t.Run("at the cap still advances the anchor without a credit", func(t *testing.T) {
		svc, accounts, usage := newLedgerFixture()
		accounts.On("FindByUserID", ctx, "user-1").Return(&model.TokenAccount{
			UserID:           "user-1",
			CurrentBalance:   400,
			MonthlyAllowance: 200,
			MaxRollover:      400,
			PeriodAnchor:     anchor,
		}, nil)
		accounts.On("AdvancePeriodAnchor", ctx, "user-1", mock.Anything).Return(nil)

		require.NoError(t, svc.Refill(ctx, "user-1"))
		accounts.AssertNotCalled(t, "CreditBalance", mock.Anything, mock.Anything, mock.Anything)
		usage.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestUsageHistory(t *testing.T) {
	ctx := context.Background()
	svc, _, usage := newLedgerFixture()
	usage.On("FindByUserID", ctx, "user-1", 20, 0).Return([]model.UsageRecord{
		{UserID: "user-1", ActionKind: model.ActionGenerate, Amount: -25},
		{UserID: "user-1", ActionKind: model.ActionRefill, Amount: 200},
	}, nil)
	usage.On("CountByUserID", ctx, "user-1").Return(2, nil)
	usage.On("SumByUserID", ctx, "user-1").Return(175, nil)

	history, err := svc.UsageHistory(ctx, "user-1", 20, 0)
	require.NoError(t, err)
	assert.Len(t, history.Records, 2)
	assert.Equal(t, 2, history.Total)
	assert.Equal(t, 175, history.NetTotal)
}
