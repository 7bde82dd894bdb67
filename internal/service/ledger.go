package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/krishn-mehta/speak-code-build-sub000/internal/audit"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/config"
	apperrors "github.com/krishn-mehta/speak-code-build-sub000/internal/errors"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/model"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/repository"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/util"
)

type DebitResult struct {
	Remaining int
	Cost      int
}

type CreatedAccount struct {
	Account  *model.TokenAccount
	APIToken string // raw token, shown once
}

// LedgerService guarantees a user can never spend tokens they do not have and
// that every balance change leaves a usage record. The check-and-decrement is
// a single conditional UPDATE at the storage layer, so two concurrent debits
// for the same user cannot both pass a stale balance check.
type LedgerService struct {
	tx               TxRunner
	accountRepo      repository.TokenAccountRepository
	usageRepo        repository.UsageRecordRepository
	monthlyAllowance int
	maxRollover      int
}

func NewLedgerService(
	tx TxRunner,
	accountRepo repository.TokenAccountRepository,
	usageRepo repository.UsageRecordRepository,
	monthlyAllowance, maxRollover int,
) *LedgerService {
	return &LedgerService{
		tx:               tx,
		accountRepo:      accountRepo,
		usageRepo:        usageRepo,
		monthlyAllowance: monthlyAllowance,
		maxRollover:      maxRollover,
	}
}

// CreateAccount provisions a token account at signup with a full allowance
// and a freshly minted API token.
func (s *LedgerService) CreateAccount(ctx context.Context, userID string) (*CreatedAccount, error) {
	existing, err := s.accountRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists("Account")
	}

	token, err := util.GenerateToken()
	if err != nil {
		return nil, apperrors.Internal("failed to mint API token").WithCause(err)
	}

	account, err := s.accountRepo.Create(ctx, model.CreateTokenAccountParams{
		UserID:           userID,
		APITokenHash:     util.HashToken(token),
		MonthlyAllowance: s.monthlyAllowance,
		MaxRollover:      s.maxRollover,
		PeriodAnchor:     time.Now().Add(config.RefillPeriod),
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventAccountCreate, UserID: userID})
	log.Info().
		Str("userId", userID).
		Int("balance", account.CurrentBalance).
		Msg("token account created")

	return &CreatedAccount{Account: account, APIToken: token}, nil
}

// CheckAndDebit verifies the balance covers the action's cost and, in one
// transaction, decrements it and appends the usage record. An insufficient
// balance is a normal negative result carried as InsufficientTokens, not a
// server fault.
func (s *LedgerService) CheckAndDebit(ctx context.Context, userID string, kind model.ActionKind, siteID *string) (*DebitResult, error) {
	cost := CostOf(kind)

	var result DebitResult
	err := s.tx.WithTx(ctx, func(tx TxHandle) error {
		account, err := tx.TokenAccounts().DebitBalance(ctx, userID, cost)
		if err != nil {
			return apperrors.Database(err)
		}
		if account == nil {
			// the conditional write matched no row: either the account is
			// missing or the balance is short
			current, err := tx.TokenAccounts().FindByUserID(ctx, userID)
			if err != nil {
				return apperrors.Database(err)
			}
			if current == nil {
				return apperrors.NotFound("Account")
			}
			return apperrors.InsufficientTokens(cost, current.CurrentBalance)
		}

		if _, err := tx.UsageRecords().Create(ctx, model.CreateUsageRecordParams{
			UserID:     userID,
			ActionKind: kind,
			Amount:     -cost,
			SiteID:     siteID,
		}); err != nil {
			return apperrors.Database(err)
		}

		result = DebitResult{Remaining: account.CurrentBalance, Cost: cost}
		return nil
	})
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.Event{Type: audit.EventTokenDebit, UserID: userID, Amount: -cost})
	log.Debug().
		Str("userId", userID).
		Str("action", string(kind)).
		Int("cost", cost).
		Int("remaining", result.Remaining).
		Msg("tokens debited")

	return &result, nil
}

// Credit adds amount to the balance, capped at the account's max rollover,
// and appends a usage record with the applied amount.
func (s *LedgerService) Credit(ctx context.Context, userID string, amount int, kind model.ActionKind, siteID *string) (*model.TokenAccount, error) {
	if amount <= 0 {
		return nil, apperrors.InvalidInput("amount", "must be positive")
	}

	var credited *model.TokenAccount
	err := s.tx.WithTx(ctx, func(tx TxHandle) error {
		before, err := tx.TokenAccounts().FindByUserID(ctx, userID)
		if err != nil {
			return apperrors.Database(err)
		}
		if before == nil {
			return apperrors.NotFound("Account")
		}

		account, err := tx.TokenAccounts().CreditBalance(ctx, userID, amount)
		if err != nil {
			return apperrors.Database(err)
		}

		// record what actually landed, not what was asked for
		applied := account.CurrentBalance - before.CurrentBalance
		if _, err := tx.UsageRecords().Create(ctx, model.CreateUsageRecordParams{
			UserID:     userID,
			ActionKind: kind,
			Amount:     applied,
			SiteID:     siteID,
		}); err != nil {
			return apperrors.Database(err)
		}

		credited = account
		return nil
	})
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.Event{Type: audit.EventTokenCredit, UserID: userID, Amount: amount})
	return credited, nil
}

// Refund compensates a debit whose paired action did not complete. Same
// mechanics as Credit; kept separate so call sites read as compensation.
func (s *LedgerService) Refund(ctx context.Context, userID string, amount int, kind model.ActionKind, siteID *string) error {
	if _, err := s.Credit(ctx, userID, amount, kind, siteID); err != nil {
		return err
	}
	audit.Log(ctx, audit.Event{Type: audit.EventTokenRefund, UserID: userID, Amount: amount})
	return nil
}

// CostOf is the advisory price lookup for the UI shell; the authoritative
// check is CheckAndDebit.
func (s *LedgerService) CostOf(kind model.ActionKind) int {
	return CostOf(kind)
}

// Refill credits one monthly allowance (capped at rollover) and advances the
// period anchor, both within a single transaction.
func (s *LedgerService) Refill(ctx context.Context, userID string) error {
	err := s.tx.WithTx(ctx, func(tx TxHandle) error {
		account, err := tx.TokenAccounts().FindByUserID(ctx, userID)
		if err != nil {
			return apperrors.Database(err)
		}
		if account == nil {
			return apperrors.NotFound("Account")
		}

		refill := account.MonthlyAllowance
		if room := account.MaxRollover - account.CurrentBalance; room < refill {
			refill = room
		}

		if refill > 0 {
			if _, err := tx.TokenAccounts().CreditBalance(ctx, userID, refill); err != nil {
				return apperrors.Database(err)
			}
			if _, err := tx.UsageRecords().Create(ctx, model.CreateUsageRecordParams{
				UserID:     userID,
				ActionKind: model.ActionRefill,
				Amount:     refill,
			}); err != nil {
				return apperrors.Database(err)
			}
		}

		next := account.PeriodAnchor.Add(config.RefillPeriod)
		if err := tx.TokenAccounts().AdvancePeriodAnchor(ctx, userID, next); err != nil {
			return apperrors.Database(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("refill %s: %w", userID, err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventTokenRefill, UserID: userID})
	log.Info().Str("userId", userID).Msg("allowance refilled")
	return nil
}

// Balance returns the account for the UI shell's billing display.
func (s *LedgerService) Balance(ctx context.Context, userID string) (*model.TokenAccount, error) {
	account, err := s.accountRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if account == nil {
		return nil, apperrors.NotFound("Account")
	}
	return account, nil
}

type UsageHistory struct {
	Records []model.UsageRecord
	Total   int
	// NetTotal is the sum of all signed amounts: the balance delta the trail
	// alone reconstructs, independent of the account row.
	NetTotal int
}

func (s *LedgerService) UsageHistory(ctx context.Context, userID string, limit, offset int) (*UsageHistory, error) {
	records, err := s.usageRepo.FindByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	total, err := s.usageRepo.CountByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	net, err := s.usageRepo.SumByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return &UsageHistory{Records: records, Total: total, NetTotal: net}, nil
}
