package service

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/krishn-mehta/speak-code-build-sub000/internal/database"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/repository"
)

// TxRunner abstracts database.DB.WithTx so services can be tested with a fake
// that just invokes the function.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx TxHandle) error) error
}

// TxHandle exposes the per-transaction repository variants.
type TxHandle interface {
	TokenAccounts() repository.TokenAccountRepository
	UsageRecords() repository.UsageRecordRepository
	Sites() repository.SiteRepository
	SiteVersions() repository.SiteVersionRepository
}

type dbTxRunner struct {
	db       *database.DB
	accounts repository.TokenAccountRepository
	usage    repository.UsageRecordRepository
	sites    repository.SiteRepository
	versions repository.SiteVersionRepository
}

// NewTxRunner binds the base repositories to the database's transaction
// helper.
func NewTxRunner(
	db *database.DB,
	accounts repository.TokenAccountRepository,
	usage repository.UsageRecordRepository,
	sites repository.SiteRepository,
	versions repository.SiteVersionRepository,
) TxRunner {
	return &dbTxRunner{
		db:       db,
		accounts: accounts,
		usage:    usage,
		sites:    sites,
		versions: versions,
	}
}

func (r *dbTxRunner) WithTx(ctx context.Context, fn func(tx TxHandle) error) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(&txHandle{runner: r, tx: tx})
	})
}

type txHandle struct {
	runner *dbTxRunner
	tx     *sqlx.Tx
}

func (h *txHandle) TokenAccounts() repository.TokenAccountRepository {
	return h.runner.accounts.WithTx(h.tx)
}

func (h *txHandle) UsageRecords() repository.UsageRecordRepository {
	return h.runner.usage.WithTx(h.tx)
}

func (h *txHandle) Sites() repository.SiteRepository {
	return h.runner.sites.WithTx(h.tx)
}

func (h *txHandle) SiteVersions() repository.SiteVersionRepository {
	return h.runner.versions.WithTx(h.tx)
}
