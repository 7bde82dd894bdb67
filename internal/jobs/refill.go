package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/krishn-mehta/speak-code-build-sub000/internal/repository"
)

const refillBatchSize = 100

// Refiller credits one allowance period for a single account.
type Refiller interface {
	Refill(ctx context.Context, userID string) error
}

// RefillJob periodically scans for accounts whose billing period has elapsed
// and refills each one. A failed account is logged and skipped; it stays due
// and is retried on the next tick.
type RefillJob struct {
	accountRepo repository.TokenAccountRepository
	ledger      Refiller
	interval    time.Duration
	done        chan struct{}
}

func NewRefillJob(accountRepo repository.TokenAccountRepository, ledger Refiller, interval time.Duration) *RefillJob {
	return &RefillJob{
		accountRepo: accountRepo,
		ledger:      ledger,
		interval:    interval,
		done:        make(chan struct{}),
	}
}

func (j *RefillJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("refill job started")
}

func (j *RefillJob) Stop() {
	close(j.done)
	log.Info().Msg("refill job stopped")
}

func (j *RefillJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.refillDue()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.refillDue()
		}
	}
}

func (j *RefillJob) refillDue() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for {
		accounts, err := j.accountRepo.FindDueForRefill(ctx, time.Now(), refillBatchSize)
		if err != nil {
			log.Error().Err(err).Msg("failed to scan accounts due for refill")
			return
		}
		if len(accounts) == 0 {
			return
		}

		refilled := 0
		for _, account := range accounts {
			if err := j.ledger.Refill(ctx, account.UserID); err != nil {
				log.Error().Err(err).Str("userId", account.UserID).Msg("failed to refill account")
				continue
			}
			refilled++
		}

		log.Info().Int("count", refilled).Msg("refilled accounts")

		// a batch full of failures would never drain; stop and let the next
		// tick retry
		if refilled == 0 || len(accounts) < refillBatchSize {
			return
		}
	}
}
