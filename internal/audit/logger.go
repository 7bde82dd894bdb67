package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventTokenDebit      EventType = "token_debit"
	EventTokenCredit     EventType = "token_credit"
	EventTokenRefund     EventType = "token_refund"
	EventTokenRefill     EventType = "token_refill"
	EventAccountCreate   EventType = "account_create"
	EventSiteDelete      EventType = "site_delete"
	EventAuthFailure     EventType = "auth_failure"
	EventRateLimitExceed EventType = "rate_limit_exceeded"
)

type Event struct {
	Type    EventType
	UserID  string
	SiteID  string
	Amount  int
	Details map[string]interface{}
}

// Log writes an audit event to the structured log stream. The ledger's usage
// records are the authoritative trail; this stream exists for operators.
func Log(ctx context.Context, event Event) {
	logger := log.With().
		Str("audit", "ledger").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.UserID != "" {
		logger = logger.With().Str("user_id", event.UserID).Logger()
	}
	if event.SiteID != "" {
		logger = logger.With().Str("site_id", event.SiteID).Logger()
	}
	if event.Amount != 0 {
		logger = logger.With().Int("amount", event.Amount).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = logEvent.Interface(k, v)
	}
	logEvent.Msg("audit event")
}
