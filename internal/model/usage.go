package model

import (
	"time"
)

// UsageRecord is one row of the append-only ledger audit trail. Amount is
// negative for consumption and positive for credits, so the balance can be
// reconstructed independently of the account row.
type UsageRecord struct {
	ID         string     `db:"id" json:"id"`
	UserID     string     `db:"user_id" json:"userId"`
	ActionKind ActionKind `db:"action_kind" json:"actionKind"`
	Amount     int        `db:"amount" json:"amount"`
	SiteID     *string    `db:"site_id" json:"siteId,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
}

type CreateUsageRecordParams struct {
	UserID     string
	ActionKind ActionKind
	Amount     int
	SiteID     *string
}
