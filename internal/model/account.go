package model

import (
	"time"
)

// TokenAccount holds a user's metered-usage balance. The user id comes from
// the external identity provider and is opaque to this service.
type TokenAccount struct {
	ID               string    `db:"id" json:"id"`
	UserID           string    `db:"user_id" json:"userId"`
	APITokenHash     *string   `db:"api_token_hash" json:"-"`
	CurrentBalance   int       `db:"current_balance" json:"currentBalance"`
	MonthlyAllowance int       `db:"monthly_allowance" json:"monthlyAllowance"`
	MaxRollover      int       `db:"max_rollover" json:"maxRollover"`
	PeriodAnchor     time.Time `db:"period_anchor" json:"periodAnchor"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

type CreateTokenAccountParams struct {
	UserID           string
	APITokenHash     string
	MonthlyAllowance int
	MaxRollover      int
	PeriodAnchor     time.Time
}
