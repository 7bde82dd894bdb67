package model

import (
	"encoding/json"
	"time"
)

// Site is a generated website: its current content plus (via SiteVersion) an
// immutable version history. Markup and style are always present, possibly
// empty; script is optional. The current fields always equal the content of
// the highest-numbered version.
type Site struct {
	ID             string           `db:"id" json:"id"`
	OwnerID        string           `db:"owner_id" json:"ownerId"`
	ConversationID *string          `db:"conversation_id" json:"conversationId,omitempty"`
	Title          string           `db:"title" json:"title"`
	Description    *string          `db:"description" json:"description,omitempty"`
	Markup         string           `db:"markup" json:"markup"`
	Style          string           `db:"style" json:"style"`
	Script         *string          `db:"script" json:"script,omitempty"`
	TemplateKind   TemplateKind     `db:"template_kind" json:"templateKind"`
	CurrentVersion int              `db:"current_version" json:"currentVersion"`
	StatusMetadata *json.RawMessage `db:"status_metadata" json:"statusMetadata,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updatedAt"`
}

// SiteContent is the markup/style/script triple produced by a generation and
// stored on every version.
type SiteContent struct {
	Markup string  `json:"markup"`
	Style  string  `json:"style"`
	Script *string `json:"script,omitempty"`
}

type CreateSiteParams struct {
	OwnerID        string
	ConversationID *string
	Title          string
	Description    *string
	TemplateKind   TemplateKind
	Content        SiteContent
	StatusMetadata *json.RawMessage
}
