package model

import (
	"time"
)

// Conversation groups sites generated from the same chat thread. An artifact
// references at most one conversation.
type Conversation struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"ownerId"`
	Title     string    `db:"title" json:"title"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type CreateConversationParams struct {
	OwnerID string
	Title   string
}
