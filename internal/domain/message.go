package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a direct message between two users.
type Message struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	SenderID    uuid.UUID  `db:"sender_id" json:"sender_id"`
	RecipientID uuid.UUID  `db:"recipient_id" json:"recipient_id"`
	Body        string     `db:"body" json:"body"`
	DeletedAt   *time.Time `db:"deleted_at" json:"-"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// IsDeleted returns true once moderation has removed the message.
func (m *Message) IsDeleted() bool {
	return m.DeletedAt != nil
}

// Resource describes the message to the access gate.
func (m *Message) Resource() Resource {
	return Resource{Kind: "message", ID: m.ID, OwnerIDs: []uuid.UUID{m.SenderID, m.RecipientID}, Private: true}
}

// SendMessageParams contains the parameters for sending a message.
type SendMessageParams struct {
	RecipientID uuid.UUID `json:"recipient_id" validate:"required"`
	Body        string    `json:"body" validate:"required,min=1,max=5000"`
}
