package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SeedSender is the sentinel identity used in realtime payloads when a
// message was authored by the match's persona rather than a human.
const SeedSender = "seed"

// Message is one chat message inside a match. Rows are immutable once
// created; per-match ordering is strictly increasing CreatedAt.
type Message struct {
	// ID is the unique identifier of the message (UUID).
	ID string `gorm:"primaryKey" json:"id"`
	// MatchID is the match this message belongs to.
	MatchID string `gorm:"type:uuid;not null;index:idx_match_created,priority:1" json:"match_id"`
	// SenderID is the human author, nil when the persona authored it.
	SenderID *string `gorm:"type:text;index" json:"sender_id,omitempty"`
	// IsSeed marks messages authored by the persona side.
	IsSeed bool `json:"is_seed"`
	// Text is the message body.
	Text string `gorm:"type:text;not null" json:"text"`
	// CreatedAt orders messages within a match.
	CreatedAt time.Time `gorm:"index:idx_match_created,priority:2" json:"created_at"`
}

// BeforeCreate generates a fresh UUID when the ID has not been set yet.
func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}

// SenderIdentity returns the sender id for realtime payloads, substituting
// the seed sentinel for persona-authored messages.
func (m *Message) SenderIdentity() string {
	if m.IsSeed || m.SenderID == nil {
		return SeedSender
	}
	return *m.SenderID
}

// AuthoredBySide reports whether the message belongs to the given side of
// the match: the persona side when isSeed is true, otherwise the human
// identified by userID.
func (m *Message) AuthoredBySide(isSeed bool, userID *string) bool {
	if isSeed {
		return m.IsSeed
	}
	if m.IsSeed || m.SenderID == nil || userID == nil {
		return false
	}
	return *m.SenderID == *userID
}
