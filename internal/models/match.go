package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Match represents a mutual connection between two participants. UserB is
// nil for seed matches, where the counterpart is a scripted persona
// identified by SeedID. Exactly one of UserB / SeedID is set, never both.
type Match struct {
	// ID is the unique identifier of the match (UUID).
	ID string `gorm:"primaryKey" json:"id"`
	// UserA is the human participant who initiated the match.
	UserA string `gorm:"type:text;not null;index" json:"user_a"`
	// UserB is the second human participant, nil for seed matches.
	UserB *string `gorm:"type:text;index" json:"user_b,omitempty"`
	// SeedID references a seed profile when the counterpart is a persona.
	SeedID *string `gorm:"type:text;index" json:"seed_id,omitempty"`
	// AutopilotEnabled gates automated replies for the whole match.
	AutopilotEnabled bool `gorm:"default:true" json:"autopilot_enabled"`
	// Status is "active" or "archived".
	Status string `gorm:"type:text;default:active" json:"status"`
	// CreatedAt is when the match was formed.
	CreatedAt time.Time `json:"created_at"`
	// LastMessageAt tracks the most recent message for ordering.
	LastMessageAt *time.Time `gorm:"index" json:"last_message_at,omitempty"`
}

// BeforeCreate generates a fresh UUID when the ID has not been set yet.
func (m *Match) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}

// HasSeed reports whether the counterpart slot is a persona.
func (m *Match) HasSeed() bool {
	return m.SeedID != nil && *m.SeedID != ""
}

// CounterpartOf returns the other human participant's id, or nil when the
// counterpart is a persona or the given user is not in the match.
func (m *Match) CounterpartOf(userID string) *string {
	if m.UserA == userID {
		return m.UserB
	}
	if m.UserB != nil && *m.UserB == userID {
		ua := m.UserA
		return &ua
	}
	return nil
}

// Involves reports whether the given user occupies one of the match slots.
func (m *Match) Involves(userID string) bool {
	return m.UserA == userID || (m.UserB != nil && *m.UserB == userID)
}
