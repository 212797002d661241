package models

import (
	"encoding/json"
	"time"
)

// Realtime event names carried on the per-match channel. The names must
// match what subscribers listen for exactly; a mismatch is a silent
// delivery failure, not an error.
const (
	EventAutopilotDrafting     = "autopilot_drafting"
	EventAutopilotDraftingDone = "autopilot_drafting_done"
	EventTyping                = "typing"
	EventTypingStop            = "typing_stop"
	EventMessageInserted       = "message_inserted"
)

// MatchTopic builds the channel name for one match.
func MatchTopic(matchID string) string {
	return "match:" + matchID
}

// Event is the envelope published on the realtime bus and relayed to
// websocket clients as-is.
type Event struct {
	Topic   string          `json:"topic"`
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// PresencePayload accompanies drafting and typing events. SenderID is a
// human id or the seed sentinel.
type PresencePayload struct {
	MatchID  string `json:"match_id"`
	SenderID string `json:"sender_id"`
}

// TypingSnapshot collapses the three independent presence flags for one
// match. Flags are non-exclusive; several may be true at once.
type TypingSnapshot struct {
	CounterpartTyping   bool
	CounterpartDrafting bool
	SelfDrafting        bool
}

// CounterpartVisible reports whether the counterpart's typing indicator
// should show, for either manual typing or autopilot drafting.
func (t TypingSnapshot) CounterpartVisible() bool {
	return t.CounterpartTyping || t.CounterpartDrafting
}

// ComposerLocked reports whether the local composer should be locked.
// Only the viewer's own autopilot locks anything.
func (t TypingSnapshot) ComposerLocked() bool {
	return t.SelfDrafting
}

// MatchSummary is one row of the conversation list: the match plus its
// last-message preview and the viewer's unread count.
type MatchSummary struct {
	ID                  string     `json:"id"`
	UserA               string     `json:"user_a"`
	UserB               *string    `json:"user_b,omitempty"`
	SeedID              *string    `json:"seed_id,omitempty"`
	AutopilotEnabled    bool       `json:"autopilot_enabled"`
	Status              string     `json:"status"`
	CreatedAt           time.Time  `json:"created_at"`
	LastMessageAt       *time.Time `json:"last_message_at,omitempty"`
	LastMessageText     *string    `json:"last_message_text,omitempty"`
	LastMessageSenderID *string    `json:"last_message_sender,omitempty"`
	LastMessageIsSeed   bool       `json:"last_message_is_seed"`
	UnreadCount         int        `json:"unread_count"`
}

// ActivityTime is the instant used to order the conversation list.
func (s MatchSummary) ActivityTime() time.Time {
	if s.LastMessageAt != nil {
		return *s.LastMessageAt
	}
	return s.CreatedAt
}
