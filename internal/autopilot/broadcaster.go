package autopilot

import (
	"context"

	"wingmate/backend/internal/logger"
	"wingmate/backend/internal/models"
	"wingmate/backend/internal/realtime"
)

// Broadcaster emits presence and insert events on the per-match channel.
// The topic and event names must agree byte-for-byte with what clients
// subscribe to; a mismatch delivers nothing and raises no error, so
// channel-name agreement is a deployment invariant. Publish failures are
// logged and swallowed — presence is advisory.
type Broadcaster struct {
	bus realtime.Bus
	log *logger.Logger
}

func NewBroadcaster(log *logger.Logger, bus realtime.Bus) *Broadcaster {
	return &Broadcaster{bus: bus, log: log.With("service", "Broadcaster")}
}

// DraftingStarted announces that a reply is being generated for senderID.
func (b *Broadcaster) DraftingStarted(ctx context.Context, matchID, senderID string) {
	b.publish(ctx, matchID, models.EventAutopilotDrafting, models.PresencePayload{
		MatchID:  matchID,
		SenderID: senderID,
	})
}

// DraftingDone announces that the drafting cycle for senderID finished.
func (b *Broadcaster) DraftingDone(ctx context.Context, matchID, senderID string) {
	b.publish(ctx, matchID, models.EventAutopilotDraftingDone, models.PresencePayload{
		MatchID:  matchID,
		SenderID: senderID,
	})
}

// MessageInserted relays a persisted row to subscribers as the row-insert
// change notification.
func (b *Broadcaster) MessageInserted(ctx context.Context, msg *models.Message) {
	b.publish(ctx, msg.MatchID, models.EventMessageInserted, msg)
}

func (b *Broadcaster) publish(ctx context.Context, matchID, event string, payload interface{}) {
	if err := b.bus.Publish(ctx, models.MatchTopic(matchID), event, payload); err != nil {
		b.log.Warn("broadcast failed", "match_id", matchID, "event", event, "error", err)
	}
}
