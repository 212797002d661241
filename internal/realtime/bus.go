package realtime

import (
	"context"

	"wingmate/backend/internal/models"
)

// Bus is the per-topic broadcast channel shared by the server orchestrator
// and connected clients. Topic names are match:<matchId>; delivery on a
// topic nobody subscribed to is a silent no-op.
type Bus interface {
	Publish(ctx context.Context, topic, event string, payload interface{}) error
	Subscribe(ctx context.Context, topic string, onEvent func(models.Event)) (Subscription, error)
	Close() error
}

// Subscription is one live topic subscription. Closing it stops delivery.
type Subscription interface {
	Close() error
}
