package realtime

import (
	"context"

	"wingmate/backend/internal/logger"
	"wingmate/backend/internal/models"
)

// Client is the interface for one connected realtime consumer (in
// practice a WebSocket connection). It abstracts the transport so the hub
// can manage clients uniformly.
type Client interface {
	// GetUserID returns the authenticated user behind the connection.
	GetUserID() string
	// GetSendChannel returns the channel the hub delivers events to.
	GetSendChannel() chan<- models.Event
	// Run starts the client's read and write pumps.
	Run()
	// Close shuts the connection down and stops the pumps.
	Close()
}

type topicRequest struct {
	client Client
	topic  string
}

// Hub fans bus events out to connected clients. Clients subscribe to the
// per-match topics they are viewing; the hub holds exactly one bus
// subscription per topic with at least one viewer and tears it down when
// the last viewer leaves.
type Hub struct {
	log *logger.Logger
	bus Bus

	RegisterCh    chan Client
	UnregisterCh  chan Client
	SubscribeCh   chan topicRequest
	UnsubscribeCh chan topicRequest

	eventCh chan models.Event

	clients map[Client]map[string]bool
	topics  map[string]map[Client]bool
	busSubs map[string]Subscription
}

func NewHub(log *logger.Logger, bus Bus) *Hub {
	return &Hub{
		log:           log.With("service", "Hub"),
		bus:           bus,
		RegisterCh:    make(chan Client),
		UnregisterCh:  make(chan Client),
		SubscribeCh:   make(chan topicRequest),
		UnsubscribeCh: make(chan topicRequest),
		eventCh:       make(chan models.Event, 64),
		clients:       make(map[Client]map[string]bool),
		topics:        make(map[string]map[Client]bool),
		busSubs:       make(map[string]Subscription),
	}
}

// Subscribe attaches a client to one match topic.
func (h *Hub) Subscribe(c Client, matchID string) {
	h.SubscribeCh <- topicRequest{client: c, topic: models.MatchTopic(matchID)}
}

// Unsubscribe detaches a client from one match topic.
func (h *Hub) Unsubscribe(c Client, matchID string) {
	h.UnsubscribeCh <- topicRequest{client: c, topic: models.MatchTopic(matchID)}
}

// PublishTyping relays a manual composer typing signal onto the match
// channel. Best effort; the composer sends these opportunistically.
func (h *Hub) PublishTyping(ctx context.Context, matchID, senderID string, active bool) {
	event := models.EventTyping
	if !active {
		event = models.EventTypingStop
	}
	payload := models.PresencePayload{MatchID: matchID, SenderID: senderID}
	if err := h.bus.Publish(ctx, models.MatchTopic(matchID), event, payload); err != nil {
		h.log.Warn("typing publish failed", "match_id", matchID, "error", err)
	}
}

// Run is the hub's single dispatcher goroutine. All client and topic
// state is owned here; no other goroutine touches the maps.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("hub started")
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.RegisterCh:
			h.clients[client] = make(map[string]bool)

		case client := <-h.UnregisterCh:
			h.dropClient(ctx, client)

		case req := <-h.SubscribeCh:
			h.attach(ctx, req.client, req.topic)

		case req := <-h.UnsubscribeCh:
			h.detach(req.client, req.topic)

		case ev := <-h.eventCh:
			h.deliver(ctx, ev)
		}
	}
}

func (h *Hub) attach(ctx context.Context, client Client, topic string) {
	if _, ok := h.clients[client]; !ok {
		h.clients[client] = make(map[string]bool)
	}
	h.clients[client][topic] = true

	if h.topics[topic] == nil {
		h.topics[topic] = make(map[Client]bool)
	}
	h.topics[topic][client] = true

	if _, ok := h.busSubs[topic]; !ok {
		sub, err := h.bus.Subscribe(ctx, topic, func(ev models.Event) {
			h.eventCh <- ev
		})
		if err != nil {
			h.log.Error("bus subscribe failed", "topic", topic, "error", err)
			return
		}
		h.busSubs[topic] = sub
	}
}

func (h *Hub) detach(client Client, topic string) {
	if set, ok := h.clients[client]; ok {
		delete(set, topic)
	}
	if viewers, ok := h.topics[topic]; ok {
		delete(viewers, client)
		if len(viewers) == 0 {
			delete(h.topics, topic)
			if sub, ok := h.busSubs[topic]; ok {
				_ = sub.Close()
				delete(h.busSubs, topic)
			}
		}
	}
}

func (h *Hub) dropClient(ctx context.Context, client Client) {
	topics, ok := h.clients[client]
	if !ok {
		return
	}
	for topic := range topics {
		h.detach(client, topic)
	}
	delete(h.clients, client)
	client.Close()
}

func (h *Hub) deliver(ctx context.Context, ev models.Event) {
	for client := range h.topics[ev.Topic] {
		select {
		case client.GetSendChannel() <- ev:
		default:
			// Slow client: drop the connection rather than block the hub.
			h.dropClient(ctx, client)
		}
	}
}

func (h *Hub) shutdown() {
	for topic, sub := range h.busSubs {
		_ = sub.Close()
		delete(h.busSubs, topic)
	}
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
	h.log.Info("hub stopped")
}
