package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"wingmate/backend/internal/models"
)

// MemoryBus is an in-process Bus used by tests and single-node runs.
// Delivery is synchronous, which keeps event ordering deterministic for
// the reconciler state machine tests.
type MemoryBus struct {
	mu     sync.Mutex
	subs   map[string]map[*memorySub]bool
	closed bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[*memorySub]bool)}
}

func (b *MemoryBus) Publish(ctx context.Context, topic, event string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := models.Event{Topic: topic, Name: event, Payload: body}

	b.mu.Lock()
	var targets []*memorySub
	for sub := range b.subs[topic] {
		targets = append(targets, sub)
	}
	b.mu.Unlock()

	for _, sub := range targets {
		sub.onEvent(env)
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, topic string, onEvent func(models.Event)) (Subscription, error) {
	sub := &memorySub{bus: b, topic: topic, onEvent: onEvent}

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*memorySub]bool)
	}
	b.subs[topic][sub] = true
	b.mu.Unlock()

	return sub, nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	b.subs = make(map[string]map[*memorySub]bool)
	b.closed = true
	b.mu.Unlock()
	return nil
}

// SubscriberCount reports the live subscriptions for a topic.
func (b *MemoryBus) SubscriberCount(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}

type memorySub struct {
	bus     *MemoryBus
	topic   string
	onEvent func(models.Event)
}

func (s *memorySub) Close() error {
	s.bus.mu.Lock()
	if set, ok := s.bus.subs[s.topic]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(s.bus.subs, s.topic)
		}
	}
	s.bus.mu.Unlock()
	return nil
}
