package realtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"wingmate/backend/internal/logger"
	"wingmate/backend/internal/models"
	"wingmate/backend/internal/realtime"
)

func startHub(t *testing.T, bus realtime.Bus) (*realtime.Hub, context.CancelFunc) {
	t.Helper()
	hub := realtime.NewHub(logger.NewNop(), bus)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	return hub, cancel
}

func waitForEvent(t *testing.T, ch chan models.Event) models.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return models.Event{}
	}
}

func TestHubDeliversToTopicViewers(t *testing.T) {
	bus := realtime.NewMemoryBus()
	hub, cancel := startHub(t, bus)
	defer cancel()

	viewer := newMockClient("user-a", 4)
	bystander := newMockClient("user-b", 4)
	hub.RegisterCh <- viewer
	hub.RegisterCh <- bystander
	hub.Subscribe(viewer, "m1")
	time.Sleep(50 * time.Millisecond)

	err := bus.Publish(context.Background(), models.MatchTopic("m1"),
		models.EventMessageInserted, models.Message{ID: "msg-1", MatchID: "m1", Text: "hi"})
	assert.NoError(t, err)

	ev := waitForEvent(t, viewer.send)
	assert.Equal(t, models.EventMessageInserted, ev.Name)
	assert.Equal(t, models.MatchTopic("m1"), ev.Topic)
	assert.Empty(t, bystander.send, "clients only receive topics they subscribed to")
}

func TestHubSharesOneBusSubscriptionPerTopic(t *testing.T) {
	bus := realtime.NewMemoryBus()
	hub, cancel := startHub(t, bus)
	defer cancel()

	a := newMockClient("user-a", 4)
	b := newMockClient("user-b", 4)
	hub.RegisterCh <- a
	hub.RegisterCh <- b
	hub.Subscribe(a, "m1")
	hub.Subscribe(b, "m1")
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, bus.SubscriberCount(models.MatchTopic("m1")))

	// The topic subscription survives the first viewer leaving and is
	// torn down with the last one.
	hub.Unsubscribe(a, "m1")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, bus.SubscriberCount(models.MatchTopic("m1")))

	hub.Unsubscribe(b, "m1")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, bus.SubscriberCount(models.MatchTopic("m1")))
}

func TestHubUnregisterCleansUpTopics(t *testing.T) {
	bus := realtime.NewMemoryBus()
	hub, cancel := startHub(t, bus)
	defer cancel()

	viewer := newMockClient("user-a", 4)
	hub.RegisterCh <- viewer
	hub.Subscribe(viewer, "m1")
	hub.Subscribe(viewer, "m2")
	time.Sleep(50 * time.Millisecond)

	hub.UnregisterCh <- viewer
	time.Sleep(50 * time.Millisecond)

	assert.True(t, viewer.isClosed())
	assert.Equal(t, 0, bus.SubscriberCount(models.MatchTopic("m1")))
	assert.Equal(t, 0, bus.SubscriberCount(models.MatchTopic("m2")))
}

func TestHubDropsSlowClient(t *testing.T) {
	bus := realtime.NewMemoryBus()
	hub, cancel := startHub(t, bus)
	defer cancel()

	// Zero buffer means the first delivery already cannot be accepted.
	slow := newMockClient("user-a", 0)
	hub.RegisterCh <- slow
	hub.Subscribe(slow, "m1")
	time.Sleep(50 * time.Millisecond)

	err := bus.Publish(context.Background(), models.MatchTopic("m1"),
		models.EventTyping, models.PresencePayload{MatchID: "m1", SenderID: "user-b"})
	assert.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	assert.True(t, slow.isClosed(), "a blocked client is dropped, not waited on")
	assert.Equal(t, 0, bus.SubscriberCount(models.MatchTopic("m1")))
}

func TestHubPublishTyping(t *testing.T) {
	bus := realtime.NewMemoryBus()
	hub, cancel := startHub(t, bus)
	defer cancel()

	var got []models.Event
	_, err := bus.Subscribe(context.Background(), models.MatchTopic("m1"), func(ev models.Event) {
		got = append(got, ev)
	})
	assert.NoError(t, err)

	hub.PublishTyping(context.Background(), "m1", "user-a", true)
	hub.PublishTyping(context.Background(), "m1", "user-a", false)

	assert.Len(t, got, 2)
	assert.Equal(t, models.EventTyping, got[0].Name)
	assert.Equal(t, models.EventTypingStop, got[1].Name)
}

func TestHubShutdownClosesEverything(t *testing.T) {
	bus := realtime.NewMemoryBus()
	hub, cancel := startHub(t, bus)

	viewer := newMockClient("user-a", 4)
	hub.RegisterCh <- viewer
	hub.Subscribe(viewer, "m1")
	time.Sleep(50 * time.Millisecond)

	cancel()
	time.Sleep(50 * time.Millisecond)

	assert.True(t, viewer.isClosed())
	assert.Equal(t, 0, bus.SubscriberCount(models.MatchTopic("m1")))
}
