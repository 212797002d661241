package realtime_test

import (
	"sync"

	"wingmate/backend/internal/models"
)

// mockClient is a transport-free Client for hub tests. Events land on the
// send channel; Close signals through the closed channel.
type mockClient struct {
	userID string
	send   chan models.Event
	closed chan struct{}

	closeOnce sync.Once
}

func newMockClient(userID string, buffer int) *mockClient {
	return &mockClient{
		userID: userID,
		send:   make(chan models.Event, buffer),
		closed: make(chan struct{}),
	}
}

func (c *mockClient) GetUserID() string { return c.userID }

func (c *mockClient) GetSendChannel() chan<- models.Event { return c.send }

func (c *mockClient) Run() {}

func (c *mockClient) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *mockClient) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
