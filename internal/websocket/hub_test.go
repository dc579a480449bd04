package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestClient(hub *Hub, userID primitive.ObjectID) *Client {
	return &Client{
		Hub:    hub,
		UserID: userID,
		Send:   make(chan []byte, 8),
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := primitive.NewObjectID()
	client := newTestClient(hub, userID)

	hub.Register <- client
	waitFor(t, func() bool { return hub.IsOnline(userID) })

	hub.Unregister <- client
	waitFor(t, func() bool { return !hub.IsOnline(userID) })
}

func TestHubLastConnectionWins(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := primitive.NewObjectID()
	first := newTestClient(hub, userID)
	second := newTestClient(hub, userID)

	hub.Register <- first
	waitFor(t, func() bool { return hub.IsOnline(userID) })

	hub.Register <- second

	// The first client's send channel is closed when it is displaced.
	select {
	case _, open := <-first.Send:
		assert.False(t, open, "expected the displaced client's channel to be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("displaced client's channel was never closed")
	}

	// The stale connection unregistering must not take the new one offline.
	hub.Unregister <- first
	time.Sleep(50 * time.Millisecond)
	assert.True(t, hub.IsOnline(userID))

	// Messages land on the surviving connection.
	hub.SendDirectMessage(userID, []byte("hello"))
	select {
	case payload := <-second.Send:
		assert.Equal(t, "hello", string(payload))
	case <-time.After(2 * time.Second):
		t.Fatal("message never reached the new connection")
	}
}

func TestHubSendDirectToOfflineUserIsDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Nothing to assert beyond "does not block or panic".
	hub.SendDirectMessage(primitive.NewObjectID(), []byte("into the void"))
}

func TestHubOnlineUsers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	hub.Register <- newTestClient(hub, a)
	hub.Register <- newTestClient(hub, b)

	waitFor(t, func() bool { return len(hub.OnlineUsers()) == 2 })
	require.ElementsMatch(t, []primitive.ObjectID{a, b}, hub.OnlineUsers())
}
