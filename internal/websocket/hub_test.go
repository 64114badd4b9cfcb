package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/isdelr/carshelf/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func TestHub_PublishReachesEveryClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	a := NewClient(hub, nil, "a1")
	b := NewClient(hub, nil, "a2")
	hub.Register <- a
	hub.Register <- b

	hub.Publish(models.Event{ID: "e1", Type: "item.create", Message: "Item 'Book A' added."})

	for _, c := range []*Client{a, b} {
		msg := receive(t, c)
		assert.Equal(t, ActionEvent, msg.Action)
		payload, ok := msg.Payload.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "item.create", payload["type"])
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	c := NewClient(hub, nil, "a1")
	hub.Register <- c
	hub.Unregister <- c

	select {
	case _, ok := <-c.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	hub := NewHub() // not running, so nothing drains Broadcast

	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(hub.Broadcast)+10; i++ {
			hub.Publish(models.Event{Type: "item.create"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked")
	}
	assert.Len(t, hub.Broadcast, cap(hub.Broadcast))
}

func TestNewErrorMessage(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal(NewErrorMessage("boom"), &msg))
	assert.Equal(t, ActionError, msg.Action)
	assert.Equal(t, map[string]interface{}{"message": "boom"}, msg.Payload)
}

func TestHub_SendToTargetsOneClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	a := NewClient(hub, nil, "a1")
	b := NewClient(hub, nil, "a2")
	hub.Register <- a
	hub.Register <- b

	hub.SendTo(a, NewErrorMessage("only a"))
	assert.Equal(t, ActionError, receive(t, a).Action)
	assert.Len(t, b.Send, 0)

	hub.Unregister <- a
	hub.SendTo(a, NewErrorMessage("dropped"))
	_, ok := <-a.Send
	assert.False(t, ok)
}

func TestHub_AddAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	live := NewClient(hub, nil, "a1")
	require.True(t, hub.Add(live))
	hub.Stop()

	done := make(chan bool, 1)
	go func() {
		late := NewClient(hub, nil, "a2")
		done <- hub.Add(late)
		hub.Remove(late)
	}()

	select {
	case accepted := <-done:
		assert.False(t, accepted)
	case <-time.After(time.Second):
		t.Fatal("Add blocked after Stop")
	}
}
