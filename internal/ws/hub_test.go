package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/publicchat/internal/model"
	"github.com/quocanhngo/publicchat/pkg/logger"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

// eventually polls cond until it holds or the deadline passes
func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func receive(t *testing.T, c *Client) (model.WSEvent, bool) {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if !ok {
			return model.WSEvent{}, false
		}
		var ev model.WSEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return ev, true
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return model.WSEvent{}, false
	}
}

func TestHub_PublishToRoomReachesOnlyThatRoom(t *testing.T) {
	hub := startHub(t)
	room, other := uuid.New(), uuid.New()

	a := NewClient(hub, nil, room, uuid.New())
	b := NewClient(hub, nil, room, uuid.New())
	c := NewClient(hub, nil, other, uuid.New())
	hub.Register(a)
	hub.Register(b)
	hub.Register(c)
	eventually(t, func() bool { return hub.RoomSize(room) == 2 && hub.RoomSize(other) == 1 })

	hub.PublishToRoom(room, &model.WSEvent{Type: model.WSEventMemberJoined})

	for _, client := range []*Client{a, b} {
		ev, ok := receive(t, client)
		if !ok || ev.Type != model.WSEventMemberJoined {
			t.Errorf("client %s got %+v (open=%v), want member_joined", client.UserID, ev, ok)
		}
	}
	select {
	case <-c.send:
		t.Error("client in another room received the event")
	default:
	}
}

func TestHub_ReconnectReplacesStaleConnection(t *testing.T) {
	hub := startHub(t)
	room, user := uuid.New(), uuid.New()

	first := NewClient(hub, nil, room, user)
	hub.Register(first)
	eventually(t, func() bool { return hub.IsConnected(room, user) })

	second := NewClient(hub, nil, room, user)
	hub.Register(second)

	if _, open := <-first.send; open {
		t.Fatal("stale connection should have its send channel closed")
	}
	eventually(t, func() bool { return hub.RoomSize(room) == 1 })

	if !hub.IsConnected(room, user) {
		t.Fatal("replacement connection is not tracked")
	}

	hub.PublishToRoom(room, &model.WSEvent{Type: model.WSEventMemberJoined})
	if ev, ok := receive(t, second); !ok || ev.Type != model.WSEventMemberJoined {
		t.Fatalf("replacement got %+v (open=%v), want member_joined", ev, ok)
	}

	// unregistering the stale client must not evict the new one
	hub.Unregister(first)
	if !hub.IsConnected(room, user) {
		t.Error("replacement connection was dropped")
	}
}

func TestHub_ReconnectKeepsOtherMembers(t *testing.T) {
	hub := startHub(t)
	room, user := uuid.New(), uuid.New()

	peer := NewClient(hub, nil, room, uuid.New())
	first := NewClient(hub, nil, room, user)
	hub.Register(peer)
	hub.Register(first)
	eventually(t, func() bool { return hub.RoomSize(room) == 2 })

	second := NewClient(hub, nil, room, user)
	hub.Register(second)
	eventually(t, func() bool { return hub.RoomSize(room) == 2 })

	hub.PublishToRoom(room, &model.WSEvent{Type: model.WSEventMemberLeft})
	for _, client := range []*Client{peer, second} {
		if ev, ok := receive(t, client); !ok || ev.Type != model.WSEventMemberLeft {
			t.Errorf("client %s got %+v (open=%v), want member_left", client.UserID, ev, ok)
		}
	}
}

func TestHub_StoppedHubDoesNotBlock(t *testing.T) {
	hub := NewHub(nil, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	live := NewClient(hub, nil, uuid.New(), uuid.New())
	if !hub.Register(live) {
		t.Fatal("Register() on a running hub = false")
	}
	cancel()
	<-stopped

	if _, open := <-live.send; open {
		t.Error("stopping the hub should close live connections")
	}

	returned := make(chan bool, 1)
	go func() {
		late := NewClient(hub, nil, uuid.New(), uuid.New())
		hub.Unregister(live)
		returned <- hub.Register(late)
	}()
	select {
	case ok := <-returned:
		if ok {
			t.Error("Register() on a stopped hub = true")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Register/Unregister blocked after the hub stopped")
	}
}

func TestHub_ChatClosedDisconnectsRoom(t *testing.T) {
	hub := startHub(t)
	room := uuid.New()

	a := NewClient(hub, nil, room, uuid.New())
	hub.Register(a)
	eventually(t, func() bool { return hub.RoomSize(room) == 1 })

	hub.PublishToRoom(room, &model.WSEvent{
		Type:    model.WSEventChatClosed,
		Payload: model.ChatClosedPayload{ChatID: room, Status: model.ChatStatusEnded},
	})

	ev, ok := receive(t, a)
	if !ok || ev.Type != model.WSEventChatClosed {
		t.Fatalf("got %+v (open=%v), want chat_closed", ev, ok)
	}
	if _, open := <-a.send; open {
		t.Error("send channel should be closed after chat_closed")
	}
	if n := hub.RoomSize(room); n != 0 {
		t.Errorf("RoomSize = %d, want 0", n)
	}
}

func TestHub_UnregisterUnknownClientIsNoop(t *testing.T) {
	hub := startHub(t)
	stray := NewClient(hub, nil, uuid.New(), uuid.New())

	hub.Unregister(stray)
	hub.PublishToRoom(stray.RoomID, &model.WSEvent{Type: model.WSEventMemberLeft})

	if n := hub.RoomSize(stray.RoomID); n != 0 {
		t.Errorf("RoomSize = %d, want 0", n)
	}
}
