package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/quocanhngo/publicchat/internal/model"
	"github.com/quocanhngo/publicchat/pkg/logger"
	"github.com/quocanhngo/publicchat/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisChannel = "publicchat:rooms"

// Hub tracks live room connections on this instance, keyed by chat ID.
// Room events go through Redis Pub/Sub so every instance delivers to its own clients.
type Hub struct {
	// roomID -> set of connections; one connection per user per room
	rooms map[uuid.UUID]map[*Client]bool
	mu    sync.RWMutex

	register   chan *Client
	unregister chan *Client
	// closed when Run returns
	done chan struct{}

	// nil runs the hub in single-instance mode
	rdb *redis.Client
	log *logger.Logger
}

// NewHub creates a new room Hub
func NewHub(rdb *redis.Client, log *logger.Logger) *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		rdb:        rdb,
		log:        log.Named("ws_hub"),
	}
}

// Run starts the Hub's main event loop
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	if h.rdb != nil {
		go h.subscribeRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// Register queues a client for registration with the hub.
// Returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister queues a client for removal; a no-op once the hub has stopped
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// addClient registers a connection, replacing any earlier one of the same user in the room
func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for existing := range h.rooms[client.RoomID] {
		if existing.UserID == client.UserID {
			h.dropLocked(client.RoomID, existing)
			h.log.Info("replaced stale room connection",
				zap.String("room_id", client.RoomID.String()),
				zap.String("user_id", client.UserID.String()),
			)
		}
	}

	// dropLocked prunes empty rooms, so look the room up after replacing
	clients, ok := h.rooms[client.RoomID]
	if !ok {
		clients = make(map[*Client]bool)
		h.rooms[client.RoomID] = clients
	}
	clients[client] = true
	metrics.RoomConnectionsActive.Inc()
	h.log.Debug("room client connected",
		zap.String("room_id", client.RoomID.String()),
		zap.String("user_id", client.UserID.String()),
		zap.Int("room_size", len(clients)),
	)
}

// removeClient unregisters a connection if it is still tracked
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dropLocked(client.RoomID, client) {
		h.log.Debug("room client disconnected",
			zap.String("room_id", client.RoomID.String()),
			zap.String("user_id", client.UserID.String()),
		)
	}
}

// dropLocked closes and forgets a client; mu must be held for writing
func (h *Hub) dropLocked(roomID uuid.UUID, client *Client) bool {
	clients, ok := h.rooms[roomID]
	if !ok || !clients[client] {
		return false
	}
	delete(clients, client)
	close(client.send)
	metrics.RoomConnectionsActive.Dec()
	if len(clients) == 0 {
		delete(h.rooms, roomID)
	}
	return true
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for roomID, clients := range h.rooms {
		for client := range clients {
			h.dropLocked(roomID, client)
		}
	}
}

// PublishToRoom delivers an event to every live member of a room across instances
func (h *Hub) PublishToRoom(roomID uuid.UUID, event *model.WSEvent) {
	msg := &RoomEvent{RoomID: roomID, Event: event}
	if h.rdb == nil {
		h.deliver(msg)
		return
	}
	h.publishToRedis(msg)
}

// deliver sends to local clients; chat_closed also disconnects the room
func (h *Hub) deliver(msg *RoomEvent) {
	if msg.Event == nil {
		return
	}
	h.sendToLocalRoom(msg.RoomID, msg.Event)
	if msg.Event.Type == model.WSEventChatClosed {
		h.closeLocalRoom(msg.RoomID)
	}
}

// sendToLocalRoom sends an event to the room's clients on this instance only
func (h *Hub) sendToLocalRoom(roomID uuid.UUID, event *model.WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("marshal room event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.rooms[roomID] {
		select {
		case client.send <- data:
		default:
			// send buffer full, drop the connection
			h.dropLocked(roomID, client)
		}
	}
}

func (h *Hub) closeLocalRoom(roomID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.rooms[roomID] {
		h.dropLocked(roomID, client)
	}
}

// RoomSize returns the number of live connections to a room on this instance
func (h *Hub) RoomSize(roomID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// IsConnected reports whether a user has a live connection to a room on this instance
func (h *Hub) IsConnected(roomID, userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[roomID] {
		if client.UserID == userID {
			return true
		}
	}
	return false
}

// ========== Redis Pub/Sub for Horizontal Scaling ==========

// RoomEvent wraps an event with its target room for Redis Pub/Sub
type RoomEvent struct {
	RoomID uuid.UUID      `json:"room_id"`
	Event  *model.WSEvent `json:"event"`
}

// publishToRedis publishes an event to Redis for cross-instance delivery
func (h *Hub) publishToRedis(msg *RoomEvent) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal room event for redis", zap.Error(err))
		return
	}

	if err := h.rdb.Publish(context.Background(), redisChannel, data).Err(); err != nil {
		h.log.Warn("redis publish failed, delivering locally", zap.Error(err))
		h.deliver(msg)
	}
}

// subscribeRedis subscribes to Redis and delivers events to local clients
func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	h.log.Info("📡 Redis Pub/Sub subscriber started", zap.String("channel", redisChannel))

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event RoomEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.log.Warn("unmarshal redis room event", zap.Error(err))
				continue
			}
			h.deliver(&event)
		}
	}
}
