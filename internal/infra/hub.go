package infra

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Realtime room names. Chat rooms are scoped "room:{id}"; the security feed and
// settings changes fan out on fixed rooms.
const (
	RoomAudit    = "audit"
	RoomSettings = "settings"
)

// RoomForChat returns the realtime room name for a chat room id.
func RoomForChat(roomID uuid.UUID) string {
	return "room:" + roomID.String()
}

// Hub manages realtime subscribers and room-based delivery. Delivery is
// at-least-once and best-effort: a subscriber with a full buffer is skipped.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]*Subscriber // room -> subID -> sub
	logger *slog.Logger
}

// Subscriber receives room payloads on its Send channel.
type Subscriber struct {
	ID   string
	Send chan []byte
}

// PushMessage is the payload delivered to subscribers.
type PushMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// NewHub creates a realtime hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[string]*Subscriber),
		logger: logger,
	}
}

// Subscribe registers a subscriber in a room and returns it. The subscriber is
// removed and its channel closed when ctx ends; unmounting a view must cancel.
func (h *Hub) Subscribe(ctx context.Context, room string) *Subscriber {
	sub := &Subscriber{
		ID:   uuid.New().String(),
		Send: make(chan []byte, 16),
	}

	h.mu.Lock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*Subscriber)
	}
	h.rooms[room][sub.ID] = sub
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.leave(room, sub.ID)
	}()

	return sub
}

func (h *Hub) leave(room, subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.rooms[room]; ok {
		if sub, ok := subs[subID]; ok {
			delete(subs, subID)
			close(sub.Send)
		}
		if len(subs) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Publish sends a message to all subscribers in a room.
func (h *Hub) Publish(room string, event string, data interface{}) {
	msg := PushMessage{Event: event, Data: data}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("hub marshal error", "error", err, "room", room, "event", event)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	subs, ok := h.rooms[room]
	if !ok {
		return
	}

	for _, sub := range subs {
		select {
		case sub.Send <- payload:
		default:
			h.logger.Warn("hub send buffer full", "subID", sub.ID, "room", room)
		}
	}
}

// SubscriberCount returns the total number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for _, subs := range h.rooms {
		count += len(subs)
	}
	return count
}

// Shutdown closes all subscriber channels.
func (h *Hub) Shutdown(_ context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, subs := range h.rooms {
		for _, sub := range subs {
			close(sub.Send)
		}
		delete(h.rooms, room)
	}
}
