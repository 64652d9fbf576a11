package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatRoom pairs an external counterpart with the admin operator.
type ChatRoom struct {
	ID            uuid.UUID `json:"id"`
	CounterpartID uuid.UUID `json:"counterpart_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// Message represents a messages row. Only ciphertext is ever persisted; the
// payload is base64(nonce || AES-GCM ciphertext) under the room-derived key.
type Message struct {
	ID         uuid.UUID `json:"id"`
	RoomID     uuid.UUID `json:"room_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	Ciphertext string    `json:"ciphertext"`
	CreatedAt  time.Time `json:"created_at"`
}
