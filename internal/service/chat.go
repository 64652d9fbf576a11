package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skillbridge/console/internal/crypto"
	"github.com/skillbridge/console/internal/domain"
	"github.com/skillbridge/console/internal/infra"
	"github.com/skillbridge/console/internal/repository"
)

// DecryptPlaceholder is rendered in place of a message that fails to decrypt.
// One bad row never takes down the conversation view.
const DecryptPlaceholder = "[unable to decrypt]"

// messageFeedLimit bounds a single conversation fetch.
const messageFeedLimit = 200

// ChatService backs the encrypted chat console. Plaintext exists only in
// request and response bodies; storage and the realtime hub carry ciphertext
// envelopes exclusively.
type ChatService struct {
	db      repository.DBTX
	rooms   repository.ChatRepository
	deriver crypto.KeyDeriver
	hub     Publisher
	logger  *slog.Logger
}

// NewChatService creates a new ChatService.
func NewChatService(
	db repository.DBTX,
	rooms repository.ChatRepository,
	deriver crypto.KeyDeriver,
	hub Publisher,
	logger *slog.Logger,
) *ChatService {
	return &ChatService{
		db:      db,
		rooms:   rooms,
		deriver: deriver,
		hub:     hub,
		logger:  logger,
	}
}

// ListRooms returns all chat rooms, newest first.
func (s *ChatService) ListRooms(ctx context.Context) ([]domain.ChatRoom, error) {
	rooms, err := s.rooms.ListRooms(ctx, s.db, 100)
	if err != nil {
		return nil, domain.ErrInternal("list rooms", err)
	}
	return rooms, nil
}

// MessageView is a decrypted message for the console conversation view.
type MessageView struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Body      string    `json:"body"`
	Decrypted bool      `json:"decrypted"`
	CreatedAt time.Time `json:"created_at"`
}

// ListMessages returns a room's messages in creation order, decrypted under the
// room key. A message that fails to decrypt is rendered as a placeholder and
// flagged; the rest of the conversation is unaffected.
func (s *ChatService) ListMessages(ctx context.Context, roomID uuid.UUID) ([]MessageView, error) {
	room, err := s.rooms.FindRoom(ctx, s.db, roomID)
	if err != nil {
		return nil, domain.ErrInternal("find room", err)
	}
	if room == nil {
		return nil, domain.ErrNotFound("room", roomID.String())
	}

	msgs, err := s.rooms.ListMessages(ctx, s.db, roomID, messageFeedLimit)
	if err != nil {
		return nil, domain.ErrInternal("list messages", err)
	}

	key := s.deriver.DeriveKey(roomID.String())
	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		view := MessageView{
			ID:        m.ID,
			RoomID:    m.RoomID,
			SenderID:  m.SenderID,
			Decrypted: true,
			CreatedAt: m.CreatedAt,
		}
		plaintext, err := crypto.Decrypt(m.Ciphertext, key)
		if err != nil {
			s.logger.Warn("message failed to decrypt", "message_id", m.ID, "room_id", roomID)
			view.Body = DecryptPlaceholder
			view.Decrypted = false
		} else {
			view.Body = plaintext
		}
		views = append(views, view)
	}
	return views, nil
}

// SendInput holds the send request fields.
type SendInput struct {
	SenderID uuid.UUID `json:"sender_id"`
	Body     string    `json:"body"`
}

// Send encrypts the body under the room key, persists the ciphertext row, and
// pushes the envelope to room subscribers.
func (s *ChatService) Send(ctx context.Context, roomID uuid.UUID, input SendInput) (*MessageView, error) {
	if strings.TrimSpace(input.Body) == "" {
		return nil, domain.ErrValidation("message body is required")
	}
	if input.SenderID == uuid.Nil {
		return nil, domain.ErrValidation("sender_id is required")
	}

	room, err := s.rooms.FindRoom(ctx, s.db, roomID)
	if err != nil {
		return nil, domain.ErrInternal("find room", err)
	}
	if room == nil {
		return nil, domain.ErrNotFound("room", roomID.String())
	}

	key := s.deriver.DeriveKey(roomID.String())
	ciphertext, err := crypto.Encrypt(input.Body, key)
	if err != nil {
		return nil, domain.ErrInternal("encrypt message", err)
	}

	msg := &domain.Message{
		ID:         uuid.New(),
		RoomID:     roomID,
		SenderID:   input.SenderID,
		Ciphertext: ciphertext,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.rooms.InsertMessage(ctx, s.db, msg); err != nil {
		return nil, domain.ErrInternal("insert message", err)
	}

	if s.hub != nil {
		// Subscribers receive ciphertext only and decrypt client-side.
		s.hub.Publish(infra.RoomForChat(roomID), "message.created", msg)
	}

	return &MessageView{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		SenderID:  msg.SenderID,
		Body:      input.Body,
		Decrypted: true,
		CreatedAt: msg.CreatedAt,
	}, nil
}
