package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/skillbridge/console/internal/domain"
)

// PgChatRepository implements ChatRepository using pgx.
type PgChatRepository struct{}

// NewPgChatRepository creates a new PgChatRepository.
func NewPgChatRepository() *PgChatRepository {
	return &PgChatRepository{}
}

// ListRooms returns all chat rooms, newest first.
func (r *PgChatRepository) ListRooms(ctx context.Context, db DBTX, limit int) ([]domain.ChatRoom, error) {
	rows, err := db.Query(ctx,
		`SELECT id, counterpart_id, created_at
		 FROM chat_rooms ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []domain.ChatRoom
	for rows.Next() {
		var room domain.ChatRoom
		if err := rows.Scan(&room.ID, &room.CounterpartID, &room.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// FindRoom returns a room by id, or nil if not found.
func (r *PgChatRepository) FindRoom(ctx context.Context, db DBTX, id uuid.UUID) (*domain.ChatRoom, error) {
	row := db.QueryRow(ctx,
		`SELECT id, counterpart_id, created_at FROM chat_rooms WHERE id = $1`, id)

	room := &domain.ChatRoom{}
	err := row.Scan(&room.ID, &room.CounterpartID, &room.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

// ListMessages returns a room's messages in creation order.
func (r *PgChatRepository) ListMessages(ctx context.Context, db DBTX, roomID uuid.UUID, limit int) ([]domain.Message, error) {
	rows, err := db.Query(ctx,
		`SELECT id, room_id, sender_id, ciphertext, created_at
		 FROM messages WHERE room_id = $1
		 ORDER BY created_at ASC LIMIT $2`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Ciphertext, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// InsertMessage appends a ciphertext message row.
func (r *PgChatRepository) InsertMessage(ctx context.Context, db DBTX, m *domain.Message) error {
	_, err := db.Exec(ctx,
		`INSERT INTO messages (id, room_id, sender_id, ciphertext)
		 VALUES ($1, $2, $3, $4)`,
		m.ID, m.RoomID, m.SenderID, m.Ciphertext)
	return err
}
