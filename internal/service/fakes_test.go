package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skillbridge/console/internal/domain"
	"github.com/skillbridge/console/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAudits struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (f *fakeAudits) Insert(_ context.Context, _ repository.DBTX, e *domain.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *e)
	return nil
}

func (f *fakeAudits) ListRecent(_ context.Context, _ repository.DBTX, limit int) ([]domain.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.AuditEvent, len(f.events))
	copy(out, f.events)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAudits) Resolve(_ context.Context, _ repository.DBTX, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.events {
		if f.events[i].ID == id && f.events[i].ResolutionStatus == domain.ResolutionOpen {
			f.events[i].ResolutionStatus = domain.ResolutionResolved
		}
	}
	return nil
}

type fakeSettings struct {
	mu      sync.Mutex
	current domain.SiteSettings
	updates int
}

func (f *fakeSettings) Get(_ context.Context, _ repository.DBTX) (*domain.SiteSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.current
	return &s, nil
}

func (f *fakeSettings) Update(_ context.Context, _ repository.DBTX, s *domain.SiteSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = *s
	f.updates++
	return nil
}

type fakeChatRepo struct {
	mu       sync.Mutex
	rooms    []domain.ChatRoom
	messages map[uuid.UUID][]domain.Message
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{messages: make(map[uuid.UUID][]domain.Message)}
}

func (f *fakeChatRepo) ListRooms(_ context.Context, _ repository.DBTX, limit int) ([]domain.ChatRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.ChatRoom, len(f.rooms))
	copy(out, f.rooms)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeChatRepo) FindRoom(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.ChatRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		if r.ID == id {
			room := r
			return &room, nil
		}
	}
	return nil, nil
}

func (f *fakeChatRepo) ListMessages(_ context.Context, _ repository.DBTX, roomID uuid.UUID, limit int) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[roomID]
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeChatRepo) InsertMessage(_ context.Context, _ repository.DBTX, m *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[m.RoomID] = append(f.messages[m.RoomID], *m)
	return nil
}

type publishedEvent struct {
	Room  string
	Event string
	Data  interface{}
}

type fakeHub struct {
	mu        sync.Mutex
	published []publishedEvent
}

func (f *fakeHub) Publish(room string, event string, data interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishedEvent{Room: room, Event: event, Data: data})
}

func (f *fakeHub) byRoom(room string) []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []publishedEvent
	for _, p := range f.published {
		if p.Room == room {
			out = append(out, p)
		}
	}
	return out
}

type fakeRotator struct {
	slug     string
	fromSlug string
	err      error
}

func (f *fakeRotator) RotateSlug(_ context.Context, fromSlug string) (string, *http.Cookie, error) {
	f.fromSlug = fromSlug
	if f.err != nil {
		return "", nil, f.err
	}
	return f.slug, &http.Cookie{Name: "session_routing_slug", Value: "signed", MaxAge: int(24 * time.Hour / time.Second)}, nil
}
