package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skillbridge/console/internal/domain"
	"github.com/skillbridge/console/internal/repository"
)

// In-memory repository fakes backing authority tests. Mutex-held operations
// mirror the atomicity the Postgres implementations provide.

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*domain.Profile
}

func newFakeProfiles(profiles ...*domain.Profile) *fakeProfiles {
	f := &fakeProfiles{profiles: make(map[uuid.UUID]*domain.Profile)}
	for _, p := range profiles {
		f.profiles[p.ID] = p
	}
	return f
}

func (f *fakeProfiles) FindByEmail(_ context.Context, _ repository.DBTX, email string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeProfiles) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeProfiles) UpdateSlug(_ context.Context, _ repository.DBTX, id uuid.UUID, slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return domain.ErrNotFound("profile", id.String())
	}
	p.CurrentSessionSlug = slug
	return nil
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions []*domain.Session
	seq      int64
}

func (f *fakeSessions) Activate(_ context.Context, _ repository.DBTX, s *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.sessions {
		if existing.IdentityID == s.IdentityID {
			existing.Active = false
		}
	}
	f.seq++
	cp := *s
	cp.Active = true
	cp.CreatedAt = time.Unix(0, f.seq)
	f.sessions = append(f.sessions, &cp)
	return nil
}

func (f *fakeSessions) NewestActive(_ context.Context, _ repository.DBTX, identityID uuid.UUID) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var newest *domain.Session
	for _, s := range f.sessions {
		if s.IdentityID == identityID && s.Active {
			if newest == nil || s.CreatedAt.After(newest.CreatedAt) {
				newest = s
			}
		}
	}
	if newest == nil {
		return nil, nil
	}
	cp := *newest
	return &cp, nil
}

func (f *fakeSessions) DeactivateByToken(_ context.Context, _ repository.DBTX, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.Token == token {
			s.Active = false
		}
	}
	return nil
}

func (f *fakeSessions) CountActive(_ context.Context, _ repository.DBTX, identityID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sessions {
		if s.IdentityID == identityID && s.Active {
			n++
		}
	}
	return n, nil
}

type fakeAudits struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (f *fakeAudits) Insert(_ context.Context, _ repository.DBTX, e *domain.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *e
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	f.events = append(f.events, cp)
	return nil
}

func (f *fakeAudits) ListRecent(_ context.Context, _ repository.DBTX, limit int) ([]domain.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.AuditEvent, 0, limit)
	for i := len(f.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.events[i])
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

func (f *fakeAudits) byType(eventType domain.EventType) []domain.AuditEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AuditEvent
	for _, e := range f.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}
