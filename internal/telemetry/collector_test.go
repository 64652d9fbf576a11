package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/skillbridge/console/internal/domain"
	"github.com/skillbridge/console/internal/infra"
	"github.com/skillbridge/console/internal/provider"
	"github.com/skillbridge/console/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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
	out := make([]domain.AuditEvent, 0, limit)
	for i := len(f.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.events[i])
	}
	return out, nil
}

func (f *fakeAudits) Resolve(_ context.Context, _ repository.DBTX, id uuid.UUID) error {
	return nil
}

func (f *fakeAudits) countByType(t domain.EventType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.EventType == t {
			n++
		}
	}
	return n
}

func (f *fakeAudits) threats() []domain.AuditEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AuditEvent
	for _, e := range f.events {
		if e.EventType == domain.EventThreatDetected {
			out = append(out, e)
		}
	}
	return out
}

type fakeSettings struct {
	settings domain.SiteSettings
}

func (f *fakeSettings) Get(_ context.Context, _ repository.DBTX) (*domain.SiteSettings, error) {
	cp := f.settings
	return &cp, nil
}

func (f *fakeSettings) Update(_ context.Context, _ repository.DBTX, s *domain.SiteSettings) error {
	f.settings = *s
	return nil
}

type fakeGeo struct {
	mu     sync.Mutex
	calls  int
	result provider.GeoResult
}

func (f *fakeGeo) Lookup(_ context.Context, _ string) provider.GeoResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result
}

type fakePublisher struct {
	mu       sync.Mutex
	messages [][]byte
}

func (f *fakePublisher) Publish(_ context.Context, _ string, _, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, value)
	return nil
}

func (f *fakePublisher) last() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return nil
	}
	return f.messages[len(f.messages)-1]
}

type fakeMailer struct {
	mu     sync.Mutex
	alerts []provider.ThreatAlert
}

func (f *fakeMailer) SendThreatAlert(_ context.Context, alert provider.ThreatAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
	return nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

type collectorFixture struct {
	collector *Collector
	audits    *fakeAudits
	settings  *fakeSettings
	geo       *fakeGeo
	mailer    *fakeMailer
	publisher *fakePublisher
	clock     time.Time
}

func newCollectorFixture(sensitivity float64) *collectorFixture {
	f := &collectorFixture{
		audits:    &fakeAudits{},
		settings:  &fakeSettings{settings: domain.SiteSettings{ID: 1, BotSensitivity: sensitivity, NotificationEmail: "admin@example.com"}},
		geo:       &fakeGeo{result: provider.GeoResult{IP: "203.0.113.9", Country: "Germany"}},
		mailer:    &fakeMailer{},
		publisher: &fakePublisher{},
		clock:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.collector = NewCollector(CollectorDeps{
		Audits:    f.audits,
		Settings:  f.settings,
		Geo:       f.geo,
		Mailer:    f.mailer,
		Publisher: f.publisher,
		Subdomain: "admin",
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	f.collector.now = func() time.Time { return f.clock }
	return f
}

func (f *collectorFixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func clickEvent(target string) RawEvent {
	return RawEvent{
		Type:       domain.EventClick,
		Path:       "/vault/abcd1234/dashboard",
		TargetID:   target,
		SessionKey: "tab-1",
		SourceIP:   "203.0.113.9",
		UserAgent:  "test-agent",
	}
}

func TestLogEvent_PersistsEnrichedEvent(t *testing.T) {
	f := newCollectorFixture(0.5)

	f.collector.LogEvent(context.Background(), clickEvent("save-button"))

	require.Len(t, f.audits.events, 1)
	e := f.audits.events[0]
	assert.Equal(t, domain.EventClick, e.EventType)
	assert.Equal(t, "203.0.113.9", e.IPAddress)
	assert.Equal(t, "Germany", e.Country)
	assert.Equal(t, "admin", e.Subdomain)
	assert.Equal(t, domain.ResolutionOpen, e.ResolutionStatus)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(e.Metadata, &meta))
	assert.Equal(t, "/vault/abcd1234/dashboard", meta["path"])
	assert.Equal(t, "save-button", meta["target"])
}

func TestLogEvent_DedupSuppressesRepeatClicks(t *testing.T) {
	f := newCollectorFixture(0.5)
	ctx := context.Background()

	f.collector.LogEvent(ctx, clickEvent("save-button"))
	f.advance(5 * time.Second)
	f.collector.LogEvent(ctx, clickEvent("save-button"))
	assert.Equal(t, 1, f.audits.countByType(domain.EventClick))

	// A different target is not suppressed.
	f.collector.LogEvent(ctx, clickEvent("delete-button"))
	assert.Equal(t, 2, f.audits.countByType(domain.EventClick))

	// After the TTL the same target logs again.
	f.advance(DedupTTL + time.Second)
	f.collector.LogEvent(ctx, clickEvent("save-button"))
	assert.Equal(t, 3, f.audits.countByType(domain.EventClick))
}

func TestLogEvent_PageViewOncePerPathPerSession(t *testing.T) {
	f := newCollectorFixture(0.5)
	ctx := context.Background()

	view := func(path, session string) RawEvent {
		return RawEvent{Type: domain.EventPageView, Path: path, SessionKey: session, SourceIP: "203.0.113.9"}
	}

	f.collector.LogEvent(ctx, view("/vault/abcd1234/dashboard", "tab-1"))
	f.collector.LogEvent(ctx, view("/vault/abcd1234/dashboard", "tab-1"))
	f.collector.LogEvent(ctx, view("/vault/abcd1234/users", "tab-1"))
	f.collector.LogEvent(ctx, view("/vault/abcd1234/dashboard", "tab-2"))

	assert.Equal(t, 3, f.audits.countByType(domain.EventPageView))
}

func TestLogEvent_BurstEmitsExactlyOneThreat(t *testing.T) {
	f := newCollectorFixture(1) // strict: threshold 10
	ctx := context.Background()

	// 20 interactions inside one second. Dedup uses distinct targets so the
	// burst window, not the dedup set, is what's exercised.
	for i := 0; i < 20; i++ {
		ev := clickEvent("target-" + string(rune('a'+i)))
		f.collector.LogEvent(ctx, ev)
		f.advance(40 * time.Millisecond)
	}

	threats := f.audits.threats()
	require.Len(t, threats, 1)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(threats[0].Metadata, &meta))
	assert.Equal(t, string(domain.ThreatBotActivity), meta["threat_type"])
	assert.Equal(t, string(domain.SeverityHigh), meta["severity"])

	assert.Equal(t, 1, f.mailer.count())
}

func TestLogEvent_IdleGapResetsBurstWindow(t *testing.T) {
	f := newCollectorFixture(1)
	ctx := context.Background()

	// Under-threshold bursts separated by idle gaps never trip.
	for burst := 0; burst < 5; burst++ {
		for i := 0; i < 8; i++ {
			f.collector.LogEvent(ctx, clickEvent("t"))
			f.advance(50 * time.Millisecond)
		}
		f.advance(3 * time.Second)
	}

	assert.Empty(t, f.audits.threats())
}

func TestLogEvent_HoneypotBypassesRateWindow(t *testing.T) {
	f := newCollectorFixture(0) // relaxed sensitivity must not matter
	ctx := context.Background()

	f.collector.LogEvent(ctx, RawEvent{
		Type:       domain.EventPageView,
		Path:       "/wp-admin/setup.php",
		SessionKey: "tab-1",
		SourceIP:   "203.0.113.9",
	})

	threats := f.audits.threats()
	require.Len(t, threats, 1)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(threats[0].Metadata, &meta))
	assert.Equal(t, string(domain.ThreatHoneypotAccess), meta["threat_type"])
	assert.Equal(t, string(domain.SeverityCritical), meta["severity"])

	// The raw page view is persisted alongside the threat record.
	assert.Equal(t, 1, f.audits.countByType(domain.EventPageView))
	assert.Equal(t, 1, f.mailer.count())
}

func TestLogEvent_GeoFailureUsesSentinelWithoutBlocking(t *testing.T) {
	f := newCollectorFixture(0.5)
	f.geo.result = provider.UnknownLocation

	start := time.Now()
	f.collector.LogEvent(context.Background(), clickEvent("save-button"))
	assert.Less(t, time.Since(start), provider.GeoLookupTimeout)

	require.Len(t, f.audits.events, 1)
	assert.Equal(t, "0.0.0.0", f.audits.events[0].IPAddress)
	assert.Equal(t, "Unknown", f.audits.events[0].Country)
}

func TestLogEvent_GeoMemoizedPerSession(t *testing.T) {
	f := newCollectorFixture(0.5)
	ctx := context.Background()

	f.collector.LogEvent(ctx, clickEvent("a"))
	f.collector.LogEvent(ctx, clickEvent("b"))
	f.collector.LogEvent(ctx, clickEvent("c"))
	assert.Equal(t, 1, f.geo.calls)

	other := clickEvent("d")
	other.SessionKey = "tab-2"
	f.collector.LogEvent(ctx, other)
	assert.Equal(t, 2, f.geo.calls)
}

func TestLogEvent_NoNotificationWithoutEmail(t *testing.T) {
	f := newCollectorFixture(0.5)
	f.settings.settings.NotificationEmail = ""

	f.collector.LogEvent(context.Background(), RawEvent{
		Type: domain.EventPageView, Path: "/.env", SessionKey: "tab-1",
	})

	require.Len(t, f.audits.threats(), 1)
	assert.Equal(t, 0, f.mailer.count())
}

// Session keys are caller-supplied, so per-session state must stay bounded by
// the number of recently active sessions, not by every key ever seen.
func TestLogEvent_IdleSessionStatePruned(t *testing.T) {
	f := newCollectorFixture(0.5)
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		key := fmt.Sprintf("tab-%d", i)
		f.collector.LogEvent(ctx, RawEvent{
			Type:       domain.EventPageView,
			Path:       "/vault/abcd1234/dashboard",
			SessionKey: key,
			SourceIP:   "203.0.113.9",
		})
		click := clickEvent("save-button")
		click.SessionKey = key
		f.collector.LogEvent(ctx, click)
		f.advance(SessionIdleTTL + time.Minute)
	}

	f.collector.mu.Lock()
	defer f.collector.mu.Unlock()
	assert.Len(t, f.collector.lastSeen, 1)
	assert.Len(t, f.collector.seenPaths, 1)
	assert.Len(t, f.collector.geoCache, 1)
	assert.Len(t, f.collector.bursts, 1)
}

func TestLogEvent_ThreatPublishCarriesRecipient(t *testing.T) {
	f := newCollectorFixture(0.5)

	f.collector.LogEvent(context.Background(), RawEvent{
		Type:       domain.EventPageView,
		Path:       "/wp-admin/setup.php",
		SessionKey: "tab-1",
		SourceIP:   "203.0.113.9",
	})

	payload := f.publisher.last()
	require.NotNil(t, payload)

	var msg infra.ThreatMessage
	require.NoError(t, json.Unmarshal(payload, &msg))
	require.NotNil(t, msg.Event)
	assert.True(t, msg.Event.IsThreat())
	assert.Equal(t, "admin@example.com", msg.NotifyEmail)
	assert.Equal(t, "203.0.113.9", msg.Event.IPAddress)
}

// Dedup and rate state is per collector process. Two collectors observing the
// same physical interaction both log it; that approximation is by contract.
func TestLogEvent_TwoCollectorsDoubleLog(t *testing.T) {
	shared := &fakeAudits{}
	make1 := func() *Collector {
		c := NewCollector(CollectorDeps{
			Audits:    shared,
			Settings:  &fakeSettings{settings: domain.SiteSettings{BotSensitivity: 0.5}},
			Geo:       &fakeGeo{result: provider.UnknownLocation},
			Subdomain: "admin",
			Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		})
		return c
	}
	c1, c2 := make1(), make1()

	ev := clickEvent("save-button")
	c1.LogEvent(context.Background(), ev)
	c2.LogEvent(context.Background(), ev)

	assert.Equal(t, 2, shared.countByType(domain.EventClick))
}
