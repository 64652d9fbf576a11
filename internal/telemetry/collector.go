// Package telemetry implements the behavioral event pipeline: the admin shell
// posts raw runtime events, which are deduplicated, rate-windowed, enriched
// with geolocation, evaluated against the threat rule table, and persisted as
// audit events. The pipeline never blocks and never fails the caller.
package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skillbridge/console/internal/domain"
	"github.com/skillbridge/console/internal/infra"
	"github.com/skillbridge/console/internal/provider"
	"github.com/skillbridge/console/internal/repository"
	"github.com/skillbridge/console/internal/threat"
)

const (
	// DedupTTL suppresses repeat click/interaction events for the same target.
	DedupTTL = 60 * time.Second

	// BurstInterval is the gap under which successive interactions count
	// toward the leaky-bucket burst window.
	BurstInterval = time.Second

	// SessionIdleTTL bounds how long per-session path, geolocation, and burst
	// state is retained after a session's last observed event. Session keys
	// arrive from the public ingest surface, so unexpired state would grow one
	// entry per key forever.
	SessionIdleTTL = 30 * time.Minute

	// settingsTTL bounds how stale the cached policy parameters may be.
	settingsTTL = 30 * time.Second
)

// GeoResolver resolves an IP to a location. Lookups must always resolve;
// failures degrade to the unknown-location sentinel.
type GeoResolver interface {
	Lookup(ctx context.Context, ip string) provider.GeoResult
}

// ThreatPublisher publishes threat events to the out-of-process event bus.
// Satisfied by infra.KafkaProducer; a disabled producer is a no-op.
type ThreatPublisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// RawEvent is one observed client-runtime event as posted by the shell.
type RawEvent struct {
	Type       domain.EventType       `json:"type"`
	Path       string                 `json:"path"`
	TargetID   string                 `json:"target_id"`
	SessionKey string                 `json:"session_key"`
	SourceIP   string                 `json:"source_ip"`
	UserAgent  string                 `json:"user_agent"`
	IdentityID *uuid.UUID             `json:"identity_id,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

type burstState struct {
	count int
	last  time.Time
}

// Collector observes raw events and emits audit events. Dedup and rate state
// is process-local: two collector processes observing the same physical
// interaction log it twice. That approximation is accepted, not a bug to fix.
type Collector struct {
	db        repository.DBTX
	audits    repository.AuditRepository
	settings  repository.SettingsRepository
	geo       GeoResolver
	mailer    provider.Mailer
	publisher ThreatPublisher
	hub       *infra.Hub
	queue     *DispatchQueue
	rules     []threat.Rule
	subdomain string
	logger    *slog.Logger

	mu        sync.Mutex
	dedup     map[string]time.Time
	lastSeen  map[string]time.Time
	seenPaths map[string]map[string]struct{}
	geoCache  map[string]provider.GeoResult
	bursts    map[string]*burstState

	cachedSettings  *domain.SiteSettings
	settingsFetched time.Time

	now func() time.Time
}

// CollectorDeps holds the collector's dependencies.
type CollectorDeps struct {
	DB        repository.DBTX
	Audits    repository.AuditRepository
	Settings  repository.SettingsRepository
	Geo       GeoResolver
	Mailer    provider.Mailer
	Publisher ThreatPublisher
	Hub       *infra.Hub
	Queue     *DispatchQueue
	Subdomain string
	Logger    *slog.Logger
}

// NewCollector creates a collector with the default rule table.
func NewCollector(deps CollectorDeps) *Collector {
	return &Collector{
		db:        deps.DB,
		audits:    deps.Audits,
		settings:  deps.Settings,
		geo:       deps.Geo,
		mailer:    deps.Mailer,
		publisher: deps.Publisher,
		hub:       deps.Hub,
		queue:     deps.Queue,
		rules:     threat.DefaultRules,
		subdomain: deps.Subdomain,
		logger:    deps.Logger,
		dedup:     make(map[string]time.Time),
		lastSeen:  make(map[string]time.Time),
		seenPaths: make(map[string]map[string]struct{}),
		geoCache:  make(map[string]provider.GeoResult),
		bursts:    make(map[string]*burstState),
		now:       time.Now,
	}
}

// LogEvent processes one raw event. It never returns an error to the caller:
// every failure mode degrades locally so the surrounding UI is never blocked.
func (c *Collector) LogEvent(ctx context.Context, ev RawEvent) {
	if ev.Type == "" {
		return
	}

	c.touchSession(ev.SessionKey)
	settings := c.policySettings(ctx)

	// Honeypot paths promote to a threat immediately, bypassing the window.
	if threat.IsHoneypot(ev.Path) {
		findings := threat.Evaluate(c.rules, threat.Signal{Path: ev.Path, Sensitivity: settings.BotSensitivity})
		for _, f := range findings {
			c.emitThreat(ctx, ev, f, settings)
		}
	}

	// Leaky-bucket burst window over interaction events.
	if ev.Type == domain.EventClick || ev.Type == domain.EventFormInteraction {
		if finding, tripped := c.trackBurst(ev.SessionKey, settings.BotSensitivity); tripped {
			c.emitThreat(ctx, ev, finding, settings)
		}
	}

	if c.suppressed(ev) {
		return
	}

	c.persist(ctx, ev, ev.Type, nil, settings)
}

// trackBurst advances the per-session burst counter. When the counter exceeds
// the sensitivity-scaled threshold a single bot_activity finding is returned
// and the counter resets, so a sustained burst yields one threat, not many.
func (c *Collector) trackBurst(sessionKey string, sensitivity float64) (threat.Finding, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	b := c.bursts[sessionKey]
	if b == nil {
		b = &burstState{}
		c.bursts[sessionKey] = b
	}

	if now.Sub(b.last) < BurstInterval {
		b.count++
	} else {
		b.count = 1
	}
	b.last = now

	if b.count > threat.BurstThreshold(sensitivity) {
		b.count = 0
		return threat.Finding{
			Type:     domain.ThreatBotActivity,
			Severity: domain.SeverityHigh,
			Note:     "high frequency interaction detected",
		}, true
	}
	return threat.Finding{}, false
}

// suppressed applies the dedup policy: identical click/interaction events are
// suppressed for DedupTTL, and a page view is emitted at most once per
// distinct path per session.
func (c *Collector) suppressed(ev RawEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	switch ev.Type {
	case domain.EventClick, domain.EventFormInteraction:
		key := string(ev.Type) + "|" + ev.TargetID
		if expiry, ok := c.dedup[key]; ok && now.Before(expiry) {
			return true
		}
		c.dedup[key] = now.Add(DedupTTL)
		c.pruneDedupLocked(now)
	case domain.EventPageView:
		paths := c.seenPaths[ev.SessionKey]
		if paths == nil {
			paths = make(map[string]struct{})
			c.seenPaths[ev.SessionKey] = paths
		}
		if _, seen := paths[ev.Path]; seen {
			return true
		}
		paths[ev.Path] = struct{}{}
	}
	return false
}

// touchSession stamps the session's last activity and drops per-session state
// for every session idle past SessionIdleTTL, keeping memory proportional to
// the number of recently active sessions rather than all keys ever seen.
func (c *Collector) touchSession(sessionKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.lastSeen[sessionKey] = now
	for key, seen := range c.lastSeen {
		if now.Sub(seen) > SessionIdleTTL {
			delete(c.lastSeen, key)
			delete(c.seenPaths, key)
			delete(c.geoCache, key)
			delete(c.bursts, key)
		}
	}
}

func (c *Collector) pruneDedupLocked(now time.Time) {
	for key, expiry := range c.dedup {
		if now.After(expiry) {
			delete(c.dedup, key)
		}
	}
}

// emitThreat persists a threat_detected audit event and hands notification
// dispatch to the background queue. Notification failure never affects event
// persistence.
func (c *Collector) emitThreat(ctx context.Context, ev RawEvent, f threat.Finding, settings *domain.SiteSettings) {
	meta := map[string]interface{}{
		"threat_type": string(f.Type),
		"severity":    string(f.Severity),
		"note":        f.Note,
	}
	event := c.persist(ctx, ev, domain.EventThreatDetected, meta, settings)
	if event == nil {
		return
	}

	if c.publisher != nil {
		payload, err := json.Marshal(infra.ThreatMessage{Event: event, NotifyEmail: settings.NotificationEmail})
		if err == nil {
			c.enqueue("threat_publish", func(taskCtx context.Context) error {
				return c.publisher.Publish(taskCtx, infra.TopicThreats, []byte(f.Type), payload)
			})
		}
	}

	if c.mailer != nil && settings.NotificationEmail != "" {
		alert := provider.ThreatAlert{
			ThreatType: string(f.Type),
			IP:         event.IPAddress,
			Location:   event.Country,
			Path:       ev.Path,
			AdminEmail: settings.NotificationEmail,
		}
		c.enqueue("threat_alert", func(taskCtx context.Context) error {
			return c.mailer.SendThreatAlert(taskCtx, alert)
		})
	}
}

func (c *Collector) enqueue(name string, run func(ctx context.Context) error) {
	if c.queue == nil {
		// No queue wired (tests); run inline but still swallow the outcome.
		if err := run(context.Background()); err != nil {
			c.logger.Warn("dispatch failed", "task", name, "error", err)
		}
		return
	}
	c.queue.Enqueue(Task{Name: name, Run: run})
}

// persist enriches the event with geolocation and appends it. Insert failure
// is logged and swallowed so telemetry can never disrupt the console.
func (c *Collector) persist(ctx context.Context, ev RawEvent, eventType domain.EventType, extraMeta map[string]interface{}, _ *domain.SiteSettings) *domain.AuditEvent {
	geo := c.resolveGeo(ctx, ev)

	meta := map[string]interface{}{
		"path": ev.Path,
	}
	if ev.TargetID != "" {
		meta["target"] = ev.TargetID
	}
	for k, v := range ev.Metadata {
		meta[k] = v
	}
	for k, v := range extraMeta {
		meta[k] = v
	}

	event := &domain.AuditEvent{
		ID:               uuid.New(),
		Subdomain:        c.subdomain,
		EventType:        eventType,
		IdentityID:       ev.IdentityID,
		IPAddress:        geo.IP,
		UserAgent:        ev.UserAgent,
		Country:          geo.Country,
		Metadata:         repository.MarshalMetadata(meta),
		ResolutionStatus: domain.ResolutionOpen,
	}

	if err := c.audits.Insert(ctx, c.db, event); err != nil {
		c.logger.Error("audit insert failed", "event_type", eventType, "error", err)
		return nil
	}

	if c.hub != nil {
		c.hub.Publish(infra.RoomAudit, "insert", event)
	}
	return event
}

// resolveGeo memoizes one lookup per session key. Failures and timeouts fall
// back to the unknown-location sentinel inside the resolver, so this always
// returns within the lookup budget.
func (c *Collector) resolveGeo(ctx context.Context, ev RawEvent) provider.GeoResult {
	c.mu.Lock()
	cached, ok := c.geoCache[ev.SessionKey]
	c.mu.Unlock()
	if ok {
		return cached
	}

	result := provider.UnknownLocation
	if c.geo != nil {
		result = c.geo.Lookup(ctx, ev.SourceIP)
	}

	c.mu.Lock()
	c.geoCache[ev.SessionKey] = result
	c.mu.Unlock()
	return result
}

// policySettings returns the cached site settings, refreshing at most every
// settingsTTL. On lookup failure the last known (or default) policy applies:
// settings trouble must not stall telemetry.
func (c *Collector) policySettings(ctx context.Context) *domain.SiteSettings {
	c.mu.Lock()
	cached := c.cachedSettings
	fresh := cached != nil && c.now().Sub(c.settingsFetched) < settingsTTL
	c.mu.Unlock()
	if fresh {
		return cached
	}

	loaded, err := c.settings.Get(ctx, c.db)
	if err != nil {
		c.logger.Warn("settings lookup failed, using last known policy", "error", err)
		if cached != nil {
			return cached
		}
		return &domain.SiteSettings{BotSensitivity: 0.5}
	}

	c.mu.Lock()
	c.cachedSettings = loaded
	c.settingsFetched = c.now()
	c.mu.Unlock()
	return loaded
}
