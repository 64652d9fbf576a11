package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/skillbridge/console/internal/domain"
	"github.com/skillbridge/console/internal/infra"
	"github.com/skillbridge/console/internal/repository"
)

// AuditFeedLimit bounds the security feed returned to the console.
const AuditFeedLimit = 100

// SlugRotator forces a routing-slug rotation. Implemented by auth.Authority.
// The returned cookie carries the fresh slug for the operator's own browser.
type SlugRotator interface {
	RotateSlug(ctx context.Context, fromSlug string) (string, *http.Cookie, error)
}

// Publisher pushes realtime updates to console subscribers.
type Publisher interface {
	Publish(room string, event string, data interface{})
}

// SecurityService backs the security console: the audit feed, threat resolution,
// and the site_settings policy knobs.
type SecurityService struct {
	db       repository.DBTX
	audits   repository.AuditRepository
	settings repository.SettingsRepository
	rotator  SlugRotator
	hub      Publisher
	logger   *slog.Logger
}

// NewSecurityService creates a new SecurityService.
func NewSecurityService(
	db repository.DBTX,
	audits repository.AuditRepository,
	settings repository.SettingsRepository,
	rotator SlugRotator,
	hub Publisher,
	logger *slog.Logger,
) *SecurityService {
	return &SecurityService{
		db:       db,
		audits:   audits,
		settings: settings,
		rotator:  rotator,
		hub:      hub,
		logger:   logger,
	}
}

// ListAuditEvents returns the newest audit events for the console feed.
func (s *SecurityService) ListAuditEvents(ctx context.Context) ([]domain.AuditEvent, error) {
	events, err := s.audits.ListRecent(ctx, s.db, AuditFeedLimit)
	if err != nil {
		return nil, domain.ErrInternal("list audit events", err)
	}
	return events, nil
}

// ResolveEvent marks an audit event resolved. The transition is one-way and
// idempotent: resolving an already resolved event succeeds without effect.
func (s *SecurityService) ResolveEvent(ctx context.Context, id uuid.UUID) error {
	if err := s.audits.Resolve(ctx, s.db, id); err != nil {
		return domain.ErrInternal("resolve audit event", err)
	}
	if s.hub != nil {
		s.hub.Publish(infra.RoomAudit, "audit.resolved", map[string]string{"id": id.String()})
	}
	return nil
}

// BlacklistIP appends an IP to the blacklist. Independent of event resolution:
// blacklisting an attacker does not resolve their threat events.
func (s *SecurityService) BlacklistIP(ctx context.Context, ip string) (*domain.SiteSettings, error) {
	if err := domain.ValidateIP(ip); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	return s.mutateSettings(ctx, func(st *domain.SiteSettings) {
		if !st.IPBlacklisted(ip) {
			st.BlacklistedIPs = append(st.BlacklistedIPs, ip)
		}
	})
}

// WhitelistIP appends an IP to the whitelist.
func (s *SecurityService) WhitelistIP(ctx context.Context, ip string) (*domain.SiteSettings, error) {
	if err := domain.ValidateIP(ip); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	return s.mutateSettings(ctx, func(st *domain.SiteSettings) {
		for _, w := range st.WhitelistedIPs {
			if w == ip {
				return
			}
		}
		st.WhitelistedIPs = append(st.WhitelistedIPs, ip)
	})
}

// BlockCountry adds a country to the blocked list.
func (s *SecurityService) BlockCountry(ctx context.Context, country string) (*domain.SiteSettings, error) {
	if country == "" {
		return nil, domain.ErrValidation("country is required")
	}
	return s.mutateSettings(ctx, func(st *domain.SiteSettings) {
		if !st.CountryBlocked(country) {
			st.BlockedCountries = append(st.BlockedCountries, country)
		}
	})
}

// TogglesInput holds the optional policy flag changes. Nil fields are left as-is.
type TogglesInput struct {
	FirewallActive  *bool    `json:"firewall_active,omitempty"`
	CaptchaEnabled  *bool    `json:"captcha_enabled,omitempty"`
	MaintenanceMode *bool    `json:"maintenance_mode,omitempty"`
	BotSensitivity  *float64 `json:"bot_sensitivity,omitempty"`
}

// UpdateToggles applies the policy flag changes from the console.
func (s *SecurityService) UpdateToggles(ctx context.Context, input TogglesInput) (*domain.SiteSettings, error) {
	if input.BotSensitivity != nil && (*input.BotSensitivity < 0 || *input.BotSensitivity > 1) {
		return nil, domain.ErrValidation("bot_sensitivity must be between 0 and 1")
	}
	return s.mutateSettings(ctx, func(st *domain.SiteSettings) {
		if input.FirewallActive != nil {
			st.FirewallActive = *input.FirewallActive
		}
		if input.CaptchaEnabled != nil {
			st.CaptchaEnabled = *input.CaptchaEnabled
		}
		if input.MaintenanceMode != nil {
			st.MaintenanceMode = *input.MaintenanceMode
		}
		if input.BotSensitivity != nil {
			st.BotSensitivity = *input.BotSensitivity
		}
	})
}

// GetSettings returns the settings singleton.
func (s *SecurityService) GetSettings(ctx context.Context) (*domain.SiteSettings, error) {
	st, err := s.settings.Get(ctx, s.db)
	if err != nil {
		return nil, settingsErr(err)
	}
	return st, nil
}

// ForceSlugRotation rotates the routing slug out from under any hijacked
// session. fromSlug is the verified slug the command arrived under, recorded
// for traceability. The cookie re-binds the operator's own browser to the new
// slug.
func (s *SecurityService) ForceSlugRotation(ctx context.Context, fromSlug string) (string, *http.Cookie, error) {
	slug, cookie, err := s.rotator.RotateSlug(ctx, fromSlug)
	if err != nil {
		return "", nil, err
	}
	s.logger.Info("routing slug rotated by console")
	return slug, cookie, nil
}

// mutateSettings reads the singleton, applies fn, writes it back, and pushes
// the new state to settings subscribers. Last write wins across consoles.
func (s *SecurityService) mutateSettings(ctx context.Context, fn func(*domain.SiteSettings)) (*domain.SiteSettings, error) {
	st, err := s.settings.Get(ctx, s.db)
	if err != nil {
		return nil, settingsErr(err)
	}
	fn(st)
	if err := s.settings.Update(ctx, s.db, st); err != nil {
		return nil, domain.ErrInternal("update settings", err)
	}
	if s.hub != nil {
		s.hub.Publish(infra.RoomSettings, "settings.updated", st)
	}
	return st, nil
}

// settingsErr passes typed domain errors through and wraps the rest.
func settingsErr(err error) error {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return domain.ErrInternal("load settings", err)
}
