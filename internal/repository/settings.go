package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/skillbridge/console/internal/domain"
)

// PgSettingsRepository implements SettingsRepository using pgx.
type PgSettingsRepository struct{}

// NewPgSettingsRepository creates a new PgSettingsRepository.
func NewPgSettingsRepository() *PgSettingsRepository {
	return &PgSettingsRepository{}
}

// Get returns the singleton settings row.
func (r *PgSettingsRepository) Get(ctx context.Context, db DBTX) (*domain.SiteSettings, error) {
	row := db.QueryRow(ctx,
		`SELECT id, maintenance_mode, COALESCE(notification_email, ''), firewall_active, captcha_enabled,
		        bot_sensitivity, whitelisted_ips, blacklisted_ips, blocked_countries, updated_at
		 FROM site_settings WHERE id = $1`, domain.SettingsID)

	s := &domain.SiteSettings{}
	err := row.Scan(&s.ID, &s.MaintenanceMode, &s.NotificationEmail, &s.FirewallActive, &s.CaptchaEnabled,
		&s.BotSensitivity, &s.WhitelistedIPs, &s.BlacklistedIPs, &s.BlockedCountries, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound("site_settings", "singleton")
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Update overwrites the mutable settings fields.
func (r *PgSettingsRepository) Update(ctx context.Context, db DBTX, s *domain.SiteSettings) error {
	tag, err := db.Exec(ctx,
		`UPDATE site_settings
		 SET maintenance_mode = $1, notification_email = $2, firewall_active = $3, captcha_enabled = $4,
		     bot_sensitivity = $5, whitelisted_ips = $6, blacklisted_ips = $7, blocked_countries = $8,
		     updated_at = now()
		 WHERE id = $9`,
		s.MaintenanceMode, s.NotificationEmail, s.FirewallActive, s.CaptchaEnabled,
		s.BotSensitivity, s.WhitelistedIPs, s.BlacklistedIPs, s.BlockedCountries, domain.SettingsID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("site_settings", "singleton")
	}
	return nil
}
