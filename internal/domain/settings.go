package domain

import "time"

// SettingsID is the primary key of the singleton site_settings row.
const SettingsID = 1

// SiteSettings represents the singleton site_settings row. The telemetry pipeline
// reads it for policy parameters; mutation happens only through the security console.
type SiteSettings struct {
	ID                int       `json:"id"`
	MaintenanceMode   bool      `json:"maintenance_mode"`
	NotificationEmail string    `json:"notification_email"`
	FirewallActive    bool      `json:"firewall_active"`
	CaptchaEnabled    bool      `json:"captcha_enabled"`
	BotSensitivity    float64   `json:"bot_sensitivity"` // 0 = relaxed, 1 = strict
	WhitelistedIPs    []string  `json:"whitelisted_ips"`
	BlacklistedIPs    []string  `json:"blacklisted_ips"`
	BlockedCountries  []string  `json:"blocked_countries"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IPBlacklisted reports whether ip is on the blacklist.
func (s *SiteSettings) IPBlacklisted(ip string) bool {
	for _, b := range s.BlacklistedIPs {
		if b == ip {
			return true
		}
	}
	return false
}

// CountryBlocked reports whether country is on the blocked list.
func (s *SiteSettings) CountryBlocked(country string) bool {
	for _, c := range s.BlockedCountries {
		if c == country {
			return true
		}
	}
	return false
}
