package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ThreatAlert carries the fields of a threat notification email.
type ThreatAlert struct {
	ThreatType string
	IP         string
	Location   string
	Path       string
	AdminEmail string
}

// Mailer dispatches notification emails. Implementations are best-effort:
// failures are logged, never retried, never surfaced to the operator.
type Mailer interface {
	SendThreatAlert(ctx context.Context, alert ThreatAlert) error
}

// ResendMailer sends mail through a Resend-compatible HTTP API.
type ResendMailer struct {
	apiKey  string
	baseURL string
	from    string
	logger  *slog.Logger
	client  *http.Client
}

// NewResendMailer creates a mailer. With no API key, sends are logged no-ops.
func NewResendMailer(apiKey, baseURL, from string, logger *slog.Logger) *ResendMailer {
	return &ResendMailer{
		apiKey:  apiKey,
		baseURL: baseURL,
		from:    from,
		logger:  logger,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// SendThreatAlert emails the security alert to the configured admin address.
func (m *ResendMailer) SendThreatAlert(ctx context.Context, alert ThreatAlert) error {
	if m.apiKey == "" || alert.AdminEmail == "" {
		m.logger.Info("mail key or admin email missing, alert logged only",
			"threat_type", alert.ThreatType, "ip", alert.IP, "path", alert.Path)
		return nil
	}

	subject := fmt.Sprintf("Security Threat Detected: %s", strings.ToUpper(alert.ThreatType))
	html := fmt.Sprintf(
		`<h2>SBL Security Alert</h2>
<p>A high-severity threat has been detected on the platform.</p>
<p><strong>Type:</strong> %s</p>
<p><strong>Source IP:</strong> %s</p>
<p><strong>Location:</strong> %s</p>
<p><strong>Path:</strong> %s</p>
<p><strong>Time:</strong> %s</p>
<p>Please log into the Security Dashboard to resolve this threat.</p>`,
		strings.ToUpper(strings.ReplaceAll(alert.ThreatType, "_", " ")),
		alert.IP, alert.Location, alert.Path, time.Now().UTC().Format(time.RFC1123))

	body, _ := json.Marshal(map[string]interface{}{
		"from":    m.from,
		"to":      []string{alert.AdminEmail},
		"subject": subject,
		"html":    html,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("mail api returned %d", resp.StatusCode)
	}
	return nil
}
