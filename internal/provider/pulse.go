package provider

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// PulseTimeout bounds each keep-alive probe.
const PulseTimeout = 10 * time.Second

// PulseResult is the outcome of one keep-alive probe.
type PulseResult struct {
	Target    string `json:"target"`
	OK        bool   `json:"ok"`
	Status    int    `json:"status,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Error     string `json:"error,omitempty"`
}

// PulseReport aggregates one keep-alive run.
type PulseReport struct {
	RanAt      time.Time     `json:"ran_at"`
	Results    []PulseResult `json:"results"`
	DatabaseOK bool          `json:"database_ok"`
}

// Pinger keeps the deployment targets and the database from idling out on
// free-tier hosting. Warm is an optional single cheap read to hold the
// database connection open.
type Pinger struct {
	targets []string
	client  *http.Client
	warm    func(ctx context.Context) error
	logger  *slog.Logger
}

// NewPinger creates a Pinger for the given target URLs.
func NewPinger(targets []string, warm func(ctx context.Context) error, logger *slog.Logger) *Pinger {
	return &Pinger{
		targets: targets,
		client:  &http.Client{Timeout: PulseTimeout},
		warm:    warm,
		logger:  logger,
	}
}

// Run probes every target with a HEAD request and performs the warm read.
// Failures are recorded per target, never returned: the pulse is advisory.
func (p *Pinger) Run(ctx context.Context) PulseReport {
	report := PulseReport{RanAt: time.Now().UTC()}

	for _, target := range p.targets {
		result := PulseResult{Target: target}
		start := time.Now()

		req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
		if err != nil {
			result.Error = err.Error()
			report.Results = append(report.Results, result)
			continue
		}
		resp, err := p.client.Do(req)
		result.ElapsedMS = time.Since(start).Milliseconds()
		if err != nil {
			result.Error = err.Error()
			p.logger.Warn("pulse probe failed", "target", target, "error", err)
		} else {
			resp.Body.Close()
			result.Status = resp.StatusCode
			result.OK = resp.StatusCode < 400
		}
		report.Results = append(report.Results, result)
	}

	if p.warm != nil {
		if err := p.warm(ctx); err != nil {
			p.logger.Warn("pulse warm read failed", "error", err)
		} else {
			report.DatabaseOK = true
		}
	}
	return report
}
