package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// GeoResult is the resolved caller location.
type GeoResult struct {
	IP      string `json:"ip"`
	Country string `json:"country"`
}

// UnknownLocation is the sentinel returned on any lookup failure or timeout.
// Geolocation failure must never block event emission.
var UnknownLocation = GeoResult{IP: "0.0.0.0", Country: "Unknown"}

// GeoLookupTimeout is the hard budget for one lookup.
const GeoLookupTimeout = 2 * time.Second

// GeoIPClient resolves the caller's IP and country via an ip-api.com shaped
// endpoint. Lookups always resolve: any error degrades to UnknownLocation.
type GeoIPClient struct {
	baseURL string
	logger  *slog.Logger
	client  *http.Client
}

// NewGeoIPClient creates a geolocation client against the given base URL.
func NewGeoIPClient(baseURL string, logger *slog.Logger) *GeoIPClient {
	return &GeoIPClient{
		baseURL: baseURL,
		logger:  logger,
		client:  &http.Client{Timeout: GeoLookupTimeout},
	}
}

// Lookup resolves the location for ip. An empty ip resolves the caller's own
// address, matching the upstream API contract.
func (c *GeoIPClient) Lookup(ctx context.Context, ip string) GeoResult {
	ctx, cancel := context.WithTimeout(ctx, GeoLookupTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/json/%s?fields=query,country", c.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.logger.Warn("geoip request build failed, using defaults", "error", err)
		return UnknownLocation
	}
	req.Header.Set("User-Agent", "SBL-Admin/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("geoip service unavailable, using defaults", "error", err)
		return UnknownLocation
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("geoip returned non-200, using defaults", "status", resp.StatusCode)
		return UnknownLocation
	}

	var payload struct {
		Query   string `json:"query"`
		Country string `json:"country"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.Warn("geoip decode failed, using defaults", "error", err)
		return UnknownLocation
	}

	result := GeoResult{IP: payload.Query, Country: payload.Country}
	if result.IP == "" {
		result.IP = UnknownLocation.IP
	}
	if result.Country == "" {
		result.Country = UnknownLocation.Country
	}
	return result
}
