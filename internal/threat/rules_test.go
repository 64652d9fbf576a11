package threat

import (
	"testing"

	"github.com/skillbridge/console/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBurstThreshold_Scaling(t *testing.T) {
	cases := []struct {
		sensitivity float64
		want        int
	}{
		{0, 20},
		{0.5, 15},
		{1, 10},
		{-3, 20},  // clamped
		{2.5, 10}, // clamped
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, BurstThreshold(tc.sensitivity), "sensitivity %v", tc.sensitivity)
	}
}

func TestEvaluate_HoneypotCritical(t *testing.T) {
	findings := Evaluate(DefaultRules, Signal{Path: "/wp-admin/setup.php"})
	require.Len(t, findings, 1)
	assert.Equal(t, domain.ThreatHoneypotAccess, findings[0].Type)
	assert.Equal(t, domain.SeverityCritical, findings[0].Severity)
}

func TestEvaluate_AllHoneypotPrefixes(t *testing.T) {
	for _, prefix := range HoneypotPrefixes {
		findings := Evaluate(DefaultRules, Signal{Path: prefix})
		require.NotEmpty(t, findings, "prefix %s", prefix)
		assert.Equal(t, domain.ThreatHoneypotAccess, findings[0].Type)
	}
}

func TestEvaluate_BurstHigh(t *testing.T) {
	findings := Evaluate(DefaultRules, Signal{Path: "/vault/abc12345/dashboard", BurstCount: 11, Sensitivity: 1})
	require.Len(t, findings, 1)
	assert.Equal(t, domain.ThreatBotActivity, findings[0].Type)
	assert.Equal(t, domain.SeverityHigh, findings[0].Severity)
}

func TestEvaluate_BurstUnderThresholdClean(t *testing.T) {
	findings := Evaluate(DefaultRules, Signal{Path: "/vault/abc12345/dashboard", BurstCount: 10, Sensitivity: 1})
	assert.Empty(t, findings)
}

func TestEvaluate_RelaxedSensitivityRaisesBar(t *testing.T) {
	// 15 rapid events trip the strict threshold but not the relaxed one.
	assert.NotEmpty(t, Evaluate(DefaultRules, Signal{BurstCount: 15, Sensitivity: 1}))
	assert.Empty(t, Evaluate(DefaultRules, Signal{BurstCount: 15, Sensitivity: 0}))
}

func TestIsHoneypot(t *testing.T) {
	assert.True(t, IsHoneypot("/.env"))
	assert.True(t, IsHoneypot("/backup/db.sql"))
	assert.False(t, IsHoneypot("/vault/abc12345/security"))
	assert.False(t, IsHoneypot("/"))
}
