package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aegis-labs/aegis/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearAegisEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"AEGIS_PORT", "AEGIS_LOG_LEVEL", "AEGIS_MONITORING_INTERVAL_SECS",
		"AEGIS_MAX_CONCURRENT_POSITIONS", "AEGIS_ENABLE_AUTOMATED_ACTIONS", "AEGIS_RULES_FILE",
	}
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearAegisEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30, cfg.MonitoringIntervalSec)
	assert.True(t, cfg.EnableAutomatedActions)
	assert.True(t, cfg.Automation.Enabled)
	assert.NotEmpty(t, cfg.Automation.InterventionRules)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	clearAegisEnv(t)
	t.Setenv("AEGIS_PORT", "9100")
	t.Setenv("AEGIS_MONITORING_INTERVAL_SECS", "15")
	t.Setenv("AEGIS_ENABLE_AUTOMATED_ACTIONS", "false")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 15, cfg.MonitoringIntervalSec)
	assert.False(t, cfg.EnableAutomatedActions)
	assert.False(t, cfg.Automation.Enabled)
}

func TestLoadRejectsNonPositiveInterval(t *testing.T) {
	clearAegisEnv(t)
	t.Setenv("AEGIS_MONITORING_INTERVAL_SECS", "0")

	_, err := config.Load()
	require.Error(t, err)
}

func TestLoadInterventionRulesFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	yamlContent := `
intervention_rules:
  - id: custom_rule
    name: Custom Rule
    conditions:
      - kind: health_factor_below
        threshold: "1.4"
    actions:
      - kind: send_alert
        alert_level: warning
    priority: 5
    enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	rules, err := config.LoadInterventionRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "custom_rule", rules[0].ID)
	assert.Equal(t, 5, rules[0].Priority)
}

func TestLoadInterventionRulesMissingFile(t *testing.T) {
	_, err := config.LoadInterventionRules("/nonexistent/path/rules.yaml")
	require.Error(t, err)
}

func TestLoadInterventionRulesEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("intervention_rules: []\n"), 0o644))

	_, err := config.LoadInterventionRules(path)
	require.Error(t, err)
}
