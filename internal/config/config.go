// Package config provides process-wide configuration management.
//
// Configuration is loaded from environment variables (with an optional
// .env file read first via godotenv) and optionally enriched by an
// intervention-rule-set YAML file supplied via AEGIS_RULES_FILE. Rule
// file values, when present, replace the built-in default intervention
// rules wholesale; every other setting comes from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aegis-labs/aegis/internal/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the full tunable surface of the engine.
type Config struct {
	Port                  int                    // HTTP diagnostic façade port (default 8090)
	LogLevel              string                 // zerolog level name (debug, info, warn, error)
	MonitoringIntervalSec int                    // liquidation-sweep cadence, seconds (default 30)
	MaxConcurrentPositions int                   // registry size cap (default 1000); validated as positive, not checked when positions are added
	EnableAutomatedActions bool                   // master switch for the automated position manager
	RiskParameters        domain.RiskParameters
	AlertConfiguration    domain.AlertConfiguration
	Automation            domain.AutomationConfig
}

// Load reads configuration from environment variables, applying the
// same documented defaults as spec.md, then optionally overlays an
// intervention-rule-set file if AEGIS_RULES_FILE is set.
//
// Loading order:
//  1. .env file, if present (godotenv; missing file is not an error)
//  2. environment variables, falling back to defaults
//  3. AEGIS_RULES_FILE YAML overlay, if set (takes precedence for rules)
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                   getEnvAsInt("AEGIS_PORT", 8090),
		LogLevel:               getEnv("AEGIS_LOG_LEVEL", "info"),
		MonitoringIntervalSec:  getEnvAsInt("AEGIS_MONITORING_INTERVAL_SECS", 30),
		MaxConcurrentPositions: getEnvAsInt("AEGIS_MAX_CONCURRENT_POSITIONS", 1_000),
		EnableAutomatedActions: getEnvAsBool("AEGIS_ENABLE_AUTOMATED_ACTIONS", true),
		RiskParameters:         domain.DefaultRiskParameters(),
		AlertConfiguration:     domain.DefaultAlertConfiguration(),
		Automation:             domain.DefaultAutomationConfig(),
	}
	cfg.Automation.Enabled = cfg.EnableAutomatedActions

	if rulesPath := os.Getenv("AEGIS_RULES_FILE"); rulesPath != "" {
		rules, err := LoadInterventionRules(rulesPath)
		if err != nil {
			return nil, fmt.Errorf("loading intervention rule set from %s: %w", rulesPath, err)
		}
		cfg.Automation.InterventionRules = rules
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field invariants that environment parsing alone
// cannot catch.
func (c *Config) Validate() error {
	if c.MonitoringIntervalSec <= 0 {
		return fmt.Errorf("AEGIS_MONITORING_INTERVAL_SECS must be positive, got %d", c.MonitoringIntervalSec)
	}
	if c.MaxConcurrentPositions <= 0 {
		return fmt.Errorf("AEGIS_MAX_CONCURRENT_POSITIONS must be positive, got %d", c.MaxConcurrentPositions)
	}
	return nil
}

// MonitoringInterval is MonitoringIntervalSec as a time.Duration.
func (c *Config) MonitoringInterval() time.Duration {
	return time.Duration(c.MonitoringIntervalSec) * time.Second
}

// ruleSetFile is the on-disk YAML shape accepted by AEGIS_RULES_FILE.
type ruleSetFile struct {
	InterventionRules []domain.InterventionRule `yaml:"intervention_rules"`
}

// LoadInterventionRules reads a YAML file declaring a replacement set of
// automation intervention rules, in the shape produced by marshalling
// domain.AutomationConfig.InterventionRules under the key
// "intervention_rules".
func LoadInterventionRules(path string) ([]domain.InterventionRule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file ruleSetFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing rule set YAML: %w", err)
	}
	if len(file.InterventionRules) == 0 {
		return nil, fmt.Errorf("rule set file %s declares no intervention_rules", path)
	}
	return file.InterventionRules, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
