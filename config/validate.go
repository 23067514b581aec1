package config

import (
	"fmt"
	"strings"

	"taskchain/storage"
)

var validLogLevels = map[string]struct{}{
	"":        {},
	"debug":   {},
	"info":    {},
	"warn":    {},
	"warning": {},
	"error":   {},
}

// ValidateConfig checks every section that Load accepts.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case storage.BackendLevelDB, storage.BackendBolt, storage.BackendMemory:
	default:
		return fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
	if strings.TrimSpace(cfg.DataDir) == "" && !strings.EqualFold(strings.TrimSpace(cfg.Backend), storage.BackendMemory) {
		return fmt.Errorf("storage: DataDir must be set")
	}
	if _, ok := validLogLevels[strings.ToLower(strings.TrimSpace(cfg.LogLevel))]; !ok {
		return fmt.Errorf("logging: unknown level %q", cfg.LogLevel)
	}
	if _, err := cfg.ExistentialDepositAmount(); err != nil {
		return err
	}
	if cfg.Telemetry.Traces && strings.TrimSpace(cfg.Telemetry.Endpoint) == "" {
		return fmt.Errorf("telemetry: Endpoint required when Traces is enabled")
	}
	if _, err := cfg.Campaign.Params(); err != nil {
		return err
	}
	if _, err := cfg.Campaign.Authorities(); err != nil {
		return err
	}
	return nil
}
