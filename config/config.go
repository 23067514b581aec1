package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"taskchain/native/campaign"
	"taskchain/storage"
)

type Config struct {
	DataDir            string `toml:"DataDir"`
	Backend            string `toml:"Backend"`
	Environment        string `toml:"Environment"`
	LogFile            string `toml:"LogFile"`
	LogLevel           string `toml:"LogLevel"`
	// MetricsFile receives the prometheus text exposition when a command
	// exits. Empty disables the export.
	MetricsFile        string `toml:"MetricsFile"`
	ExistentialDeposit string `toml:"ExistentialDeposit"`

	Telemetry Telemetry      `toml:"telemetry"`
	Campaign  CampaignConfig `toml:"campaign"`
}

// Load loads the configuration from the given path. A missing file is created
// with defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.applyDefaults()
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration written for a fresh node.
func Default() *Config {
	params := campaign.DefaultParams()
	return &Config{
		DataDir:            "./task-data",
		Backend:            storage.BackendLevelDB,
		Environment:        "local",
		LogLevel:           "info",
		ExistentialDeposit: "1",
		Telemetry: Telemetry{
			ServiceName: "campaignd",
			Endpoint:    "localhost:4318",
			Insecure:    true,
		},
		Campaign: CampaignConfig{
			ModuleID:      params.ModuleID,
			IDStrategy:    params.IDStrategy.String(),
			Topology:      params.Topology.String(),
			MinimumBond:   params.MinimumBond.String(),
			DepositRatio:  params.DepositRatio,
			ClaimDuration: params.ClaimDuration,
		},
	}
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Backend) == "" {
		c.Backend = storage.BackendLevelDB
	}
	if strings.TrimSpace(c.ExistentialDeposit) == "" {
		c.ExistentialDeposit = "1"
	}
	if strings.TrimSpace(c.Telemetry.ServiceName) == "" {
		c.Telemetry.ServiceName = "campaignd"
	}
	if strings.TrimSpace(c.Campaign.ModuleID) == "" {
		c.Campaign.ModuleID = campaign.DefaultModuleID
	}
	if c.Campaign.Rejecters == nil {
		c.Campaign.Rejecters = []string{}
	}
	if c.Campaign.Approvers == nil {
		c.Campaign.Approvers = []string{}
	}
	if c.Campaign.Rewarders == nil {
		c.Campaign.Rewarders = []string{}
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	cfg.applyDefaults()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
