package main

import (
	"fmt"
	"os"

	"cardledger/config"
	"gopkg.in/yaml.v3"
)

// daemonConfig is cardledgerd's YAML configuration, separate from the
// lending-engine's own TOML config.LendingConfig (§10: "Configuration is
// YAML"; the engine parameters keep the teacher's TOML convention since
// config/config.go already loads those).
type daemonConfig struct {
	ListenAddr       string `yaml:"listenAddr"`
	DataDir          string `yaml:"dataDir"`
	LendingConfigPath string `yaml:"lendingConfigPath"`
	JWTSecret        string `yaml:"jwtSecret"`
	RateLimitPerSec  float64 `yaml:"rateLimitPerSec"`
	RateLimitBurst   int     `yaml:"rateLimitBurst"`
	QuotaMaxRequestsPerMin uint32 `yaml:"quotaMaxRequestsPerMin"`
	QuotaMaxPowerPerEpoch  uint64 `yaml:"quotaMaxPowerPerEpoch"`
	QuotaEpochSeconds      uint32 `yaml:"quotaEpochSeconds"`
	TouchIntervalSeconds   uint32 `yaml:"touchIntervalSeconds"`
	LogPath          string `yaml:"logPath"`
	Environment      string `yaml:"environment"`
	OTLPEndpoint     string `yaml:"otlpEndpoint"`
	OTLPInsecure     bool   `yaml:"otlpInsecure"`
	ReportingDriver  string `yaml:"reportingDriver"`
	ReportingDSN     string `yaml:"reportingDSN"`
}

func defaultDaemonConfig() daemonConfig {
	return daemonConfig{
		ListenAddr:             ":8090",
		DataDir:                "./data",
		LendingConfigPath:      "./lending.toml",
		JWTSecret:              "",
		RateLimitPerSec:        5,
		RateLimitBurst:         10,
		QuotaMaxRequestsPerMin: 120,
		QuotaMaxPowerPerEpoch:  1_000_000,
		QuotaEpochSeconds:      3600,
		TouchIntervalSeconds:   60,
		LogPath:                "./cardledgerd.log",
		Environment:            "dev",
		ReportingDriver:        "sqlite",
		ReportingDSN:           "./reporting.db",
	}
}

func loadDaemonConfig(path string) (daemonConfig, error) {
	cfg := defaultDaemonConfig()
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return daemonConfig{}, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return daemonConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.JWTSecret == "" {
		return daemonConfig{}, fmt.Errorf("cardledgerd: jwtSecret must be set in %s", path)
	}
	return cfg, nil
}

func loadLendingConfig(path string) (config.LendingConfig, error) {
	return config.Load(path)
}
