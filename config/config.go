package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// LendingConfig holds the tunable parameters of the lending engine. The Bps
// fields are basis points in [0, 10000]; HawAiPercentage is a whole percent
// in [0, 100]. The engine validates both ranges at load time so a malformed
// config file fails fast instead of corrupting pool state on the first
// transaction.
type LendingConfig struct {
	FeeLendBps       uint32 `toml:"FeeLendBps"`
	FeeBorrowBps     uint32 `toml:"FeeBorrowBps"`
	MinReserveBps    uint32 `toml:"MinReserveBps"`
	SafetyBufferBps  uint32 `toml:"SafetyBufferBps"`
	TMaxHours        uint64 `toml:"TMaxHours"`
	ApyAlpha         uint32 `toml:"ApyAlpha"`
	TerryPerLending  uint64 `toml:"TerryPerLending"`
	TerryPerBorrow   uint64 `toml:"TerryPerBorrow"`
	TerryPerRepay    uint64 `toml:"TerryPerRepay"`
	TerryPerWithdraw uint64 `toml:"TerryPerWithdraw"`
	HawAiPercentage  uint32 `toml:"HawAiPercentage"`
}

// DefaultLendingConfig mirrors spec.md scenario S1's configuration, a
// reasonable starting point for a fresh deployment.
func DefaultLendingConfig() LendingConfig {
	return LendingConfig{
		FeeLendBps:       100,
		FeeBorrowBps:     100,
		MinReserveBps:    500,
		SafetyBufferBps:  500,
		TMaxHours:        720,
		ApyAlpha:         10,
		TerryPerLending:  1,
		TerryPerBorrow:   1,
		TerryPerRepay:    1,
		TerryPerWithdraw: 1,
		HawAiPercentage:  10,
	}
}

// Validate reports whether the configuration is internally consistent.
func (c LendingConfig) Validate() error {
	for name, bps := range map[string]uint32{
		"FeeLendBps":      c.FeeLendBps,
		"FeeBorrowBps":    c.FeeBorrowBps,
		"MinReserveBps":   c.MinReserveBps,
		"SafetyBufferBps": c.SafetyBufferBps,
	} {
		if bps > 10000 {
			return fmt.Errorf("config: %s must be <= 10000, got %d", name, bps)
		}
	}
	if c.HawAiPercentage > 100 {
		return fmt.Errorf("config: HawAiPercentage must be <= 100, got %d", c.HawAiPercentage)
	}
	if c.TMaxHours == 0 {
		return fmt.Errorf("config: TMaxHours must be > 0")
	}
	return nil
}

// Load reads a lending engine configuration from the given TOML path. If the
// file does not exist a default configuration is written and returned.
func Load(path string) (LendingConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	var cfg LendingConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return LendingConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return LendingConfig{}, err
	}
	return cfg, nil
}

func createDefault(path string) (LendingConfig, error) {
	cfg := DefaultLendingConfig()

	f, err := os.Create(path)
	if err != nil {
		return LendingConfig{}, err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return LendingConfig{}, err
	}
	return cfg, nil
}
