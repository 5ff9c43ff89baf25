package lending

import "cardledger/config"

// Config is the engine's in-memory view of its tunable parameters, derived
// from config.LendingConfig at daemon startup. It is immutable within a
// transaction; the Engine reads it but never mutates it mid-operation.
type Config struct {
	FeeLendBps       uint32
	FeeBorrowBps     uint32
	MinReserveBps    uint32
	SafetyBufferBps  uint32
	TMaxHours        uint64
	ApyAlpha         uint32
	TerryPerLending  uint64
	TerryPerBorrow   uint64
	TerryPerRepay    uint64
	TerryPerWithdraw uint64
	HawAiPercentage  uint32
}

// FromLendingConfig adapts the TOML-loaded config.LendingConfig into the
// engine's internal Config shape.
func FromLendingConfig(c config.LendingConfig) Config {
	return Config{
		FeeLendBps:       c.FeeLendBps,
		FeeBorrowBps:     c.FeeBorrowBps,
		MinReserveBps:    c.MinReserveBps,
		SafetyBufferBps:  c.SafetyBufferBps,
		TMaxHours:        c.TMaxHours,
		ApyAlpha:         c.ApyAlpha,
		TerryPerLending:  c.TerryPerLending,
		TerryPerBorrow:   c.TerryPerBorrow,
		TerryPerRepay:    c.TerryPerRepay,
		TerryPerWithdraw: c.TerryPerWithdraw,
		HawAiPercentage:  c.HawAiPercentage,
	}
}

// DefaultConfig mirrors config.DefaultLendingConfig for callers (tests,
// CLI dry-runs) that do not want to go through a TOML file.
func DefaultConfig() Config {
	return FromLendingConfig(config.DefaultLendingConfig())
}
