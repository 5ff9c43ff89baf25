// Package reporting materializes closed-loan records from core/events into a
// gorm read-model, for historical querying outside the engine's hot
// key-value path.
package reporting

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClosedLending records a lend position that has exited the pool via a
// withdraw.
type ClosedLending struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Lender       string    `gorm:"index;size:128"`
	Category     string    `gorm:"index;size:32"`
	TokenID      uint64    `gorm:"index"`
	PrincipalNet uint64    `gorm:"not null"`
	Interest     uint64    `gorm:"not null"`
	Payout       uint64    `gorm:"not null"`
	ClosedAt     time.Time `gorm:"index"`
	CreatedAt    time.Time
}

// ClosedBorrowing records a borrowing that a touch fully liquidated.
// Borrowings closed by a repay that leaves reserve are not recorded.
type ClosedBorrowing struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	Borrower         string    `gorm:"index;size:128"`
	Category         string    `gorm:"index;size:32"`
	TokenID          uint64    `gorm:"index"`
	RemainingReserve uint64    `gorm:"not null"`
	Liquidated       bool      `gorm:"index"`
	ClosedAt         time.Time `gorm:"index"`
	CreatedAt        time.Time
}

// ApySample records a snapshot of the pool APY each time the engine
// recomputes it, for charting APY over time.
type ApySample struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Apy       uint64    `gorm:"not null"`
	CreatedAt time.Time `gorm:"index"`
}

// AutoMigrate performs all schema migrations for the reporting read-model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&ClosedLending{}, &ClosedBorrowing{}, &ApySample{})
}
