package reporting

import (
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cardledger/core/events"
	"cardledger/crypto"
)

func addrString(a [20]byte) string {
	return crypto.MustNewAddress(crypto.PlayerPrefix, a[:]).String()
}

// Sink implements events.Emitter, persisting the terminal-state events the
// lending engine emits, plus APY samples, into the read-model tables. Other
// events (lend, borrow, non-liquidating touch, index update) are observed
// but not persisted; the read-model is not a full event log.
type Sink struct {
	db     *gorm.DB
	logger *log.Logger
	now    func() time.Time
}

// NewSink constructs a Sink backed by db. AutoMigrate must have been run
// against db beforehand.
func NewSink(db *gorm.DB, logger *log.Logger) *Sink {
	if logger == nil {
		logger = log.Default()
	}
	return &Sink{db: db, logger: logger, now: time.Now}
}

// Emit records the subset of lending events that represent a closed
// position or an APY recomputation. It never returns an error to the
// caller (matching the events.Emitter interface); persistence failures are
// logged so a slow reporting sink cannot block the hot engine path.
func (s *Sink) Emit(evt events.Event) {
	switch e := evt.(type) {
	case events.WithdrawPaid:
		s.recordClosedLending(e)
	case events.LoanTouched:
		if e.Liquidated {
			s.recordClosedBorrowing(e)
		}
	case events.ApyUpdated:
		s.recordApySample(e)
	}
}

func (s *Sink) recordClosedLending(e events.WithdrawPaid) {
	row := ClosedLending{
		ID:           uuid.New(),
		Lender:       addrString(e.Lender),
		Category:     e.Category.String(),
		TokenID:      e.TokenID,
		PrincipalNet: uint64(e.PrincipalNet),
		Interest:     e.Interest,
		Payout:       e.Payout,
		ClosedAt:     s.now(),
	}
	if err := s.db.Create(&row).Error; err != nil {
		s.logger.Printf("reporting: record closed lending: %v", err)
	}
}

func (s *Sink) recordClosedBorrowing(e events.LoanTouched) {
	row := ClosedBorrowing{
		ID:               uuid.New(),
		Borrower:         addrString(e.Borrower),
		Category:         e.Category.String(),
		TokenID:          e.TokenID,
		RemainingReserve: e.RemainingReserve,
		Liquidated:       e.Liquidated,
		ClosedAt:         s.now(),
	}
	if err := s.db.Create(&row).Error; err != nil {
		s.logger.Printf("reporting: record closed borrowing: %v", err)
	}
}

func (s *Sink) recordApySample(e events.ApyUpdated) {
	row := ApySample{ID: uuid.New(), Apy: e.Apy, CreatedAt: s.now()}
	if err := s.db.Create(&row).Error; err != nil {
		s.logger.Printf("reporting: record apy sample: %v", err)
	}
}
