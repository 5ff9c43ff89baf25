package lending

import (
	"cardledger/core/events"
	nativecommon "cardledger/native/common"
	"cardledger/observability/metrics"
)

const moduleName = "lending"

// Engine orchestrates lend/borrow/repay/withdraw and the lazy liquidation
// mechanism around a single pool. Every exported method is atomic: it
// either commits every mutation (pool, card, positions) or returns an error
// with the state left untouched.
type Engine struct {
	state   State
	cards   CardStore
	pot     PotAccumulator
	rewards RewardMinter
	clock   Clock
	events  EventBus
	metrics *metrics.LendingMetrics
	pauses  nativecommon.PauseView
	config  Config
}

// NewEngine constructs an engine with the given configuration; collaborators
// are wired in afterwards via the setter methods, mirroring how the rest of
// this codebase assembles its native modules.
func NewEngine(cfg Config) *Engine {
	return &Engine{config: cfg}
}

func (e *Engine) SetState(s State)                   { e.state = s }
func (e *Engine) SetCards(c CardStore)                { e.cards = c }
func (e *Engine) SetPot(p PotAccumulator)             { e.pot = p }
func (e *Engine) SetRewards(r RewardMinter)           { e.rewards = r }
func (e *Engine) SetClock(c Clock)                    { e.clock = c }
func (e *Engine) SetEvents(bus EventBus)              { e.events = bus }
func (e *Engine) SetMetrics(m *metrics.LendingMetrics) { e.metrics = m }
func (e *Engine) SetPauses(p nativecommon.PauseView)  { e.pauses = p }
func (e *Engine) SetConfig(cfg Config)                { e.config = cfg }

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.events == nil {
		return
	}
	e.events.Emit(evt)
}

func (e *Engine) now() uint64 {
	if e.clock == nil {
		return 0
	}
	return e.clock.NowSeconds()
}

func (e *Engine) categoryLabel(category Category) string {
	return metrics.CategoryLabel(uint8(category))
}

// Lend commits caller's card power to the pool in exchange for a Lending
// position. See spec §4.3.
func (e *Engine) Lend(caller [20]byte, category Category, tokenID uint64, power uint32) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.cards == nil {
		return errNilCards
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if !category.LendEligible() {
		return ErrBadCategory
	}
	if power == 0 {
		return ErrInsufficientPower
	}

	card, err := e.cards.ReadCard(caller, category, tokenID)
	if err != nil {
		return err
	}
	if card == nil {
		return ErrCardNotFound
	}
	if card.LockedByAction != LockNone {
		return ErrCardLocked
	}
	if card.Power < power {
		return ErrInsufficientPower
	}
	if existing, err := e.state.GetLending(category, tokenID); err != nil {
		return err
	} else if existing != nil {
		return ErrPositionExists
	}

	pool, err := e.state.GetPool()
	if err != nil {
		return err
	}

	fee := bps(uint64(power), e.config.FeeLendBps)
	principalNet := uint64(power) - fee

	card.Power = saturatingSubU32(card.Power, power)
	card.LockedByAction = LockLend
	if err := e.cards.WriteCard(caller, category, tokenID, *card); err != nil {
		return err
	}

	if e.pot != nil {
		e.pot.Accumulate(caller, "lend", uint32(fee))
	}

	pool.TotalOffer += principalNet
	if err := e.state.PutPool(pool); err != nil {
		return err
	}

	lending := &Lending{
		Lender:        caller,
		Category:      category,
		TokenID:       tokenID,
		PrincipalNet:  uint32(principalNet),
		LentAtSeconds: e.now(),
	}
	if err := e.state.PutLending(lending); err != nil {
		return err
	}

	if e.rewards != nil {
		e.rewards.MintReward(caller, e.config.TerryPerLending)
		e.rewards.BumpHawAi(caller, percent(uint64(e.config.TerryPerLending), e.config.HawAiPercentage))
	}
	if e.metrics != nil {
		e.metrics.IncLend(e.categoryLabel(category))
		e.metrics.SetPoolGauges(pool.TotalOffer, pool.TotalWeight)
	}
	e.emit(events.LendDeposited{
		Lender:       caller,
		Category:     category,
		TokenID:      tokenID,
		PrincipalNet: uint32(principalNet),
		Fee:          uint32(fee),
		LentAt:       lending.LentAtSeconds,
	})
	return nil
}

// Borrow opens a Borrowing position against caller's collateral card. See
// spec §4.4.
func (e *Engine) Borrow(caller [20]byte, category Category, tokenID uint64, powerRequested uint32) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.cards == nil {
		return errNilCards
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if !category.LendEligible() {
		return ErrBadCategory
	}
	if powerRequested == 0 {
		return ErrInsufficientPower
	}

	card, err := e.cards.ReadCard(caller, category, tokenID)
	if err != nil {
		return err
	}
	if card == nil {
		return ErrCardNotFound
	}
	if card.LockedByAction != LockNone {
		return ErrCardLocked
	}
	if existing, err := e.state.GetBorrowing(category, tokenID); err != nil {
		return err
	} else if existing != nil {
		return ErrPositionExists
	}

	pool, err := e.state.GetPool()
	if err != nil {
		return err
	}

	apy := pool.Apy(e.config.ApyAlpha)
	limit, err := maxBorrow(uint64(card.Power), apy, e.config.TMaxHours, e.config.FeeBorrowBps, e.config.SafetyBufferBps)
	if err != nil {
		return err
	}
	if uint64(powerRequested) > limit {
		return ErrExceedsMaxBorrow
	}

	fee := bps(uint64(powerRequested), e.config.FeeBorrowBps)
	net := uint64(powerRequested) - fee

	required, err := reserveRequired(net, apy, e.config.TMaxHours)
	if err != nil {
		return err
	}
	reserve := required
	if floor := bps(net, e.config.MinReserveBps); floor > reserve {
		reserve = floor
	}
	if reserve == 0 {
		return ErrReserveExhausted
	}

	buffer := bps(uint64(card.Power), e.config.SafetyBufferBps)
	if net+reserve+fee+buffer > uint64(card.Power) {
		return ErrInsufficientCollateral
	}
	if pool.TotalOffer < net {
		return ErrInsufficientOffer
	}

	pool.TotalOffer -= net
	pool.TotalBorrowedPower += net
	pool.TotalWeight += reserve
	if err := e.state.PutPool(pool); err != nil {
		return err
	}

	card.Power = saturatingSubU32(card.Power, uint32(fee))
	card.LockedByAction = LockBorrow
	if err := e.cards.WriteCard(caller, category, tokenID, *card); err != nil {
		return err
	}
	if e.pot != nil {
		e.pot.Accumulate(caller, "borrow", uint32(fee))
	}

	power, err := e.state.GetUserPower(caller)
	if err != nil {
		return err
	}
	power += net
	if err := e.state.PutUserPower(caller, power); err != nil {
		return err
	}

	borrowedAt := e.now()
	borrowing := &Borrowing{
		Borrower:             caller,
		Category:             category,
		TokenID:              tokenID,
		Principal:            uint32(net),
		Reserve:              reserve,
		CollateralPower:      card.Power,
		BorrowedAtSeconds:    borrowedAt,
		LastLiquidationIndex: pool.LiquidationIndex,
		Weight:               reserve,
	}
	if err := e.state.PutBorrowing(borrowing); err != nil {
		return err
	}

	if e.rewards != nil {
		e.rewards.MintReward(caller, e.config.TerryPerBorrow)
		e.rewards.BumpHawAi(caller, percent(uint64(e.config.TerryPerBorrow), e.config.HawAiPercentage))
	}
	if e.metrics != nil {
		e.metrics.IncBorrow(e.categoryLabel(category))
		e.metrics.SetApy(apy)
		e.metrics.SetPoolGauges(pool.TotalOffer, pool.TotalWeight)
	}
	e.emit(events.BorrowOpened{
		Borrower:        caller,
		Category:        category,
		TokenID:         tokenID,
		Principal:       uint32(net),
		Reserve:         reserve,
		CollateralPower: card.Power,
		Fee:             uint32(fee),
		BorrowedAt:      borrowedAt,
	})
	e.emit(events.ApyUpdated{Apy: apy})
	return nil
}

// Repay closes a Borrowing position, debiting caller's off-card power
// balance for principal plus accrued interest. See spec §4.7.
func (e *Engine) Repay(caller [20]byte, category Category, tokenID uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.cards == nil {
		return errNilCards
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if !category.LendEligible() {
		return ErrBadCategory
	}

	card, err := e.cards.ReadCard(caller, category, tokenID)
	if err != nil {
		return err
	}
	if card == nil {
		return ErrCardNotFound
	}
	if card.LockedByAction != LockBorrow {
		return ErrCardNotLocked
	}

	borrowing, err := e.state.GetBorrowing(category, tokenID)
	if err != nil {
		return err
	}
	if borrowing == nil {
		return ErrPositionNotFound
	}
	if borrowing.Borrower != caller {
		return ErrNotAuthorized
	}

	pool, err := e.state.GetPool()
	if err != nil {
		return err
	}

	hours := (e.now() - borrowing.BorrowedAtSeconds) / 3600
	pool.TotalDemand += uint64(borrowing.Principal) * hours
	pool.TotalLoanDuration += hours
	pool.TotalLoanCount++

	apy := pool.Apy(e.config.ApyAlpha)
	interest := interestOverDuration(uint64(borrowing.Principal), apy, hours)
	totalRepay := uint64(borrowing.Principal) + interest

	userPower, err := e.state.GetUserPower(caller)
	if err != nil {
		return err
	}
	if userPower < totalRepay {
		return ErrInsufficientUserPower
	}

	haircut, liquidated := touch(borrowing, pool.LiquidationIndex)

	userPower -= totalRepay
	if err := e.state.PutUserPower(caller, userPower); err != nil {
		return err
	}

	pool.TotalOffer += totalRepay
	pool.TotalInterest += interest
	pool.TotalBorrowedPower = saturatingSub(pool.TotalBorrowedPower, uint64(borrowing.Principal))
	// Subtracts the post-touch weight, not the reserve added at borrow time:
	// any haircut already applied stays counted in TotalWeight.
	pool.TotalWeight = saturatingSub(pool.TotalWeight, borrowing.Weight)
	if err := e.state.PutPool(pool); err != nil {
		return err
	}

	if liquidated {
		card.Power = 0
	}
	card.LockedByAction = LockNone
	if err := e.cards.WriteCard(caller, category, tokenID, *card); err != nil {
		return err
	}
	if err := e.state.DeleteBorrowing(category, tokenID); err != nil {
		return err
	}

	if e.rewards != nil {
		e.rewards.MintReward(caller, e.config.TerryPerRepay)
		e.rewards.BumpHawAi(caller, percent(uint64(e.config.TerryPerRepay), e.config.HawAiPercentage))
	}
	if e.metrics != nil {
		e.metrics.IncRepay(e.categoryLabel(category))
		e.metrics.ObserveTouch(liquidated, e.categoryLabel(category))
		e.metrics.SetApy(apy)
		e.metrics.SetPoolGauges(pool.TotalOffer, pool.TotalWeight)
	}
	e.emit(events.LoanTouched{
		Borrower:         caller,
		Category:         category,
		TokenID:          tokenID,
		Haircut:          haircut,
		RemainingReserve: borrowing.Reserve,
		Liquidated:       liquidated,
	})
	e.emit(events.ApyUpdated{Apy: apy})
	return nil
}

// Withdraw closes a Lending position and pays out principal plus interest,
// advancing the liquidation index when the pool cannot fully cover the
// payout. See spec §4.6. Withdraw never fails for pool insolvency — the
// deficit is socialized to active borrowers via the liquidation index.
func (e *Engine) Withdraw(caller [20]byte, category Category, tokenID uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.cards == nil {
		return errNilCards
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if !category.LendEligible() {
		return ErrBadCategory
	}

	card, err := e.cards.ReadCard(caller, category, tokenID)
	if err != nil {
		return err
	}
	if card == nil {
		return ErrCardNotFound
	}
	if card.LockedByAction != LockLend {
		return ErrCardNotLocked
	}

	lending, err := e.state.GetLending(category, tokenID)
	if err != nil {
		return err
	}
	if lending == nil {
		return ErrPositionNotFound
	}
	if lending.Lender != caller {
		return ErrNotAuthorized
	}

	pool, err := e.state.GetPool()
	if err != nil {
		return err
	}

	hours := (e.now() - lending.LentAtSeconds) / 3600
	apy := pool.Apy(e.config.ApyAlpha)
	interest := interestOverDuration(uint64(lending.PrincipalNet), apy, hours)
	payout := uint64(lending.PrincipalNet) + interest

	var indexDelta, deficit uint64
	if interest > 0 && pool.TotalWeight < interest {
		deficit = interest - pool.TotalWeight
		indexDelta = advanceIndex(&pool, deficit)
	}

	if pool.TotalOffer >= payout {
		pool.TotalOffer -= payout
	} else {
		shortfall := payout - pool.TotalOffer
		pool.TotalOffer = 0
		indexDelta += advanceIndex(&pool, shortfall)
		deficit += shortfall
	}
	if err := e.state.PutPool(pool); err != nil {
		return err
	}

	card.Power += uint32(payout)
	card.LockedByAction = LockNone
	if err := e.cards.WriteCard(caller, category, tokenID, *card); err != nil {
		return err
	}
	if err := e.state.DeleteLending(category, tokenID); err != nil {
		return err
	}

	if e.rewards != nil {
		e.rewards.MintReward(caller, e.config.TerryPerWithdraw)
		e.rewards.BumpHawAi(caller, percent(uint64(e.config.TerryPerWithdraw), e.config.HawAiPercentage))
	}
	if e.metrics != nil {
		e.metrics.IncWithdraw(e.categoryLabel(category))
		e.metrics.SetApy(apy)
		e.metrics.SetPoolGauges(pool.TotalOffer, pool.TotalWeight)
	}
	e.emit(events.WithdrawPaid{
		Lender:       caller,
		Category:     category,
		TokenID:      tokenID,
		PrincipalNet: lending.PrincipalNet,
		Interest:     interest,
		Payout:       payout,
	})
	if indexDelta > 0 {
		if e.metrics != nil {
			cause := "reserve_deficit"
			if pool.TotalOffer == 0 {
				cause = "pool_deficit"
			}
			e.metrics.RecordIndexAdvance(cause, pool.LiquidationIndex)
		}
		e.emit(events.IndexUpdated{
			Index:       pool.LiquidationIndex,
			Delta:       indexDelta,
			Deficit:     deficit,
			TotalWeight: pool.TotalWeight,
		})
	}
	e.emit(events.ApyUpdated{Apy: apy})
	return nil
}

// Touch reconciles a single borrowing against the current liquidation index
// without closing it. Callers (e.g. a position-health RPC) use this for a
// fresh read; repay always touches internally regardless.
func (e *Engine) Touch(category Category, tokenID uint64) (*Borrowing, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	borrowing, err := e.state.GetBorrowing(category, tokenID)
	if err != nil {
		return nil, err
	}
	if borrowing == nil {
		return nil, ErrPositionNotFound
	}
	pool, err := e.state.GetPool()
	if err != nil {
		return nil, err
	}
	if err := e.reconcileBorrowing(borrowing, pool.LiquidationIndex); err != nil {
		return nil, err
	}
	return borrowing, nil
}

// TouchAll reconciles every active borrowing against the current
// liquidation index. It backs the daemon's periodic touch_loans job (§4.5,
// §10); the core engine never requires this call for correctness since
// every operation touches the loans it needs lazily.
func (e *Engine) TouchAll() (touched int, liquidated int, err error) {
	if e == nil || e.state == nil {
		return 0, 0, errNilState
	}
	pool, err := e.state.GetPool()
	if err != nil {
		return 0, 0, err
	}
	borrowings, err := e.state.ListActiveBorrowings()
	if err != nil {
		return 0, 0, err
	}
	for _, b := range borrowings {
		wasLiquidated, err := e.reconcileBorrowingAndReport(b, pool.LiquidationIndex)
		if err != nil {
			return touched, liquidated, err
		}
		touched++
		if wasLiquidated {
			liquidated++
		}
	}
	return touched, liquidated, nil
}

// reconcileBorrowing applies touch and persists the result (or unwinds the
// position on full liquidation), emitting the loan_touched event and metric.
func (e *Engine) reconcileBorrowing(b *Borrowing, liquidationIndex uint64) error {
	_, err := e.reconcileBorrowingAndReport(b, liquidationIndex)
	return err
}

func (e *Engine) reconcileBorrowingAndReport(b *Borrowing, liquidationIndex uint64) (bool, error) {
	haircut, liquidated := touch(b, liquidationIndex)
	if liquidated {
		if err := e.state.DeleteBorrowing(b.Category, b.TokenID); err != nil {
			return false, err
		}
		if e.cards != nil {
			if card, err := e.cards.ReadCard(b.Borrower, b.Category, b.TokenID); err == nil && card != nil {
				card.Power = 0
				card.LockedByAction = LockNone
				_ = e.cards.WriteCard(b.Borrower, b.Category, b.TokenID, *card)
			}
		}
	} else if err := e.state.PutBorrowing(b); err != nil {
		return false, err
	}
	if e.metrics != nil {
		e.metrics.ObserveTouch(liquidated, e.categoryLabel(b.Category))
	}
	e.emit(events.LoanTouched{
		Borrower:         b.Borrower,
		Category:         b.Category,
		TokenID:          b.TokenID,
		Haircut:          haircut,
		RemainingReserve: b.Reserve,
		Liquidated:       liquidated,
	})
	return liquidated, nil
}
