package stake

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cardledger/core/types"
	"cardledger/native/card"
	"cardledger/storage"
)

type fakeClock struct{ seconds uint64 }

func (c *fakeClock) NowSeconds() uint64 { return c.seconds }

func TestStakeLocksCardAndEscrowsPrincipal(t *testing.T) {
	cards := card.NewStore(storage.NewMemDB())
	owner := [20]byte{1}
	require.NoError(t, cards.WriteCard(owner, types.CategoryResource, 1, types.Card{Power: 1000}))

	e := NewEscrow(storage.NewMemDB(), cards, &fakeClock{}, 50_000)
	require.NoError(t, e.Stake(owner, types.CategoryResource, 1))

	got, err := cards.ReadCard(owner, types.CategoryResource, 1)
	require.NoError(t, err)
	require.Equal(t, types.LockStake, got.LockedByAction)
	require.Equal(t, uint32(1000), got.Power)
}

func TestStakeRejectsNonLendEligibleCategory(t *testing.T) {
	cards := card.NewStore(storage.NewMemDB())
	owner := [20]byte{1}
	require.NoError(t, cards.WriteCard(owner, types.CategorySkill, 1, types.Card{Power: 1000}))
	e := NewEscrow(storage.NewMemDB(), cards, &fakeClock{}, 50_000)
	require.ErrorIs(t, e.Stake(owner, types.CategorySkill, 1), errBadCategory)
}

func TestStakeRejectsAlreadyLockedCard(t *testing.T) {
	cards := card.NewStore(storage.NewMemDB())
	owner := [20]byte{1}
	require.NoError(t, cards.WriteCard(owner, types.CategoryResource, 1, types.Card{Power: 1000, LockedByAction: types.LockBorrow}))
	e := NewEscrow(storage.NewMemDB(), cards, &fakeClock{}, 50_000)
	require.ErrorIs(t, e.Stake(owner, types.CategoryResource, 1), errCardLocked)
}

func TestUnstakeCreditsLinearInterest(t *testing.T) {
	cards := card.NewStore(storage.NewMemDB())
	owner := [20]byte{1}
	require.NoError(t, cards.WriteCard(owner, types.CategoryResource, 1, types.Card{Power: 1_000_000}))

	clock := &fakeClock{}
	e := NewEscrow(storage.NewMemDB(), cards, clock, 50_000) // 5% fixed APY
	require.NoError(t, e.Stake(owner, types.CategoryResource, 1))

	clock.seconds = 8760 * 3600 // exactly one year
	require.NoError(t, e.Unstake(owner, types.CategoryResource, 1))

	got, err := cards.ReadCard(owner, types.CategoryResource, 1)
	require.NoError(t, err)
	// principal * apy / 1_000_000 * 8760 / 8760 == principal * apy / 1_000_000
	wantInterest := uint32(1_000_000 * 50_000 / 1_000_000)
	require.Equal(t, uint32(1_000_000)+wantInterest, got.Power)
	require.Equal(t, types.LockNone, got.LockedByAction)
}

func TestUnstakeRejectsWrongOwner(t *testing.T) {
	cards := card.NewStore(storage.NewMemDB())
	owner := [20]byte{1}
	other := [20]byte{2}
	require.NoError(t, cards.WriteCard(owner, types.CategoryResource, 1, types.Card{Power: 1000}))
	e := NewEscrow(storage.NewMemDB(), cards, &fakeClock{}, 50_000)
	require.NoError(t, e.Stake(owner, types.CategoryResource, 1))

	require.NoError(t, cards.WriteCard(other, types.CategoryResource, 1, types.Card{LockedByAction: types.LockStake}))
	require.ErrorIs(t, e.Unstake(other, types.CategoryResource, 1), errNotAuthorized)
}

func TestUnstakeRejectsMissingPosition(t *testing.T) {
	cards := card.NewStore(storage.NewMemDB())
	owner := [20]byte{1}
	require.NoError(t, cards.WriteCard(owner, types.CategoryResource, 1, types.Card{Power: 1000, LockedByAction: types.LockStake}))
	e := NewEscrow(storage.NewMemDB(), cards, &fakeClock{}, 50_000)
	require.ErrorIs(t, e.Unstake(owner, types.CategoryResource, 1), errPositionNotFound)
}
