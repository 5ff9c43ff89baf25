package fight

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cardledger/core/types"
	"cardledger/native/card"
	"cardledger/storage"
)

func TestOpenCommitsStakeAndLocksCard(t *testing.T) {
	cards := card.NewStore(storage.NewMemDB())
	owner := [20]byte{1}
	require.NoError(t, cards.WriteCard(owner, types.CategoryResource, 1, types.Card{Power: 1000}))

	table := NewTable(storage.NewMemDB(), cards)
	require.NoError(t, table.Open(owner, types.CategoryResource, 1, 300))

	got, err := cards.ReadCard(owner, types.CategoryResource, 1)
	require.NoError(t, err)
	require.Equal(t, uint32(700), got.Power)
	require.Equal(t, types.LockFight, got.LockedByAction)
}

func TestOpenRejectsStakeExceedingPower(t *testing.T) {
	cards := card.NewStore(storage.NewMemDB())
	owner := [20]byte{1}
	require.NoError(t, cards.WriteCard(owner, types.CategoryResource, 1, types.Card{Power: 100}))
	table := NewTable(storage.NewMemDB(), cards)
	require.ErrorIs(t, table.Open(owner, types.CategoryResource, 1, 200), errInsufficientPower)
}

func TestResolveCreditsStakePlusPositivePnl(t *testing.T) {
	cards := card.NewStore(storage.NewMemDB())
	owner := [20]byte{1}
	require.NoError(t, cards.WriteCard(owner, types.CategoryResource, 1, types.Card{Power: 1000}))
	table := NewTable(storage.NewMemDB(), cards)
	require.NoError(t, table.Open(owner, types.CategoryResource, 1, 300))

	payout, err := table.Resolve(types.CategoryResource, 1, 150)
	require.NoError(t, err)
	require.Equal(t, uint64(450), payout)

	got, err := cards.ReadCard(owner, types.CategoryResource, 1)
	require.NoError(t, err)
	require.Equal(t, uint32(700+450), got.Power)
	require.Equal(t, types.LockNone, got.LockedByAction)
}

func TestResolveClampsLossAtZeroNeverNegative(t *testing.T) {
	cards := card.NewStore(storage.NewMemDB())
	owner := [20]byte{1}
	require.NoError(t, cards.WriteCard(owner, types.CategoryResource, 1, types.Card{Power: 1000}))
	table := NewTable(storage.NewMemDB(), cards)
	require.NoError(t, table.Open(owner, types.CategoryResource, 1, 300))

	payout, err := table.Resolve(types.CategoryResource, 1, -1000) // stake(300) + pnl(-1000) < 0
	require.NoError(t, err)
	require.Equal(t, uint64(0), payout)

	got, err := cards.ReadCard(owner, types.CategoryResource, 1)
	require.NoError(t, err)
	require.Equal(t, uint32(700), got.Power) // unchanged beyond the original debit
}

func TestResolveRejectsMissingBet(t *testing.T) {
	cards := card.NewStore(storage.NewMemDB())
	table := NewTable(storage.NewMemDB(), cards)
	_, err := table.Resolve(types.CategoryResource, 1, 0)
	require.ErrorIs(t, err, errPositionNotFound)
}

func TestOpenSucceedsAgainAfterResolve(t *testing.T) {
	cards := card.NewStore(storage.NewMemDB())
	owner := [20]byte{1}
	require.NoError(t, cards.WriteCard(owner, types.CategoryResource, 1, types.Card{Power: 1000}))
	table := NewTable(storage.NewMemDB(), cards)
	require.NoError(t, table.Open(owner, types.CategoryResource, 1, 100))
	_, err := table.Resolve(types.CategoryResource, 1, 0)
	require.NoError(t, err)
	// Re-open after resolution must succeed; the bet record was deleted.
	require.NoError(t, table.Open(owner, types.CategoryResource, 1, 50))
}
