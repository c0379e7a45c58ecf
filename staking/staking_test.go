// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkos-network/stakehub/arkos"
	"github.com/arkos-network/stakehub/auth"
	"github.com/arkos-network/stakehub/lvldb"
	"github.com/arkos-network/stakehub/oracle"
	"github.com/arkos-network/stakehub/staking"
	"github.com/arkos-network/stakehub/staking/request"
	"github.com/arkos-network/stakehub/staking/reverts"
	"github.com/arkos-network/stakehub/staking/timelock"
	"github.com/arkos-network/stakehub/staking/validator"
	"github.com/arkos-network/stakehub/state"
)

const (
	valA = validator.ID("arkosvaloper1xyz")
	valB = validator.ID("arkosvaloper1abc")
)

var (
	admin    = arkos.BytesToAddress([]byte("admin"))
	operator = arkos.BytesToAddress([]byte("operator"))
	guardian = arkos.BytesToAddress([]byte("guardian"))
	alice    = arkos.BytesToAddress([]byte("alice"))
	bob      = arkos.BytesToAddress([]byte("bob"))
)

type testClock struct {
	now uint64
}

func (c *testClock) advance(seconds uint64) { c.now += seconds }

// newLedger builds a funded in-memory ledger with unit-scale amounts so test
// figures match the share math examples exactly.
func newLedger(t *testing.T) (*staking.Ledger, *testClock) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := &testClock{now: 1_700_000_000}
	ledger := staking.New(state.New(db),
		staking.WithClock(func() uint64 { return clock.now }),
		staking.WithWrapper(oracle.NewStatic()),
	)

	reg := ledger.Auth()
	require.NoError(t, reg.Grant(admin, auth.CapAdmin|auth.CapManager))
	require.NoError(t, reg.Grant(operator, auth.CapOperator))
	require.NoError(t, reg.Grant(guardian, auth.CapEmergency))

	require.NoError(t, ledger.SetMinStake(admin, 1))
	require.NoError(t, ledger.RegisterValidator(admin, valA, validator.StatusEnabled))
	require.NoError(t, ledger.RegisterValidator(admin, valB, validator.StatusEnabled))

	for _, acc := range []arkos.Address{alice, bob, operator} {
		require.NoError(t, ledger.Credit(acc, big.NewInt(1_000_000)))
	}
	return ledger, clock
}

func TestStakeBootstrap(t *testing.T) {
	ledger, _ := newLedger(t)

	minted, err := ledger.Stake(alice, valA, big.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), minted)

	val, err := ledger.GetValidator(valA)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), val.TotalStaked)
	assert.Equal(t, big.NewInt(100), val.TotalShares)
	assert.Equal(t, uint64(1), val.UniqueStakers)

	pos, err := ledger.GetUserStake(alice, valA)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), pos.Amount)
	assert.Equal(t, big.NewInt(100), pos.Shares)

	balance, err := ledger.Balance(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(999_900), balance)

	hub, err := ledger.Balance(arkos.HubAddress)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), hub)
}

func TestStakeValidation(t *testing.T) {
	ledger, _ := newLedger(t)

	_, err := ledger.Stake(alice, valA, big.NewInt(0))
	assert.True(t, reverts.IsCode(err, reverts.CodeValidation))

	_, err = ledger.Stake(alice, "arkosvaloper1nope", big.NewInt(100))
	assert.True(t, reverts.IsCode(err, reverts.CodeValidation))

	require.NoError(t, ledger.SetValidatorStatus(admin, valB, validator.StatusDisabled))
	_, err = ledger.Stake(alice, valB, big.NewInt(100))
	assert.True(t, reverts.IsCode(err, reverts.CodeValidation))

	require.NoError(t, ledger.SetMinStake(admin, 50))
	_, err = ledger.Stake(alice, valA, big.NewInt(49))
	assert.True(t, reverts.IsCode(err, reverts.CodeValidation))
}

func TestSecondStakerShares(t *testing.T) {
	ledger, clock := newLedger(t)

	minted, err := ledger.Stake(alice, valA, big.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), minted)

	// a 10-unit reward makes the pool worth 110 with 100 shares outstanding
	require.NoError(t, ledger.AddRewards(operator, valA, big.NewInt(10)))
	clock.advance(1)

	minted, err = ledger.Stake(bob, valA, big.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(90), minted)

	val, err := ledger.GetValidator(valA)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(200), val.TotalStaked)
	assert.Equal(t, big.NewInt(190), val.TotalShares)
	assert.Equal(t, uint64(2), val.UniqueStakers)
}

func TestStakeCooldown(t *testing.T) {
	ledger, clock := newLedger(t)

	_, err := ledger.Stake(alice, valA, big.NewInt(100))
	require.NoError(t, err)

	_, err = ledger.Stake(alice, valA, big.NewInt(100))
	require.Error(t, err)
	assert.True(t, reverts.IsCode(err, reverts.CodeTimelock))

	var tl *reverts.ErrTimelock
	require.ErrorAs(t, err, &tl)
	assert.Equal(t, uint64(arkos.DefaultMinStakeInterval), tl.Required)

	clock.advance(arkos.DefaultMinStakeInterval)
	_, err = ledger.Stake(alice, valA, big.NewInt(100))
	assert.NoError(t, err)
}

func TestUnstakeRoundTrip(t *testing.T) {
	ledger, _ := newLedger(t)

	_, err := ledger.Stake(alice, valA, big.NewInt(100))
	require.NoError(t, err)

	id, err := ledger.InitiateUnstake(alice, valA)
	require.NoError(t, err)

	pos, err := ledger.GetUserStake(alice, valA)
	require.NoError(t, err)
	assert.True(t, pos.InUnstakeProcess)
	assert.Equal(t, big.NewInt(100), pos.UnbondingAmount)

	req, err := ledger.GetRequest(id)
	require.NoError(t, err)
	assert.Equal(t, request.StatusPending, request.Status(req.Status))
	assert.Equal(t, big.NewInt(100), req.Amount)

	require.NoError(t, ledger.CompleteUnstake(operator, alice, valA, big.NewInt(100)))

	// full exit returns exactly the staked amount
	balance, err := ledger.Balance(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000), balance)

	pos, err = ledger.GetUserStake(alice, valA)
	require.NoError(t, err)
	assert.Nil(t, pos)

	val, err := ledger.GetValidator(valA)
	require.NoError(t, err)
	assert.Zero(t, val.TotalStaked.Sign())
	assert.Zero(t, val.TotalShares.Sign())
	assert.Zero(t, val.UniqueStakers)

	req, err = ledger.GetRequest(id)
	require.NoError(t, err)
	assert.Equal(t, request.StatusFulfilled, request.Status(req.Status))
}

func TestDoubleInitiateUnstake(t *testing.T) {
	ledger, _ := newLedger(t)

	_, err := ledger.Stake(alice, valA, big.NewInt(100))
	require.NoError(t, err)
	_, err = ledger.InitiateUnstake(alice, valA)
	require.NoError(t, err)

	_, err = ledger.InitiateUnstake(alice, valA)
	require.Error(t, err)
	assert.True(t, reverts.IsCode(err, reverts.CodeState))
	assert.Contains(t, err.Error(), "unstake already in process")
}

func TestCompleteUnstakeGuards(t *testing.T) {
	ledger, _ := newLedger(t)

	_, err := ledger.Stake(alice, valA, big.NewInt(100))
	require.NoError(t, err)

	// operator capability required
	err = ledger.CompleteUnstake(alice, alice, valA, big.NewInt(100))
	assert.True(t, reverts.IsCode(err, reverts.CodeAuthorization))

	// nothing marked for exit yet
	err = ledger.CompleteUnstake(operator, alice, valA, big.NewInt(100))
	assert.True(t, reverts.IsCode(err, reverts.CodeState))

	_, err = ledger.InitiateUnstake(alice, valA)
	require.NoError(t, err)

	err = ledger.CompleteUnstake(operator, alice, valA, big.NewInt(101))
	assert.True(t, reverts.IsCode(err, reverts.CodeValidation))
}

func TestDoubleFulfillment(t *testing.T) {
	ledger, _ := newLedger(t)

	_, err := ledger.Stake(alice, valA, big.NewInt(100))
	require.NoError(t, err)
	_, err = ledger.InitiateUnstake(alice, valA)
	require.NoError(t, err)
	require.NoError(t, ledger.CompleteUnstake(operator, alice, valA, big.NewInt(100)))

	// the second completion finds no pending work and pays nothing
	err = ledger.CompleteUnstake(operator, alice, valA, big.NewInt(100))
	assert.True(t, reverts.IsCode(err, reverts.CodeState))

	balance, err := ledger.Balance(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000), balance)
}

func TestPartialUnstake(t *testing.T) {
	ledger, clock := newLedger(t)

	_, err := ledger.Stake(alice, valA, big.NewInt(100))
	require.NoError(t, err)
	_, err = ledger.InitiateUnstake(alice, valA)
	require.NoError(t, err)

	require.NoError(t, ledger.CompleteUnstake(operator, alice, valA, big.NewInt(40)))

	// the remainder returns to the active state
	pos, err := ledger.GetUserStake(alice, valA)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(60), pos.Amount)
	assert.False(t, pos.InUnstakeProcess)
	assert.Zero(t, pos.UnbondingAmount.Sign())

	clock.advance(arkos.DefaultMinUnstakeInterval)
	_, err = ledger.InitiateUnstake(alice, valA)
	assert.NoError(t, err)
}

func TestFailedUnstakeRequest(t *testing.T) {
	ledger, _ := newLedger(t)

	_, err := ledger.Stake(alice, valA, big.NewInt(100))
	require.NoError(t, err)
	id, err := ledger.InitiateUnstake(alice, valA)
	require.NoError(t, err)

	require.NoError(t, ledger.FailRequest(operator, id, "validator jailed"))

	req, err := ledger.GetRequest(id)
	require.NoError(t, err)
	assert.Equal(t, request.StatusFailed, request.Status(req.Status))
	assert.Equal(t, "validator jailed", req.StatusReason)

	// position returned to active, principal untouched
	pos, err := ledger.GetUserStake(alice, valA)
	require.NoError(t, err)
	assert.False(t, pos.InUnstakeProcess)
	assert.Equal(t, big.NewInt(100), pos.Amount)

	err = ledger.FailRequest(operator, id, "again")
	assert.True(t, reverts.IsCode(err, reverts.CodeState))
}

func TestRewardClaimNative(t *testing.T) {
	ledger, _ := newLedger(t)

	_, err := ledger.Stake(alice, valA, big.NewInt(100))
	require.NoError(t, err)
	require.NoError(t, ledger.AddRewards(operator, valA, big.NewInt(10)))

	pending, err := ledger.PendingRewards(alice, valA)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10), pending)

	id, err := ledger.InitiateRewardClaim(alice, valA)
	require.NoError(t, err)

	req, err := ledger.GetRequest(id)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10), req.Amount)

	require.NoError(t, ledger.CompleteRewardClaim(operator, alice, valA, big.NewInt(10), true))

	val, err := ledger.GetValidator(valA)
	require.NoError(t, err)
	assert.Zero(t, val.RewardPool.Sign())
	// principal is untouched by reward payout
	assert.Equal(t, big.NewInt(100), val.TotalStaked)

	balance, err := ledger.Balance(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(999_910), balance)

	// pool cannot pay twice
	err = ledger.CompleteRewardClaim(operator, alice, valA, big.NewInt(10), true)
	assert.True(t, reverts.IsCode(err, reverts.CodeState))
}

func TestRewardClaimWrapped(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := &testClock{now: 1_700_000_000}
	wrapper := oracle.NewStatic()
	// one wrapped unit is worth two native units
	wrapper.SetPrice(new(big.Int).Mul(arkos.OneToken, big.NewInt(2)))

	ledger := staking.New(state.New(db),
		staking.WithClock(func() uint64 { return clock.now }),
		staking.WithWrapper(wrapper),
	)
	reg := ledger.Auth()
	require.NoError(t, reg.Grant(admin, auth.CapAdmin|auth.CapManager))
	require.NoError(t, reg.Grant(operator, auth.CapOperator))
	require.NoError(t, ledger.SetMinStake(admin, 1))
	require.NoError(t, ledger.RegisterValidator(admin, valA, validator.StatusEnabled))
	require.NoError(t, ledger.Credit(alice, big.NewInt(1000)))
	require.NoError(t, ledger.Credit(operator, big.NewInt(1000)))

	_, err = ledger.Stake(alice, valA, big.NewInt(100))
	require.NoError(t, err)
	require.NoError(t, ledger.AddRewards(operator, valA, big.NewInt(10)))
	_, err = ledger.InitiateRewardClaim(alice, valA)
	require.NoError(t, err)

	require.NoError(t, ledger.CompleteRewardClaim(operator, alice, valA, big.NewInt(10), false))

	// 10 native convert to 5 wrapped units
	balance, err := ledger.Balance(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(900+5), balance)
}

func TestRewardClaimGuards(t *testing.T) {
	ledger, _ := newLedger(t)

	// claiming with no stake is a state error
	_, err := ledger.InitiateRewardClaim(alice, valA)
	assert.True(t, reverts.IsCode(err, reverts.CodeState))

	_, err = ledger.Stake(alice, valA, big.NewInt(100))
	require.NoError(t, err)

	// nothing accrued yet
	_, err = ledger.InitiateRewardClaim(alice, valA)
	assert.True(t, reverts.IsCode(err, reverts.CodeState))

	// completing with no claim open names the missing claim
	err = ledger.CompleteRewardClaim(operator, alice, valA, big.NewInt(1), true)
	assert.True(t, reverts.IsCode(err, reverts.CodeState))
	assert.Contains(t, err.Error(), "no reward claim in process")
}

func TestOverlappingRewardClaims(t *testing.T) {
	ledger, clock := newLedger(t)

	_, err := ledger.Stake(alice, valA, big.NewInt(100))
	require.NoError(t, err)
	require.NoError(t, ledger.AddRewards(operator, valA, big.NewInt(10)))

	id1, err := ledger.InitiateRewardClaim(alice, valA)
	require.NoError(t, err)

	// a second initiation cannot displace the open claim, even past the
	// cooldown
	clock.advance(arkos.DefaultMinClaimInterval)
	_, err = ledger.InitiateRewardClaim(alice, valA)
	require.Error(t, err)
	assert.True(t, reverts.IsCode(err, reverts.CodeState))
	assert.Contains(t, err.Error(), "reward claim already in process")

	require.NoError(t, ledger.FailRequest(operator, id1, "oracle outage"))

	clock.advance(arkos.DefaultMinClaimInterval)
	id2, err := ledger.InitiateRewardClaim(alice, valA)
	require.NoError(t, err)

	// retrying the failed id must not touch the open claim
	err = ledger.FailRequest(operator, id1, "late retry")
	assert.True(t, reverts.IsCode(err, reverts.CodeState))

	require.NoError(t, ledger.CompleteRewardClaim(operator, alice, valA, big.NewInt(10), true))

	req, err := ledger.GetRequest(id2)
	require.NoError(t, err)
	assert.Equal(t, request.StatusFulfilled, request.Status(req.Status))
}

func TestMigration(t *testing.T) {
	ledger, clock := newLedger(t)

	_, err := ledger.Stake(alice, valA, big.NewInt(100))
	require.NoError(t, err)

	require.NoError(t, ledger.SetValidatorStatus(admin, valA, validator.StatusDeprecated))
	require.NoError(t, ledger.SetupMigration(admin, valA, valB))

	clock.advance(arkos.DefaultMinStakeInterval)
	require.NoError(t, ledger.Migrate(alice, valA, valB))

	src, err := ledger.GetValidator(valA)
	require.NoError(t, err)
	assert.Zero(t, src.TotalStaked.Sign())
	assert.Zero(t, src.TotalShares.Sign())
	assert.Zero(t, src.UniqueStakers)

	dst, err := ledger.GetValidator(valB)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), dst.TotalStaked)
	assert.Equal(t, big.NewInt(100), dst.TotalShares)
	assert.Equal(t, uint64(1), dst.UniqueStakers)

	// no value moved externally
	hub, err := ledger.Balance(arkos.HubAddress)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), hub)

	ids, err := ledger.UserValidators(alice)
	require.NoError(t, err)
	assert.Equal(t, []validator.ID{valB}, ids)
}

func TestMigrationGuards(t *testing.T) {
	ledger, clock := newLedger(t)

	_, err := ledger.Stake(alice, valA, big.NewInt(100))
	require.NoError(t, err)
	clock.advance(arkos.DefaultMinStakeInterval)

	// source must be deprecated
	err = ledger.Migrate(alice, valA, valB)
	assert.True(t, reverts.IsCode(err, reverts.CodeState))

	require.NoError(t, ledger.SetValidatorStatus(admin, valA, validator.StatusDeprecated))

	// successor must be configured
	err = ledger.Migrate(alice, valA, valB)
	assert.True(t, reverts.IsCode(err, reverts.CodeState))

	require.NoError(t, ledger.SetupMigration(admin, valA, valB))

	// target must match the configured successor
	err = ledger.Migrate(alice, valA, "arkosvaloper1other")
	assert.True(t, reverts.IsCode(err, reverts.CodeState))

	// cooldown applies from the last stake
	_, err = ledger.Stake(bob, valB, big.NewInt(1))
	require.NoError(t, err)
	require.NoError(t, ledger.Migrate(alice, valA, valB))
}

func TestMigrationCooldown(t *testing.T) {
	ledger, _ := newLedger(t)

	_, err := ledger.Stake(alice, valA, big.NewInt(100))
	require.NoError(t, err)
	require.NoError(t, ledger.SetValidatorStatus(admin, valA, validator.StatusDeprecated))
	require.NoError(t, ledger.SetupMigration(admin, valA, valB))

	// migrating right after staking would bypass the stake cooldown
	err = ledger.Migrate(alice, valA, valB)
	assert.True(t, reverts.IsCode(err, reverts.CodeTimelock))
}

func TestEmergencyExit(t *testing.T) {
	ledger, clock := newLedger(t)

	_, err := ledger.Stake(alice, valA, big.NewInt(100))
	require.NoError(t, err)
	clock.advance(arkos.DefaultMinStakeInterval)
	_, err = ledger.Stake(alice, valB, big.NewInt(50))
	require.NoError(t, err)

	// completion without a request is rejected
	err = ledger.CompleteEmergencyWithdrawal(operator, alice, big.NewInt(150))
	assert.True(t, reverts.IsCode(err, reverts.CodeState))

	require.NoError(t, ledger.RequestEmergencyWithdrawal(alice))

	flagged, err := ledger.EmergencyRequested(alice)
	require.NoError(t, err)
	assert.True(t, flagged)

	// the payout must match the sum of all positions
	err = ledger.CompleteEmergencyWithdrawal(operator, alice, big.NewInt(149))
	assert.True(t, reverts.IsCode(err, reverts.CodeValidation))

	require.NoError(t, ledger.CompleteEmergencyWithdrawal(operator, alice, big.NewInt(150)))

	balance, err := ledger.Balance(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000), balance)

	ids, err := ledger.UserValidators(alice)
	require.NoError(t, err)
	assert.Empty(t, ids)

	for _, id := range []validator.ID{valA, valB} {
		val, err := ledger.GetValidator(id)
		require.NoError(t, err)
		assert.Zero(t, val.TotalStaked.Sign(), id)
		assert.Zero(t, val.UniqueStakers, id)
	}

	flagged, err = ledger.EmergencyRequested(alice)
	require.NoError(t, err)
	assert.False(t, flagged)
}

func TestEmergencyExitFailsOpenRequests(t *testing.T) {
	ledger, clock := newLedger(t)

	_, err := ledger.Stake(alice, valA, big.NewInt(100))
	require.NoError(t, err)
	clock.advance(arkos.DefaultMinStakeInterval)
	_, err = ledger.Stake(alice, valB, big.NewInt(50))
	require.NoError(t, err)
	require.NoError(t, ledger.AddRewards(operator, valB, big.NewInt(10)))

	unstakeID, err := ledger.InitiateUnstake(alice, valA)
	require.NoError(t, err)
	claimID, err := ledger.InitiateRewardClaim(alice, valB)
	require.NoError(t, err)

	require.NoError(t, ledger.RequestEmergencyWithdrawal(alice))
	require.NoError(t, ledger.CompleteEmergencyWithdrawal(operator, alice, big.NewInt(150)))

	// the exit leaves no pending work behind
	for _, id := range []request.ID{unstakeID, claimID} {
		req, err := ledger.GetRequest(id)
		require.NoError(t, err)
		assert.Equal(t, request.StatusFailed, request.Status(req.Status))
		assert.Equal(t, "emergency withdrawal", req.StatusReason)
	}

	// nothing is left for the operator to complete
	err = ledger.CompleteUnstake(operator, alice, valA, big.NewInt(100))
	assert.True(t, reverts.IsCode(err, reverts.CodeState))
	err = ledger.CompleteRewardClaim(operator, alice, valB, big.NewInt(10), true)
	assert.True(t, reverts.IsCode(err, reverts.CodeState))
}

func TestPause(t *testing.T) {
	ledger, _ := newLedger(t)

	_, err := ledger.Stake(alice, valA, big.NewInt(100))
	require.NoError(t, err)
	_, err = ledger.InitiateUnstake(alice, valA)
	require.NoError(t, err)

	// only the emergency capability may pause
	err = ledger.Pause(alice)
	assert.True(t, reverts.IsCode(err, reverts.CodeAuthorization))
	require.NoError(t, ledger.Pause(guardian))

	paused, err := ledger.Paused()
	require.NoError(t, err)
	assert.True(t, paused)

	_, err = ledger.Stake(bob, valA, big.NewInt(100))
	assert.True(t, reverts.IsCode(err, reverts.CodeState))
	_, err = ledger.InitiateRewardClaim(alice, valA)
	assert.True(t, reverts.IsCode(err, reverts.CodeState))

	// exit paths keep working while paused
	require.NoError(t, ledger.CompleteUnstake(operator, alice, valA, big.NewInt(100)))
	require.NoError(t, ledger.Credit(bob, big.NewInt(1)))

	require.NoError(t, ledger.Unpause(guardian))
	_, err = ledger.Stake(bob, valA, big.NewInt(100))
	assert.NoError(t, err)
}

func TestConservation(t *testing.T) {
	ledger, clock := newLedger(t)

	_, err := ledger.Stake(alice, valA, big.NewInt(300))
	require.NoError(t, err)
	_, err = ledger.Stake(bob, valA, big.NewInt(200))
	require.NoError(t, err)
	require.NoError(t, ledger.AddRewards(operator, valA, big.NewInt(25)))

	clock.advance(arkos.DefaultMinStakeInterval)
	_, err = ledger.Stake(alice, valA, big.NewInt(100))
	require.NoError(t, err)

	_, err = ledger.InitiateUnstake(bob, valA)
	require.NoError(t, err)
	require.NoError(t, ledger.CompleteUnstake(operator, bob, valA, big.NewInt(150)))

	val, err := ledger.GetValidator(valA)
	require.NoError(t, err)

	sum := new(big.Int)
	for _, user := range []arkos.Address{alice, bob} {
		pos, err := ledger.GetUserStake(user, valA)
		require.NoError(t, err)
		if pos != nil {
			sum.Add(sum, pos.Amount)
		}
	}
	assert.Equal(t, val.TotalStaked, sum)

	totals, err := ledger.GlobalTotals()
	require.NoError(t, err)
	assert.Equal(t, val.TotalStaked, totals.Staked)
}

func TestFailedOperationLeavesNoTrace(t *testing.T) {
	ledger, _ := newLedger(t)

	// more than the funded balance
	_, err := ledger.Stake(alice, valA, big.NewInt(2_000_000))
	assert.True(t, reverts.IsCode(err, reverts.CodeValidation))

	val, err := ledger.GetValidator(valA)
	require.NoError(t, err)
	assert.Zero(t, val.TotalStaked.Sign())
	assert.Zero(t, val.UniqueStakers)

	balance, err := ledger.Balance(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000), balance)

	pos, err := ledger.GetUserStake(alice, valA)
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestAdminEntrypointsRequireCapability(t *testing.T) {
	ledger, _ := newLedger(t)

	err := ledger.RegisterValidator(alice, "arkosvaloper1new", validator.StatusEnabled)
	assert.True(t, reverts.IsCode(err, reverts.CodeAuthorization))

	err = ledger.SetValidatorStatus(alice, valA, validator.StatusDisabled)
	assert.True(t, reverts.IsCode(err, reverts.CodeAuthorization))

	err = ledger.SetMinStake(alice, 10)
	assert.True(t, reverts.IsCode(err, reverts.CodeAuthorization))

	err = ledger.SetInterval(alice, timelock.KindStake, 10)
	assert.True(t, reverts.IsCode(err, reverts.CodeAuthorization))

	err = ledger.GrantRole(alice, alice, auth.CapAdmin)
	assert.True(t, reverts.IsCode(err, reverts.CodeAuthorization))

	err = ledger.AddRewards(alice, valA, big.NewInt(1))
	assert.True(t, reverts.IsCode(err, reverts.CodeAuthorization))
}

func TestSetIntervals(t *testing.T) {
	ledger, clock := newLedger(t)

	require.NoError(t, ledger.SetInterval(admin, timelock.KindStake, 10))
	interval, err := ledger.Interval(timelock.KindStake)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), interval)

	_, err = ledger.Stake(alice, valA, big.NewInt(100))
	require.NoError(t, err)
	_, err = ledger.Stake(alice, valA, big.NewInt(100))
	assert.True(t, reverts.IsCode(err, reverts.CodeTimelock))

	clock.advance(10)
	_, err = ledger.Stake(alice, valA, big.NewInt(100))
	assert.NoError(t, err)
}

func TestRatioNonDecreasing(t *testing.T) {
	ledger, clock := newLedger(t)

	_, err := ledger.Stake(alice, valA, big.NewInt(1000))
	require.NoError(t, err)

	ratio := func() *big.Rat {
		val, err := ledger.GetValidator(valA)
		require.NoError(t, err)
		pool := new(big.Int).Add(val.TotalStaked, val.RewardPool)
		return new(big.Rat).SetFrac(pool, val.TotalShares)
	}

	prev := ratio()
	for i := 0; i < 5; i++ {
		require.NoError(t, ledger.AddRewards(operator, valA, big.NewInt(7)))
		clock.advance(arkos.DefaultMinStakeInterval)
		_, err = ledger.Stake(bob, valA, big.NewInt(33))
		require.NoError(t, err)

		cur := ratio()
		assert.True(t, cur.Cmp(prev) >= 0, "ratio decreased at step %d", i)
		prev = cur
	}
}
