// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package shares

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSharesBootstrap(t *testing.T) {
	// empty pool converts 1:1
	got := ToShares(big.NewInt(100), big.NewInt(0), big.NewInt(0))
	assert.Equal(t, big.NewInt(100), got)
}

func TestToSharesRoundsDown(t *testing.T) {
	// pool worth 110 with 100 shares outstanding: 100*100/110 = 90.9 -> 90
	got := ToShares(big.NewInt(100), big.NewInt(110), big.NewInt(100))
	assert.Equal(t, big.NewInt(90), got)
}

func TestBurnSharesRoundsUp(t *testing.T) {
	// withdrawing 100 from a pool worth 110 with 100 shares burns ceil(90.9) = 91
	got := BurnShares(big.NewInt(100), big.NewInt(110), big.NewInt(100))
	assert.Equal(t, big.NewInt(91), got)

	// exact division burns exactly
	got = BurnShares(big.NewInt(55), big.NewInt(110), big.NewInt(100))
	assert.Equal(t, big.NewInt(50), got)
}

func TestToAmountRoundTrip(t *testing.T) {
	staked := big.NewInt(1000)
	total := big.NewInt(800)

	minted := ToShares(big.NewInt(123), staked, total)
	back := ToAmount(minted, staked, total)
	// round trip loses at most 1 unit to rounding, never gains
	diff := new(big.Int).Sub(big.NewInt(123), back)
	assert.True(t, diff.Sign() >= 0)
	assert.True(t, diff.Cmp(big.NewInt(2)) < 0)
}

func TestRewardShare(t *testing.T) {
	// three equal positions over a pool of 100: 3x33, dust of 1 stays in pool
	one := RewardShare(big.NewInt(1), big.NewInt(100), big.NewInt(3))
	assert.Equal(t, big.NewInt(33), one)

	sum := new(big.Int).Mul(one, big.NewInt(3))
	assert.True(t, sum.Cmp(big.NewInt(100)) <= 0)

	// no shares outstanding, no reward
	assert.Zero(t, RewardShare(big.NewInt(1), big.NewInt(100), big.NewInt(0)).Sign())
}

func TestPoolRatioNonDecreasing(t *testing.T) {
	// reward accrual (staked grows, shares constant) only increases the
	// amount a fixed share position is worth
	sharesHeld := big.NewInt(50)
	before := ToAmount(sharesHeld, big.NewInt(1000), big.NewInt(1000))
	after := ToAmount(sharesHeld, big.NewInt(1100), big.NewInt(1000))
	assert.True(t, after.Cmp(before) >= 0)
}
