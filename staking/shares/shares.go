// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package shares implements the proportional accounting between staked
// amounts and pool shares. All math biases rounding against the individual
// and toward the pool, so repeated small operations can never drain value.
package shares

import "math/big"

// ToShares converts an amount into shares for a pool with the given totals,
// rounding down. An empty pool bootstraps 1:1.
func ToShares(amount, totalStaked, totalShares *big.Int) *big.Int {
	if totalShares.Sign() == 0 || totalStaked.Sign() == 0 {
		return new(big.Int).Set(amount)
	}
	out := new(big.Int).Mul(amount, totalShares)
	return out.Div(out, totalStaked)
}

// BurnShares converts an amount into the shares to burn on withdrawal,
// rounding up so the remaining pool is never short.
func BurnShares(amount, totalStaked, totalShares *big.Int) *big.Int {
	if totalShares.Sign() == 0 || totalStaked.Sign() == 0 {
		return new(big.Int).Set(amount)
	}
	out := new(big.Int).Mul(amount, totalShares)
	out.Add(out, new(big.Int).Sub(totalStaked, big.NewInt(1)))
	return out.Div(out, totalStaked)
}

// ToAmount converts shares back into an amount, rounding down.
func ToAmount(sharesCount, totalStaked, totalShares *big.Int) *big.Int {
	if totalShares.Sign() == 0 {
		return new(big.Int).Set(sharesCount)
	}
	out := new(big.Int).Mul(sharesCount, totalStaked)
	return out.Div(out, totalShares)
}

// RewardShare returns a position's share of a reward pool, rounding down.
// The sum of all per-position reward shares never exceeds the pool; rounding
// dust remains in the pool.
func RewardShare(positionShares, rewardPool, totalShares *big.Int) *big.Int {
	if totalShares.Sign() == 0 {
		return new(big.Int)
	}
	out := new(big.Int).Mul(positionShares, rewardPool)
	return out.Div(out, totalShares)
}
