// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package arkos

import "math/big"

// Constants of the Arkos staking hub.
const (
	// ValidatorIDPrefix required prefix of every validator identifier.
	ValidatorIDPrefix = "arkosvaloper"

	// MaxValidatorIDLength upper bound of validator identifier length.
	MaxValidatorIDLength = 64

	// DefaultMinStakeInterval default cooldown between successive stakes, in seconds.
	DefaultMinStakeInterval = 60 * 60

	// DefaultMinUnstakeInterval default cooldown between successive unstake initiations, in seconds.
	DefaultMinUnstakeInterval = 24 * 60 * 60

	// DefaultMinClaimInterval default cooldown between successive reward claims, in seconds.
	DefaultMinClaimInterval = 24 * 60 * 60

	// TokenUnit the base unit of the native token (18 decimals).
	TokenUnit uint64 = 1e18

	// DefaultMinStake default minimum amount for a single stake: 1 token.
	DefaultMinStake = TokenUnit
)

var (
	// OneToken the token unit as a big integer, for amount math.
	OneToken = new(big.Int).SetUint64(TokenUnit)

	// HubAddress the account holding pooled stakes and reward liquidity.
	HubAddress = BytesToAddress([]byte("arkos-stakehub"))
)
