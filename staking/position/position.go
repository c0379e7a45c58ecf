// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package position

import (
	"math/big"

	"github.com/arkos-network/stakehub/arkos"
	"github.com/arkos-network/stakehub/staking/validator"
)

// UserStake is the position of one user against one validator.
type UserStake struct {
	Amount                 *big.Int // principal staked
	Shares                 *big.Int // shares held against the validator sub-pool
	StakedAt               uint64
	LastUnstakeInitiatedAt uint64
	LastClaimInitiatedAt   uint64
	InUnstakeProcess       bool
	UnbondingAmount        *big.Int // balance marked for exit while unbonding
}

// IsEmpty returns whether the position can be treated as nonexistent.
func (p *UserStake) IsEmpty() bool {
	return p == nil || p.Amount == nil || p.Amount.Sign() == 0
}

// Key is the (user, validator) composite key of a position.
type Key struct {
	user arkos.Address
	id   validator.ID
}

// NewKey creates a position key.
func NewKey(user arkos.Address, id validator.ID) Key {
	return Key{user: user, id: id}
}

// Bytes renders the key for slot derivation.
func (k Key) Bytes() []byte {
	return arkos.Blake2b(k.user.Bytes(), k.id.Bytes()).Bytes()
}
