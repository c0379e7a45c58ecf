// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package oracle defines the external collaborators the ledger consults:
// a price/parameters source for validator-side figures and a token wrapper
// for native/wrapped conversion on reward payout.
package oracle

import (
	"math/big"

	"github.com/arkos-network/stakehub/arkos"
	"github.com/arkos-network/stakehub/staking/reverts"
)

// Source reports externally determined staking parameters.
type Source interface {
	// CurrentPrice returns the wrapped-token exchange price scaled by 1e18.
	CurrentPrice() (*big.Int, error)
	// CurrentAPR returns the network staking APR in basis points.
	CurrentAPR() (uint32, error)
	// UnbondingPeriod returns the network unbonding period in seconds.
	UnbondingPeriod() (uint64, error)
	// ClaimableRewards returns rewards accrued for a delegation that have
	// not yet been moved into the validator reward pool.
	ClaimableRewards(user arkos.Address, validatorID string) (*big.Int, error)
}

// Wrapper converts between the native token and its wrapped form.
type Wrapper interface {
	// Wrap converts a native amount into wrapped units at the current price.
	Wrap(amount *big.Int) (*big.Int, error)
	// Unwrap converts a wrapped amount back into native units.
	Unwrap(amount *big.Int) (*big.Int, error)
}

// CheckPrice rejects zero or negative prices. A source returning such a
// price is considered stale and must not be used for conversion.
func CheckPrice(price *big.Int) error {
	if price == nil || price.Sign() <= 0 {
		return reverts.NewExternal("stale oracle price")
	}
	return nil
}
