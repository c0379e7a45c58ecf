// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validator

import (
	"math/big"
	"strings"

	"github.com/arkos-network/stakehub/arkos"
	"github.com/arkos-network/stakehub/staking/reverts"
)

// ID is a validator identifier. It carries the chain's required prefix and
// is bounded in length.
type ID string

// Bytes returns the byte form of the identifier, for slot derivation.
func (id ID) Bytes() []byte {
	return []byte(id)
}

// String implements stringer.
func (id ID) String() string {
	return string(id)
}

// Validate checks the identifier format.
func (id ID) Validate() error {
	if len(id) == 0 {
		return reverts.NewValidation("empty validator id")
	}
	if len(id) > arkos.MaxValidatorIDLength {
		return reverts.NewValidation("validator id too long")
	}
	if !strings.HasPrefix(string(id), arkos.ValidatorIDPrefix) || len(id) == len(arkos.ValidatorIDPrefix) {
		return reverts.NewValidation("validator id must carry the " + arkos.ValidatorIDPrefix + " prefix")
	}
	return nil
}

type Status = uint8

const (
	StatusUnknown    = Status(iota) // 0 -> default value
	StatusEnabled                   // accepts new stakes
	StatusDisabled                  // rejects new stakes, allows exit
	StatusDeprecated                // migration-only exit path
)

// StatusName returns a human readable status name.
func StatusName(s Status) string {
	switch s {
	case StatusEnabled:
		return "enabled"
	case StatusDisabled:
		return "disabled"
	case StatusDeprecated:
		return "deprecated"
	default:
		return "unknown"
	}
}

// Validator is the registry entry of a staking target.
type Validator struct {
	Status        Status
	TotalStaked   *big.Int // sum of all principal staked to this validator
	TotalShares   *big.Int // shares outstanding against TotalStaked
	RewardPool    *big.Int // accrued rewards not yet claimed
	UniqueStakers uint64   // number of users with a live position
	CommissionBPS uint16
	Successor     ID     // designated migration target, empty unless configured
	Metadata      string // operator supplied description, no accounting meaning
	RegisteredAt  uint64
}

// IsEmpty returns whether the entry can be treated as unregistered.
func (v *Validator) IsEmpty() bool {
	return v == nil || v.Status == StatusUnknown
}

// AcceptsStake returns whether new stake may be added.
func (v *Validator) AcceptsStake() bool {
	return v.Status == StatusEnabled
}
