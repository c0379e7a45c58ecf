// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/arkos-network/stakehub/arkos"
	"github.com/arkos-network/stakehub/staking/position"
	"github.com/arkos-network/stakehub/staking/request"
	"github.com/arkos-network/stakehub/staking/reverts"
	"github.com/arkos-network/stakehub/staking/shares"
	"github.com/arkos-network/stakehub/staking/timelock"
	"github.com/arkos-network/stakehub/staking/validator"
)

// Totals is the global ledger summary.
type Totals struct {
	Staked *big.Int
	Shares *big.Int
}

// GetValidator returns a validator entry, or nil when unregistered.
func (l *Ledger) GetValidator(id validator.ID) (*validator.Validator, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	val, err := l.validators.Get(id)
	if err != nil {
		return nil, err
	}
	if val.IsEmpty() {
		return nil, nil
	}
	return val, nil
}

// ListValidators returns the ids of every registered validator.
func (l *Ledger) ListValidators() ([]validator.ID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.validators.All()
}

// GetUserStake returns the position of user with a validator, or nil when
// there is none.
func (l *Ledger) GetUserStake(user arkos.Address, id validator.ID) (*position.UserStake, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, err := l.positions.Get(user, id)
	if err != nil {
		return nil, err
	}
	if pos.IsEmpty() {
		return nil, nil
	}
	return pos, nil
}

// UserValidators returns the validators the user holds positions with.
func (l *Ledger) UserValidators(user arkos.Address) ([]validator.ID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.positions.Validators(user)
}

// GetRequest returns a request record, or nil when unknown.
func (l *Ledger) GetRequest(id request.ID) (*request.Request, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	req, err := l.requests.Get(id)
	if err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		return nil, nil
	}
	return req, nil
}

// PendingRewards returns the user's current claim on the validator reward
// pool plus any externally reported accrual still outside it.
func (l *Ledger) PendingRewards(user arkos.Address, id validator.ID) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	val, err := l.validators.GetExisting(id)
	if err != nil {
		return nil, err
	}
	pos, err := l.positions.Get(user, id)
	if err != nil {
		return nil, err
	}
	claim := shares.RewardShare(pos.Shares, val.RewardPool, val.TotalShares)
	if l.source != nil {
		accruing, err := l.source.ClaimableRewards(user, id.String())
		if err != nil {
			return nil, errors.Wrap(err, "failed to query oracle rewards")
		}
		claim.Add(claim, accruing)
	}
	return claim, nil
}

// GlobalTotals returns the ledger-wide staked value and shares outstanding.
func (l *Ledger) GlobalTotals() (*Totals, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	staked, err := l.totalStaked.Get()
	if err != nil {
		return nil, err
	}
	sh, err := l.totalShares.Get()
	if err != nil {
		return nil, err
	}
	return &Totals{Staked: staked, Shares: sh}, nil
}

// Paused reports whether user-facing mutations are blocked.
func (l *Ledger) Paused() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused.Get()
}

// MinStake returns the minimum stake amount.
func (l *Ledger) MinStake() (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.minStake.Get()
}

// Interval returns the configured cooldown for a timelock kind.
func (l *Ledger) Interval(kind timelock.Kind) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.guard.Interval(kind)
}

// EmergencyRequested reports whether the user has flagged an emergency exit.
func (l *Ledger) EmergencyRequested(user arkos.Address) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	flagged, err := l.emergency.Get(addrKey(user))
	if err != nil {
		return false, errors.Wrap(err, "failed to get emergency flag")
	}
	return flagged, nil
}

// Balance returns the tracked ledger balance of an account.
func (l *Ledger) Balance(addr arkos.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.GetBalance(addr)
}

// Credit adds value to an account's tracked balance. It backs deposit
// bridging and test funding.
func (l *Ledger) Credit(addr arkos.Address, amount *big.Int) error {
	return l.run("credit", func() error {
		if amount == nil || amount.Sign() <= 0 {
			return reverts.NewValidation("zero credit amount")
		}
		balance, err := l.state.GetBalance(addr)
		if err != nil {
			return err
		}
		l.state.SetBalance(addr, new(big.Int).Add(balance, amount))
		return nil
	})
}
