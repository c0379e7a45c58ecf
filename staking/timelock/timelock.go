// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package timelock

import (
	"github.com/pkg/errors"

	"github.com/arkos-network/stakehub/arkos"
	"github.com/arkos-network/stakehub/staking/reverts"
	"github.com/arkos-network/stakehub/staking/validator"
	"github.com/arkos-network/stakehub/storage"
)

// Kind selects one of the three independent cooldowns.
type Kind uint8

const (
	KindStake Kind = iota + 1
	KindUnstake
	KindClaim
)

// String implements stringer.
func (k Kind) String() string {
	switch k {
	case KindStake:
		return "stake"
	case KindUnstake:
		return "unstake"
	case KindClaim:
		return "claim"
	default:
		return "unknown"
	}
}

// Stamps records the last action time per cooldown for one (user, validator)
// pair.
type Stamps struct {
	Stake   uint64
	Unstake uint64
	Claim   uint64
}

func (s *Stamps) last(kind Kind) uint64 {
	switch kind {
	case KindStake:
		return s.Stake
	case KindUnstake:
		return s.Unstake
	default:
		return s.Claim
	}
}

func (s *Stamps) set(kind Kind, now uint64) {
	switch kind {
	case KindStake:
		s.Stake = now
	case KindUnstake:
		s.Unstake = now
	default:
		s.Claim = now
	}
}

type pairKey arkos.Bytes32

func (k pairKey) Bytes() []byte { return k[:] }

func newPairKey(user arkos.Address, id validator.ID) pairKey {
	return pairKey(arkos.Blake2b(user.Bytes(), id.Bytes()))
}

var slotStamps = storage.NameToSlot("timelock-stamps")

// Guard enforces the minimum elapsed time between successive actions of the
// same kind per (user, validator) pair. Intervals are deployment-level
// settings, not per user.
type Guard struct {
	stamps          *storage.Mapping[pairKey, *Stamps]
	stakeInterval   *storage.ConfigVariable
	unstakeInterval *storage.ConfigVariable
	claimInterval   *storage.ConfigVariable
}

// New creates the guard with deployment defaults.
func New(sctx *storage.Context) *Guard {
	return &Guard{
		stamps:          storage.NewMapping[pairKey, *Stamps](sctx, slotStamps),
		stakeInterval:   storage.NewConfigVariable(sctx, "min-stake-interval", arkos.DefaultMinStakeInterval),
		unstakeInterval: storage.NewConfigVariable(sctx, "min-unstake-interval", arkos.DefaultMinUnstakeInterval),
		claimInterval:   storage.NewConfigVariable(sctx, "min-claim-interval", arkos.DefaultMinClaimInterval),
	}
}

func (g *Guard) intervalFor(kind Kind) *storage.ConfigVariable {
	switch kind {
	case KindStake:
		return g.stakeInterval
	case KindUnstake:
		return g.unstakeInterval
	default:
		return g.claimInterval
	}
}

// Interval returns the configured cooldown for the given kind, in seconds.
func (g *Guard) Interval(kind Kind) (uint64, error) {
	return g.intervalFor(kind).Get()
}

// SetInterval overrides the cooldown for the given kind.
func (g *Guard) SetInterval(kind Kind, seconds uint64) {
	g.intervalFor(kind).Set(seconds)
}

// Check fails with a timelock revert if the cooldown for the given kind has
// not yet elapsed. It does NOT record a stamp: the caller stamps via Stamp
// only once the guarded mutation succeeds, so a failed operation never locks
// the user out.
func (g *Guard) Check(user arkos.Address, id validator.ID, kind Kind, now uint64) error {
	stamps, err := g.stamps.Get(newPairKey(user, id))
	if err != nil {
		return errors.Wrap(err, "failed to get timelock stamps")
	}
	if stamps == nil {
		return nil
	}

	last := stamps.last(kind)
	if last == 0 {
		return nil
	}

	interval, err := g.Interval(kind)
	if err != nil {
		return err
	}

	elapsed := uint64(0)
	if now > last {
		elapsed = now - last
	}
	if elapsed < interval {
		return reverts.NewTimelock(kind.String(), interval, elapsed)
	}
	return nil
}

// Stamp records the action time for the given kind. Call it atomically with
// the successful state mutation.
func (g *Guard) Stamp(user arkos.Address, id validator.ID, kind Kind, now uint64) error {
	key := newPairKey(user, id)
	stamps, err := g.stamps.Get(key)
	if err != nil {
		return errors.Wrap(err, "failed to get timelock stamps")
	}
	if stamps == nil {
		stamps = new(Stamps)
	}
	stamps.set(kind, now)
	return g.stamps.Set(key, stamps)
}

// Last returns the recorded stamps for a (user, validator) pair, zeroed if
// the pair never acted.
func (g *Guard) Last(user arkos.Address, id validator.ID) (*Stamps, error) {
	stamps, err := g.stamps.Get(newPairKey(user, id))
	if err != nil {
		return nil, err
	}
	if stamps == nil {
		stamps = new(Stamps)
	}
	return stamps, nil
}
