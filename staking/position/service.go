// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package position

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/arkos-network/stakehub/arkos"
	"github.com/arkos-network/stakehub/staking/validator"
	"github.com/arkos-network/stakehub/storage"
)

var (
	slotPositions  = storage.NameToSlot("positions")
	slotMembership = storage.NameToSlot("membership")
)

type addrKey arkos.Address

func (k addrKey) Bytes() []byte { return k[:] }

// Service owns per-(user, validator) stake records and the per-user
// validator membership list. Membership is an explicit set: a validator id
// appears exactly once while the user holds a live position against it, and
// the validator's UniqueStakers counter is the reverse count.
type Service struct {
	positions  *storage.Mapping[Key, *UserStake]
	membership *storage.Mapping[addrKey, []validator.ID]
}

// New creates the position service.
func New(sctx *storage.Context) *Service {
	return &Service{
		positions:  storage.NewMapping[Key, *UserStake](sctx, slotPositions),
		membership: storage.NewMapping[addrKey, []validator.ID](sctx, slotMembership),
	}
}

// Get returns the position, an empty record if none.
func (s *Service) Get(user arkos.Address, id validator.ID) (*UserStake, error) {
	p, err := s.positions.Get(NewKey(user, id))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get position")
	}
	if p == nil {
		p = new(UserStake)
	}
	normalize(p)
	return p, nil
}

// Save persists a mutated position. A zeroed position is compacted away and
// removed from the membership list.
func (s *Service) Save(user arkos.Address, id validator.ID, p *UserStake) error {
	if p.IsEmpty() {
		if err := s.positions.Delete(NewKey(user, id)); err != nil {
			return errors.Wrap(err, "failed to delete position")
		}
		return s.removeMembership(user, id)
	}
	if err := s.positions.Set(NewKey(user, id), p); err != nil {
		return errors.Wrap(err, "failed to set position")
	}
	return s.addMembership(user, id)
}

// Validators lists the validators the user holds positions against.
func (s *Service) Validators(user arkos.Address) ([]validator.ID, error) {
	ids, err := s.membership.Get(addrKey(user))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get membership")
	}
	return ids, nil
}

// ClearMembership drops the user's whole membership list.
// Used by the emergency exit after zeroing every position.
func (s *Service) ClearMembership(user arkos.Address) error {
	return s.membership.Delete(addrKey(user))
}

func (s *Service) addMembership(user arkos.Address, id validator.ID) error {
	ids, err := s.Validators(user)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	return s.membership.Set(addrKey(user), append(ids, id))
}

func (s *Service) removeMembership(user arkos.Address, id validator.ID) error {
	ids, err := s.Validators(user)
	if err != nil {
		return err
	}
	for i, existing := range ids {
		if existing == id {
			ids = append(ids[:i], ids[i+1:]...)
			if len(ids) == 0 {
				return s.membership.Delete(addrKey(user))
			}
			return s.membership.Set(addrKey(user), ids)
		}
	}
	return nil
}

func normalize(p *UserStake) {
	if p.Amount == nil {
		p.Amount = new(big.Int)
	}
	if p.Shares == nil {
		p.Shares = new(big.Int)
	}
	if p.UnbondingAmount == nil {
		p.UnbondingAmount = new(big.Int)
	}
}
