// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validator

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/arkos-network/stakehub/staking/reverts"
	"github.com/arkos-network/stakehub/storage"
)

const (
	maxCommissionBPS  = 10_000
	maxMetadataLength = 256
)

var (
	slotValidators = storage.NameToSlot("validators")
	slotIndex      = storage.NameToSlot("validators-index")
)

// Service owns validator registry entries. Aggregate counters on entries
// (TotalStaked, TotalShares, UniqueStakers) are mutated only through the
// position ledger paths, never by registry operations.
type Service struct {
	validators *storage.Mapping[ID, *Validator]
	index      *storage.Raw[[]ID]
}

// New creates the registry service.
func New(sctx *storage.Context) *Service {
	return &Service{
		validators: storage.NewMapping[ID, *Validator](sctx, slotValidators),
		index:      storage.NewRaw[[]ID](sctx, slotIndex),
	}
}

// Register adds a new validator with the given initial status.
func (s *Service) Register(id ID, status Status, now uint64) error {
	if err := id.Validate(); err != nil {
		return err
	}
	if status != StatusEnabled && status != StatusDisabled && status != StatusDeprecated {
		return reverts.NewValidation("invalid initial status")
	}

	existing, err := s.Get(id)
	if err != nil {
		return err
	}
	if !existing.IsEmpty() {
		return reverts.NewState("validator already registered")
	}

	entry := &Validator{
		Status:       status,
		TotalStaked:  new(big.Int),
		TotalShares:  new(big.Int),
		RewardPool:   new(big.Int),
		RegisteredAt: now,
	}
	if err := s.validators.Set(id, entry); err != nil {
		return errors.Wrap(err, "failed to set validator")
	}

	ids, err := s.index.Get()
	if err != nil {
		return err
	}
	return s.index.Put(append(ids, id))
}

// Get returns the registry entry, an empty entry if unregistered.
func (s *Service) Get(id ID) (*Validator, error) {
	v, err := s.validators.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get validator")
	}
	if v == nil {
		v = new(Validator)
	}
	normalize(v)
	return v, nil
}

// GetExisting returns the registry entry, rejecting unregistered ids.
func (s *Service) GetExisting(id ID) (*Validator, error) {
	v, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if v.IsEmpty() {
		return nil, reverts.NewValidation("unknown validator " + string(id))
	}
	return v, nil
}

// Save persists a mutated registry entry.
func (s *Service) Save(id ID, entry *Validator) error {
	if err := s.validators.Set(id, entry); err != nil {
		return errors.Wrap(err, "failed to set validator")
	}
	return nil
}

// SetStatus transitions a validator's status.
// Disabling requires a stake-free validator; deprecation is permitted with
// live stake since stakers are expected to migrate out.
func (s *Service) SetStatus(id ID, status Status) error {
	entry, err := s.GetExisting(id)
	if err != nil {
		return err
	}
	if status == StatusDisabled && entry.TotalStaked.Sign() > 0 {
		return reverts.NewState("cannot disable validator with active stake")
	}
	if status != StatusEnabled && status != StatusDisabled && status != StatusDeprecated {
		return reverts.NewValidation("invalid status")
	}
	entry.Status = status
	return s.Save(id, entry)
}

// SetCommission updates the commission rate. No accounting side effects.
func (s *Service) SetCommission(id ID, bps uint16) error {
	entry, err := s.GetExisting(id)
	if err != nil {
		return err
	}
	if bps > maxCommissionBPS {
		return reverts.NewValidation("commission exceeds 100%")
	}
	entry.CommissionBPS = bps
	return s.Save(id, entry)
}

// SetMetadata replaces the free-form description. No accounting side effects.
func (s *Service) SetMetadata(id ID, metadata string) error {
	entry, err := s.GetExisting(id)
	if err != nil {
		return err
	}
	if len(metadata) > maxMetadataLength {
		return reverts.NewValidation("metadata too long")
	}
	entry.Metadata = metadata
	return s.Save(id, entry)
}

// SetSuccessor declares the designated migration target of a deprecated
// validator.
func (s *Service) SetSuccessor(from, to ID) error {
	entry, err := s.GetExisting(from)
	if err != nil {
		return err
	}
	if entry.Status != StatusDeprecated {
		return reverts.NewState("migration source is not deprecated")
	}
	if from == to {
		return reverts.NewValidation("migration target equals source")
	}
	if _, err := s.GetExisting(to); err != nil {
		return err
	}
	entry.Successor = to
	return s.Save(from, entry)
}

// All lists registered validator ids in registration order.
func (s *Service) All() ([]ID, error) {
	return s.index.Get()
}

// normalize allocates zero big ints on a freshly decoded empty entry, so
// callers can do arithmetic without nil checks.
func normalize(v *Validator) {
	if v.TotalStaked == nil {
		v.TotalStaked = new(big.Int)
	}
	if v.TotalShares == nil {
		v.TotalShares = new(big.Int)
	}
	if v.RewardPool == nil {
		v.RewardPool = new(big.Int)
	}
}
