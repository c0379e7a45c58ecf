// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package auth implements capability-set authorization. Each entrypoint
// declares the capability it requires; granting and revoking is a separate
// concern from business logic.
package auth

import (
	"github.com/pkg/errors"

	"github.com/arkos-network/stakehub/arkos"
	"github.com/arkos-network/stakehub/staking/reverts"
	"github.com/arkos-network/stakehub/storage"
)

// Capability is a bit in an account's capability set.
type Capability uint8

const (
	CapAdmin Capability = 1 << iota
	CapOperator
	CapManager
	CapEmergency
)

// String implements stringer.
func (c Capability) String() string {
	switch c {
	case CapAdmin:
		return "admin"
	case CapOperator:
		return "operator"
	case CapManager:
		return "manager"
	case CapEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

type addrKey arkos.Address

func (k addrKey) Bytes() []byte { return k[:] }

var slotGrants = storage.NameToSlot("capability-grants")

// Registry holds per-account capability sets.
type Registry struct {
	grants *storage.Mapping[addrKey, uint8]
}

// New creates the capability registry.
func New(sctx *storage.Context) *Registry {
	return &Registry{
		grants: storage.NewMapping[addrKey, uint8](sctx, slotGrants),
	}
}

// Grant adds capabilities to an account.
func (r *Registry) Grant(addr arkos.Address, caps Capability) error {
	current, err := r.grants.Get(addrKey(addr))
	if err != nil {
		return errors.Wrap(err, "failed to get grants")
	}
	return r.grants.Set(addrKey(addr), current|uint8(caps))
}

// Revoke removes capabilities from an account.
func (r *Registry) Revoke(addr arkos.Address, caps Capability) error {
	current, err := r.grants.Get(addrKey(addr))
	if err != nil {
		return errors.Wrap(err, "failed to get grants")
	}
	remaining := current &^ uint8(caps)
	if remaining == 0 {
		return r.grants.Delete(addrKey(addr))
	}
	return r.grants.Set(addrKey(addr), remaining)
}

// Has reports whether the account holds all the given capabilities.
func (r *Registry) Has(addr arkos.Address, caps Capability) (bool, error) {
	current, err := r.grants.Get(addrKey(addr))
	if err != nil {
		return false, errors.Wrap(err, "failed to get grants")
	}
	return current&uint8(caps) == uint8(caps), nil
}

// Require fails with an authorization revert unless the account holds the
// capability.
func (r *Registry) Require(addr arkos.Address, caps Capability) error {
	ok, err := r.Has(addr, caps)
	if err != nil {
		return err
	}
	if !ok {
		return reverts.NewAuthorization("caller lacks " + caps.String() + " capability")
	}
	return nil
}
