// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/arkos-network/stakehub/arkos"
)

// Uint256 is a wrapper for storage and retrieval of an unsigned 256-bit
// integer, similar to storing an uint256 in a smart contract.
type Uint256 struct {
	context *Context
	pos     arkos.Bytes32
}

// NewUint256 creates an Uint256 at the given position.
func NewUint256(context *Context, pos arkos.Bytes32) *Uint256 {
	return &Uint256{context: context, pos: pos}
}

// Get returns the stored value, zero if unset.
func (u *Uint256) Get() (*big.Int, error) {
	raw, err := u.context.state.GetRawStorage(u.context.slot(u.pos, nil))
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(raw), nil
}

// Set stores the value.
func (u *Uint256) Set(value *big.Int) {
	var raw []byte
	if value.Sign() > 0 {
		raw = value.Bytes()
	}
	u.context.state.SetRawStorage(u.context.slot(u.pos, nil), raw)
}

// Add increases the stored value.
func (u *Uint256) Add(value *big.Int) error {
	stored, err := u.Get()
	if err != nil {
		return err
	}
	stored.Add(stored, value)
	u.Set(stored)
	return nil
}

// Sub decreases the stored value.
// It fails if the result would go negative.
func (u *Uint256) Sub(value *big.Int) error {
	stored, err := u.Get()
	if err != nil {
		return err
	}
	if stored.Cmp(value) < 0 {
		return errors.New("uint256 underflow")
	}
	stored.Sub(stored, value)
	u.Set(stored)
	return nil
}
