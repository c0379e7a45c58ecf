// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"math/big"

	"github.com/arkos-network/stakehub/arkos"
)

// ConfigVariable is a deployment-level numeric setting backed by a storage
// slot. Reads fall back to the default while the slot is unset, so a fresh
// deployment works without explicit initialization.
type ConfigVariable struct {
	context      *Context
	slot         arkos.Bytes32
	name         string
	defaultValue uint64
}

// NewConfigVariable creates a config variable with the given default.
func NewConfigVariable(context *Context, name string, defaultValue uint64) *ConfigVariable {
	return &ConfigVariable{
		context:      context,
		slot:         NameToSlot(name),
		name:         name,
		defaultValue: defaultValue,
	}
}

// Name returns the variable name.
func (c *ConfigVariable) Name() string {
	return c.name
}

// Get returns the configured value, or the default if unset.
func (c *ConfigVariable) Get() (uint64, error) {
	raw, err := c.context.state.GetRawStorage(c.context.slot(c.slot, nil))
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return c.defaultValue, nil
	}
	return new(big.Int).SetBytes(raw).Uint64(), nil
}

// Set overrides the configured value.
// Zero is a valid setting and still overrides the default.
func (c *ConfigVariable) Set(value uint64) {
	raw := new(big.Int).SetUint64(value).Bytes()
	if len(raw) == 0 {
		raw = []byte{0}
	}
	c.context.state.SetRawStorage(c.context.slot(c.slot, nil), raw)
}
