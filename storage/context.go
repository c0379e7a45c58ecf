// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"github.com/arkos-network/stakehub/arkos"
	"github.com/arkos-network/stakehub/state"
)

// Context scopes a component's storage slots within the shared state.
// Slot positions are derived from the namespace, so components with
// colliding slot names stay isolated.
type Context struct {
	namespace arkos.Bytes32
	state     *state.State
}

// NewContext creates a storage context for the given namespace.
func NewContext(namespace string, state *state.State) *Context {
	return &Context{
		namespace: arkos.BytesToBytes32([]byte(namespace)),
		state:     state,
	}
}

// State exposes the underlying state.
func (c *Context) State() *state.State {
	return c.state
}

func (c *Context) slot(pos arkos.Bytes32, key []byte) arkos.Bytes32 {
	if len(key) == 0 {
		return arkos.Blake2b(c.namespace.Bytes(), pos.Bytes())
	}
	return arkos.Blake2b(c.namespace.Bytes(), pos.Bytes(), key)
}

// NameToSlot derives a slot position from a human readable name.
func NameToSlot(name string) arkos.Bytes32 {
	return arkos.BytesToBytes32([]byte(name))
}
