// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/arkos-network/stakehub/arkos"
)

// Key is a mapping key, rendered to bytes for slot derivation.
type Key interface {
	Bytes() []byte
}

// Mapping is a keyed storage collection, similar to a mapping in Solidity.
// Values are rlp encoded at slots derived from the base position and key.
type Mapping[K Key, V any] struct {
	context *Context
	basePos arkos.Bytes32
}

// NewMapping creates a mapping at the given base position.
func NewMapping[K Key, V any](context *Context, pos arkos.Bytes32) *Mapping[K, V] {
	return &Mapping[K, V]{context: context, basePos: pos}
}

// Get retrieves the value for the given key.
// A missing entry yields the zero value, nil for pointer value types, so
// callers can tell absence from a stored zero record.
func (m *Mapping[K, V]) Get(key K) (value V, err error) {
	position := m.context.slot(m.basePos, key.Bytes())
	err = m.context.state.DecodeStorage(position, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		if reflect.ValueOf(&value).Elem().Kind() == reflect.Ptr {
			value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
		}
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

// Set stores the value for the given key.
func (m *Mapping[K, V]) Set(key K, value V) error {
	position := m.context.slot(m.basePos, key.Bytes())
	return m.context.state.EncodeStorage(position, func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}

// Delete clears the entry for the given key.
func (m *Mapping[K, V]) Delete(key K) error {
	position := m.context.slot(m.basePos, key.Bytes())
	m.context.state.SetRawStorage(position, nil)
	return nil
}

// Has returns whether a non-empty entry exists for the given key.
func (m *Mapping[K, V]) Has(key K) (bool, error) {
	position := m.context.slot(m.basePos, key.Bytes())
	var found bool
	err := m.context.state.DecodeStorage(position, func(raw []byte) error {
		found = len(raw) > 0
		return nil
	})
	return found, err
}
