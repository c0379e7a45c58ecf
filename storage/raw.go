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

// Raw is a single rlp-encoded value at a fixed position.
type Raw[T any] struct {
	context *Context
	pos     arkos.Bytes32
}

// NewRaw creates a Raw value at the given position.
func NewRaw[T any](context *Context, pos arkos.Bytes32) *Raw[T] {
	return &Raw[T]{context: context, pos: pos}
}

// Get retrieves the stored value.
// A missing entry yields the zero value.
func (r *Raw[T]) Get() (value T, err error) {
	err = r.context.state.DecodeStorage(r.context.slot(r.pos, nil), func(raw []byte) error {
		if reflect.ValueOf(&value).Elem().Kind() == reflect.Ptr {
			value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(T)
		}
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

// Put stores the value.
func (r *Raw[T]) Put(value T) error {
	return r.context.state.EncodeStorage(r.context.slot(r.pos, nil), func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}
