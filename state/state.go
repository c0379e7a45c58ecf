// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"math/big"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/arkos-network/stakehub/arkos"
	"github.com/arkos-network/stakehub/kv"
	"github.com/arkos-network/stakehub/stackedmap"
)

var (
	storageBucket = kv.Bucket("st")
	balanceBucket = kv.Bucket("bal")
)

const readCacheSize = 2048

type keyTag byte

const (
	tagStorage keyTag = 's'
	tagBalance keyTag = 'b'
)

type stateKey struct {
	tag keyTag
	key arkos.Bytes32
}

// State manages the ledger's persisted state: raw storage slots and token
// balance accounts. Mutations are journaled in a stacked map, so any range
// of changes can be reverted via checkpoints before being committed to the
// underlying kv store in one atomic batch.
type State struct {
	store kv.Store
	sm    *stackedmap.StackedMap[stateKey, []byte]
	cache *lru.Cache // raw reads from the store
}

// New creates a state over the given kv store.
func New(store kv.Store) *State {
	cache, _ := lru.New(readCacheSize)
	st := &State{
		store: store,
		cache: cache,
	}
	st.sm = stackedmap.New(st.storeGetter)
	// base layer, never popped
	st.sm.Push()
	return st
}

func (s *State) storeGetter(k stateKey) ([]byte, bool, error) {
	if cached, ok := s.cache.Get(k); ok {
		return cached.([]byte), true, nil
	}
	raw, err := s.bucketFor(k.tag).NewGetter(s.store).Get(k.key.Bytes())
	if err != nil {
		if s.store.IsNotFound(err) {
			return nil, true, nil
		}
		return nil, false, errors.Wrap(err, "state read")
	}
	s.cache.Add(k, raw)
	return raw, true, nil
}

func (s *State) bucketFor(tag keyTag) kv.Bucket {
	if tag == tagBalance {
		return balanceBucket
	}
	return storageBucket
}

func (s *State) get(k stateKey) ([]byte, error) {
	v, _, err := s.sm.Get(k)
	return v, err
}

// GetRawStorage returns the raw value stored at the given slot.
// A missing slot yields an empty value.
func (s *State) GetRawStorage(key arkos.Bytes32) ([]byte, error) {
	return s.get(stateKey{tagStorage, key})
}

// SetRawStorage stores the raw value at the given slot.
// An empty value deletes the slot on commit.
func (s *State) SetRawStorage(key arkos.Bytes32, raw []byte) {
	s.sm.Put(stateKey{tagStorage, key}, raw)
}

// EncodeStorage stores the value encoded by the provided callback.
func (s *State) EncodeStorage(key arkos.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return errors.Wrap(err, "encode storage")
	}
	s.SetRawStorage(key, raw)
	return nil
}

// DecodeStorage passes the raw slot value to the provided callback.
func (s *State) DecodeStorage(key arkos.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(key)
	if err != nil {
		return err
	}
	return dec(raw)
}

// GetBalance returns the token balance of the given account.
func (s *State) GetBalance(addr arkos.Address) (*big.Int, error) {
	raw, err := s.get(stateKey{tagBalance, arkos.BytesToBytes32(addr.Bytes())})
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(raw), nil
}

// SetBalance sets the token balance of the given account.
func (s *State) SetBalance(addr arkos.Address, balance *big.Int) {
	var raw []byte
	if balance.Sign() > 0 {
		raw = balance.Bytes()
	}
	s.sm.Put(stateKey{tagBalance, arkos.BytesToBytes32(addr.Bytes())}, raw)
}

// NewCheckpoint makes a checkpoint of the current state.
// It returns the checkpoint to be passed to RevertTo.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo reverts the state to the given checkpoint.
// All changes made after the checkpoint are dropped.
func (s *State) RevertTo(checkpoint int) {
	s.sm.PopTo(checkpoint)
}

// Commit writes all journaled changes to the kv store in one batch and
// resets the journal.
func (s *State) Commit() error {
	batch := s.store.NewBatch()

	var jerr error
	type entry struct {
		k stateKey
		v []byte
	}
	var written []entry
	s.sm.Journal(func(k stateKey, v []byte) bool {
		putter := s.bucketFor(k.tag).NewPutter(batch)
		if len(v) == 0 {
			jerr = putter.Delete(k.key.Bytes())
		} else {
			jerr = putter.Put(k.key.Bytes(), v)
		}
		written = append(written, entry{k, v})
		return jerr == nil
	})
	if jerr != nil {
		return errors.Wrap(jerr, "state commit")
	}

	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "state commit")
	}

	for _, e := range written {
		s.cache.Add(e.k, e.v)
	}

	s.sm.PopTo(0)
	s.sm.Push()
	return nil
}
