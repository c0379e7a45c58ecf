// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package position_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkos-network/stakehub/arkos"
	"github.com/arkos-network/stakehub/lvldb"
	"github.com/arkos-network/stakehub/staking/position"
	"github.com/arkos-network/stakehub/staking/validator"
	"github.com/arkos-network/stakehub/state"
	"github.com/arkos-network/stakehub/storage"
)

const (
	valA = validator.ID("arkosvaloper1xyz")
	valB = validator.ID("arkosvaloper1abc")
)

var user = arkos.BytesToAddress([]byte("user1"))

func newService(t *testing.T) *position.Service {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return position.New(storage.NewContext("test", state.New(db)))
}

func TestEmptyPosition(t *testing.T) {
	svc := newService(t)

	pos, err := svc.Get(user, valA)
	require.NoError(t, err)
	assert.True(t, pos.IsEmpty())
	// fields come back allocated, ready for arithmetic
	assert.NotNil(t, pos.Amount)
	assert.NotNil(t, pos.Shares)
}

func TestSaveAndMembership(t *testing.T) {
	svc := newService(t)

	require.NoError(t, svc.Save(user, valA, &position.UserStake{
		Amount:   big.NewInt(100),
		Shares:   big.NewInt(100),
		StakedAt: 1000,
	}))
	require.NoError(t, svc.Save(user, valB, &position.UserStake{
		Amount: big.NewInt(50),
		Shares: big.NewInt(50),
	}))

	pos, err := svc.Get(user, valA)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), pos.Amount)
	assert.Equal(t, uint64(1000), pos.StakedAt)

	ids, err := svc.Validators(user)
	require.NoError(t, err)
	assert.ElementsMatch(t, []validator.ID{valA, valB}, ids)

	// saving the same pair again does not duplicate membership
	require.NoError(t, svc.Save(user, valA, pos))
	ids, err = svc.Validators(user)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestZeroedPositionIsRemoved(t *testing.T) {
	svc := newService(t)

	require.NoError(t, svc.Save(user, valA, &position.UserStake{
		Amount: big.NewInt(100),
		Shares: big.NewInt(100),
	}))
	require.NoError(t, svc.Save(user, valA, &position.UserStake{}))

	pos, err := svc.Get(user, valA)
	require.NoError(t, err)
	assert.True(t, pos.IsEmpty())

	ids, err := svc.Validators(user)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestClearMembership(t *testing.T) {
	svc := newService(t)

	require.NoError(t, svc.Save(user, valA, &position.UserStake{
		Amount: big.NewInt(1),
		Shares: big.NewInt(1),
	}))
	require.NoError(t, svc.ClearMembership(user))

	ids, err := svc.Validators(user)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestUsersAreIsolated(t *testing.T) {
	svc := newService(t)
	other := arkos.BytesToAddress([]byte("user2"))

	require.NoError(t, svc.Save(user, valA, &position.UserStake{
		Amount: big.NewInt(100),
		Shares: big.NewInt(100),
	}))

	pos, err := svc.Get(other, valA)
	require.NoError(t, err)
	assert.True(t, pos.IsEmpty())

	ids, err := svc.Validators(other)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
