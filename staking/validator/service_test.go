// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validator_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkos-network/stakehub/lvldb"
	"github.com/arkos-network/stakehub/staking/reverts"
	"github.com/arkos-network/stakehub/staking/validator"
	"github.com/arkos-network/stakehub/state"
	"github.com/arkos-network/stakehub/storage"
)

const (
	valA = validator.ID("arkosvaloper1xyz")
	valB = validator.ID("arkosvaloper1abc")
)

func newService(t *testing.T) *validator.Service {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return validator.New(storage.NewContext("test", state.New(db)))
}

func TestIDValidate(t *testing.T) {
	tests := []struct {
		id validator.ID
		ok bool
	}{
		{valA, true},
		{"", false},
		{"arkosvaloper", false},
		{"cosmosvaloper1xyz", false},
		{validator.ID("arkosvaloper" + string(make([]byte, 64))), false},
	}
	for _, tt := range tests {
		err := tt.id.Validate()
		if tt.ok {
			assert.NoError(t, err, tt.id)
		} else {
			assert.True(t, reverts.IsCode(err, reverts.CodeValidation), tt.id)
		}
	}
}

func TestRegister(t *testing.T) {
	svc := newService(t)

	require.NoError(t, svc.Register(valA, validator.StatusEnabled, 1000))

	val, err := svc.GetExisting(valA)
	require.NoError(t, err)
	assert.Equal(t, validator.StatusEnabled, val.Status)
	assert.Equal(t, uint64(1000), val.RegisteredAt)
	assert.Zero(t, val.TotalStaked.Sign())
	assert.Zero(t, val.TotalShares.Sign())

	// duplicate registration is a state error
	err = svc.Register(valA, validator.StatusEnabled, 1001)
	assert.True(t, reverts.IsCode(err, reverts.CodeState))

	ids, err := svc.All()
	require.NoError(t, err)
	assert.Equal(t, []validator.ID{valA}, ids)
}

func TestGetExistingUnknown(t *testing.T) {
	svc := newService(t)
	_, err := svc.GetExisting(valA)
	assert.True(t, reverts.IsCode(err, reverts.CodeValidation))
}

func TestSetStatus(t *testing.T) {
	svc := newService(t)
	require.NoError(t, svc.Register(valA, validator.StatusEnabled, 0))

	val, err := svc.GetExisting(valA)
	require.NoError(t, err)
	val.TotalStaked = big.NewInt(100)
	val.TotalShares = big.NewInt(100)
	require.NoError(t, svc.Save(valA, val))

	// disabling requires a stake-free validator
	err = svc.SetStatus(valA, validator.StatusDisabled)
	assert.True(t, reverts.IsCode(err, reverts.CodeState))

	// deprecating with live stake is allowed, stakers migrate out
	require.NoError(t, svc.SetStatus(valA, validator.StatusDeprecated))

	val, err = svc.GetExisting(valA)
	require.NoError(t, err)
	assert.Equal(t, validator.StatusDeprecated, val.Status)
}

func TestSetCommission(t *testing.T) {
	svc := newService(t)
	require.NoError(t, svc.Register(valA, validator.StatusEnabled, 0))

	require.NoError(t, svc.SetCommission(valA, 250))
	val, err := svc.GetExisting(valA)
	require.NoError(t, err)
	assert.Equal(t, uint16(250), val.CommissionBPS)

	err = svc.SetCommission(valA, 10001)
	assert.True(t, reverts.IsCode(err, reverts.CodeValidation))
}

func TestSetMetadata(t *testing.T) {
	svc := newService(t)
	require.NoError(t, svc.Register(valA, validator.StatusEnabled, 0))

	require.NoError(t, svc.SetMetadata(valA, "primary validator"))
	val, err := svc.GetExisting(valA)
	require.NoError(t, err)
	assert.Equal(t, "primary validator", val.Metadata)

	err = svc.SetMetadata(valA, string(make([]byte, 257)))
	assert.True(t, reverts.IsCode(err, reverts.CodeValidation))

	err = svc.SetMetadata(valB, "unregistered")
	assert.True(t, reverts.IsCode(err, reverts.CodeValidation))
}

func TestSetSuccessor(t *testing.T) {
	svc := newService(t)
	require.NoError(t, svc.Register(valA, validator.StatusEnabled, 0))
	require.NoError(t, svc.Register(valB, validator.StatusEnabled, 0))

	// source must be deprecated first
	err := svc.SetSuccessor(valA, valB)
	assert.True(t, reverts.IsCode(err, reverts.CodeState))

	require.NoError(t, svc.SetStatus(valA, validator.StatusDeprecated))
	require.NoError(t, svc.SetSuccessor(valA, valB))

	val, err := svc.GetExisting(valA)
	require.NoError(t, err)
	assert.Equal(t, valB, val.Successor)

	err = svc.SetSuccessor(valA, valA)
	assert.Error(t, err)
}
