// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package request_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkos-network/stakehub/arkos"
	"github.com/arkos-network/stakehub/lvldb"
	"github.com/arkos-network/stakehub/staking/request"
	"github.com/arkos-network/stakehub/staking/reverts"
	"github.com/arkos-network/stakehub/staking/validator"
	"github.com/arkos-network/stakehub/state"
	"github.com/arkos-network/stakehub/storage"
)

const val = validator.ID("arkosvaloper1xyz")

var user = arkos.BytesToAddress([]byte("user1"))

func newService(t *testing.T) *request.Service {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return request.New(storage.NewContext("test", state.New(db)))
}

func TestIDRoundTrip(t *testing.T) {
	id := request.NewID(request.KindUnstake, 1700000000, user, big.NewInt(100), val, 7)

	assert.Equal(t, request.KindUnstake, id.Kind)
	assert.Equal(t, uint32(1700000000), id.Timestamp)
	assert.Equal(t, uint32(7), id.Sequence)
	assert.NotZero(t, id.Nonce)

	parsed, err := request.ParseID(id.Bytes32())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestIDNonceBinding(t *testing.T) {
	a := request.NewID(request.KindUnstake, 1, user, big.NewInt(100), val, 0)
	b := request.NewID(request.KindUnstake, 1, user, big.NewInt(101), val, 0)
	assert.NotEqual(t, a.Nonce, b.Nonce)
}

func TestParseIDRejectsMalformed(t *testing.T) {
	// unknown kind tag
	var b arkos.Bytes32
	b[1] = 0xff
	_, err := request.ParseID(b)
	assert.True(t, reverts.IsCode(err, reverts.CodeValidation))

	// dirty padding
	id := request.NewID(request.KindStake, 1, user, big.NewInt(1), val, 0)
	raw := id.Bytes32()
	raw[20] = 1
	_, err = request.ParseID(raw)
	assert.True(t, reverts.IsCode(err, reverts.CodeValidation))
}

func TestCreateAndGet(t *testing.T) {
	svc := newService(t)

	id, err := svc.Create(user, big.NewInt(100), val, request.KindUnstake, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), id.Sequence)

	req, err := svc.GetExisting(id)
	require.NoError(t, err)
	assert.Equal(t, user, req.User)
	assert.Equal(t, big.NewInt(100), req.Amount)
	assert.Equal(t, val, req.Validator)
	assert.Equal(t, request.StatusPending, request.Status(req.Status))
	assert.Equal(t, uint64(1000), req.CreatedAt)
}

func TestSequenceDisambiguates(t *testing.T) {
	svc := newService(t)

	// identical contents within the same second still yield distinct ids
	a, err := svc.Create(user, big.NewInt(100), val, request.KindUnstake, 1000)
	require.NoError(t, err)
	b, err := svc.Create(user, big.NewInt(100), val, request.KindUnstake, 1000)
	require.NoError(t, err)

	assert.Equal(t, a.Nonce, b.Nonce)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a.Sequence+1, b.Sequence)
}

func TestFulfill(t *testing.T) {
	svc := newService(t)

	id, err := svc.Create(user, big.NewInt(100), val, request.KindUnstake, 1000)
	require.NoError(t, err)

	req, err := svc.Fulfill(id, request.StatusFulfilled, "")
	require.NoError(t, err)
	assert.Equal(t, request.StatusFulfilled, request.Status(req.Status))

	// double fulfillment must fail with a state error
	_, err = svc.Fulfill(id, request.StatusFulfilled, "")
	assert.True(t, reverts.IsCode(err, reverts.CodeState))

	_, err = svc.Fulfill(id, request.StatusFailed, "late")
	assert.True(t, reverts.IsCode(err, reverts.CodeState))
}

func TestFulfillUnknown(t *testing.T) {
	svc := newService(t)

	id := request.NewID(request.KindUnstake, 1, user, big.NewInt(1), val, 99)
	_, err := svc.Fulfill(id, request.StatusFulfilled, "")
	assert.Error(t, err)
}

func TestFulfillRejectsNonTerminal(t *testing.T) {
	svc := newService(t)

	id, err := svc.Create(user, big.NewInt(100), val, request.KindUnstake, 1000)
	require.NoError(t, err)

	_, err = svc.Fulfill(id, request.StatusPending, "")
	assert.Error(t, err)
}

func TestFailWithReason(t *testing.T) {
	svc := newService(t)

	id, err := svc.Create(user, big.NewInt(100), val, request.KindUnstake, 1000)
	require.NoError(t, err)

	req, err := svc.Fulfill(id, request.StatusFailed, "validator slashed")
	require.NoError(t, err)
	assert.Equal(t, request.StatusFailed, request.Status(req.Status))
	assert.Equal(t, "validator slashed", req.StatusReason)
}

func TestCompact(t *testing.T) {
	svc := newService(t)

	id, err := svc.Create(user, big.NewInt(100), val, request.KindUnstake, 1000)
	require.NoError(t, err)

	// pending requests cannot be compacted away
	assert.Error(t, svc.Compact(id))

	_, err = svc.Fulfill(id, request.StatusFulfilled, "")
	require.NoError(t, err)
	require.NoError(t, svc.Compact(id))

	req, err := svc.Get(id)
	require.NoError(t, err)
	assert.True(t, req.IsEmpty())
}
