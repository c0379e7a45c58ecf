// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakehub_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkos-network/stakehub/api/stakehub"
	"github.com/arkos-network/stakehub/arkos"
	"github.com/arkos-network/stakehub/auth"
	"github.com/arkos-network/stakehub/lvldb"
	"github.com/arkos-network/stakehub/staking"
	"github.com/arkos-network/stakehub/staking/validator"
	"github.com/arkos-network/stakehub/state"
)

const valA = "arkosvaloper1xyz"

var (
	admin    = arkos.BytesToAddress([]byte("admin"))
	operator = arkos.BytesToAddress([]byte("operator"))
	alice    = arkos.BytesToAddress([]byte("alice"))
)

type testServer struct {
	*httptest.Server
	t *testing.T
}

func newServer(t *testing.T) *testServer {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	now := uint64(1_700_000_000)
	ledger := staking.New(state.New(db),
		staking.WithClock(func() uint64 { return now }),
	)
	reg := ledger.Auth()
	require.NoError(t, reg.Grant(admin, auth.CapAdmin|auth.CapManager|auth.CapEmergency))
	require.NoError(t, reg.Grant(operator, auth.CapOperator))
	require.NoError(t, ledger.SetMinStake(admin, 1))
	require.NoError(t, ledger.RegisterValidator(admin, valA, validator.StatusEnabled))
	require.NoError(t, ledger.Credit(alice, big.NewInt(1_000_000)))

	router := mux.NewRouter()
	stakehub.New(ledger).Mount(router, "/staking")

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{srv, t}
}

func (s *testServer) get(path string) (int, []byte) {
	res, err := http.Get(s.URL + path)
	require.NoError(s.t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(s.t, err)
	return res.StatusCode, body
}

func (s *testServer) post(path string, payload any) (int, []byte) {
	data, err := json.Marshal(payload)
	require.NoError(s.t, err)
	res, err := http.Post(s.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(s.t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(s.t, err)
	return res.StatusCode, body
}

func (s *testServer) put(path string, payload any) (int, []byte) {
	data, err := json.Marshal(payload)
	require.NoError(s.t, err)
	req, err := http.NewRequest(http.MethodPut, s.URL+path, bytes.NewReader(data))
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(s.t, err)
	return res.StatusCode, body
}

func TestGetStatus(t *testing.T) {
	srv := newServer(t)

	code, body := srv.get("/staking/status")
	require.Equal(t, http.StatusOK, code)

	var status map[string]any
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, false, status["paused"])
	assert.EqualValues(t, 1, status["minStake"])
}

func TestValidatorEndpoints(t *testing.T) {
	srv := newServer(t)

	code, body := srv.get("/staking/validators/" + valA)
	require.Equal(t, http.StatusOK, code)

	var val map[string]any
	require.NoError(t, json.Unmarshal(body, &val))
	assert.Equal(t, valA, val["id"])
	assert.Equal(t, "enabled", val["status"])

	code, _ = srv.get("/staking/validators/arkosvaloper1unknown")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = srv.get("/staking/validators/bad-prefix")
	assert.Equal(t, http.StatusBadRequest, code)

	// registration needs the admin capability
	code, _ = srv.post("/staking/validators", map[string]any{
		"caller": alice.String(),
		"id":     "arkosvaloper1new",
		"status": "enabled",
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = srv.post("/staking/validators", map[string]any{
		"caller": admin.String(),
		"id":     "arkosvaloper1new",
		"status": "enabled",
	})
	assert.Equal(t, http.StatusOK, code)

	// commission and metadata need the manager capability
	code, _ = srv.put("/staking/validators/"+valA+"/commission", map[string]any{
		"caller": alice.String(),
		"bps":    250,
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = srv.put("/staking/validators/"+valA+"/commission", map[string]any{
		"caller": admin.String(),
		"bps":    250,
	})
	assert.Equal(t, http.StatusOK, code)

	code, _ = srv.put("/staking/validators/"+valA+"/metadata", map[string]any{
		"caller":   admin.String(),
		"metadata": "primary validator",
	})
	assert.Equal(t, http.StatusOK, code)

	code, body = srv.get("/staking/validators/" + valA)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &val))
	assert.EqualValues(t, 250, val["commissionBPS"])
	assert.Equal(t, "primary validator", val["metadata"])
}

func TestStakeFlow(t *testing.T) {
	srv := newServer(t)

	code, body := srv.post("/staking/stakes", map[string]any{
		"caller":    alice.String(),
		"validator": valA,
		"amount":    "100",
	})
	require.Equal(t, http.StatusOK, code, string(body))

	var out map[string]string
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "0x64", out["shares"])

	code, body = srv.get(fmt.Sprintf("/staking/accounts/%s/stakes/%s", alice, valA))
	require.Equal(t, http.StatusOK, code)

	var pos map[string]any
	require.NoError(t, json.Unmarshal(body, &pos))
	assert.Equal(t, "0x64", pos["amount"])
	assert.Equal(t, false, pos["inUnstakeProcess"])
}

func TestUnstakeFlow(t *testing.T) {
	srv := newServer(t)

	code, _ := srv.post("/staking/stakes", map[string]any{
		"caller":    alice.String(),
		"validator": valA,
		"amount":    "100",
	})
	require.Equal(t, http.StatusOK, code)

	code, body := srv.post("/staking/unstakes", map[string]any{
		"caller":    alice.String(),
		"validator": valA,
	})
	require.Equal(t, http.StatusOK, code, string(body))

	var out map[string]string
	require.NoError(t, json.Unmarshal(body, &out))
	reqID := out["request"]
	require.NotEmpty(t, reqID)

	code, body = srv.get("/staking/requests/" + reqID)
	require.Equal(t, http.StatusOK, code)
	var record map[string]any
	require.NoError(t, json.Unmarshal(body, &record))
	assert.Equal(t, "pending", record["status"])
	assert.Equal(t, "unstake", record["kind"])

	// a second initiation conflicts with the pending one
	code, _ = srv.post("/staking/unstakes", map[string]any{
		"caller":    alice.String(),
		"validator": valA,
	})
	assert.Equal(t, http.StatusConflict, code)

	// completion is operator-only
	code, _ = srv.post("/staking/unstakes/complete", map[string]any{
		"caller":    alice.String(),
		"user":      alice.String(),
		"validator": valA,
		"amount":    "100",
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, body = srv.post("/staking/unstakes/complete", map[string]any{
		"caller":    operator.String(),
		"user":      alice.String(),
		"validator": valA,
		"amount":    "100",
	})
	require.Equal(t, http.StatusOK, code, string(body))

	code, body = srv.get("/staking/requests/" + reqID)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &record))
	assert.Equal(t, "fulfilled", record["status"])
}

func TestTimelockStatus(t *testing.T) {
	srv := newServer(t)

	code, _ := srv.post("/staking/stakes", map[string]any{
		"caller":    alice.String(),
		"validator": valA,
		"amount":    "100",
	})
	require.Equal(t, http.StatusOK, code)

	// second stake within the cooldown window
	code, _ = srv.post("/staking/stakes", map[string]any{
		"caller":    alice.String(),
		"validator": valA,
		"amount":    "100",
	})
	assert.Equal(t, http.StatusTooEarly, code)
}

func TestPauseEndpoint(t *testing.T) {
	srv := newServer(t)

	code, _ := srv.post("/staking/pause", map[string]any{"caller": admin.String()})
	require.Equal(t, http.StatusOK, code)

	code, _ = srv.post("/staking/stakes", map[string]any{
		"caller":    alice.String(),
		"validator": valA,
		"amount":    "100",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = srv.post("/staking/unpause", map[string]any{"caller": admin.String()})
	require.Equal(t, http.StatusOK, code)
}
