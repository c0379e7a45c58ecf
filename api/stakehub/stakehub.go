// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package stakehub exposes the staking ledger over HTTP. Protocol reverts map
// to client error statuses by category; everything else is a server error.
package stakehub

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/arkos-network/stakehub/api/utils"
	"github.com/arkos-network/stakehub/arkos"
	"github.com/arkos-network/stakehub/auth"
	"github.com/arkos-network/stakehub/staking"
	"github.com/arkos-network/stakehub/staking/request"
	"github.com/arkos-network/stakehub/staking/reverts"
	"github.com/arkos-network/stakehub/staking/timelock"
	"github.com/arkos-network/stakehub/staking/validator"
)

type StakeHub struct {
	ledger *staking.Ledger
}

func New(ledger *staking.Ledger) *StakeHub {
	return &StakeHub{ledger}
}

// convertErr maps revert categories onto http statuses.
func convertErr(err error) error {
	code, ok := reverts.CodeOf(err)
	if !ok {
		return err
	}
	switch code {
	case reverts.CodeValidation:
		return utils.BadRequest(err)
	case reverts.CodeTimelock:
		return utils.HTTPError(err, http.StatusTooEarly)
	case reverts.CodeState:
		return utils.Conflict(err)
	case reverts.CodeAuthorization:
		return utils.Forbidden(err)
	default:
		return utils.HTTPError(err, http.StatusServiceUnavailable)
	}
}

func parseValidatorID(s string) (validator.ID, error) {
	id := validator.ID(s)
	if err := id.Validate(); err != nil {
		return "", utils.BadRequest(errors.WithMessage(err, "validator"))
	}
	return id, nil
}

func parseRequestID(s string) (request.ID, error) {
	b, err := arkos.ParseBytes32(s)
	if err != nil {
		return request.ID{}, utils.BadRequest(errors.WithMessage(err, "id"))
	}
	id, err := request.ParseID(b)
	if err != nil {
		return request.ID{}, utils.BadRequest(errors.WithMessage(err, "id"))
	}
	return id, nil
}

func (h *StakeHub) handleGetStatus(w http.ResponseWriter, _ *http.Request) error {
	paused, err := h.ledger.Paused()
	if err != nil {
		return err
	}
	totals, err := h.ledger.GlobalTotals()
	if err != nil {
		return err
	}
	minStake, err := h.ledger.MinStake()
	if err != nil {
		return err
	}
	status := Status{
		Paused:      paused,
		TotalStaked: (*math.HexOrDecimal256)(totals.Staked),
		TotalShares: (*math.HexOrDecimal256)(totals.Shares),
		MinStake:    minStake,
	}
	if status.MinStakeInterval, err = h.ledger.Interval(timelock.KindStake); err != nil {
		return err
	}
	if status.MinUnstakeInterval, err = h.ledger.Interval(timelock.KindUnstake); err != nil {
		return err
	}
	if status.MinClaimInterval, err = h.ledger.Interval(timelock.KindClaim); err != nil {
		return err
	}
	return utils.WriteJSON(w, &status)
}

func (h *StakeHub) handleGetValidators(w http.ResponseWriter, _ *http.Request) error {
	ids, err := h.ledger.ListValidators()
	if err != nil {
		return err
	}
	out := make([]*Validator, 0, len(ids))
	for _, id := range ids {
		val, err := h.ledger.GetValidator(id)
		if err != nil {
			return err
		}
		if val != nil {
			out = append(out, convertValidator(id, val))
		}
	}
	return utils.WriteJSON(w, out)
}

func (h *StakeHub) handleGetValidator(w http.ResponseWriter, req *http.Request) error {
	id, err := parseValidatorID(mux.Vars(req)["id"])
	if err != nil {
		return err
	}
	val, err := h.ledger.GetValidator(id)
	if err != nil {
		return err
	}
	if val == nil {
		return utils.HTTPError(errors.New("unknown validator"), http.StatusNotFound)
	}
	return utils.WriteJSON(w, convertValidator(id, val))
}

func (h *StakeHub) handleRegisterValidator(w http.ResponseWriter, req *http.Request) error {
	var body RegisterValidatorBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	status, ok := statusOf(body.Status)
	if !ok {
		return utils.BadRequest(errors.New("unknown status " + body.Status))
	}
	if err := h.ledger.RegisterValidator(body.Caller, validator.ID(body.ID), status); err != nil {
		return convertErr(err)
	}
	return utils.WriteJSON(w, utils.M{"registered": body.ID})
}

func (h *StakeHub) handleSetValidatorStatus(w http.ResponseWriter, req *http.Request) error {
	id, err := parseValidatorID(mux.Vars(req)["id"])
	if err != nil {
		return err
	}
	var body StatusBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	status, ok := statusOf(body.Status)
	if !ok {
		return utils.BadRequest(errors.New("unknown status " + body.Status))
	}
	if err := h.ledger.SetValidatorStatus(body.Caller, id, status); err != nil {
		return convertErr(err)
	}
	return utils.WriteJSON(w, utils.M{"status": body.Status})
}

func (h *StakeHub) handleSetCommission(w http.ResponseWriter, req *http.Request) error {
	id, err := parseValidatorID(mux.Vars(req)["id"])
	if err != nil {
		return err
	}
	var body CommissionBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := h.ledger.SetCommission(body.Caller, id, body.BPS); err != nil {
		return convertErr(err)
	}
	return utils.WriteJSON(w, utils.M{"bps": body.BPS})
}

func (h *StakeHub) handleSetValidatorMetadata(w http.ResponseWriter, req *http.Request) error {
	id, err := parseValidatorID(mux.Vars(req)["id"])
	if err != nil {
		return err
	}
	var body MetadataBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := h.ledger.SetValidatorMetadata(body.Caller, id, body.Metadata); err != nil {
		return convertErr(err)
	}
	return utils.WriteJSON(w, utils.M{"metadata": body.Metadata})
}

func (h *StakeHub) handleAddRewards(w http.ResponseWriter, req *http.Request) error {
	id, err := parseValidatorID(mux.Vars(req)["id"])
	if err != nil {
		return err
	}
	var body RewardsBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := h.ledger.AddRewards(body.Caller, id, amountOf(body.Amount)); err != nil {
		return convertErr(err)
	}
	return utils.WriteJSON(w, utils.M{"added": body.Amount})
}

func (h *StakeHub) handleGetAccountStakes(w http.ResponseWriter, req *http.Request) error {
	addr, err := arkos.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	ids, err := h.ledger.UserValidators(*addr)
	if err != nil {
		return err
	}
	out := make([]*Position, 0, len(ids))
	for _, id := range ids {
		pos, err := h.ledger.GetUserStake(*addr, id)
		if err != nil {
			return err
		}
		if pos != nil {
			out = append(out, convertPosition(id, pos))
		}
	}
	return utils.WriteJSON(w, out)
}

func (h *StakeHub) handleGetAccountStake(w http.ResponseWriter, req *http.Request) error {
	addr, err := arkos.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	id, err := parseValidatorID(mux.Vars(req)["id"])
	if err != nil {
		return err
	}
	pos, err := h.ledger.GetUserStake(*addr, id)
	if err != nil {
		return err
	}
	if pos == nil {
		return utils.HTTPError(errors.New("no position"), http.StatusNotFound)
	}
	return utils.WriteJSON(w, convertPosition(id, pos))
}

func (h *StakeHub) handleGetAccountRewards(w http.ResponseWriter, req *http.Request) error {
	addr, err := arkos.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	id, err := parseValidatorID(mux.Vars(req)["id"])
	if err != nil {
		return err
	}
	pending, err := h.ledger.PendingRewards(*addr, id)
	if err != nil {
		return convertErr(err)
	}
	return utils.WriteJSON(w, utils.M{"pending": (*math.HexOrDecimal256)(pending)})
}

func (h *StakeHub) handleStake(w http.ResponseWriter, req *http.Request) error {
	var body StakeBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	id, err := parseValidatorID(body.Validator)
	if err != nil {
		return err
	}
	minted, err := h.ledger.Stake(body.Caller, id, amountOf(body.Amount))
	if err != nil {
		return convertErr(err)
	}
	return utils.WriteJSON(w, utils.M{"shares": (*math.HexOrDecimal256)(minted)})
}

func (h *StakeHub) handleInitiateUnstake(w http.ResponseWriter, req *http.Request) error {
	var body UnstakeBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	id, err := parseValidatorID(body.Validator)
	if err != nil {
		return err
	}
	reqID, err := h.ledger.InitiateUnstake(body.Caller, id)
	if err != nil {
		return convertErr(err)
	}
	return utils.WriteJSON(w, utils.M{"request": reqID.String()})
}

func (h *StakeHub) handleCompleteUnstake(w http.ResponseWriter, req *http.Request) error {
	var body CompleteBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	id, err := parseValidatorID(body.Validator)
	if err != nil {
		return err
	}
	if err := h.ledger.CompleteUnstake(body.Caller, body.User, id, amountOf(body.Amount)); err != nil {
		return convertErr(err)
	}
	return utils.WriteJSON(w, utils.M{"completed": body.Amount})
}

func (h *StakeHub) handleInitiateClaim(w http.ResponseWriter, req *http.Request) error {
	var body UnstakeBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	id, err := parseValidatorID(body.Validator)
	if err != nil {
		return err
	}
	reqID, err := h.ledger.InitiateRewardClaim(body.Caller, id)
	if err != nil {
		return convertErr(err)
	}
	return utils.WriteJSON(w, utils.M{"request": reqID.String()})
}

func (h *StakeHub) handleCompleteClaim(w http.ResponseWriter, req *http.Request) error {
	var body CompleteBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	id, err := parseValidatorID(body.Validator)
	if err != nil {
		return err
	}
	if err := h.ledger.CompleteRewardClaim(body.Caller, body.User, id, amountOf(body.Amount), body.Native); err != nil {
		return convertErr(err)
	}
	return utils.WriteJSON(w, utils.M{"completed": body.Amount})
}

func (h *StakeHub) handleGetRequest(w http.ResponseWriter, req *http.Request) error {
	id, err := parseRequestID(mux.Vars(req)["id"])
	if err != nil {
		return err
	}
	record, err := h.ledger.GetRequest(id)
	if err != nil {
		return err
	}
	if record == nil {
		return utils.HTTPError(errors.New("unknown request"), http.StatusNotFound)
	}
	return utils.WriteJSON(w, convertRequest(id, record))
}

func (h *StakeHub) handleFailRequest(w http.ResponseWriter, req *http.Request) error {
	id, err := parseRequestID(mux.Vars(req)["id"])
	if err != nil {
		return err
	}
	var body FailBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := h.ledger.FailRequest(body.Caller, id, body.Reason); err != nil {
		return convertErr(err)
	}
	return utils.WriteJSON(w, utils.M{"failed": id.String()})
}

func (h *StakeHub) handleSetupMigration(w http.ResponseWriter, req *http.Request) error {
	var body MigrationBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := h.ledger.SetupMigration(body.Caller, validator.ID(body.From), validator.ID(body.To)); err != nil {
		return convertErr(err)
	}
	return utils.WriteJSON(w, utils.M{"from": body.From, "to": body.To})
}

func (h *StakeHub) handleMigrate(w http.ResponseWriter, req *http.Request) error {
	var body MigrationBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := h.ledger.Migrate(body.Caller, validator.ID(body.From), validator.ID(body.To)); err != nil {
		return convertErr(err)
	}
	return utils.WriteJSON(w, utils.M{"migrated": body.From + " -> " + body.To})
}

func (h *StakeHub) handleRequestEmergency(w http.ResponseWriter, req *http.Request) error {
	var body EmergencyBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := h.ledger.RequestEmergencyWithdrawal(body.Caller); err != nil {
		return convertErr(err)
	}
	return utils.WriteJSON(w, utils.M{"requested": true})
}

func (h *StakeHub) handleCompleteEmergency(w http.ResponseWriter, req *http.Request) error {
	var body EmergencyBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := h.ledger.CompleteEmergencyWithdrawal(body.Caller, body.User, amountOf(body.Amount)); err != nil {
		return convertErr(err)
	}
	return utils.WriteJSON(w, utils.M{"completed": body.Amount})
}

func (h *StakeHub) handlePause(w http.ResponseWriter, req *http.Request) error {
	var body EmergencyBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := h.ledger.Pause(body.Caller); err != nil {
		return convertErr(err)
	}
	return utils.WriteJSON(w, utils.M{"paused": true})
}

func (h *StakeHub) handleUnpause(w http.ResponseWriter, req *http.Request) error {
	var body EmergencyBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := h.ledger.Unpause(body.Caller); err != nil {
		return convertErr(err)
	}
	return utils.WriteJSON(w, utils.M{"paused": false})
}

func (h *StakeHub) handleSetMinStake(w http.ResponseWriter, req *http.Request) error {
	var body ParamBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := h.ledger.SetMinStake(body.Caller, body.Value); err != nil {
		return convertErr(err)
	}
	return utils.WriteJSON(w, utils.M{"minStake": body.Value})
}

func (h *StakeHub) handleSetInterval(w http.ResponseWriter, req *http.Request) error {
	var body IntervalBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	var kind timelock.Kind
	switch body.Kind {
	case "stake":
		kind = timelock.KindStake
	case "unstake":
		kind = timelock.KindUnstake
	case "claim":
		kind = timelock.KindClaim
	default:
		return utils.BadRequest(errors.New("unknown interval kind " + body.Kind))
	}
	if err := h.ledger.SetInterval(body.Caller, kind, body.Seconds); err != nil {
		return convertErr(err)
	}
	return utils.WriteJSON(w, utils.M{"kind": body.Kind, "seconds": body.Seconds})
}

func capsOf(names []string) (auth.Capability, error) {
	var caps auth.Capability
	for _, name := range names {
		switch name {
		case "admin":
			caps |= auth.CapAdmin
		case "operator":
			caps |= auth.CapOperator
		case "manager":
			caps |= auth.CapManager
		case "emergency":
			caps |= auth.CapEmergency
		default:
			return 0, errors.New("unknown capability " + name)
		}
	}
	return caps, nil
}

func (h *StakeHub) handleGrantRole(w http.ResponseWriter, req *http.Request) error {
	var body RoleBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	caps, err := capsOf(body.Capabilities)
	if err != nil {
		return utils.BadRequest(err)
	}
	if err := h.ledger.GrantRole(body.Caller, body.Address, caps); err != nil {
		return convertErr(err)
	}
	return utils.WriteJSON(w, utils.M{"granted": body.Capabilities})
}

func (h *StakeHub) handleRevokeRole(w http.ResponseWriter, req *http.Request) error {
	var body RoleBody
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	caps, err := capsOf(body.Capabilities)
	if err != nil {
		return utils.BadRequest(err)
	}
	if err := h.ledger.RevokeRole(body.Caller, body.Address, caps); err != nil {
		return convertErr(err)
	}
	return utils.WriteJSON(w, utils.M{"revoked": body.Capabilities})
}

func (h *StakeHub) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/status").
		Methods(http.MethodGet).
		Name("stakehub_get_status").
		HandlerFunc(utils.WrapHandlerFunc(h.handleGetStatus))
	sub.Path("/validators").
		Methods(http.MethodGet).
		Name("stakehub_get_validators").
		HandlerFunc(utils.WrapHandlerFunc(h.handleGetValidators))
	sub.Path("/validators").
		Methods(http.MethodPost).
		Name("stakehub_register_validator").
		HandlerFunc(utils.WrapHandlerFunc(h.handleRegisterValidator))
	sub.Path("/validators/{id}").
		Methods(http.MethodGet).
		Name("stakehub_get_validator").
		HandlerFunc(utils.WrapHandlerFunc(h.handleGetValidator))
	sub.Path("/validators/{id}/status").
		Methods(http.MethodPut).
		Name("stakehub_set_validator_status").
		HandlerFunc(utils.WrapHandlerFunc(h.handleSetValidatorStatus))
	sub.Path("/validators/{id}/commission").
		Methods(http.MethodPut).
		Name("stakehub_set_commission").
		HandlerFunc(utils.WrapHandlerFunc(h.handleSetCommission))
	sub.Path("/validators/{id}/metadata").
		Methods(http.MethodPut).
		Name("stakehub_set_validator_metadata").
		HandlerFunc(utils.WrapHandlerFunc(h.handleSetValidatorMetadata))
	sub.Path("/validators/{id}/rewards").
		Methods(http.MethodPost).
		Name("stakehub_add_rewards").
		HandlerFunc(utils.WrapHandlerFunc(h.handleAddRewards))
	sub.Path("/accounts/{address}/stakes").
		Methods(http.MethodGet).
		Name("stakehub_get_account_stakes").
		HandlerFunc(utils.WrapHandlerFunc(h.handleGetAccountStakes))
	sub.Path("/accounts/{address}/stakes/{id}").
		Methods(http.MethodGet).
		Name("stakehub_get_account_stake").
		HandlerFunc(utils.WrapHandlerFunc(h.handleGetAccountStake))
	sub.Path("/accounts/{address}/rewards/{id}").
		Methods(http.MethodGet).
		Name("stakehub_get_account_rewards").
		HandlerFunc(utils.WrapHandlerFunc(h.handleGetAccountRewards))
	sub.Path("/stakes").
		Methods(http.MethodPost).
		Name("stakehub_stake").
		HandlerFunc(utils.WrapHandlerFunc(h.handleStake))
	sub.Path("/unstakes").
		Methods(http.MethodPost).
		Name("stakehub_initiate_unstake").
		HandlerFunc(utils.WrapHandlerFunc(h.handleInitiateUnstake))
	sub.Path("/unstakes/complete").
		Methods(http.MethodPost).
		Name("stakehub_complete_unstake").
		HandlerFunc(utils.WrapHandlerFunc(h.handleCompleteUnstake))
	sub.Path("/claims").
		Methods(http.MethodPost).
		Name("stakehub_initiate_claim").
		HandlerFunc(utils.WrapHandlerFunc(h.handleInitiateClaim))
	sub.Path("/claims/complete").
		Methods(http.MethodPost).
		Name("stakehub_complete_claim").
		HandlerFunc(utils.WrapHandlerFunc(h.handleCompleteClaim))
	sub.Path("/requests/{id}").
		Methods(http.MethodGet).
		Name("stakehub_get_request").
		HandlerFunc(utils.WrapHandlerFunc(h.handleGetRequest))
	sub.Path("/requests/{id}/fail").
		Methods(http.MethodPost).
		Name("stakehub_fail_request").
		HandlerFunc(utils.WrapHandlerFunc(h.handleFailRequest))
	sub.Path("/migrations/setup").
		Methods(http.MethodPost).
		Name("stakehub_setup_migration").
		HandlerFunc(utils.WrapHandlerFunc(h.handleSetupMigration))
	sub.Path("/migrations").
		Methods(http.MethodPost).
		Name("stakehub_migrate").
		HandlerFunc(utils.WrapHandlerFunc(h.handleMigrate))
	sub.Path("/emergency").
		Methods(http.MethodPost).
		Name("stakehub_request_emergency").
		HandlerFunc(utils.WrapHandlerFunc(h.handleRequestEmergency))
	sub.Path("/emergency/complete").
		Methods(http.MethodPost).
		Name("stakehub_complete_emergency").
		HandlerFunc(utils.WrapHandlerFunc(h.handleCompleteEmergency))
	sub.Path("/pause").
		Methods(http.MethodPost).
		Name("stakehub_pause").
		HandlerFunc(utils.WrapHandlerFunc(h.handlePause))
	sub.Path("/unpause").
		Methods(http.MethodPost).
		Name("stakehub_unpause").
		HandlerFunc(utils.WrapHandlerFunc(h.handleUnpause))
	sub.Path("/params/min-stake").
		Methods(http.MethodPost).
		Name("stakehub_set_min_stake").
		HandlerFunc(utils.WrapHandlerFunc(h.handleSetMinStake))
	sub.Path("/params/intervals").
		Methods(http.MethodPost).
		Name("stakehub_set_interval").
		HandlerFunc(utils.WrapHandlerFunc(h.handleSetInterval))
	sub.Path("/roles/grant").
		Methods(http.MethodPost).
		Name("stakehub_grant_role").
		HandlerFunc(utils.WrapHandlerFunc(h.handleGrantRole))
	sub.Path("/roles/revoke").
		Methods(http.MethodPost).
		Name("stakehub_revoke_role").
		HandlerFunc(utils.WrapHandlerFunc(h.handleRevokeRole))
}
