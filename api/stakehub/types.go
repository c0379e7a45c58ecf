// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakehub

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/arkos-network/stakehub/arkos"
	"github.com/arkos-network/stakehub/staking/position"
	"github.com/arkos-network/stakehub/staking/request"
	"github.com/arkos-network/stakehub/staking/validator"
)

// Validator is the JSON form of a registry entry.
type Validator struct {
	ID            string                `json:"id"`
	Status        string                `json:"status"`
	TotalStaked   *math.HexOrDecimal256 `json:"totalStaked"`
	TotalShares   *math.HexOrDecimal256 `json:"totalShares"`
	RewardPool    *math.HexOrDecimal256 `json:"rewardPool"`
	UniqueStakers uint64                `json:"uniqueStakers"`
	CommissionBPS uint16                `json:"commissionBPS"`
	Successor     string                `json:"successor,omitempty"`
	Metadata      string                `json:"metadata,omitempty"`
	RegisteredAt  uint64                `json:"registeredAt"`
}

func convertValidator(id validator.ID, v *validator.Validator) *Validator {
	return &Validator{
		ID:            id.String(),
		Status:        validator.StatusName(v.Status),
		TotalStaked:   (*math.HexOrDecimal256)(v.TotalStaked),
		TotalShares:   (*math.HexOrDecimal256)(v.TotalShares),
		RewardPool:    (*math.HexOrDecimal256)(v.RewardPool),
		UniqueStakers: v.UniqueStakers,
		CommissionBPS: v.CommissionBPS,
		Successor:     v.Successor.String(),
		Metadata:      v.Metadata,
		RegisteredAt:  v.RegisteredAt,
	}
}

// Position is the JSON form of a user stake.
type Position struct {
	Validator              string                `json:"validator"`
	Amount                 *math.HexOrDecimal256 `json:"amount"`
	Shares                 *math.HexOrDecimal256 `json:"shares"`
	StakedAt               uint64                `json:"stakedAt"`
	LastUnstakeInitiatedAt uint64                `json:"lastUnstakeInitiatedAt"`
	LastClaimInitiatedAt   uint64                `json:"lastClaimInitiatedAt"`
	InUnstakeProcess       bool                  `json:"inUnstakeProcess"`
	UnbondingAmount        *math.HexOrDecimal256 `json:"unbondingAmount"`
}

func convertPosition(id validator.ID, p *position.UserStake) *Position {
	return &Position{
		Validator:              id.String(),
		Amount:                 (*math.HexOrDecimal256)(p.Amount),
		Shares:                 (*math.HexOrDecimal256)(p.Shares),
		StakedAt:               p.StakedAt,
		LastUnstakeInitiatedAt: p.LastUnstakeInitiatedAt,
		LastClaimInitiatedAt:   p.LastClaimInitiatedAt,
		InUnstakeProcess:       p.InUnstakeProcess,
		UnbondingAmount:        (*math.HexOrDecimal256)(p.UnbondingAmount),
	}
}

// Request is the JSON form of an asynchronous request record.
type Request struct {
	ID           string                `json:"id"`
	Kind         string                `json:"kind"`
	Status       string                `json:"status"`
	User         arkos.Address         `json:"user"`
	Amount       *math.HexOrDecimal256 `json:"amount"`
	Validator    string                `json:"validator"`
	CreatedAt    uint64                `json:"createdAt"`
	StatusReason string                `json:"statusReason,omitempty"`
}

func convertRequest(id request.ID, r *request.Request) *Request {
	return &Request{
		ID:           id.String(),
		Kind:         request.Kind(r.Kind).String(),
		Status:       request.Status(r.Status).String(),
		User:         r.User,
		Amount:       (*math.HexOrDecimal256)(r.Amount),
		Validator:    r.Validator.String(),
		CreatedAt:    r.CreatedAt,
		StatusReason: r.StatusReason,
	}
}

// Status is the JSON summary of the ledger.
type Status struct {
	Paused             bool                  `json:"paused"`
	TotalStaked        *math.HexOrDecimal256 `json:"totalStaked"`
	TotalShares        *math.HexOrDecimal256 `json:"totalShares"`
	MinStake           uint64                `json:"minStake"`
	MinStakeInterval   uint64                `json:"minStakeInterval"`
	MinUnstakeInterval uint64                `json:"minUnstakeInterval"`
	MinClaimInterval   uint64                `json:"minClaimInterval"`
}

// StakeBody is the payload of a stake submission.
type StakeBody struct {
	Caller    arkos.Address         `json:"caller"`
	Validator string                `json:"validator"`
	Amount    *math.HexOrDecimal256 `json:"amount"`
}

// UnstakeBody initiates an unstake or a reward claim.
type UnstakeBody struct {
	Caller    arkos.Address `json:"caller"`
	Validator string        `json:"validator"`
}

// CompleteBody fulfills a pending unstake or claim.
type CompleteBody struct {
	Caller    arkos.Address         `json:"caller"`
	User      arkos.Address         `json:"user"`
	Validator string                `json:"validator"`
	Amount    *math.HexOrDecimal256 `json:"amount"`
	Native    bool                  `json:"native,omitempty"`
}

// RegisterValidatorBody registers a staking target.
type RegisterValidatorBody struct {
	Caller arkos.Address `json:"caller"`
	ID     string        `json:"id"`
	Status string        `json:"status"`
}

// StatusBody transitions a validator.
type StatusBody struct {
	Caller arkos.Address `json:"caller"`
	Status string        `json:"status"`
}

// CommissionBody updates a validator's commission rate.
type CommissionBody struct {
	Caller arkos.Address `json:"caller"`
	BPS    uint16        `json:"bps"`
}

// MetadataBody replaces a validator's description.
type MetadataBody struct {
	Caller   arkos.Address `json:"caller"`
	Metadata string        `json:"metadata"`
}

// RewardsBody funds a reward pool.
type RewardsBody struct {
	Caller arkos.Address         `json:"caller"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}

// MigrationBody configures or executes a migration.
type MigrationBody struct {
	Caller arkos.Address `json:"caller"`
	From   string        `json:"from"`
	To     string        `json:"to"`
}

// EmergencyBody requests or completes an emergency withdrawal.
type EmergencyBody struct {
	Caller arkos.Address         `json:"caller"`
	User   arkos.Address         `json:"user,omitempty"`
	Amount *math.HexOrDecimal256 `json:"amount,omitempty"`
}

// FailBody marks a pending request failed.
type FailBody struct {
	Caller arkos.Address `json:"caller"`
	Reason string        `json:"reason"`
}

// ParamBody updates a numeric ledger parameter.
type ParamBody struct {
	Caller arkos.Address `json:"caller"`
	Value  uint64        `json:"value"`
}

// IntervalBody updates a cooldown interval.
type IntervalBody struct {
	Caller  arkos.Address `json:"caller"`
	Kind    string        `json:"kind"`
	Seconds uint64        `json:"seconds"`
}

// RoleBody grants or revokes capabilities.
type RoleBody struct {
	Caller       arkos.Address `json:"caller"`
	Address      arkos.Address `json:"address"`
	Capabilities []string      `json:"capabilities"`
}

func amountOf(a *math.HexOrDecimal256) *big.Int {
	if a == nil {
		return new(big.Int)
	}
	return (*big.Int)(a)
}

func statusOf(name string) (validator.Status, bool) {
	switch name {
	case "enabled":
		return validator.StatusEnabled, true
	case "disabled":
		return validator.StatusDisabled, true
	case "deprecated":
		return validator.StatusDeprecated, true
	default:
		return validator.StatusUnknown, false
	}
}
