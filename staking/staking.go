// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package staking implements the delegated staking ledger. The Ledger facade
// serializes every entrypoint, runs it against a state checkpoint and keeps
// either all of its effects or none of them.
package staking

import (
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/arkos-network/stakehub/arkos"
	"github.com/arkos-network/stakehub/auth"
	"github.com/arkos-network/stakehub/log"
	"github.com/arkos-network/stakehub/metrics"
	"github.com/arkos-network/stakehub/oracle"
	"github.com/arkos-network/stakehub/staking/position"
	"github.com/arkos-network/stakehub/staking/request"
	"github.com/arkos-network/stakehub/staking/reverts"
	"github.com/arkos-network/stakehub/staking/shares"
	"github.com/arkos-network/stakehub/staking/timelock"
	"github.com/arkos-network/stakehub/staking/validator"
	"github.com/arkos-network/stakehub/state"
	"github.com/arkos-network/stakehub/storage"
)

var (
	logger = log.WithContext("pkg", "staking")

	metricOps         = metrics.LazyLoadCounterVec("staking_operation_count", []string{"op", "result"})
	metricReverts     = metrics.LazyLoadCounterVec("staking_revert_count", []string{"code"})
	metricTotalStaked = metrics.LazyLoadGauge("staking_total_staked_gauge")
)

var (
	slotPaused         = storage.NameToSlot("paused")
	slotMinStake       = storage.NameToSlot("min-stake")
	slotTotalStaked    = storage.NameToSlot("global-total-staked")
	slotTotalShares    = storage.NameToSlot("global-total-shares")
	slotEmergencyFlags = storage.NameToSlot("emergency-flags")
	slotPendingReqs    = storage.NameToSlot("pending-requests")
)

type addrKey arkos.Address

func (k addrKey) Bytes() []byte { return k[:] }

// pendingKey addresses the open request of one (user, validator, kind) triple.
type pendingKey struct {
	user arkos.Address
	id   validator.ID
	kind request.Kind
}

func (k pendingKey) Bytes() []byte {
	return arkos.Blake2b(k.user.Bytes(), k.id.Bytes(), []byte{byte(k.kind >> 8), byte(k.kind)}).Bytes()
}

// Ledger is the staking entrypoint surface. All mutating calls are serialized
// and atomic; a failed precondition leaves no trace in state.
type Ledger struct {
	mu   sync.Mutex
	busy bool

	state *state.State
	now   func() uint64

	validators *validator.Service
	positions  *position.Service
	guard      *timelock.Guard
	requests   *request.Service
	registry   *auth.Registry

	source  oracle.Source
	wrapper oracle.Wrapper

	paused      *storage.Raw[bool]
	minStake    *storage.ConfigVariable
	totalStaked *storage.Uint256
	totalShares *storage.Uint256
	emergency   *storage.Mapping[addrKey, bool]
	pending     *storage.Mapping[pendingKey, *request.ID]
}

// Option tweaks ledger construction.
type Option func(*Ledger)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() uint64) Option {
	return func(l *Ledger) { l.now = now }
}

// WithOracle wires the external price/reward source.
func WithOracle(source oracle.Source) Option {
	return func(l *Ledger) { l.source = source }
}

// WithWrapper wires the native/wrapped token converter.
func WithWrapper(wrapper oracle.Wrapper) Option {
	return func(l *Ledger) { l.wrapper = wrapper }
}

// New creates a ledger bound to the given state.
func New(st *state.State, opts ...Option) *Ledger {
	sctx := storage.NewContext("staking", st)
	l := &Ledger{
		state:       st,
		now:         func() uint64 { return uint64(time.Now().Unix()) },
		validators:  validator.New(sctx),
		positions:   position.New(sctx),
		guard:       timelock.New(sctx),
		requests:    request.New(sctx),
		registry:    auth.New(storage.NewContext("auth", st)),
		paused:      storage.NewRaw[bool](sctx, slotPaused),
		minStake:    storage.NewConfigVariable(sctx, "min-stake", arkos.DefaultMinStake),
		totalStaked: storage.NewUint256(sctx, slotTotalStaked),
		totalShares: storage.NewUint256(sctx, slotTotalShares),
		emergency:   storage.NewMapping[addrKey, bool](sctx, slotEmergencyFlags),
		pending:     storage.NewMapping[pendingKey, *request.ID](sctx, slotPendingReqs),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Auth exposes the capability registry for bootstrap grants.
func (l *Ledger) Auth() *auth.Registry {
	return l.registry
}

// Bootstrap applies node-configured capability grants. It runs at startup,
// before the ledger serves traffic, and is idempotent.
func (l *Ledger) Bootstrap(grants map[arkos.Address]auth.Capability) error {
	return l.run("bootstrap", func() error {
		for addr, caps := range grants {
			if caps == 0 {
				continue
			}
			if err := l.registry.Grant(addr, caps); err != nil {
				return err
			}
			logger.Info("capabilities granted", "address", addr, "caps", caps)
		}
		return nil
	})
}

// run serializes a mutating entrypoint and makes it all-or-nothing.
func (l *Ledger) run(op string, fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.busy {
		return reverts.NewState("reentrant call")
	}
	l.busy = true
	defer func() { l.busy = false }()

	checkpoint := l.state.NewCheckpoint()
	if err := fn(); err != nil {
		l.state.RevertTo(checkpoint)
		if code, ok := reverts.CodeOf(err); ok {
			metricReverts().AddWithLabel(1, map[string]string{"code": code.String()})
		}
		metricOps().AddWithLabel(1, map[string]string{"op": op, "result": "reverted"})
		return err
	}
	if err := l.state.Commit(); err != nil {
		l.state.RevertTo(checkpoint)
		metricOps().AddWithLabel(1, map[string]string{"op": op, "result": "failed"})
		return errors.Wrap(err, "failed to commit "+op)
	}
	metricOps().AddWithLabel(1, map[string]string{"op": op, "result": "ok"})
	return nil
}

func (l *Ledger) requireActive() error {
	paused, err := l.paused.Get()
	if err != nil {
		return errors.Wrap(err, "failed to get pause flag")
	}
	if paused {
		return reverts.NewState("ledger is paused")
	}
	return nil
}

// debit moves value out of an account into the hub.
func (l *Ledger) debit(from arkos.Address, amount *big.Int) error {
	balance, err := l.state.GetBalance(from)
	if err != nil {
		return errors.Wrap(err, "failed to get balance")
	}
	if balance.Cmp(amount) < 0 {
		return reverts.NewValidation("insufficient balance")
	}
	l.state.SetBalance(from, new(big.Int).Sub(balance, amount))
	hub, err := l.state.GetBalance(arkos.HubAddress)
	if err != nil {
		return errors.Wrap(err, "failed to get hub balance")
	}
	l.state.SetBalance(arkos.HubAddress, new(big.Int).Add(hub, amount))
	return nil
}

// payout moves value from the hub to a user. Callers must finish every
// counter mutation before invoking it.
func (l *Ledger) payout(to arkos.Address, amount *big.Int) error {
	hub, err := l.state.GetBalance(arkos.HubAddress)
	if err != nil {
		return errors.Wrap(err, "failed to get hub balance")
	}
	if hub.Cmp(amount) < 0 {
		return reverts.NewExternal("insufficient hub liquidity")
	}
	l.state.SetBalance(arkos.HubAddress, new(big.Int).Sub(hub, amount))
	balance, err := l.state.GetBalance(to)
	if err != nil {
		return errors.Wrap(err, "failed to get balance")
	}
	l.state.SetBalance(to, new(big.Int).Add(balance, amount))
	return nil
}

// poolValue is the figure shares are priced against. Accrued rewards raise
// the value of existing shares without minting new ones.
func poolValue(v *validator.Validator) *big.Int {
	return new(big.Int).Add(v.TotalStaked, v.RewardPool)
}

// Stake locks amount of the caller's balance with the given validator and
// mints shares at the current pool ratio.
func (l *Ledger) Stake(user arkos.Address, valID validator.ID, amount *big.Int) (minted *big.Int, err error) {
	err = l.run("stake", func() error {
		if err := l.requireActive(); err != nil {
			return err
		}
		if amount == nil || amount.Sign() <= 0 {
			return reverts.NewValidation("zero stake amount")
		}
		min, err := l.minStake.Get()
		if err != nil {
			return err
		}
		if amount.Cmp(new(big.Int).SetUint64(min)) < 0 {
			return reverts.NewValidation("stake amount below minimum")
		}
		val, err := l.validators.GetExisting(valID)
		if err != nil {
			return err
		}
		if !val.AcceptsStake() {
			return reverts.NewValidation("validator does not accept stake")
		}
		now := l.now()
		if err := l.guard.Check(user, valID, timelock.KindStake, now); err != nil {
			return err
		}

		logger.Debug("staking", "user", user, "validator", valID, "amount", amount)

		minted = shares.ToShares(amount, poolValue(val), val.TotalShares)
		if minted.Sign() == 0 {
			return reverts.NewValidation("stake amount too small for current pool ratio")
		}
		if err := l.debit(user, amount); err != nil {
			return err
		}

		pos, err := l.positions.Get(user, valID)
		if err != nil {
			return err
		}
		if pos.IsEmpty() {
			val.UniqueStakers++
			pos.StakedAt = now
		}
		pos.Amount.Add(pos.Amount, amount)
		pos.Shares.Add(pos.Shares, minted)
		if err := l.positions.Save(user, valID, pos); err != nil {
			return err
		}

		val.TotalStaked.Add(val.TotalStaked, amount)
		val.TotalShares.Add(val.TotalShares, minted)
		if err := l.validators.Save(valID, val); err != nil {
			return err
		}
		if err := l.totalStaked.Add(amount); err != nil {
			return err
		}
		if err := l.totalShares.Add(minted); err != nil {
			return err
		}
		if err := l.guard.Stamp(user, valID, timelock.KindStake, now); err != nil {
			return err
		}
		l.gaugeTotals()

		logger.Info("staked", "user", user, "validator", valID, "amount", amount, "shares", minted)
		return nil
	})
	return
}

// InitiateUnstake marks the caller's entire position with the validator for
// exit and opens a pending request for the operator to fulfill.
func (l *Ledger) InitiateUnstake(user arkos.Address, valID validator.ID) (id request.ID, err error) {
	err = l.run("initiate_unstake", func() error {
		if err := l.requireActive(); err != nil {
			return err
		}
		if _, err := l.validators.GetExisting(valID); err != nil {
			return err
		}
		pos, err := l.positions.Get(user, valID)
		if err != nil {
			return err
		}
		if pos.IsEmpty() {
			return reverts.NewState("no active stake")
		}
		if pos.InUnstakeProcess {
			return reverts.NewState("unstake already in process")
		}
		now := l.now()
		if err := l.guard.Check(user, valID, timelock.KindUnstake, now); err != nil {
			return err
		}

		pos.InUnstakeProcess = true
		pos.UnbondingAmount = new(big.Int).Set(pos.Amount)
		pos.LastUnstakeInitiatedAt = now
		if err := l.positions.Save(user, valID, pos); err != nil {
			return err
		}

		id, err = l.requests.Create(user, pos.UnbondingAmount, valID, request.KindUnstake, now)
		if err != nil {
			return err
		}
		if err := l.pending.Set(pendingKey{user, valID, request.KindUnstake}, &id); err != nil {
			return err
		}
		if err := l.guard.Stamp(user, valID, timelock.KindUnstake, now); err != nil {
			return err
		}

		logger.Info("unstake initiated", "user", user, "validator", valID, "amount", pos.UnbondingAmount, "request", id)
		return nil
	})
	return
}

// CompleteUnstake fulfills the user's pending unstake request, burning the
// share equivalent of amount and paying it out. The whole unbonding mark is
// consumed; a partial remainder returns to the active state.
func (l *Ledger) CompleteUnstake(caller, user arkos.Address, valID validator.ID, amount *big.Int) error {
	return l.run("complete_unstake", func() error {
		if err := l.registry.Require(caller, auth.CapOperator); err != nil {
			return err
		}
		if amount == nil || amount.Sign() <= 0 {
			return reverts.NewValidation("zero unstake amount")
		}
		val, err := l.validators.GetExisting(valID)
		if err != nil {
			return err
		}
		pos, err := l.positions.Get(user, valID)
		if err != nil {
			return err
		}
		if !pos.InUnstakeProcess {
			return reverts.NewState("no unstake in process")
		}
		if amount.Cmp(pos.UnbondingAmount) > 0 {
			return reverts.NewValidation("amount exceeds unbonding balance")
		}

		burned := shares.BurnShares(amount, poolValue(val), val.TotalShares)
		if burned.Cmp(pos.Shares) > 0 {
			burned = new(big.Int).Set(pos.Shares)
		}

		pos.Amount.Sub(pos.Amount, amount)
		pos.Shares.Sub(pos.Shares, burned)
		pos.InUnstakeProcess = false
		pos.UnbondingAmount = new(big.Int)
		if pos.Amount.Sign() == 0 && pos.Shares.Sign() > 0 {
			// residual dust shares are forfeited to the pool
			pos.Shares = new(big.Int)
		}
		if pos.IsEmpty() {
			if val.UniqueStakers > 0 {
				val.UniqueStakers--
			}
		}
		if err := l.positions.Save(user, valID, pos); err != nil {
			return err
		}

		val.TotalStaked.Sub(val.TotalStaked, amount)
		val.TotalShares.Sub(val.TotalShares, burned)
		if err := l.validators.Save(valID, val); err != nil {
			return err
		}
		if err := l.totalStaked.Sub(amount); err != nil {
			return err
		}
		if err := l.totalShares.Sub(burned); err != nil {
			return err
		}

		if err := l.fulfillPending(user, valID, request.KindUnstake, ""); err != nil {
			return err
		}
		l.gaugeTotals()

		if err := l.payout(user, amount); err != nil {
			return err
		}

		logger.Info("unstake completed", "user", user, "validator", valID, "amount", amount, "shares", burned)
		return nil
	})
}

// InitiateRewardClaim opens a pending claim over the caller's share of the
// validator reward pool.
func (l *Ledger) InitiateRewardClaim(user arkos.Address, valID validator.ID) (id request.ID, err error) {
	err = l.run("initiate_reward_claim", func() error {
		if err := l.requireActive(); err != nil {
			return err
		}
		val, err := l.validators.GetExisting(valID)
		if err != nil {
			return err
		}
		pos, err := l.positions.Get(user, valID)
		if err != nil {
			return err
		}
		if pos.IsEmpty() {
			return reverts.NewState("no active stake")
		}
		key := pendingKey{user, valID, request.KindClaimRewards}
		open, err := l.pending.Get(key)
		if err != nil {
			return errors.Wrap(err, "failed to get pending request")
		}
		if open != nil {
			return reverts.NewState("reward claim already in process")
		}
		now := l.now()
		if err := l.guard.Check(user, valID, timelock.KindClaim, now); err != nil {
			return err
		}

		claimable := shares.RewardShare(pos.Shares, val.RewardPool, val.TotalShares)
		if claimable.Sign() == 0 {
			return reverts.NewState("no claimable rewards")
		}

		pos.LastClaimInitiatedAt = now
		if err := l.positions.Save(user, valID, pos); err != nil {
			return err
		}
		id, err = l.requests.Create(user, claimable, valID, request.KindClaimRewards, now)
		if err != nil {
			return err
		}
		if err := l.pending.Set(key, &id); err != nil {
			return err
		}
		if err := l.guard.Stamp(user, valID, timelock.KindClaim, now); err != nil {
			return err
		}

		logger.Info("reward claim initiated", "user", user, "validator", valID, "amount", claimable, "request", id)
		return nil
	})
	return
}

// CompleteRewardClaim fulfills the user's pending reward claim and pays out
// of the validator reward pool, natively or converted to the wrapped token.
func (l *Ledger) CompleteRewardClaim(caller, user arkos.Address, valID validator.ID, amount *big.Int, isNative bool) error {
	return l.run("complete_reward_claim", func() error {
		if err := l.registry.Require(caller, auth.CapOperator); err != nil {
			return err
		}
		if amount == nil || amount.Sign() <= 0 {
			return reverts.NewValidation("zero claim amount")
		}
		val, err := l.validators.GetExisting(valID)
		if err != nil {
			return err
		}
		key := pendingKey{user, valID, request.KindClaimRewards}
		pendingID, err := l.pending.Get(key)
		if err != nil {
			return errors.Wrap(err, "failed to get pending request")
		}
		if pendingID == nil {
			return reverts.NewState("no reward claim in process")
		}
		req, err := l.requests.GetExisting(*pendingID)
		if err != nil {
			return err
		}
		if amount.Cmp(req.Amount) > 0 {
			return reverts.NewValidation("amount exceeds claimed rewards")
		}
		if amount.Cmp(val.RewardPool) > 0 {
			return reverts.NewValidation("amount exceeds reward pool")
		}

		val.RewardPool.Sub(val.RewardPool, amount)
		if err := l.validators.Save(valID, val); err != nil {
			return err
		}
		if _, err := l.requests.Fulfill(*pendingID, request.StatusFulfilled, ""); err != nil {
			return err
		}
		if err := l.pending.Delete(key); err != nil {
			return err
		}

		paid := amount
		if !isNative {
			if l.wrapper == nil {
				return reverts.NewExternal("no token wrapper configured")
			}
			if paid, err = l.wrapper.Wrap(amount); err != nil {
				return err
			}
		}
		if err := l.payout(user, paid); err != nil {
			return err
		}

		logger.Info("reward claim completed", "user", user, "validator", valID, "amount", amount, "native", isNative)
		return nil
	})
}

// FailRequest marks a pending request failed and rolls its position effects
// back where the kind has any.
func (l *Ledger) FailRequest(caller arkos.Address, id request.ID, reason string) error {
	return l.run("fail_request", func() error {
		if err := l.registry.Require(caller, auth.CapOperator); err != nil {
			return err
		}
		req, err := l.requests.Fulfill(id, request.StatusFailed, reason)
		if err != nil {
			return err
		}
		// the pending entry may already track a newer request of this triple
		key := pendingKey{req.User, req.Validator, request.Kind(req.Kind)}
		open, err := l.pending.Get(key)
		if err != nil {
			return errors.Wrap(err, "failed to get pending request")
		}
		if open != nil && *open == id {
			if err := l.pending.Delete(key); err != nil {
				return err
			}
		}
		if request.Kind(req.Kind) == request.KindUnstake {
			pos, err := l.positions.Get(req.User, req.Validator)
			if err != nil {
				return err
			}
			if pos.InUnstakeProcess {
				pos.InUnstakeProcess = false
				pos.UnbondingAmount = new(big.Int)
				if err := l.positions.Save(req.User, req.Validator, pos); err != nil {
					return err
				}
			}
		}
		logger.Info("request failed", "request", id, "reason", reason)
		return nil
	})
}

func (l *Ledger) fulfillPending(user arkos.Address, valID validator.ID, kind request.Kind, reason string) error {
	key := pendingKey{user, valID, kind}
	id, err := l.pending.Get(key)
	if err != nil {
		return errors.Wrap(err, "failed to get pending request")
	}
	if id == nil {
		return reverts.NewState("no pending " + kind.String() + " request")
	}
	if _, err := l.requests.Fulfill(*id, request.StatusFulfilled, reason); err != nil {
		return err
	}
	return l.pending.Delete(key)
}

// failOpen fails the open request of the given triple, if any, and clears
// its pending entry.
func (l *Ledger) failOpen(user arkos.Address, valID validator.ID, kind request.Kind, reason string) error {
	key := pendingKey{user, valID, kind}
	id, err := l.pending.Get(key)
	if err != nil {
		return errors.Wrap(err, "failed to get pending request")
	}
	if id == nil {
		return nil
	}
	if _, err := l.requests.Fulfill(*id, request.StatusFailed, reason); err != nil {
		return err
	}
	return l.pending.Delete(key)
}

// SetupMigration declares to as the successor of the deprecated validator
// from.
func (l *Ledger) SetupMigration(caller arkos.Address, from, to validator.ID) error {
	return l.run("setup_migration", func() error {
		if err := l.registry.Require(caller, auth.CapAdmin); err != nil {
			return err
		}
		if err := l.validators.SetSuccessor(from, to); err != nil {
			return err
		}
		logger.Info("migration configured", "from", from, "to", to)
		return nil
	})
}

// Migrate moves the caller's full position from a deprecated validator to
// its configured successor. No value leaves the hub.
func (l *Ledger) Migrate(user arkos.Address, from, to validator.ID) error {
	return l.run("migrate", func() error {
		if err := l.requireActive(); err != nil {
			return err
		}
		src, err := l.validators.GetExisting(from)
		if err != nil {
			return err
		}
		if src.Status != validator.StatusDeprecated {
			return reverts.NewState("validator is not deprecated")
		}
		if src.Successor == "" {
			return reverts.NewState("migration is not configured")
		}
		if src.Successor != to {
			return reverts.NewState("unexpected migration target")
		}
		dst, err := l.validators.GetExisting(to)
		if err != nil {
			return err
		}
		if dst.Status == validator.StatusDeprecated {
			return reverts.NewState("cannot migrate to a deprecated validator")
		}
		pos, err := l.positions.Get(user, from)
		if err != nil {
			return err
		}
		if pos.IsEmpty() {
			return reverts.NewState("no active stake")
		}
		if pos.InUnstakeProcess {
			return reverts.NewState("unstake already in process")
		}
		now := l.now()
		if err := l.guard.Check(user, from, timelock.KindStake, now); err != nil {
			return err
		}

		amount := new(big.Int).Set(pos.Amount)
		oldShares := new(big.Int).Set(pos.Shares)

		src.TotalStaked.Sub(src.TotalStaked, amount)
		src.TotalShares.Sub(src.TotalShares, oldShares)
		if src.UniqueStakers > 0 {
			src.UniqueStakers--
		}
		if err := l.validators.Save(from, src); err != nil {
			return err
		}
		if err := l.positions.Save(user, from, &position.UserStake{}); err != nil {
			return err
		}

		minted := shares.ToShares(amount, poolValue(dst), dst.TotalShares)
		dstPos, err := l.positions.Get(user, to)
		if err != nil {
			return err
		}
		if dstPos.IsEmpty() {
			dst.UniqueStakers++
			dstPos.StakedAt = now
		}
		dstPos.Amount.Add(dstPos.Amount, amount)
		dstPos.Shares.Add(dstPos.Shares, minted)
		if err := l.positions.Save(user, to, dstPos); err != nil {
			return err
		}
		dst.TotalStaked.Add(dst.TotalStaked, amount)
		dst.TotalShares.Add(dst.TotalShares, minted)
		if err := l.validators.Save(to, dst); err != nil {
			return err
		}

		// global totals shift by the share delta only
		if err := l.totalShares.Sub(oldShares); err != nil {
			return err
		}
		if err := l.totalShares.Add(minted); err != nil {
			return err
		}
		if err := l.guard.Stamp(user, to, timelock.KindStake, now); err != nil {
			return err
		}

		logger.Info("migrated", "user", user, "from", from, "to", to, "amount", amount, "shares", minted)
		return nil
	})
}

// RequestEmergencyWithdrawal flags the caller for an operator-driven full
// exit. It stays available while the ledger is paused.
func (l *Ledger) RequestEmergencyWithdrawal(user arkos.Address) error {
	return l.run("request_emergency_withdrawal", func() error {
		flagged, err := l.emergency.Get(addrKey(user))
		if err != nil {
			return errors.Wrap(err, "failed to get emergency flag")
		}
		if flagged {
			return reverts.NewState("emergency withdrawal already requested")
		}
		ids, err := l.positions.Validators(user)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return reverts.NewState("no active stake")
		}
		if err := l.emergency.Set(addrKey(user), true); err != nil {
			return err
		}
		logger.Info("emergency withdrawal requested", "user", user, "validators", len(ids))
		return nil
	})
}

// CompleteEmergencyWithdrawal zeroes every position of a flagged user and
// pays the full sum in one transfer, bypassing unbonding.
func (l *Ledger) CompleteEmergencyWithdrawal(caller, user arkos.Address, totalAmount *big.Int) error {
	return l.run("complete_emergency_withdrawal", func() error {
		if err := l.registry.Require(caller, auth.CapOperator); err != nil {
			return err
		}
		flagged, err := l.emergency.Get(addrKey(user))
		if err != nil {
			return errors.Wrap(err, "failed to get emergency flag")
		}
		if !flagged {
			return reverts.NewState("no emergency withdrawal requested")
		}

		ids, err := l.positions.Validators(user)
		if err != nil {
			return err
		}
		sum := new(big.Int)
		for _, valID := range ids {
			pos, err := l.positions.Get(user, valID)
			if err != nil {
				return err
			}
			if pos.IsEmpty() {
				continue
			}
			// a fully exited user must leave no pending work behind
			if err := l.failOpen(user, valID, request.KindUnstake, "emergency withdrawal"); err != nil {
				return err
			}
			if err := l.failOpen(user, valID, request.KindClaimRewards, "emergency withdrawal"); err != nil {
				return err
			}
			val, err := l.validators.GetExisting(valID)
			if err != nil {
				return err
			}
			val.TotalStaked.Sub(val.TotalStaked, pos.Amount)
			val.TotalShares.Sub(val.TotalShares, pos.Shares)
			if val.UniqueStakers > 0 {
				val.UniqueStakers--
			}
			if err := l.validators.Save(valID, val); err != nil {
				return err
			}
			if err := l.totalStaked.Sub(pos.Amount); err != nil {
				return err
			}
			if err := l.totalShares.Sub(pos.Shares); err != nil {
				return err
			}
			sum.Add(sum, pos.Amount)
			if err := l.positions.Save(user, valID, &position.UserStake{}); err != nil {
				return err
			}
		}
		if totalAmount == nil || totalAmount.Cmp(sum) != 0 {
			return reverts.NewValidation("amount does not match the sum of positions")
		}
		if err := l.positions.ClearMembership(user); err != nil {
			return err
		}
		if err := l.emergency.Delete(addrKey(user)); err != nil {
			return err
		}
		l.gaugeTotals()

		if err := l.payout(user, sum); err != nil {
			return err
		}

		logger.Warn("emergency withdrawal completed", "user", user, "amount", sum, "validators", len(ids))
		return nil
	})
}

// RegisterValidator adds a staking target to the registry.
func (l *Ledger) RegisterValidator(caller arkos.Address, id validator.ID, status validator.Status) error {
	return l.run("register_validator", func() error {
		if err := l.registry.Require(caller, auth.CapAdmin); err != nil {
			return err
		}
		if err := l.validators.Register(id, status, l.now()); err != nil {
			return err
		}
		logger.Info("validator registered", "validator", id, "status", validator.StatusName(status))
		return nil
	})
}

// SetValidatorStatus transitions a validator between lifecycle states.
func (l *Ledger) SetValidatorStatus(caller arkos.Address, id validator.ID, status validator.Status) error {
	return l.run("set_validator_status", func() error {
		if err := l.registry.Require(caller, auth.CapManager); err != nil {
			return err
		}
		if err := l.validators.SetStatus(id, status); err != nil {
			return err
		}
		logger.Info("validator status set", "validator", id, "status", validator.StatusName(status))
		return nil
	})
}

// SetCommission updates a validator's commission. No accounting effect.
func (l *Ledger) SetCommission(caller arkos.Address, id validator.ID, bps uint16) error {
	return l.run("set_commission", func() error {
		if err := l.registry.Require(caller, auth.CapManager); err != nil {
			return err
		}
		return l.validators.SetCommission(id, bps)
	})
}

// SetValidatorMetadata replaces a validator's description. No accounting
// effect.
func (l *Ledger) SetValidatorMetadata(caller arkos.Address, id validator.ID, metadata string) error {
	return l.run("set_metadata", func() error {
		if err := l.registry.Require(caller, auth.CapManager); err != nil {
			return err
		}
		return l.validators.SetMetadata(id, metadata)
	})
}

// AddRewards funds a validator's reward pool from the caller's balance.
// Pools only ever decrease by exact payouts.
func (l *Ledger) AddRewards(caller arkos.Address, id validator.ID, amount *big.Int) error {
	return l.run("add_rewards", func() error {
		if err := l.registry.Require(caller, auth.CapOperator); err != nil {
			return err
		}
		if amount == nil || amount.Sign() <= 0 {
			return reverts.NewValidation("zero reward amount")
		}
		val, err := l.validators.GetExisting(id)
		if err != nil {
			return err
		}
		if err := l.debit(caller, amount); err != nil {
			return err
		}
		val.RewardPool.Add(val.RewardPool, amount)
		if err := l.validators.Save(id, val); err != nil {
			return err
		}
		logger.Info("rewards added", "validator", id, "amount", amount, "pool", val.RewardPool)
		return nil
	})
}

// SetMinStake updates the minimum stake amount.
func (l *Ledger) SetMinStake(caller arkos.Address, amount uint64) error {
	return l.run("set_min_stake", func() error {
		if err := l.registry.Require(caller, auth.CapAdmin); err != nil {
			return err
		}
		l.minStake.Set(amount)
		logger.Info("min stake set", "amount", amount)
		return nil
	})
}

// SetInterval updates one of the cooldown intervals.
func (l *Ledger) SetInterval(caller arkos.Address, kind timelock.Kind, seconds uint64) error {
	return l.run("set_interval", func() error {
		if err := l.registry.Require(caller, auth.CapAdmin); err != nil {
			return err
		}
		l.guard.SetInterval(kind, seconds)
		logger.Info("interval set", "kind", kind, "seconds", seconds)
		return nil
	})
}

// Pause blocks user-facing mutations. Operator completions and emergency
// requests stay available.
func (l *Ledger) Pause(caller arkos.Address) error {
	return l.run("pause", func() error {
		if err := l.registry.Require(caller, auth.CapEmergency); err != nil {
			return err
		}
		if err := l.paused.Put(true); err != nil {
			return err
		}
		logger.Warn("ledger paused", "by", caller)
		return nil
	})
}

// Unpause lifts the pause.
func (l *Ledger) Unpause(caller arkos.Address) error {
	return l.run("unpause", func() error {
		if err := l.registry.Require(caller, auth.CapEmergency); err != nil {
			return err
		}
		if err := l.paused.Put(false); err != nil {
			return err
		}
		logger.Warn("ledger unpaused", "by", caller)
		return nil
	})
}

// GrantRole adds capabilities to an account.
func (l *Ledger) GrantRole(caller, addr arkos.Address, caps auth.Capability) error {
	return l.run("grant_role", func() error {
		if err := l.registry.Require(caller, auth.CapAdmin); err != nil {
			return err
		}
		return l.registry.Grant(addr, caps)
	})
}

// RevokeRole removes capabilities from an account.
func (l *Ledger) RevokeRole(caller, addr arkos.Address, caps auth.Capability) error {
	return l.run("revoke_role", func() error {
		if err := l.registry.Require(caller, auth.CapAdmin); err != nil {
			return err
		}
		return l.registry.Revoke(addr, caps)
	})
}

func (l *Ledger) gaugeTotals() {
	if total, err := l.totalStaked.Get(); err == nil && total.IsInt64() {
		metricTotalStaked().Set(total.Int64())
	}
}
