// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package request

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/arkos-network/stakehub/arkos"
	"github.com/arkos-network/stakehub/staking/reverts"
	"github.com/arkos-network/stakehub/staking/validator"
	"github.com/arkos-network/stakehub/storage"
)

// Status is the lifecycle state of a request.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusPending
	StatusFulfilled
	StatusFailed
)

// String implements stringer.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFulfilled:
		return "fulfilled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Request tracks one asynchronous user action awaiting operator fulfillment.
// After creation only Status and StatusReason mutate; a request is never
// reused and never deleted, only compacted long after completion.
type Request struct {
	User         arkos.Address
	Amount       *big.Int
	Validator    validator.ID
	Kind         uint16
	Status       uint8
	CreatedAt    uint64
	StatusReason string
}

// IsEmpty returns whether the record can be treated as nonexistent.
func (r *Request) IsEmpty() bool {
	return r == nil || Status(r.Status) == StatusUnknown
}

var (
	slotRequests = storage.NameToSlot("requests")
	slotSequence = storage.NameToSlot("requests-sequence")
)

// Service creates, tracks and fulfills asynchronous requests.
type Service struct {
	requests *storage.Mapping[ID, *Request]
	sequence *storage.Raw[uint32]
}

// New creates the request service.
func New(sctx *storage.Context) *Service {
	return &Service{
		requests: storage.NewMapping[ID, *Request](sctx, slotRequests),
		sequence: storage.NewRaw[uint32](sctx, slotSequence),
	}
}

// Create records a new pending request and returns its identifier.
func (s *Service) Create(user arkos.Address, amount *big.Int, valID validator.ID, kind Kind, now uint64) (ID, error) {
	seq, err := s.nextSequence()
	if err != nil {
		return ID{}, err
	}

	id := NewID(kind, now, user, amount, valID, seq)
	entry := &Request{
		User:      user,
		Amount:    new(big.Int).Set(amount),
		Validator: valID,
		Kind:      uint16(kind),
		Status:    uint8(StatusPending),
		CreatedAt: now,
	}
	if err := s.requests.Set(id, entry); err != nil {
		return ID{}, errors.Wrap(err, "failed to set request")
	}
	return id, nil
}

// Get returns the request, an empty record if unknown.
func (s *Service) Get(id ID) (*Request, error) {
	r, err := s.requests.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get request")
	}
	if r == nil {
		r = new(Request)
	}
	if r.Amount == nil {
		r.Amount = new(big.Int)
	}
	return r, nil
}

// GetExisting returns the request, rejecting unknown ids.
func (s *Service) GetExisting(id ID) (*Request, error) {
	r, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if r.IsEmpty() {
		return nil, reverts.NewState("unknown request " + id.String())
	}
	return r, nil
}

// Fulfill performs the single authorized terminal transition
// Pending -> Fulfilled/Failed. Re-submitting a completed id fails with a
// state revert, which makes double fulfillment impossible.
func (s *Service) Fulfill(id ID, status Status, reason string) (*Request, error) {
	if status != StatusFulfilled && status != StatusFailed {
		return nil, reverts.NewValidation("status is not terminal")
	}

	entry, err := s.GetExisting(id)
	if err != nil {
		return nil, err
	}
	if Status(entry.Status) != StatusPending {
		return nil, reverts.NewState("request is not pending")
	}

	entry.Status = uint8(status)
	entry.StatusReason = reason
	if err := s.requests.Set(id, entry); err != nil {
		return nil, errors.Wrap(err, "failed to set request")
	}
	return entry, nil
}

// Compact zeroes a long-completed request for storage hygiene.
// Pending requests cannot be compacted.
func (s *Service) Compact(id ID) error {
	entry, err := s.GetExisting(id)
	if err != nil {
		return err
	}
	if Status(entry.Status) == StatusPending {
		return reverts.NewState("request is still pending")
	}
	return s.requests.Delete(id)
}

func (s *Service) nextSequence() (uint32, error) {
	seq, err := s.sequence.Get()
	if err != nil {
		return 0, err
	}
	seq++
	if err := s.sequence.Put(seq); err != nil {
		return 0, err
	}
	return seq, nil
}
