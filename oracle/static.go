// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package oracle

import (
	"math/big"
	"sync"

	"github.com/arkos-network/stakehub/arkos"
)

// Static is an in-memory Source and Wrapper with fixed figures. It backs
// deployments without a live oracle and the test suites.
type Static struct {
	mu        sync.RWMutex
	price     *big.Int
	apr       uint32
	unbonding uint64
	rewards   map[string]*big.Int
}

// NewStatic creates a static source with a 1:1 price.
func NewStatic() *Static {
	return &Static{
		price:     new(big.Int).SetUint64(arkos.TokenUnit),
		apr:       500,
		unbonding: 86400,
		rewards:   make(map[string]*big.Int),
	}
}

// SetPrice replaces the reported price.
func (s *Static) SetPrice(price *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.price = new(big.Int).Set(price)
}

// SetRewards sets the claimable rewards reported for a delegation.
func (s *Static) SetRewards(user arkos.Address, validatorID string, amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rewards[user.String()+"/"+validatorID] = new(big.Int).Set(amount)
}

func (s *Static) CurrentPrice() (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return new(big.Int).Set(s.price), nil
}

func (s *Static) CurrentAPR() (uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apr, nil
}

func (s *Static) UnbondingPeriod() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unbonding, nil
}

func (s *Static) ClaimableRewards(user arkos.Address, validatorID string) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.rewards[user.String()+"/"+validatorID]; ok {
		return new(big.Int).Set(r), nil
	}
	return new(big.Int), nil
}

// Wrap converts native units to wrapped using the current price.
func (s *Static) Wrap(amount *big.Int) (*big.Int, error) {
	price, err := s.CurrentPrice()
	if err != nil {
		return nil, err
	}
	if err := CheckPrice(price); err != nil {
		return nil, err
	}
	wrapped := new(big.Int).Mul(amount, new(big.Int).SetUint64(arkos.TokenUnit))
	return wrapped.Div(wrapped, price), nil
}

// Unwrap converts wrapped units back to native using the current price.
func (s *Static) Unwrap(amount *big.Int) (*big.Int, error) {
	price, err := s.CurrentPrice()
	if err != nil {
		return nil, err
	}
	if err := CheckPrice(price); err != nil {
		return nil, err
	}
	native := new(big.Int).Mul(amount, price)
	return native.Div(native, new(big.Int).SetUint64(arkos.TokenUnit)), nil
}
