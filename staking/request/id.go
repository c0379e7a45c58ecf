// Copyright (c) 2025 The Arkos StakeHub developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package request

import (
	"encoding/binary"
	"math/big"

	"github.com/arkos-network/stakehub/arkos"
	"github.com/arkos-network/stakehub/staking/reverts"
	"github.com/arkos-network/stakehub/staking/validator"
)

// Kind tags the operation a request settles.
type Kind uint16

const (
	KindStake Kind = iota + 1
	KindUnstake
	KindClaimRewards
)

// String implements stringer.
func (k Kind) String() string {
	switch k {
	case KindStake:
		return "stake"
	case KindUnstake:
		return "unstake"
	case KindClaimRewards:
		return "claim-rewards"
	default:
		return "unknown"
	}
}

// ID is the composite request identifier. The four fields make an id unique
// and introspectable: the kind tag, the creation timestamp, a
// collision-resistant nonce derived from the request contents, and a
// monotonically increasing sequence that disambiguates identical requests
// within the same second.
type ID struct {
	Kind      Kind
	Timestamp uint32
	Nonce     uint64
	Sequence  uint32
}

// NewID composes an identifier. The nonce is the leading 8 bytes of
// Blake2b(user, amount, validator).
func NewID(kind Kind, now uint64, user arkos.Address, amount *big.Int, id validator.ID, sequence uint32) ID {
	digest := arkos.Blake2b(user.Bytes(), amount.Bytes(), id.Bytes())
	return ID{
		Kind:      kind,
		Timestamp: uint32(now),
		Nonce:     binary.BigEndian.Uint64(digest[:8]),
		Sequence:  sequence,
	}
}

// Bytes32 packs the identifier into its 256-bit wire form:
// kind (2 bytes) | timestamp (4) | nonce (8) | sequence (4) | zero padding.
func (id ID) Bytes32() (b arkos.Bytes32) {
	binary.BigEndian.PutUint16(b[0:2], uint16(id.Kind))
	binary.BigEndian.PutUint32(b[2:6], id.Timestamp)
	binary.BigEndian.PutUint64(b[6:14], id.Nonce)
	binary.BigEndian.PutUint32(b[14:18], id.Sequence)
	return
}

// Bytes returns the byte form, for slot derivation.
func (id ID) Bytes() []byte {
	b := id.Bytes32()
	return b[:]
}

// String implements stringer.
func (id ID) String() string {
	return id.Bytes32().String()
}

// ParseID decodes the 256-bit wire form of an identifier.
func ParseID(b arkos.Bytes32) (ID, error) {
	for _, pad := range b[18:] {
		if pad != 0 {
			return ID{}, reverts.NewValidation("malformed request id")
		}
	}
	id := ID{
		Kind:      Kind(binary.BigEndian.Uint16(b[0:2])),
		Timestamp: binary.BigEndian.Uint32(b[2:6]),
		Nonce:     binary.BigEndian.Uint64(b[6:14]),
		Sequence:  binary.BigEndian.Uint32(b[14:18]),
	}
	switch id.Kind {
	case KindStake, KindUnstake, KindClaimRewards:
	default:
		return ID{}, reverts.NewValidation("malformed request id")
	}
	return id, nil
}
