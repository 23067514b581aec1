package campaign

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"math/big"
)

// MaxIDLength bounds client-supplied campaign identifiers.
const MaxIDLength = 64

// ID identifies a campaign. Sequence-assigned identifiers are the 8-byte
// big-endian encoding of the counter value; client-supplied identifiers are
// opaque bytes.
type ID []byte

// SequenceID encodes a counter value as a campaign identifier.
func SequenceID(seq uint64) ID {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return ID(buf)
}

// Sequence decodes a sequence-assigned identifier.
func (id ID) Sequence() (uint64, bool) {
	if len(id) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(id), true
}

func (id ID) String() string { return hex.EncodeToString(id) }

func (id ID) Equal(other ID) bool { return bytes.Equal(id, other) }

func (id ID) Clone() ID {
	if id == nil {
		return nil
	}
	return append(ID(nil), id...)
}

// PoolScope is the pending-reward scope used by the shared-pool topology.
var PoolScope = ID(nil)

// Status tracks the approval state of a stored campaign. Rejected campaigns
// are removed from the store, so there is no rejected status.
type Status uint8

const (
	StatusPending Status = iota
	StatusApproved
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	default:
		return "unknown"
	}
}

// BondState records what has happened to the client's bond.
type BondState uint8

const (
	BondReserved BondState = iota
	BondReleased
	BondSlashed
)

func (s BondState) Valid() bool {
	switch s {
	case BondReserved, BondReleased, BondSlashed:
		return true
	default:
		return false
	}
}

func (s BondState) String() string {
	switch s {
	case BondReserved:
		return "reserved"
	case BondReleased:
		return "released"
	case BondSlashed:
		return "slashed"
	default:
		return "unknown"
	}
}

// Campaign is the stored record of a client-funded reward budget.
type Campaign struct {
	ID        ID
	Client    [20]byte
	Value     *big.Int
	Bond      *big.Int
	BondState BondState
	Status    Status
	CreatedAt uint64
	// Allocated is the running total credited to beneficiaries.
	Allocated *big.Int
}

// Clone returns a deep copy of the campaign so callers can safely mutate the
// copy without affecting the stored instance.
func (c *Campaign) Clone() *Campaign {
	if c == nil {
		return nil
	}
	out := *c
	out.ID = c.ID.Clone()
	out.Value = cloneBigInt(c.Value)
	out.Bond = cloneBigInt(c.Bond)
	out.Allocated = cloneBigInt(c.Allocated)
	return &out
}

// Remaining returns the part of Value not yet allocated.
func (c *Campaign) Remaining() *big.Int {
	if c == nil {
		return big.NewInt(0)
	}
	out := new(big.Int).Sub(cloneBigInt(c.Value), cloneBigInt(c.Allocated))
	if out.Sign() < 0 {
		return big.NewInt(0)
	}
	return out
}

// PendingReward is an allocated but unclaimed amount. AllocatedAt is the
// height of the most recent allocation and gates the whole balance.
type PendingReward struct {
	AllocatedAt uint64
	Amount      *big.Int
}

func (p *PendingReward) Clone() *PendingReward {
	if p == nil {
		return nil
	}
	return &PendingReward{AllocatedAt: p.AllocatedAt, Amount: cloneBigInt(p.Amount)}
}

// ClaimableAt returns the first height at which the reward can be claimed.
func (p *PendingReward) ClaimableAt(duration uint64) uint64 {
	if p == nil {
		return duration
	}
	at := p.AllocatedAt + duration
	if at < p.AllocatedAt {
		return ^uint64(0)
	}
	return at
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
