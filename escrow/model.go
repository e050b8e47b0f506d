package escrow

import (
	"fmt"

	"github.com/hashgate/hashgate"
	"github.com/hashgate/hashgate/errors"
	"github.com/hashgate/hashgate/orm"
)

// Role tells which leg of the swap an escrow secures.
type Role uint8

const (
	// RoleSource escrows the maker funds on the chain the order
	// originates from.
	RoleSource Role = 1
	// RoleDestination escrows the taker liquidity on the counterpart
	// chain.
	RoleDestination Role = 2
)

func (r Role) String() string {
	switch r {
	case RoleSource:
		return "source"
	case RoleDestination:
		return "destination"
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// label is the condition type tag of this role, part of the address
// derivation input.
func (r Role) label() string {
	switch r {
	case RoleSource:
		return "src"
	case RoleDestination:
		return "dst"
	}
	return "invalid"
}

// Validate returns an error for unknown roles.
func (r Role) Validate() error {
	if r != RoleSource && r != RoleDestination {
		return errors.Wrapf(errors.ErrInput, "unknown role %d", r)
	}
	return nil
}

// State is the lifecycle state of an escrow. Transitions are one way,
// terminal states are mutually exclusive.
type State uint8

const (
	StateActive    State = 1
	StateWithdrawn State = 2
	StateCancelled State = 3
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateWithdrawn:
		return "withdrawn"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Condition returns the content-addressed identity of an escrow: a pure
// function of the factory identity, the leg role and the immutables
// digest. Two independent processes computing from identical inputs
// obtain identical addresses without communicating.
func Condition(factoryID hashgate.Address, role Role, digest Digest) hashgate.Condition {
	data := make([]byte, 0, len(factoryID)+len(digest))
	data = append(data, factoryID...)
	data = append(data, digest[:]...)
	return hashgate.NewCondition("escrow", role.label(), data)
}

// NewAddress derives the deployment address of an escrow from its
// parameters alone.
func NewAddress(factoryID hashgate.Address, role Role, digest Digest) hashgate.Address {
	return Condition(factoryID, role, digest).Address()
}

// Escrow is the persisted state of one deployed swap leg: the role, the
// lifecycle state and the digest of the frozen parameters. The parameters
// themselves are not stored; every caller must present them again.
type Escrow struct {
	Role   Role
	State  State
	Digest Digest
}

var _ orm.Model = (*Escrow)(nil)

// Validate ensures the escrow record is complete.
func (e *Escrow) Validate() error {
	if err := e.Role.Validate(); err != nil {
		return errors.Field("Role", err, "")
	}
	switch e.State {
	case StateActive, StateWithdrawn, StateCancelled:
	default:
		return errors.Field("State", errors.ErrState, "unknown state %d", e.State)
	}
	var zero Digest
	if e.Digest == zero {
		return errors.Field("Digest", errors.ErrEmpty, "digest is required")
	}
	return nil
}

// Marshal returns the deterministic binary encoding of the record.
func (e *Escrow) Marshal() ([]byte, error) {
	out := make([]byte, 2, 2+len(e.Digest))
	out[0] = byte(e.Role)
	out[1] = byte(e.State)
	out = append(out, e.Digest[:]...)
	return out, nil
}

// Unmarshal loads the record from its binary encoding.
func (e *Escrow) Unmarshal(data []byte) error {
	if len(data) != 2+len(e.Digest) {
		return errors.Wrap(errors.ErrInput, "escrow: bad length")
	}
	e.Role = Role(data[0])
	e.State = State(data[1])
	copy(e.Digest[:], data[2:])
	return nil
}

// NewBucket returns the bucket keeping all deployed escrows, keyed by
// their derived address.
func NewBucket() orm.Bucket {
	return orm.NewBucket("escrow")
}
