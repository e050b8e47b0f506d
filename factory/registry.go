package factory

import (
	"github.com/hashgate/hashgate"
	"github.com/hashgate/hashgate/errors"
	"github.com/hashgate/hashgate/escrow"
	"github.com/hashgate/hashgate/orm"
)

// Record maps a hashlock to the escrow deployed for it on this chain. A
// hashlock identifies one swap, and each chain carries exactly one of
// its legs, so the mapping is unique.
type Record struct {
	Escrow hashgate.Address
	Role   escrow.Role
}

var _ orm.Model = (*Record)(nil)

// Validate ensures the record is complete.
func (r *Record) Validate() error {
	if err := r.Escrow.Validate(); err != nil {
		return errors.Field("Escrow", err, "")
	}
	if err := r.Role.Validate(); err != nil {
		return errors.Field("Role", err, "")
	}
	return nil
}

// Marshal returns the deterministic binary encoding of the record.
func (r *Record) Marshal() ([]byte, error) {
	out := make([]byte, 0, 1+len(r.Escrow))
	out = append(out, byte(r.Role))
	return append(out, r.Escrow...), nil
}

// Unmarshal loads the record from its binary encoding.
func (r *Record) Unmarshal(data []byte) error {
	if len(data) != 1+hashgate.AddressLength {
		return errors.Wrap(errors.ErrInput, "registry record: bad length")
	}
	r.Role = escrow.Role(data[0])
	r.Escrow = hashgate.Address(data[1:]).Clone()
	return nil
}

// Registry keeps the hashlock to escrow mapping.
type Registry struct {
	bucket orm.Bucket
}

// NewRegistry returns a registry stored in the "hashlock" bucket.
func NewRegistry() Registry {
	return Registry{bucket: orm.NewBucket("hashlock")}
}

// Register stores the record for given hashlock. A second registration
// under the same hashlock fails with ErrDuplicate.
func (r Registry) Register(db hashgate.KVStore, hashlock [escrow.HashlockSize]byte, rec *Record) error {
	if r.bucket.Has(db, hashlock[:]) {
		return errors.Wrapf(errors.ErrDuplicate, "hashlock %X already has an escrow", hashlock)
	}
	return r.bucket.Save(db, hashlock[:], rec)
}

// Has returns true when an escrow is already registered for the
// hashlock.
func (r Registry) Has(db hashgate.ReadOnlyKVStore, hashlock [escrow.HashlockSize]byte) bool {
	return r.bucket.Has(db, hashlock[:])
}

// Get returns the record for given hashlock, ErrNotFound when no escrow
// was deployed for it.
func (r Registry) Get(db hashgate.ReadOnlyKVStore, hashlock [escrow.HashlockSize]byte) (*Record, error) {
	var rec Record
	if err := r.bucket.Get(db, hashlock[:], &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// resolverMark is the value stored per whitelisted resolver address. The
// address is the key, the value only marks presence.
type resolverMark struct{}

var _ orm.Model = (*resolverMark)(nil)

func (resolverMark) Validate() error { return nil }

func (resolverMark) Marshal() ([]byte, error) { return []byte{1}, nil }

func (resolverMark) Unmarshal(data []byte) error { return nil }

func newResolverBucket() orm.Bucket {
	return orm.NewBucket("resolver")
}
