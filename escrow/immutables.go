package escrow

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/holiman/uint256"

	"github.com/hashgate/hashgate"
	"github.com/hashgate/hashgate/errors"
	"github.com/hashgate/hashgate/timelock"
)

const (
	// HashlockSize is the size of the hashlock commitment in bytes.
	HashlockSize = 32
	// SecretSize is the exact size of a withdrawal secret in bytes.
	SecretSize = 32
	// maxParametersSize bounds the opaque parameters blob.
	maxParametersSize = 4096
)

// Hash computes the hashlock commitment of a secret.
func Hash(secret []byte) [HashlockSize]byte {
	return sha256.Sum256(secret)
}

// Digest is the canonical commitment over a full Immutables value.
type Digest [32]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Equals returns true when both digests commit to the same parameters.
func (d Digest) Equals(other Digest) bool {
	return d == other
}

// Immutables is the frozen parameter record of one escrow instance. It is
// created by the factory at swap initiation and never mutated. Its digest
// is both the address-derivation salt of the escrow and the integrity
// check every later call is validated against.
type Immutables struct {
	// OrderHash ties the escrow to the originating order.
	OrderHash [32]byte

	// Hashlock is the commitment to the withdrawal secret, shared by
	// both legs of one swap.
	Hashlock [HashlockSize]byte

	// Maker funds the source leg and receives the destination leg.
	Maker hashgate.Address

	// Taker is the resolver completing both legs.
	Taker hashgate.Address

	// Token and Amount describe the locked value of this leg.
	Token  hashgate.Address
	Amount *uint256.Int

	// SafetyDeposit is the native-token side payment rewarding whoever
	// executes the closing transition.
	SafetyDeposit *uint256.Int

	// Timelocks is the packed stage schedule, deployment timestamp
	// included.
	Timelocks timelock.Schedule

	// Parameters is an opaque blob interpreted by the order protocol,
	// carried only so the digest commits to it.
	Parameters []byte
}

// Validate ensures the parameter set could describe a real escrow.
func (i *Immutables) Validate() error {
	var zero [HashlockSize]byte
	if i.Hashlock == zero {
		return errors.Field("Hashlock", errors.ErrEmpty, "hashlock is required")
	}
	if err := i.Maker.Validate(); err != nil {
		return errors.Field("Maker", err, "invalid address")
	}
	if err := i.Taker.Validate(); err != nil {
		return errors.Field("Taker", err, "invalid address")
	}
	if err := i.Token.Validate(); err != nil {
		return errors.Field("Token", err, "invalid address")
	}
	if i.Amount == nil || i.Amount.IsZero() {
		return errors.Field("Amount", errors.ErrAmount, "amount must be positive")
	}
	if i.SafetyDeposit == nil {
		return errors.Field("SafetyDeposit", errors.ErrEmpty, "safety deposit is required, zero is allowed")
	}
	if len(i.Parameters) > maxParametersSize {
		return errors.Field("Parameters", errors.ErrInput, "blob exceeds %d bytes", maxParametersSize)
	}
	return nil
}

// Digest computes the canonical commitment over every field. Each field
// is length prefixed before hashing, so two parameter sets that differ
// only in how bytes are split between neighbouring fields can never
// produce the same digest.
func (i *Immutables) Digest() Digest {
	h := sha256.New()
	appendField(h, i.OrderHash[:])
	appendField(h, i.Hashlock[:])
	appendField(h, i.Maker)
	appendField(h, i.Taker)
	appendField(h, i.Token)
	appendField(h, amountBytes(i.Amount))
	appendField(h, amountBytes(i.SafetyDeposit))
	word := i.Timelocks.Word()
	appendField(h, word[:])
	appendField(h, i.Parameters)

	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

type byteWriter interface {
	Write(p []byte) (int, error)
}

func appendField(w byteWriter, data []byte) {
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(data)))
	w.Write(size[:])
	w.Write(data)
}

func amountBytes(a *uint256.Int) []byte {
	if a == nil {
		a = new(uint256.Int)
	}
	b := a.Bytes32()
	return b[:]
}

// Marshal returns the deterministic binary encoding of the parameters,
// framed exactly as the digest input so encoding and commitment can never
// drift apart.
func (i *Immutables) Marshal() ([]byte, error) {
	var out fieldBuffer
	appendField(&out, i.OrderHash[:])
	appendField(&out, i.Hashlock[:])
	appendField(&out, i.Maker)
	appendField(&out, i.Taker)
	appendField(&out, i.Token)
	appendField(&out, amountBytes(i.Amount))
	appendField(&out, amountBytes(i.SafetyDeposit))
	word := i.Timelocks.Word()
	appendField(&out, word[:])
	appendField(&out, i.Parameters)
	return out.data, nil
}

// Unmarshal loads the parameters from their binary encoding.
func (i *Immutables) Unmarshal(data []byte) error {
	fields, err := splitFields(data, 9)
	if err != nil {
		return errors.Wrap(err, "immutables")
	}
	if len(fields[0]) != 32 || len(fields[1]) != HashlockSize {
		return errors.Wrap(errors.ErrInput, "immutables: bad hash size")
	}
	copy(i.OrderHash[:], fields[0])
	copy(i.Hashlock[:], fields[1])
	i.Maker = hashgate.Address(fields[2]).Clone()
	i.Taker = hashgate.Address(fields[3]).Clone()
	i.Token = hashgate.Address(fields[4]).Clone()
	i.Amount = new(uint256.Int).SetBytes(fields[5])
	i.SafetyDeposit = new(uint256.Int).SetBytes(fields[6])
	if len(fields[7]) != 32 {
		return errors.Wrap(errors.ErrInput, "immutables: bad timelock word")
	}
	var word [32]byte
	copy(word[:], fields[7])
	i.Timelocks = timelock.FromWord(word)
	i.Parameters = append([]byte{}, fields[8]...)
	if len(i.Parameters) == 0 {
		i.Parameters = nil
	}
	return nil
}

type fieldBuffer struct {
	data []byte
}

func (b *fieldBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func splitFields(data []byte, want int) ([][]byte, error) {
	fields := make([][]byte, 0, want)
	for len(data) > 0 {
		if len(data) < 4 {
			return nil, errors.Wrap(errors.ErrInput, "truncated field header")
		}
		size := binary.BigEndian.Uint32(data[:4])
		data = data[4:]
		if uint32(len(data)) < size {
			return nil, errors.Wrap(errors.ErrInput, "truncated field payload")
		}
		fields = append(fields, data[:size])
		data = data[size:]
	}
	if len(fields) != want {
		return nil, errors.Wrapf(errors.ErrInput, "want %d fields, got %d", want, len(fields))
	}
	return fields, nil
}
