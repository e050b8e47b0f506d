package escrow

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/hashgate/hashgate"
	"github.com/hashgate/hashgate/errors"
	"github.com/hashgate/hashgate/gatetest"
	"github.com/hashgate/hashgate/gatetest/assert"
	"github.com/hashgate/hashgate/timelock"
)

func validImmutables() *Immutables {
	var orderHash [32]byte
	copy(orderHash[:], []byte("order-1"))
	secret := [SecretSize]byte{1, 2, 3}
	return &Immutables{
		OrderHash:     orderHash,
		Hashlock:      Hash(secret[:]),
		Maker:         hashgate.NewCondition("gatetest", "maker", []byte("m")).Address(),
		Taker:         hashgate.NewCondition("gatetest", "taker", []byte("t")).Address(),
		Token:         hashgate.NewCondition("gatetest", "token", []byte("x")).Address(),
		Amount:        uint256.NewInt(100),
		SafetyDeposit: uint256.NewInt(1),
		Timelocks: timelock.Pack(timelock.Offsets{
			SrcCancellation:       3600,
			SrcPublicCancellation: 3660,
			DstWithdrawal:         1800,
			DstPublicWithdrawal:   1860,
			DstCancellation:       3600,
		}).WithDeployedAt(1700000000),
	}
}

func TestImmutablesValidate(t *testing.T) {
	cases := map[string]struct {
		mutate  func(*Immutables)
		wantErr *errors.Error
	}{
		"valid": {
			mutate: func(*Immutables) {},
		},
		"zero hashlock": {
			mutate:  func(i *Immutables) { i.Hashlock = [HashlockSize]byte{} },
			wantErr: errors.ErrEmpty,
		},
		"missing maker": {
			mutate:  func(i *Immutables) { i.Maker = nil },
			wantErr: errors.ErrInput,
		},
		"truncated taker": {
			mutate:  func(i *Immutables) { i.Taker = i.Taker[:10] },
			wantErr: errors.ErrInput,
		},
		"zero amount": {
			mutate:  func(i *Immutables) { i.Amount = new(uint256.Int) },
			wantErr: errors.ErrAmount,
		},
		"nil amount": {
			mutate:  func(i *Immutables) { i.Amount = nil },
			wantErr: errors.ErrAmount,
		},
		"nil safety deposit": {
			mutate:  func(i *Immutables) { i.SafetyDeposit = nil },
			wantErr: errors.ErrEmpty,
		},
		"zero safety deposit is allowed": {
			mutate: func(i *Immutables) { i.SafetyDeposit = new(uint256.Int) },
		},
		"oversized parameters blob": {
			mutate:  func(i *Immutables) { i.Parameters = make([]byte, maxParametersSize+1) },
			wantErr: errors.ErrInput,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			imm := validImmutables()
			tc.mutate(imm)
			err := imm.Validate()
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
		})
	}
}

func TestDigestCommitsToEveryField(t *testing.T) {
	base := validImmutables().Digest()

	cases := map[string]func(*Immutables){
		"order hash": func(i *Immutables) { i.OrderHash[0]++ },
		"hashlock":   func(i *Immutables) { i.Hashlock[0]++ },
		"maker":      func(i *Immutables) { i.Maker = gatetest.NewAddress() },
		"taker":      func(i *Immutables) { i.Taker = gatetest.NewAddress() },
		"token":      func(i *Immutables) { i.Token = gatetest.NewAddress() },
		"amount":     func(i *Immutables) { i.Amount = uint256.NewInt(101) },
		"deposit":    func(i *Immutables) { i.SafetyDeposit = uint256.NewInt(2) },
		"timelocks": func(i *Immutables) {
			i.Timelocks = i.Timelocks.WithDeployedAt(1700000001)
		},
		"parameters": func(i *Immutables) { i.Parameters = []byte{1} },
	}
	for testName, mutate := range cases {
		t.Run(testName, func(t *testing.T) {
			imm := validImmutables()
			mutate(imm)
			if imm.Digest().Equals(base) {
				t.Fatal("digest did not change")
			}
		})
	}
}

func TestDigestIsFrameSensitive(t *testing.T) {
	// moving a byte between neighbouring variable length fields must
	// change the digest, or the commitment would be malleable
	a := validImmutables()
	a.Parameters = []byte{1, 2, 3}

	b := validImmutables()
	b.Parameters = []byte{1, 2, 3, 0}

	if a.Digest().Equals(b.Digest()) {
		t.Fatal("digest must commit to field boundaries")
	}
}

func TestImmutablesMarshalRoundTrip(t *testing.T) {
	imm := validImmutables()
	imm.Parameters = []byte("opaque")

	raw, err := imm.Marshal()
	assert.Nil(t, err)

	var restored Immutables
	assert.Nil(t, restored.Unmarshal(raw))
	assert.Equal(t, imm.Digest(), restored.Digest())
	assert.Equal(t, imm.Amount, restored.Amount)
	assert.Equal(t, imm.Parameters, restored.Parameters)
	if !imm.Timelocks.Equals(restored.Timelocks) {
		t.Fatal("timelocks differ")
	}
}
