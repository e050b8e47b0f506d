package factory

import (
	"math"

	"github.com/holiman/uint256"

	"github.com/hashgate/hashgate"
	"github.com/hashgate/hashgate/errors"
	"github.com/hashgate/hashgate/escrow"
	"github.com/hashgate/hashgate/timelock"
)

// publicDelay is the fixed gap, in seconds, between a private stage and
// its derived public counterpart in the fill path.
const publicDelay = 60

// fillParamsSize is five 256-bit words.
const fillParamsSize = 5 * 32

// FillParams is the compact destination-side data a filled order carries
// for the source escrow: everything the taker committed to about the
// counterpart leg, packed into five 256-bit words.
type FillParams struct {
	// Hashlock is the secret commitment shared by both legs.
	Hashlock [escrow.HashlockSize]byte

	// DstChainID identifies the counterpart chain.
	DstChainID *uint256.Int

	// DstToken is the token the taker locks on the counterpart chain.
	DstToken hashgate.Address

	// SrcSafetyDeposit and DstSafetyDeposit are the native deposits of
	// the two legs, packed as dst<<128 | src on the wire.
	SrcSafetyDeposit *uint256.Int
	DstSafetyDeposit *uint256.Int

	// SrcCancellation and DstWithdrawal are absolute unix instants,
	// packed as srcCancellation<<128 | dstWithdrawal on the wire.
	SrcCancellation hashgate.UnixTime
	DstWithdrawal   hashgate.UnixTime
}

// DecodeFillParams parses the packed wire form. The layout is five
// 32-byte big-endian words: hashlock, destination chain id, destination
// token (low 20 bytes), packed deposits, packed timelocks.
func DecodeFillParams(data []byte) (*FillParams, error) {
	if len(data) != fillParamsSize {
		return nil, errors.Wrapf(errors.ErrInput, "fill parameters must be %d bytes", fillParamsSize)
	}
	var p FillParams
	copy(p.Hashlock[:], data[:32])
	p.DstChainID = new(uint256.Int).SetBytes(data[32:64])

	for _, b := range data[64 : 96-hashgate.AddressLength] {
		if b != 0 {
			return nil, errors.Wrap(errors.ErrInput, "destination token word has dirty padding")
		}
	}
	p.DstToken = hashgate.Address(data[96-hashgate.AddressLength : 96]).Clone()

	deposits := new(uint256.Int).SetBytes(data[96:128])
	p.DstSafetyDeposit, p.SrcSafetyDeposit = split128(deposits)

	instants := new(uint256.Int).SetBytes(data[128:160])
	srcCancel, dstWithdraw := split128(instants)
	if !srcCancel.IsUint64() || !dstWithdraw.IsUint64() {
		return nil, errors.Wrap(errors.ErrInput, "timelock instant out of range")
	}
	p.SrcCancellation = hashgate.UnixTime(srcCancel.Uint64())
	p.DstWithdrawal = hashgate.UnixTime(dstWithdraw.Uint64())
	return &p, nil
}

// Encode returns the packed wire form of the parameters, the inverse of
// DecodeFillParams.
func (p *FillParams) Encode() []byte {
	out := make([]byte, fillParamsSize)
	copy(out[:32], p.Hashlock[:])
	chain := p.DstChainID.Bytes32()
	copy(out[32:64], chain[:])
	copy(out[96-len(p.DstToken):96], p.DstToken)
	deposits := join128(p.DstSafetyDeposit, p.SrcSafetyDeposit).Bytes32()
	copy(out[96:128], deposits[:])
	instants := join128(
		new(uint256.Int).SetUint64(uint64(p.SrcCancellation)),
		new(uint256.Int).SetUint64(uint64(p.DstWithdrawal)),
	).Bytes32()
	copy(out[128:160], instants[:])
	return out
}

// Fill describes a completed order fill: who traded what on this chain,
// plus the packed destination-side parameters. Amount is what the maker
// gave up on this chain, TakingAmount is what the taker owes on the
// counterpart chain.
type Fill struct {
	OrderHash    [32]byte
	Maker        hashgate.Address
	Taker        hashgate.Address
	Token        hashgate.Address
	Amount       *uint256.Int
	TakingAmount *uint256.Int
	Extra        []byte
}

// Complement is the destination-side obligation derived from a fill:
// what the taker must lock on the counterpart chain, and by when, for
// the swap to complete.
type Complement struct {
	DstChainID    *uint256.Int
	DstToken      hashgate.Address
	Amount        *uint256.Int
	SafetyDeposit *uint256.Int

	// Withdrawal is the instant the destination withdrawal window opens,
	// Cancellation the instant both legs become cancellable.
	Withdrawal   hashgate.UnixTime
	Cancellation hashgate.UnixTime
}

// OnFillCompleted is the order-protocol callback deploying the source
// escrow after a fill. The maker funds are pulled into the escrow, the
// native safety deposit is pulled from the taker. The withdrawal window
// opens immediately; the cancellation instants are taken verbatim from
// the packed parameters and converted to offsets from the deployment
// timestamp. Returns the deployed escrow address and the destination
// complement the taker must now produce on the counterpart chain.
func (f *Factory) OnFillCompleted(ctx hashgate.Context, db hashgate.CacheableKVStore, fill *Fill) (hashgate.Address, *Complement, error) {
	wrap := db.CacheWrap()
	addr, comp, err := f.onFillCompleted(ctx, wrap, fill)
	return addr, comp, finish(wrap, err)
}

func (f *Factory) onFillCompleted(ctx hashgate.Context, db hashgate.KVStore, fill *Fill) (hashgate.Address, *Complement, error) {
	if err := f.checkNotPaused(db); err != nil {
		return nil, nil, err
	}
	if !f.auth.HasAddress(ctx, fill.Taker) {
		return nil, nil, errors.Wrap(escrow.ErrInvalidCaller, "fill completion is reported by the taker")
	}
	if err := f.checkResolver(db, fill.Taker); err != nil {
		return nil, nil, err
	}
	if fill.TakingAmount == nil || fill.TakingAmount.IsZero() {
		return nil, nil, errors.Wrap(errors.ErrAmount, "taking amount must be positive")
	}
	params, err := DecodeFillParams(fill.Extra)
	if err != nil {
		return nil, nil, err
	}
	if f.registry.Has(db, params.Hashlock) {
		return nil, nil, errors.Wrapf(errors.ErrDuplicate, "hashlock %X already has an escrow", params.Hashlock)
	}

	now := hashgate.MustBlockTime(ctx)
	schedule, err := fillSchedule(params, now)
	if err != nil {
		return nil, nil, err
	}

	imm := &escrow.Immutables{
		OrderHash:     fill.OrderHash,
		Hashlock:      params.Hashlock,
		Maker:         fill.Maker,
		Taker:         fill.Taker,
		Token:         fill.Token,
		Amount:        fill.Amount,
		SafetyDeposit: params.SrcSafetyDeposit,
		Timelocks:     schedule,
		Parameters:    append([]byte{}, fill.Extra...),
	}
	if err := imm.Validate(); err != nil {
		return nil, nil, err
	}
	addr, err := f.deploy(ctx, db, imm, escrow.RoleSource, fill.Maker, now)
	if err != nil {
		return nil, nil, err
	}
	comp := &Complement{
		DstChainID:    new(uint256.Int).Set(params.DstChainID),
		DstToken:      params.DstToken.Clone(),
		Amount:        new(uint256.Int).Set(fill.TakingAmount),
		SafetyDeposit: new(uint256.Int).Set(params.DstSafetyDeposit),
		Withdrawal:    params.DstWithdrawal,
		Cancellation:  params.SrcCancellation,
	}
	return addr, comp, nil
}

// fillSchedule derives the full stage schedule from the two absolute
// instants a fill carries. Withdrawals on the source side open at
// deployment, public stages trail their private stage by a fixed delay,
// and the destination cancellation is aligned with the source one so
// neither side can be cancelled while the other is still withdrawable.
func fillSchedule(params *FillParams, now hashgate.UnixTime) (timelock.Schedule, error) {
	srcCancel, err := stageOffset(params.SrcCancellation, now, "source cancellation")
	if err != nil {
		return timelock.Schedule{}, err
	}
	dstWithdraw, err := stageOffset(params.DstWithdrawal, now, "destination withdrawal")
	if err != nil {
		return timelock.Schedule{}, err
	}
	schedule := timelock.Pack(timelock.Offsets{
		SrcWithdrawal:         0,
		SrcPublicWithdrawal:   0,
		SrcCancellation:       srcCancel,
		SrcPublicCancellation: srcCancel + publicDelay,
		DstWithdrawal:         dstWithdraw,
		DstPublicWithdrawal:   dstWithdraw + publicDelay,
		DstCancellation:       srcCancel,
	}).WithDeployedAt(now)
	if err := schedule.Wellformed(); err != nil {
		return timelock.Schedule{}, errors.Wrap(err, "derived schedule")
	}
	return schedule, nil
}

// stageOffset converts an absolute instant to a packable offset from
// now, leaving headroom for the derived public stage.
func stageOffset(at, now hashgate.UnixTime, desc string) (uint32, error) {
	if at < now {
		return 0, errors.Wrapf(escrow.ErrInvalidTime, "%s instant %d is in the past", desc, at)
	}
	offset := uint64(at - now)
	if offset > math.MaxUint32-publicDelay {
		return 0, errors.Wrapf(escrow.ErrInvalidTime, "%s instant %d is out of range", desc, at)
	}
	return uint32(offset), nil
}

var max128 = func() *uint256.Int {
	one := uint256.NewInt(1)
	m := new(uint256.Int).Lsh(one, 128)
	return m.SubUint64(m, 1)
}()

func split128(word *uint256.Int) (hi, lo *uint256.Int) {
	hi = new(uint256.Int).Rsh(word, 128)
	lo = new(uint256.Int).And(word, max128)
	return hi, lo
}

func join128(hi, lo *uint256.Int) *uint256.Int {
	out := new(uint256.Int).Lsh(hi, 128)
	return out.Or(out, new(uint256.Int).And(lo, max128))
}
