/*
Package timelock implements the packed stage schedule of an escrow.

Seven stage offsets and the deployment timestamp are packed into a single
256-bit word, 32 bits per field, with the timestamp in the top 32 bits.
The absolute unlock instant of a stage is always deployment timestamp
plus the stage offset. Packing arithmetic is total: no combination of
offsets and timestamp can overflow or fail. Whether the offsets are in
the conventional order (withdrawal before public withdrawal before
cancellation) is deliberately not enforced here; callers that want the
convention checked use Wellformed.
*/
package timelock

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/hashgate/hashgate"
	"github.com/hashgate/hashgate/errors"
)

// Stage names one of the seven time windows of a swap.
type Stage uint8

const (
	StageSrcWithdrawal Stage = iota
	StageSrcPublicWithdrawal
	StageSrcCancellation
	StageSrcPublicCancellation
	StageDstWithdrawal
	StageDstPublicWithdrawal
	StageDstCancellation

	stageCount
)

// deployedAtSlot is the packing slot of the deployment timestamp.
const deployedAtSlot = uint(stageCount)

func (s Stage) String() string {
	switch s {
	case StageSrcWithdrawal:
		return "src_withdrawal"
	case StageSrcPublicWithdrawal:
		return "src_public_withdrawal"
	case StageSrcCancellation:
		return "src_cancellation"
	case StageSrcPublicCancellation:
		return "src_public_cancellation"
	case StageDstWithdrawal:
		return "dst_withdrawal"
	case StageDstPublicWithdrawal:
		return "dst_public_withdrawal"
	case StageDstCancellation:
		return "dst_cancellation"
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

// Offsets groups the seven stage offsets, each in seconds relative to the
// deployment timestamp.
type Offsets struct {
	SrcWithdrawal         uint32
	SrcPublicWithdrawal   uint32
	SrcCancellation       uint32
	SrcPublicCancellation uint32
	DstWithdrawal         uint32
	DstPublicWithdrawal   uint32
	DstCancellation       uint32
}

// Schedule is the packed word. The zero value is a schedule with all
// offsets zero and no deployment timestamp.
type Schedule struct {
	word uint256.Int
}

// Pack builds a schedule from the given offsets. The deployment timestamp
// is left zero until WithDeployedAt.
func Pack(o Offsets) Schedule {
	var s Schedule
	s.setSlot(uint(StageSrcWithdrawal), o.SrcWithdrawal)
	s.setSlot(uint(StageSrcPublicWithdrawal), o.SrcPublicWithdrawal)
	s.setSlot(uint(StageSrcCancellation), o.SrcCancellation)
	s.setSlot(uint(StageSrcPublicCancellation), o.SrcPublicCancellation)
	s.setSlot(uint(StageDstWithdrawal), o.DstWithdrawal)
	s.setSlot(uint(StageDstPublicWithdrawal), o.DstPublicWithdrawal)
	s.setSlot(uint(StageDstCancellation), o.DstCancellation)
	return s
}

// Unpack returns the seven stage offsets of this schedule.
func (s Schedule) Unpack() Offsets {
	return Offsets{
		SrcWithdrawal:         s.Offset(StageSrcWithdrawal),
		SrcPublicWithdrawal:   s.Offset(StageSrcPublicWithdrawal),
		SrcCancellation:       s.Offset(StageSrcCancellation),
		SrcPublicCancellation: s.Offset(StageSrcPublicCancellation),
		DstWithdrawal:         s.Offset(StageDstWithdrawal),
		DstPublicWithdrawal:   s.Offset(StageDstPublicWithdrawal),
		DstCancellation:       s.Offset(StageDstCancellation),
	}
}

func (s *Schedule) setSlot(slot uint, val uint32) {
	chunk := new(uint256.Int).SetUint64(uint64(val))
	chunk.Lsh(chunk, slot*32)
	s.word.Or(&s.word, chunk)
}

func (s Schedule) slot(slot uint) uint32 {
	chunk := new(uint256.Int).Rsh(&s.word, slot*32)
	return uint32(chunk.Uint64())
}

// WithDeployedAt returns a schedule with the deployment timestamp set to
// the given instant. Only the top 32 bits change, all offsets are
// preserved. Timestamps beyond the 32-bit range are truncated, exactly as
// in the packed representation.
func (s Schedule) WithDeployedAt(t hashgate.UnixTime) Schedule {
	// clear the top 32 bits, then merge the timestamp in
	mask := new(uint256.Int).SetUint64(1)
	mask.Lsh(mask, deployedAtSlot*32)
	mask.SubUint64(mask, 1)
	s.word.And(&s.word, mask)
	s.setSlot(deployedAtSlot, uint32(t))
	return s
}

// DeployedAt returns the deployment timestamp stored in this schedule.
func (s Schedule) DeployedAt() hashgate.UnixTime {
	return hashgate.UnixTime(s.slot(deployedAtSlot))
}

// Offset returns the stage offset in seconds.
func (s Schedule) Offset(stage Stage) uint32 {
	if stage >= stageCount {
		panic("unknown timelock stage")
	}
	return s.slot(uint(stage))
}

// UnlockInstant returns the absolute instant at which the given stage
// opens: deployment timestamp plus stage offset. Both operands are 32 bit
// so the 64 bit accumulation cannot overflow.
func (s Schedule) UnlockInstant(stage Stage) hashgate.UnixTime {
	return hashgate.UnixTime(uint64(uint32(s.DeployedAt())) + uint64(s.Offset(stage)))
}

// RescueInstant returns the instant from which stray funds may be swept:
// deployment timestamp plus the rescue delay.
func (s Schedule) RescueInstant(rescueDelay uint32) hashgate.UnixTime {
	return hashgate.UnixTime(uint64(uint32(s.DeployedAt())) + uint64(rescueDelay))
}

// Wellformed reports a violation of the conventional stage ordering:
// withdrawal opens no later than public withdrawal, which opens no later
// than cancellation (and public cancellation on the source side). Nothing
// in the packing enforces this; it is an opt-in check for code that
// builds schedules from untrusted input.
func (s Schedule) Wellformed() error {
	o := s.Unpack()
	if o.SrcWithdrawal > o.SrcPublicWithdrawal {
		return errors.Wrap(errors.ErrState, "src withdrawal after public withdrawal")
	}
	if o.SrcPublicWithdrawal > o.SrcCancellation {
		return errors.Wrap(errors.ErrState, "src public withdrawal after cancellation")
	}
	if o.SrcCancellation > o.SrcPublicCancellation {
		return errors.Wrap(errors.ErrState, "src cancellation after public cancellation")
	}
	if o.DstWithdrawal > o.DstPublicWithdrawal {
		return errors.Wrap(errors.ErrState, "dst withdrawal after public withdrawal")
	}
	if o.DstPublicWithdrawal > o.DstCancellation {
		return errors.Wrap(errors.ErrState, "dst public withdrawal after cancellation")
	}
	return nil
}

// Word returns the packed 256-bit representation.
func (s Schedule) Word() [32]byte {
	return s.word.Bytes32()
}

// FromWord restores a schedule from its packed representation.
func FromWord(word [32]byte) Schedule {
	var s Schedule
	s.word.SetBytes(word[:])
	return s
}

// Equals returns true when both schedules pack the same word.
func (s Schedule) Equals(other Schedule) bool {
	return s.word.Eq(&other.word)
}

func (s Schedule) String() string {
	o := s.Unpack()
	return fmt.Sprintf("schedule(t0=%d src=%d/%d/%d/%d dst=%d/%d/%d)",
		s.DeployedAt(),
		o.SrcWithdrawal, o.SrcPublicWithdrawal, o.SrcCancellation, o.SrcPublicCancellation,
		o.DstWithdrawal, o.DstPublicWithdrawal, o.DstCancellation)
}
