package escrow

import (
	"crypto/subtle"

	"github.com/holiman/uint256"

	"github.com/hashgate/hashgate"
	"github.com/hashgate/hashgate/errors"
	"github.com/hashgate/hashgate/ledger"
	"github.com/hashgate/hashgate/timelock"
)

// Controller executes the escrow state machine. Every mutating operation
// runs inside a cache wrap: it either fully succeeds and is written back,
// or fails with all state untouched. Callers are expected to hand in a
// store that serializes wraps (see store.Exclusive) when operations can
// race.
type Controller struct {
	auth        Authenticator
	policy      AuthorizationPolicy
	journal     Journal
	ledger      ledger.Controller
	rescueDelay uint32
}

// NewController builds a controller. The rescue delay is the number of
// seconds after deployment before stray funds may be swept by the taker.
func NewController(auth Authenticator, policy AuthorizationPolicy, cash ledger.Controller, rescueDelay uint32) *Controller {
	return &Controller{
		auth:        auth,
		policy:      policy,
		journal:     NewJournal(),
		ledger:      cash,
		rescueDelay: rescueDelay,
	}
}

// Withdraw pays the locked value out against the secret. Only the taker
// may call this, only inside the private withdrawal window. On the source
// leg the value goes to the taker, on the destination leg to the maker;
// the safety deposit always goes to the caller. The secret is revealed in
// the journal.
func (c *Controller) Withdraw(ctx hashgate.Context, db hashgate.CacheableKVStore, escrowAddr hashgate.Address, imm *Immutables, secret [SecretSize]byte) error {
	wrap := db.CacheWrap()
	err := c.withdraw(ctx, wrap, escrowAddr, imm, secret)
	return finish(wrap, err)
}

// PublicWithdraw is Withdraw for third party keepers: any caller
// satisfying the authorization policy may execute it once the public
// withdrawal window opened. The safety deposit goes to the actual caller.
func (c *Controller) PublicWithdraw(ctx hashgate.Context, db hashgate.CacheableKVStore, caller hashgate.Address, escrowAddr hashgate.Address, imm *Immutables, secret [SecretSize]byte, proof []byte) error {
	wrap := db.CacheWrap()
	err := c.publicWithdraw(ctx, wrap, caller, escrowAddr, imm, secret, proof)
	return finish(wrap, err)
}

// Cancel refunds the locked value to the original funder once the
// cancellation window opened: to the maker on the source leg, to the
// taker on the destination leg. Only the taker may call this; the safety
// deposit goes to the caller.
func (c *Controller) Cancel(ctx hashgate.Context, db hashgate.CacheableKVStore, escrowAddr hashgate.Address, imm *Immutables) error {
	wrap := db.CacheWrap()
	err := c.cancel(ctx, wrap, escrowAddr, imm, imm.Taker, privateStage, nil)
	return finish(wrap, err)
}

// PublicCancel is Cancel for third party keepers on the source leg, open
// from the public cancellation stage on to any caller satisfying the
// authorization policy. The destination leg has no public cancellation
// stage.
func (c *Controller) PublicCancel(ctx hashgate.Context, db hashgate.CacheableKVStore, caller hashgate.Address, escrowAddr hashgate.Address, imm *Immutables, proof []byte) error {
	wrap := db.CacheWrap()
	err := c.cancel(ctx, wrap, escrowAddr, imm, caller, publicStage, proof)
	return finish(wrap, err)
}

// RescueFunds sweeps a stray balance from the escrow account to the
// taker. It is taker-only, opens a rescue delay after deployment,
// transitions no state and may be repeated.
func (c *Controller) RescueFunds(ctx hashgate.Context, db hashgate.CacheableKVStore, escrowAddr hashgate.Address, imm *Immutables, token hashgate.Address, amount *uint256.Int) error {
	wrap := db.CacheWrap()
	err := c.rescueFunds(ctx, wrap, escrowAddr, imm, token, amount)
	return finish(wrap, err)
}

// finish writes the wrap on success and discards it on failure, passing
// the error through.
func finish(wrap hashgate.KVCacheWrap, err error) error {
	if err != nil {
		wrap.Discard()
		return err
	}
	wrap.Write()
	return nil
}

type stageKind uint8

const (
	privateStage stageKind = iota
	publicStage
)

func (c *Controller) withdraw(ctx hashgate.Context, db hashgate.KVStore, escrowAddr hashgate.Address, imm *Immutables, secret [SecretSize]byte) error {
	esc, err := c.load(db, escrowAddr, imm)
	if err != nil {
		return err
	}
	if !c.auth.HasAddress(ctx, imm.Taker) {
		return errors.Wrap(ErrInvalidCaller, "withdraw is taker only")
	}
	return c.executeWithdraw(ctx, db, esc, escrowAddr, imm, secret, imm.Taker, privateStage)
}

func (c *Controller) publicWithdraw(ctx hashgate.Context, db hashgate.KVStore, caller hashgate.Address, escrowAddr hashgate.Address, imm *Immutables, secret [SecretSize]byte, proof []byte) error {
	esc, err := c.load(db, escrowAddr, imm)
	if err != nil {
		return err
	}
	if err := caller.Validate(); err != nil {
		return errors.Wrap(err, "caller")
	}
	if !c.auth.HasAddress(ctx, caller) {
		return errors.Wrap(ErrInvalidCaller, "caller did not authorize this call")
	}
	if err := c.policy.Authorize(ctx, db, caller, esc.Digest, proof); err != nil {
		return err
	}
	return c.executeWithdraw(ctx, db, esc, escrowAddr, imm, secret, caller, publicStage)
}

func (c *Controller) executeWithdraw(ctx hashgate.Context, db hashgate.KVStore, esc *Escrow, escrowAddr hashgate.Address, imm *Immutables, secret [SecretSize]byte, depositPayee hashgate.Address, kind stageKind) error {
	now := hashgate.MustBlockTime(ctx)
	start := imm.Timelocks.UnlockInstant(withdrawOpen(esc.Role, kind))
	end := imm.Timelocks.UnlockInstant(cancelOpen(esc.Role))
	if now < start || now >= end {
		return errors.Wrapf(ErrInvalidTime, "withdrawal window [%d, %d), now %d", start, end, now)
	}

	hash := Hash(secret[:])
	if subtle.ConstantTimeCompare(hash[:], imm.Hashlock[:]) != 1 {
		return errors.Wrap(ErrInvalidSecret, "secret does not match hashlock")
	}

	// value to the leg recipient, deposit to whoever executed
	recipient := imm.Taker
	if esc.Role == RoleDestination {
		recipient = imm.Maker
	}
	if err := c.ledger.MoveCoins(db, escrowAddr, recipient, imm.Token, imm.Amount); err != nil {
		return errors.Wrap(err, "pay out value")
	}
	if err := c.ledger.MoveCoins(db, escrowAddr, depositPayee, ledger.NativeToken, imm.SafetyDeposit); err != nil {
		return errors.Wrap(err, "pay out safety deposit")
	}

	esc.State = StateWithdrawn
	if err := NewBucket().Save(db, escrowAddr, esc); err != nil {
		return err
	}
	err := c.journal.Append(db, &Entry{
		Type:     EventWithdrawn,
		Escrow:   escrowAddr,
		Hashlock: imm.Hashlock,
		Caller:   depositPayee,
		Secret:   append([]byte{}, secret[:]...),
		Time:     now,
	})
	if err != nil {
		return errors.Wrap(err, "journal")
	}
	hashgate.GetLogger(ctx).Info("escrow withdrawn",
		"escrow", escrowAddr, "role", esc.Role, "caller", depositPayee)
	return nil
}

func (c *Controller) cancel(ctx hashgate.Context, db hashgate.KVStore, escrowAddr hashgate.Address, imm *Immutables, caller hashgate.Address, kind stageKind, proof []byte) error {
	esc, err := c.load(db, escrowAddr, imm)
	if err != nil {
		return err
	}

	switch kind {
	case privateStage:
		if !c.auth.HasAddress(ctx, imm.Taker) {
			return errors.Wrap(ErrInvalidCaller, "cancel is taker only")
		}
	case publicStage:
		if esc.Role != RoleSource {
			return errors.Wrap(errors.ErrState, "destination escrow has no public cancellation")
		}
		if err := caller.Validate(); err != nil {
			return errors.Wrap(err, "caller")
		}
		if !c.auth.HasAddress(ctx, caller) {
			return errors.Wrap(ErrInvalidCaller, "caller did not authorize this call")
		}
		if err := c.policy.Authorize(ctx, db, caller, esc.Digest, proof); err != nil {
			return err
		}
	}

	now := hashgate.MustBlockTime(ctx)
	var start hashgate.UnixTime
	if kind == publicStage {
		start = imm.Timelocks.UnlockInstant(timelock.StageSrcPublicCancellation)
	} else {
		start = imm.Timelocks.UnlockInstant(cancelOpen(esc.Role))
	}
	if now < start {
		return errors.Wrapf(ErrInvalidTime, "cancellation opens at %d, now %d", start, now)
	}

	// refund to the original funder, deposit to whoever executed
	funder := imm.Maker
	if esc.Role == RoleDestination {
		funder = imm.Taker
	}
	if err := c.ledger.MoveCoins(db, escrowAddr, funder, imm.Token, imm.Amount); err != nil {
		return errors.Wrap(err, "refund value")
	}
	if err := c.ledger.MoveCoins(db, escrowAddr, caller, ledger.NativeToken, imm.SafetyDeposit); err != nil {
		return errors.Wrap(err, "pay out safety deposit")
	}

	esc.State = StateCancelled
	if err := NewBucket().Save(db, escrowAddr, esc); err != nil {
		return err
	}
	err = c.journal.Append(db, &Entry{
		Type:     EventCancelled,
		Escrow:   escrowAddr,
		Hashlock: imm.Hashlock,
		Caller:   caller,
		Time:     now,
	})
	if err != nil {
		return errors.Wrap(err, "journal")
	}
	hashgate.GetLogger(ctx).Info("escrow cancelled",
		"escrow", escrowAddr, "role", esc.Role, "caller", caller)
	return nil
}

func (c *Controller) rescueFunds(ctx hashgate.Context, db hashgate.KVStore, escrowAddr hashgate.Address, imm *Immutables, token hashgate.Address, amount *uint256.Int) error {
	esc, err := c.loadAnyState(db, escrowAddr, imm)
	if err != nil {
		return err
	}
	if !c.auth.HasAddress(ctx, imm.Taker) {
		return errors.Wrap(ErrInvalidCaller, "rescue is taker only")
	}

	now := hashgate.MustBlockTime(ctx)
	start := imm.Timelocks.RescueInstant(c.rescueDelay)
	if now < start {
		return errors.Wrapf(ErrInvalidTime, "rescue opens at %d, now %d", start, now)
	}

	if err := c.ledger.MoveCoins(db, escrowAddr, imm.Taker, token, amount); err != nil {
		return errors.Wrap(err, "sweep")
	}

	// rescue does not transition state, only the journal notices
	err = c.journal.Append(db, &Entry{
		Type:     EventRescued,
		Escrow:   escrowAddr,
		Hashlock: imm.Hashlock,
		Caller:   imm.Taker,
		Time:     now,
	})
	if err != nil {
		return errors.Wrap(err, "journal")
	}
	hashgate.GetLogger(ctx).Info("escrow funds rescued",
		"escrow", escrowAddr, "role", esc.Role, "token", token)
	return nil
}

// load fetches an Active escrow and validates the presented parameters
// against the captured digest.
func (c *Controller) load(db hashgate.ReadOnlyKVStore, escrowAddr hashgate.Address, imm *Immutables) (*Escrow, error) {
	esc, err := c.loadAnyState(db, escrowAddr, imm)
	if err != nil {
		return nil, err
	}
	if esc.State != StateActive {
		return nil, errors.Wrapf(errors.ErrState, "escrow already %s", esc.State)
	}
	return esc, nil
}

// loadAnyState is load without the Active requirement, for rescue.
func (c *Controller) loadAnyState(db hashgate.ReadOnlyKVStore, escrowAddr hashgate.Address, imm *Immutables) (*Escrow, error) {
	if err := imm.Validate(); err != nil {
		return nil, err
	}
	var esc Escrow
	if err := NewBucket().Get(db, escrowAddr, &esc); err != nil {
		return nil, errors.Wrapf(err, "escrow %s", escrowAddr)
	}
	if !esc.Digest.Equals(imm.Digest()) {
		return nil, errors.Wrap(ErrInvalidImmutables, "parameters do not match the deployment commitment")
	}
	return &esc, nil
}

// withdrawOpen returns the stage opening the withdrawal window for the
// given role and access kind.
func withdrawOpen(role Role, kind stageKind) timelock.Stage {
	if role == RoleSource {
		if kind == publicStage {
			return timelock.StageSrcPublicWithdrawal
		}
		return timelock.StageSrcWithdrawal
	}
	if kind == publicStage {
		return timelock.StageDstPublicWithdrawal
	}
	return timelock.StageDstWithdrawal
}

// cancelOpen returns the stage that closes withdrawals and opens the
// private cancellation window for the given role.
func cancelOpen(role Role) timelock.Stage {
	if role == RoleSource {
		return timelock.StageSrcCancellation
	}
	return timelock.StageDstCancellation
}
