package factory

import (
	"github.com/hashgate/hashgate"
	"github.com/hashgate/hashgate/errors"
	"github.com/hashgate/hashgate/escrow"
	"github.com/hashgate/hashgate/ledger"
	"github.com/hashgate/hashgate/timelock"
)

// Factory deploys escrows for both swap legs. Every escrow lands at an
// address derived from the factory identity, the leg role and the digest
// of its frozen parameters, so the address can be predicted by anyone
// holding the same parameters.
type Factory struct {
	id       hashgate.Address
	auth     escrow.Authenticator
	ledger   ledger.Controller
	journal  escrow.Journal
	registry Registry
}

var _ escrow.Whitelist = (*Factory)(nil)

// NewFactory builds a factory with the given identity. The identity is
// deployment configuration: both chains of a swap must agree on the
// factory identity of each side for address prediction to work.
func NewFactory(id hashgate.Address, auth escrow.Authenticator, cash ledger.Controller) *Factory {
	return &Factory{
		id:       id,
		auth:     auth,
		ledger:   cash,
		journal:  escrow.NewJournal(),
		registry: NewRegistry(),
	}
}

// ID returns the factory identity.
func (f *Factory) ID() hashgate.Address {
	return f.id
}

// PredictAddress computes the deployment address for the given
// parameters and role. It is a pure function of its inputs and reads no
// chain state.
func (f *Factory) PredictAddress(imm *escrow.Immutables, role escrow.Role) (hashgate.Address, error) {
	if err := role.Validate(); err != nil {
		return nil, err
	}
	if err := imm.Validate(); err != nil {
		return nil, err
	}
	return escrow.NewAddress(f.id, role, imm.Digest()), nil
}

// CreateDestinationEscrow deploys the destination leg. The taker funds
// it: the escrowed value and the native safety deposit are pulled from
// the taker wallet. The deployment timestamp is stamped into the
// schedule here; srcCancellation is the absolute cancellation instant of
// the source leg, which the destination cancellation must not outlive,
// or the taker could reclaim liquidity while the source leg is still
// withdrawable.
func (f *Factory) CreateDestinationEscrow(ctx hashgate.Context, db hashgate.CacheableKVStore, imm *escrow.Immutables, srcCancellation hashgate.UnixTime) (hashgate.Address, error) {
	wrap := db.CacheWrap()
	addr, err := f.createDestination(ctx, wrap, imm, srcCancellation)
	return addr, finish(wrap, err)
}

func (f *Factory) createDestination(ctx hashgate.Context, db hashgate.KVStore, imm *escrow.Immutables, srcCancellation hashgate.UnixTime) (hashgate.Address, error) {
	if err := f.checkNotPaused(db); err != nil {
		return nil, err
	}
	if err := imm.Validate(); err != nil {
		return nil, err
	}
	// the hashlock alone identifies the swap, so a duplicate is rejected
	// before any schedule checks that depend on the current time
	if f.registry.Has(db, imm.Hashlock) {
		return nil, errors.Wrapf(errors.ErrDuplicate, "hashlock %X already has an escrow", imm.Hashlock)
	}
	if !f.auth.HasAddress(ctx, imm.Taker) {
		return nil, errors.Wrap(escrow.ErrInvalidCaller, "destination escrow is funded by the taker")
	}
	if err := f.checkResolver(db, imm.Taker); err != nil {
		return nil, err
	}

	now := hashgate.MustBlockTime(ctx)
	stamped := *imm
	stamped.Timelocks = imm.Timelocks.WithDeployedAt(now)
	if err := stamped.Timelocks.Wellformed(); err != nil {
		return nil, errors.Wrap(err, "timelocks")
	}
	if stamped.Timelocks.UnlockInstant(timelock.StageDstCancellation) > srcCancellation {
		return nil, errors.Wrap(escrow.ErrInvalidTime, "destination cancellation must not outlive source cancellation")
	}

	return f.deploy(ctx, db, &stamped, escrow.RoleDestination, stamped.Taker, now)
}

// deploy persists the escrow record, registers the hashlock, locks the
// value from the funder and the native deposit from the taker, and
// journals the creation.
func (f *Factory) deploy(ctx hashgate.Context, db hashgate.KVStore, imm *escrow.Immutables, role escrow.Role, funder hashgate.Address, now hashgate.UnixTime) (hashgate.Address, error) {
	digest := imm.Digest()
	addr := escrow.NewAddress(f.id, role, digest)

	err := f.registry.Register(db, imm.Hashlock, &Record{Escrow: addr, Role: role})
	if err != nil {
		return nil, err
	}
	esc := &escrow.Escrow{Role: role, State: escrow.StateActive, Digest: digest}
	if err := escrow.NewBucket().Save(db, addr, esc); err != nil {
		return nil, err
	}
	if err := f.ledger.MoveCoins(db, funder, addr, imm.Token, imm.Amount); err != nil {
		return nil, errors.Wrap(err, "lock value")
	}
	if err := f.ledger.MoveCoins(db, imm.Taker, addr, ledger.NativeToken, imm.SafetyDeposit); err != nil {
		return nil, errors.Wrap(err, "lock safety deposit")
	}
	err = f.journal.Append(db, &escrow.Entry{
		Type:     escrow.EventCreated,
		Escrow:   addr,
		Hashlock: imm.Hashlock,
		Caller:   imm.Taker,
		Time:     now,
	})
	if err != nil {
		return nil, errors.Wrap(err, "journal")
	}
	hashgate.GetLogger(ctx).Info("escrow deployed",
		"escrow", addr, "role", role, "hashlock", escrow.Digest(imm.Hashlock))
	return addr, nil
}

// EscrowFor returns the escrow deployed for given hashlock on this
// chain, ErrNotFound when there is none.
func (f *Factory) EscrowFor(db hashgate.ReadOnlyKVStore, hashlock [escrow.HashlockSize]byte) (*Record, error) {
	return f.registry.Get(db, hashlock)
}

// IsResolver implements escrow.Whitelist.
func (f *Factory) IsResolver(db hashgate.ReadOnlyKVStore, addr hashgate.Address) bool {
	return newResolverBucket().Has(db, addr)
}

// Bypass implements escrow.Whitelist.
func (f *Factory) Bypass(db hashgate.ReadOnlyKVStore) bool {
	cfg, err := LoadConfig(db)
	return err == nil && cfg.WhitelistBypass
}

// SetPaused flips the creation pause switch. Owner only.
func (f *Factory) SetPaused(ctx hashgate.Context, db hashgate.CacheableKVStore, paused bool) error {
	return f.updateConfig(ctx, db, func(cfg *Config) {
		cfg.Paused = paused
	})
}

// SetWhitelistBypass flips the whitelist bypass switch. Owner only.
func (f *Factory) SetWhitelistBypass(ctx hashgate.Context, db hashgate.CacheableKVStore, bypass bool) error {
	return f.updateConfig(ctx, db, func(cfg *Config) {
		cfg.WhitelistBypass = bypass
	})
}

// AddResolver whitelists a resolver address. Owner only.
func (f *Factory) AddResolver(ctx hashgate.Context, db hashgate.CacheableKVStore, addr hashgate.Address) error {
	if err := addr.Validate(); err != nil {
		return errors.Wrap(err, "resolver")
	}
	wrap := db.CacheWrap()
	err := f.ownerOnly(ctx, wrap)
	if err == nil {
		err = newResolverBucket().Save(wrap, addr, resolverMark{})
	}
	return finish(wrap, err)
}

// RemoveResolver removes a resolver from the whitelist. Owner only.
// Removing an unknown address is not an error.
func (f *Factory) RemoveResolver(ctx hashgate.Context, db hashgate.CacheableKVStore, addr hashgate.Address) error {
	wrap := db.CacheWrap()
	err := f.ownerOnly(ctx, wrap)
	if err == nil {
		newResolverBucket().Delete(wrap, addr)
	}
	return finish(wrap, err)
}

func (f *Factory) updateConfig(ctx hashgate.Context, db hashgate.CacheableKVStore, mutate func(*Config)) error {
	wrap := db.CacheWrap()
	err := func() error {
		cfg, err := LoadConfig(wrap)
		if err != nil {
			return err
		}
		if !f.auth.HasAddress(ctx, cfg.Owner) {
			return errors.Wrap(errors.ErrUnauthorized, "owner only")
		}
		mutate(cfg)
		return SaveConfig(wrap, cfg)
	}()
	return finish(wrap, err)
}

func (f *Factory) ownerOnly(ctx hashgate.Context, db hashgate.ReadOnlyKVStore) error {
	cfg, err := LoadConfig(db)
	if err != nil {
		return err
	}
	if !f.auth.HasAddress(ctx, cfg.Owner) {
		return errors.Wrap(errors.ErrUnauthorized, "owner only")
	}
	return nil
}

// checkResolver gates escrow creation on the resolver whitelist: the
// taker must be a whitelisted resolver unless the bypass is enabled.
func (f *Factory) checkResolver(db hashgate.ReadOnlyKVStore, taker hashgate.Address) error {
	cfg, err := LoadConfig(db)
	if err != nil {
		return err
	}
	if cfg.WhitelistBypass {
		return nil
	}
	if !newResolverBucket().Has(db, taker) {
		return errors.Wrapf(escrow.ErrInvalidCaller, "taker %s is not a whitelisted resolver", taker)
	}
	return nil
}

func (f *Factory) checkNotPaused(db hashgate.ReadOnlyKVStore) error {
	cfg, err := LoadConfig(db)
	if err != nil {
		return err
	}
	if cfg.Paused {
		return errors.Wrap(ErrPaused, "escrow creation disabled")
	}
	return nil
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
