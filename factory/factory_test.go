package factory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"github.com/hashgate/hashgate"
	"github.com/hashgate/hashgate/errors"
	"github.com/hashgate/hashgate/escrow"
	"github.com/hashgate/hashgate/gatetest"
	"github.com/hashgate/hashgate/gatetest/assert"
	"github.com/hashgate/hashgate/ledger"
	"github.com/hashgate/hashgate/store"
	"github.com/hashgate/hashgate/timelock"
)

const deployedAt = hashgate.UnixTime(1700000000)

type testEnv struct {
	db      hashgate.CacheableKVStore
	auth    *gatetest.CtxAuth
	cash    ledger.BaseController
	factory *Factory

	owner hashgate.Condition
	maker hashgate.Condition
	taker hashgate.Condition
	token hashgate.Address
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		db:    gatetest.NewStore(),
		auth:  &gatetest.CtxAuth{Key: "auth"},
		cash:  ledger.NewController(),
		owner: gatetest.NewCondition(),
		maker: gatetest.NewCondition(),
		taker: gatetest.NewCondition(),
		token: gatetest.NewAddress(),
	}
	env.factory = NewFactory(gatetest.NewAddress(), env.auth, env.cash)

	cfg := Config{Owner: env.owner.Address(), RescueDelay: 604800}
	assert.Nil(t, SaveConfig(env.db, &cfg))
	assert.Nil(t, newResolverBucket().Save(env.db, env.taker.Address(), resolverMark{}))

	// the taker funds destination value and both safety deposits, the
	// maker funds the source value
	assert.Nil(t, env.cash.IssueCoins(env.db, env.taker.Address(), env.token, uint256.NewInt(1000)))
	assert.Nil(t, env.cash.IssueCoins(env.db, env.taker.Address(), ledger.NativeToken, uint256.NewInt(10)))
	assert.Nil(t, env.cash.IssueCoins(env.db, env.maker.Address(), env.token, uint256.NewInt(1000)))
	return env
}

func (env *testEnv) at(offset int64, signers ...hashgate.Condition) hashgate.Context {
	ctx := hashgate.WithBlockTime(context.Background(), time.Unix(int64(deployedAt)+offset, 0))
	return env.auth.SetConditions(ctx, signers...)
}

// destinationImmutables returns parameters for a destination escrow of
// 100 token value and 1 native deposit. The deployment timestamp is left
// for the factory to stamp.
func (env *testEnv) destinationImmutables(secret []byte) *escrow.Immutables {
	return &escrow.Immutables{
		OrderHash:     [32]byte{1},
		Hashlock:      escrow.Hash(secret),
		Maker:         env.maker.Address(),
		Taker:         env.taker.Address(),
		Token:         env.token,
		Amount:        uint256.NewInt(100),
		SafetyDeposit: uint256.NewInt(1),
		Timelocks: timelock.Pack(timelock.Offsets{
			DstWithdrawal:       100,
			DstPublicWithdrawal: 200,
			DstCancellation:     3600,
		}),
	}
}

func TestCreateDestinationEscrow(t *testing.T) {
	env := newTestEnv(t)
	imm := env.destinationImmutables([]byte("secret one"))

	addr, err := env.factory.CreateDestinationEscrow(env.at(0, env.taker), env.db, imm, deployedAt+3600)
	assert.Nil(t, err)

	// the deployed address matches the prediction from the stamped
	// parameters
	stamped := *imm
	stamped.Timelocks = imm.Timelocks.WithDeployedAt(deployedAt)
	predicted, err := env.factory.PredictAddress(&stamped, escrow.RoleDestination)
	assert.Nil(t, err)
	assert.Equal(t, predicted, addr)

	// taker funded value and deposit
	value, err := env.cash.Balance(env.db, addr, env.token)
	assert.Nil(t, err)
	assert.Equal(t, uint64(100), value.Uint64())
	deposit, err := env.cash.Balance(env.db, addr, ledger.NativeToken)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), deposit.Uint64())

	// registry points at the deployment
	rec, err := env.factory.EscrowFor(env.db, imm.Hashlock)
	assert.Nil(t, err)
	assert.Equal(t, escrow.RoleDestination, rec.Role)
	assert.Equal(t, addr, rec.Escrow)

	var esc escrow.Escrow
	assert.Nil(t, escrow.NewBucket().Get(env.db, addr, &esc))
	assert.Equal(t, escrow.StateActive, esc.State)
	assert.Equal(t, stamped.Digest(), esc.Digest)

	entries, err := escrow.NewJournal().Replay(env.db, addr, 1)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(entries))
	assert.Equal(t, escrow.EventCreated, entries[0].Type)
}

func TestCreateDestinationEscrowFailures(t *testing.T) {
	cases := map[string]struct {
		prepare func(t *testing.T, env *testEnv)
		run     func(env *testEnv) error
		wantErr *errors.Error
	}{
		"not the taker": {
			run: func(env *testEnv) error {
				imm := env.destinationImmutables([]byte("s"))
				_, err := env.factory.CreateDestinationEscrow(env.at(0, env.maker), env.db, imm, deployedAt+3600)
				return err
			},
			wantErr: escrow.ErrInvalidCaller,
		},
		"taker not whitelisted": {
			prepare: func(t *testing.T, env *testEnv) {
				newResolverBucket().Delete(env.db, env.taker.Address())
			},
			run: func(env *testEnv) error {
				imm := env.destinationImmutables([]byte("s"))
				_, err := env.factory.CreateDestinationEscrow(env.at(0, env.taker), env.db, imm, deployedAt+3600)
				return err
			},
			wantErr: escrow.ErrInvalidCaller,
		},
		"paused factory": {
			prepare: func(t *testing.T, env *testEnv) {
				assert.Nil(t, env.factory.SetPaused(env.at(0, env.owner), env.db, true))
			},
			run: func(env *testEnv) error {
				imm := env.destinationImmutables([]byte("s"))
				_, err := env.factory.CreateDestinationEscrow(env.at(0, env.taker), env.db, imm, deployedAt+3600)
				return err
			},
			wantErr: ErrPaused,
		},
		"cancellation outlives the source leg": {
			run: func(env *testEnv) error {
				imm := env.destinationImmutables([]byte("s"))
				_, err := env.factory.CreateDestinationEscrow(env.at(0, env.taker), env.db, imm, deployedAt+3599)
				return err
			},
			wantErr: escrow.ErrInvalidTime,
		},
		"malformed schedule": {
			run: func(env *testEnv) error {
				imm := env.destinationImmutables([]byte("s"))
				imm.Timelocks = timelock.Pack(timelock.Offsets{
					DstWithdrawal:   3600,
					DstCancellation: 100,
				})
				_, err := env.factory.CreateDestinationEscrow(env.at(0, env.taker), env.db, imm, deployedAt+7200)
				return err
			},
			wantErr: errors.ErrState,
		},
		"underfunded taker": {
			run: func(env *testEnv) error {
				imm := env.destinationImmutables([]byte("s"))
				imm.Amount = uint256.NewInt(5000)
				_, err := env.factory.CreateDestinationEscrow(env.at(0, env.taker), env.db, imm, deployedAt+3600)
				return err
			},
			wantErr: errors.ErrInsufficientAmount,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			env := newTestEnv(t)
			if tc.prepare != nil {
				tc.prepare(t, env)
			}
			err := tc.run(env)
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
			// nothing left the taker wallet
			balance, err := env.cash.Balance(env.db, env.taker.Address(), env.token)
			assert.Nil(t, err)
			assert.Equal(t, uint64(1000), balance.Uint64())
		})
	}
}

func TestDuplicateHashlockRejected(t *testing.T) {
	env := newTestEnv(t)
	imm := env.destinationImmutables([]byte("the one secret"))

	_, err := env.factory.CreateDestinationEscrow(env.at(0, env.taker), env.db, imm, deployedAt+3600)
	assert.Nil(t, err)

	// even with different parameters, the hashlock is taken
	again := env.destinationImmutables([]byte("the one secret"))
	again.Amount = uint256.NewInt(200)
	_, err = env.factory.CreateDestinationEscrow(env.at(1, env.taker), env.db, again, deployedAt+3600)
	assert.IsErr(t, errors.ErrDuplicate, err)

	// still a duplicate much later, when the restamped schedule would be
	// rejected for outliving the source cancellation
	later := env.destinationImmutables([]byte("the one secret"))
	_, err = env.factory.CreateDestinationEscrow(env.at(7200, env.taker), env.db, later, deployedAt+3600)
	assert.IsErr(t, errors.ErrDuplicate, err)
}

func TestWhitelistBypassAllowsCreation(t *testing.T) {
	env := newTestEnv(t)
	newResolverBucket().Delete(env.db, env.taker.Address())

	imm := env.destinationImmutables([]byte("bypass"))
	_, err := env.factory.CreateDestinationEscrow(env.at(0, env.taker), env.db, imm, deployedAt+3600)
	assert.IsErr(t, escrow.ErrInvalidCaller, err)

	assert.Nil(t, env.factory.SetWhitelistBypass(env.at(0, env.owner), env.db, true))
	_, err = env.factory.CreateDestinationEscrow(env.at(0, env.taker), env.db, imm, deployedAt+3600)
	assert.Nil(t, err)
}

func TestPredictAddressIsPure(t *testing.T) {
	env := newTestEnv(t)
	imm := env.destinationImmutables([]byte("x"))
	imm.Timelocks = imm.Timelocks.WithDeployedAt(deployedAt)

	a, err := env.factory.PredictAddress(imm, escrow.RoleDestination)
	assert.Nil(t, err)
	b, err := env.factory.PredictAddress(imm, escrow.RoleDestination)
	assert.Nil(t, err)
	assert.Equal(t, a, b)

	// the two legs of one swap live at different addresses
	src, err := env.factory.PredictAddress(imm, escrow.RoleSource)
	assert.Nil(t, err)
	if src.Equals(b) {
		t.Fatal("role must separate the addresses")
	}

	// another factory derives other addresses from the same parameters
	other := NewFactory(gatetest.NewAddress(), env.auth, env.cash)
	c, err := other.PredictAddress(imm, escrow.RoleDestination)
	assert.Nil(t, err)
	if c.Equals(b) {
		t.Fatal("factory identity must separate the addresses")
	}
}

func TestPauseDoesNotBlockDeployedEscrows(t *testing.T) {
	env := newTestEnv(t)
	secret := make([]byte, escrow.SecretSize)
	copy(secret, "pause test secret")
	imm := env.destinationImmutables(secret)

	addr, err := env.factory.CreateDestinationEscrow(env.at(0, env.taker), env.db, imm, deployedAt+3600)
	assert.Nil(t, err)

	assert.Nil(t, env.factory.SetPaused(env.at(0, env.owner), env.db, true))

	// creation is blocked, withdrawal is not
	cfg, err := LoadConfig(env.db)
	assert.Nil(t, err)
	ctrl := escrow.NewController(env.auth, escrow.EndorsedSignaturePolicy{Whitelist: env.factory}, env.cash, cfg.RescueDelay)

	stamped := *imm
	stamped.Timelocks = imm.Timelocks.WithDeployedAt(deployedAt)
	var fixed [escrow.SecretSize]byte
	copy(fixed[:], secret)
	err = ctrl.Withdraw(env.at(100, env.taker), env.db, addr, &stamped, fixed)
	assert.Nil(t, err)
}

func TestOwnerOnlyOperations(t *testing.T) {
	env := newTestEnv(t)
	resolver := gatetest.NewAddress()
	stranger := env.taker

	cases := map[string]func(ctx hashgate.Context) error{
		"set paused": func(ctx hashgate.Context) error {
			return env.factory.SetPaused(ctx, env.db, true)
		},
		"set whitelist bypass": func(ctx hashgate.Context) error {
			return env.factory.SetWhitelistBypass(ctx, env.db, true)
		},
		"add resolver": func(ctx hashgate.Context) error {
			return env.factory.AddResolver(ctx, env.db, resolver)
		},
		"remove resolver": func(ctx hashgate.Context) error {
			return env.factory.RemoveResolver(ctx, env.db, resolver)
		},
	}
	for testName, op := range cases {
		t.Run(testName, func(t *testing.T) {
			assert.IsErr(t, errors.ErrUnauthorized, op(env.at(0, stranger)))
			assert.Nil(t, op(env.at(0, env.owner)))
		})
	}
}

func TestConcurrentDeployments(t *testing.T) {
	env := newTestEnv(t)
	// an exclusive store serializes the cache wraps, so parallel
	// deployments behave as if executed one after another
	db := store.Exclusive(env.db)

	assert.Nil(t, env.cash.IssueCoins(env.db, env.taker.Address(), env.token, uint256.NewInt(4000)))
	assert.Nil(t, env.cash.IssueCoins(env.db, env.taker.Address(), ledger.NativeToken, uint256.NewInt(40)))

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			imm := env.destinationImmutables([]byte{byte(i)})
			_, errs[i] = env.factory.CreateDestinationEscrow(env.at(0, env.taker), db, imm, deployedAt+3600)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("deployment %d: %+v", i, err)
		}
	}
	balance, err := env.cash.Balance(env.db, env.taker.Address(), env.token)
	assert.Nil(t, err)
	assert.Equal(t, uint64(5000-workers*100), balance.Uint64())
}

func TestResolverWhitelist(t *testing.T) {
	env := newTestEnv(t)
	resolver := gatetest.NewAddress()

	if env.factory.IsResolver(env.db, resolver) {
		t.Fatal("unknown address must not be whitelisted")
	}
	assert.Nil(t, env.factory.AddResolver(env.at(0, env.owner), env.db, resolver))
	if !env.factory.IsResolver(env.db, resolver) {
		t.Fatal("whitelisted address not found")
	}
	assert.Nil(t, env.factory.RemoveResolver(env.at(0, env.owner), env.db, resolver))
	if env.factory.IsResolver(env.db, resolver) {
		t.Fatal("removed address still whitelisted")
	}

	if env.factory.Bypass(env.db) {
		t.Fatal("bypass must default to off")
	}
	assert.Nil(t, env.factory.SetWhitelistBypass(env.at(0, env.owner), env.db, true))
	if !env.factory.Bypass(env.db) {
		t.Fatal("bypass not enabled")
	}
}
