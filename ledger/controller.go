package ledger

import (
	"github.com/holiman/uint256"

	"github.com/hashgate/hashgate"
	"github.com/hashgate/hashgate/errors"
	"github.com/hashgate/hashgate/orm"
)

// Controller is the value-transfer surface the escrow engine depends on.
// An implementation must apply every call atomically: a failed move
// leaves both wallets untouched.
type Controller interface {
	// Balance returns the amount of given token held by the holder.
	Balance(db hashgate.ReadOnlyKVStore, holder, token hashgate.Address) (*uint256.Int, error)

	// MoveCoins transfers amount of token from src to dest. It fails
	// with ErrInsufficientAmount when src does not hold enough, leaving
	// all state unchanged.
	MoveCoins(db hashgate.KVStore, src, dest, token hashgate.Address, amount *uint256.Int) error
}

// Minter is able to create value out of nothing. Used by genesis loading
// and tests, never by the escrow engine itself.
type Minter interface {
	// IssueCoins adds amount of token to the destination wallet.
	IssueCoins(db hashgate.KVStore, dest, token hashgate.Address, amount *uint256.Int) error
}

// BaseController implements Controller and Minter over a wallet bucket.
type BaseController struct {
	bucket orm.Bucket
}

var _ Controller = BaseController{}
var _ Minter = BaseController{}

func newWalletBucket() orm.Bucket {
	return orm.NewBucket("wallet")
}

// NewController returns a controller keeping all wallets in the "wallet"
// bucket.
func NewController() BaseController {
	return BaseController{bucket: newWalletBucket()}
}

// Balance returns the amount of given token held by the holder. A missing
// wallet is a zero balance, not an error.
func (c BaseController) Balance(db hashgate.ReadOnlyKVStore, holder, token hashgate.Address) (*uint256.Int, error) {
	if err := holder.Validate(); err != nil {
		return nil, errors.Wrap(err, "holder")
	}
	wallet, err := c.wallet(db, holder)
	if err != nil {
		return nil, err
	}
	return wallet.Total(token), nil
}

// MoveCoins transfers amount of token from src to dest.
func (c BaseController) MoveCoins(db hashgate.KVStore, src, dest, token hashgate.Address, amount *uint256.Int) error {
	if err := src.Validate(); err != nil {
		return errors.Wrap(err, "src")
	}
	if err := dest.Validate(); err != nil {
		return errors.Wrap(err, "dest")
	}
	if amount == nil {
		return errors.Wrap(errors.ErrAmount, "nil amount")
	}
	if amount.IsZero() || src.Equals(dest) {
		return nil
	}

	// Mutate both wallets in memory first so that a failure on either
	// side persists nothing.
	sender, err := c.wallet(db, src)
	if err != nil {
		return err
	}
	if err := sender.Subtract(token, amount); err != nil {
		return errors.Wrapf(err, "wallet %s", src)
	}
	receiver, err := c.wallet(db, dest)
	if err != nil {
		return err
	}
	if err := receiver.Add(token, amount); err != nil {
		return errors.Wrapf(err, "wallet %s", dest)
	}

	if err := c.save(db, src, sender); err != nil {
		return err
	}
	return c.save(db, dest, receiver)
}

// IssueCoins mints amount of token into the destination wallet.
func (c BaseController) IssueCoins(db hashgate.KVStore, dest, token hashgate.Address, amount *uint256.Int) error {
	if err := dest.Validate(); err != nil {
		return errors.Wrap(err, "dest")
	}
	if amount == nil {
		return errors.Wrap(errors.ErrAmount, "nil amount")
	}
	wallet, err := c.wallet(db, dest)
	if err != nil {
		return err
	}
	if err := wallet.Add(token, amount); err != nil {
		return errors.Wrapf(err, "wallet %s", dest)
	}
	return c.save(db, dest, wallet)
}

func (c BaseController) wallet(db hashgate.ReadOnlyKVStore, holder hashgate.Address) (*Wallet, error) {
	var wallet Wallet
	switch err := c.bucket.Get(db, holder, &wallet); {
	case err == nil, errors.ErrNotFound.Is(err):
		return &wallet, nil
	default:
		return nil, errors.Wrapf(err, "wallet %s", holder)
	}
}

func (c BaseController) save(db hashgate.KVStore, holder hashgate.Address, wallet *Wallet) error {
	if wallet.IsEmpty() {
		c.bucket.Delete(db, holder)
		return nil
	}
	return c.bucket.Save(db, holder, wallet)
}
