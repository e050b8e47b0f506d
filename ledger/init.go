package ledger

import (
	"github.com/holiman/uint256"

	"github.com/hashgate/hashgate"
	"github.com/hashgate/hashgate/errors"
)

var _ hashgate.Initializer = (*Initializer)(nil)

// Initializer loads the genesis balances and issues them to the listed
// wallets.
type Initializer struct {
	Minter Minter
}

// FromGenesis parses the "ledger" genesis option and mints the listed
// balances. Token defaults to the native token when omitted.
func (i *Initializer) FromGenesis(opts hashgate.Options, db hashgate.KVStore) error {
	var balances []struct {
		Address hashgate.Address `json:"address"`
		Token   hashgate.Address `json:"token"`
		Amount  string           `json:"amount"`
	}
	if err := opts.ReadOptions("ledger", &balances); err != nil {
		return errors.Wrap(err, "ledger options")
	}
	for j, b := range balances {
		token := b.Token
		if token == nil {
			token = NativeToken
		}
		amount, err := uint256.FromDecimal(b.Amount)
		if err != nil {
			return errors.Wrapf(errors.ErrInput, "amount at position %d: %v", j, err)
		}
		if err := i.Minter.IssueCoins(db, b.Address, token, amount); err != nil {
			return errors.Wrapf(err, "balance at position %d", j)
		}
	}
	return nil
}
