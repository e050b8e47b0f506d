package ledger

import (
	"bytes"
	"encoding/binary"

	"github.com/holiman/uint256"

	"github.com/hashgate/hashgate"
	"github.com/hashgate/hashgate/errors"
	"github.com/hashgate/hashgate/orm"
)

// NativeToken is the token identifier of the chain-native currency.
var NativeToken = hashgate.Address(make([]byte, 20))

// Balance is the amount of one token held in a wallet.
type Balance struct {
	Token  hashgate.Address
	Amount *uint256.Int
}

// Wallet holds all token balances of one address, ordered by token so the
// encoding stays deterministic.
type Wallet struct {
	balances []Balance
}

var _ orm.Model = (*Wallet)(nil)

// Validate ensures every balance refers to a proper token.
func (w *Wallet) Validate() error {
	for i, b := range w.balances {
		if err := b.Token.Validate(); err != nil {
			return errors.Field("Token", err, "balance %d", i)
		}
		if b.Amount == nil {
			return errors.Field("Amount", errors.ErrEmpty, "balance %d", i)
		}
		if i > 0 && bytes.Compare(w.balances[i-1].Token, b.Token) >= 0 {
			return errors.Wrap(errors.ErrState, "balances out of order")
		}
	}
	return nil
}

// Total returns the balance held for given token. The result is never
// nil and never aliases wallet state.
func (w *Wallet) Total(token hashgate.Address) *uint256.Int {
	for _, b := range w.balances {
		if b.Token.Equals(token) {
			return new(uint256.Int).Set(b.Amount)
		}
	}
	return new(uint256.Int)
}

// Add increases the balance of given token. Overflow above 2^256-1 is
// rejected.
func (w *Wallet) Add(token hashgate.Address, amount *uint256.Int) error {
	for i, b := range w.balances {
		if b.Token.Equals(token) {
			sum, overflow := new(uint256.Int).AddOverflow(b.Amount, amount)
			if overflow {
				return errors.Wrap(errors.ErrOverflow, "balance")
			}
			w.balances[i].Amount = sum
			return nil
		}
	}
	w.balances = append(w.balances, Balance{
		Token:  token.Clone(),
		Amount: new(uint256.Int).Set(amount),
	})
	// keep token order canonical
	for i := len(w.balances) - 1; i > 0; i-- {
		if bytes.Compare(w.balances[i-1].Token, w.balances[i].Token) <= 0 {
			break
		}
		w.balances[i-1], w.balances[i] = w.balances[i], w.balances[i-1]
	}
	return nil
}

// Subtract decreases the balance of given token, failing when the wallet
// does not hold enough.
func (w *Wallet) Subtract(token hashgate.Address, amount *uint256.Int) error {
	for i, b := range w.balances {
		if !b.Token.Equals(token) {
			continue
		}
		if b.Amount.Cmp(amount) < 0 {
			return errors.Wrapf(errors.ErrInsufficientAmount, "token %s", token)
		}
		w.balances[i].Amount = new(uint256.Int).Sub(b.Amount, amount)
		if w.balances[i].Amount.IsZero() {
			w.balances = append(w.balances[:i], w.balances[i+1:]...)
		}
		return nil
	}
	if amount.IsZero() {
		return nil
	}
	return errors.Wrapf(errors.ErrInsufficientAmount, "token %s", token)
}

// IsEmpty returns true when the wallet holds no balance at all.
func (w *Wallet) IsEmpty() bool {
	return len(w.balances) == 0
}

// Balances returns a copy of all non-zero balances in canonical order.
func (w *Wallet) Balances() []Balance {
	out := make([]Balance, len(w.balances))
	for i, b := range w.balances {
		out[i] = Balance{
			Token:  b.Token.Clone(),
			Amount: new(uint256.Int).Set(b.Amount),
		}
	}
	return out
}

// Marshal returns the deterministic binary encoding: a count followed by
// (token, 32 byte amount) pairs in token order.
func (w *Wallet) Marshal() ([]byte, error) {
	var out []byte
	var count [4]byte
	binary.BigEndian.PutUint32(count[:], uint32(len(w.balances)))
	out = append(out, count[:]...)
	for _, b := range w.balances {
		out = append(out, b.Token...)
		amt := b.Amount.Bytes32()
		out = append(out, amt[:]...)
	}
	return out, nil
}

// Unmarshal loads the wallet from its binary encoding.
func (w *Wallet) Unmarshal(data []byte) error {
	if len(data) < 4 {
		return errors.Wrap(errors.ErrInput, "wallet: truncated")
	}
	count := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	const entry = 20 + 32
	if len(data) != int(count)*entry {
		return errors.Wrap(errors.ErrInput, "wallet: length mismatch")
	}
	w.balances = make([]Balance, count)
	for i := range w.balances {
		token := hashgate.Address(data[:20]).Clone()
		amount := new(uint256.Int).SetBytes(data[20:entry])
		w.balances[i] = Balance{Token: token, Amount: amount}
		data = data[entry:]
	}
	return nil
}
