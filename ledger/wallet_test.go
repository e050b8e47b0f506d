package ledger

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/hashgate/hashgate/errors"
	"github.com/hashgate/hashgate/gatetest"
	"github.com/hashgate/hashgate/gatetest/assert"
)

func TestWalletAddSubtract(t *testing.T) {
	tokenA := gatetest.NewAddress()
	tokenB := gatetest.NewAddress()

	var w Wallet
	assert.Equal(t, true, w.IsEmpty())
	assert.Equal(t, uint64(0), w.Total(tokenA).Uint64())

	assert.Nil(t, w.Add(tokenA, uint256.NewInt(100)))
	assert.Nil(t, w.Add(tokenB, uint256.NewInt(5)))
	assert.Nil(t, w.Add(tokenA, uint256.NewInt(1)))
	assert.Equal(t, uint64(101), w.Total(tokenA).Uint64())
	assert.Equal(t, uint64(5), w.Total(tokenB).Uint64())

	assert.Nil(t, w.Subtract(tokenA, uint256.NewInt(101)))
	assert.Equal(t, uint64(0), w.Total(tokenA).Uint64())

	// drained balances are dropped entirely
	assert.Equal(t, 1, len(w.Balances()))

	err := w.Subtract(tokenB, uint256.NewInt(6))
	assert.IsErr(t, errors.ErrInsufficientAmount, err)

	// subtracting zero of an unknown token is a noop
	assert.Nil(t, w.Subtract(tokenA, new(uint256.Int)))
}

func TestWalletAddOverflow(t *testing.T) {
	token := gatetest.NewAddress()
	max := new(uint256.Int).Not(new(uint256.Int))

	var w Wallet
	assert.Nil(t, w.Add(token, max))
	err := w.Add(token, uint256.NewInt(1))
	assert.IsErr(t, errors.ErrOverflow, err)
	assert.Equal(t, max, w.Total(token))
}

func TestWalletKeepsCanonicalOrder(t *testing.T) {
	var w Wallet
	tokens := [][]byte{{3}, {1}, {2}}
	for _, b := range tokens {
		token := make([]byte, 20)
		copy(token, b)
		assert.Nil(t, w.Add(token, uint256.NewInt(1)))
	}
	assert.Nil(t, w.Validate())

	balances := w.Balances()
	assert.Equal(t, 3, len(balances))
	for i := 1; i < len(balances); i++ {
		if string(balances[i-1].Token) >= string(balances[i].Token) {
			t.Fatal("balances out of order")
		}
	}
}

func TestWalletMarshalRoundTrip(t *testing.T) {
	var w Wallet
	assert.Nil(t, w.Add(gatetest.NewAddress(), uint256.NewInt(100)))
	assert.Nil(t, w.Add(gatetest.NewAddress(), new(uint256.Int).Lsh(uint256.NewInt(1), 200)))

	raw, err := w.Marshal()
	assert.Nil(t, err)

	var restored Wallet
	assert.Nil(t, restored.Unmarshal(raw))
	assert.Equal(t, w.Balances(), restored.Balances())
}
