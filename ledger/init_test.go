package ledger

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/holiman/uint256"

	"github.com/hashgate/hashgate"
	"github.com/hashgate/hashgate/gatetest"
	"github.com/hashgate/hashgate/gatetest/assert"
)

func TestGenesisBalances(t *testing.T) {
	db := gatetest.NewStore()
	cash := NewController()
	alice := gatetest.NewAddress()
	bob := gatetest.NewAddress()
	token := gatetest.NewAddress()

	raw := fmt.Sprintf(`[
		{"address": %q, "amount": "1000"},
		{"address": %q, "token": %q, "amount": "115792089237316195423570985008687907853269984665640564039457584007913129639935"}
	]`, hex.EncodeToString(alice), hex.EncodeToString(bob), hex.EncodeToString(token))
	opts := hashgate.Options{"ledger": json.RawMessage(raw)}

	ini := Initializer{Minter: cash}
	assert.Nil(t, ini.FromGenesis(opts, db))

	aliceNative, err := cash.Balance(db, alice, NativeToken)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1000), aliceNative.Uint64())

	bobToken, err := cash.Balance(db, bob, token)
	assert.Nil(t, err)
	max := new(uint256.Int).Not(new(uint256.Int))
	if !bobToken.Eq(max) {
		t.Fatal("expected the full 256 bit amount")
	}
}

func TestGenesisBalancesBadAmount(t *testing.T) {
	db := gatetest.NewStore()
	cash := NewController()
	alice := gatetest.NewAddress()

	raw := fmt.Sprintf(`[{"address": %q, "amount": "not a number"}]`, hex.EncodeToString(alice))
	opts := hashgate.Options{"ledger": json.RawMessage(raw)}

	ini := Initializer{Minter: cash}
	if err := ini.FromGenesis(opts, db); err == nil {
		t.Fatal("invalid amount must be rejected")
	}
}
