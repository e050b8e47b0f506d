package factory

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/hashgate/hashgate"
	"github.com/hashgate/hashgate/gatetest"
	"github.com/hashgate/hashgate/gatetest/assert"
)

func TestGenesisInitializer(t *testing.T) {
	db := gatetest.NewStore()
	owner := gatetest.NewAddress()
	resolver := gatetest.NewAddress()

	raw := fmt.Sprintf(`{
		"owner": %q,
		"paused": true,
		"whitelist_bypass": false,
		"rescue_delay": 604800,
		"resolvers": [%q]
	}`, hex.EncodeToString(owner), hex.EncodeToString(resolver))
	opts := hashgate.Options{"factory": json.RawMessage(raw)}

	var ini Initializer
	assert.Nil(t, ini.FromGenesis(opts, db))

	cfg, err := LoadConfig(db)
	assert.Nil(t, err)
	assert.Equal(t, owner, cfg.Owner)
	assert.Equal(t, true, cfg.Paused)
	assert.Equal(t, false, cfg.WhitelistBypass)
	assert.Equal(t, uint32(604800), cfg.RescueDelay)

	factory := NewFactory(gatetest.NewAddress(), &gatetest.CtxAuth{Key: "auth"}, nil)
	if !factory.IsResolver(db, resolver) {
		t.Fatal("genesis resolver not whitelisted")
	}
}

func TestGenesisInitializerNoSection(t *testing.T) {
	db := gatetest.NewStore()

	var ini Initializer
	assert.Nil(t, ini.FromGenesis(hashgate.Options{}, db))

	// nothing was persisted
	if _, err := LoadConfig(db); err == nil {
		t.Fatal("config must not exist")
	}
}

func TestGenesisInitializerBadResolver(t *testing.T) {
	db := gatetest.NewStore()
	owner := gatetest.NewAddress()

	raw := fmt.Sprintf(`{"owner": %q, "rescue_delay": 10, "resolvers": ["abcd"]}`, hex.EncodeToString(owner))
	opts := hashgate.Options{"factory": json.RawMessage(raw)}

	var ini Initializer
	if err := ini.FromGenesis(opts, db); err == nil {
		t.Fatal("invalid resolver must be rejected")
	}
}
