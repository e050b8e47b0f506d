package factory

import (
	"github.com/hashgate/hashgate"
	"github.com/hashgate/hashgate/errors"
)

var _ hashgate.Initializer = (*Initializer)(nil)

// Initializer loads the factory configuration and the initial resolver
// whitelist from the genesis file.
type Initializer struct{}

// FromGenesis parses the "factory" genesis option and persists the
// configuration and whitelist.
func (Initializer) FromGenesis(opts hashgate.Options, db hashgate.KVStore) error {
	var conf struct {
		Owner           hashgate.Address   `json:"owner"`
		Paused          bool               `json:"paused"`
		WhitelistBypass bool               `json:"whitelist_bypass"`
		RescueDelay     uint32             `json:"rescue_delay"`
		Resolvers       []hashgate.Address `json:"resolvers"`
	}
	if err := opts.ReadOptions("factory", &conf); err != nil {
		return errors.Wrap(err, "factory options")
	}
	if conf.Owner == nil {
		// no factory section in this genesis
		return nil
	}
	cfg := Config{
		Owner:           conf.Owner,
		Paused:          conf.Paused,
		WhitelistBypass: conf.WhitelistBypass,
		RescueDelay:     conf.RescueDelay,
	}
	if err := SaveConfig(db, &cfg); err != nil {
		return err
	}
	resolvers := newResolverBucket()
	for i, addr := range conf.Resolvers {
		if err := addr.Validate(); err != nil {
			return errors.Wrapf(err, "resolver at position %d", i)
		}
		if err := resolvers.Save(db, addr, resolverMark{}); err != nil {
			return err
		}
	}
	return nil
}
