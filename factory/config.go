package factory

import (
	"encoding/binary"

	"github.com/hashgate/hashgate"
	"github.com/hashgate/hashgate/errors"
	"github.com/hashgate/hashgate/orm"
)

// Config is the persisted runtime configuration of the factory. The
// owner is the only address allowed to change it.
type Config struct {
	// Owner administers the factory.
	Owner hashgate.Address

	// Paused blocks escrow creation. Operations on deployed escrows are
	// never blocked.
	Paused bool

	// WhitelistBypass disables the resolver whitelist check of the
	// endorsement policy.
	WhitelistBypass bool

	// RescueDelay is the number of seconds after escrow deployment
	// before stray funds may be swept.
	RescueDelay uint32
}

var _ orm.Model = (*Config)(nil)

// Validate ensures the configuration is complete.
func (c *Config) Validate() error {
	if err := c.Owner.Validate(); err != nil {
		return errors.Field("Owner", err, "")
	}
	if c.RescueDelay == 0 {
		return errors.Field("RescueDelay", errors.ErrInput, "rescue delay is required")
	}
	return nil
}

// Marshal returns the deterministic binary encoding of the
// configuration.
func (c *Config) Marshal() ([]byte, error) {
	out := make([]byte, 0, hashgate.AddressLength+6)
	out = append(out, c.Owner...)
	out = append(out, boolByte(c.Paused), boolByte(c.WhitelistBypass))
	var delay [4]byte
	binary.BigEndian.PutUint32(delay[:], c.RescueDelay)
	return append(out, delay[:]...), nil
}

// Unmarshal loads the configuration from its binary encoding.
func (c *Config) Unmarshal(data []byte) error {
	if len(data) != hashgate.AddressLength+6 {
		return errors.Wrap(errors.ErrInput, "config: bad length")
	}
	c.Owner = hashgate.Address(data[:hashgate.AddressLength]).Clone()
	c.Paused = data[hashgate.AddressLength] != 0
	c.WhitelistBypass = data[hashgate.AddressLength+1] != 0
	c.RescueDelay = binary.BigEndian.Uint32(data[hashgate.AddressLength+2:])
	return nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

var configKey = []byte("config")

func newConfigBucket() orm.Bucket {
	return orm.NewBucket("gateconf")
}

// LoadConfig returns the persisted factory configuration.
func LoadConfig(db hashgate.ReadOnlyKVStore) (*Config, error) {
	var cfg Config
	if err := newConfigBucket().Get(db, configKey, &cfg); err != nil {
		return nil, errors.Wrap(err, "factory config")
	}
	return &cfg, nil
}

// SaveConfig persists the factory configuration.
func SaveConfig(db hashgate.KVStore, cfg *Config) error {
	return newConfigBucket().Save(db, configKey, cfg)
}
