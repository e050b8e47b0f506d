package gatetest

import (
	"crypto/rand"

	"golang.org/x/crypto/ed25519"

	"github.com/hashgate/hashgate"
	"github.com/hashgate/hashgate/store"
)

// NewKey returns a fresh random ed25519 key pair.
func NewKey() (ed25519.PublicKey, ed25519.PrivateKey) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(err)
	}
	return pub, priv
}

// NewCondition returns a random condition.
func NewCondition() hashgate.Condition {
	return hashgate.NewCondition("gatetest", "random", RandBytes(16))
}

// NewAddress returns a random address.
func NewAddress() hashgate.Address {
	return NewCondition().Address()
}

// RandBytes returns n cryptographically random bytes.
func RandBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// NewStore returns an empty in-memory store.
func NewStore() hashgate.CacheableKVStore {
	return store.MemStore()
}
