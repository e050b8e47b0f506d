/*
Package orm provides a thin object layer over the raw key-value store:
prefixed buckets for persisting models and monotonic sequences for key
generation. Models bring their own deterministic binary codec, which the
escrow digest scheme requires anyway, so there is no separate wire
format in between.
*/
package orm

import (
	"github.com/hashgate/hashgate"
	"github.com/hashgate/hashgate/errors"
)

// Model is implemented by everything a Bucket can persist.
type Model interface {
	// Marshal returns the deterministic binary encoding of the model.
	Marshal() ([]byte, error)

	// Unmarshal loads the model from its binary encoding.
	Unmarshal(data []byte) error

	// Validate returns an error if the model cannot be persisted in its
	// current shape.
	Validate() error
}

// Bucket persists models of one kind under a shared key prefix.
type Bucket struct {
	prefix []byte
}

// NewBucket creates a bucket with the given name as key namespace.
func NewBucket(name string) Bucket {
	if !validBucketName(name) {
		panic("invalid bucket name: " + name)
	}
	return Bucket{
		prefix: append([]byte(name), ':'),
	}
}

func validBucketName(name string) bool {
	if len(name) < 3 || len(name) > 10 {
		return false
	}
	for _, c := range name {
		if (c < 'a' || c > 'z') && c != '_' {
			return false
		}
	}
	return true
}

// DBKey returns the full storage key for given model key.
func (b Bucket) DBKey(key []byte) []byte {
	return append(append([]byte{}, b.prefix...), key...)
}

// Get loads the model stored under given key into dst. ErrNotFound is
// returned when no value is stored.
func (b Bucket) Get(db hashgate.ReadOnlyKVStore, key []byte, dst Model) error {
	raw := db.Get(b.DBKey(key))
	if raw == nil {
		return errors.Wrapf(errors.ErrNotFound, "bucket %q key %X", b.prefix, key)
	}
	if err := dst.Unmarshal(raw); err != nil {
		return errors.Wrap(err, "unmarshal")
	}
	return nil
}

// Has returns true if a value is stored under given key.
func (b Bucket) Has(db hashgate.ReadOnlyKVStore, key []byte) bool {
	return db.Has(b.DBKey(key))
}

// Save validates and persists the model under given key.
func (b Bucket) Save(db hashgate.KVStore, key []byte, m Model) error {
	if err := m.Validate(); err != nil {
		return errors.Wrap(err, "invalid model")
	}
	raw, err := m.Marshal()
	if err != nil {
		return errors.Wrap(err, "marshal")
	}
	db.Set(b.DBKey(key), raw)
	return nil
}

// Delete removes the value stored under given key. Deleting an absent key
// is not an error.
func (b Bucket) Delete(db hashgate.KVStore, key []byte) {
	db.Delete(b.DBKey(key))
}

// Iterator walks all models of this bucket in ascending key order. Keys
// yielded by the iterator carry the bucket prefix.
func (b Bucket) Iterator(db hashgate.ReadOnlyKVStore) hashgate.Iterator {
	start, end := prefixRange(b.prefix)
	return db.Iterator(start, end)
}

// PrefixIterator walks the models whose key starts with given prefix, in
// ascending key order. from, when not nil, moves the start of the walk
// to prefix||from.
func (b Bucket) PrefixIterator(db hashgate.ReadOnlyKVStore, prefix, from []byte) hashgate.Iterator {
	start, end := prefixRange(b.DBKey(prefix))
	if from != nil {
		start = append(start, from...)
	}
	return db.Iterator(start, end)
}

// prefixRange turns a prefix into (start, end) so that every key in
// between shares the prefix. end is nil when the prefix is all 0xff.
func prefixRange(prefix []byte) ([]byte, []byte) {
	if len(prefix) == 0 {
		return nil, nil
	}
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return prefix, end[:i+1]
		}
	}
	return prefix, nil
}
