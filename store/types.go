package store

import "github.com/hashgate/hashgate"

// Move references for all storage types into this package
// for shorter names everywhere.

type KVStore = hashgate.KVStore
type ReadOnlyKVStore = hashgate.ReadOnlyKVStore
type SetDeleter = hashgate.SetDeleter
type Batch = hashgate.Batch
type Iterator = hashgate.Iterator
type CacheableKVStore = hashgate.CacheableKVStore
type KVCacheWrap = hashgate.KVCacheWrap
type CommitKVStore = hashgate.CommitKVStore
type CommitID = hashgate.CommitID

// Model groups a key-value pair of raw store data.
type Model struct {
	Key   []byte
	Value []byte
}
