package iavl

import (
	"github.com/tendermint/iavl"
	dbm "github.com/tendermint/tendermint/libs/db"

	"github.com/hashgate/hashgate/store"
)

const defaultCacheSize = 10000

// CommitStore manages an iavl committed state. The factory registry and
// escrow state live in here on deployments that want the state to survive
// a process restart. Every Commit produces a merkle root, so two
// operators can cheaply compare their view of the same escrow set.
type CommitStore struct {
	tree *iavl.MutableTree
}

var _ store.CommitKVStore = (*CommitStore)(nil)
var _ store.CacheableKVStore = (*CommitStore)(nil)

// NewCommitStore creates a new store with leveldb disk backing.
func NewCommitStore(dir, name string) *CommitStore {
	db, err := dbm.NewGoLevelDB(name, dir)
	if err != nil {
		panic(err)
	}
	return &CommitStore{
		tree: iavl.NewMutableTree(db, defaultCacheSize),
	}
}

// MemCommitStore creates a store without disk backing, useful for tests
// that want the exact same storage implementation as production.
func MemCommitStore() *CommitStore {
	return &CommitStore{
		tree: iavl.NewMutableTree(dbm.NewMemDB(), defaultCacheSize),
	}
}

// Get returns the value at the current working state.
// Returns nil iff key doesn't exist. Panics on nil key.
func (s *CommitStore) Get(key []byte) []byte {
	_, value := s.tree.Get(key)
	return value
}

// Has checks if a key exists. Panics on nil key.
func (s *CommitStore) Has(key []byte) bool {
	return s.tree.Has(key)
}

// Set writes to the working state. It becomes persistent on Commit.
func (s *CommitStore) Set(key, value []byte) {
	s.tree.Set(key, value)
}

// Delete removes from the working state. It becomes persistent on Commit.
func (s *CommitStore) Delete(key []byte) {
	s.tree.Remove(key)
}

// Iterator over a domain of keys in ascending order. End is exclusive.
func (s *CommitStore) Iterator(start, end []byte) store.Iterator {
	return s.iterator(start, end, true)
}

// ReverseIterator over a domain of keys in descending order. End is
// exclusive.
func (s *CommitStore) ReverseIterator(start, end []byte) store.Iterator {
	return s.iterator(start, end, false)
}

func (s *CommitStore) iterator(start, end []byte, ascending bool) store.Iterator {
	// The tree walk delivers entries through a callback, our Iterator
	// interface is pull based. The domains iterated in this engine
	// (registry, wallet, journal prefixes) are small, so materializing
	// the range is acceptable.
	var models []store.Model
	s.tree.IterateRange(start, end, ascending, func(key, value []byte) bool {
		models = append(models, store.Model{Key: key, Value: value})
		return false
	})
	return store.NewSliceIterator(models)
}

// CacheWrap returns a scratch pad over the working state. Write applies
// all collected changes to the working state, Discard drops them.
func (s *CommitStore) CacheWrap() store.KVCacheWrap {
	return store.NewBTreeCacheWrap(s, store.NewNonAtomicBatch(s), nil)
}

// Commit the next version to disk, and returns info.
func (s *CommitStore) Commit() store.CommitID {
	hash, version, err := s.tree.SaveVersion()
	if err != nil {
		panic(err)
	}
	return store.CommitID{
		Version: version,
		Hash:    hash,
	}
}

// LoadLatestVersion loads the latest persisted version.
// If there was a crash during the last commit, it is guaranteed
// to return a stable state, even if older.
func (s *CommitStore) LoadLatestVersion() error {
	_, err := s.tree.Load()
	return err
}

// LatestVersion returns info on the latest version saved to disk.
func (s *CommitStore) LatestVersion() store.CommitID {
	return store.CommitID{
		Version: s.tree.Version(),
		Hash:    s.tree.Hash(),
	}
}
