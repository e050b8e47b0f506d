package store

import "sync"

// Exclusive wraps a store so that only one cache wrap is live at a time.
// The engine executes every mutating operation inside one cache wrap, so
// an exclusive store serializes all mutating operations on it, the same
// guarantee a chain gives by executing transactions one after another.
// The lock is taken by CacheWrap and released by Write or Discard.
func Exclusive(db CacheableKVStore) CacheableKVStore {
	return &exclusiveStore{db: db}
}

type exclusiveStore struct {
	mu sync.Mutex
	db CacheableKVStore
}

var _ CacheableKVStore = (*exclusiveStore)(nil)

func (e *exclusiveStore) Get(key []byte) []byte { return e.db.Get(key) }

func (e *exclusiveStore) Has(key []byte) bool { return e.db.Has(key) }

func (e *exclusiveStore) Set(key, value []byte) { e.db.Set(key, value) }

func (e *exclusiveStore) Delete(key []byte) { e.db.Delete(key) }

func (e *exclusiveStore) Iterator(start, end []byte) Iterator {
	return e.db.Iterator(start, end)
}

func (e *exclusiveStore) ReverseIterator(start, end []byte) Iterator {
	return e.db.ReverseIterator(start, end)
}

func (e *exclusiveStore) CacheWrap() KVCacheWrap {
	e.mu.Lock()
	return &exclusiveWrap{
		KVCacheWrap: e.db.CacheWrap(),
		mu:          &e.mu,
	}
}

type exclusiveWrap struct {
	KVCacheWrap
	mu   *sync.Mutex
	done bool
}

func (w *exclusiveWrap) Write() {
	if w.done {
		return
	}
	w.KVCacheWrap.Write()
	w.done = true
	w.mu.Unlock()
}

func (w *exclusiveWrap) Discard() {
	if w.done {
		return
	}
	w.KVCacheWrap.Discard()
	w.done = true
	w.mu.Unlock()
}
