package store

import (
	"bytes"

	"github.com/google/btree"
)

// itemIter merges cached btree writes with the iterator of the backing
// store. Cached writes shadow backing entries with the same key; cached
// deletes hide them entirely.
type itemIter struct {
	items   []btree.Item
	idx     int
	parent  Iterator
	reverse bool

	key   []byte
	value []byte
	valid bool
}

var _ Iterator = (*itemIter)(nil)

// newItemIter builds an iterator over the given cached items (already in
// iteration order) and the parent iterator over the same key domain.
func newItemIter(items []btree.Item, parent Iterator, reverse bool) *itemIter {
	iter := &itemIter{
		items:   items,
		parent:  parent,
		reverse: reverse,
	}
	iter.advance()
	return iter
}

// Valid returns whether the current position is valid.
func (i *itemIter) Valid() bool {
	return i.valid
}

// Next moves the iterator to the next entry in the merged order.
//
// If Valid returns false, this method will panic.
func (i *itemIter) Next() {
	if !i.valid {
		panic("Next() called on invalid iterator")
	}
	i.advance()
}

// Key returns the key of the cursor.
func (i *itemIter) Key() []byte {
	if !i.valid {
		panic("Key() called on invalid iterator")
	}
	return i.key
}

// Value returns the value of the cursor.
func (i *itemIter) Value() []byte {
	if !i.valid {
		panic("Value() called on invalid iterator")
	}
	return i.value
}

// Close releases the iterator and the parent one.
func (i *itemIter) Close() {
	i.items = nil
	i.valid = false
	i.parent.Close()
}

// advance loads the next visible entry into key/value, consuming both
// sources as needed. Deleted cache entries are skipped together with the
// backing entries they hide.
func (i *itemIter) advance() {
	for {
		haveCache := i.idx < len(i.items)
		haveParent := i.parent.Valid()

		if !haveCache && !haveParent {
			i.valid = false
			return
		}

		if !haveCache {
			i.loadParent()
			return
		}

		cached := i.items[i.idx]
		cmp := -1 // only the cache side is left
		if haveParent {
			cmp = bytes.Compare(cached.(keyer).Key(), i.parent.Key())
			if i.reverse {
				cmp = -cmp
			}
		}

		if cmp > 0 {
			// backing entry comes first and is not shadowed
			i.loadParent()
			return
		}
		if cmp == 0 {
			// cached write shadows this backing entry
			i.parent.Next()
		}
		i.idx++
		if set, ok := cached.(setItem); ok {
			i.key = set.Key()
			i.value = set.value
			i.valid = true
			return
		}
		// deletedItem hides the key, keep scanning
	}
}

// loadParent captures the parent position and steps over it.
func (i *itemIter) loadParent() {
	i.key = i.parent.Key()
	i.value = i.parent.Value()
	i.valid = true
	i.parent.Next()
}
