package orm

import (
	"bytes"
	"testing"

	"github.com/hashgate/hashgate/gatetest/assert"
	"github.com/hashgate/hashgate/store"
)

func TestSequenceMonotonic(t *testing.T) {
	db := store.MemStore()
	seq := NewSequence("journal", "counter")

	latest, _ := seq.Latest(db)
	assert.Equal(t, int64(0), latest)

	var prev []byte
	for i := int64(1); i <= 10; i++ {
		val := seq.NextVal(db)
		if prev != nil && bytes.Compare(prev, val) >= 0 {
			t.Fatal("values must grow in byte order")
		}
		prev = val
		assert.Equal(t, i, DecodeSequence(val))
	}

	latest, raw := seq.Latest(db)
	assert.Equal(t, int64(10), latest)
	assert.Equal(t, prev, raw)
	assert.Equal(t, int64(11), seq.NextInt(db))
}

func TestSequencesAreIndependent(t *testing.T) {
	db := store.MemStore()
	one := NewSequence("journal", "one")
	two := NewSequence("journal", "two")

	assert.Equal(t, int64(1), one.NextInt(db))
	assert.Equal(t, int64(2), one.NextInt(db))
	assert.Equal(t, int64(1), two.NextInt(db))
}

func TestDecodeSequenceNil(t *testing.T) {
	assert.Equal(t, int64(0), DecodeSequence(nil))
	assert.Equal(t, int64(42), DecodeSequence(EncodeSequence(42)))
}
