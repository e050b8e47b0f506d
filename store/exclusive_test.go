package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExclusiveSerializesWraps(t *testing.T) {
	db := Exclusive(MemStore())

	const workers = 8
	const rounds = 25

	// every worker increments a shared counter inside its own wrap. With
	// wraps serialized no increment can be lost.
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				wrap := db.CacheWrap()
				val := wrap.Get([]byte("counter"))
				var n byte
				if val != nil {
					n = val[0]
				}
				wrap.Set([]byte("counter"), []byte{n + 1})
				wrap.Write()
			}
		}()
	}
	wg.Wait()

	got := db.Get([]byte("counter"))
	assert.Equal(t, []byte{workers * rounds}, got)
}

func TestExclusiveDiscardReleasesLock(t *testing.T) {
	db := Exclusive(MemStore())

	wrap := db.CacheWrap()
	wrap.Set([]byte("key"), []byte("dropped"))
	wrap.Discard()

	// a discarded wrap left nothing behind and released the lock
	assert.Nil(t, db.Get([]byte("key")))
	wrap2 := db.CacheWrap()
	wrap2.Set([]byte("key"), []byte("kept"))
	wrap2.Write()
	assert.Equal(t, []byte("kept"), db.Get([]byte("key")))

	// double release is harmless
	wrap2.Discard()
}
