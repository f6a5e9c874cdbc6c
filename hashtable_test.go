package cachesim

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// chainLengths walks every bucket so tests can verify n_obj bookkeeping.
func chainLengths(h *HashIndex) int64 {
	var n int64
	for _, head := range h.buckets {
		for cur := head; cur != nil; cur = cur.hashNext {
			n++
		}
	}
	return n
}

func TestHashIndexInsertFindDelete(t *testing.T) {
	h := NewHashIndex(4)

	obj := &Obj{ID: 7, Size: 10}
	require.Nil(t, h.Insert(obj))
	require.EqualValues(t, 1, h.NumObjects())

	found := h.Find(7)
	require.Same(t, obj, found)

	require.Nil(t, h.Find(8))

	deleted := h.Delete(7)
	require.Same(t, obj, deleted)
	require.False(t, deleted.InCache())
	require.Nil(t, h.Find(7))
	require.EqualValues(t, 0, h.NumObjects())

	require.Nil(t, h.Delete(7))
}

func TestHashIndexReplaceOnInsert(t *testing.T) {
	h := NewHashIndex(4)

	first := &Obj{ID: 42, Size: 1}
	second := &Obj{ID: 42, Size: 2}

	require.Nil(t, h.Insert(first))
	old := h.Insert(second)
	require.Same(t, first, old)
	require.False(t, old.InCache())

	// replacement keeps the count: one id, one entry
	require.EqualValues(t, 1, h.NumObjects())
	require.Same(t, second, h.Find(42))
}

func TestHashIndexReplaceKeepsChainPosition(t *testing.T) {
	// 2 buckets force long chains
	h := NewHashIndex(1)
	for id := uint64(0); id < 8; id++ {
		require.Nil(t, h.Insert(&Obj{ID: id, Size: 1}))
	}

	repl := &Obj{ID: 3, Size: 9}
	require.NotNil(t, h.Insert(repl))
	require.EqualValues(t, 8, h.NumObjects())
	require.Equal(t, h.NumObjects(), chainLengths(h))

	// every id still reachable
	for id := uint64(0); id < 8; id++ {
		require.NotNil(t, h.Find(id), "id %d", id)
	}
	require.Same(t, repl, h.Find(3))
}

func TestHashIndexDeleteMidChain(t *testing.T) {
	h := NewHashIndex(1)
	for id := uint64(0); id < 16; id++ {
		h.Insert(&Obj{ID: id, Size: 1})
	}

	// delete in an order that hits heads, mids, and tails of chains
	for _, id := range []uint64{0, 15, 7, 8, 3, 12} {
		require.NotNil(t, h.Delete(id))
	}
	require.EqualValues(t, 10, h.NumObjects())
	require.Equal(t, h.NumObjects(), chainLengths(h))

	for _, id := range []uint64{0, 15, 7, 8, 3, 12} {
		require.Nil(t, h.Find(id))
	}
}

func TestHashIndexRandomObj(t *testing.T) {
	h := NewHashIndex(4)
	rng := rand.New(rand.NewSource(1))

	// empty table returns nil instead of spinning
	require.Nil(t, h.RandomObj(rng))

	h.Insert(&Obj{ID: 99, Size: 1})
	obj := h.RandomObj(rng)
	require.NotNil(t, obj)
	require.EqualValues(t, 99, obj.ID)
}

func TestHashIndexCounts(t *testing.T) {
	h := NewHashIndex(6)
	for id := uint64(0); id < 200; id++ {
		h.Insert(&Obj{ID: id, Size: 1})
	}
	require.EqualValues(t, 200, h.NumObjects())
	require.Equal(t, h.NumObjects(), chainLengths(h))

	for id := uint64(0); id < 200; id += 2 {
		h.Delete(id)
	}
	require.EqualValues(t, 100, h.NumObjects())
	require.Equal(t, h.NumObjects(), chainLengths(h))
}

func TestHashIndexConcurrentInserts(t *testing.T) {
	h := NewHashIndex(12) // 4 locks in the pool

	var wg sync.WaitGroup
	const perWorker = 500
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			base := uint64(w * perWorker)
			for i := uint64(0); i < perWorker; i++ {
				h.Insert(&Obj{ID: base + i, Size: 1})
			}
		}(w)
	}
	wg.Wait()

	require.EqualValues(t, 8*perWorker, h.NumObjects())
	require.Equal(t, h.NumObjects(), chainLengths(h))
	for id := uint64(0); id < 8*perWorker; id++ {
		require.NotNil(t, h.Find(id))
	}
}

func TestHashIndexConcurrentMixed(t *testing.T) {
	h := NewHashIndex(10)
	for id := uint64(0); id < 1000; id++ {
		h.Insert(&Obj{ID: id, Size: 1})
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for id := uint64(0); id < 500; id++ {
			h.Delete(id)
		}
	}()
	go func() {
		defer wg.Done()
		for id := uint64(1000); id < 1500; id++ {
			h.Insert(&Obj{ID: id, Size: 1})
		}
	}()
	go func() {
		defer wg.Done()
		for id := uint64(500); id < 1000; id++ {
			h.Find(id)
		}
	}()
	wg.Wait()

	require.EqualValues(t, 1000, h.NumObjects())
	require.Equal(t, h.NumObjects(), chainLengths(h))
}
