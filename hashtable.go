package cachesim

import (
	"encoding/binary"
	"math/rand"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/atomic"
)

const (
	defaultHashPower = 16

	// buckets per lock: 2^lockShareBits buckets share one lock
	lockShareBits = 10
)

// HashIndex maps obj ids to their nodes with chained buckets striped
// over a LockPool. The bucket count is fixed at construction; there is
// no online rehash. Each operation takes exactly one pool lock, so no
// lock ordering concern exists inside the index.
type HashIndex struct {
	hashpower int
	buckets   []*Obj
	locks     *LockPool
	nObj      atomic.Int64
}

// NewHashIndex allocates 1<<hashpower buckets guarded by a pool of
// 2^max(0, hashpower-10) locks.
func NewHashIndex(hashpower int) *HashIndex {
	if hashpower <= 0 {
		hashpower = defaultHashPower
	}
	lp := hashpower - lockShareBits
	if lp < 0 {
		lp = 0
	}
	return &HashIndex{
		hashpower: hashpower,
		buckets:   make([]*Obj, 1<<uint(hashpower)),
		locks:     NewLockPool(lp),
	}
}

func hashID(id uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], id)
	return xxhash.Sum64(b[:])
}

func (h *HashIndex) bucketOf(id uint64) uint64 {
	return hashID(id) & uint64(len(h.buckets)-1)
}

// Find returns the node of id, or nil. The reference stays valid only as
// long as the caller's outer synchronization keeps the node resident.
func (h *HashIndex) Find(id uint64) *Obj {
	b := h.bucketOf(id)
	l := h.locks.LockFor(b)
	l.RLock()
	defer l.RUnlock()
	for cur := h.buckets[b]; cur != nil; cur = cur.hashNext {
		if cur.ID == id {
			return cur
		}
	}
	return nil
}

// Insert links obj into its bucket chain. A prior node with the same id
// is replaced at its chain position and returned detached with the count
// unchanged; otherwise obj becomes the chain head and nil is returned.
// obj leaves with inCache=false either way; the caller flips it once the
// node is also linked into a tier.
func (h *HashIndex) Insert(obj *Obj) *Obj {
	b := h.bucketOf(obj.ID)
	l := h.locks.LockFor(b)
	l.Lock()
	defer l.Unlock()
	obj.inCache = false
	for pp := &h.buckets[b]; *pp != nil; pp = &(*pp).hashNext {
		if (*pp).ID == obj.ID {
			old := *pp
			obj.hashNext = old.hashNext
			*pp = obj
			old.hashNext = nil
			old.inCache = false
			return old
		}
	}
	obj.hashNext = h.buckets[b]
	h.buckets[b] = obj
	h.nObj.Inc()
	return nil
}

// Delete unlinks the first node matching id and returns it, or nil if
// absent. The returned node is owned by the caller.
func (h *HashIndex) Delete(id uint64) *Obj {
	b := h.bucketOf(id)
	l := h.locks.LockFor(b)
	l.Lock()
	defer l.Unlock()
	for pp := &h.buckets[b]; *pp != nil; pp = &(*pp).hashNext {
		if (*pp).ID == id {
			old := *pp
			*pp = old.hashNext
			old.hashNext = nil
			old.inCache = false
			h.nObj.Dec()
			return old
		}
	}
	return nil
}

// NumObjects returns the live entry count.
func (h *HashIndex) NumObjects() int64 { return h.nObj.Load() }

// randomProbeLimit bounds the random phase of RandomObj.
const randomProbeLimit = 32

// RandomObj returns some resident node, reader-locking one bucket per
// probe. It probes random buckets first, then sweeps from a random
// start so a sparse table still yields a node; nil once the sweep
// exhausts, so an emptying table cannot spin forever.
func (h *HashIndex) RandomObj(rng *rand.Rand) *Obj {
	if h.nObj.Load() == 0 {
		return nil
	}
	n := len(h.buckets)
	probe := func(b uint64) *Obj {
		l := h.locks.LockFor(b)
		l.RLock()
		defer l.RUnlock()
		return h.buckets[b]
	}
	for i := 0; i < randomProbeLimit; i++ {
		if obj := probe(uint64(rng.Intn(n))); obj != nil {
			return obj
		}
	}
	start := rng.Intn(n)
	for i := 0; i < n; i++ {
		if obj := probe(uint64((start + i) % n)); obj != nil {
			return obj
		}
	}
	return nil
}

// Free drops the buckets and the lock pool. The index never frees object
// memory; resident nodes stay owned by their tier.
func (h *HashIndex) Free() {
	h.buckets = nil
	h.locks.Destroy()
	h.nObj.Store(0)
}
