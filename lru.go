package cachesim

import (
	"time"

	"github.com/simplygulshan4u/cachesim/log"
)

// LRU is a single recency tier: a doubly linked list from MRU head to
// LRU tail plus its own hash index over the residents. Standalone it is
// a plain LRU policy; SLRU composes it through the unexported primitive
// ops (fits/admit/detach/popTail), which assume the caller already made
// room and emit no events.
type LRU struct {
	capacity int64
	occupied int64
	overhead int64

	defaultTTL time.Duration

	head *Obj // MRU end
	tail *Obj // LRU end

	index *HashIndex
	log   log.Logger
	stats Stats
	on    Inspector
}

// NewLRU builds a single-tier LRU policy.
func NewLRU(common CommonParams) (*LRU, error) {
	if err := common.withDefaults(); err != nil {
		return nil, err
	}
	return &LRU{
		capacity:   common.CacheSize,
		overhead:   common.PerObjOverhead,
		defaultTTL: common.DefaultTTL,
		index:      NewHashIndex(common.HashPower),
		log:        common.Logger,
	}, nil
}

// Check returns Hit, Miss, or Expired for req. On Hit with update=true
// the node moves to the MRU end.
func (c *LRU) Check(req *Request, update bool) Result {
	r := c.check(req, update)
	c.stats.record(r)
	return r
}

func (c *LRU) check(req *Request, update bool) Result {
	obj := c.index.Find(req.ID)
	if obj == nil {
		return Miss
	}
	if obj.expired(now()) {
		// left in place: expired residents are reclaimed by eviction
		// order, removing them here would thrash on scan workloads
		return Expired
	}
	if update {
		c.touch(obj)
	}
	return Hit
}

// Get is the full read path: on Miss or Expired the object is admitted
// unless it cannot fit the cache at all, and the original result is
// returned either way.
func (c *LRU) Get(req *Request) Result {
	r := c.Check(req, true)
	if r == Hit {
		return r
	}
	if req.Size+c.overhead > c.capacity {
		return r
	}
	c.Insert(req)
	return r
}

// Insert admits req, evicting from the LRU end until it fits. An object
// that can never fit is refused with a warning.
func (c *LRU) Insert(req *Request) {
	if req.Size+c.overhead > c.capacity {
		c.log.Warnf("insert: object %d (%d bytes) exceeds capacity %d", req.ID, req.Size, c.capacity)
		return
	}
	for !c.fits(req.Size) {
		c.Evict()
	}
	obj := c.newObj(req)
	c.admit(obj)
	c.emit(EventAdmit, obj.ID, obj.Size)
}

// Evict removes the LRU-end node and returns it; the caller owns the
// node afterwards. Nil when the tier is empty.
func (c *LRU) Evict() *Obj {
	obj := c.popTail()
	if obj == nil {
		return nil
	}
	c.stats.evictions.Inc()
	c.emit(EventEvict, obj.ID, obj.Size)
	return obj
}

// Remove unlinks by id from both the recency list and the index. Absent
// ids warn and return false.
func (c *LRU) Remove(id uint64) bool {
	obj := c.index.Delete(id)
	if obj == nil {
		c.log.Warnf("remove: object %d not cached", id)
		return false
	}
	c.detach(obj)
	c.emit(EventRemove, obj.ID, obj.Size)
	return true
}

// ToEvict returns the LRU-end node without removing it.
func (c *LRU) ToEvict() *Obj { return c.tail }

func (c *LRU) OccupiedSize() int64 { return c.occupied }
func (c *LRU) Capacity() int64     { return c.capacity }
func (c *LRU) NumObjects() int64   { return c.index.NumObjects() }

// Stats returns a snapshot of the runtime counters.
func (c *LRU) Stats() StatsSnapshot { return c.stats.Snapshot() }

// Inspect appends fn to the event callback chain.
func (c *LRU) Inspect(fn Inspector) { c.on = chain(c.on, fn) }

// Free releases the recency list and the index.
func (c *LRU) Free() {
	c.head, c.tail = nil, nil
	c.occupied = 0
	c.index.Free()
}

func (c *LRU) emit(ev Event, id uint64, size int64) {
	if c.on != nil {
		c.on(ev, id, size)
	}
}

func (c *LRU) newObj(req *Request) *Obj {
	ttl := req.TTL
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	var expireAt int64
	if ttl != 0 {
		expireAt = now() + int64(ttl)
	}
	return &Obj{ID: req.ID, Size: req.Size, Payload: req.Payload, expireAt: expireAt}
}

// fits reports whether one more object of the given size can be
// accounted without exceeding capacity.
func (c *LRU) fits(size int64) bool {
	return c.occupied+size+c.overhead <= c.capacity
}

// admit links obj at the MRU end and indexes it. Space must already be
// made; a stale same-id resident is displaced.
func (c *LRU) admit(obj *Obj) {
	if old := c.index.Insert(obj); old != nil {
		c.listRemove(old)
		c.occupied -= old.Size + c.overhead
	}
	c.pushFront(obj)
	c.occupied += obj.Size + c.overhead
	obj.inCache = true
}

// detach takes obj out of the recency list and accounting; the caller
// has already taken it out of the index.
func (c *LRU) detach(obj *Obj) {
	c.listRemove(obj)
	c.occupied -= obj.Size + c.overhead
	obj.inCache = false
}

// unlink fully disconnects a resident: index, list, accounting.
func (c *LRU) unlink(obj *Obj) {
	c.index.Delete(obj.ID)
	c.detach(obj)
}

// popTail evicts the LRU-end node and hands it to the caller.
func (c *LRU) popTail() *Obj {
	obj := c.tail
	if obj == nil {
		return nil
	}
	c.unlink(obj)
	return obj
}

func (c *LRU) pushFront(obj *Obj) {
	obj.lruPrev = nil
	obj.lruNext = c.head
	if c.head != nil {
		c.head.lruPrev = obj
	} else {
		c.tail = obj
	}
	c.head = obj
}

func (c *LRU) listRemove(obj *Obj) {
	if obj.lruPrev != nil {
		obj.lruPrev.lruNext = obj.lruNext
	} else {
		c.head = obj.lruNext
	}
	if obj.lruNext != nil {
		obj.lruNext.lruPrev = obj.lruPrev
	} else {
		c.tail = obj.lruPrev
	}
	obj.lruPrev, obj.lruNext = nil, nil
}

func (c *LRU) touch(obj *Obj) {
	if c.head == obj {
		return
	}
	c.listRemove(obj)
	c.pushFront(obj)
}
