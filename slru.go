package cachesim

import (
	"time"

	"github.com/pkg/errors"

	"github.com/simplygulshan4u/cachesim/log"
)

// SLRU layers nSeg LRU tiers ordered cold (0) to hot (n-1). A hit below
// the top tier promotes the node one tier up, cooling the receiving
// tier's evictees down tier by tier until it fits; fresh objects enter
// at the coldest tier with room, and true evictions leave through tier
// 0 only. Each tier owns its residents and its own hash index; nodes
// move between tiers by explicit transfer, never by copy.
type SLRU struct {
	tiers []*LRU

	overhead   int64
	totalCap   int64
	defaultTTL time.Duration

	log   log.Logger
	stats Stats
	on    Inspector
}

// NewSLRU builds a segmented LRU. The requested cache size is divided
// equally across tiers; the integer-division remainder goes to tier 0
// so no capacity is silently lost.
func NewSLRU(common CommonParams, policy SLRUParams) (*SLRU, error) {
	if err := common.withDefaults(); err != nil {
		return nil, err
	}
	if policy.NSeg < 1 {
		return nil, errors.Errorf("cachesim: slru needs at least 1 tier, got %d", policy.NSeg)
	}
	per := common.CacheSize / int64(policy.NSeg)
	if per <= 0 {
		return nil, errors.Errorf("cachesim: cache size %d too small for %d tiers", common.CacheSize, policy.NSeg)
	}
	rem := common.CacheSize - per*int64(policy.NSeg)

	c := &SLRU{
		tiers:      make([]*LRU, policy.NSeg),
		overhead:   common.PerObjOverhead,
		totalCap:   common.CacheSize,
		defaultTTL: common.DefaultTTL,
		log:        common.Logger,
	}
	for i := range c.tiers {
		tierCap := per
		if i == 0 {
			tierCap += rem
		}
		tier, err := NewLRU(CommonParams{
			CacheSize:      tierCap,
			PerObjOverhead: common.PerObjOverhead,
			HashPower:      common.HashPower,
			DefaultTTL:     common.DefaultTTL,
			Logger:         common.Logger,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "cachesim: slru tier %d", i)
		}
		c.tiers[i] = tier
	}
	return c, nil
}

// Check scans tiers cold to hot. Expired short-circuits without probing
// further tiers. A hit below the top tier promotes when update=true;
// with update=false the lookup is read-only.
func (c *SLRU) Check(req *Request, update bool) Result {
	r := c.check(req, update)
	c.stats.record(r)
	return r
}

func (c *SLRU) check(req *Request, update bool) Result {
	t := now()
	for i, tier := range c.tiers {
		obj := tier.index.Find(req.ID)
		if obj == nil {
			continue
		}
		if obj.expired(t) {
			return Expired
		}
		if !update {
			return Hit
		}
		if i == len(c.tiers)-1 {
			tier.touch(obj)
			return Hit
		}
		c.promote(obj, i)
		return Hit
	}
	return Miss
}

// promote transfers obj from tier i to tier i+1, cooling the upper tier
// until the object fits. An object too large for the upper tier ever to
// hold stays put at its tier's MRU end.
func (c *SLRU) promote(obj *Obj, i int) {
	upper := c.tiers[i+1]
	if obj.Size+c.overhead > upper.capacity {
		c.tiers[i].touch(obj)
		return
	}
	c.tiers[i].unlink(obj)
	for !upper.fits(obj.Size) {
		c.cool(i + 1)
	}
	upper.admit(obj)
	c.emit(EventPromote, obj.ID, obj.Size)
}

// cool demotes tier i's LRU-end node into tier i-1, recursively cooling
// the receiver until the evictee fits. Cooling tier 0 is a true
// eviction: the node is discarded.
func (c *SLRU) cool(i int) {
	obj := c.tiers[i].popTail()
	if obj == nil {
		return
	}
	if i == 0 {
		c.stats.evictions.Inc()
		c.emit(EventEvict, obj.ID, obj.Size)
		return
	}
	lower := c.tiers[i-1]
	if obj.Size+c.overhead > lower.capacity {
		// can never fit the colder tier: a true eviction
		c.stats.evictions.Inc()
		c.emit(EventEvict, obj.ID, obj.Size)
		return
	}
	for !lower.fits(obj.Size) {
		c.cool(i - 1)
	}
	lower.admit(obj)
	c.emit(EventDemote, obj.ID, obj.Size)
}

// Get is the full read path. Objects larger than the whole cache are
// refused: the non-hit result comes back without admission.
func (c *SLRU) Get(req *Request) Result {
	r := c.Check(req, true)
	if r == Hit {
		return r
	}
	if req.Size+c.overhead > c.totalCap {
		return r
	}
	c.Insert(req)
	return r
}

// Insert admits req at the lowest tier that fits without eviction, or
// evicts from tier 0 until it fits there. Fresh objects never enter a
// hot tier directly; promotion earns upward motion.
func (c *SLRU) Insert(req *Request) {
	t0 := c.tiers[0]
	if req.Size+c.overhead > t0.capacity {
		c.log.Warnf("insert: object %d (%d bytes) exceeds tier-0 capacity %d", req.ID, req.Size, t0.capacity)
		return
	}
	obj := c.newObj(req)
	for _, tier := range c.tiers {
		if tier.fits(obj.Size) {
			tier.admit(obj)
			c.emit(EventAdmit, obj.ID, obj.Size)
			return
		}
	}
	for !t0.fits(obj.Size) {
		c.cool(0)
	}
	t0.admit(obj)
	c.emit(EventAdmit, obj.ID, obj.Size)
}

// Evict forces a single eviction from tier 0 and returns the node.
func (c *SLRU) Evict() *Obj {
	obj := c.tiers[0].popTail()
	if obj == nil {
		return nil
	}
	c.stats.evictions.Inc()
	c.emit(EventEvict, obj.ID, obj.Size)
	return obj
}

// ToEvict previews tier 0's LRU-end node.
func (c *SLRU) ToEvict() *Obj { return c.tiers[0].tail }

// Remove unlinks the first tier's match. Absent everywhere warns and
// returns false.
func (c *SLRU) Remove(id uint64) bool {
	for _, tier := range c.tiers {
		if obj := tier.index.Delete(id); obj != nil {
			tier.detach(obj)
			c.emit(EventRemove, obj.ID, obj.Size)
			return true
		}
	}
	c.log.Warnf("remove: object %d not cached", id)
	return false
}

func (c *SLRU) OccupiedSize() int64 {
	var sum int64
	for _, tier := range c.tiers {
		sum += tier.occupied
	}
	return sum
}

func (c *SLRU) Capacity() int64 { return c.totalCap }

func (c *SLRU) NumObjects() int64 {
	var sum int64
	for _, tier := range c.tiers {
		sum += tier.index.NumObjects()
	}
	return sum
}

// NumTiers returns the tier count.
func (c *SLRU) NumTiers() int { return len(c.tiers) }

// Stats returns a snapshot of the runtime counters.
func (c *SLRU) Stats() StatsSnapshot { return c.stats.Snapshot() }

// Inspect appends fn to the event callback chain.
func (c *SLRU) Inspect(fn Inspector) { c.on = chain(c.on, fn) }

// Free releases every tier.
func (c *SLRU) Free() {
	for _, tier := range c.tiers {
		tier.Free()
	}
}

func (c *SLRU) emit(ev Event, id uint64, size int64) {
	if c.on != nil {
		c.on(ev, id, size)
	}
}

func (c *SLRU) newObj(req *Request) *Obj {
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
