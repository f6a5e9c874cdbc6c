// Package cachesim implements the core of a cache simulation engine: a
// segmented LRU eviction policy layered over concurrent chained hash
// indexes with striped reader/writer locking.
//
// The hash index is safe for concurrent use; the eviction policies are
// not, because promotion and cooling mutate several tiers from one
// logical step. Hosts driving a policy from several goroutines wrap it
// in Synced.
package cachesim

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/simplygulshan4u/cachesim/log"
)

// Result of a cache lookup.
type Result int

const (
	Miss Result = iota
	Hit
	Expired
)

func (r Result) String() string {
	switch r {
	case Hit:
		return "hit"
	case Expired:
		return "expired"
	}
	return "miss"
}

// Request describes one access against a cache.
type Request struct {
	ID   uint64
	Size int64

	// TTL overrides the cache default when non-zero.
	TTL time.Duration

	// Payload is carried onto the admitted node, uninterpreted.
	Payload interface{}
}

// Cache is the capability set every eviction policy satisfies.
type Cache interface {
	// Check looks the request up. With update=false it is read-only;
	// with update=true a hit refreshes recency and may promote.
	Check(req *Request, update bool) Result

	// Get is the full read path: Check with update, then admission on
	// Miss or Expired unless the object cannot fit the cache at all.
	Get(req *Request) Result

	// Insert admits without a prior lookup, evicting as needed to make
	// room. An object too large for the policy ever to hold is refused
	// with a warning.
	Insert(req *Request)

	// Evict forces a single eviction and returns the evicted node,
	// transferring ownership to the caller. Nil when empty.
	Evict() *Obj

	// Remove unlinks by id; false if the id is not resident.
	Remove(id uint64) bool

	// ToEvict previews the next eviction target without removing it.
	ToEvict() *Obj

	OccupiedSize() int64
	Capacity() int64
	NumObjects() int64

	// Free releases tier and index memory; the cache is unusable after.
	Free()
}

// CommonParams configure any policy.
type CommonParams struct {
	// CacheSize is the total byte budget.
	CacheSize int64

	// PerObjOverhead is added to every object's size in capacity
	// accounting decisions.
	PerObjOverhead int64

	// HashPower is log2 of the bucket count of each hash index;
	// defaulted when zero.
	HashPower int

	// DefaultTTL applies to requests carrying no TTL; 0 never expires.
	DefaultTTL time.Duration

	// Logger defaults to a nop logger.
	Logger log.Logger
}

func (p *CommonParams) withDefaults() error {
	if p.CacheSize <= 0 {
		return errors.Errorf("cachesim: cache size %d must be positive", p.CacheSize)
	}
	if p.PerObjOverhead < 0 {
		return errors.Errorf("cachesim: per-object overhead %d must not be negative", p.PerObjOverhead)
	}
	if p.HashPower <= 0 {
		p.HashPower = defaultHashPower
	}
	if p.Logger == nil {
		p.Logger = log.Nop()
	}
	return nil
}

// SLRUParams configure the segmented LRU policy.
type SLRUParams struct {
	// NSeg is the tier count, at least 1.
	NSeg int
}

// Event identifies a state transition a node underwent.
type Event int

const (
	EventAdmit Event = iota + 1
	EventPromote
	EventDemote
	EventEvict
	EventRemove
)

// Inspector observes node state transitions.
type Inspector func(ev Event, id uint64, size int64)

// chain appends next after old, calling in declaration order.
func chain(old, next Inspector) Inspector {
	if old == nil {
		return next
	}
	return func(ev Event, id uint64, size int64) {
		old(ev, id, size)
		next(ev, id, size)
	}
}

// Synced wraps a policy in one reader/writer mutex: the coarse-lock
// option for hosts driving a cache from several goroutines. Throughput
// is bounded by the single lock.
type Synced struct {
	mu sync.RWMutex
	c  Cache
}

// NewSynced wraps c.
func NewSynced(c Cache) *Synced { return &Synced{c: c} }

func (s *Synced) Check(req *Request, update bool) Result {
	if !update {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.c.Check(req, false)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Check(req, true)
}

func (s *Synced) Get(req *Request) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Get(req)
}

func (s *Synced) Insert(req *Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Insert(req)
}

func (s *Synced) Evict() *Obj {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Evict()
}

func (s *Synced) Remove(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Remove(id)
}

func (s *Synced) ToEvict() *Obj {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.c.ToEvict()
}

func (s *Synced) OccupiedSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.c.OccupiedSize()
}

func (s *Synced) Capacity() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.c.Capacity()
}

func (s *Synced) NumObjects() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.c.NumObjects()
}

func (s *Synced) Free() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Free()
}

var (
	_ Cache = (*LRU)(nil)
	_ Cache = (*SLRU)(nil)
	_ Cache = (*Synced)(nil)
)
