package cachesim

import "go.uber.org/atomic"

// Stats tracks runtime counters of a cache. Increments are atomic so a
// snapshot never tears even while the owning policy is being driven.
type Stats struct {
	hits        atomic.Uint64
	misses      atomic.Uint64
	expirations atomic.Uint64
	evictions   atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Hits        uint64
	Misses      uint64
	Expirations uint64
	Evictions   uint64
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Hits:        s.hits.Load(),
		Misses:      s.misses.Load(),
		Expirations: s.expirations.Load(),
		Evictions:   s.evictions.Load(),
	}
}

func (s *Stats) record(r Result) {
	switch r {
	case Hit:
		s.hits.Inc()
	case Expired:
		s.expirations.Inc()
	default:
		s.misses.Inc()
	}
}
