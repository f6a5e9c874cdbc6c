package cachesim

// Obj is the unit of caching: one object's metadata node. The links are
// intrusive so insert/evict never allocate: hashNext chains the node into
// exactly one hash bucket, lruPrev/lruNext into at most one tier's
// recency list. A node detached from both is owned by whoever holds the
// returned pointer.
type Obj struct {
	ID   uint64
	Size int64

	// Payload is opaque to the engine.
	Payload interface{}

	inCache  bool
	expireAt int64 // nano timestamp, 0 stands for permanent

	hashNext *Obj
	lruPrev  *Obj
	lruNext  *Obj
}

// InCache reports whether the node is currently resident in some tier.
func (o *Obj) InCache() bool { return o.inCache }

func (o *Obj) expired(t int64) bool { return o.expireAt > 0 && t > o.expireAt }
