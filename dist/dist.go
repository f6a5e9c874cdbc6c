// Package dist propagates cache invalidations between processes over a
// Redis pub/sub channel, so sibling simulators drop objects a peer
// evicted or removed. Adapters are provided for go-redis v7/v8 and
// redigo; hosts bind whichever client they already carry.
package dist

import (
	"encoding/binary"
	"math/rand"
	"sync"

	"github.com/pkg/errors"

	"github.com/simplygulshan4u/cachesim"
	"github.com/simplygulshan4u/cachesim/log"
)

// DefaultChannel is used when NewBus is given an empty channel name.
const DefaultChannel = "cachesim:inval"

// RedisCli is the minimal pub/sub capability a Redis client adapter
// exposes to the bus.
type RedisCli interface {
	Publish(channel string, payload []byte) error

	// Subscribe delivers every payload published to channel to handler
	// until the returned stop function is called. handler may be called
	// from an internal goroutine.
	Subscribe(channel string, handler func(payload []byte)) (stop func() error, err error)
}

// Inspectable is satisfied by policies exposing event hooks.
type Inspectable interface {
	Inspect(cachesim.Inspector)
}

// Bus binds named caches to one invalidation channel. Local evictions
// and removals publish {origin, obj_id, name}; messages from other
// origins remove the object from the cache registered under name.
type Bus struct {
	cli     RedisCli
	channel string
	origin  uint64
	log     log.Logger
	stop    func() error

	mu     sync.RWMutex
	caches map[string]cachesim.Cache
}

// NewBus subscribes to channel on cli and returns the running bus.
func NewBus(cli RedisCli, channel string, logger log.Logger) (*Bus, error) {
	if cli == nil {
		return nil, errors.New("dist: nil redis client")
	}
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = log.Nop()
	}
	b := &Bus{
		cli:     cli,
		channel: channel,
		origin:  rand.Uint64(),
		log:     logger,
		caches:  make(map[string]cachesim.Cache),
	}
	stop, err := cli.Subscribe(channel, b.onMessage)
	if err != nil {
		return nil, errors.Wrap(err, "dist: subscribe")
	}
	b.stop = stop
	return b, nil
}

// Register binds c under name. hooks is the same policy (or whatever
// emits its events); split so a Synced wrapper can front the cache
// while the inner policy feeds the bus.
func (b *Bus) Register(name string, c cachesim.Cache, hooks Inspectable) {
	b.mu.Lock()
	b.caches[name] = c
	b.mu.Unlock()

	hooks.Inspect(func(ev cachesim.Event, id uint64, size int64) {
		if ev != cachesim.EventEvict && ev != cachesim.EventRemove {
			return
		}
		if err := b.cli.Publish(b.channel, b.encode(name, id)); err != nil {
			b.log.Warnf("dist: publish %s/%d: %v", name, id, err)
		}
	})
}

// Close stops the subscription.
func (b *Bus) Close() error {
	if b.stop == nil {
		return nil
	}
	return b.stop()
}

// message layout: 8B origin | 8B obj id | name
func (b *Bus) encode(name string, id uint64) []byte {
	p := make([]byte, 16+len(name))
	binary.LittleEndian.PutUint64(p[:8], b.origin)
	binary.LittleEndian.PutUint64(p[8:16], id)
	copy(p[16:], name)
	return p
}

func (b *Bus) onMessage(payload []byte) {
	if len(payload) < 16 {
		b.log.Warnf("dist: short message (%d bytes)", len(payload))
		return
	}
	if binary.LittleEndian.Uint64(payload[:8]) == b.origin {
		return // own message
	}
	id := binary.LittleEndian.Uint64(payload[8:16])
	name := string(payload[16:])

	b.mu.RLock()
	c := b.caches[name]
	b.mu.RUnlock()
	if c == nil {
		return
	}
	c.Remove(id)
}
