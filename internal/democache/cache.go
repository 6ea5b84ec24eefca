// Package democache provides a minimal, self-contained implementation of
// memif.CacheInterface, built on Akita's directory/LRU machinery. It
// exists to give the core simulator something concrete to talk to across
// the TraceDriver/LSQ boundary in tests and the cmd/oocore demo binary;
// it is not a faithful memory-hierarchy model (no data storage, no
// write-allocate, no backing store) since the simulator core never reads
// or writes data values, only completion timing.
package democache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/oocore/memif"
)

// Config sizes the directory and sets per-outcome latencies. Defaults are
// a small, fast-to-exercise placeholder, not a model of any particular
// real hardware.
type Config struct {
	// Sets is the number of cache sets.
	Sets int
	// Associativity is the number of ways per set.
	Associativity int
	// BlockSize in bytes, used only to compute block-aligned addresses.
	BlockSize int
	// HitLatency is the number of cycles a hit takes to complete, from
	// the cycle the request is popped off TX.
	HitLatency uint64
	// MissLatency is the number of cycles a miss takes to complete.
	MissLatency uint64
}

// DefaultConfig returns a small, fast-to-exercise configuration: 64 sets,
// 4-way, 64-byte lines, 1-cycle hits, 20-cycle misses.
func DefaultConfig() Config {
	return Config{
		Sets:          64,
		Associativity: 4,
		BlockSize:     64,
		HitLatency:    1,
		MissLatency:   20,
	}
}

// Statistics reports hit/miss counts for inspection in tests and in the
// cmd/oocore summary output.
type Statistics struct {
	Hits   uint64
	Misses uint64
}

// pendingCompletion is a response that has been sized but not yet
// eligible to be pushed to RX, because its completion cycle hasn't
// arrived. Because hit and miss latencies differ, completions do not
// necessarily finish in the order their requests were issued: a miss
// issued before a hit can complete after it.
type pendingCompletion struct {
	resp          memif.Response
	completeCycle uint64
}

// Cache is a cycle-driven demonstration cache that sits on the far side
// of a memif.CacheInterface boundary. Construct one per memory channel
// the simulator needs, call Tick once per cycle with the current cycle
// count, and wire its Endpoint half to a Core via memif.CacheInterface.
type Cache struct {
	cfg       Config
	directory *akitacache.DirectoryImpl
	endpoint  *memif.Endpoint
	pending   []pendingCompletion
	stats     Statistics
}

// New constructs a Cache with the given config and an RX/TX endpoint of
// the given depth (0 means unbounded, matching memif.NewEndpoint).
func New(cfg Config, endpointDepth int) *Cache {
	return &Cache{
		cfg: cfg,
		directory: akitacache.NewDirectory(
			cfg.Sets,
			cfg.Associativity,
			cfg.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		endpoint: memif.NewEndpoint(endpointDepth),
	}
}

// Interface exposes the memif.CacheInterface side of this cache, to be
// handed to trace.Open / core.New.
func (c *Cache) Interface() memif.CacheInterface {
	return c.endpoint
}

// Stats returns the cache's current hit/miss counters.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// Tick advances the cache by one cycle: it accepts at most one newly
// arrived request off TX, looks it up in the directory, and schedules a
// completion; then it flushes any pending completions whose cycle has
// arrived into RX, in the order they finish (not the order they were
// issued in).
func (c *Cache) Tick(cycle uint64) {
	if req, ok := c.endpoint.TX().Pop(); ok {
		c.accept(req, cycle)
	}
	c.flush(cycle)
}

// accept looks req up in the directory, updates LRU state and
// statistics, and queues a completion for cycle+latency cycles from now.
func (c *Cache) accept(req memif.Request, cycle uint64) {
	blockAddr := c.blockAlign(req.Addr)
	block := c.directory.Lookup(0, blockAddr)

	var latency uint64
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		latency = c.cfg.HitLatency
	} else {
		c.stats.Misses++
		latency = c.cfg.MissLatency
		c.fill(blockAddr)
	}

	c.pending = append(c.pending, pendingCompletion{
		resp: memif.Response{
			MsgID:     req.MsgID,
			Addr:      req.Addr,
			ReqCycle:  req.DispatchCycle,
			RespCycle: cycle + latency,
		},
		completeCycle: cycle + latency,
	})
}

// fill finds a victim for blockAddr and installs it, evicting whatever
// was there (data is never actually stored; this only maintains
// directory tag/valid/LRU state so that subsequent accesses hit).
func (c *Cache) fill(blockAddr uint64) {
	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return
	}
	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false
	c.directory.Visit(victim)
}

// flush pushes every pending completion whose cycle has arrived into RX,
// then drops it from pending. Completions are checked in the order they
// were scheduled, but a completion only flushes once its own cycle has
// arrived, so a short-latency hit queued after a long-latency miss can
// and does flush first.
func (c *Cache) flush(cycle uint64) {
	remaining := c.pending[:0]
	for _, p := range c.pending {
		if p.completeCycle <= cycle {
			c.endpoint.RX().Push(p.resp)
			continue
		}
		remaining = append(remaining, p)
	}
	c.pending = remaining
}

func (c *Cache) blockAlign(addr uint64) uint64 {
	bs := uint64(c.cfg.BlockSize)
	return (addr / bs) * bs
}
