// Package lsq implements the Load-Store Queue: a fixed-capacity,
// dispatch-ordered queue of memory operations that performs store-to-load
// forwarding, drives requests into the cache TX FIFO in program order, and
// integrates cache responses.
package lsq

import (
	"log/slog"

	"github.com/sarchlab/oocore/memif"
)

// DefaultMaxEntries is the LSQ capacity used when none is configured.
const DefaultMaxEntries = 8

// Committer is the non-owning reference the LSQ holds to the ROB. Only
// Commit is needed: the LSQ never allocates into or retires from the ROB
// directly.
type Committer interface {
	Commit(msgID uint64)
}

// Entry is a single in-flight memory operation sitting in the LSQ.
type Entry struct {
	// Request is the Load or Store this entry tracks.
	Request memif.Request
	// Ready means, for a Load, that data is available (forwarded or
	// returned from the cache); for a Store, that it has committed
	// (set at allocation, since stores never stall the pipeline).
	Ready bool
	// WaitingForCache means this entry has been emitted into the cache
	// TX FIFO and has not yet been answered.
	WaitingForCache bool
	// CacheAck means the cache has acknowledged this Store. Required
	// before a Store entry may be retired.
	CacheAck bool
}

// Queue is the LSQ itself.
type Queue struct {
	maxEntries int
	entries    []Entry
	rob        Committer
	log        *slog.Logger

	drainedThisCycle bool
}

// Option configures a Queue at construction time.
type Option func(*Queue)

// WithMaxEntries overrides the default capacity (8).
func WithMaxEntries(n int) Option {
	return func(q *Queue) { q.maxEntries = n }
}

// WithLogger attaches a structured logger. If omitted, slog.Default() is
// used.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.log = l }
}

// New creates an empty Queue that commits readiness notifications into
// rob.
func New(rob Committer, opts ...Option) *Queue {
	q := &Queue{
		maxEntries: DefaultMaxEntries,
		rob:        rob,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// CanAccept reports whether the LSQ has room for one more entry.
func (q *Queue) CanAccept() bool {
	return len(q.entries) < q.maxEntries
}

// Size returns the current number of entries.
func (q *Queue) Size() int {
	return len(q.entries)
}

// IsEmpty reports whether the LSQ holds no entries.
func (q *Queue) IsEmpty() bool {
	return len(q.entries) == 0
}

// RemoveLastEntry pops the tail entry. It mirrors the ROB's method and
// lets a caller undo an allocation; the TraceDriver's rollback does not
// call it, since a failed Allocate leaves the LSQ unchanged and only the
// ROB entry needs removing. Fails silently on empty.
func (q *Queue) RemoveLastEntry() {
	if len(q.entries) == 0 {
		return
	}
	q.entries = q.entries[:len(q.entries)-1]
}

// Allocate appends a new memory-op entry at the tail. A Store is born
// ready and committed into the ROB immediately, since the CPU is not
// stalled waiting for stores to complete. A Load runs store-to-load
// forwarding immediately; if it hits, it is born ready and committed,
// otherwise it waits for the cache. Returns false, state unchanged, if
// the LSQ is full.
func (q *Queue) Allocate(req memif.Request) bool {
	if !q.CanAccept() {
		q.log.Debug("lsq allocate rejected: full", "msg_id", req.MsgID)
		return false
	}

	switch req.Kind {
	case memif.Store:
		q.entries = append(q.entries, Entry{Request: req, Ready: true})
		q.rob.Commit(req.MsgID)
	case memif.Load:
		q.entries = append(q.entries, Entry{Request: req, Ready: false})
		q.LdFwd(req.Addr)
	default:
		q.log.Warn("lsq allocate given a non-memory request", "msg_id", req.MsgID, "kind", req.Kind)
	}
	return true
}

// LdFwd implements store-to-load forwarding. It scans the queue from
// youngest (tail) to oldest (head) for the first Store at addr. Since
// Stores are born ready, no readiness check is needed to find one. If
// none exists, it returns false and changes nothing. Otherwise it
// promotes every Load strictly younger than that Store, matching addr,
// that is not yet ready, to ready, committing each into the ROB, and
// returns true. Only the youngest matching Store is ever the forwarding
// source: memory ordering requires the most recent prior store.
func (q *Queue) LdFwd(addr uint64) bool {
	storeIdx := -1
	for i := len(q.entries) - 1; i >= 0; i-- {
		if q.entries[i].Request.Kind == memif.Store && q.entries[i].Request.Addr == addr {
			storeIdx = i
			break
		}
	}
	if storeIdx == -1 {
		return false
	}

	for i := storeIdx + 1; i < len(q.entries); i++ {
		e := &q.entries[i]
		if e.Request.Kind == memif.Load && e.Request.Addr == addr && !e.Ready {
			e.Ready = true
			q.rob.Commit(e.Request.MsgID)
			q.log.Debug("lsq forwarded load", "msg_id", e.Request.MsgID, "addr", addr,
				"store_msg_id", q.entries[storeIdx].Request.MsgID)
		}
	}
	return true
}

// Commit is a notification from outside the LSQ (currently unused by this
// module's own TraceDriver, which relies on PushToCache/RxFromCache, but
// kept for symmetry with the ROB's contract and for test doubles that
// drive the LSQ directly). It idempotently marks the matching entry ready
// and is a harmless no-op if msgID is not present.
func (q *Queue) Commit(msgID uint64) {
	for i := range q.entries {
		if q.entries[i].Request.MsgID == msgID {
			q.entries[i].Ready = true
			return
		}
	}
	q.log.Debug("lsq commit for unknown msg_id", "msg_id", msgID)
}

// EntryReady reports whether the entry with the given msg_id is currently
// ready. Callers use this right after Allocate to tell a Load satisfied by
// forwarding (ready immediately, never reaching the cache) from one that
// still needs a cache round trip. Returns false if no such entry exists.
func (q *Queue) EntryReady(msgID uint64) bool {
	for i := range q.entries {
		if q.entries[i].Request.MsgID == msgID {
			return q.entries[i].Ready
		}
	}
	return false
}

// PushToCache emits at most the head entry into the cache TX FIFO,
// preserving per-core memory ordering at the external boundary. The head
// is eligible iff it is not already waiting on a response and either: it
// is a ready Store, or it is a not-yet-ready Load. A Load that became
// ready through forwarding is excluded: it never needs to go to the
// cache at all.
func (q *Queue) PushToCache(cache memif.CacheInterface) {
	if len(q.entries) == 0 {
		return
	}
	tx := cache.TX()
	if tx.IsFull() {
		return
	}

	head := &q.entries[0]
	if head.WaitingForCache {
		return
	}

	eligible := (head.Request.Kind == memif.Store && head.Ready) ||
		(head.Request.Kind == memif.Load && !head.Ready)
	if !eligible {
		return
	}

	tx.Push(head.Request)
	head.WaitingForCache = true
	q.log.Debug("lsq pushed to cache", "msg_id", head.Request.MsgID, "kind", head.Request.Kind)
}

// RxFromCache pops at most one response from the cache RX FIFO and
// integrates it: clears WaitingForCache on the matching entry; for a
// Load, marks it ready and commits it into the ROB, then re-runs
// forwarding for its address so later identical loads may inherit
// readiness; for a Store, marks CacheAck so it becomes retireable. A
// response whose msg_id is no longer present is logged and otherwise
// ignored; expected when a load was forwarded, retired, and a cache
// response it never should have needed nonetheless arrives (guarded
// against by PushToCache's ready-exclusion, but tolerated defensively).
func (q *Queue) RxFromCache(cache memif.CacheInterface) {
	q.drainedThisCycle = false

	resp, ok := cache.RX().Pop()
	if !ok {
		return
	}
	q.drainedThisCycle = true

	for i := range q.entries {
		e := &q.entries[i]
		if e.Request.MsgID != resp.MsgID {
			continue
		}
		e.WaitingForCache = false
		switch e.Request.Kind {
		case memif.Load:
			e.Ready = true
			q.rob.Commit(resp.MsgID)
			q.log.Debug("lsq load satisfied by cache", "msg_id", resp.MsgID)
			q.LdFwd(e.Request.Addr)
		case memif.Store:
			e.CacheAck = true
			q.log.Debug("lsq store acked by cache", "msg_id", resp.MsgID)
		}
		return
	}

	q.log.Warn("lsq cache response for unknown msg_id", "msg_id", resp.MsgID)
}

// Retire drains removable entries from the head forward, in order,
// stopping at the first non-removable head. A Load is removable once
// ready; a Store is removable once cache-acked.
func (q *Queue) Retire() []uint64 {
	retired := make([]uint64, 0)
	for len(q.entries) > 0 {
		head := q.entries[0]
		removable := (head.Request.Kind == memif.Load && head.Ready) ||
			(head.Request.Kind == memif.Store && head.CacheAck)
		if !removable {
			break
		}
		retired = append(retired, head.Request.MsgID)
		q.entries = q.entries[1:]
	}
	if len(retired) > 0 {
		q.log.Debug("lsq retired", "msg_ids", retired)
	}
	return retired
}

// DrainedThisCycle reports whether the most recent RxFromCache call
// actually popped a response from the cache RX FIFO. The TraceDriver
// uses this to decrement its in-flight counter (design variant A: the
// driver observes the LSQ's bookkeeping rather than the LSQ maintaining
// a separate shared counter itself).
func (q *Queue) DrainedThisCycle() bool {
	return q.drainedThisCycle
}

// Step runs the LSQ's fixed per-cycle order: PushToCache, then
// RxFromCache, then Retire. Pushing before receiving avoids a same-cycle
// round trip satisfying itself; receiving before retiring ensures a
// fresh response is visible to retirement in the same cycle it arrives.
func (q *Queue) Step(cache memif.CacheInterface) []uint64 {
	q.PushToCache(cache)
	q.RxFromCache(cache)
	return q.Retire()
}
