// Package rob implements the Reorder Buffer: a fixed-capacity, dispatch-
// ordered queue of in-flight instructions that enforces in-order
// architectural retirement over an out-of-order execution core.
package rob

import (
	"log/slog"

	"github.com/sarchlab/oocore/memif"
)

// DefaultMaxEntries is the ROB capacity used when none is configured.
const DefaultMaxEntries = 32

// DefaultIPC is the maximum number of entries retired per cycle when none
// is configured.
const DefaultIPC = 4

// Entry is a single dispatched instruction sitting in the ROB.
type Entry struct {
	// Request is the instruction this entry tracks.
	Request memif.Request
	// Ready means the result is known and architectural state may
	// advance past this instruction. Monotonic: once true, an Entry
	// never reports ready=false again while it remains in the ROB.
	Ready bool
	// AllocateCycle is the cycle this entry was allocated.
	AllocateCycle uint64
}

// ReorderBuffer is the in-order retirement structure. It holds non-owning
// references to nothing else: the LSQ and TraceDriver call into it, it
// never calls out.
type ReorderBuffer struct {
	maxEntries int
	ipc        int
	entries    []Entry
	log        *slog.Logger
}

// Option configures a ReorderBuffer at construction time.
type Option func(*ReorderBuffer)

// WithMaxEntries overrides the default capacity.
func WithMaxEntries(n int) Option {
	return func(r *ReorderBuffer) { r.maxEntries = n }
}

// WithIPC overrides the default per-cycle retirement bound.
func WithIPC(n int) Option {
	return func(r *ReorderBuffer) { r.ipc = n }
}

// WithLogger attaches a structured logger. If omitted, slog.Default() is
// used.
func WithLogger(l *slog.Logger) Option {
	return func(r *ReorderBuffer) { r.log = l }
}

// New creates an empty ReorderBuffer with the given options applied over
// the defaults (MAX_ENTRIES=32, IPC=4).
func New(opts ...Option) *ReorderBuffer {
	r := &ReorderBuffer{
		maxEntries: DefaultMaxEntries,
		ipc:        DefaultIPC,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CanAccept reports whether the ROB has room for one more entry.
func (r *ReorderBuffer) CanAccept() bool {
	return len(r.entries) < r.maxEntries
}

// Size returns the current number of entries.
func (r *ReorderBuffer) Size() int {
	return len(r.entries)
}

// IsEmpty reports whether the ROB holds no entries.
func (r *ReorderBuffer) IsEmpty() bool {
	return len(r.entries) == 0
}

// Allocate appends a new entry at the tail for req. A Compute request is
// born ready immediately since it never waits on memory. Returns false,
// leaving state unchanged, if the ROB is full.
func (r *ReorderBuffer) Allocate(req memif.Request) bool {
	if !r.CanAccept() {
		r.log.Debug("rob allocate rejected: full", "msg_id", req.MsgID)
		return false
	}

	r.entries = append(r.entries, Entry{
		Request:       req,
		Ready:         req.Kind == memif.Compute,
		AllocateCycle: req.DispatchCycle,
	})
	return true
}

// Commit marks the entry with the given msg_id ready. It is a no-op, with
// a warning logged, if no such entry is present. This is expected when a
// response for a forwarded-and-already-retired load arrives late. Commit
// is idempotent: committing an already-ready entry changes nothing.
func (r *ReorderBuffer) Commit(msgID uint64) {
	for i := range r.entries {
		if r.entries[i].Request.MsgID == msgID {
			r.entries[i].Ready = true
			return
		}
	}
	r.log.Warn("rob commit for unknown msg_id", "msg_id", msgID)
}

// RemoveLastEntry pops the tail entry. Used by the TraceDriver to roll
// back a ROB allocation whose matching LSQ allocation failed. Fails
// silently (no-op) if the ROB is empty.
func (r *ReorderBuffer) RemoveLastEntry() {
	if len(r.entries) == 0 {
		return
	}
	r.entries = r.entries[:len(r.entries)-1]
}

// Step retires up to IPC ready entries from the head, stopping at the
// first non-ready head or once IPC entries have retired this cycle. It
// returns the msg_ids retired, in retirement (= dispatch) order.
func (r *ReorderBuffer) Step() []uint64 {
	retired := make([]uint64, 0, r.ipc)
	for len(retired) < r.ipc && len(r.entries) > 0 && r.entries[0].Ready {
		retired = append(retired, r.entries[0].Request.MsgID)
		r.entries = r.entries[1:]
	}
	if len(retired) > 0 {
		r.log.Debug("rob retired", "msg_ids", retired)
	}
	return retired
}
