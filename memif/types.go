// Package memif defines the wire-level contract between a core and the
// memory system that sits behind it. The memory system itself (caches,
// coherence, the bus, DRAM timing) is out of scope for this module and is
// modeled only as a pair of bounded FIFOs that a core can push requests
// into and pull responses out of.
package memif

// Kind identifies what an instruction or request is.
type Kind int

const (
	// Compute is an ALU-class instruction. It never crosses into memif;
	// it is born ready in the ROB and carries no address.
	Compute Kind = iota
	// Load reads from memory.
	Load
	// Store writes to memory.
	Store
)

// String returns a short human-readable label, used in log lines.
func (k Kind) String() string {
	switch k {
	case Compute:
		return "COMPUTE"
	case Load:
		return "READ"
	case Store:
		return "WRITE"
	default:
		return "UNKNOWN"
	}
}

// Request is the instruction/memory-access record that flows through the
// ROB, the LSQ, and, for Load/Store, into the cache TX FIFO.
type Request struct {
	// MsgID is a monotonically increasing identifier assigned at
	// dispatch. It is the join key used by ROB.Commit, LSQ.Commit, and
	// the response matching in Queue.RxFromCache.
	MsgID uint64
	// CoreID is the originating core.
	CoreID uint16
	// Kind is one of Compute, Load, Store.
	Kind Kind
	// Addr is the memory address. Unused (conventionally 0) for Compute.
	Addr uint64
	// DispatchCycle is the cycle this request was allocated into the ROB.
	DispatchCycle uint64
}

// Response is a reply to a single Request that was previously emitted into
// a cache TX FIFO. Every emitted request eventually receives exactly one
// response; no assumption is made about ordering or latency beyond that.
type Response struct {
	// MsgID matches the originating Request.MsgID.
	MsgID uint64
	// Addr is carried through from the request for diagnostics.
	Addr uint64
	// ReqCycle is the cycle the original request was issued.
	ReqCycle uint64
	// RespCycle is the cycle this response was produced.
	RespCycle uint64
}
