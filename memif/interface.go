package memif

// CacheInterface is the narrow boundary a core talks to. It owns nothing
// about cache state, coherence, or timing: it is just a pair of bounded
// FIFOs, shared between the core and exactly one external producer/
// consumer of memory traffic. The cooperative, single-threaded cycle
// schedule is what makes unsynchronized access to these FIFOs safe; no
// locking is required.
type CacheInterface interface {
	// TX returns the request FIFO the core inserts into.
	TX() *RequestFIFO
	// RX returns the response FIFO the core pops from.
	RX() *ResponseFIFO
}

// Endpoint is the default CacheInterface implementation: a bare pair of
// FIFOs with no behavior of their own. Anything that wants to act as the
// external world (a test double, internal/democache, or a real cache
// model) reads from Endpoint.TX() and writes into Endpoint.RX().
type Endpoint struct {
	tx *RequestFIFO
	rx *ResponseFIFO
}

// NewEndpoint creates a CacheInterface with TX/RX FIFOs of the given
// depth.
func NewEndpoint(depth int) *Endpoint {
	return &Endpoint{
		tx: NewFIFO[Request](depth),
		rx: NewFIFO[Response](depth),
	}
}

// TX implements CacheInterface.
func (e *Endpoint) TX() *RequestFIFO { return e.tx }

// RX implements CacheInterface.
func (e *Endpoint) RX() *ResponseFIFO { return e.rx }
