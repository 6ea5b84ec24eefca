package trace_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/oocore/memif"
	"github.com/sarchlab/oocore/timing/lsq"
	"github.com/sarchlab/oocore/timing/rob"
	"github.com/sarchlab/oocore/timing/trace"
)

// writeTrace writes lines to a temp file and returns its path.
func writeTrace(dir string, lines ...string) string {
	path := filepath.Join(dir, "bench.trace")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
	return path
}

// respondImmediately drains every pending request in the cache TX FIFO
// into an immediate response, simulating a same-latency memory system for
// tests that only care about ordering, not timing.
func respondImmediately(cache memif.CacheInterface, cycle uint64) {
	for {
		req, ok := cache.TX().Pop()
		if !ok {
			return
		}
		cache.RX().Push(memif.Response{
			MsgID:     req.MsgID,
			Addr:      req.Addr,
			ReqCycle:  req.DispatchCycle,
			RespCycle: cycle,
		})
	}
}

// harness bundles one core's ROB/LSQ/Driver/cache for direct,
// spec-ordered cycle stepping in tests.
type harness struct {
	r     *rob.ReorderBuffer
	q     *lsq.Queue
	cache *memif.Endpoint
	d     *trace.Driver
	cycle uint64
}

func newHarness(path string, opts trace.Options) *harness {
	r := rob.New(rob.WithMaxEntries(32), rob.WithIPC(4))
	q := lsq.New(r, lsq.WithMaxEntries(8))
	cache := memif.NewEndpoint(16)
	d, err := trace.Open(path, 0, r, q, cache, opts, nil)
	Expect(err).NotTo(HaveOccurred())
	return &harness{r: r, q: q, cache: cache, d: d}
}

// tick runs exactly one cycle in the authoritative order: ROB step, LSQ
// step, TraceDriver TX, TraceDriver RX.
func (h *harness) tick() {
	h.r.Step()
	h.q.Step(h.cache)
	h.d.TX()
	h.d.RX()
	h.cycle++
}

// tickWithLoopback runs one cycle and then immediately answers any
// requests that reached the cache this cycle, so the next cycle's
// rx_from_cache sees them.
func (h *harness) tickWithLoopback() {
	h.tick()
	respondImmediately(h.cache, h.cycle)
}

var _ = Describe("Driver", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("fails fatally when the trace cannot be opened", func() {
		r := rob.New()
		q := lsq.New(r)
		cache := memif.NewEndpoint(4)
		_, err := trace.Open(filepath.Join(dir, "does-not-exist"), 0, r, q, cache, trace.Options{}, nil)
		Expect(err).To(HaveOccurred())
	})

	Describe("Scenario A: pure compute then a load", func() {
		It("dispatches the computes, then the load, and terminates", func() {
			path := writeTrace(dir, "3 0 R")
			h := newHarness(path, trace.Options{MaxOOORequests: 4})

			for i := 0; i < 20 && !h.d.Done(); i++ {
				h.tickWithLoopback()
			}
			Expect(h.d.Done()).To(BeTrue())
			Expect(h.r.IsEmpty()).To(BeTrue())
			Expect(h.q.IsEmpty()).To(BeTrue())
		})
	})

	Describe("Scenario B: store-to-load forwarding", func() {
		It("forwards the load and retires both in program order", func() {
			path := writeTrace(dir, "0 100 W", "0 100 R")
			h := newHarness(path, trace.Options{MaxOOORequests: 4})

			for i := 0; i < 20 && !h.d.Done(); i++ {
				h.tickWithLoopback()
			}
			Expect(h.d.Done()).To(BeTrue())
		})
	})

	Describe("Scenario C: LSQ-full rollback", func() {
		It("rolls back the ROB allocation exactly once and retries", func() {
			path := writeTrace(dir, "0 1 R", "0 2 R", "0 3 R")
			r := rob.New(rob.WithMaxEntries(8), rob.WithIPC(4))
			q := lsq.New(r, lsq.WithMaxEntries(2))
			cache := memif.NewEndpoint(16)
			d, err := trace.Open(path, 0, r, q, cache, trace.Options{MaxOOORequests: 8}, nil)
			Expect(err).NotTo(HaveOccurred())

			h := &harness{r: r, q: q, cache: cache, d: d}

			// Dispatch the first two loads (fill the LSQ).
			for i := 0; i < 2; i++ {
				h.tick()
			}
			Expect(r.Size()).To(Equal(2))
			Expect(q.Size()).To(Equal(2))

			// Third load: ROB.Allocate succeeds, LSQ.Allocate fails
			// (full), ROB.RemoveLastEntry runs. Sizes must return to
			// their pre-attempt values.
			h.tick()
			Expect(r.Size()).To(Equal(2))
			Expect(q.Size()).To(Equal(2))
		})
	})

	Describe("Scenario F: termination", func() {
		It("sets Done only once trace is exhausted and both queues drain", func() {
			path := writeTrace(dir, "1 10 R", "0 20 W")
			h := newHarness(path, trace.Options{MaxOOORequests: 4})

			for i := 0; i < 30 && !h.d.Done(); i++ {
				h.tickWithLoopback()
			}
			Expect(h.d.Done()).To(BeTrue())
			Expect(h.r.IsEmpty()).To(BeTrue())
			Expect(h.q.IsEmpty()).To(BeTrue())
		})
	})

	Describe("malformed lines", func() {
		It("skips a blank or malformed line without dispatching anything", func() {
			path := writeTrace(dir, "", "not a valid line", "0 5 R")
			h := newHarness(path, trace.Options{MaxOOORequests: 4})

			for i := 0; i < 20 && !h.d.Done(); i++ {
				h.tickWithLoopback()
			}
			Expect(h.d.Done()).To(BeTrue())
		})
	})

	Describe("clock skew", func() {
		It("delays TX/RX but does not implement the group during the skew", func() {
			path := writeTrace(dir, "0 5 R")
			h := newHarness(path, trace.Options{MaxOOORequests: 4, ClockSkewCycles: 3})

			Expect(h.d.Skewing()).To(BeTrue())
			h.d.TickSkew()
			h.d.TickSkew()
			Expect(h.d.Skewing()).To(BeTrue())
			h.d.TickSkew()
			Expect(h.d.Skewing()).To(BeFalse())
			Expect(h.r.IsEmpty()).To(BeTrue())
		})
	})

	Describe("address parsing", func() {
		It("parses hex-prefixed and decimal addresses", func() {
			path := writeTrace(dir, "0 0x10 W", "0 16 W")
			h := newHarness(path, trace.Options{MaxOOORequests: 4})

			h.tick() // dispatch first store (addr 0x10 = 16)
			h.tick() // dispatch second store (addr 16)

			Expect(h.q.Size()).To(Equal(2))
		})
	})
})
