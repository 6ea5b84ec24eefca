// Package core wires a ReorderBuffer, a LoadStoreQueue, a TraceDriver, and
// a cache interface together into one OoO core and drives them through
// the per-cycle schedule the rest of the module depends on: ROB step,
// LSQ step, TraceDriver TX, TraceDriver RX.
package core

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/oocore/memif"
	"github.com/sarchlab/oocore/timing/lsq"
	"github.com/sarchlab/oocore/timing/rob"
	"github.com/sarchlab/oocore/timing/trace"
)

// Config bundles the construction-time parameters for one Core.
type Config struct {
	CoreID     uint16
	TracePath  string
	ROBEntries int
	ROBIPC     int
	LSQEntries int
	TraceOpts  trace.Options
	Log        *slog.Logger
}

// Stats reports simple per-core counters, read after the core halts or at
// any point during a run for progress reporting.
type Stats struct {
	// Cycles is the number of cycles this core has ticked.
	Cycles uint64
	// Retired is the number of instructions retired from the ROB.
	Retired uint64
}

// Core is one out-of-order processor core: a ROB, an LSQ, a TraceDriver
// reading one benchmark trace, and a non-owning reference to an external
// cache interface.
type Core struct {
	rob   *rob.ReorderBuffer
	lsq   *lsq.Queue
	drv   *trace.Driver
	cache memif.CacheInterface

	cycles  uint64
	retired uint64
}

// New constructs a Core against cache, opening and parsing cfg.TracePath.
// Failure to open the trace is a fatal startup error, returned wrapped
// with the core id so the caller (typically cmd/oocore) can report it and exit non-zero.
func New(cfg Config, cache memif.CacheInterface) (*Core, error) {
	if cfg.ROBEntries <= 0 {
		cfg.ROBEntries = rob.DefaultMaxEntries
	}
	if cfg.ROBIPC <= 0 {
		cfg.ROBIPC = rob.DefaultIPC
	}
	if cfg.LSQEntries <= 0 {
		cfg.LSQEntries = lsq.DefaultMaxEntries
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	r := rob.New(rob.WithMaxEntries(cfg.ROBEntries), rob.WithIPC(cfg.ROBIPC), rob.WithLogger(log))
	q := lsq.New(r, lsq.WithMaxEntries(cfg.LSQEntries), lsq.WithLogger(log))

	d, err := trace.Open(cfg.TracePath, cfg.CoreID, r, q, cache, cfg.TraceOpts, log)
	if err != nil {
		return nil, fmt.Errorf("core %d: %w", cfg.CoreID, err)
	}

	return &Core{rob: r, lsq: q, drv: d, cache: cache}, nil
}

// Close releases resources held by the core (currently just the trace
// file handle).
func (c *Core) Close() error {
	return c.drv.Close()
}

// Done reports whether this core has reached its termination condition.
func (c *Core) Done() bool {
	return c.drv.Done()
}

// Stats returns the core's current counters.
func (c *Core) Stats() Stats {
	return Stats{Cycles: c.cycles, Retired: c.retired}
}

// Tick advances the core by exactly one cycle, in the authoritative
// order: ROB.Step, LSQ.Step, TraceDriver.TX, TraceDriver.RX. While the
// driver is still consuming its configured clock-skew delay, TX/RX are
// replaced with TickSkew and the ROB/LSQ still step (on an empty core,
// this is a no-op, but it keeps cycle accounting uniform).
func (c *Core) Tick() {
	retiredThisCycle := c.rob.Step()
	c.retired += uint64(len(retiredThisCycle))
	c.lsq.Step(c.cache)

	if c.drv.Skewing() {
		c.drv.TickSkew()
	} else {
		c.drv.TX()
		c.drv.RX()
	}

	c.cycles++
}

// Run ticks the core until it reports Done, or until maxCycles is
// reached (0 means unbounded). Returns the number of cycles actually
// run.
func (c *Core) Run(maxCycles uint64) uint64 {
	var ran uint64
	for !c.Done() {
		if maxCycles > 0 && ran >= maxCycles {
			break
		}
		c.Tick()
		ran++
	}
	return ran
}
