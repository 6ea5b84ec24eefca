// Package main provides the entry point for oocore, a cycle-driven
// out-of-order core simulator that drives a ReorderBuffer and a
// LoadStoreQueue from a compute/load/store trace against a demonstration
// cache model.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/sarchlab/oocore/internal/config"
	"github.com/sarchlab/oocore/internal/democache"
	"github.com/sarchlab/oocore/timing/core"
	"github.com/sarchlab/oocore/timing/trace"
)

var (
	configPath = flag.String("config", "", "Path to a JSON config file; overridden by the flags below")
	tracePath  = flag.String("trace", "", "Path to the trace file to drive the core from")
	oooStages  = flag.Int("ooo-stages", 0, "Max in-flight memory requests (0 = use config/default)")
	robEntries = flag.Int("rob-entries", 0, "ROB entry count (0 = use config/default)")
	robIPC     = flag.Int("rob-ipc", 0, "ROB retirements per cycle (0 = use config/default)")
	lsqEntries = flag.Int("lsq-entries", 0, "LSQ entry count (0 = use config/default)")
	clockNS    = flag.Float64("clock", 0, "Nominal clock period in nanoseconds; stored in the config, not used by the cycle-counted simulation")
	skew       = flag.Uint64("skew", 0, "Clock skew in cycles before this core starts issuing")
	logPath    = flag.String("log", "", "Path to write debug logs to; unset means warnings only, to stderr")
	maxCycles  = flag.Uint64("max-cycles", 0, "Stop after this many cycles even if the trace has not finished (0 = unbounded)")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "oocore: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	applyFlagOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "oocore: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, closeLog := newLogger(cfg)
	defer closeLog()

	cache := democache.New(democache.DefaultConfig(), 32)

	c, err := core.New(core.Config{
		TracePath:  cfg.TracePath,
		ROBEntries: cfg.ROBEntries,
		ROBIPC:     cfg.ROBIPC,
		LSQEntries: cfg.LSQEntries,
		TraceOpts: trace.Options{
			MaxOOORequests:       cfg.MaxOOORequests,
			ClockSkewCycles:      cfg.ClockSkewCycles,
			CountComputeInFlight: cfg.CountComputeInFlight,
			HexOnly:              cfg.HexOnlyAddresses,
		},
		Log: log,
	}, cache.Interface())
	if err != nil {
		fmt.Fprintf(os.Stderr, "oocore: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	ran := uint64(0)
	for !c.Done() {
		if *maxCycles > 0 && ran >= *maxCycles {
			break
		}
		c.Tick()
		cache.Tick(c.Stats().Cycles)
		ran++
	}

	stats := c.Stats()
	fmt.Printf("Trace:     %s\n", cfg.TracePath)
	fmt.Printf("Finished:  %v\n", c.Done())
	fmt.Printf("Cycles:    %d\n", stats.Cycles)
	fmt.Printf("Retired:   %d\n", stats.Retired)
	if stats.Cycles > 0 {
		fmt.Printf("IPC:       %.3f\n", float64(stats.Retired)/float64(stats.Cycles))
	}
	cacheStats := cache.Stats()
	fmt.Printf("Cache hits/misses: %d/%d\n", cacheStats.Hits, cacheStats.Misses)
}

// applyFlagOverrides layers any explicitly-set CLI flags on top of the
// loaded (or default) config.
func applyFlagOverrides(cfg *config.Config) {
	if *tracePath != "" {
		cfg.TracePath = *tracePath
	}
	if *oooStages > 0 {
		cfg.MaxOOORequests = *oooStages
	}
	if *robEntries > 0 {
		cfg.ROBEntries = *robEntries
	}
	if *robIPC > 0 {
		cfg.ROBIPC = *robIPC
	}
	if *lsqEntries > 0 {
		cfg.LSQEntries = *lsqEntries
	}
	if *clockNS > 0 {
		cfg.ClockPeriodNS = *clockNS
	}
	if *skew > 0 {
		cfg.ClockSkewCycles = *skew
	}
	if *logPath != "" {
		cfg.LogEnabled = true
		cfg.LogPath = *logPath
	}
}

// newLogger builds the slog.Logger the rest of the run uses: -log present
// means debug-level logging to that file, absent means warnings only to
// stderr. The returned close func must be deferred by the caller to flush
// the log file, if any.
func newLogger(cfg config.Config) (*slog.Logger, func()) {
	if !cfg.LogEnabled || cfg.LogPath == "" {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
		return slog.New(handler), func() {}
	}

	f, err := os.Create(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "oocore: could not open log file %q, logging to stderr: %v\n", cfg.LogPath, err)
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
		return slog.New(handler), func() {}
	}

	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), func() { f.Close() }
}
