package trace

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/oocore/memif"
)

// group is the parsed form of one trace line: compute_count compute
// instructions followed by at most one memory op.
type group struct {
	computeCount uint32
	addr         uint64
	kind         memif.Kind
}

// parseLine parses one trace line of the form
// "<compute_count> <addr> <type>", where addr is hex when 0x-prefixed (or
// always-hex when hexOnly is set, matching the historical trace format)
// and otherwise decimal, and type is "R" (Load) or "W" (Store). Blank
// lines and anything else that fails to parse return a descriptive error
// so the caller can log-and-skip per the non-fatal parse-error policy.
func parseLine(line string, hexOnly bool) (group, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return group{}, fmt.Errorf("blank line")
	}
	if len(fields) != 3 {
		return group{}, fmt.Errorf("expected 3 fields, got %d", len(fields))
	}

	count, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return group{}, fmt.Errorf("bad compute_count %q: %w", fields[0], err)
	}

	addr, err := parseAddr(fields[1], hexOnly)
	if err != nil {
		return group{}, fmt.Errorf("bad addr %q: %w", fields[1], err)
	}

	var kind memif.Kind
	switch fields[2] {
	case "R":
		kind = memif.Load
	case "W":
		kind = memif.Store
	default:
		return group{}, fmt.Errorf("bad type %q, expected R or W", fields[2])
	}

	return group{computeCount: uint32(count), addr: addr, kind: kind}, nil
}

// parseAddr parses a trace address field: hex when 0x-prefixed or when
// hexOnly forces it, decimal otherwise.
func parseAddr(field string, hexOnly bool) (uint64, error) {
	if hexOnly {
		return strconv.ParseUint(strings.TrimPrefix(field, "0x"), 16, 64)
	}
	if after, ok := strings.CutPrefix(field, "0x"); ok {
		return strconv.ParseUint(after, 16, 64)
	}
	return strconv.ParseUint(field, 10, 64)
}
