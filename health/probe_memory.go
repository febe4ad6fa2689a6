package health

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Memory parses p.ProcMeminfo for MemAvailable, falling back to MemFree if
// the kernel doesn't report MemAvailable (older kernels). Unlike the
// sensor-absent probes, an entirely unreadable or unparsable /proc/meminfo
// is the probe's only data source failing outright, so it reports
// ok=false rather than ok=true.
func (p *Prober) Memory(minFreeKB uint32) CheckResult {
	data, err := p.FS.ReadFile(p.ProcMeminfo)
	if err != nil {
		return CheckResult{OK: false, Message: "Failed to read /proc/meminfo"}
	}

	memAvailable, haveAvailable := int64(-1), false
	memFree, haveFree := int64(-1), false
	haveTotal := false

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "MemAvailable:"):
			if v, ok := parseMeminfoValue(line[len("MemAvailable:"):]); ok {
				memAvailable, haveAvailable = v, true
			}
		case strings.HasPrefix(line, "MemFree:"):
			if v, ok := parseMeminfoValue(line[len("MemFree:"):]); ok {
				memFree, haveFree = v, true
			}
		case strings.HasPrefix(line, "MemTotal:"):
			if _, ok := parseMeminfoValue(line[len("MemTotal:"):]); ok {
				haveTotal = true
			}
		}
	}

	available := memFree
	if haveAvailable {
		available = memAvailable
	}

	if (!haveAvailable && !haveFree) || !haveTotal {
		return CheckResult{OK: false, Message: "Failed to parse memory info"}
	}

	if available >= int64(minFreeKB) {
		return CheckResult{
			OK:      true,
			Message: fmt.Sprintf("Memory healthy: %dKB available", available),
			Value:   uint32(available),
		}
	}

	return CheckResult{
		OK:      false,
		Message: fmt.Sprintf("Low memory: %dKB available (min: %dKB)", available, minFreeKB),
		Value:   uint32(available),
	}
}

func parseMeminfoValue(rest string) (int64, bool) {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0, false
	}

	v, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}
