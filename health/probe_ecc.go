package health

import (
	"fmt"
	"strconv"
	"strings"
)

// ECC sums correctable (ce_count) and uncorrectable (ue_count) error
// counters across every mc* controller directory under p.EDACRoot. A
// missing EDAC tree means the host has no ECC RAM to report on, which is
// ok=true, not a failure — the system must not fail merely because
// telemetry is absent. Any uncorrectable error is fatal; correctable
// errors are tolerated up to threshold.
func (p *Prober) ECC(threshold uint32) CheckResult {
	entries, err := p.FS.ReadDir(p.EDACRoot)
	if err != nil {
		return CheckResult{OK: true, Message: "EDAC not available, assuming OK"}
	}

	var ceTotal, ueTotal uint32

	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "mc") {
			continue
		}

		dir := p.EDACRoot + "/" + entry.Name()

		if ce, ok := p.readCounter(dir + "/ce_count"); ok {
			ceTotal += ce
		}

		if ue, ok := p.readCounter(dir + "/ue_count"); ok {
			ueTotal += ue
		}
	}

	if ueTotal > 0 {
		return CheckResult{
			OK:      false,
			Message: fmt.Sprintf("Uncorrectable ECC errors detected: %d", ueTotal),
			Value:   ceTotal,
		}
	}

	if ceTotal < threshold {
		return CheckResult{
			OK:      true,
			Message: fmt.Sprintf("ECC errors within threshold: %d < %d", ceTotal, threshold),
			Value:   ceTotal,
		}
	}

	return CheckResult{
		OK:      false,
		Message: fmt.Sprintf("ECC errors exceed threshold: %d >= %d", ceTotal, threshold),
		Value:   ceTotal,
	}
}

func (p *Prober) readCounter(path string) (uint32, bool) {
	data, err := p.FS.ReadFile(path)
	if err != nil {
		return 0, false
	}

	n, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return 0, false
	}

	return uint32(n), true
}
