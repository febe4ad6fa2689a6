package health

import "fmt"

// Storage reports the free-block percentage of p.StatRoot. A total-blocks
// count of zero (observed on some virtual/overlay filesystems whose statfs
// call succeeds but reports an empty block count) is guarded explicitly:
// the source's C division has no such guard, but an unguarded integer
// division by zero panics in Go, so this reports ok=false with a
// descriptive message instead of crashing the boot manager over a
// cosmetic filesystem quirk.
func (p *Prober) Storage(minFreePct uint8) CheckResult {
	total, avail, err := p.Statfs(p.StatRoot)
	if err != nil {
		return CheckResult{OK: false, Message: fmt.Sprintf("Failed to check storage: %v", err)}
	}

	if total == 0 {
		return CheckResult{OK: false, Message: "Failed to check storage: zero total blocks reported"}
	}

	freePct := uint8(avail * 100 / total)

	if freePct >= minFreePct {
		return CheckResult{
			OK:      true,
			Message: fmt.Sprintf("Storage healthy: %d%% free", freePct),
			Value:   uint32(freePct),
		}
	}

	return CheckResult{
		OK:      false,
		Message: fmt.Sprintf("Storage low: %d%% free (min: %d%%)", freePct, minFreePct),
		Value:   uint32(freePct),
	}
}
