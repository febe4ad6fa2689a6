package health

import "os"

// Watchdog reports whether a watchdog character device is present, trying
// each of p.WatchdogPaths in order. No watchdog device is a failing
// condition (unlike the sensor-absent probes below) because the watchdog
// is a safety mechanism the boot manager depends on, not optional telemetry.
func (p *Prober) Watchdog() CheckResult {
	for _, path := range p.WatchdogPaths {
		info, err := p.FS.Stat(path)
		if err != nil {
			continue
		}

		if info.Mode()&os.ModeCharDevice != 0 {
			return CheckResult{OK: true, Message: "Watchdog device present at " + path}
		}
	}

	return CheckResult{OK: false, Message: "No watchdog device found"}
}
