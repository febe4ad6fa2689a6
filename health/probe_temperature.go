package health

import (
	"fmt"
	"strconv"
	"strings"
)

// Temperature takes the maximum reading across every thermal_zone*/temp
// under p.ThermalRoot and, in each subdirectory of p.HwmonRoot, every file
// whose name contains "temp" and "_input", both in millidegrees Celsius. No sensors found at all is ok=true ("not
// available"); otherwise ok iff the max reading is within maxCelsius.
//
// The hwmon walk iterates its own directory listing, not the thermal-zone
// one — the source had a copy-paste bug where the hwmon loop reused the
// thermal directory handle, silently skipping every hwmon sensor. That bug
// is not reproduced here.
func (p *Prober) Temperature(maxCelsius uint8) CheckResult {
	var maxTempC uint8

	found := false

	if entries, err := p.FS.ReadDir(p.ThermalRoot); err == nil {
		for _, entry := range entries {
			if !strings.HasPrefix(entry.Name(), "thermal_zone") {
				continue
			}

			if c, ok := p.readMillidegreeFile(p.ThermalRoot + "/" + entry.Name() + "/temp"); ok {
				found = true
				if c > maxTempC {
					maxTempC = c
				}
			}
		}
	}

	if hwmonDirs, err := p.FS.ReadDir(p.HwmonRoot); err == nil {
		for _, hw := range hwmonDirs {
			sensorDir := p.HwmonRoot + "/" + hw.Name()

			sensors, err := p.FS.ReadDir(sensorDir)
			if err != nil {
				continue
			}

			for _, sensor := range sensors {
				name := sensor.Name()
				if !strings.Contains(name, "temp") || !strings.Contains(name, "_input") {
					continue
				}

				if c, ok := p.readMillidegreeFile(sensorDir + "/" + name); ok {
					found = true
					if c > maxTempC {
						maxTempC = c
					}
				}
			}
		}
	}

	if !found {
		return CheckResult{OK: true, Message: "Temperature monitoring not available"}
	}

	if maxTempC <= maxCelsius {
		return CheckResult{
			OK:      true,
			Message: fmt.Sprintf("Temperature normal: %d°C (max: %d°C)", maxTempC, maxCelsius),
			Value:   uint32(maxTempC),
		}
	}

	return CheckResult{
		OK:      false,
		Message: fmt.Sprintf("Temperature critical: %d°C (max: %d°C)", maxTempC, maxCelsius),
		Value:   uint32(maxTempC),
	}
}

func (p *Prober) readMillidegreeFile(path string) (uint8, bool) {
	data, err := p.FS.ReadFile(path)
	if err != nil {
		return 0, false
	}

	milliC, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil || milliC <= 0 {
		return 0, false
	}

	return uint8(milliC / 1000), true
}
