package health

import (
	"os/exec"

	"github.com/pacboot/resilience/pkg/fs"
)

// Prober holds the host paths and external commands the probes read from.
// Production code uses NewProber, which points at the real sysfs/procfs
// locations; tests construct a Prober by hand with fixture directories and
// a fake ping runner so the probes never touch the real host.
type Prober struct {
	FS fs.FS

	WatchdogPaths []string // checked in order; first char device found wins
	EDACRoot      string   // directory containing mc* controller subdirs
	ProcMeminfo   string
	ThermalRoot   string // directory containing thermal_zone* subdirs
	HwmonRoot     string // directory containing hwmon* subdirs

	PingCmd     string
	PingTargets []string
	RunPing     func(cmd string, args []string) error

	StatRoot string
	Statfs   func(path string) (totalBlocks, availBlocks uint64, err error)
}

// NewProber returns a Prober pointed at the real host locations named in
// the probe environment contract: /dev/watchdog[0], the EDAC mc tree,
// /proc/meminfo, /sys/class/thermal, /sys/class/hwmon, and the ping binary
// on PATH.
func NewProber(fsys fs.FS) *Prober {
	return &Prober{
		FS: fsys,

		WatchdogPaths: []string{"/dev/watchdog", "/dev/watchdog0"},
		EDACRoot:      "/sys/devices/system/edac/mc",
		ProcMeminfo:   "/proc/meminfo",
		ThermalRoot:   "/sys/class/thermal",
		HwmonRoot:     "/sys/class/hwmon",

		PingCmd:     "ping",
		PingTargets: []string{"8.8.8.8", "1.1.1.1"},
		RunPing:     runPingReal,

		StatRoot: "/",
		Statfs:   statfsReal,
	}
}

func runPingReal(cmd string, args []string) error {
	return exec.Command(cmd, args...).Run()
}
