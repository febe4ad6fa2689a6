package health

import (
	"fmt"
	"strconv"
)

// Network tries each of p.PingTargets in order via p.RunPing, which
// shells out to `ping -c 1 -W <timeoutSec> <target>` in production
// (p.PingCmd on PATH). Only the process exit code is consulted, matching
// the source exactly. The command and targets are fields on Prober so
// tests can substitute a fake runner instead of touching the network.
func (p *Prober) Network(timeoutSec uint8) CheckResult {
	for _, target := range p.PingTargets {
		args := []string{"-c", "1", "-W", strconv.Itoa(int(timeoutSec)), target}

		if err := p.RunPing(p.PingCmd, args); err == nil {
			return CheckResult{OK: true, Message: fmt.Sprintf("Network reachable (tested: %s)", target)}
		}
	}

	return CheckResult{OK: false, Message: "Network unreachable"}
}
