package journal

import "time"

// nowUnix returns the current Unix time in seconds, used as the default
// clock for Record.Timestamp. Tests inject a fixed clock via WithClock
// instead of depending on wall-clock time.
func nowUnix() int64 {
	return time.Now().Unix()
}
