package health

// Verdict is the numeric health result consumed by automation (a thin CLI
// maps it to a process exit code; see cmd/pacctl).
type Verdict int

const (
	// VerdictOK means overall_score >= 5.
	VerdictOK Verdict = 0
	// VerdictDegraded means overall_score is 3 or 4.
	VerdictDegraded Verdict = 1
	// VerdictCritical means overall_score is below 3.
	VerdictCritical Verdict = 2
	// VerdictError means the aggregator could not run at all (no report
	// to populate). Run never returns this; it exists for callers building
	// their own entry points on top of the probes directly.
	VerdictError Verdict = -1
)

// String renders the verdict the way a diagnostic log line would.
func (v Verdict) String() string {
	switch v {
	case VerdictOK:
		return "OK"
	case VerdictDegraded:
		return "DEGRADED"
	case VerdictCritical:
		return "CRITICAL"
	default:
		return "ERROR"
	}
}

// ScoreToStatus maps a score out of max to a human-facing status string.
// This is a ratio-based table, deliberately independent of ScoreToVerdict's
// absolute thresholds: the two can disagree at boundary scores (e.g.
// max=6, score=4 is "degraded" by ratio but DEGRADED by verdict too, while
// score=5 is "healthy" by ratio and OK by verdict — they agree here, but
// a different max would not). Status is for humans, verdict is for
// automation; do not collapse them into one table.
func ScoreToStatus(score, maxScore uint8) string {
	switch {
	case score >= (5*maxScore)/6:
		return "healthy"
	case score >= maxScore/2:
		return "degraded"
	default:
		return "critical"
	}
}

// ScoreToVerdict maps a raw score to the numeric automation verdict via
// fixed absolute thresholds, independent of maxScore.
func ScoreToVerdict(score uint8) Verdict {
	switch {
	case score >= 5:
		return VerdictOK
	case score >= 3:
		return VerdictDegraded
	default:
		return VerdictCritical
	}
}
