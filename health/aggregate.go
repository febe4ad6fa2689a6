package health

// Run invokes all six probes in the fixed order watchdog, ecc, storage,
// network, memory, temperature, composes the score and status, and
// returns the report alongside the automation verdict.
func Run(p *Prober, cfg Config, now func() int64) (Report, Verdict) {
	report := Report{Timestamp: now()}

	report.Watchdog = p.Watchdog()
	report.ECC = p.ECC(cfg.ECCThreshold)
	report.Storage = p.Storage(cfg.StorageMinFreePct)
	report.Network = p.Network(cfg.NetworkTimeoutSec)
	report.Memory = p.Memory(cfg.MemMinFreeKB)
	report.Temperature = p.Temperature(cfg.TempMaxCelsius)

	var score uint8
	for _, ok := range []bool{
		report.Watchdog.OK,
		report.ECC.OK,
		report.Storage.OK,
		report.Network.OK,
		report.Memory.OK,
		report.Temperature.OK,
	} {
		if ok {
			score++
		}
	}

	report.OverallScore = score
	report.MaxScore = MaxScore
	report.OverallStatus = ScoreToStatus(score, MaxScore)

	return report, ScoreToVerdict(score)
}
