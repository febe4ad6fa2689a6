package health

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pacboot/resilience/pkg/fs"
)

const maxMessageBytes = 255

// jsonCheck is the wire shape of one named check in the report document.
type jsonCheck struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// jsonLegacy mirrors the six ok flags as 0/1 integers with short aliases,
// for consumers of the earlier report format.
type jsonLegacy struct {
	WatchdogOK int `json:"wdt_ok"`
	ECCOK      int `json:"ecc_ok"`
	StorageOK  int `json:"storage_ok"`
	NetworkOK  int `json:"net_ok"`
	MemoryOK   int `json:"mem_ok"`
	TempOK     int `json:"temp_ok"`
}

// jsonReport is the full document written by WriteReportFile. Field names
// are part of the external contract.
type jsonReport struct {
	Timestamp     int64     `json:"timestamp"`
	OverallScore  uint8     `json:"overall_score"`
	MaxScore      uint8     `json:"max_score"`
	OverallStatus string    `json:"overall_status"`
	Checks        jsonChecks `json:"checks"`
	Legacy        jsonLegacy `json:"legacy_format"`
}

type jsonChecks struct {
	Watchdog    jsonCheck `json:"watchdog"`
	ECC         jsonCheck `json:"ecc"`
	Storage     jsonCheck `json:"storage"`
	Network     jsonCheck `json:"network"`
	Memory      jsonCheck `json:"memory"`
	Temperature jsonCheck `json:"temperature"`
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}

// truncateMessage caps a message at maxMessageBytes, the wire/JSON boundary
// budget carried over from the source's fixed 256-byte message buffer. The
// cap is applied here, at serialization, not on CheckResult itself — the
// in-memory type is a plain Go string with no length limit.
func truncateMessage(msg string) string {
	if len(msg) <= maxMessageBytes {
		return msg
	}

	return msg[:maxMessageBytes]
}

func toJSONReport(r Report) jsonReport {
	return jsonReport{
		Timestamp:     r.Timestamp,
		OverallScore:  r.OverallScore,
		MaxScore:      r.MaxScore,
		OverallStatus: r.OverallStatus,
		Checks: jsonChecks{
			Watchdog:    jsonCheck{OK: r.Watchdog.OK, Message: truncateMessage(r.Watchdog.Message)},
			ECC:         jsonCheck{OK: r.ECC.OK, Message: truncateMessage(r.ECC.Message)},
			Storage:     jsonCheck{OK: r.Storage.OK, Message: truncateMessage(r.Storage.Message)},
			Network:     jsonCheck{OK: r.Network.OK, Message: truncateMessage(r.Network.Message)},
			Memory:      jsonCheck{OK: r.Memory.OK, Message: truncateMessage(r.Memory.Message)},
			Temperature: jsonCheck{OK: r.Temperature.OK, Message: truncateMessage(r.Temperature.Message)},
		},
		Legacy: jsonLegacy{
			WatchdogOK: boolToInt(r.Watchdog.OK),
			ECCOK:      boolToInt(r.ECC.OK),
			StorageOK:  boolToInt(r.Storage.OK),
			NetworkOK:  boolToInt(r.Network.OK),
			MemoryOK:   boolToInt(r.Memory.OK),
			TempOK:     boolToInt(r.Temperature.OK),
		},
	}
}

// WriteText writes a human-readable rendering of report to w, the
// streaming counterpart to WriteReportFile.
func WriteText(w io.Writer, r Report) error {
	_, err := fmt.Fprintf(w,
		"Timestamp: %d\nOverall Status: %s (%d/%d checks passed)\n\n"+
			"  [%s] Watchdog:    %s\n"+
			"  [%s] ECC Memory:  %s\n"+
			"  [%s] Storage:     %s\n"+
			"  [%s] Network:     %s\n"+
			"  [%s] Memory:      %s\n"+
			"  [%s] Temperature: %s\n",
		r.Timestamp, r.OverallStatus, r.OverallScore, r.MaxScore,
		okMark(r.Watchdog.OK), truncateMessage(r.Watchdog.Message),
		okMark(r.ECC.OK), truncateMessage(r.ECC.Message),
		okMark(r.Storage.OK), truncateMessage(r.Storage.Message),
		okMark(r.Network.OK), truncateMessage(r.Network.Message),
		okMark(r.Memory.OK), truncateMessage(r.Memory.Message),
		okMark(r.Temperature.OK), truncateMessage(r.Temperature.Message),
	)

	return err
}

func okMark(ok bool) string {
	if ok {
		return "PASS"
	}

	return "FAIL"
}

// WriteReportFile renders report as JSON and replaces path with it
// atomically: write to a temp file in the same directory, fsync it, rename
// over path, then fsync the parent directory. Readers of path never observe
// a partially written document, and the replace survives a crash right
// after the rename.
func WriteReportFile(fsys fs.FS, path string, r Report) error {
	data, err := json.MarshalIndent(toJSONReport(r), "", "  ")
	if err != nil {
		return fmt.Errorf("health: marshal report: %w", err)
	}

	writer := fs.NewAtomicWriter(fsys)
	if err := writer.WriteWithDefaults(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("health: write report %q: %w", path, err)
	}

	return nil
}
