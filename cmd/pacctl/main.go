// Package main provides pacctl, a thin demonstration front-end over the
// journal and health packages. It is not part of the core contract (the
// CLI front-end is an external collaborator); it exists to show that the
// journal.Store and health.Run contracts are thin enough for a real caller
// to drive directly.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/pacboot/resilience/bootrecord"
	"github.com/pacboot/resilience/health"
	"github.com/pacboot/resilience/journal"
	"github.com/pacboot/resilience/pkg/fs"
)

func main() {
	os.Exit(run(os.Stdout, os.Stderr, os.Args[1:]))
}

func run(out, errOut io.Writer, args []string) int {
	if len(args) == 0 {
		fprintln(errOut, "error: expected a subcommand (status, health)")

		return 255
	}

	switch args[0] {
	case "status":
		return cmdStatus(out, errOut, args[1:])
	case "health":
		return cmdHealth(out, errOut, args[1:])
	default:
		fprintln(errOut, "error: unknown subcommand", args[0])

		return 255
	}
}

func cmdStatus(out, errOut io.Writer, args []string) int {
	flagSet := flag.NewFlagSet("status", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	path := flagSet.String("journal", "/var/pac/journal.dat", "path to the journal file")

	if err := flagSet.Parse(args); err != nil {
		fprintln(errOut, "error:", err)

		return 255
	}

	store, err := journal.Open(fs.NewReal(), *path)
	if err != nil {
		fprintln(errOut, "error: open journal:", err)

		return 255
	}
	defer store.Close()

	rec, err := store.Read()
	if err != nil {
		fprintln(errOut, "error: read journal:", err)

		return 255
	}

	printRecord(out, rec)

	return 0
}

func printRecord(out io.Writer, rec bootrecord.Record) {
	fmt.Fprintf(out, "tier=%d tries_t2=%d tries_t3=%d boot_count=%d flags=0x%02x\n",
		rec.Tier, rec.TriesT2, rec.TriesT3, rec.BootCount, rec.Flags)
}

func cmdHealth(out, errOut io.Writer, args []string) int {
	flagSet := flag.NewFlagSet("health", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	configPath := flagSet.String("config", "", "path to a JSONC health config file")
	reportPath := flagSet.String("report-file", "", "if set, also write the JSON report here")

	if err := flagSet.Parse(args); err != nil {
		fprintln(errOut, "error:", err)

		return 255
	}

	fsys := fs.NewReal()

	cfg, err := health.LoadConfig(fsys, *configPath)
	if err != nil {
		fprintln(errOut, "error: load config:", err)

		return 255
	}

	prober := health.NewProber(fsys)
	report, verdict := health.Run(prober, cfg, func() int64 { return time.Now().Unix() })

	if err := health.WriteText(out, report); err != nil {
		fprintln(errOut, "error: write report:", err)

		return 255
	}

	if *reportPath != "" {
		if err := health.WriteReportFile(fsys, *reportPath, report); err != nil {
			fprintln(errOut, "error: write report file:", err)

			return 255
		}
	}

	return verdictExitCode(verdict)
}

// verdictExitCode maps a health.Verdict to the external exit-code contract:
// 0 healthy, 1 degraded, 2 critical, 255 internal error.
func verdictExitCode(v health.Verdict) int {
	switch v {
	case health.VerdictOK:
		return 0
	case health.VerdictDegraded:
		return 1
	case health.VerdictCritical:
		return 2
	default:
		return 255
	}
}

func fprintln(w io.Writer, a ...any) {
	fmt.Fprintln(w, a...)
}
