// Command ektp-parse extracts e-KTP records from OCR text that was produced
// elsewhere. It reads the named text files, or stdin when none are given, and
// writes the records as JSON on stdout.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/ektp-scanner/internal/common"
	"github.com/joseph-ayodele/ektp-scanner/internal/export"
	"github.com/joseph-ayodele/ektp-scanner/internal/ktp"
)

type reportEntry struct {
	Source string     `json:"source"`
	Record ktp.Record `json:"record"`
	Report ktp.Report `json:"report"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ektp-parse", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML config file (default $EKTP_CONFIG)")
	withReport := fs.Bool("report", false, "include the per-field match report")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	logger := common.NewLogger(cfg.Log, stderr)
	slog.SetDefault(logger)

	type input struct {
		name string
		text string
	}
	var inputs []input
	if fs.NArg() == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			logger.Error("failed to read stdin", "error", err)
			return 1
		}
		inputs = append(inputs, input{name: "-", text: string(data)})
	}
	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Error("failed to read text file", "path", path, "error", err)
			return 1
		}
		inputs = append(inputs, input{name: path, text: string(data)})
	}

	asm := ktp.NewAssembler(nil)
	records := make([]ktp.Record, 0, len(inputs))
	entries := make([]reportEntry, 0, len(inputs))
	for _, in := range inputs {
		rec, report := asm.AssembleWithReport(ktp.Tokenize(in.text))
		records = append(records, rec)
		entries = append(entries, reportEntry{Source: in.name, Record: rec, Report: report})
		logger.Debug("document parsed", "document", in.name, "missed_fields", len(report.Missed()))
	}

	if !*withReport {
		if err := export.WriteJSON(stdout, records); err != nil {
			logger.Error("failed to write records", "error", err)
			return 1
		}
		return 0
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		logger.Error("failed to write report", "error", err)
		return 1
	}
	return 0
}
