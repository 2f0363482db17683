package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/ektp-scanner/internal/app"
	"github.com/joseph-ayodele/ektp-scanner/internal/batch"
	"github.com/joseph-ayodele/ektp-scanner/internal/common"
	"github.com/joseph-ayodele/ektp-scanner/internal/export"
	"github.com/joseph-ayodele/ektp-scanner/internal/ingest"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ektp-scan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintln(stderr, "usage: ektp-scan [flags] <image|dir>...")
		fs.PrintDefaults()
	}
	flags := app.RegisterFlags(fs)
	jsonPath := fs.String("json", "", "also write the records as JSON to this path")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := flags.Config()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	logger := common.NewLogger(cfg.Log, stderr)
	slog.SetDefault(logger)

	files, err := ingest.Collect(fs.Args())
	if err != nil {
		logger.Error("failed to collect images", "error", err)
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	sources := make([]batch.Source, len(files))
	for i, f := range files {
		sources[i] = f
	}

	agg, err := app.NewAggregator(cfg, logger)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	store, err := app.OpenArchive(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open archive", "error", err)
		return 1
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	b := batch.New(sources...)
	ctx = common.WithBatchID(ctx, b.ID.String())
	records, runErr := agg.Run(ctx, b)

	if store != nil {
		if err := store.SaveBatch(ctx, b); err != nil {
			logger.Error("failed to archive batch", "batch_id", b.ID.String(), "error", err)
		}
	}

	sum := b.Summary()
	if runErr != nil {
		_, _ = fmt.Fprintf(stdout, "Batch %s failed!\n", b.ID)
		var de *batch.DocumentError
		if errors.As(runErr, &de) {
			_, _ = fmt.Fprintf(stdout, "- Failed document: %s\n", de.Name)
		}
		_, _ = fmt.Fprintf(stdout, "- Error: %v\n", runErr)
		return 1
	}

	exporter := export.NewService(cfg.Export, logger)
	out, err := exporter.SaveXLSX(ctx, cfg.Export.Dir, records)
	if err != nil {
		logger.Error("failed to export records", "error", err)
		return 1
	}
	if *jsonPath != "" {
		if err := export.SaveJSON(*jsonPath, records); err != nil {
			logger.Error("failed to write json", "path", *jsonPath, "error", err)
			return 1
		}
	}

	_, _ = fmt.Fprintf(stdout, "Batch %s complete!\n", b.ID)
	_, _ = fmt.Fprintf(stdout, "- Documents: %d\n", sum.Total)
	_, _ = fmt.Fprintf(stdout, "- Parsed: %d\n", sum.Parsed)
	_, _ = fmt.Fprintf(stdout, "- Failed: %d\n", sum.Failed)
	for _, it := range b.Items {
		if it.Err != nil {
			_, _ = fmt.Fprintf(stdout, "  - %s: %v\n", it.Source.Name(), it.Err)
		}
	}
	_, _ = fmt.Fprintf(stdout, "- Output: %s\n", out)
	if *jsonPath != "" {
		_, _ = fmt.Fprintf(stdout, "- JSON: %s\n", *jsonPath)
	}
	return 0
}
