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

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ektp-scanner/internal/app"
	"github.com/joseph-ayodele/ektp-scanner/internal/common"
	"github.com/joseph-ayodele/ektp-scanner/internal/export"
	"github.com/joseph-ayodele/ektp-scanner/internal/ktp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ektp-archive", flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := app.RegisterFlags(fs)
	batchID := fs.String("batch", "", "batch id to export (default: latest)")
	all := fs.Bool("all", false, "export every archived record")
	pingOnly := fs.Bool("ping", false, "only check archive health")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, err := flags.Config()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if cfg.Archive.Driver == "" {
		_, _ = fmt.Fprintln(stderr, "Error: archive driver is required (-archive-driver or ARCHIVE_DRIVER)")
		return 2
	}
	logger := common.NewLogger(cfg.Log, stderr)
	slog.SetDefault(logger)

	store, err := app.OpenArchive(ctx, cfg, logger)
	if err != nil {
		_, _ = fmt.Fprintf(stdout, "Archive health: FAIL (%v)\n", err)
		return 1
	}
	defer func() { _ = store.Close() }()
	_, _ = fmt.Fprintln(stdout, "Archive health: OK")
	if *pingOnly {
		return 0
	}

	var records []ktp.Record
	switch {
	case *all:
		records, err = store.ListAllRecords(ctx)
	default:
		var id uuid.UUID
		if *batchID != "" {
			id, err = uuid.Parse(*batchID)
			if err != nil {
				_, _ = fmt.Fprintf(stderr, "Error: invalid -batch id: %v\n", err)
				return 2
			}
		} else if id, err = store.LatestBatchID(ctx); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				_, _ = fmt.Fprintln(stdout, "No batches archived yet")
				return 0
			}
			logger.Error("failed to find latest batch", "error", err)
			return 1
		}
		_, _ = fmt.Fprintf(stdout, "- Batch: %s\n", id)
		records, err = store.ListRecords(ctx, id)
	}
	if err != nil {
		logger.Error("failed to list records", "error", err)
		return 1
	}

	out, err := export.NewService(cfg.Export, logger).SaveXLSX(ctx, cfg.Export.Dir, records)
	if err != nil {
		logger.Error("failed to export records", "error", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "- Records: %d\n", len(records))
	_, _ = fmt.Fprintf(stdout, "- Output: %s\n", out)
	return 0
}
