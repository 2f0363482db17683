package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/ektp-scanner/constants"
	"github.com/joseph-ayodele/ektp-scanner/internal/app"
	"github.com/joseph-ayodele/ektp-scanner/internal/archive"
	"github.com/joseph-ayodele/ektp-scanner/internal/async"
	"github.com/joseph-ayodele/ektp-scanner/internal/batch"
	"github.com/joseph-ayodele/ektp-scanner/internal/common"
	"github.com/joseph-ayodele/ektp-scanner/internal/export"
	"github.com/joseph-ayodele/ektp-scanner/internal/ingest"
	"github.com/joseph-ayodele/ektp-scanner/internal/ktp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("ektp-watch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := app.RegisterFlags(fs)
	initialScan := fs.Bool("initial-scan", false, "process images already present under the roots")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, err := flags.Config()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if fs.NArg() > 0 {
		cfg.Watch.Roots = fs.Args()
	}
	if len(cfg.Watch.Roots) == 0 {
		_, _ = fmt.Fprintln(stderr, "usage: ektp-watch [flags] <dir>... (or set WATCH_ROOTS)")
		return 2
	}

	logger := common.NewLogger(cfg.Log, stderr)
	slog.SetDefault(logger)

	agg, err := app.NewAggregator(cfg, logger)
	if err != nil {
		logger.Error("failed to build aggregator", "error", err)
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

	sink := newSink(store, export.NewService(cfg.Export, logger), cfg.Export.Dir, logger)
	queue := async.NewProcessorQueue(agg, logger,
		async.WithWorkers(cfg.Watch.Workers),
		async.WithQueueSize(cfg.Watch.QueueSize),
		async.WithProcessTimeout(cfg.Watch.JobTimeout),
		async.WithSink(sink.handle),
	)

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       cfg.Watch.Roots,
		InitialScan: *initialScan,
		Debounce:    cfg.Watch.Debounce,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to start watcher", "error", err)
		queue.Shutdown(context.Background())
		return 1
	}

	logger.Info("ektp-watch running", "roots", cfg.Watch.Roots, "workers", cfg.Watch.Workers)
	for events != nil || errs != nil {
		select {
		case path, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if err := queue.Enqueue(ctx, async.Job{Source: ingest.NewFile(path)}); err != nil {
				logger.Warn("failed to enqueue image", "path", path, "error", err)
			}
		case _, ok := <-errs:
			if !ok {
				errs = nil
			}
		}
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Watch.JobTimeout+5*time.Second)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	return 0
}

// sink archives each finished batch of one and rewrites the cumulative
// workbook, one row per source path.
type sink struct {
	store    *archive.Store
	exporter *export.Service
	dir      string
	logger   *slog.Logger

	// cumulative when there is no archive
	records []ktp.Record
	rowOf   map[string]int
}

func newSink(store *archive.Store, exporter *export.Service, dir string, logger *slog.Logger) *sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &sink{store: store, exporter: exporter, dir: dir, logger: logger, rowOf: map[string]int{}}
}

// remember replaces the row of a source seen before, otherwise appends.
func (s *sink) remember(b *batch.Batch) {
	for _, it := range b.Items {
		if it.Status != constants.ItemStatusParsed {
			continue
		}
		name := it.Source.Name()
		if i, ok := s.rowOf[name]; ok {
			s.records[i] = it.Record
			continue
		}
		s.rowOf[name] = len(s.records)
		s.records = append(s.records, it.Record)
	}
}

// handle is called serially by the queue.
func (s *sink) handle(ctx context.Context, b *batch.Batch, runErr error) {
	ctx = common.WithBatchID(ctx, b.ID.String())
	if runErr != nil && !b.Failed() {
		b.Err = runErr
	}
	var all []ktp.Record
	if s.store != nil {
		if err := s.store.SaveBatch(ctx, b); err != nil {
			s.logger.Error("failed to archive batch", "batch_id", b.ID.String(), "error", err)
			return
		}
		if runErr != nil {
			return
		}
		var err error
		if all, err = s.store.ListLatestRecords(ctx); err != nil {
			s.logger.Error("failed to load archived records", "error", err)
			return
		}
	} else {
		if runErr != nil {
			return
		}
		s.remember(b)
		all = s.records
	}

	path, err := s.exporter.SaveXLSX(ctx, s.dir, all)
	if err != nil {
		s.logger.Error("failed to export records", "error", err)
		return
	}
	s.logger.Info("export refreshed", "path", path, "rows", len(all))
}
