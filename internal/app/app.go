package app

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/ektp-scanner/internal/archive"
	"github.com/joseph-ayodele/ektp-scanner/internal/batch"
	"github.com/joseph-ayodele/ektp-scanner/internal/common"
	"github.com/joseph-ayodele/ektp-scanner/internal/ocr"
)

// Flags holds the command-line overrides shared by every command.
type Flags struct {
	ConfigPath    string
	Engine        string
	Lang          string
	Concurrency   int
	CallTimeout   time.Duration
	Policy        string
	ExportDir     string
	ArchiveDriver string
	ArchiveDSN    string
	LogLevel      string

	fs *flag.FlagSet
}

// RegisterFlags binds the shared flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.ConfigPath, "config", "", "YAML config file (default $EKTP_CONFIG)")
	fs.StringVar(&f.Engine, "engine", "", "OCR engine: tesseract | gosseract")
	fs.StringVar(&f.Lang, "lang", "", "OCR language code")
	fs.IntVar(&f.Concurrency, "concurrency", 0, "max in-flight OCR calls (0 = one per document)")
	fs.DurationVar(&f.CallTimeout, "timeout", 0, "per-document OCR timeout (0 = none)")
	fs.StringVar(&f.Policy, "policy", "", "failure policy: all-or-nothing | per-document")
	fs.StringVar(&f.ExportDir, "out", "", "export directory")
	fs.StringVar(&f.ArchiveDriver, "archive-driver", "", "archive driver: sqlite | pgx")
	fs.StringVar(&f.ArchiveDSN, "archive-dsn", "", "archive data source name")
	fs.StringVar(&f.LogLevel, "log-level", "", "debug | info | warn | error")
	return f
}

// Config loads defaults, the YAML file, the environment, then every flag that
// was set explicitly, and validates the result. Call after fs.Parse.
func (f *Flags) Config() (*common.Config, error) {
	cfg, err := common.LoadConfig(f.ConfigPath)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "load config", err)
	}
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "engine":
			cfg.OCR.Engine = f.Engine
		case "lang":
			cfg.OCR.Lang = f.Lang
		case "concurrency":
			cfg.Batch.Concurrency = f.Concurrency
		case "timeout":
			cfg.Batch.CallTimeout = f.CallTimeout
		case "policy":
			cfg.Batch.FailurePolicy = f.Policy
		case "out":
			cfg.Export.Dir = f.ExportDir
		case "archive-driver":
			cfg.Archive.Driver = f.ArchiveDriver
		case "archive-dsn":
			cfg.Archive.DSN = f.ArchiveDSN
		case "log-level":
			cfg.Log.Level = f.LogLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OCRConfig maps the OCR section of the app config.
func OCRConfig(c common.OCRConfig) ocr.Config {
	return ocr.Config{
		Engine:      c.Engine,
		Tesseract:   c.Tesseract,
		Lang:        c.Lang,
		TessdataDir: c.TessdataDir,
		PSM:         c.PSM,
		OEM:         c.OEM,
	}
}

// NewAggregator builds the OCR engine and the batch aggregator from cfg.
func NewAggregator(cfg *common.Config, logger *slog.Logger) (*batch.Aggregator, error) {
	rec, err := ocr.New(OCRConfig(cfg.OCR), logger)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "ocr engine", err)
	}
	return batch.NewAggregator(rec, logger,
		batch.WithConcurrency(cfg.Batch.Concurrency),
		batch.WithCallTimeout(cfg.Batch.CallTimeout),
		batch.WithPolicy(cfg.Batch.FailurePolicy),
		batch.WithLanguage(cfg.OCR.Lang),
	), nil
}

// OpenArchive opens and migrates the archive; it returns nil when no driver is configured.
func OpenArchive(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*archive.Store, error) {
	if cfg.Archive.Driver == "" {
		return nil, nil
	}
	store, err := archive.Open(ctx, archive.FromCommon(cfg.Archive), logger)
	if err != nil {
		return nil, err
	}
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("archive: %w", err)
	}
	return store, nil
}
