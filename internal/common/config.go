package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/ektp-scanner/constants"
)

// Config holds all application configuration
type Config struct {
	OCR     OCRConfig     `yaml:"ocr"`
	Batch   BatchConfig   `yaml:"batch"`
	Export  ExportConfig  `yaml:"export"`
	Archive ArchiveConfig `yaml:"archive"`
	Watch   WatchConfig   `yaml:"watch"`
	Log     LogConfig     `yaml:"log"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine      string `yaml:"engine"`
	Tesseract   string `yaml:"tesseract"`
	Lang        string `yaml:"lang"`
	TessdataDir string `yaml:"tessdata_dir"`
	PSM         int    `yaml:"psm"`
	OEM         int    `yaml:"oem"`
}

// BatchConfig holds batch aggregation configuration.
// Concurrency 0 means one in-flight OCR call per document.
type BatchConfig struct {
	Concurrency   int           `yaml:"concurrency"`
	CallTimeout   time.Duration `yaml:"call_timeout"`
	FailurePolicy string        `yaml:"failure_policy"`
}

// ExportConfig holds export-related configuration
type ExportConfig struct {
	Dir       string `yaml:"dir"`
	FileName  string `yaml:"file_name"`
	SheetName string `yaml:"sheet_name"`
	JSONPath  string `yaml:"json_path"`
}

// ArchiveConfig holds the optional batch archive configuration; an empty Driver disables it.
type ArchiveConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	PingTimeout     time.Duration `yaml:"ping_timeout"`
}

// WatchConfig holds watch-mode configuration
type WatchConfig struct {
	Roots      []string      `yaml:"roots"`
	Debounce   time.Duration `yaml:"debounce"`
	Workers    int           `yaml:"workers"`
	QueueSize  int           `yaml:"queue_size"`
	JobTimeout time.Duration `yaml:"job_timeout"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		OCR: OCRConfig{
			Engine:    constants.EngineTesseractCLI,
			Tesseract: "tesseract",
			Lang:      constants.LanguageIndonesian,
		},
		Batch: BatchConfig{
			Concurrency:   4,
			CallTimeout:   3 * time.Minute,
			FailurePolicy: constants.PolicyFailAll,
		},
		Export: ExportConfig{
			Dir:       ".",
			FileName:  constants.ExportFileName,
			SheetName: constants.ExportSheetName,
		},
		Archive: ArchiveConfig{
			MaxOpenConns:    4,
			ConnMaxLifetime: 30 * time.Minute,
			PingTimeout:     3 * time.Second,
		},
		Watch: WatchConfig{
			Debounce:   500 * time.Millisecond,
			Workers:    2,
			QueueSize:  256,
			JobTimeout: 3 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads defaults, then the YAML file at path (or $EKTP_CONFIG),
// then environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = os.Getenv("EKTP_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.OCR.Engine = getEnv("OCR_ENGINE", c.OCR.Engine)
	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.Lang = getEnv("OCR_LANG", c.OCR.Lang)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.PSM = getEnvAsInt("OCR_PSM", c.OCR.PSM)
	c.OCR.OEM = getEnvAsInt("OCR_OEM", c.OCR.OEM)

	c.Batch.Concurrency = getEnvAsInt("BATCH_CONCURRENCY", c.Batch.Concurrency)
	c.Batch.CallTimeout = getEnvAsDuration("BATCH_CALL_TIMEOUT", c.Batch.CallTimeout)
	c.Batch.FailurePolicy = getEnv("BATCH_FAILURE_POLICY", c.Batch.FailurePolicy)

	c.Export.Dir = getEnv("EXPORT_DIR", c.Export.Dir)

	c.Archive.Driver = getEnv("ARCHIVE_DRIVER", c.Archive.Driver)
	c.Archive.DSN = getEnv("ARCHIVE_DSN", c.Archive.DSN)

	if roots := getEnv("WATCH_ROOTS", ""); roots != "" {
		c.Watch.Roots = splitList(roots)
	}
	c.Watch.Debounce = getEnvAsDuration("WATCH_DEBOUNCE", c.Watch.Debounce)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("ocr.engine", c.OCR.Engine, Required, OneOf(constants.EngineTesseractCLI, constants.EngineGosseract)).
		Field("ocr.lang", c.OCR.Lang, Required).
		Field("batch.concurrency", c.Batch.Concurrency, NonNegative).
		Field("batch.call_timeout", c.Batch.CallTimeout, NonNegative).
		Field("batch.failure_policy", c.Batch.FailurePolicy, Required, OneOf(constants.PolicyFailAll, constants.PolicyPerDocument)).
		Field("export.file_name", c.Export.FileName, Required).
		Field("export.sheet_name", c.Export.SheetName, Required).
		Field("archive.driver", c.Archive.Driver, OneOf(constants.DriverSQLite, constants.DriverPgx)).
		Field("log.format", c.Log.Format, OneOf("json", "text"))
	if c.OCR.Engine == constants.EngineTesseractCLI {
		v.Field("ocr.tesseract", c.OCR.Tesseract, Required)
	}
	if c.Archive.Driver != "" {
		v.Field("archive.dsn", c.Archive.DSN, Required)
	}
	if err := v.Error(); err != nil {
		return NewAppError(CodeConfig, "invalid configuration", err)
	}
	return nil
}
