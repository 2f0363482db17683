package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/ektp-scanner/constants"
)

// Recognizer is the OCR collaborator: image bytes + language code -> raw text.
// Implementations may be slow and must honour ctx cancellation.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, lang string) (string, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, image []byte, lang string) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, image []byte, lang string) (string, error) {
	return f(ctx, image, lang)
}

var ErrUnsupportedImage = errors.New("unsupported image")

// RecognitionError is returned for any failure to turn one image into text.
type RecognitionError struct {
	Engine string
	Err    error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("recognition failed (%s): %v", e.Engine, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// IsRecognitionError reports whether err is or wraps a RecognitionError.
func IsRecognitionError(err error) bool {
	var re *RecognitionError
	return errors.As(err, &re)
}

type Config struct {
	Engine      string // constants.EngineTesseractCLI (default) | constants.EngineGosseract
	Tesseract   string // binary name or absolute path; if empty -> "tesseract"
	Lang        string // default "ind"
	TessdataDir string
	PSM         int // e.g., 6 is good for uniform block of text
	OEM         int // 1 = LSTM; leave 0 to use default. CLI engine only
}

func (c Config) withDefaults() Config {
	if c.Engine == "" {
		c.Engine = constants.EngineTesseractCLI
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Lang == "" {
		c.Lang = constants.LanguageIndonesian
	}
	return c
}

// New returns the Recognizer selected by cfg.Engine.
func New(cfg Config, logger *slog.Logger) (Recognizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	switch cfg.Engine {
	case constants.EngineTesseractCLI:
		return NewTesseractCLI(cfg, logger), nil
	case constants.EngineGosseract:
		if cfg.OEM > 0 {
			// gosseract initializes tesseract with the default engine mode
			logger.Warn("oem setting ignored by engine", "engine", cfg.Engine, "oem", cfg.OEM)
		}
		return newGosseract(cfg, logger)
	default:
		logger.Error("unsupported ocr engine", "engine", cfg.Engine)
		return nil, fmt.Errorf("unsupported ocr engine: %q", cfg.Engine)
	}
}
