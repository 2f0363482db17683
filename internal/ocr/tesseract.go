package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/ektp-scanner/constants"
	"github.com/joseph-ayodele/ektp-scanner/internal/common"
)

// TesseractCLI runs the tesseract binary with the image on stdin:
//
//	tesseract stdin stdout -l ind [--tessdata-dir D] [--psm N] [--oem N]
type TesseractCLI struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewTesseractCLI(cfg Config, logger *slog.Logger) *TesseractCLI {
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractCLI{cfg: cfg.withDefaults(), runner: execRunner{logger: logger}, logger: logger}
}

// WithRunner swaps the command runner.
func (e *TesseractCLI) WithRunner(r Runner) *TesseractCLI {
	e.runner = r
	return e
}

func (e *TesseractCLI) Recognize(ctx context.Context, image []byte, lang string) (string, error) {
	start := time.Now()
	format, err := DetectFormat(image)
	if err != nil {
		return "", &RecognitionError{Engine: constants.EngineTesseractCLI, Err: err}
	}
	if lang == "" {
		lang = e.cfg.Lang
	}

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, image, e.args(lang)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		if msg := strings.TrimSpace(string(errb)); msg != "" {
			err = fmt.Errorf("tesseract: %w: %s", err, truncate(msg, 512))
		} else {
			err = fmt.Errorf("tesseract: %w", err)
		}
		return "", &RecognitionError{Engine: constants.EngineTesseractCLI, Err: err}
	}

	txt := string(out)
	e.logger.Debug("ocr ok",
		"batch_id", common.BatchIDFromContext(ctx),
		"document", common.DocumentFromContext(ctx),
		"format", format,
		"lang", lang,
		"bytes", len(txt),
		"confidence", TextConfidence(txt),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return txt, nil
}

func (e *TesseractCLI) args(lang string) []string {
	args := []string{"stdin", "stdout", "-l", lang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	return args
}
