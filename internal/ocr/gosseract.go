//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/ektp-scanner/constants"
)

// Gosseract recognizes in-process through libtesseract. Build with -tags gosseract.
// The OCR engine mode is fixed at tesseract init, so Config.OEM does not apply.
type Gosseract struct {
	cfg    Config
	logger *slog.Logger
}

func newGosseract(cfg Config, logger *slog.Logger) (Recognizer, error) {
	return &Gosseract{cfg: cfg, logger: logger}, nil
}

type gosseractResult struct {
	text string
	err  error
}

func (g *Gosseract) Recognize(ctx context.Context, image []byte, lang string) (string, error) {
	if _, err := DetectFormat(image); err != nil {
		return "", &RecognitionError{Engine: constants.EngineGosseract, Err: err}
	}
	if lang == "" {
		lang = g.cfg.Lang
	}
	start := time.Now()

	// The client is not context-aware; it is closed by the goroutine that owns it.
	done := make(chan gosseractResult, 1)
	go func() {
		c := gosseract.NewClient()
		defer c.Close()
		if g.cfg.TessdataDir != "" {
			c.TessdataPrefix = g.cfg.TessdataDir
		}
		if err := c.SetLanguage(lang); err != nil {
			done <- gosseractResult{err: fmt.Errorf("set language: %w", err)}
			return
		}
		if g.cfg.PSM > 0 {
			if err := c.SetPageSegMode(gosseract.PageSegMode(g.cfg.PSM)); err != nil {
				done <- gosseractResult{err: fmt.Errorf("set psm: %w", err)}
				return
			}
		}
		if err := c.SetImageFromBytes(image); err != nil {
			done <- gosseractResult{err: fmt.Errorf("set image: %w", err)}
			return
		}
		text, err := c.Text()
		if err != nil {
			err = fmt.Errorf("recognize text: %w", err)
		}
		done <- gosseractResult{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", &RecognitionError{Engine: constants.EngineGosseract, Err: ctx.Err()}
	case res := <-done:
		if res.err != nil {
			return "", &RecognitionError{Engine: constants.EngineGosseract, Err: res.err}
		}
		g.logger.Debug("ocr ok",
			"engine", constants.EngineGosseract,
			"lang", lang,
			"bytes", len(res.text),
			"confidence", TextConfidence(res.text),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return res.text, nil
	}
}
