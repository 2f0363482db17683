//go:build !gosseract

package ocr

import (
	"errors"
	"log/slog"
)

func newGosseract(Config, *slog.Logger) (Recognizer, error) {
	return nil, errors.New("gosseract engine not compiled in: rebuild with -tags gosseract")
}
