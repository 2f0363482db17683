//go:build !gosseract

package ocr

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ektp-scanner/constants"
)

func TestNew_GosseractNotCompiledIn(t *testing.T) {
	_, err := New(Config{Engine: constants.EngineGosseract}, nil)
	require.ErrorContains(t, err, "-tags gosseract")
}

func TestNew_GosseractWarnsOnOEM(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	_, _ = New(Config{Engine: constants.EngineGosseract, OEM: 1}, logger)
	assert.Contains(t, buf.String(), "oem setting ignored by engine")
	assert.Contains(t, buf.String(), "oem=1")

	buf.Reset()
	_, _ = New(Config{Engine: constants.EngineGosseract}, logger)
	assert.NotContains(t, buf.String(), "oem")
}
