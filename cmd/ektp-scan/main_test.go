package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/ektp-scanner/constants"
)

const cardText = `PROVINSI JAWA BARAT
NIK : 3201011234567890
Nama : BUDI SANTOSO
Tempat/Tgi Lahir : JAKARTA, 17-08-1990
Jenis Kelamin : LAKI-LAKI Gol. Darah : O
Kewarganegaraan : WNI
`

// fakeTesseract installs a shell script standing in for the tesseract binary.
func fakeTesseract(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tesseract")
	script := "#!/bin/sh\ncat > /dev/null\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("TESSERACT_BIN", path)
	t.Setenv("OCR_ENGINE", constants.EngineTesseractCLI)
	t.Setenv("EKTP_CONFIG", "")
	t.Setenv("ARCHIVE_DRIVER", "")
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestRun_ScanToXLSX(t *testing.T) {
	fakeTesseract(t, "cat <<'TXT'\n"+cardText+"TXT")
	in := t.TempDir()
	writePNG(t, filepath.Join(in, "a.png"))
	writePNG(t, filepath.Join(in, "b.png"))
	out := t.TempDir()
	jsonPath := filepath.Join(out, "records.json")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-out", out,
		"-json", jsonPath,
		"-archive-driver", constants.DriverSQLite,
		"-archive-dsn", filepath.Join(out, "archive.db"),
		in,
	}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "- Parsed: 2")

	f, err := excelize.OpenFile(filepath.Join(out, constants.ExportFileName))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(constants.ExportSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "3201011234567890", rows[1][0])
	assert.Equal(t, "JAKARTA, 17-08-1990", rows[2][2])
	assert.Equal(t, "O", rows[2][4])

	_, err = os.Stat(jsonPath)
	assert.NoError(t, err)
}

func TestRun_BatchFailure(t *testing.T) {
	fakeTesseract(t, "echo 'engine fault' >&2\nexit 1")
	in := t.TempDir()
	writePNG(t, filepath.Join(in, "a.png"))
	out := t.TempDir()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-out", out, in}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "failed!")

	_, err := os.Stat(filepath.Join(out, constants.ExportFileName))
	assert.True(t, os.IsNotExist(err), "no export on batch failure")
}

func TestRun_PerDocumentExportsSurvivors(t *testing.T) {
	fakeTesseract(t, "cat <<'TXT'\n"+cardText+"TXT")
	in := t.TempDir()
	writePNG(t, filepath.Join(in, "a.png"))
	require.NoError(t, os.WriteFile(filepath.Join(in, "b.png"), []byte("not a png"), 0o644))
	out := t.TempDir()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-out", out, "-policy", constants.PolicyPerDocument, in}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "- Failed: 1")
	assert.Contains(t, stdout.String(), "b.png")
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), nil, &stdout, &stderr))

	t.Setenv("EKTP_CONFIG", "")
	bad := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(bad, []byte("%PDF"), 0o644))
	assert.Equal(t, 2, run(context.Background(), []string{bad}, &stdout, &stderr))
}
