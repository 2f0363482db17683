package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/ektp-scanner/constants"
	"github.com/joseph-ayodele/ektp-scanner/internal/archive"
	"github.com/joseph-ayodele/ektp-scanner/internal/batch"
	"github.com/joseph-ayodele/ektp-scanner/internal/ktp"
)

type fileSource string

func (s fileSource) Name() string { return string(s) }

func (s fileSource) Bytes(context.Context) ([]byte, error) { return nil, nil }

func seed(t *testing.T, dsn string, at time.Time, niks ...string) *batch.Batch {
	t.Helper()
	return seedBatch(t, dsn, at, nil, niks...)
}

// seedBatch stores a batch whose items all parsed; runErr marks the batch
// itself as failed.
func seedBatch(t *testing.T, dsn string, at time.Time, runErr error, niks ...string) *batch.Batch {
	t.Helper()
	ctx := context.Background()
	store, err := archive.Open(ctx, archive.Config{Driver: constants.DriverSQLite, DSN: dsn}, nil)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Migrate(ctx))

	var sources []batch.Source
	for _, n := range niks {
		sources = append(sources, fileSource(n+".png"))
	}
	b := batch.New(sources...)
	b.CreatedAt = at
	b.Err = runErr
	for i, it := range b.Items {
		it.Status = constants.ItemStatusParsed
		it.Record = ktp.Record{NIK: niks[i]}
	}
	require.NoError(t, store.SaveBatch(ctx, b))
	return b
}

func rowCount(t *testing.T, dir string) int {
	t.Helper()
	f, err := excelize.OpenFile(filepath.Join(dir, constants.ExportFileName))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(constants.ExportSheetName)
	require.NoError(t, err)
	return len(rows)
}

func TestRun_ExportLatestAndByID(t *testing.T) {
	t.Setenv("EKTP_CONFIG", "")
	dir := t.TempDir()
	dsn := filepath.Join(dir, "archive.db")
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	first := seed(t, dsn, t0, "1111", "2222")
	seed(t, dsn, t0.Add(time.Minute), "3333")

	base := []string{"-archive-driver", constants.DriverSQLite, "-archive-dsn", dsn, "-out", dir}

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run(context.Background(), base, &stdout, &stderr), stderr.String())
	assert.Contains(t, stdout.String(), "Archive health: OK")
	assert.Contains(t, stdout.String(), "- Records: 1")
	assert.Equal(t, 2, rowCount(t, dir))

	stdout.Reset()
	require.Equal(t, 0, run(context.Background(), append(base, "-batch", first.ID.String()), &stdout, &stderr))
	assert.Contains(t, stdout.String(), "- Records: 2")

	stdout.Reset()
	require.Equal(t, 0, run(context.Background(), append(base, "-all"), &stdout, &stderr))
	assert.Contains(t, stdout.String(), "- Records: 3")
	assert.Equal(t, 4, rowCount(t, dir))
}

func TestRun_SkipsFailedBatches(t *testing.T) {
	t.Setenv("EKTP_CONFIG", "")
	dir := t.TempDir()
	dsn := filepath.Join(dir, "archive.db")
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	ok := seed(t, dsn, t0, "1111")
	failed := seedBatch(t, dsn, t0.Add(time.Minute), errors.New("batch failed"), "2222", "3333")

	base := []string{"-archive-driver", constants.DriverSQLite, "-archive-dsn", dsn, "-out", dir}

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run(context.Background(), base, &stdout, &stderr), stderr.String())
	assert.Contains(t, stdout.String(), "- Batch: "+ok.ID.String())
	assert.Contains(t, stdout.String(), "- Records: 1")

	stdout.Reset()
	require.Equal(t, 0, run(context.Background(), append(base, "-batch", failed.ID.String()), &stdout, &stderr))
	assert.Contains(t, stdout.String(), "- Records: 0")
	assert.Equal(t, 1, rowCount(t, dir), "header only")

	stdout.Reset()
	require.Equal(t, 0, run(context.Background(), append(base, "-all"), &stdout, &stderr))
	assert.Contains(t, stdout.String(), "- Records: 1")
}

func TestRun_EmptyArchiveAndErrors(t *testing.T) {
	t.Setenv("EKTP_CONFIG", "")
	t.Setenv("ARCHIVE_DRIVER", "")
	dir := t.TempDir()
	args := []string{"-archive-driver", constants.DriverSQLite, "-archive-dsn", filepath.Join(dir, "empty.db"), "-out", dir}

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run(context.Background(), args, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "No batches archived yet")

	assert.Equal(t, 0, run(context.Background(), append(args, "-ping"), &stdout, &stderr))
	assert.Equal(t, 2, run(context.Background(), append(args, "-batch", "not-a-uuid"), &stdout, &stderr))
	assert.Equal(t, 2, run(context.Background(), []string{"-out", dir}, &stdout, &stderr), "driver required")
}
