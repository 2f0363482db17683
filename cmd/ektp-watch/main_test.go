package main

import (
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
	"github.com/joseph-ayodele/ektp-scanner/internal/common"
	"github.com/joseph-ayodele/ektp-scanner/internal/export"
	"github.com/joseph-ayodele/ektp-scanner/internal/ktp"
)

type fileSource string

func (s fileSource) Name() string { return string(s) }

func (s fileSource) Bytes(context.Context) ([]byte, error) { return nil, nil }

func finished(name, nik string, failed bool) *batch.Batch {
	b := batch.New(fileSource(name))
	it := b.Items[0]
	if failed {
		it.Status = constants.ItemStatusFailed
		it.Err = errors.New("engine fault")
		return b
	}
	it.Status = constants.ItemStatusParsed
	it.Record = ktp.Record{NIK: nik, Nama: name}
	return b
}

func exportedNIKs(t *testing.T, dir string) []string {
	t.Helper()
	f, err := excelize.OpenFile(filepath.Join(dir, constants.ExportFileName))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(constants.ExportSheetName)
	require.NoError(t, err)
	var out []string
	for _, r := range rows[1:] {
		out = append(out, r[0])
	}
	return out
}

func TestSink_CumulativeWithoutArchive(t *testing.T) {
	dir := t.TempDir()
	s := newSink(nil, export.NewService(common.ExportConfig{}, nil), dir, nil)
	ctx := context.Background()

	s.handle(ctx, finished("a.png", "1111", false), nil)
	failed := finished("b.png", "", true)
	s.handle(ctx, failed, common.NewAppError(common.CodeBatchFailed, "batch failed", failed.Items[0].Err))
	s.handle(ctx, finished("c.png", "3333", false), nil)

	assert.Equal(t, []string{"1111", "3333"}, exportedNIKs(t, dir))

	s.handle(ctx, finished("a.png", "1112", false), nil)
	assert.Equal(t, []string{"1112", "3333"}, exportedNIKs(t, dir), "rescanned source replaces its row")
}

func TestSink_WithArchive(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := archive.Open(ctx, archive.Config{Driver: constants.DriverSQLite, DSN: filepath.Join(dir, "a.db")}, nil)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Migrate(ctx))

	s := newSink(store, export.NewService(common.ExportConfig{}, nil), dir, nil)
	first := finished("a.png", "1111", false)
	second := finished("b.png", "2222", false)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	s.handle(ctx, first, nil)
	s.handle(ctx, second, nil)

	assert.Equal(t, []string{"1111", "2222"}, exportedNIKs(t, dir))
	latest, err := store.LatestBatchID(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest)

	rescan := finished("a.png", "1112", false)
	rescan.CreatedAt = second.CreatedAt.Add(time.Second)
	s.handle(ctx, rescan, nil)
	assert.Equal(t, []string{"1112", "2222"}, exportedNIKs(t, dir))

	broken := finished("c.png", "", true)
	broken.CreatedAt = rescan.CreatedAt.Add(time.Second)
	s.handle(ctx, broken, common.NewAppError(common.CodeBatchFailed, "batch failed", broken.Items[0].Err))
	latest, err = store.LatestBatchID(ctx)
	require.NoError(t, err)
	assert.Equal(t, rescan.ID, latest, "failed batches are not the latest export")
}
