package export

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/ektp-scanner/constants"
	"github.com/joseph-ayodele/ektp-scanner/internal/common"
	"github.com/joseph-ayodele/ektp-scanner/internal/ktp"
)

var records = []ktp.Record{
	{
		NIK:                "3201011234567890",
		Nama:               "BUDI SANTOSO",
		TempatTanggalLahir: "JAKARTA, 17-08-1990",
		JenisKelamin:       "LAKI-LAKI",
		GolDarah:           "O",
		Alamat:             "JL. MERDEKA NO. 10",
		RTRW:               "001/002",
		KelDesa:            "SUKAMAJU",
		Kecamatan:          "CIBINONG",
		Agama:              "ISLAM",
		StatusPerkawinan:   "BELUM KAWIN",
		Pekerjaan:          "KARYAWAN SWASTA",
		Kewarganegaraan:    "WNI",
	},
	{
		NIK:             "3201019876543210",
		Nama:            "SITI AMINAH",
		JenisKelamin:    "PEREMPUAN",
		Kewarganegaraan: "WNI",
	},
}

func TestHeaderAndRows(t *testing.T) {
	assert.Equal(t, []string{
		"NIK", "Nama", "TempatTanggalLahir", "JenisKelamin", "GolDarah", "Alamat", "RTRW",
		"KelDesa", "Kecamatan", "Agama", "StatusPerkawinan", "Pekerjaan", "Kewarganegaraan",
	}, Header())

	rows := Rows(records)
	require.Len(t, rows, 2)
	assert.Equal(t, records[0].Values(), rows[0])
	assert.Equal(t, "", rows[1][2])
	assert.Empty(t, Rows(nil))
}

func TestWriteXLSX(t *testing.T) {
	svc := NewService(common.ExportConfig{}, nil)
	data, err := svc.WriteXLSX(context.Background(), records)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{constants.ExportSheetName}, f.GetSheetList())

	header, err := f.GetRows(constants.ExportSheetName)
	require.NoError(t, err)
	require.Len(t, header, 3)
	assert.Equal(t, Header(), header[0])
	assert.Equal(t, records[0].Values(), header[1])

	// trailing empty cells are dropped by GetRows; read the full second row by cell
	for col, want := range records[1].Values() {
		cell, err := excelize.CoordinatesToCellName(col+1, 3)
		require.NoError(t, err)
		got, err := f.GetCellValue(constants.ExportSheetName, cell)
		require.NoError(t, err)
		assert.Equal(t, want, got, cell)
	}

	typ, err := f.GetCellType(constants.ExportSheetName, "A2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeNumber, typ, "NIK must stay text")
}

func TestWriteXLSX_EmptyBatchHasHeaderOnly(t *testing.T) {
	data, err := NewService(common.ExportConfig{SheetName: "Cards"}, nil).WriteXLSX(context.Background(), nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Cards")
	require.NoError(t, err)
	assert.Equal(t, [][]string{Header()}, rows)
}

func TestSaveXLSX_OverwritesFixedName(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(common.ExportConfig{}, nil)

	first, err := svc.SaveXLSX(context.Background(), dir, records)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, constants.ExportFileName), first)

	second, err := svc.SaveXLSX(context.Background(), dir, records[:1])
	require.NoError(t, err)
	assert.Equal(t, first, second)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	f, err := excelize.OpenFile(second)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(constants.ExportSheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, records))

	var got []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "BUDI SANTOSO", got[0]["Nama"])
	assert.Len(t, got[1], len(constants.FieldOrder))

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteJSON_RejectsOutOfSetValues(t *testing.T) {
	bad := []ktp.Record{{GolDarah: "Z"}}
	var buf bytes.Buffer
	err := WriteJSON(&buf, bad)
	require.Error(t, err)
	assert.True(t, common.HasCode(err, common.CodeExport))
	assert.Zero(t, buf.Len())

	err = WriteJSON(&buf, []ktp.Record{{TempatTanggalLahir: "JAKARTA 1990"}})
	require.Error(t, err)
}

func TestValidateRecordsJSON(t *testing.T) {
	assert.NoError(t, ValidateRecordsJSON([]byte(`[]`)))
	assert.Error(t, ValidateRecordsJSON([]byte(`[{"NIK": "1"}]`)), "missing required fields")
	assert.Error(t, ValidateRecordsJSON([]byte(`{`)))
}

func TestSaveJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "cards.json")
	require.NoError(t, SaveJSON(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, ValidateRecordsJSON(data))
}
