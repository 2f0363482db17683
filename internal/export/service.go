package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/ektp-scanner/constants"
	"github.com/joseph-ayodele/ektp-scanner/internal/common"
	"github.com/joseph-ayodele/ektp-scanner/internal/ktp"
)

// Service writes record tables as XLSX workbooks under a fixed sheet and file name.
type Service struct {
	sheet    string
	fileName string
	logger   *slog.Logger
}

func NewService(cfg common.ExportConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{sheet: cfg.SheetName, fileName: cfg.FileName, logger: logger}
	if s.sheet == "" {
		s.sheet = constants.ExportSheetName
	}
	if s.fileName == "" {
		s.fileName = constants.ExportFileName
	}
	return s
}

func (s *Service) SheetName() string { return s.sheet }

func (s *Service) FileName() string { return s.fileName }

// WriteXLSX returns the workbook bytes: a header row then one row per record.
func (s *Service) WriteXLSX(ctx context.Context, records []ktp.Record) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), s.sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := Header()
	if err := s.writeRow(f, 1, header); err != nil {
		return nil, err
	}
	for i, row := range Rows(records) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.writeRow(f, i+2, row); err != nil {
			return nil, err
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(s.sheet, "A", "A", 20) // NIK
	_ = f.SetColWidth(s.sheet, "B", "C", 32) // Nama, TTL
	_ = f.SetColWidth(s.sheet, "F", "F", 40) // Alamat
	if err := f.SetPanes(s.sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		s.logger.Warn("freeze header failed", "error", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"batch_id", common.BatchIDFromContext(ctx),
		"rows", len(records),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// SaveXLSX writes the workbook to dir under the fixed file name, replacing
// any earlier export, and returns the path.
func (s *Service) SaveXLSX(ctx context.Context, dir string, records []ktp.Record) (string, error) {
	data, err := s.WriteXLSX(ctx, records)
	if err != nil {
		return "", common.NewAppError(common.CodeExport, "build workbook", err)
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", common.NewAppError(common.CodeExport, "create export dir", err)
	}
	path := filepath.Join(dir, s.fileName)
	if err := writeFileAtomic(path, data); err != nil {
		return "", common.NewAppError(common.CodeExport, "save workbook", err)
	}
	return path, nil
}

func (s *Service) writeRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	// strings keep NIK and dates from being coerced into numbers
	if err := f.SetSheetRow(s.sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
