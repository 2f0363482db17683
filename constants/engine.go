package constants

// OCR engines.
const (
	EngineTesseractCLI = "tesseract"
	EngineGosseract    = "gosseract"
)

// LanguageIndonesian is the tesseract model used for e-KTP scans.
const LanguageIndonesian = "ind"

// Batch failure policies.
const (
	PolicyFailAll     = "all-or-nothing"
	PolicyPerDocument = "per-document"
)

// Archive drivers, as registered with database/sql.
const (
	DriverSQLite = "sqlite"
	DriverPgx    = "pgx"
)

// Export defaults.
const (
	ExportSheetName = "Hasil OCR e-KTP"
	ExportFileName  = "hasil_ocr_ektp.xlsx"
)
