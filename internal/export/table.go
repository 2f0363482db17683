package export

import (
	"github.com/joseph-ayodele/ektp-scanner/constants"
	"github.com/joseph-ayodele/ektp-scanner/internal/ktp"
)

// Header is the thirteen field names in column order.
func Header() []string {
	return constants.FieldNames()
}

// Rows is one row per record, in record order, columns in Header order.
func Rows(records []ktp.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.Values())
	}
	return rows
}
