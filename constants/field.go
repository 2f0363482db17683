package constants

import "strings"

// Field names a column of the e-KTP record.
type Field string

const (
	NIK                Field = "NIK"
	Nama               Field = "Nama"
	TempatTanggalLahir Field = "TempatTanggalLahir"
	JenisKelamin       Field = "JenisKelamin"
	GolDarah           Field = "GolDarah"
	Alamat             Field = "Alamat"
	RTRW               Field = "RTRW"
	KelDesa            Field = "KelDesa"
	Kecamatan          Field = "Kecamatan"
	Agama              Field = "Agama"
	StatusPerkawinan   Field = "StatusPerkawinan"
	Pekerjaan          Field = "Pekerjaan"
	Kewarganegaraan    Field = "Kewarganegaraan"
)

// FieldOrder is the canonical record order; it is also the export column order.
var FieldOrder = []Field{
	NIK,
	Nama,
	TempatTanggalLahir,
	JenisKelamin,
	GolDarah,
	Alamat,
	RTRW,
	KelDesa,
	Kecamatan,
	Agama,
	StatusPerkawinan,
	Pekerjaan,
	Kewarganegaraan,
}

// Allowed values for the constrained fields, in match priority order.
var (
	Genders       = []string{"LAKI-LAKI", "PEREMPUAN"}
	BloodTypes    = []string{"AB", "A", "B", "O"}
	Citizenships  = []string{"WNA", "WNI"}
	constrainedBy = map[Field][]string{
		JenisKelamin:    Genders,
		GolDarah:        BloodTypes,
		Kewarganegaraan: Citizenships,
	}
)

// FieldNames returns FieldOrder as plain strings.
func FieldNames() []string {
	result := make([]string, len(FieldOrder))
	for i, f := range FieldOrder {
		result[i] = string(f)
	}
	return result
}

// AllowedValues returns the enumeration for a constrained field, or nil.
func AllowedValues(f Field) []string {
	return constrainedBy[f]
}

// Canonicalize maps input onto the allowed value of a constrained field,
// ignoring case and surrounding space.
func Canonicalize(f Field, input string) (string, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(input))
	for _, v := range constrainedBy[f] {
		if normalized == v {
			return v, true
		}
	}
	return "", false
}
