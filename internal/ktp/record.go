package ktp

import (
	"fmt"

	"github.com/joseph-ayodele/ektp-scanner/constants"
)

// Record is the structured result for one e-KTP. Every field is always
// present; an unextractable field is "".
type Record struct {
	NIK                string `json:"NIK"`
	Nama               string `json:"Nama"`
	TempatTanggalLahir string `json:"TempatTanggalLahir"`
	JenisKelamin       string `json:"JenisKelamin"`
	GolDarah           string `json:"GolDarah"`
	Alamat             string `json:"Alamat"`
	RTRW               string `json:"RTRW"`
	KelDesa            string `json:"KelDesa"`
	Kecamatan          string `json:"Kecamatan"`
	Agama              string `json:"Agama"`
	StatusPerkawinan   string `json:"StatusPerkawinan"`
	Pekerjaan          string `json:"Pekerjaan"`
	Kewarganegaraan    string `json:"Kewarganegaraan"`
}

// Get returns the value of f, or "" for an unknown field.
func (r Record) Get(f constants.Field) string {
	if p := r.field(f); p != nil {
		return *p
	}
	return ""
}

// Values returns the field values in constants.FieldOrder.
func (r Record) Values() []string {
	out := make([]string, len(constants.FieldOrder))
	for i, f := range constants.FieldOrder {
		out[i] = r.Get(f)
	}
	return out
}

// RecordFromValues is the inverse of Values.
func RecordFromValues(values []string) (Record, error) {
	if len(values) != len(constants.FieldOrder) {
		return Record{}, fmt.Errorf("record needs %d values, got %d", len(constants.FieldOrder), len(values))
	}
	var r Record
	for i, f := range constants.FieldOrder {
		*r.field(f) = values[i]
	}
	return r, nil
}

func (r *Record) field(f constants.Field) *string {
	switch f {
	case constants.NIK:
		return &r.NIK
	case constants.Nama:
		return &r.Nama
	case constants.TempatTanggalLahir:
		return &r.TempatTanggalLahir
	case constants.JenisKelamin:
		return &r.JenisKelamin
	case constants.GolDarah:
		return &r.GolDarah
	case constants.Alamat:
		return &r.Alamat
	case constants.RTRW:
		return &r.RTRW
	case constants.KelDesa:
		return &r.KelDesa
	case constants.Kecamatan:
		return &r.Kecamatan
	case constants.Agama:
		return &r.Agama
	case constants.StatusPerkawinan:
		return &r.StatusPerkawinan
	case constants.Pekerjaan:
		return &r.Pekerjaan
	case constants.Kewarganegaraan:
		return &r.Kewarganegaraan
	}
	return nil
}
