package ktp

import (
	"strings"

	"github.com/joseph-ayodele/ektp-scanner/constants"
)

// Printed labels as the Indonesian tesseract model reads them off the card.
// Tgi, RTIRW and KellDesa are the engine's stable misreads of "Tgl", "RT/RW"
// and "Kel/Desa"; matching the dictionary spelling would miss real output.
const (
	LabelNIK                = "NIK"
	LabelNama               = "Nama"
	LabelTempatTanggalLahir = "Tempat/Tgi Lahir"
	LabelJenisKelamin       = "Jenis Kelamin"
	LabelGolDarah           = "Gol. Darah"
	LabelAlamat             = "Alamat"
	LabelRTRW               = "RTIRW"
	LabelKelDesa            = "KellDesa"
	LabelKecamatan          = "Kecamatan"
	LabelAgama              = "Agama"
	LabelStatusPerkawinan   = "Status Perkawinan"
	LabelPekerjaan          = "Pekerjaan"
	LabelKewarganegaraan    = "Kewarganegaraan"
)

// FieldSpec is the extraction strategy for one field.
//
// With an empty Anchor every line is tried in document order and the first
// line on which any rule matches wins. With an Anchor, only the first line
// containing it (case-sensitive) is considered, and Rules are tried on that
// line in order.
type FieldSpec struct {
	Field  constants.Field
	Label  string
	Anchor string
	Rules  []Rule
}

// Extract runs the spec against d. A miss returns Match{Rule: "", Line: -1}.
func (s FieldSpec) Extract(d Document) Match {
	miss := Match{Field: s.Field, Line: -1}
	if s.Anchor == "" {
		for i, line := range d.lines {
			if v, rule, ok := s.apply(line); ok {
				return Match{Field: s.Field, Value: v, Rule: rule, Line: i}
			}
		}
		return miss
	}
	for i, line := range d.lines {
		if !strings.Contains(line, s.Anchor) {
			continue
		}
		if v, rule, ok := s.apply(line); ok {
			return Match{Field: s.Field, Value: v, Rule: rule, Line: i}
		}
		return miss
	}
	return miss
}

func (s FieldSpec) apply(line string) (string, string, bool) {
	for _, r := range s.Rules {
		if v, ok := r.Match(line); ok {
			return v, r.Name, true
		}
	}
	return "", "", false
}

// KeyValueSpec: first line anywhere with "<label> :" wins.
func KeyValueSpec(f constants.Field, label string) FieldSpec {
	return FieldSpec{Field: f, Label: label, Rules: []Rule{LabeledRule(label)}}
}

// ConstrainedSpec: value on the label line must be one of the field's allowed tokens.
func ConstrainedSpec(f constants.Field, label string) FieldSpec {
	return FieldSpec{Field: f, Label: label, Anchor: label, Rules: []Rule{EnumRule(label, f)}}
}

// CompositeSpec: "<place>, <DD-MM-YYYY>" on the label line.
func CompositeSpec(f constants.Field, label string) FieldSpec {
	return FieldSpec{Field: f, Label: label, Anchor: label, Rules: []Rule{PlaceDateRule(label)}}
}

// FallbackSpec: labeled capture, else everything after the first colon of the label line.
func FallbackSpec(f constants.Field, label string) FieldSpec {
	return FieldSpec{Field: f, Label: label, Anchor: label, Rules: []Rule{LabeledRule(label), ColonSplitRule()}}
}

// Registry is an immutable set of field specs, one per record field.
type Registry struct {
	specs []FieldSpec
}

// NewRegistry builds a registry from specs. Later specs for the same field
// replace earlier ones.
func NewRegistry(specs ...FieldSpec) *Registry {
	byField := make(map[constants.Field]int, len(specs))
	out := make([]FieldSpec, 0, len(specs))
	for _, s := range specs {
		if i, ok := byField[s.Field]; ok {
			out[i] = s
			continue
		}
		byField[s.Field] = len(out)
		out = append(out, s)
	}
	return &Registry{specs: out}
}

// Specs returns a copy of the registered specs in registration order.
func (r *Registry) Specs() []FieldSpec {
	cp := make([]FieldSpec, len(r.specs))
	copy(cp, r.specs)
	return cp
}

// Spec returns the spec for f.
func (r *Registry) Spec(f constants.Field) (FieldSpec, bool) {
	for _, s := range r.specs {
		if s.Field == f {
			return s, true
		}
	}
	return FieldSpec{}, false
}

var defaultRegistry = NewRegistry(
	KeyValueSpec(constants.NIK, LabelNIK),
	KeyValueSpec(constants.Nama, LabelNama),
	CompositeSpec(constants.TempatTanggalLahir, LabelTempatTanggalLahir),
	ConstrainedSpec(constants.JenisKelamin, LabelJenisKelamin),
	ConstrainedSpec(constants.GolDarah, LabelGolDarah),
	KeyValueSpec(constants.Alamat, LabelAlamat),
	FallbackSpec(constants.RTRW, LabelRTRW),
	FallbackSpec(constants.KelDesa, LabelKelDesa),
	KeyValueSpec(constants.Kecamatan, LabelKecamatan),
	KeyValueSpec(constants.Agama, LabelAgama),
	KeyValueSpec(constants.StatusPerkawinan, LabelStatusPerkawinan),
	KeyValueSpec(constants.Pekerjaan, LabelPekerjaan),
	ConstrainedSpec(constants.Kewarganegaraan, LabelKewarganegaraan),
)

// DefaultRegistry returns the e-KTP field registry.
func DefaultRegistry() *Registry { return defaultRegistry }
