package ktp

import "github.com/joseph-ayodele/ektp-scanner/constants"

// Match records how one field was resolved. Rule is "" and Line is -1 when
// no rule matched.
type Match struct {
	Field constants.Field `json:"field"`
	Value string          `json:"value"`
	Rule  string          `json:"rule,omitempty"`
	Line  int             `json:"line"`
}

func (m Match) Matched() bool { return m.Rule != "" }

// Report lists one Match per registered field, in registry order.
type Report []Match

// Missed returns the fields no rule matched.
func (r Report) Missed() []constants.Field {
	var out []constants.Field
	for _, m := range r {
		if !m.Matched() {
			out = append(out, m.Field)
		}
	}
	return out
}

// Fallbacks returns the fields resolved by the colon-split fallback.
func (r Report) Fallbacks() []constants.Field {
	var out []constants.Field
	for _, m := range r {
		if m.Rule == RuleColonSplit {
			out = append(out, m.Field)
		}
	}
	return out
}

// Assembler turns a Document into a Record. It is stateless and safe for
// concurrent use.
type Assembler struct {
	registry *Registry
}

func NewAssembler(registry *Registry) *Assembler {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Assembler{registry: registry}
}

// Assemble never fails: a field that cannot be extracted stays "".
func (a *Assembler) Assemble(d Document) Record {
	rec, _ := a.AssembleWithReport(d)
	return rec
}

// AssembleWithReport also returns how each field was resolved.
func (a *Assembler) AssembleWithReport(d Document) (Record, Report) {
	var rec Record
	report := make(Report, 0, len(a.registry.specs))
	for _, spec := range a.registry.specs {
		m := spec.Extract(d)
		if p := rec.field(spec.Field); p != nil {
			*p = m.Value
		}
		report = append(report, m)
	}
	return rec, report
}

// Parse tokenizes raw OCR text and assembles it with the default registry.
func Parse(raw string) Record {
	return NewAssembler(nil).Assemble(Tokenize(raw))
}
