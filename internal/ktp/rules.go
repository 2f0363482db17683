package ktp

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/ektp-scanner/constants"
)

// Rule names reported in a Match.
const (
	RuleLabeled    = "labeled"
	RuleEnum       = "enum"
	RuleComposite  = "composite"
	RuleColonSplit = "colon-split"
)

// Rule is one fallible strategy applied to a single line. ok reports whether
// the rule matched; a matched rule may still yield "".
type Rule struct {
	Name  string
	Match func(line string) (value string, ok bool)
}

// LabeledRule captures everything after "<label> :" on the line, trimmed.
// The label is matched case-insensitively.
func LabeledRule(label string) Rule {
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `\s*:\s*(.*)`)
	return Rule{
		Name: RuleLabeled,
		Match: func(line string) (string, bool) {
			m := re.FindStringSubmatch(line)
			if m == nil {
				return "", false
			}
			return strings.TrimSpace(m[1]), true
		},
	}
}

// EnumRule accepts only one of the field's allowed tokens right after
// "<label> :" and returns it in canonical form.
func EnumRule(label string, f constants.Field) Rule {
	allowed := constants.AllowedValues(f)
	alts := make([]string, len(allowed))
	for i, v := range allowed {
		alts[i] = regexp.QuoteMeta(v)
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `\s*:\s*(` + strings.Join(alts, "|") + `)\b`)
	return Rule{
		Name: RuleEnum,
		Match: func(line string) (string, bool) {
			m := re.FindStringSubmatch(line)
			if m == nil {
				return "", false
			}
			return constants.Canonicalize(f, m[1])
		},
	}
}

// PlaceDateRule matches "<label> : <place>, <DD-MM-YYYY>" and re-joins the
// two parts as "<place>, <date>".
func PlaceDateRule(label string) Rule {
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `\s*:\s*([^\d]+),\s*(\d{2}-\d{2}-\d{4})`)
	return Rule{
		Name: RuleComposite,
		Match: func(line string) (string, bool) {
			m := re.FindStringSubmatch(line)
			if m == nil {
				return "", false
			}
			return strings.TrimSpace(m[1]) + ", " + strings.TrimSpace(m[2]), true
		},
	}
}

// ColonSplitRule returns the trimmed remainder after the first colon.
func ColonSplitRule() Rule {
	return Rule{
		Name: RuleColonSplit,
		Match: func(line string) (string, bool) {
			_, rest, found := strings.Cut(line, ":")
			if !found {
				return "", false
			}
			return strings.TrimSpace(rest), true
		},
	}
}
