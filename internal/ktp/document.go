package ktp

import "strings"

// Document is the tokenized OCR output of one image: an ordered, read-only
// sequence of lines. Empty lines are kept and nothing is trimmed.
type Document struct {
	lines []string
}

// Tokenize splits raw OCR text on '\n'.
func Tokenize(raw string) Document {
	return Document{lines: strings.Split(raw, "\n")}
}

// NewDocument builds a Document from already split lines. The slice is copied.
func NewDocument(lines []string) Document {
	cp := make([]string, len(lines))
	copy(cp, lines)
	return Document{lines: cp}
}

func (d Document) Len() int { return len(d.lines) }

func (d Document) Line(i int) string { return d.lines[i] }

// Lines returns a copy of the document lines.
func (d Document) Lines() []string {
	cp := make([]string, len(d.lines))
	copy(cp, d.lines)
	return cp
}

// Text joins the lines back with '\n'.
func (d Document) Text() string {
	return strings.Join(d.lines, "\n")
}
