package ocr

import (
	"regexp"
	"strings"
)

var (
	reNIK    = regexp.MustCompile(`\b\d{16}\b`)
	reDate   = regexp.MustCompile(`\b\d{2}-\d{2}-\d{4}\b`)
	reLabels = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bnik\b`),
		regexp.MustCompile(`(?i)\bnama\b`),
		regexp.MustCompile(`(?i)\balamat\b`),
		regexp.MustCompile(`(?i)\bagama\b`),
		regexp.MustCompile(`(?i)\bpekerjaan\b`),
		regexp.MustCompile(`(?i)\bkecamatan\b`),
		regexp.MustCompile(`(?i)\bjenis kelamin\b`),
		regexp.MustCompile(`(?i)\bkewarganegaraan\b`),
	}
)

// TextConfidence is a naive 0..1 score of how much txt looks like an e-KTP
// read: printed labels seen, a 16-digit NIK, a DD-MM-YYYY date.
func TextConfidence(txt string) float32 {
	if strings.TrimSpace(txt) == "" {
		return 0
	}
	score := float32(0.1) // base
	if reNIK.MatchString(txt) {
		score += 0.2
	}
	if reDate.MatchString(txt) {
		score += 0.1
	}
	var seen int
	for _, re := range reLabels {
		if re.MatchString(txt) {
			seen++
		}
	}
	score += 0.6 * float32(seen) / float32(len(reLabels))
	if score > 1.0 {
		score = 1.0
	}
	return score
}
