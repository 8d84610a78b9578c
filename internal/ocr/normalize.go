package ocr

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reLineBreaks = regexp.MustCompile(`\r\n?`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
)

// Normalize cleans provider output before it is shown or analysed:
// CRLF and lone CR become LF, trailing whitespace is stripped from every line,
// runs of two or more blank lines collapse to one, and the result is trimmed.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reLineBreaks.ReplaceAllString(s, "\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRightFunc(lines[i], unicode.IsSpace)
	}
	s = strings.Join(lines, "\n")
	// whitespace-only lines are empty now, so this sees every blank run
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
