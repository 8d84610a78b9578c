package analysis

import "strings"

// Suggestions returns general improvement tips; never nil.
func Suggestions(code string) []string {
	out := []string{}
	if len(code) < 50 {
		out = append(out, "Consider adding comments to explain the code purpose")
	}
	if !strings.Contains(code, "//") && !strings.Contains(code, "#") {
		out = append(out, "Add comments to improve code readability")
	}
	if strings.Contains(code, "TODO") || strings.Contains(code, "FIXME") {
		out = append(out, "Address TODO/FIXME comments in the code")
	}
	return out
}
