// Package analysis holds the offline code heuristics: language detection,
// syntax-issue checks, complexity scoring and improvement tips. Everything here
// is pure and total over arbitrary input.
package analysis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/codesnap/constants"
)

// Issue is one suspected problem, optionally with a suggested fix.
type Issue struct {
	Message string
	Fix     string
}

// Report is the result of Analyze.
type Report struct {
	Language string
	Issues   []Issue
}

type check func(code string, lines []string) []Issue

var (
	rePyDef        = regexp.MustCompile(`(?m)^\s*def\s+\w+\s*\([^)]*\)[ \t]*$`)
	rePyClass      = regexp.MustCompile(`(?m)^\s*class\s+\w+(?:\s*\([^)]*\))?[ \t]*$`)
	rePyControl    = regexp.MustCompile(`(?m)^\s*(?:if|elif|for|while)\b[^:\n]*$`)
	rePyElse       = regexp.MustCompile(`(?m)^\s*else[ \t]*$`)
	rePyPrint      = regexp.MustCompile(`(?m)^\s*print[ \t]+[^(\s=]`)
	rePyBlockStart = regexp.MustCompile(`^\s*(?:def|class|if|elif|else|for|while|try|except|finally|with)\b.*:\s*$`)

	reJSFuncNoBrace = regexp.MustCompile(`(?m)function\s+\w+\s*\([^)]*\)[ \t]*$`)
	reJSKeywordLine = regexp.MustCompile(`\b(?:for|if|while|else|do|switch|case|default)\b`)

	reJavaPrintln  = regexp.MustCompile(`(?m)System\.out\.println\([^\n]*\)[ \t]*$`)
	reJavaMainOpen = regexp.MustCompile(`(?m)public\s+static\s+void\s+main[^{\n]*$`)

	reCppCout = regexp.MustCompile(`(?m)cout\s*<<[^\n]*[^;\s][ \t]*$`)

	reRustPrintln = regexp.MustCompile(`(?m)println!\s*\([^\n]*\)[ \t]*$`)
)

var languageChecks = map[string][]check{
	constants.LangPython:     {pythonHeaders, pythonIndentation, pythonPrint},
	constants.LangJavaScript: {jsFunctionBrace, jsSemicolons, braceBalance},
	constants.LangJava:       {javaChecks},
	constants.LangCPP:        {cppChecks},
	constants.LangRust:       {rustChecks},
}

// Analyze detects the language and runs its syntax checks.
func Analyze(code string) Report {
	r := Report{Language: DetectLanguage(code)}
	lines := strings.Split(code, "\n")
	for _, c := range languageChecks[r.Language] {
		r.Issues = append(r.Issues, c(code, lines)...)
	}
	return r
}

// HeuristicExplain renders the offline analysis of code as text.
func HeuristicExplain(code string) string {
	return Analyze(code).String()
}

// Fixes returns the distinct quick fixes attached to the issues, in order.
func (r Report) Fixes() []string {
	var out []string
	seen := make(map[string]bool)
	for _, is := range r.Issues {
		if is.Fix == "" || seen[is.Fix] {
			continue
		}
		seen[is.Fix] = true
		out = append(out, is.Fix)
	}
	return out
}

func (r Report) String() string {
	var b strings.Builder
	b.WriteString("Static Code Analysis:\n\n")
	fmt.Fprintf(&b, "Language: %s\n\n", r.Language)

	if len(r.Issues) > 0 {
		fmt.Fprintf(&b, "Issues Found (%d):\n", len(r.Issues))
		for i, is := range r.Issues {
			fmt.Fprintf(&b, "%d. %s\n", i+1, is.Message)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("No obvious syntax errors detected.\n\n")
	}

	if fixes := r.Fixes(); len(fixes) > 0 {
		b.WriteString("Quick Fixes:\n")
		for i, f := range fixes {
			fmt.Fprintf(&b, "%d. %s\n", i+1, f)
		}
		b.WriteString("\n")
	}

	b.WriteString("General Suggestions:\n")
	fmt.Fprintf(&b, "• Use an IDE with syntax highlighting for %s\n", r.Language)
	b.WriteString("• Enable auto-formatting and linting\n")
	b.WriteString("• Test your code incrementally\n")
	b.WriteString("• Check language documentation for syntax rules")
	return b.String()
}

func pythonHeaders(code string, _ []string) []Issue {
	var out []Issue
	if rePyDef.MatchString(code) {
		out = append(out, Issue{
			Message: "Missing colon (:) after function definition",
			Fix:     "Add colon after function definition: def function_name():",
		})
	}
	if rePyClass.MatchString(code) {
		out = append(out, Issue{
			Message: "Missing colon (:) after class definition",
			Fix:     "Add colon after class definition: class Name:",
		})
	}
	if rePyControl.MatchString(code) || rePyElse.MatchString(code) {
		out = append(out, Issue{
			Message: "Missing colon (:) after control statement",
			Fix:     "End if/elif/else/for/while lines with a colon",
		})
	}
	return out
}

// pythonIndentation flags a block opener whose next non-blank line is not indented deeper.
func pythonIndentation(_ string, lines []string) []Issue {
	var out []Issue
	for i, ln := range lines {
		if !rePyBlockStart.MatchString(ln) || isInlineBlock(ln) {
			continue
		}
		j := i + 1
		for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
			j++
		}
		if j == len(lines) {
			out = append(out, Issue{Message: fmt.Sprintf("Expected an indented block after line %d", i+1)})
			continue
		}
		if indentOf(lines[j]) <= indentOf(ln) {
			out = append(out, Issue{
				Message: fmt.Sprintf("Possible indentation error on line %d", j+1),
				Fix:     "Indent block bodies consistently (4 spaces per level)",
			})
		}
	}
	return out
}

// isInlineBlock reports "if x: pass" style lines whose body follows the colon.
func isInlineBlock(ln string) bool {
	t := strings.TrimSpace(ln)
	idx := strings.Index(t, ":")
	return idx >= 0 && idx < len(t)-1
}

func pythonPrint(code string, _ []string) []Issue {
	if !rePyPrint.MatchString(code) {
		return nil
	}
	return []Issue{{
		Message: "print statement should use parentheses: print() instead of print",
		Fix:     `Use print("text") instead of print "text"`,
	}}
}

func jsFunctionBrace(code string, _ []string) []Issue {
	if !reJSFuncNoBrace.MatchString(code) {
		return nil
	}
	return []Issue{{
		Message: "Missing opening brace { after function declaration",
		Fix:     "Add opening brace after function: function name() {",
	}}
}

func jsSemicolons(_ string, lines []string) []Issue {
	var out []Issue
	for i, ln := range lines {
		t := strings.TrimSpace(ln)
		if t == "" || strings.HasPrefix(t, "//") || strings.HasPrefix(t, "/*") || strings.HasPrefix(t, "*") {
			continue
		}
		if strings.HasSuffix(t, ";") || strings.HasSuffix(t, "{") || strings.HasSuffix(t, "}") ||
			strings.HasSuffix(t, ",") || strings.HasSuffix(t, "(") || strings.HasSuffix(t, "[") ||
			strings.HasSuffix(t, ":") {
			continue
		}
		if reJSKeywordLine.MatchString(t) {
			continue
		}
		out = append(out, Issue{
			Message: fmt.Sprintf("Missing semicolon at end of line %d", i+1),
			Fix:     "Terminate statements with a semicolon (;)",
		})
	}
	return out
}

func braceBalance(code string, _ []string) []Issue {
	if strings.Count(code, "{") == strings.Count(code, "}") {
		return nil
	}
	return []Issue{{Message: "Mismatched braces {} - check opening and closing braces"}}
}

func javaChecks(code string, _ []string) []Issue {
	var out []Issue
	if reJavaPrintln.MatchString(code) {
		out = append(out, Issue{
			Message: "Missing semicolon after System.out.println statement",
			Fix:     `Add semicolon: System.out.println("text");`,
		})
	}
	if reJavaMainOpen.MatchString(code) {
		out = append(out, Issue{Message: "Missing opening brace after main method declaration"})
	}
	return out
}

func cppChecks(code string, _ []string) []Issue {
	var out []Issue
	if reCppCout.MatchString(code) {
		out = append(out, Issue{
			Message: "Missing semicolon after cout statement",
			Fix:     `Add semicolon: cout << "text" << endl;`,
		})
	}
	if strings.Contains(code, "int main()") && !strings.Contains(code, "return") {
		out = append(out, Issue{
			Message: "Missing return statement in main function",
			Fix:     "Add: return 0;",
		})
	}
	return out
}

func rustChecks(code string, _ []string) []Issue {
	if !reRustPrintln.MatchString(code) {
		return nil
	}
	return []Issue{{
		Message: "Missing semicolon after println! macro",
		Fix:     `Add semicolon: println!("text");`,
	}}
}

func indentOf(ln string) int {
	n := 0
	for _, r := range ln {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}
