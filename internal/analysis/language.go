package analysis

import (
	"strings"

	"github.com/joseph-ayodele/codesnap/constants"
)

type languageRule struct {
	name  string
	match func(code string) bool
}

// languageRules are tried in order; the first match wins. The predicates are
// substring checks, so they can misfire (Rust using `let x` reads as JavaScript).
var languageRules = []languageRule{
	{constants.LangPython, func(c string) bool {
		return has(c, "def ") || has(c, "import ") || has(c, "print(") ||
			(has(c, "class ") && has(c, ":")) || has(c, "self")
	}},
	{constants.LangJavaScript, func(c string) bool {
		return has(c, "function ") || has(c, "console.log") || has(c, "let ") ||
			has(c, "const ") || (has(c, "var ") && has(c, ";"))
	}},
	{constants.LangJava, func(c string) bool {
		return has(c, "public class ") || has(c, "System.out.println") ||
			has(c, "public static void main") || has(c, "String[] args")
	}},
	{constants.LangCPP, func(c string) bool {
		return has(c, "#include") || has(c, "cout <<") ||
			has(c, "using namespace std") || has(c, "int main()")
	}},
	{constants.LangRust, func(c string) bool {
		return (has(c, "fn ") && has(c, "println!")) || has(c, "let mut")
	}},
	{constants.LangCSharp, func(c string) bool {
		return has(c, "using System") || has(c, "Console.WriteLine")
	}},
	{constants.LangGo, func(c string) bool {
		return has(c, "package main") || has(c, "func main()") || has(c, "fmt.Println")
	}},
	{constants.LangPHP, func(c string) bool {
		return has(c, "<?php") || (has(c, "echo ") && has(c, "$"))
	}},
}

// DetectLanguage guesses the language of code from keyword hints.
func DetectLanguage(code string) string {
	for _, r := range languageRules {
		if r.match(code) {
			return r.name
		}
	}
	return constants.LangUnknown
}

func has(s, sub string) bool { return strings.Contains(s, sub) }
