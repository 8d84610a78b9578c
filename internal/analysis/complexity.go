package analysis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/codesnap/constants"
)

var (
	reFunctions  = regexp.MustCompile(`\b(?:def\s+\w+|function\s+\w+)`)
	reLoops      = regexp.MustCompile(`\b(?:for|while)\s+`)
	reConditions = regexp.MustCompile(`\b(?:if\s+|elif\b|else\b)`)
)

// Complexity is a rough size/branching metric for a snippet.
type Complexity struct {
	Lines      int
	Functions  int
	Loops      int
	Conditions int
	Level      constants.ComplexityLevel
}

// Score counts non-blank lines, function definitions, loops and conditionals.
// Keyword matches are leftmost-first and non-overlapping, so "elif" counts once.
func Score(code string) Complexity {
	c := Complexity{
		Lines:      countNonBlank(code),
		Functions:  len(reFunctions.FindAllStringIndex(code, -1)),
		Loops:      len(reLoops.FindAllStringIndex(code, -1)),
		Conditions: len(reConditions.FindAllStringIndex(code, -1)),
	}
	switch total := c.Functions + c.Loops + c.Conditions; {
	case total > 5:
		c.Level = constants.ComplexityHigh
	case total > 2:
		c.Level = constants.ComplexityMedium
	default:
		c.Level = constants.ComplexityLow
	}
	return c
}

func (c Complexity) String() string {
	return fmt.Sprintf(`Code Metrics:
• Lines of code: %d
• Functions: %d
• Loops: %d
• Conditions: %d
• Estimated complexity: %s`, c.Lines, c.Functions, c.Loops, c.Conditions, c.Level)
}

func countNonBlank(code string) int {
	n := 0
	for _, ln := range strings.Split(code, "\n") {
		if strings.TrimSpace(ln) != "" {
			n++
		}
	}
	return n
}
