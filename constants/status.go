package constants

// ComplexityLevel is the coarse label produced by complexity scoring.
type ComplexityLevel string

// Stable values (stored as-is in the scans table).
const (
	ComplexityLow    ComplexityLevel = "Low"
	ComplexityMedium ComplexityLevel = "Medium"
	ComplexityHigh   ComplexityLevel = "High"
)

// Language names reported by the heuristic detector.
const (
	LangPython     = "Python"
	LangJavaScript = "JavaScript"
	LangJava       = "Java"
	LangCPP        = "C++"
	LangRust       = "Rust"
	LangCSharp     = "C#"
	LangGo         = "Go"
	LangPHP        = "PHP"
	LangUnknown    = "Unknown"
)
