package constants

// Provider names as they appear in logs, results and the scans table.
const (
	ProviderOpenAIVision = "openai-vision"
	ProviderAzureVision  = "azure-vision"
	ProviderOCRSpace     = "ocr-space"
	ProviderTesseract    = "tesseract"
	ProviderSynthetic    = "synthetic"
)

// DefaultProviderOrder is the fallback priority, most trusted first.
var DefaultProviderOrder = []string{
	ProviderOpenAIVision,
	ProviderAzureVision,
	ProviderOCRSpace,
	ProviderTesseract,
}

// ProviderConfidence is the confidence each remote provider reports on success.
// Tesseract reports its own mean word confidence, capped at this value.
// Values must not increase along DefaultProviderOrder.
var ProviderConfidence = map[string]float32{
	ProviderOpenAIVision: 0.95,
	ProviderAzureVision:  0.88,
	ProviderOCRSpace:     0.85,
	ProviderTesseract:    0.80,
}

// Explanation sources recorded on each scan.
const (
	ExplanationSourceAnswer    = "answer-service"
	ExplanationSourceHeuristic = "heuristic"
)
