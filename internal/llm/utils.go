package llm

import (
	"encoding/base64"
	"strings"
)

// DataURL encodes image bytes for an image_url content part.
func DataURL(mimeType string, b []byte) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(b)
}

// StripCodeFences removes a single surrounding markdown fence (```lang ... ```)
// that chat models sometimes add despite being asked for plain code.
func StripCodeFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") || !strings.HasSuffix(t, "```") || len(t) < 6 {
		return s
	}
	t = strings.TrimSuffix(t, "```")
	nl := strings.IndexByte(t, '\n')
	if nl < 0 {
		return s
	}
	return t[nl+1:]
}
