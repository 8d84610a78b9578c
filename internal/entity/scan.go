package entity

import (
	"time"

	"github.com/google/uuid"
)

// Scan is one analysed image, as stored in history and returned to clients.
type Scan struct {
	ID          uuid.UUID `json:"id"`
	SourceName  string    `json:"source_name"`
	ImageBytes  int64     `json:"image_bytes"`
	Text        string    `json:"text"`
	Confidence  float32   `json:"confidence"`
	Provider    string    `json:"provider"`
	Synthetic   bool      `json:"synthetic"`
	Language    string    `json:"language"`
	Explanation string    `json:"explanation"`
	// ExplanationSource is "answer-service" or "heuristic".
	ExplanationSource string        `json:"explanation_source"`
	Lines             int           `json:"lines"`
	Functions         int           `json:"functions"`
	Loops             int           `json:"loops"`
	Conditions        int           `json:"conditions"`
	Complexity        string        `json:"complexity"`
	Suggestions       []string      `json:"suggestions"`
	Attempts          []Attempt     `json:"attempts,omitempty"`
	Duration          time.Duration `json:"duration_ns"`
	CreatedAt         time.Time     `json:"created_at"`
}

// Attempt is a provider call made while producing the scan.
type Attempt struct {
	Provider  string `json:"provider"`
	Error     string `json:"error,omitempty"`
	Kind      string `json:"kind,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}
