package server

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/codesnap/internal/analysis"
	"github.com/joseph-ayodele/codesnap/internal/entity"
	"github.com/joseph-ayodele/codesnap/internal/extract"
)

func resultToStruct(r extract.Result) (*structpb.Struct, error) {
	attempts := make([]any, 0, len(r.Attempts))
	for _, a := range r.Attempts {
		attempts = append(attempts, map[string]any{
			"provider":   a.Provider,
			"error":      a.Err,
			"kind":       string(a.Kind),
			"elapsed_ms": a.Elapsed.Milliseconds(),
		})
	}
	return structpb.NewStruct(map[string]any{
		"text":        r.Text,
		"confidence":  float64(r.Confidence),
		"provider":    r.Provider,
		"synthetic":   r.Synthetic,
		"attempts":    attempts,
		"duration_ms": r.Duration.Milliseconds(),
	})
}

func complexityToStruct(c analysis.Complexity) (*structpb.Struct, error) {
	return structpb.NewStruct(complexityMap(c))
}

func complexityMap(c analysis.Complexity) map[string]any {
	return map[string]any{
		"lines":      c.Lines,
		"functions":  c.Functions,
		"loops":      c.Loops,
		"conditions": c.Conditions,
		"complexity": string(c.Level),
	}
}

func scanMap(s entity.Scan) map[string]any {
	suggestions := make([]any, len(s.Suggestions))
	for i, v := range s.Suggestions {
		suggestions[i] = v
	}
	attempts := make([]any, 0, len(s.Attempts))
	for _, a := range s.Attempts {
		attempts = append(attempts, map[string]any{
			"provider":   a.Provider,
			"error":      a.Error,
			"kind":       a.Kind,
			"elapsed_ms": a.ElapsedMS,
		})
	}
	return map[string]any{
		"id":                 s.ID.String(),
		"source_name":        s.SourceName,
		"image_bytes":        s.ImageBytes,
		"text":               s.Text,
		"confidence":         float64(s.Confidence),
		"provider":           s.Provider,
		"synthetic":          s.Synthetic,
		"language":           s.Language,
		"explanation":        s.Explanation,
		"explanation_source": s.ExplanationSource,
		"lines":              s.Lines,
		"functions":          s.Functions,
		"loops":              s.Loops,
		"conditions":         s.Conditions,
		"complexity":         s.Complexity,
		"suggestions":        suggestions,
		"attempts":           attempts,
		"duration_ms":        s.Duration.Milliseconds(),
		"created_at":         s.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func scanToStruct(s entity.Scan) (*structpb.Struct, error) {
	return structpb.NewStruct(scanMap(s))
}

func scansToStruct(scans []*entity.Scan) (*structpb.Struct, error) {
	list := make([]any, 0, len(scans))
	for _, s := range scans {
		list = append(list, scanMap(*s))
	}
	return structpb.NewStruct(map[string]any{"scans": list, "count": len(scans)})
}
