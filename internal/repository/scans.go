package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/codesnap/internal/entity"
)

// DefaultListLimit caps List when the filter leaves Limit unset.
const DefaultListLimit = 100

// ListFilter narrows a history listing. From and To are inclusive.
type ListFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

func (f ListFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

func (f ListFilter) match(t time.Time) bool {
	if f.From != nil && t.Before(*f.From) {
		return false
	}
	if f.To != nil && t.After(*f.To) {
		return false
	}
	return true
}

// ScanRepository persists analysed scans. List returns newest first.
type ScanRepository interface {
	Save(ctx context.Context, s *entity.Scan) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Scan, error)
	List(ctx context.Context, filter ListFilter) ([]*entity.Scan, error)
}

// Store is a ScanRepository backed by an open database handle.
type Store interface {
	ScanRepository
	Ping(ctx context.Context) error
	Close() error
	Backend() string
}

// prepare fills the id and timestamp of a scan that has not been saved yet.
func prepare(s *entity.Scan) error {
	if s == nil {
		return fmt.Errorf("nil scan")
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return nil
}

// record is the flattened row shared by the SQL backends.
type record struct {
	id                string
	sourceName        string
	imageBytes        int64
	text              string
	confidence        float32
	provider          string
	synthetic         bool
	language          string
	explanation       string
	explanationSource string
	lines             int
	functions         int
	loops             int
	conditions        int
	complexity        string
	suggestions       string
	attempts          string
	durationMS        int64
	createdAt         time.Time
}

func toRecord(s *entity.Scan) (record, error) {
	sugg, err := json.Marshal(nonNil(s.Suggestions))
	if err != nil {
		return record{}, fmt.Errorf("encode suggestions: %w", err)
	}
	att, err := json.Marshal(s.Attempts)
	if err != nil {
		return record{}, fmt.Errorf("encode attempts: %w", err)
	}
	return record{
		id:                s.ID.String(),
		sourceName:        s.SourceName,
		imageBytes:        s.ImageBytes,
		text:              s.Text,
		confidence:        s.Confidence,
		provider:          s.Provider,
		synthetic:         s.Synthetic,
		language:          s.Language,
		explanation:       s.Explanation,
		explanationSource: s.ExplanationSource,
		lines:             s.Lines,
		functions:         s.Functions,
		loops:             s.Loops,
		conditions:        s.Conditions,
		complexity:        s.Complexity,
		suggestions:       string(sugg),
		attempts:          string(att),
		durationMS:        s.Duration.Milliseconds(),
		createdAt:         s.CreatedAt.UTC(),
	}, nil
}

func (r record) toScan() (*entity.Scan, error) {
	id, err := uuid.Parse(r.id)
	if err != nil {
		return nil, fmt.Errorf("parse scan id %q: %w", r.id, err)
	}
	s := &entity.Scan{
		ID:                id,
		SourceName:        r.sourceName,
		ImageBytes:        r.imageBytes,
		Text:              r.text,
		Confidence:        r.confidence,
		Provider:          r.provider,
		Synthetic:         r.synthetic,
		Language:          r.language,
		Explanation:       r.explanation,
		ExplanationSource: r.explanationSource,
		Lines:             r.lines,
		Functions:         r.functions,
		Loops:             r.loops,
		Conditions:        r.conditions,
		Complexity:        r.complexity,
		Duration:          time.Duration(r.durationMS) * time.Millisecond,
		CreatedAt:         r.createdAt.UTC(),
	}
	if r.suggestions != "" {
		if err := json.Unmarshal([]byte(r.suggestions), &s.Suggestions); err != nil {
			return nil, fmt.Errorf("decode suggestions: %w", err)
		}
	}
	if r.attempts != "" && r.attempts != "null" {
		if err := json.Unmarshal([]byte(r.attempts), &s.Attempts); err != nil {
			return nil, fmt.Errorf("decode attempts: %w", err)
		}
	}
	s.Suggestions = nonNil(s.Suggestions)
	return s, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
