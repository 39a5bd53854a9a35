package domain

import "time"

// Page is the extracted text of one PDF page. Numbers are 1-based.
type Page struct {
	Number int    `json:"page"`
	Text   string `json:"text"`
}

type Chapter struct {
	Number string `json:"number"`
	Name   string `json:"name"`
	Page   int    `json:"page"`
	Line   int    `json:"line"`
}

type Concept struct {
	Name string `json:"name"`
}

type Formula struct {
	Expression string `json:"expression"`
}

// PageFacts groups the structured records extracted from one page.
type PageFacts struct {
	Chapter   Chapter  `json:"chapter"`
	Concepts  []string `json:"concepts"`
	Formulas  []string `json:"formulas"`
	Reactions []string `json:"reactions"`
}

func (f PageFacts) Valid() bool {
	return len(f.Concepts) > 0 || len(f.Formulas) > 0
}

// FactIntent is a question template resolved by a fixed graph lookup.
type FactIntent struct {
	Name     string   `yaml:"name" json:"name"`
	Triggers []string `yaml:"triggers" json:"triggers"`
	Concept  string   `yaml:"concept" json:"concept"`
	Relation string   `yaml:"relation" json:"relation"`
}

const (
	RelationHasFormula = "HAS_FORMULA"
	RelationBelongsTo  = "BELONGS_TO"
)

// ManualFact links a concept to its chapter and formula explicitly.
type ManualFact struct {
	ChapterNumber string `yaml:"chapter_number" json:"chapter_number,omitempty"`
	Chapter       string `yaml:"chapter" json:"chapter"`
	Concept       string `yaml:"concept" json:"concept"`
	Formula       string `yaml:"formula" json:"formula,omitempty"`
}

type GraphIngestReport struct {
	Chapters       int      `json:"chapters"`
	Concepts       int      `json:"concepts"`
	Formulas       int      `json:"formulas"`
	Reactions      int      `json:"reactions"`
	PagesAttached  int      `json:"pages_attached"`
	PagesSkipped   int      `json:"pages_skipped"`
	ChapterErrors  int      `json:"chapter_errors"`
	PageErrors     int      `json:"page_errors"`
	FailureDetails []string `json:"failure_details,omitempty"`
}

const maxFailureDetails = 20

// AddFailure records a failure detail, keeping only the first few.
func (r *GraphIngestReport) AddFailure(detail string) {
	if len(r.FailureDetails) >= maxFailureDetails {
		return
	}
	r.FailureDetails = append(r.FailureDetails, detail)
}

type TextIngestReport struct {
	Pages    int `json:"pages"`
	Passages int `json:"passages"`
}

type IngestRunStatus string

const (
	RunStatusQueued    IngestRunStatus = "queued"
	RunStatusRunning   IngestRunStatus = "running"
	RunStatusSucceeded IngestRunStatus = "succeeded"
	RunStatusFailed    IngestRunStatus = "failed"
)

// IngestRequest asks the worker to (re)build the stores from one source PDF.
type IngestRequest struct {
	RunID     string `json:"run_id"`
	SourceKey string `json:"source_key"`
	SkipGraph bool   `json:"skip_graph,omitempty"`
	SkipText  bool   `json:"skip_text,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at,omitempty"`
}

type IngestRun struct {
	ID           string          `json:"id"`
	SourceKey    string          `json:"source_key"`
	Status       IngestRunStatus `json:"status"`
	Chapters     int             `json:"chapters"`
	Concepts     int             `json:"concepts"`
	Formulas     int             `json:"formulas"`
	Passages     int             `json:"passages"`
	PagesSkipped int             `json:"pages_skipped"`
	Error        string          `json:"error,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
}
