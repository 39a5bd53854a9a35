package domain

import "time"

// Passage is one retrieved chunk of textbook text.
type Passage struct {
	ID         string  `json:"id,omitempty"`
	Source     string  `json:"source"`
	Page       int     `json:"page"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// Fact is a single scalar value resolved by graph traversal for a named concept.
type Fact struct {
	Value   string `json:"value"`
	Concept string `json:"concept"`
	Intent  string `json:"intent"`
}

// EvidenceBundle aggregates everything retrieved for one question. It lives
// for one Answer call only.
type EvidenceBundle struct {
	Dense  []Passage
	Sparse []Passage
	Fact   *Fact
	Web    []string
}

type Answer struct {
	Text  string `json:"answer"`
	Route Route  `json:"route"`
}

// Refusal is the deterministic answer returned when no evidence is good enough.
const Refusal = "I don't know based on the textbook."

// FactProvenancePrefix marks answers that come straight from the graph store.
const FactProvenancePrefix = "[KG] "

// WebPlaceholderMarkers identify canned web snippets that carry no real
// search results. Such snippets are returned verbatim, never synthesized.
var WebPlaceholderMarkers = []string{
	"would need access to real-time web data",
	"requires checking recent",
	"Unable to retrieve current web information",
}

type FusionStrategy string

const (
	FusionConcat    FusionStrategy = "concat"
	FusionRRF       FusionStrategy = "rrf"
	FusionRRFRerank FusionStrategy = "rrf+rerank"
)

func (s FusionStrategy) Valid() bool {
	switch s {
	case FusionConcat, FusionRRF, FusionRRFRerank:
		return true
	default:
		return false
	}
}

// RetrievalLimits bounds every external call made while answering.
type RetrievalLimits struct {
	DenseTopK       int
	SparseTopK      int
	MinContextChars int
	Fusion          FusionStrategy
	RRFK            int
	RerankTopN      int
	WebMaxResults   int

	DenseTimeout  time.Duration
	SparseTimeout time.Duration
	LLMTimeout    time.Duration
	WebTimeout    time.Duration
}
