package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/textbook-rag/internal/config"
	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

type answererFake struct {
	allowWeb bool
	question string
}

func (f *answererFake) Answer(_ context.Context, question string, allowWeb bool) (*domain.Answer, error) {
	f.question = question
	f.allowWeb = allowWeb
	return &domain.Answer{Text: "Fe → Fe²⁺ + 2e⁻", Route: domain.RouteFact}, nil
}

type storageFake struct {
	saved map[string]string
}

func (s *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if s.saved == nil {
		s.saved = make(map[string]string)
	}
	s.saved[key] = string(raw)
	return nil
}

func (s *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

type runnerFake struct {
	req domain.IngestRequest
}

func (r *runnerFake) Run(_ context.Context, req domain.IngestRequest) (*domain.IngestRun, error) {
	r.req = req
	return &domain.IngestRun{ID: req.RunID, Status: domain.RunStatusSucceeded, Chapters: 2, Passages: 14}, nil
}

type factsFake struct {
	added  []domain.ManualFact
	seeded int
}

func (f *factsFake) AddFact(_ context.Context, fact domain.ManualFact) error {
	f.added = append(f.added, fact)
	return nil
}

func (f *factsFake) Seed(_ context.Context, facts []domain.ManualFact) (int, error) {
	f.seeded += len(facts)
	return len(facts), nil
}

type harness struct {
	answerer *answererFake
	storage  *storageFake
	runner   *runnerFake
	facts    *factsFake
	catalog  config.Catalog
	needs    []Need
	closed   int
}

func newHarness() *harness {
	return &harness{
		answerer: &answererFake{},
		storage:  &storageFake{},
		runner:   &runnerFake{},
		facts:    &factsFake{},
		catalog:  config.DefaultCatalog(),
	}
}

func (h *harness) load(_ context.Context, need Need) (*Services, error) {
	h.needs = append(h.needs, need)
	return &Services{
		Catalog:  h.catalog,
		Answerer: h.answerer,
		Sources:  h.storage,
		Runner:   h.runner,
		Facts:    h.facts,
		Close:    func() { h.closed++ },
	}, nil
}

func (h *harness) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(h.load)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestAskCommand(t *testing.T) {
	h := newHarness()
	out, err := h.execute(t, "ask", "--web", "What", "is", "rusting?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if out != "[FACT] Fe → Fe²⁺ + 2e⁻\n" {
		t.Fatalf("unexpected output %q", out)
	}
	if h.answerer.question != "What is rusting?" || !h.answerer.allowWeb {
		t.Fatalf("unexpected call %q web=%v", h.answerer.question, h.answerer.allowWeb)
	}
	if len(h.needs) != 1 || h.needs[0] != NeedQuery || h.closed != 1 {
		t.Fatalf("unexpected loader usage needs=%v closed=%d", h.needs, h.closed)
	}
}

func TestAskCommandJSON(t *testing.T) {
	h := newHarness()
	out, err := h.execute(t, "ask", "--json", "why")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !strings.Contains(out, `"route": "FACT"`) {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestIngestCommandStoresAndRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "science.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	h := newHarness()
	out, err := h.execute(t, "ingest", "--skip-graph", path)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	req := h.runner.req
	if !req.SkipGraph || req.SkipText {
		t.Fatalf("flags not forwarded: %+v", req)
	}
	if req.SourceKey != req.RunID+"_science.pdf" || h.storage.saved[req.SourceKey] != "%PDF-1.4" {
		t.Fatalf("source not stored under run key: %+v %v", req, h.storage.saved)
	}
	if !strings.Contains(out, "succeeded") || !strings.Contains(out, "passages: 14") {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestIngestCommandRejectsNonPDF(t *testing.T) {
	h := newHarness()
	if _, err := h.execute(t, "ingest", "notes.txt"); err == nil {
		t.Fatalf("expected error for non-pdf source")
	}
	if len(h.needs) != 0 {
		t.Fatalf("loader must not be called")
	}
}

func TestChaptersCommandSortsNumerically(t *testing.T) {
	h := newHarness()
	h.catalog.Chapters = map[string]string{
		"10": "Light - Reflection and Refraction",
		"2":  "Acids, Bases and Salts",
		"1":  "Chemical Reactions and Equations",
	}
	out, err := h.execute(t, "chapters")
	if err != nil {
		t.Fatalf("chapters: %v", err)
	}
	want := "  1  Chemical Reactions and Equations\n" +
		"  2  Acids, Bases and Salts\n" +
		" 10  Light - Reflection and Refraction\n"
	if out != want {
		t.Fatalf("chapters not in numeric order:\n%s", out)
	}
	if h.needs[0] != NeedCatalog {
		t.Fatalf("chapters should only need the catalog")
	}
}

func TestGraphAddFactCommand(t *testing.T) {
	h := newHarness()
	_, err := h.execute(t, "graph", "add-fact",
		"--chapter-number", "3",
		"--chapter", "Metals and Non-metals",
		"--concept", "Rusting of Iron",
		"--formula", "Fe → Fe²⁺ + 2e⁻",
	)
	if err != nil {
		t.Fatalf("add-fact: %v", err)
	}
	if len(h.facts.added) != 1 || h.facts.added[0].Concept != "Rusting of Iron" || h.facts.added[0].ChapterNumber != "3" {
		t.Fatalf("unexpected facts %+v", h.facts.added)
	}

	if _, err := h.execute(t, "graph", "add-fact", "--chapter", "x"); err == nil {
		t.Fatalf("expected missing --concept to fail")
	}
}

func TestGraphSeedCommand(t *testing.T) {
	h := newHarness()
	out, err := h.execute(t, "graph", "seed")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	want := len(config.DefaultCatalog().Facts)
	if h.facts.seeded != want || !strings.Contains(out, "seeded") {
		t.Fatalf("seeded %d, want %d (%s)", h.facts.seeded, want, out)
	}
}
