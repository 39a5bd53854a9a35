package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

type graphCall struct {
	query  string
	params map[string]any
}

type graphStoreFake struct {
	mu    sync.Mutex
	calls []graphCall
	rows  []map[string]any
	err   error
	// failOn fails any query whose params mention the given value.
	failOn string
}

func (f *graphStoreFake) Run(_ context.Context, query string, params map[string]any) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, graphCall{query: query, params: params})
	if f.err != nil {
		return nil, f.err
	}
	if f.failOn != "" {
		for _, v := range params {
			if s, ok := v.(string); ok && s == f.failOn {
				return nil, errors.New("constraint violation")
			}
		}
	}
	return f.rows, nil
}

func (f *graphStoreFake) queriesContaining(fragment string) []graphCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []graphCall
	for _, c := range f.calls {
		if strings.Contains(c.query, fragment) {
			out = append(out, c)
		}
	}
	return out
}

type embedderFake struct {
	mu         sync.Mutex
	err        error
	batchSizes []int
	queries    int
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.batchSizes = append(f.batchSizes, len(texts))
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type vectorStoreFake struct {
	mu         sync.Mutex
	results    []domain.Passage
	err        error
	searches   int
	resetSize  int
	indexed    []domain.Passage
	indexedVec int
	onReset    func()
}

func (f *vectorStoreFake) Reset(_ context.Context, vectorSize int) error {
	f.resetSize = vectorSize
	if f.onReset != nil {
		f.onReset()
	}
	return nil
}

func (f *vectorStoreFake) IndexPassages(_ context.Context, passages []domain.Passage, vectors [][]float32) error {
	f.indexed = append(f.indexed, passages...)
	f.indexedVec += len(vectors)
	return nil
}

func (f *vectorStoreFake) Search(context.Context, []float32, int) ([]domain.Passage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type lexicalIndexFake struct {
	mu       sync.Mutex
	results  []domain.Passage
	err      error
	searches int
	replaced []domain.Passage
}

func (f *lexicalIndexFake) Search(context.Context, string, int) ([]domain.Passage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *lexicalIndexFake) Replace(_ context.Context, passages []domain.Passage) error {
	f.replaced = passages
	return nil
}

type completerFake struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
}

func (f *completerFake) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *completerFake) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type webSearcherFake struct {
	name    string
	results []string
	err     error
	calls   int
}

func (f *webSearcherFake) Name() string { return f.name }

func (f *webSearcherFake) Search(context.Context, string, int) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type chunkerFake struct{}

// Split cuts text into halves so tests can count passages.
func (chunkerFake) Split(text string) []string {
	mid := len(text) / 2
	return []string{text[:mid], text[mid:]}
}

type pageReaderFake struct {
	pages []domain.Page
	err   error
	size  int64
}

func (f *pageReaderFake) ReadPages(_ context.Context, _ io.ReaderAt, size int64) ([]domain.Page, error) {
	f.size = size
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

type storageFake struct {
	mu    sync.Mutex
	files map[string]string
	err   error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.files == nil {
		f.files = make(map[string]string)
	}
	f.files[key] = string(raw)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.files[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

type queueFake struct {
	published []domain.IngestRequest
	err       error
}

func (f *queueFake) PublishIngestRequest(_ context.Context, req domain.IngestRequest) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, req)
	return nil
}

func (f *queueFake) SubscribeIngestRequests(context.Context, func(context.Context, domain.IngestRequest) error) error {
	return errors.New("not implemented")
}

type runRepoFake struct {
	mu       sync.Mutex
	runs     map[string]domain.IngestRun
	lockErr  error
	locked   bool
	unlocked bool
}

func (f *runRepoFake) TryLock(context.Context) (func(), error) {
	if f.lockErr != nil {
		return nil, f.lockErr
	}
	f.locked = true
	return func() { f.unlocked = true }, nil
}

func (f *runRepoFake) Create(_ context.Context, run *domain.IngestRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runs == nil {
		f.runs = make(map[string]domain.IngestRun)
	}
	f.runs[run.ID] = *run
	return nil
}

func (f *runRepoFake) Finish(ctx context.Context, run *domain.IngestRun) error {
	return f.Create(ctx, run)
}

func (f *runRepoFake) GetByID(_ context.Context, id string) (*domain.IngestRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return &run, nil
}
