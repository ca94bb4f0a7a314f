package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"scz-inmuebles/llm"
	"scz-inmuebles/models"
	"scz-inmuebles/utils"
)

func newTestLogger() *utils.Logger { return utils.NewNopLogger() }

func f64(v float64) *float64 { return &v }
func iptr(v int) *int        { return &v }

// fakeCompleter answers every prompt with the same text and records prompts.
type fakeCompleter struct {
	answer   string
	err      error
	fallback bool
	calls    atomic.Int64

	mu      sync.Mutex
	prompts []string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (llm.Completion, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.err != nil {
		return llm.Completion{}, f.err
	}
	return llm.Completion{Text: f.answer, Provider: "fake", Model: "m1", FallbackUsed: f.fallback}, nil
}

func (f *fakeCompleter) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

// memoryCache is an in-memory storage.CacheStore.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]models.ExtractedFields
	saves   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]models.ExtractedFields)}
}

func (m *memoryCache) Load(ctx context.Context) (map[string]models.ExtractedFields, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.ExtractedFields, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out, nil
}

func (m *memoryCache) Save(ctx context.Context, entries map[string]models.ExtractedFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	for k, v := range entries {
		m.entries[k] = v
	}
	return nil
}

// memoryStore is an in-memory storage.PropertyStore that can fail on demand.
type memoryStore struct {
	mu     sync.Mutex
	rows   map[string]*models.Property
	order  []string
	writes int
	failOn int // 1-based write call that fails, 0 never
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: make(map[string]*models.Property)}
}

func (m *memoryStore) Write(ctx context.Context, props []*models.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.failOn > 0 && m.writes == m.failOn {
		return errors.New("store down")
	}
	for _, p := range props {
		if _, ok := m.rows[p.ID]; !ok {
			m.order = append(m.order, p.ID)
		}
		cp := *p
		m.rows[p.ID] = &cp
	}
	return nil
}

func (m *memoryStore) FetchAll(ctx context.Context) ([]*models.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Property, 0, len(m.order))
	for _, id := range m.order {
		cp := *m.rows[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memoryStore) Close() error { return nil }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
