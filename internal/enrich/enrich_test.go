package enrich

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/store"
)

type fakeAnalyzer struct {
	calls   atomic.Int32
	failFor map[string]bool
	active  atomic.Int32
	peak    atomic.Int32
}

func (f *fakeAnalyzer) Analyze(_ context.Context, job *jobs.Job) (*jobs.Analysis, error) {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if f.failFor[job.ID] {
		return nil, errors.New("model unavailable")
	}
	return &jobs.Analysis{RoleSummary: "summary " + job.ID, RequiredSkills: []string{"go"}}, nil
}

type memProgress struct {
	mu   sync.Mutex
	data map[string]map[string][]byte
}

func (m *memProgress) Put(_ context.Context, stage, id string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]map[string][]byte{}
	}
	if m.data[stage] == nil {
		m.data[stage] = map[string][]byte{}
	}
	m.data[stage][id] = payload
	return nil
}

func (m *memProgress) All(_ context.Context, stage string) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string][]byte{}
	for k, v := range m.data[stage] {
		out[k] = v
	}
	return out, nil
}

func makeJobs(n int) []*jobs.Job {
	list := make([]*jobs.Job, 0, n)
	for i := 0; i < n; i++ {
		list = append(list, &jobs.Job{ID: fmt.Sprintf("job-%d", i), Title: "Go Developer"})
	}
	return list
}

func TestAnalyzeToleratesPartialFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{failFor: map[string]bool{"job-2": true}}
	runner := New(&memProgress{}, Options{Concurrency: 3, RequestsPerSecond: 1000}, zap.NewNop())

	list := makeJobs(6)
	res, err := runner.Analyze(context.Background(), list, analyzer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Done != 5 || res.Failed != 1 || res.Resumed != 0 {
		t.Fatalf("unexpected result: %s", res)
	}
	if list[2].Analysis != nil {
		t.Fatalf("expected failed job to stay unanalyzed")
	}
	if list[0].Analysis == nil || list[0].Analysis.RoleSummary != "summary job-0" {
		t.Fatalf("unexpected analysis: %+v", list[0].Analysis)
	}
	if peak := analyzer.peak.Load(); peak > 3 {
		t.Fatalf("expected at most 3 concurrent calls, saw %d", peak)
	}
}

func TestAnalyzeResumesFromStore(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "progress.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	first := &fakeAnalyzer{failFor: map[string]bool{"job-1": true}}
	runner := New(db, Options{Concurrency: 2, RequestsPerSecond: 1000}, zap.NewNop())

	if _, err := runner.Analyze(ctx, makeJobs(3), first); err != nil {
		t.Fatalf("first run: %v", err)
	}

	second := &fakeAnalyzer{}
	list := makeJobs(3)
	res, err := runner.Analyze(ctx, list, second)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if res.Resumed != 2 || res.Done != 1 {
		t.Fatalf("expected 2 resumed and 1 done, got %s", res)
	}
	if second.calls.Load() != 1 {
		t.Fatalf("expected only the failed job to be retried, got %d calls", second.calls.Load())
	}
	for _, job := range list {
		if job.Analysis == nil {
			t.Fatalf("expected analysis for %s", job.ID)
		}
	}
}

func TestForceIgnoresProgress(t *testing.T) {
	progress := &memProgress{}
	ctx := context.Background()

	if _, err := New(progress, Options{RequestsPerSecond: 1000}, nil).Analyze(ctx, makeJobs(2), &fakeAnalyzer{}); err != nil {
		t.Fatal(err)
	}

	analyzer := &fakeAnalyzer{}
	res, err := New(progress, Options{RequestsPerSecond: 1000, Force: true}, nil).Analyze(ctx, makeJobs(2), analyzer)
	if err != nil {
		t.Fatal(err)
	}
	if res.Resumed != 0 || analyzer.calls.Load() != 2 {
		t.Fatalf("expected all jobs redone, got %s with %d calls", res, analyzer.calls.Load())
	}
}

func TestUnreadableProgressIsRedone(t *testing.T) {
	progress := &memProgress{}
	_ = progress.Put(context.Background(), StageAnalysis, "job-0", []byte("not json"))

	analyzer := &fakeAnalyzer{}
	res, err := New(progress, Options{RequestsPerSecond: 1000}, nil).Analyze(context.Background(), makeJobs(1), analyzer)
	if err != nil {
		t.Fatal(err)
	}
	if res.Done != 1 || res.Resumed != 0 {
		t.Fatalf("unexpected result: %s", res)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(nil, Options{RequestsPerSecond: 1000}, nil).Analyze(ctx, makeJobs(3), &fakeAnalyzer{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
