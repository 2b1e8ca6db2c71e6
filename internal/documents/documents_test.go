package documents

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/ai"
	"github.com/spigell/job-matcher/internal/enrich"
	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/profile"
	"github.com/spigell/job-matcher/internal/store"
)

type stubWriter struct {
	calls         atomic.Int32
	err           error
	highlightsErr error
	resumes       atomic.Int32
}

func (s *stubWriter) CoverLetter(_ context.Context, job *jobs.Job, c ai.Candidate) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}

	name := "a candidate"
	if c.Profile != nil {
		name = c.Profile.Personal.Name
	}
	if c.Resume != "" {
		s.resumes.Add(1)
	}
	return "Dear Hiring Manager,\n\nI want to join " + job.Company + ".\n\nSincerely,\n" + name, nil
}

func (s *stubWriter) ResumeHighlights(_ context.Context, job *jobs.Job, _ ai.Candidate) ([]string, error) {
	if s.highlightsErr != nil {
		return nil, s.highlightsErr
	}
	return []string{"Shipped Go services like the ones at " + job.Company, " "}, nil
}

func candidate(p *profile.Profile) ai.Candidate {
	return ai.Candidate{Profile: p}
}

func sampleJob() *jobs.Job {
	return &jobs.Job{
		ID:             "a1b2c3",
		Title:          "Senior Go Developer",
		Company:        "Acme, Inc.",
		Locations:      []jobs.Location{{Name: "Toronto, ON"}},
		WorkplaceType:  jobs.WorkplaceHybrid,
		SalaryMin:      jobs.IntPtr(120000),
		SalaryCurrency: "CAD",
		ApplyURL:       "https://example.com/apply",
		Score: &jobs.ScoreBreakdown{
			Total: 72.5, Skills: 80, Experience: 70, Education: 50,
			MatchedSkills: []string{"go", "sql"},
			MissingSkills: []string{"rust"},
			MatchReasons:  []string{"Experience level aligns well"},
		},
		Analysis: &jobs.Analysis{RoleSummary: "Builds APIs.", KeyResponsibilities: []string{"Ship features"}},
	}
}

func TestRender(t *testing.T) {
	out, err := Render(sampleJob(), Material{CoverLetter: "Dear Hiring Manager,", Highlights: []string{"Built APIs in Go", ""}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	text := string(out)
	for _, want := range []string{
		"# Senior Go Developer at Acme, Inc.",
		"- Location: Toronto, ON",
		"- Workplace: Hybrid",
		"- Salary: 120000 - ? CAD per year",
		"| 72.5 | 80.0 | 70.0 | 50.0 |",
		"Matched skills: go, sql",
		"Missing skills: rust",
		"- Experience level aligns well",
		"Builds APIs.",
		"- Ship features",
		"## Resume highlights\n\n- Built APIs in Go\n\n## Cover letter",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected document to contain %q, got:\n%s", want, text)
		}
	}
}

func TestRenderListsEveryLocation(t *testing.T) {
	job := sampleJob()
	job.Locations = []jobs.Location{{Name: "Toronto, ON"}, {Name: ""}, {Name: "Remote"}}

	out, err := Render(job, Material{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(out), "- Location: Toronto, ON; Remote\n") {
		t.Fatalf("expected both locations, got:\n%s", out)
	}

	job.Locations = nil
	out, err = Render(job, Material{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(string(out), "Location:") {
		t.Fatalf("did not expect a location line, got:\n%s", out)
	}
}

func TestRenderMinimalJob(t *testing.T) {
	out, err := Render(&jobs.Job{ID: "x", Title: "SRE", Company: "Initech"}, Material{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	text := string(out)
	for _, absent := range []string{"## Match", "## Role", "## Resume highlights", "## Cover letter", "Salary", "<no value>"} {
		if strings.Contains(text, absent) {
			t.Fatalf("did not expect %q in:\n%s", absent, text)
		}
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Acme, Inc. Senior Go Developer": "acme-inc-senior-go-developer",
		"  C++ / Systems  ":              "c-systems",
		"under_score  name":              "under-score-name",
		strings.Repeat("word ", 20):      "word-word-word-word-word-word-word-word",
	}

	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}

	if got := FileName(&jobs.Job{ID: "id1", Company: "!!!"}); got != "id1.md" {
		t.Fatalf("unexpected file name %q", got)
	}
}

func TestGenerateAllResumes(t *testing.T) {
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "progress.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()

	p := &profile.Profile{Personal: profile.Personal{Name: "Alex Doe"}, Skills: map[string][]string{"lang": {"go"}}}
	writer := &stubWriter{}
	runner := enrich.New(db, enrich.Options{Concurrency: 2, RequestsPerSecond: 1000}, zap.NewNop())
	gen := New(dir, writer, candidate(p), runner, zap.NewNop())

	second := sampleJob()
	second.ID = "zzz"
	list := []*jobs.Job{sampleJob(), second}

	res, err := gen.GenerateAll(context.Background(), list)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Done != 2 {
		t.Fatalf("unexpected result %s", res)
	}

	path := filepath.Join(dir, Dir, "acme-inc-senior-go-developer_a1b2c3.md")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	if !strings.Contains(string(data), "I want to join Acme, Inc.") {
		t.Fatalf("expected cover letter in document:\n%s", data)
	}

	res, err = gen.GenerateAll(context.Background(), list)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Resumed != 2 || writer.calls.Load() != 2 {
		t.Fatalf("expected resume without new calls, got %s and %d calls", res, writer.calls.Load())
	}

	// a deleted document is regenerated
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	res, err = gen.GenerateAll(context.Background(), list)
	if err != nil {
		t.Fatal(err)
	}
	if res.Done != 1 || res.Resumed != 1 {
		t.Fatalf("expected one regenerated document, got %s", res)
	}
}

func TestGenerateWithoutWriter(t *testing.T) {
	dir := t.TempDir()
	gen := New(dir, nil, ai.Candidate{}, enrich.New(nil, enrich.Options{RequestsPerSecond: 1000}, nil), nil)

	if err := os.MkdirAll(filepath.Join(dir, Dir), 0o755); err != nil {
		t.Fatal(err)
	}
	path, err := gen.Generate(context.Background(), sampleJob())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "Cover letter") {
		t.Fatalf("did not expect a cover letter without writer")
	}
}

func TestGenerateAllCountsWriterFailures(t *testing.T) {
	dir := t.TempDir()
	p := &profile.Profile{Personal: profile.Personal{Name: "Alex"}, Skills: map[string][]string{"lang": {"go"}}}
	gen := New(dir, &stubWriter{err: errors.New("quota")}, candidate(p), enrich.New(nil, enrich.Options{RequestsPerSecond: 1000}, nil), nil)

	res, err := gen.GenerateAll(context.Background(), []*jobs.Job{sampleJob()})
	if err != nil {
		t.Fatalf("expected partial failure to be tolerated, got %v", err)
	}
	if res.Failed != 1 {
		t.Fatalf("unexpected result %s", res)
	}
}

func TestGenerateFromResumeOnly(t *testing.T) {
	dir := t.TempDir()
	writer := &stubWriter{}
	c := ai.Candidate{Resume: "Jane Roe\nBackend engineer"}
	gen := New(dir, writer, c, enrich.New(nil, enrich.Options{RequestsPerSecond: 1000}, nil), nil)

	if err := os.MkdirAll(filepath.Join(dir, Dir), 0o755); err != nil {
		t.Fatal(err)
	}
	path, err := gen.Generate(context.Background(), sampleJob())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	data, _ := os.ReadFile(path)
	text := string(data)
	if writer.resumes.Load() != 1 || !strings.Contains(text, "I want to join Acme, Inc.") {
		t.Fatalf("expected a cover letter from the resume, got:\n%s", text)
	}
	if !strings.Contains(text, "## Resume highlights\n\n- Shipped Go services like the ones at Acme, Inc.\n") {
		t.Fatalf("expected highlights in document, got:\n%s", text)
	}
}

func TestGenerateWithoutCandidate(t *testing.T) {
	dir := t.TempDir()
	writer := &stubWriter{}
	gen := New(dir, writer, ai.Candidate{Profile: &profile.Profile{}, Resume: "  "}, enrich.New(nil, enrich.Options{RequestsPerSecond: 1000}, nil), nil)

	if err := os.MkdirAll(filepath.Join(dir, Dir), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := gen.Generate(context.Background(), sampleJob()); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if writer.calls.Load() != 0 {
		t.Fatalf("expected no writer calls without profile or resume")
	}
}

func TestGenerateKeepsDocumentWhenHighlightsFail(t *testing.T) {
	dir := t.TempDir()
	p := &profile.Profile{Personal: profile.Personal{Name: "Alex"}, Skills: map[string][]string{"lang": {"go"}}}
	writer := &stubWriter{highlightsErr: errors.New("bad json")}
	gen := New(dir, writer, candidate(p), enrich.New(nil, enrich.Options{RequestsPerSecond: 1000}, nil), zap.NewNop())

	res, err := gen.GenerateAll(context.Background(), []*jobs.Job{sampleJob()})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Done != 1 {
		t.Fatalf("unexpected result %s", res)
	}

	data, err := os.ReadFile(filepath.Join(dir, Dir, FileName(sampleJob())))
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	if strings.Contains(string(data), "Resume highlights") || !strings.Contains(string(data), "## Cover letter") {
		t.Fatalf("expected cover letter without highlights, got:\n%s", data)
	}
}
