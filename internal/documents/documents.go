// Package documents writes per-job application material.
package documents

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/ai"
	"github.com/spigell/job-matcher/internal/enrich"
	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/logger"
)

const (
	StageDocument = "document"
	Dir           = "applications"

	maxSlugLen = 40
)

//go:embed application.md.tmpl
var applicationTemplate string

var (
	tmpl = template.Must(template.New("application").
		Funcs(template.FuncMap{"join": strings.Join}).
		Parse(applicationTemplate))

	nonSlug    = regexp.MustCompile(`[^\w\s-]`)
	slugSpaces = regexp.MustCompile(`[\s_]+`)
)

// Material is the generated part of a document.
type Material struct {
	CoverLetter string
	Highlights  []string
}

type Generator struct {
	outputDir string
	writer    ai.Writer
	candidate ai.Candidate
	runner    *enrich.Runner
	logger    *zap.Logger
}

// New creates a Generator writing into <outputDir>/applications. writer may be
// nil, in which case documents carry no generated material.
func New(outputDir string, writer ai.Writer, candidate ai.Candidate, runner *enrich.Runner, log *zap.Logger) *Generator {
	return &Generator{
		outputDir: outputDir,
		writer:    writer,
		candidate: candidate,
		runner:    runner,
		logger:    logger.OrNop(log),
	}
}

// GenerateAll writes one document per job, skipping jobs whose document was
// already written by an earlier run.
func (g *Generator) GenerateAll(ctx context.Context, list []*jobs.Job) (enrich.Result, error) {
	if err := os.MkdirAll(filepath.Join(g.outputDir, Dir), 0o755); err != nil {
		return enrich.Result{}, err
	}

	task := func(ctx context.Context, job *jobs.Job) ([]byte, error) {
		path, err := g.Generate(ctx, job)
		if err != nil {
			return nil, err
		}
		return []byte(path), nil
	}

	restore := func(_ *jobs.Job, payload []byte) error {
		_, err := os.Stat(string(payload))
		return err
	}

	return g.runner.Run(ctx, StageDocument, list, task, restore)
}

// Generate writes the document for a single job and returns its path.
func (g *Generator) Generate(ctx context.Context, job *jobs.Job) (string, error) {
	material, err := g.material(ctx, job)
	if err != nil {
		return "", err
	}

	content, err := Render(job, material)
	if err != nil {
		return "", err
	}

	path := filepath.Join(g.outputDir, Dir, FileName(job))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", err
	}

	g.logger.Debug("document written", append(logger.JobFields(job), zap.String("path", path))...)
	return path, nil
}

// material asks the writer for a cover letter and resume highlights. A failed
// cover letter fails the job; failed highlights are left out of the document.
func (g *Generator) material(ctx context.Context, job *jobs.Job) (Material, error) {
	var m Material
	if g.writer == nil || g.candidate.IsEmpty() {
		return m, nil
	}

	letter, err := g.writer.CoverLetter(ctx, job, g.candidate)
	if err != nil {
		return m, fmt.Errorf("cover letter: %w", err)
	}
	m.CoverLetter = letter

	highlights, err := g.writer.ResumeHighlights(ctx, job, g.candidate)
	if err != nil {
		g.logger.Warn("skipping resume highlights", append(logger.JobFields(job), zap.Error(err))...)
		return m, nil
	}
	m.Highlights = highlights

	return m, nil
}

// Render produces the markdown document for job.
func Render(job *jobs.Job, m Material) ([]byte, error) {
	if job == nil {
		return nil, errors.New("job is required")
	}

	var highlights []string
	for _, h := range m.Highlights {
		if h = strings.TrimSpace(h); h != "" {
			highlights = append(highlights, h)
		}
	}

	data := struct {
		Job         *jobs.Job
		Salary      string
		CoverLetter string
		Highlights  []string
	}{
		Job:         job,
		Salary:      salary(job),
		CoverLetter: strings.TrimSpace(m.CoverLetter),
		Highlights:  highlights,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render document for %s: %w", job.ID, err)
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// FileName is <slug of company and title>_<job id>.md.
func FileName(job *jobs.Job) string {
	slug := Slugify(job.Company + " " + job.Title)
	if slug == "" {
		return job.ID + ".md"
	}
	return slug + "_" + job.ID + ".md"
}

func Slugify(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = nonSlug.ReplaceAllString(text, "")
	text = slugSpaces.ReplaceAllString(text, "-")
	if r := []rune(text); len(r) > maxSlugLen {
		text = string(r[:maxSlugLen])
	}
	return strings.Trim(text, "-")
}

func salary(job *jobs.Job) string {
	if job.SalaryMin == nil && job.SalaryMax == nil {
		return ""
	}

	value := func(v *int) string {
		if v == nil {
			return "?"
		}
		return fmt.Sprintf("%d", *v)
	}

	s := value(job.SalaryMin) + " - " + value(job.SalaryMax)
	if job.SalaryCurrency != "" {
		s += " " + job.SalaryCurrency
	}
	return s + " per year"
}
