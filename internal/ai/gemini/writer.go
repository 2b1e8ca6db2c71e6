package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/ai"
	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/profile"
)

//go:embed prompts/cover_letter.md
var coverLetterTemplate string

//go:embed prompts/resume_highlights.md
var highlightsTemplate string

// profileCacher is implemented by *Generator. Writers reuse one cached copy of
// the candidate across jobs when the generator supports it.
type profileCacher interface {
	EnsureProfileCache(ctx context.Context, profileID, payload string) (string, error)
	GenerateContentWithCache(ctx context.Context, prompt, cacheName string) (string, error)
}

var datelinePattern = regexp.MustCompile(`(?i)^(?:(?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2},?\s+\d{4}|\d{1,2}[/-]\d{1,2}[/-]\d{2,4})$`)

const (
	cachedCandidate = "The candidate profile is provided in the cached context."
	maxResumeRunes  = 12000
	maxHighlights   = 8
)

// Writer implements ai.Writer.
type Writer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

var _ ai.Writer = (*Writer)(nil)

func NewWriter(generator contentGenerator, log *zap.Logger, maxLogLength int) *Writer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Writer{
		generator: generator,
		logger:    logger.WithCommonFields(log, ai.ProviderGemini, generator.Model()),
		maxLogLen: maxLogLength,
	}
}

func (w *Writer) CoverLetter(ctx context.Context, job *jobs.Job, c ai.Candidate) (string, error) {
	raw, err := w.generate(ctx, job, c, coverLetterTemplate)
	if err != nil {
		return "", err
	}

	letter := cleanLetter(raw)
	if letter == "" {
		return "", fmt.Errorf("gemini returned an empty cover letter")
	}
	return letter, nil
}

func (w *Writer) ResumeHighlights(ctx context.Context, job *jobs.Job, c ai.Candidate) ([]string, error) {
	raw, err := w.generate(ctx, job, c, highlightsTemplate)
	if err != nil {
		return nil, err
	}
	return parseHighlights(raw)
}

// generate renders template for job and c, preferring the cached candidate
// context and falling back to an inline prompt.
func (w *Writer) generate(ctx context.Context, job *jobs.Job, c ai.Candidate, template string) (string, error) {
	if job == nil {
		return "", fmt.Errorf("job is required")
	}
	if c.IsEmpty() {
		return "", fmt.Errorf("a profile or a base resume is required")
	}

	candidate := describeCandidate(job, c)
	fields := logger.JobFields(job)

	var (
		raw string
		err error
	)

	if cacher, ok := w.generator.(profileCacher); ok {
		name, cacheErr := cacher.EnsureProfileCache(ctx, candidateID(c), candidate)
		if cacheErr == nil {
			prompt := buildPrompt(template, job, cachedCandidate)
			w.logger.Debug("gemini generate content request", append(fields, zap.String("cache", name))...)
			raw, err = cacher.GenerateContentWithCache(ctx, prompt, name)
		} else {
			w.logger.Debug("profile cache unavailable", append(fields, zap.Error(cacheErr))...)
		}
	}

	if raw == "" && err == nil {
		prompt := buildPrompt(template, job, candidate)
		w.logger.Debug("gemini generate content request", append(fields,
			zap.String("prompt_preview", logger.TruncateForLog(prompt, w.maxLogLen)),
		)...)
		raw, err = w.generator.GenerateContent(ctx, prompt)
	}
	if err != nil {
		return "", err
	}

	w.logger.Debug("gemini generate content response", append(fields,
		zap.String("response_preview", logger.TruncateForLog(raw, w.maxLogLen)),
	)...)
	return raw, nil
}

func buildPrompt(template string, job *jobs.Job, candidate string) string {
	prompt := strings.ReplaceAll(template, "{{JOB}}", describeJob(job, false))
	return strings.ReplaceAll(prompt, "{{CANDIDATE}}", candidate)
}

func parseHighlights(raw string) ([]string, error) {
	var list any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &list); err != nil {
		return nil, fmt.Errorf("decode resume highlights: %w", err)
	}

	// {"highlights": [...]} shows up despite the prompt.
	if obj, ok := list.(map[string]any); ok {
		list = obj["highlights"]
	}
	if _, ok := list.([]any); !ok {
		return nil, fmt.Errorf("resume highlights are not a list")
	}

	highlights := coerceStrings(list)
	if len(highlights) == 0 {
		return nil, fmt.Errorf("gemini returned no resume highlights")
	}
	if len(highlights) > maxHighlights {
		highlights = highlights[:maxHighlights]
	}
	return highlights, nil
}

func describeCandidate(job *jobs.Job, c ai.Candidate) string {
	var b strings.Builder

	if p := c.Profile; !p.IsEmpty() {
		describeProfile(&b, p)
	}
	if job.Score != nil && len(job.Score.MatchedSkills) > 0 {
		fmt.Fprintf(&b, "Matched Skills: %s\n", strings.Join(job.Score.MatchedSkills, ", "))
	}

	if resume := strings.TrimSpace(c.Resume); resume != "" {
		if r := []rune(resume); len(r) > maxResumeRunes {
			resume = string(r[:maxResumeRunes])
		}
		fmt.Fprintf(&b, "\nBase Resume:\n%s\n", resume)
	}

	return strings.TrimSpace(b.String())
}

func describeProfile(b *strings.Builder, p *profile.Profile) {
	fmt.Fprintf(b, "Name: %s\n", p.Personal.Name)
	if p.Summary != "" {
		fmt.Fprintf(b, "Summary: %s\n", strings.TrimSpace(p.Summary))
	}
	if p.Experience.TotalYears != nil {
		fmt.Fprintf(b, "Years of Experience: %g\n", *p.Experience.TotalYears)
	}
	fmt.Fprintf(b, "Skills: %s\n", strings.Join(p.FlattenSkills(), ", "))

	for _, pos := range p.Experience.Positions {
		fmt.Fprintf(b, "\nPosition: %s", pos.Title)
		if pos.Company != "" {
			fmt.Fprintf(b, " at %s", pos.Company)
		}
		b.WriteString("\n")
		for _, a := range pos.Achievements {
			fmt.Fprintf(b, "  - %s\n", a)
		}
	}

	for _, proj := range p.Projects {
		fmt.Fprintf(b, "\nProject: %s\n", proj.Name)
		if proj.Description != "" {
			fmt.Fprintf(b, "  %s\n", proj.Description)
		}
		for _, a := range proj.Achievements {
			fmt.Fprintf(b, "  - %s\n", a)
		}
	}

	for _, edu := range p.Education {
		fmt.Fprintf(b, "\nEducation: %s %s %s\n", edu.Degree, edu.Field, edu.Institution)
	}
}

// candidateID keys the profile cache; the payload hash handles content changes.
func candidateID(c ai.Candidate) string {
	if p := c.Profile; p != nil {
		if id := strings.TrimSpace(p.Personal.Email); id != "" {
			return id
		}
		if id := strings.TrimSpace(p.Personal.Name); id != "" {
			return id
		}
	}
	if strings.TrimSpace(c.Resume) != "" {
		return "resume"
	}
	return "default"
}

// cleanLetter drops fences and a leading date line the model sometimes adds.
func cleanLetter(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```text")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	}

	lines := strings.Split(strings.TrimSpace(raw), "\n")
	for i := 0; i < len(lines) && i < 3; i++ {
		if datelinePattern.MatchString(strings.TrimSpace(lines[i])) {
			lines = append(lines[:i], lines[i+1:]...)
			if i < len(lines) && strings.TrimSpace(lines[i]) == "" {
				lines = append(lines[:i], lines[i+1:]...)
			}
			break
		}
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
