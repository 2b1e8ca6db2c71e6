package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/ai"
	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/logger"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

//go:embed prompts/analyze.md
var analyzeTemplate string

const (
	defaultMaxLogLength = 200
	maxDescriptionRunes  = 3000
)

// Analyzer implements ai.Analyzer.
type Analyzer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

var _ ai.Analyzer = (*Analyzer)(nil)

func NewAnalyzer(generator contentGenerator, log *zap.Logger, maxLogLength int) *Analyzer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Analyzer{
		generator: generator,
		logger:    logger.WithCommonFields(log, ai.ProviderGemini, generator.Model()),
		maxLogLen: maxLogLength,
	}
}

func (a *Analyzer) Analyze(ctx context.Context, job *jobs.Job) (*jobs.Analysis, error) {
	if job == nil {
		return nil, fmt.Errorf("job is required")
	}

	prompt := strings.ReplaceAll(analyzeTemplate, "{{JOB}}", describeJob(job, true))
	fields := logger.JobFields(job)

	a.logger.Debug("gemini generate content request", append(fields,
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, a.maxLogLen)),
	)...)

	raw, err := a.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("gemini generate content response", append(fields,
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, a.maxLogLen)),
	)...)

	return parseAnalysis(raw)
}

// describeJob renders the job fields the model needs as plain text.
func describeJob(job *jobs.Job, withDescription bool) string {
	var b strings.Builder

	line := func(label, value string) {
		if value = strings.TrimSpace(value); value == "" {
			value = "N/A"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, value)
	}

	line("Title", job.Title)
	line("Company", job.Company)
	line("Location", strings.Join(job.LocationNames(), "; "))
	line("Workplace", string(job.WorkplaceType))
	line("Experience Level", string(job.ExperienceLevel))
	line("Already-extracted skills", strings.Join(job.Skills, ", "))

	if a := job.Analysis; a != nil {
		line("Role Summary", a.RoleSummary)
		line("Key Responsibilities", strings.Join(a.KeyResponsibilities, "; "))
		line("Culture", strings.Join(a.CultureSignals, ", "))
	}

	if withDescription {
		desc := job.Description
		if utf8.RuneCountInString(desc) > maxDescriptionRunes {
			desc = string([]rune(desc)[:maxDescriptionRunes])
		}
		line("Description", "\n"+desc)
	}

	return strings.TrimSpace(b.String())
}

func parseAnalysis(raw string) (*jobs.Analysis, error) {
	cleaned := extractJSON(raw)

	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	// a batch-style answer carries the object in a one element list
	if list, ok := payload.([]any); ok {
		if len(list) == 0 {
			return nil, fmt.Errorf("parse gemini response: empty list")
		}
		payload = list[0]
	}

	data, ok := payload.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parse gemini response: expected object, got %T", payload)
	}

	companyType := strings.ToLower(coerceString(data["company_type"]))
	if !slices.Contains(ai.CompanyTypes, companyType) {
		companyType = "unknown"
	}

	return &jobs.Analysis{
		RequiredSkills:          coerceStrings(data["required_skills"]),
		PreferredSkills:         coerceStrings(data["preferred_skills"]),
		YearsExperienceRequired: coerceIntPtr(data["years_experience_required"]),
		EducationRequirement:    coerceString(data["education_requirement"]),
		CompanyType:             companyType,
		RoleSummary:             coerceString(data["role_summary"]),
		KeyResponsibilities:     coerceStrings(data["key_responsibilities"]),
		RedFlags:                coerceStrings(data["red_flags"]),
		CultureSignals:          coerceStrings(data["culture_signals"]),
	}, nil
}
