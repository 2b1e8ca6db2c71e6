// Package ai declares the LLM collaborators used around the matching core.
package ai

import (
	"context"
	"strings"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/profile"
)

// Provider names used in logs and config.
const ProviderGemini = "gemini"

// CompanyTypes lists the accepted Analysis.CompanyType values.
var CompanyTypes = []string{"startup", "enterprise", "agency", "nonprofit", "government", "unknown"}

// Analyzer extracts structured requirements from a posting.
type Analyzer interface {
	Analyze(ctx context.Context, job *jobs.Job) (*jobs.Analysis, error)
}

// Candidate is what the writer knows about the applicant: a structured
// profile, a plain-text base resume, or both.
type Candidate struct {
	Profile *profile.Profile
	Resume  string
}

// IsEmpty reports whether there is nothing to write about.
func (c Candidate) IsEmpty() bool {
	return c.Profile.IsEmpty() && strings.TrimSpace(c.Resume) == ""
}

// Writer drafts application material for a job.
type Writer interface {
	CoverLetter(ctx context.Context, job *jobs.Job, c Candidate) (string, error)
	// ResumeHighlights returns resume bullet points tailored to job.
	ResumeHighlights(ctx context.Context, job *jobs.Job, c Candidate) ([]string, error)
}

// EmptyAnalysis is attached when a posting could not be analyzed.
func EmptyAnalysis() *jobs.Analysis {
	return &jobs.Analysis{
		RequiredSkills:      []string{},
		PreferredSkills:     []string{},
		CompanyType:         "unknown",
		KeyResponsibilities: []string{},
		RedFlags:            []string{},
		CultureSignals:      []string{},
	}
}
