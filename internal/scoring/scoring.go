// Package scoring computes a deterministic 0-100 compatibility score between
// a job and the candidate profile.
package scoring

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/profile"
)

const (
	neutralSkills     = 50.0
	neutralExperience = 70.0
	neutralEducation  = 80.0

	reasonListLimit = 5
)

type Weights struct {
	Skills     float64 `mapstructure:"skills" json:"skills"`
	Experience float64 `mapstructure:"experience" json:"experience"`
	Education  float64 `mapstructure:"education" json:"education"`
}

func DefaultWeights() Weights {
	return Weights{Skills: 0.60, Experience: 0.25, Education: 0.15}
}

// normalized scales weights to sum to 1. Negative entries count as zero and an
// all-zero set falls back to the defaults.
func (w Weights) normalized() Weights {
	w.Skills = math.Max(0, w.Skills)
	w.Experience = math.Max(0, w.Experience)
	w.Education = math.Max(0, w.Education)

	sum := w.Skills + w.Experience + w.Education
	if sum == 0 {
		return DefaultWeights()
	}
	return Weights{Skills: w.Skills / sum, Experience: w.Experience / sum, Education: w.Education / sum}
}

type Scorer struct {
	weights Weights
	now     time.Time
}

func New(weights Weights) *Scorer {
	return &Scorer{weights: weights.normalized(), now: time.Now()}
}

// At fixes the reference time used to derive experience from position dates.
func (s *Scorer) At(now time.Time) *Scorer {
	s.now = now
	return s
}

func (s *Scorer) Weights() Weights { return s.weights }

// Score computes the breakdown for job against p without modifying either.
func (s *Scorer) Score(job *jobs.Job, p *profile.Profile) jobs.ScoreBreakdown {
	userSkills := p.FlattenSkills()

	skills := scoreSkills(job, userSkills)
	experience := neutralExperience
	if years, ok := p.Years(s.now); ok {
		experience = scoreExperience(experienceBand(job), years)
	}
	education := scoreEducation(requiredDegree(job), p.HighestDegree())

	total := skills.score*s.weights.Skills +
		experience*s.weights.Experience +
		education*s.weights.Education

	b := jobs.ScoreBreakdown{
		Skills:        round1(skills.score),
		Experience:    round1(experience),
		Education:     round1(education),
		Total:         round1(clamp(total)),
		MatchedSkills: skills.matched,
		MissingSkills: skills.missing,
	}
	b.MatchReasons, b.GapReasons = reasons(b)
	return b
}

// ScoreAll replaces the score of every job in list.
func (s *Scorer) ScoreAll(list []*jobs.Job, p *profile.Profile) {
	for _, job := range list {
		b := s.Score(job, p)
		job.Score = &b
	}
}

func reasons(b jobs.ScoreBreakdown) (match, gap []string) {
	if b.Skills >= 60 && len(b.MatchedSkills) > 0 {
		match = append(match, fmt.Sprintf("Strong skill match (%d skills: %s)",
			len(b.MatchedSkills), strings.Join(head(b.MatchedSkills, reasonListLimit), ", ")))
	}
	if b.Experience >= 80 {
		match = append(match, "Experience level aligns well")
	}
	if b.Education >= 80 {
		match = append(match, "Education requirements met")
	}

	if len(b.MissingSkills) > 0 {
		gap = append(gap, "Missing skills: "+strings.Join(head(b.MissingSkills, reasonListLimit), ", "))
	}
	if b.Experience < 50 {
		gap = append(gap, "Experience level mismatch")
	}
	if b.Education < 50 {
		gap = append(gap, "Education requirement not met")
	}
	return match, gap
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func clamp(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
