package scoring

import (
	"math"

	"github.com/spigell/job-matcher/internal/jobs"
)

// A stated minimum of n years is read as the band n..n+minimumSpan.
const minimumSpan = 3

type band struct {
	min, max float64
	known    bool
}

var levelBands = map[jobs.ExperienceLevel]band{
	jobs.LevelInternship: {0, 1, true},
	jobs.LevelEntry:      {0, 2, true},
	jobs.LevelMid:        {2, 5, true},
	jobs.LevelSenior:     {5, 10, true},
	jobs.LevelLead:       {7, 15, true},
	jobs.LevelDirector:   {10, 20, true},
	jobs.LevelExecutive:  {15, 40, true},
}

func experienceBand(job *jobs.Job) band {
	if job.MinYearsExperience != nil {
		n := float64(*job.MinYearsExperience)
		return band{n, n + minimumSpan, true}
	}
	if job.Analysis != nil && job.Analysis.YearsExperienceRequired != nil {
		n := float64(*job.Analysis.YearsExperienceRequired)
		return band{n, n + minimumSpan, true}
	}
	return levelBands[job.ExperienceLevel]
}

// scoreExperience saturates inside the band and decays with distance outside.
// Under-qualification decays faster than over-qualification.
func scoreExperience(b band, years float64) float64 {
	if !b.known {
		return neutralExperience
	}
	switch {
	case years < b.min:
		d := b.min - years
		return math.Max(10, 100-math.Pow(d, 1.5)*12)
	case years > b.max:
		d := years - b.max
		return math.Max(40, 100-math.Pow(d, 1.5)*5)
	default:
		return 100
	}
}
