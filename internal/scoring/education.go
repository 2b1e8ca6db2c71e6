package scoring

import (
	"strings"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/profile"
)

// requiredDegree returns the lowest degree level the job asks for, or
// DegreeUnknown when none is stated. Structured source levels are preferred,
// then the analysis, then description lines that talk about a degree.
func requiredDegree(job *jobs.Job) int {
	var levels []int
	for _, l := range job.EducationLevels {
		if level := profile.DegreeLevel(l); level != profile.DegreeUnknown {
			levels = append(levels, level)
		}
	}

	if len(levels) == 0 && job.Analysis != nil {
		levels = profile.DegreeWords(job.Analysis.EducationRequirement)
	}

	if len(levels) == 0 {
		for _, line := range strings.Split(strings.ToLower(job.Description), "\n") {
			if strings.Contains(line, "degree") || strings.Contains(line, "diploma") {
				levels = append(levels, profile.DegreeWords(line)...)
			}
		}
	}

	lowest := profile.DegreeUnknown
	for _, l := range levels {
		if lowest == profile.DegreeUnknown || l < lowest {
			lowest = l
		}
	}
	return lowest
}

func scoreEducation(required, have int) float64 {
	if required == profile.DegreeUnknown || have == profile.DegreeUnknown {
		return neutralEducation
	}
	if have >= required {
		return 100
	}
	return 100 * float64(have) / float64(required)
}
