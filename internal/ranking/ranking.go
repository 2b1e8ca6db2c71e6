// Package ranking orders scored jobs and cuts the list for downstream stages.
package ranking

import (
	"sort"

	"github.com/spigell/job-matcher/internal/jobs"
)

type Options struct {
	// Threshold is the minimum total score. Unscored jobs always pass it.
	Threshold float64
	// TopN caps the result after the threshold gate. Zero means no cap.
	TopN int
}

// Rank returns a new slice ordered by score descending, then by posting date
// descending. Unscored jobs follow scored ones; remaining ties keep input order.
func Rank(list []*jobs.Job) []*jobs.Job {
	ranked := make([]*jobs.Job, len(list))
	copy(ranked, list)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]

		switch {
		case a.Score != nil && b.Score == nil:
			return true
		case a.Score == nil && b.Score != nil:
			return false
		case a.Score != nil && a.Score.Total != b.Score.Total:
			return a.Score.Total > b.Score.Total
		}

		return a.PostedAt.After(b.PostedAt)
	})
	return ranked
}

// Select applies the threshold gate and then the top-N cap to a ranked list.
func Select(ranked []*jobs.Job, opts Options) []*jobs.Job {
	selected := make([]*jobs.Job, 0, len(ranked))
	for _, job := range ranked {
		if job.Score != nil && job.Score.Total < opts.Threshold {
			continue
		}
		selected = append(selected, job)
	}

	if opts.TopN > 0 && len(selected) > opts.TopN {
		selected = selected[:opts.TopN]
	}
	return selected
}
