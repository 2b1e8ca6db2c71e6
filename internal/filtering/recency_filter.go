package filtering

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/spigell/job-matcher/internal/jobs"
)

type recencyFilter struct {
	gate
	days int
	now  time.Time
}

// NewRecency keeps jobs posted within the last days relative to now. Jobs
// with an unknown posting date pass.
func NewRecency(days int, now time.Time) Filter {
	return &recencyFilter{
		gate: newGate("recency", days > 0),
		days: days,
		now:  now,
	}
}

func (f *recencyFilter) Validate() error {
	if f.now.IsZero() {
		return errors.New("reference time is required")
	}
	return nil
}

func (f *recencyFilter) Apply(_ context.Context, v *jobs.Jobs) (*jobs.Jobs, Step, error) {
	cutoff := f.now.Add(-time.Duration(f.days) * 24 * time.Hour)
	next, step := keepStep(v, func(job *jobs.Job) bool {
		return job.PostedAt.IsZero() || !job.PostedAt.Before(cutoff)
	})
	return next, step, nil
}

func (f *recencyFilter) Status() Status {
	return f.status(map[string]string{"days": strconv.Itoa(f.days)})
}
