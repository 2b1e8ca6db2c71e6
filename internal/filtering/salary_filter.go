package filtering

import (
	"context"
	"strconv"

	"github.com/spigell/job-matcher/internal/jobs"
)

type salaryFilter struct {
	gate
	minAnnual int
}

// NewSalary creates a filter dropping jobs paying below minAnnual.
// Jobs without any salary data pass.
func NewSalary(minAnnual int) Filter {
	return &salaryFilter{
		gate:      newGate("salary", minAnnual > 0),
		minAnnual: minAnnual,
	}
}

func (f *salaryFilter) Validate() error { return nil }

func (f *salaryFilter) Apply(_ context.Context, v *jobs.Jobs) (*jobs.Jobs, Step, error) {
	next, step := keepStep(v, func(job *jobs.Job) bool {
		salary, known := job.Salary()
		return !known || salary >= f.minAnnual
	})
	return next, step, nil
}

func (f *salaryFilter) Status() Status {
	return f.status(map[string]string{"min_annual": strconv.Itoa(f.minAnnual)})
}
