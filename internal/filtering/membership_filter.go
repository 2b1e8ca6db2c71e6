package filtering

import (
	"context"
	"strings"

	"github.com/spigell/job-matcher/internal/jobs"
)

// membershipFilter checks a single enumerated job attribute against an allowed
// set. Jobs with an unknown value pass.
type membershipFilter struct {
	gate
	allowed map[string]struct{}
	values  []string
	field   func(*jobs.Job) string
}

func newMembership(name string, allowed []string, field func(*jobs.Job) string) Filter {
	set := make(map[string]struct{}, len(allowed))
	values := make([]string, 0, len(allowed))
	for _, a := range allowed {
		key := strings.ToLower(strings.TrimSpace(a))
		if key == "" {
			continue
		}
		set[key] = struct{}{}
		values = append(values, a)
	}

	return &membershipFilter{
		gate:    newGate(name, len(set) > 0),
		allowed: set,
		values:  values,
		field:   field,
	}
}

func NewWorkplaceType(allowed []string) Filter {
	return newMembership("workplace_type", allowed, func(j *jobs.Job) string { return string(j.WorkplaceType) })
}

func NewExperienceLevel(allowed []string) Filter {
	return newMembership("experience_level", allowed, func(j *jobs.Job) string { return string(j.ExperienceLevel) })
}

func NewCommitmentType(allowed []string) Filter {
	return newMembership("commitment_type", allowed, func(j *jobs.Job) string { return string(j.CommitmentType) })
}

func (f *membershipFilter) Validate() error { return nil }

func (f *membershipFilter) Apply(_ context.Context, v *jobs.Jobs) (*jobs.Jobs, Step, error) {
	next, step := keepStep(v, func(job *jobs.Job) bool {
		value := strings.ToLower(strings.TrimSpace(f.field(job)))
		if value == "" {
			return true
		}
		_, ok := f.allowed[value]
		return ok
	})
	return next, step, nil
}

func (f *membershipFilter) Status() Status {
	return f.status(map[string]string{"allowed": strings.Join(f.values, ",")})
}
