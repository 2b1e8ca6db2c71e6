package filtering

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/search"
)

// Steps builds one filter per criterion in a fixed order. Criteria left
// unset become disabled steps.
func Steps(filters *search.Filters, now time.Time) []Filter {
	return []Filter{
		NewQuery(filters.Search),
		NewLocation(filters.Locations, allowsRemote(filters)),
		NewWorkplaceType(filters.WorkplaceTypes),
		NewExperienceLevel(filters.ExperienceLevels),
		NewSalary(filters.Salary.MinAnnual),
		NewCommitmentType(filters.CommitmentTypes),
		NewRecency(filters.DateFilter.Days, now),
	}
}

func FromSearch(filters *search.Filters, now time.Time, logger *zap.Logger) *Filtering {
	return New(Steps(filters, now), logger)
}

// Apply is the plain form of the filter stage: it returns the jobs passing
// every configured criterion, in input order.
func Apply(list []*jobs.Job, filters *search.Filters, now time.Time) ([]*jobs.Job, error) {
	out, _, err := FromSearch(filters, now, nil).RunFilters(context.Background(), jobs.New(list))
	if err != nil {
		return nil, err
	}
	return out.Items, nil
}
