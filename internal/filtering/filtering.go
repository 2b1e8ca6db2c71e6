package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/jobs"
)

const notConfiguredReason = "not configured"

// Filter represents a single hard gate applied to jobs.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	Apply(ctx context.Context, v *jobs.Jobs) (*jobs.Jobs, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Name    string
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

type Filtering struct {
	steps  []Filter
	logger *zap.Logger
}

func New(steps []Filter, logger *zap.Logger) *Filtering {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filtering{steps: steps, logger: logger}
}

// RunFilters executes enabled steps sequentially on a copy of v. The input
// list is left untouched.
func (f *Filtering) RunFilters(ctx context.Context, v *jobs.Jobs) (*jobs.Jobs, []Step, error) {
	for _, step := range f.steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	current := v.Clone()
	report := make([]Step, 0, len(f.steps))

	for _, step := range f.steps {
		if !step.IsEnabled() {
			f.logger.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		next, info, err := step.Apply(ctx, current)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
		info.Name = step.Name()

		f.logger.Info("filter step",
			zap.String("name", info.Name),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		report = append(report, info)
		current = next
	}

	return current, report, nil
}

// Describe returns status entries for the configured filters.
func (f *Filtering) Describe() []Status {
	statuses := make([]Status, 0, len(f.steps))
	for _, step := range f.steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// gate holds the enable/disable bookkeeping shared by every step.
type gate struct {
	name    string
	enabled bool
	reason  string
}

func newGate(name string, configured bool) gate {
	g := gate{name: name, enabled: configured}
	if !configured {
		g.reason = notConfiguredReason
	}
	return g
}

func (g *gate) Name() string { return g.name }

func (g *gate) Disable(reason string) {
	g.enabled = false
	g.reason = reason
}

func (g *gate) IsEnabled() bool { return g.enabled }

func (g *gate) status(details map[string]string) Status {
	return Status{Name: g.name, Enabled: g.enabled, Reason: g.reason, Details: details}
}

// keepStep runs a per-job predicate through v.Keep and reports the counts.
func keepStep(v *jobs.Jobs, keep func(*jobs.Job) bool) (*jobs.Jobs, Step) {
	initial := v.Len()
	dropped := v.Keep(keep)
	return v, Step{Initial: initial, Dropped: len(dropped), Left: v.Len()}
}
