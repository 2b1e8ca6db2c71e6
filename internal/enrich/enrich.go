// Package enrich runs slow per-job work (LLM analysis, document drafting) with
// bounded concurrency, request spacing and resumable progress.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/spigell/job-matcher/internal/ai"
	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/logger"
)

const (
	StageAnalysis = "analysis"

	DefaultConcurrency       = 4
	DefaultRequestsPerSecond = 2
	defaultTaskTimeout       = 2 * time.Minute
)

// Progress persists finished work keyed by stage and job id.
type Progress interface {
	Put(ctx context.Context, stage, jobID string, payload []byte) error
	All(ctx context.Context, stage string) (map[string][]byte, error)
}

type Options struct {
	Concurrency       int     `mapstructure:"concurrency"`
	RequestsPerSecond float64 `mapstructure:"requests-per-second"`
	// Force ignores stored progress and redoes every job.
	Force bool `mapstructure:"-"`
}

// Task does the work for one job and returns the payload to persist.
type Task func(ctx context.Context, job *jobs.Job) ([]byte, error)

// Restore applies a persisted payload to a job on resume.
type Restore func(job *jobs.Job, payload []byte) error

type Result struct {
	Done    int
	Resumed int
	Failed  int
}

func (r Result) String() string {
	return fmt.Sprintf("done=%d resumed=%d failed=%d", r.Done, r.Resumed, r.Failed)
}

type Runner struct {
	progress    Progress
	limiter     *rate.Limiter
	concurrency int
	force       bool
	logger      *zap.Logger
}

func New(progress Progress, opts Options, log *zap.Logger) *Runner {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}

	return &Runner{
		progress:    progress,
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		concurrency: concurrency,
		force:       opts.Force,
		logger:      logger.OrNop(log),
	}
}

// Run executes task for every job that has no stored result for stage. Failed
// jobs are logged and left for the next run; only cancellation and progress
// store failures abort the run.
func (r *Runner) Run(ctx context.Context, stage string, list []*jobs.Job, task Task, restore Restore) (Result, error) {
	log := logger.ForStage(r.logger, stage)

	var res Result
	stored := map[string][]byte{}
	if r.progress != nil && !r.force {
		var err error
		if stored, err = r.progress.All(ctx, stage); err != nil {
			return res, fmt.Errorf("loading %s progress: %w", stage, err)
		}
	}

	pending := make([]*jobs.Job, 0, len(list))
	for _, job := range list {
		payload, ok := stored[job.ID]
		if !ok {
			pending = append(pending, job)
			continue
		}
		if restore != nil {
			if err := restore(job, payload); err != nil {
				log.Warn("stored progress is unreadable, redoing", append(logger.JobFields(job), zap.Error(err))...)
				pending = append(pending, job)
				continue
			}
		}
		res.Resumed++
	}

	log.Info("starting", zap.Int("pending", len(pending)), zap.Int("resumed", res.Resumed))

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(r.concurrency)

	for _, job := range pending {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}

			tctx, cancel := context.WithTimeout(ctx, defaultTaskTimeout)
			defer cancel()

			payload, err := task(tctx, job)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warn("task failed", append(logger.JobFields(job), zap.Error(err))...)
				mu.Lock()
				res.Failed++
				mu.Unlock()
				return nil
			}

			if r.progress != nil {
				if err := r.progress.Put(ctx, stage, job.ID, payload); err != nil {
					return fmt.Errorf("saving %s progress for %s: %w", stage, job.ID, err)
				}
			}

			log.Debug("task done", logger.JobFields(job)...)
			mu.Lock()
			res.Done++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	log.Info("finished", zap.Stringer("result", res))
	return res, nil
}

// Analyze attaches an Analysis to every job, resuming stored analyses.
func (r *Runner) Analyze(ctx context.Context, list []*jobs.Job, analyzer ai.Analyzer) (Result, error) {
	task := func(ctx context.Context, job *jobs.Job) ([]byte, error) {
		analysis, err := analyzer.Analyze(ctx, job)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(analysis)
		if err != nil {
			return nil, err
		}
		job.Analysis = analysis
		return payload, nil
	}

	restore := func(job *jobs.Job, payload []byte) error {
		var analysis jobs.Analysis
		if err := json.Unmarshal(payload, &analysis); err != nil {
			return err
		}
		job.Analysis = &analysis
		return nil
	}

	return r.Run(ctx, StageAnalysis, list, task, restore)
}
