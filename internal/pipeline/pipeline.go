// Package pipeline runs the stages from raw feed to ranked jobs, documents and
// report, keeping intermediate artifacts so later runs can resume.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/ai"
	"github.com/spigell/job-matcher/internal/dedupe"
	"github.com/spigell/job-matcher/internal/documents"
	"github.com/spigell/job-matcher/internal/enrich"
	"github.com/spigell/job-matcher/internal/feed"
	"github.com/spigell/job-matcher/internal/filtering"
	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/normalize"
	"github.com/spigell/job-matcher/internal/profile"
	"github.com/spigell/job-matcher/internal/ranking"
	"github.com/spigell/job-matcher/internal/report"
	"github.com/spigell/job-matcher/internal/scoring"
	"github.com/spigell/job-matcher/internal/search"
	"github.com/spigell/job-matcher/internal/store"
)

const (
	DefaultThreshold = 35
	DefaultMaxJobs   = 25
	DefaultSelect    = 5
)

var (
	// ErrNoSurvivingJobs is a normal outcome: nothing passed the filters.
	ErrNoSurvivingJobs = errors.New("no jobs survived filtering")
	// ErrEmptyFeed means the feed returned no records at all.
	ErrEmptyFeed = errors.New("feed returned no jobs")
	// ErrNoRawFeed is returned when a cached feed is required but missing.
	ErrNoRawFeed = errors.New("no cached raw feed")
)

// Fetcher returns raw records for the search filters.
type Fetcher interface {
	Search(filters *search.Filters) ([]feed.Record, error)
}

// Chooser decides how many qualifying jobs get documents. It receives the
// qualifying list in rank order.
type Chooser func(qualifying []*jobs.Job) (int, error)

// AutoSelect picks the first n qualifying jobs.
func AutoSelect(n int) Chooser {
	return func(qualifying []*jobs.Job) (int, error) {
		return min(n, len(qualifying)), nil
	}
}

type Config struct {
	Paths   Paths
	Filters *search.Filters
	// SearchConfig is the filters file; its hash keys the feed cache.
	SearchConfig string
	// Profile may be nil or empty, which switches to resume-only mode.
	Profile *profile.Profile
	// Resume is the base resume text handed to the writer, mostly useful
	// without a profile.
	Resume  string
	Weights scoring.Weights

	Fetcher  Fetcher
	Analyzer ai.Analyzer
	Writer   ai.Writer
	Enrich   enrich.Options
	Chooser  Chooser

	Logger *zap.Logger
}

type Options struct {
	SkipScrape   bool
	ForceScrape  bool
	FromParsed   bool
	CacheMaxAge  time.Duration
	Threshold    float64
	MaxJobs      int
	SkipAnalyze  bool
	SkipGenerate bool
	// Now pins the clock for filtering and scoring.
	Now time.Time
}

type Outcome struct {
	ResumeOnly bool
	FromCache  bool

	Raw        int
	Normalize  normalize.Stats
	Deduped    int
	Steps      []filtering.Step
	Ranked     []*jobs.Job
	Qualifying []*jobs.Job
	Selected   []*jobs.Job

	Analysis   enrich.Result
	Documents  enrich.Result
	ReportPath string
}

type Pipeline struct {
	cfg    Config
	paths  Paths
	scorer *scoring.Scorer
	logger *zap.Logger
}

func New(cfg Config) (*Pipeline, error) {
	if cfg.Filters == nil {
		return nil, errors.New("search filters are required")
	}
	if cfg.Chooser == nil {
		cfg.Chooser = AutoSelect(DefaultSelect)
	}

	return &Pipeline{
		cfg:    cfg,
		paths:  cfg.Paths.withDefaults(),
		scorer: scoring.New(cfg.Weights),
		logger: logger.OrNop(cfg.Logger),
	}, nil
}

// ResumeOnly reports whether scoring is bypassed for lack of a profile.
func (p *Pipeline) ResumeOnly() bool {
	return p.cfg.Profile.IsEmpty()
}

// Run executes every stage. ErrNoSurvivingJobs comes back together with a
// non-nil Outcome describing how far the run got.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Outcome, error) {
	opts = withDefaults(opts)
	out := &Outcome{ResumeOnly: p.ResumeOnly()}

	var filtered []*jobs.Job
	if opts.FromParsed {
		parsed, err := jobs.FromFile(p.paths.Parsed())
		if err != nil {
			return out, fmt.Errorf("loading parsed jobs: %w", err)
		}
		filtered = parsed.Items
		p.logger.Info("using parsed jobs", zap.Int("count", len(filtered)))
	} else {
		records, err := p.rawRecords(opts, out)
		if err != nil {
			return out, err
		}
		if filtered, err = p.core(ctx, records, opts, out); err != nil {
			return out, err
		}
	}

	if len(filtered) == 0 {
		return out, ErrNoSurvivingJobs
	}

	out.Ranked = p.score(filtered, opts.Now)
	if err := jobs.New(out.Ranked).ToFile(p.paths.Scored()); err != nil {
		return out, fmt.Errorf("writing scored jobs: %w", err)
	}

	out.Qualifying = ranking.Select(out.Ranked, ranking.Options{Threshold: opts.Threshold, TopN: opts.MaxJobs})
	p.logger.Info("ranked jobs",
		zap.Int("ranked", len(out.Ranked)),
		zap.Int("qualifying", len(out.Qualifying)),
		zap.Float64("threshold", opts.Threshold),
		zap.Bool("resume_only", out.ResumeOnly),
	)

	if err := p.enrichSelected(ctx, opts, out); err != nil {
		return out, err
	}

	path, err := report.Write(p.paths.OutputDir, report.Build(out.Ranked, p.cfg.Filters, report.Options{
		Threshold: opts.Threshold,
		Weights:   p.scorer.Weights(),
		Now:       opts.Now,
	}))
	if err != nil {
		return out, fmt.Errorf("writing report: %w", err)
	}
	out.ReportPath = path

	return out, nil
}

// Report rebuilds the summary report from the scored artifact.
func (p *Pipeline) Report(threshold float64, now time.Time) (string, error) {
	scored, err := jobs.FromFile(p.paths.Scored())
	if err != nil {
		return "", fmt.Errorf("loading scored jobs: %w", err)
	}

	if now.IsZero() {
		now = time.Now()
	}
	return report.Write(p.paths.OutputDir, report.Build(ranking.Rank(scored.Items), p.cfg.Filters, report.Options{
		Threshold: threshold,
		Weights:   p.scorer.Weights(),
		Now:       now,
	}))
}

func withDefaults(opts Options) Options {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Threshold < 0 {
		opts.Threshold = 0
	}
	if opts.MaxJobs <= 0 {
		opts.MaxJobs = DefaultMaxJobs
	}
	if opts.CacheMaxAge <= 0 {
		opts.CacheMaxAge = feed.DefaultMaxAge
	}
	return opts
}

func (p *Pipeline) rawRecords(opts Options, out *Outcome) ([]feed.Record, error) {
	log := logger.ForStage(p.logger, "fetch")

	if opts.SkipScrape {
		records, err := feed.ReadRaw(p.paths.WorkDir)
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoRawFeed
		}
		if err != nil {
			return nil, err
		}
		out.FromCache = true
		out.Raw = len(records)
		log.Info("using cached raw feed", zap.Int("records", len(records)))
		return records, nil
	}

	if !opts.ForceScrape && p.cfg.SearchConfig != "" {
		valid, err := feed.CacheValid(p.paths.WorkDir, p.cfg.SearchConfig, opts.CacheMaxAge, opts.Now)
		if err != nil {
			log.Warn("cannot check feed cache", zap.Error(err))
		}
		if valid {
			records, err := feed.ReadRaw(p.paths.WorkDir)
			if err == nil {
				out.FromCache = true
				out.Raw = len(records)
				log.Info("using cached raw feed, same search filters", zap.Int("records", len(records)))
				return records, nil
			}
			log.Warn("cached raw feed is unreadable", zap.Error(err))
		}
	}

	if p.cfg.Fetcher == nil {
		return nil, errors.New("no feed fetcher configured")
	}

	records, err := p.cfg.Fetcher.Search(p.cfg.Filters)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyFeed
	}
	out.Raw = len(records)

	if p.cfg.SearchConfig != "" {
		meta, err := feed.WriteRaw(p.paths.WorkDir, records, p.cfg.SearchConfig, opts.Now)
		if err != nil {
			return nil, fmt.Errorf("caching raw feed: %w", err)
		}
		log.Info("fetched feed", zap.Int("records", meta.JobCount), zap.String("run_id", meta.RunID))
	}
	return records, nil
}

// core runs normalize, dedupe and filter, writing the parsed artifact.
func (p *Pipeline) core(ctx context.Context, records []feed.Record, opts Options, out *Outcome) ([]*jobs.Job, error) {
	normalized, stats := normalize.New(p.cfg.Filters.Locations, logger.ForStage(p.logger, "normalize")).NormalizeAll(records)
	out.Normalize = stats

	unique := dedupe.Dedupe(normalized)
	out.Deduped = len(normalized) - len(unique)
	p.logger.Info("deduplicated jobs", zap.Int("before", len(normalized)), zap.Int("after", len(unique)))

	engine := filtering.FromSearch(p.cfg.Filters, opts.Now, logger.ForStage(p.logger, "filter"))
	for _, st := range engine.Describe() {
		p.logger.Debug("filter configured",
			zap.String("name", st.Name),
			zap.Bool("enabled", st.Enabled),
			zap.String("reason", st.Reason),
			zap.Any("details", st.Details),
		)
	}
	filtered, steps, err := engine.RunFilters(ctx, jobs.New(unique))
	if err != nil {
		return nil, fmt.Errorf("filtering: %w", err)
	}
	out.Steps = steps

	if err := filtered.ToFile(p.paths.Parsed()); err != nil {
		return nil, fmt.Errorf("writing parsed jobs: %w", err)
	}
	return filtered.Items, nil
}

// score recomputes scores from scratch; in resume-only mode every score is
// cleared so ranking falls back to recency.
func (p *Pipeline) score(list []*jobs.Job, now time.Time) []*jobs.Job {
	if p.ResumeOnly() {
		for _, job := range list {
			job.Score = nil
		}
		p.logger.Info("no profile, scoring skipped")
	} else {
		p.scorer.At(now).ScoreAll(list, p.cfg.Profile)
	}
	return ranking.Rank(list)
}

func (p *Pipeline) enrichSelected(ctx context.Context, opts Options, out *Outcome) error {
	if opts.SkipGenerate || len(out.Qualifying) == 0 {
		return nil
	}

	n, err := p.cfg.Chooser(out.Qualifying)
	if err != nil {
		return fmt.Errorf("choosing jobs: %w", err)
	}
	n = max(0, min(n, len(out.Qualifying)))
	if n == 0 {
		p.logger.Info("no jobs selected for documents")
		return nil
	}
	out.Selected = out.Qualifying[:n]

	selected := jobs.New(out.Selected)
	p.logger.Info("selected jobs for documents", zap.Strings("ids", selected.IDs()))
	if err := selected.ToFile(p.paths.Selected()); err != nil {
		return fmt.Errorf("writing selected jobs: %w", err)
	}

	db, err := store.Open(p.paths.Progress())
	if err != nil {
		return fmt.Errorf("opening progress db: %w", err)
	}
	defer db.Close()

	if p.cfg.Enrich.Force {
		for _, stage := range []string{enrich.StageAnalysis, documents.StageDocument} {
			n, err := db.Reset(ctx, stage)
			if err != nil {
				return fmt.Errorf("resetting %s progress: %w", stage, err)
			}
			p.logger.Info("dropped stored progress", zap.String(logger.FieldStage, stage), zap.Int64("entries", n))
		}
	}

	runner := enrich.New(db, p.cfg.Enrich, p.logger)

	if !opts.SkipAnalyze && p.cfg.Analyzer != nil {
		if out.Analysis, err = runner.Analyze(ctx, out.Selected, p.cfg.Analyzer); err != nil {
			return fmt.Errorf("analyzing jobs: %w", err)
		}
		// Failed analyses are retried next run; until then the job carries a placeholder.
		for _, job := range out.Selected {
			if job.Analysis == nil {
				job.Analysis = ai.EmptyAnalysis()
			}
		}
		if err := selected.ToFile(p.paths.Selected()); err != nil {
			return fmt.Errorf("writing selected jobs: %w", err)
		}
	}

	gen := documents.New(p.paths.OutputDir, p.cfg.Writer, ai.Candidate{Profile: p.cfg.Profile, Resume: p.cfg.Resume}, runner, p.logger)
	if out.Documents, err = gen.GenerateAll(ctx, out.Selected); err != nil {
		return fmt.Errorf("generating documents: %w", err)
	}
	return nil
}
