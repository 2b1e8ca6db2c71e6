package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/ai"
	"github.com/spigell/job-matcher/internal/ai/gemini"
	"github.com/spigell/job-matcher/internal/feed"
	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/pipeline"
	"github.com/spigell/job-matcher/internal/profile"
	"github.com/spigell/job-matcher/internal/search"
	"github.com/spigell/job-matcher/internal/secrets"
)

const (
	PromptGenerate          = "Generate documents"
	PromptReportByCompanies = "Report by companies"
	PromptSkip              = "Skip"

	defaultSearchConfig = "config/search_filters.yaml"
	defaultProfile      = "config/user_profile.yaml"
)

var prompt = promptui.Select{
	Label: "Qualifying jobs found, what next?",
	Items: []string{PromptGenerate, PromptReportByCompanies, PromptSkip},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, filter, score and rank jobs, then draft applications for the best ones",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("search-config", defaultSearchConfig, "search filters file")
	runCmd.Flags().String("profile", defaultProfile, "candidate profile file; without it jobs are ranked by recency only")
	runCmd.Flags().String("resume", "", "base resume (.txt or .md) handed to the llm writer, the only candidate source without a profile")
	runCmd.Flags().Bool("skip-scrape", false, "use the cached raw feed instead of fetching")
	runCmd.Flags().Bool("force-scrape", false, "fetch even if the cached raw feed is still valid")
	runCmd.Flags().Bool("from-parsed", false, "start from the parsed jobs of a previous run")
	runCmd.Flags().Float64("threshold", pipeline.DefaultThreshold, "minimum score for a job to qualify")
	runCmd.Flags().Int("max-jobs", pipeline.DefaultMaxJobs, "maximum number of qualifying jobs")
	runCmd.Flags().IntP("select", "n", 0, "number of jobs to draft applications for (asked interactively if unset)")
	runCmd.Flags().Bool("skip-analyze", false, "do not analyze selected jobs with the llm")
	runCmd.Flags().Bool("skip-generate", false, "stop after ranking")
	runCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation, select the top jobs")
	runCmd.Flags().Bool("redo", false, "drop stored analyses and documents and produce them again")

	viper.BindPFlag("search-config", runCmd.Flags().Lookup("search-config"))
	viper.BindPFlag("profile", runCmd.Flags().Lookup("profile"))
	viper.BindPFlag("resume", runCmd.Flags().Lookup("resume"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(logger.Options{JSON: viper.GetBool("json"), Debug: viper.GetBool("debug")})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the job-matcher", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	filters, err := search.Load(config.SearchConfig)
	if err != nil {
		logger.Fatal("loading search filters", zap.Error(err), zap.String("path", config.SearchConfig))
	}

	candidate, err := profile.Load(config.Profile)
	switch {
	case errors.Is(err, profile.ErrNotFound):
		logger.Warn("profile not found, ranking by recency only", zap.String("path", config.Profile))
	case err != nil:
		logger.Fatal("loading profile", zap.Error(err), zap.String("path", config.Profile))
	}

	resume, err := profile.ReadResume(config.Resume)
	if err != nil {
		logger.Fatal("loading resume", zap.Error(err), zap.String("path", config.Resume))
	}
	if candidate.IsEmpty() && resume == "" {
		logger.Warn("neither a profile nor a resume is set, documents get no cover letters",
			zap.String("hint", "pass --resume or create the profile"))
	}

	opts := pipeline.Options{
		SkipScrape:   flagBool(cmd, "skip-scrape"),
		ForceScrape:  flagBool(cmd, "force-scrape"),
		FromParsed:   flagBool(cmd, "from-parsed"),
		CacheMaxAge:  config.Feed.CacheMaxAge,
		Threshold:    flagFloat(cmd, "threshold"),
		MaxJobs:      flagInt(cmd, "max-jobs"),
		SkipAnalyze:  flagBool(cmd, "skip-analyze"),
		SkipGenerate: flagBool(cmd, "skip-generate"),
	}
	if opts.SkipScrape && opts.ForceScrape {
		logger.Fatal("--skip-scrape and --force-scrape are mutually exclusive")
	}

	config.Enrich.Force = flagBool(cmd, "redo")

	var (
		analyzer ai.Analyzer
		writer   ai.Writer
	)
	if !opts.SkipGenerate && config.AI.Enabled {
		analyzer, writer, err = newAI(ctx, config.AI, logger)
		if err != nil {
			logger.Warn("continuing without llm, documents use the template only", zap.Error(err))
		}
	}

	p, err := pipeline.New(pipeline.Config{
		Paths:        config.paths(),
		Filters:      filters,
		SearchConfig: config.SearchConfig,
		Profile:      candidate,
		Resume:       resume,
		Weights:      config.weights(),
		Fetcher:      newFeed(ctx, config.Feed, logger),
		Analyzer:     analyzer,
		Writer:       writer,
		Enrich:       *config.Enrich,
		Chooser:      chooser(cmd, logger),
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal("creating the pipeline", zap.Error(err))
	}

	out, err := p.Run(ctx, opts)
	switch {
	case errors.Is(err, pipeline.ErrNoSurvivingJobs):
		logSummary(logger, out)
		logger.Info("exiting",
			zap.String("reason", "no jobs left after filters"),
			zap.String("hint", "widen the search filters or check the dropped counts above"),
		)
		return
	case errors.Is(err, pipeline.ErrNoRawFeed):
		logger.Fatal("exiting", zap.Error(err), zap.String("hint", "run without --skip-scrape first"))
	case err != nil:
		logger.Fatal("running the pipeline", zap.Error(err))
	}

	logSummary(logger, out)
}

func newFeed(ctx context.Context, cfg *FeedConfig, logger *zap.Logger) *feed.Client {
	client := feed.New(ctx, logger, cfg.RequestsPerSecond)
	if cfg.BaseURL != "" {
		client.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.UserAgent != "" {
		client.UserAgent = cfg.UserAgent
	}
	return client
}

func newAI(ctx context.Context, cfg *AIConfig, l *zap.Logger) (ai.Analyzer, ai.Writer, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != ai.ProviderGemini {
		return nil, nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Value: cfg.Gemini.APIKey,
		Env:   []string{"GEMINI_API_KEY"},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	geminiCfg := cfg.Gemini.Config
	geminiCfg.APIKey = apiKey

	generator, err := gemini.NewGenerator(ctx, geminiCfg)
	if err != nil {
		return nil, nil, err
	}

	return gemini.NewAnalyzer(generator, l, cfg.Gemini.MaxLogLength),
		gemini.NewWriter(generator, l, cfg.Gemini.MaxLogLength),
		nil
}

// chooser asks how many qualifying jobs get documents unless the answer was
// given on the command line.
func chooser(cmd *cobra.Command, logger *zap.Logger) pipeline.Chooser {
	if cmd.Flags().Changed("select") {
		return pipeline.AutoSelect(flagInt(cmd, "select"))
	}
	if flagBool(cmd, "yes") {
		return pipeline.AutoSelect(pipeline.DefaultSelect)
	}

	return func(qualifying []*jobs.Job) (int, error) {
		logger.Info("qualifying jobs", zap.Int("count", len(qualifying)))
		for i, job := range qualifying {
			logger.Info(fmt.Sprintf("%d. %s", i+1, job.Title), zapJob(job)...)
		}

		for {
			_, action, err := prompt.Run()
			if err != nil {
				return 0, err
			}

			switch action {
			case PromptGenerate:
				return askCount(len(qualifying))
			case PromptReportByCompanies:
				pretty, _ := json.MarshalIndent(jobs.New(qualifying).ReportByCompany(), "", "  ")
				logger.Info(string(pretty), zap.Int("jobs count", len(qualifying)))
			case PromptSkip:
				return 0, nil
			default:
				return 0, fmt.Errorf("invalid action: %s", action)
			}
		}
	}
}

func askCount(available int) (int, error) {
	countPrompt := promptui.Prompt{
		Label:    fmt.Sprintf("How many jobs (0-%d)", available),
		Default:  strconv.Itoa(min(pipeline.DefaultSelect, available)),
		Validate: func(input string) error { _, err := parseCount(input, available); return err },
	}

	input, err := countPrompt.Run()
	if err != nil {
		return 0, err
	}
	return parseCount(input, available)
}

// parseCount reads a count between 0 and available. Empty input means the default.
func parseCount(input string, available int) (int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return min(pipeline.DefaultSelect, available), nil
	}

	n, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", input)
	}
	if n < 0 || n > available {
		return 0, fmt.Errorf("must be between 0 and %d", available)
	}
	return n, nil
}

func zapJob(job *jobs.Job) []zap.Field {
	fields := []zap.Field{
		zap.String(logger.FieldCompany, job.Company),
		zap.String("location", job.PrimaryLocation()),
	}
	if job.Score != nil {
		fields = append(fields, zap.Float64("score", job.Score.Total))
	}
	return fields
}

func logSummary(logger *zap.Logger, out *pipeline.Outcome) {
	if out == nil {
		return
	}

	for _, step := range out.Steps {
		logger.Info("filter step",
			zap.String("name", step.Name),
			zap.Int("initial", step.Initial),
			zap.Int("dropped", step.Dropped),
			zap.Int("left", step.Left),
		)
	}

	logger.Info("run summary",
		zap.Int("raw", out.Raw),
		zap.Bool("from_cache", out.FromCache),
		zap.Int("malformed", out.Normalize.Malformed),
		zap.Int("duplicates", out.Deduped),
		zap.Int("ranked", len(out.Ranked)),
		zap.Int("qualifying", len(out.Qualifying)),
		zap.Int("selected", len(out.Selected)),
		zap.Stringer("analysis", out.Analysis),
		zap.Stringer("documents", out.Documents),
		zap.String("report", out.ReportPath),
		zap.Bool("resume_only", out.ResumeOnly),
	)
}

func flagBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}

func flagInt(cmd *cobra.Command, name string) int {
	v, _ := cmd.Flags().GetInt(name)
	return v
}

func flagFloat(cmd *cobra.Command, name string) float64 {
	v, _ := cmd.Flags().GetFloat64(name)
	return v
}
