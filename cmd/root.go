package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/job-matcher/internal/ai/gemini"
	"github.com/spigell/job-matcher/internal/enrich"
	"github.com/spigell/job-matcher/internal/feed"
	"github.com/spigell/job-matcher/internal/pipeline"
	"github.com/spigell/job-matcher/internal/scoring"
)

const (
	app       = "job-matcher"
	envPrefix = "JOB_MATCHER"
)

type Config struct {
	WorkDir      string          `mapstructure:"work-dir"`
	OutputDir    string          `mapstructure:"output-dir"`
	SearchConfig string          `mapstructure:"search-config"`
	Profile      string          `mapstructure:"profile"`
	Resume       string          `mapstructure:"resume"`
	Feed         *FeedConfig     `mapstructure:"feed"`
	Scoring      *ScoringConfig  `mapstructure:"scoring"`
	AI           *AIConfig       `mapstructure:"ai"`
	Enrich       *enrich.Options `mapstructure:"enrich"`
}

type FeedConfig struct {
	BaseURL           string        `mapstructure:"base-url"`
	UserAgent         string        `mapstructure:"user-agent"`
	RequestsPerSecond float64       `mapstructure:"requests-per-second"`
	CacheMaxAge       time.Duration `mapstructure:"cache-max-age"`
}

type ScoringConfig struct {
	Weights *scoring.Weights `mapstructure:"weights"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	gemini.Config `mapstructure:",squash"`
	APIKeyFile    string `mapstructure:"api-key-file"`
	MaxLogLength  int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "job-matcher collects job postings, filters and scores them against a profile and drafts applications",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is job-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("work-dir", pipeline.DefaultWorkDir, "directory for intermediate artifacts")
	rootCmd.PersistentFlags().String("output-dir", pipeline.DefaultOutputDir, "directory for the report and application documents")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("work-dir", rootCmd.PersistentFlags().Lookup("work-dir"))
	viper.BindPFlag("output-dir", rootCmd.PersistentFlags().Lookup("output-dir"))

	viper.SetDefault("feed.cache-max-age", feed.DefaultMaxAge)
	viper.SetDefault("feed.requests-per-second", 1)
	viper.SetDefault("ai.enabled", true)
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("enrich.concurrency", enrich.DefaultConcurrency)
	viper.SetDefault("enrich.requests-per-second", enrich.DefaultRequestsPerSecond)
}

func initConfig() {
	// A missing .env is fine; the variables may come from the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %s", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional, but a broken one is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Feed == nil {
		config.Feed = &FeedConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.Enrich == nil {
		config.Enrich = &enrich.Options{}
	}

	return config, nil
}

func (c *Config) weights() scoring.Weights {
	if c.Scoring == nil || c.Scoring.Weights == nil {
		return scoring.DefaultWeights()
	}
	return *c.Scoring.Weights
}

func (c *Config) paths() pipeline.Paths {
	return pipeline.Paths{WorkDir: c.WorkDir, OutputDir: c.OutputDir}
}
