package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/pipeline"
	"github.com/spigell/job-matcher/internal/search"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Rebuild the summary report from the scored jobs of the last run",
	Run: func(cmd *cobra.Command, _ []string) {
		report(cmd)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("search-config", defaultSearchConfig, "search filters file")
	reportCmd.Flags().Float64("threshold", pipeline.DefaultThreshold, "score marking the qualifying line in the report")
}

func report(cmd *cobra.Command) {
	logger, err := logger.New(logger.Options{JSON: viper.GetBool("json"), Debug: viper.GetBool("debug")})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	path := config.SearchConfig
	if cmd.Flags().Changed("search-config") || path == "" {
		path, _ = cmd.Flags().GetString("search-config")
	}

	filters, err := search.Load(path)
	if err != nil {
		logger.Fatal("loading search filters", zap.Error(err), zap.String("path", path))
	}

	p, err := pipeline.New(pipeline.Config{
		Paths:   config.paths(),
		Filters: filters,
		Weights: config.weights(),
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("creating the pipeline", zap.Error(err))
	}

	written, err := p.Report(flagFloat(cmd, "threshold"), time.Time{})
	if err != nil {
		logger.Fatal("writing the report", zap.Error(err))
	}

	logger.Info("report written", zap.String("path", written))
}
