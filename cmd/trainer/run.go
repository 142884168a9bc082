package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/hs170703/insightfull/pkg/charts"
	"github.com/hs170703/insightfull/pkg/config"
	"github.com/hs170703/insightfull/pkg/dataset"
	"github.com/hs170703/insightfull/pkg/metadatastore"
	"github.com/hs170703/insightfull/pkg/mlmodel"
	"github.com/hs170703/insightfull/pkg/models"
)

type runOptions struct {
	file     string
	target   string
	model    string
	user     string
	db       string
	out      string
	settings string
	logLevel string
	noCharts bool
}

// skipCharts renders nothing
type skipCharts struct{}

func (skipCharts) Render(charts.Input) models.Charts {
	return models.Charts{}
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the training pipeline on a CSV file",
		Long: `Run the training pipeline on a CSV file and print the evaluation as JSON.

Examples:
  trainer run --file sales.csv --target Sales
  trainer run --file months.csv --target Month --model naive_bayes --out result.json
  trainer run --file sales.csv --target Sales --db results.db --settings pipeline.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "CSV file to train on")
	cmd.Flags().StringVar(&opts.target, "target", "", "target column")
	cmd.Flags().StringVar(&opts.model, "model", string(models.DefaultModelType),
		"model type: linear_regression, logistic_regression or naive_bayes")
	cmd.Flags().StringVar(&opts.user, "user", "cli", "username the result is stored under")
	cmd.Flags().StringVar(&opts.db, "db", "", "SQLite database for the result (in-memory when empty)")
	cmd.Flags().StringVar(&opts.out, "out", "", "write the result JSON to this file instead of stdout")
	cmd.Flags().StringVar(&opts.settings, "settings", "", "YAML pipeline settings file")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	cmd.Flags().BoolVar(&opts.noCharts, "no-charts", false, "omit the base64 chart images from the output")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("target")
	return cmd
}

func runPipeline(opts *runOptions, stdout, stderr io.Writer) error {
	logger := config.NewLogger(opts.logLevel, "text", stderr)

	settings, err := config.LoadPipelineSettings(opts.settings)
	if err != nil {
		return err
	}

	ds, err := dataset.LoadCSV(opts.file)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", opts.file, err)
	}

	dsn := opts.db
	if dsn == "" {
		dsn = metadatastore.MemoryDSN
	}
	store, err := metadatastore.NewSQLiteStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to open result store: %w", err)
	}
	defer store.Close()

	filename := filepath.Base(opts.file)
	cache := dataset.NewCache(time.Hour, nil, logger)
	cache.Put(opts.user, filename, ds)

	service := mlmodel.NewService(cache, store, settings, logger)
	if opts.noCharts {
		service.WithChartRenderer(skipCharts{})
	}
	result, err := service.Predict(opts.user, &models.PredictionRequest{
		Filename:     filename,
		TargetColumn: opts.target,
		ModelType:    models.ModelType(opts.model),
	})
	if err != nil {
		if pe, ok := models.AsPipelineError(err); ok {
			return fmt.Errorf("%s (%s)", pe.Message, pe.Code)
		}
		return err
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	data = append(data, '\n')

	if opts.out == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(opts.out, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.out, err)
	}
	fmt.Fprintf(stderr, "wrote %s result for %s to %s\n", result.TaskType, opts.target, opts.out)
	return nil
}
