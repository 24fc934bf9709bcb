package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/cardaudit/internal/pipeline"
	"github.com/ppiankov/cardaudit/internal/store"
	"github.com/ppiankov/cardaudit/internal/worker"
)

var (
	listFile     string
	batchTimeout time.Duration
)

// runCmd represents the batch scoring command
var runCmd = &cobra.Command{
	Use:   "run [model-card-dir]",
	Short: "Score every model card in a directory",
	Long: `Run scores model cards in parallel and writes results/scores.json:
- Read every .md, .txt, .html and .pdf card in the directory (or the --list file)
- Score each card against every requirement in the rubric
- Write all reports as one JSON array, and upsert them into MongoDB when configured
- Print a leaderboard sorted by overall percentage

A card that fails is reported and the rest of the batch continues.

Example:
  cardaudit run
  cardaudit run data/model_cards --workers 4
  cardaudit run --list cards.txt --doc-timeout 20m`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&listFile, "list", "", "file listing model card paths, one per line")
	runCmd.Flags().DurationVar(&batchTimeout, "timeout", 0, "total timeout for the batch (0 disables)")
	runCmd.Flags().Int("workers", 0, "model cards scored in parallel")
	runCmd.Flags().Duration("doc-timeout", 0, "timeout for a single model card (0 disables)")
	runCmd.Flags().String("results", "", "results directory")
	runCmd.Flags().String("mongo-uri", "", "MongoDB URI for report upserts")

	_ = viper.BindPFlag("concurrency.workers", runCmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("concurrency.doc_timeout", runCmd.Flags().Lookup("doc-timeout"))
	_ = viper.BindPFlag("paths.results", runCmd.Flags().Lookup("results"))
	_ = viper.BindPFlag("output.mongo_uri", runCmd.Flags().Lookup("mongo-uri"))
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Paths.ModelCards = args[0]
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if batchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, batchTimeout)
		defer cancel()
	}

	runID := uuid.NewString()
	log := logger.With(zap.String("run_id", runID))

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	input := cfg.Paths.ModelCards
	if listFile != "" {
		input = listFile
	}

	fmt.Fprintf(os.Stderr, "\n%s\n", rule)
	fmt.Fprintf(os.Stderr, "  cardaudit Batch Scoring\n")
	fmt.Fprintf(os.Stderr, "%s\n\n", rule)
	fmt.Fprintf(os.Stderr, "  Input:        %s\n", input)
	fmt.Fprintf(os.Stderr, "  Requirements: %d (%d frameworks)\n", a.rubric.Len(), len(a.rubric.Frameworks()))
	fmt.Fprintf(os.Stderr, "  Stage A:      %s (ceiling %d)\n", cfg.StageA.Model, cfg.StageA.Concurrency)
	fmt.Fprintf(os.Stderr, "  Stage B:      %s (ceiling %d)\n", cfg.StageB.Model, cfg.StageB.Concurrency)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Cache:        %s\n", cacheLabel(cfg.Cache.Enabled, cfg.Cache.Backend))
	fmt.Fprintf(os.Stderr, "  Run ID:       %s\n\n", runID)

	processor := worker.NewBatchProcessor(a.pipeline, cfg.Concurrency.Workers, cfg.Concurrency.DocTimeout, log)

	var results []*worker.DocumentResult
	if listFile != "" {
		results, err = processor.ProcessFile(ctx, listFile)
	} else {
		results, err = processor.ProcessDir(ctx, cfg.Paths.ModelCards)
	}
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("no model cards found in %s", input)
	}

	failed := worker.Failed(results)
	for _, r := range results {
		if r.Error != nil {
			fmt.Fprintf(os.Stderr, "%s %s: %v\n", color.RedString("✗"), r.Name, r.Error)
			continue
		}
		fmt.Fprintf(os.Stderr, "%s %s (overall %.2f%%, %s)\n", color.GreenString("✓"), r.Name,
			r.Report.OverallPercentage, r.Elapsed.Round(time.Second))
	}

	reports := worker.Succeeded(results)
	sink, err := openSinks(ctx, cfg.Paths.Results, cfg.Output.MongoURI, cfg.Output.MongoDatabase, cfg.Output.MongoCollection)
	if err != nil {
		return err
	}
	defer func() { _ = sink.Close(context.Background()) }()

	if err := sink.Save(ctx, runID, reports); err != nil {
		return fmt.Errorf("save results: %w", err)
	}

	pipeline.NewRenderer(os.Stderr).RenderLeaderboard(reports)

	fmt.Fprintf(os.Stderr, "%s\n", rule)
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "%s\n\n", rule)
	fmt.Fprintf(os.Stderr, "  Total:     %d model cards\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", len(reports))
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", len(failed))
	fmt.Fprintf(os.Stderr, "  Results:   %s\n\n", filepath.Join(cfg.Paths.Results, store.ScoresFile))

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d model cards failed", len(failed), len(results))
	}
	return nil
}

// openSinks returns the results file sink plus MongoDB when a URI is set
func openSinks(ctx context.Context, resultsDir, mongoURI, database, collection string) (store.Sink, error) {
	sinks := store.MultiSink{store.NewJSONFileSink(filepath.Join(resultsDir, store.ScoresFile))}
	if mongoURI == "" {
		return sinks, nil
	}

	mongoSink, err := store.NewMongoSink(ctx, mongoURI, database, collection)
	if err != nil {
		return nil, err
	}
	return append(sinks, mongoSink), nil
}

func cacheLabel(enabled bool, backend string) string {
	if !enabled {
		return "disabled"
	}
	if backend == "" {
		return "layered"
	}
	return backend
}
