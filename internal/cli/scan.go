package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/cardaudit/internal/model"
	"github.com/ppiankov/cardaudit/internal/pipeline"
	"github.com/ppiankov/cardaudit/internal/store"
)

var (
	outJSON     string
	scanTimeout time.Duration
)

// scoreCmd represents the single-card command
var scoreCmd = &cobra.Command{
	Use:   "score <model-card>",
	Short: "Score a single model card",
	Long: `Score runs both stages for one model card and prints the
per-requirement breakdown.

Example:
  cardaudit score data/model_cards/gpt-4o.md
  cardaudit score card.pdf --json gpt-4o.json
  STAGE_B_MODEL=openai/gpt-4o cardaudit score card.md`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVar(&outJSON, "json", "", "also write the report to this path as a JSON array")
	scoreCmd.Flags().DurationVar(&scanTimeout, "timeout", 30*time.Minute, "timeout for scoring the card")
}

func runScore(cmd *cobra.Command, args []string) error {
	path := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if verbose {
		fmt.Fprintf(os.Stderr, "Scoring: %s\n", path)
		fmt.Fprintf(os.Stderr, "Stage A: %s\n", cfg.StageA.Model)
		fmt.Fprintf(os.Stderr, "Stage B: %s\n", cfg.StageB.Model)
		fmt.Fprintln(os.Stderr)
	}

	started := time.Now()
	report, err := a.pipeline.ScoreDocument(ctx, path)
	if err != nil {
		return fmt.Errorf("score failed: %w", err)
	}
	logger.Debug("model card scored", zap.String("path", path), zap.Duration("elapsed", time.Since(started)))

	pipeline.NewRenderer(os.Stdout).RenderReport(report, a.rubric)

	if outJSON != "" {
		sink := store.NewJSONFileSink(outJSON)
		if err := sink.Save(ctx, uuid.NewString(), []*model.ModelReport{report}); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", outJSON)
	}
	return nil
}
