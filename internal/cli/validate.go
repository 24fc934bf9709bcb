package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/cardaudit/internal/agreement"
	"github.com/ppiankov/cardaudit/internal/model"
	"github.com/ppiankov/cardaudit/internal/store"
)

const (
	disagreementsFile = "disagreements.json"
	agreementFile     = "agreement_report.md"
)

var scoresPath string

// validateCmd compares automated scores with a human rater
var validateCmd = &cobra.Command{
	Use:   "validate [human_scores.csv]",
	Short: "Measure agreement between automated and human scores",
	Long: `Validate joins a rater CSV (model, requirement_id, score columns) with
results/scores.json and reports exact and within-one agreement, linear
weighted Cohen's kappa, mean scores and over/under-scoring counts.

Writes validation/agreement_report.md and results/disagreements.json.

Example:
  cardaudit validate
  cardaudit validate rater2.csv --scores results/scores.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		humanPath := filepath.Join(cfg.Paths.Validation, agreement.HumanScoresFile)
		if len(args) == 1 {
			humanPath = args[0]
		}
		scores := scoresPath
		if scores == "" {
			scores = filepath.Join(cfg.Paths.Results, store.ScoresFile)
		}

		_, err = runValidation(cfg, humanPath, scores, os.Stdout)
		return err
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&scoresPath, "scores", "", "results file (default: <results>/scores.json)")
}

// runValidation computes agreement, writes the report and the disagreement
// dump, and prints a summary to out
func runValidation(cfg *model.Config, humanPath, scoresFile string, out io.Writer) (agreement.Metrics, error) {
	human, err := agreement.LoadHumanCSV(humanPath)
	if err != nil {
		return agreement.Metrics{}, err
	}
	reports, err := store.LoadJSON(scoresFile)
	if err != nil {
		return agreement.Metrics{}, err
	}

	comparisons := agreement.Match(human, reports)
	metrics := agreement.Compute(comparisons)
	logger.Info("agreement computed",
		zap.Int("human_rows", len(human)),
		zap.Int("comparisons", metrics.Comparisons))

	var report bytes.Buffer
	if err := agreement.WriteReport(&report, metrics); err != nil {
		return metrics, err
	}
	reportPath := filepath.Join(cfg.Paths.Validation, agreementFile)
	if err := writeFile(reportPath, report.Bytes()); err != nil {
		return metrics, err
	}

	dump, err := json.MarshalIndent(agreement.Disagreements(comparisons), "", "  ")
	if err != nil {
		return metrics, fmt.Errorf("marshal disagreements: %w", err)
	}
	dumpPath := filepath.Join(cfg.Paths.Results, disagreementsFile)
	if err := writeFile(dumpPath, dump); err != nil {
		return metrics, err
	}

	fmt.Fprintf(out, "\n%s\n", rule)
	fmt.Fprintf(out, "  Agreement\n")
	fmt.Fprintf(out, "%s\n\n", rule)
	fmt.Fprint(out, report.String())
	fmt.Fprintf(out, "\n  Report:        %s\n", reportPath)
	fmt.Fprintf(out, "  Disagreements: %s\n\n", dumpPath)
	return metrics, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
