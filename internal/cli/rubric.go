package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cardaudit/internal/pipeline"
	"github.com/ppiankov/cardaudit/internal/store"
)

// rubricCmd lists the requirements that will be scored
var rubricCmd = &cobra.Command{
	Use:   "rubric",
	Short: "List rubric requirements grouped by framework",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		rub, err := loadRubric(cfg)
		if err != nil {
			return err
		}

		groups := rub.GroupByFramework()
		fmt.Printf("%s (%d requirements)\n\n", cfg.Paths.Rubric, rub.Len())
		for _, framework := range rub.Frameworks() {
			fmt.Printf("%s (%d)\n", framework, len(groups[framework]))
			for _, id := range groups[framework] {
				req, _ := rub.Get(id)
				fmt.Printf("  %-14s %-18s %s\n", req.ID, req.Category, req.ShortName)
			}
			fmt.Println()
		}
		return nil
	},
}

// leaderboardCmd re-renders the leaderboard of a previous run
var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard [scores.json]",
	Short: "Print the leaderboard from a results file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path := filepath.Join(cfg.Paths.Results, store.ScoresFile)
		if len(args) == 1 {
			path = args[0]
		}

		reports, err := store.LoadJSON(path)
		if err != nil {
			return err
		}
		pipeline.NewRenderer(os.Stdout).RenderLeaderboard(reports)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rubricCmd)
	rootCmd.AddCommand(leaderboardCmd)
}
