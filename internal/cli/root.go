package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version is set at build time
var Version = "v0.3.0"

var (
	cfgFile string
	verbose bool
	logger  = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cardaudit",
	Short: "cardaudit - Model card compliance scoring",
	Long: `cardaudit scores AI model cards against governance rubrics
(EU Code of Practice, STREAM, Lab Safety Commitments).

Each model card is split into chunks. Stage A asks an LLM which chunks
carry evidence for each requirement and keeps only quotes that appear
verbatim in the card. Stage B asks a second LLM to score each requirement
from 0 (absent) to 3 (thorough) using that evidence alone.

A requirement with no evidence scores 0 without an LLM call.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command; ctx is cancelled on interrupt
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cardaudit %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.cardaudit/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.PersistentFlags().String("stage-a-model", "", "Stage A model, provider/model (env STAGE_A_MODEL)")
	rootCmd.PersistentFlags().String("stage-b-model", "", "Stage B model, provider/model (env STAGE_B_MODEL)")
	rootCmd.PersistentFlags().String("rubric", "", "requirements file, JSON or YAML")
	rootCmd.PersistentFlags().Bool("no-cache", false, "disable the LLM response cache")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("stage_a.model", rootCmd.PersistentFlags().Lookup("stage-a-model"))
	_ = viper.BindPFlag("stage_b.model", rootCmd.PersistentFlags().Lookup("stage-b-model"))
	_ = viper.BindPFlag("paths.rubric", rootCmd.PersistentFlags().Lookup("rubric"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in .env, the config file and environment variables
func initConfig() {
	_ = godotenv.Load(".env")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".cardaudit"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// CARDAUDIT_STAGE_A_MODEL, CARDAUDIT_CACHE_BACKEND, ...
	viper.SetEnvPrefix("CARDAUDIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Unprefixed names kept for existing deployments
	_ = viper.BindEnv("stage_a.model", "CARDAUDIT_STAGE_A_MODEL", "STAGE_A_MODEL")
	_ = viper.BindEnv("stage_b.model", "CARDAUDIT_STAGE_B_MODEL", "STAGE_B_MODEL")
	_ = viper.BindEnv("stage_a.prompt_version", "CARDAUDIT_STAGE_A_PROMPT_VERSION", "STAGE_A_PROMPT_VERSION")
	_ = viper.BindEnv("stage_b.prompt_version", "CARDAUDIT_STAGE_B_PROMPT_VERSION", "STAGE_B_PROMPT_VERSION")

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}
