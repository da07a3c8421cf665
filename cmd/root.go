package cmd

import (
	"fmt"
	"os"

	"github.com/killallgit/sttclient/internal/logging"
	"github.com/killallgit/sttclient/pkg/config"
	"github.com/spf13/cobra"
)

// skipConfig marks commands that run without loading configuration
const skipConfig = "skip-config"

var (
	cfgFile   string
	logLevel  string
	appConfig *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sttclient",
	Short: "Speech-to-text client",
	Long: `sttclient - orchestration client for a remote speech-to-text backend

Adds local audio files, uploads them to the backend, tracks transcription
progress over polling and push events, manages the model catalog and
exports finished transcripts.

Without a configured backend the transcription pipeline is simulated.`,
	SilenceUsage:      true,
	PersistentPreRunE: initialize,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// NewRootCmd returns the root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config/settings.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides logging.level")
}

// initialize loads configuration and sets up logging before any command runs
func initialize(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipConfig] == "true" {
		logging.Init(logLevel)
		return nil
	}

	config.SetConfigFile(cfgFile)
	if err := config.Init(); err != nil {
		return fmt.Errorf("error initializing config: %w", err)
	}

	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	appConfig = cfg

	level := logLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logging.Init(level)
	return nil
}
