package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pders01/modelkeep/internal/config"
	"github.com/pders01/modelkeep/internal/feedback"
	"github.com/pders01/modelkeep/internal/integrity"
	"github.com/pders01/modelkeep/internal/logging"
	"github.com/pders01/modelkeep/internal/manager"
	"github.com/pders01/modelkeep/internal/predict"
	"github.com/pders01/modelkeep/internal/store"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "modelkeep",
	Short: "On-device model lifecycle manager",
	Long: `modelkeep loads, verifies, and incrementally updates local ML models:
  - verified supply chain: only artifacts matching the bundled baseline
    or an approved signature are ever used for inference
  - tampered installed artifacts are restored from the bundled copy
  - user feedback accumulates into incremental update passes that swap
    in a new verified artifact

The chat surface consuming predictions lives outside this tool.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/modelkeep/config.toml)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "modelkeep")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("toml")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()

	home, _ := os.UserHomeDir()
	shareDir := filepath.Join(home, ".local", "share", "modelkeep")

	// Set defaults
	viper.SetDefault("models.data_dir", shareDir)
	viper.SetDefault("models.bundled_dir", filepath.Join(shareDir, "bundled"))
	viper.SetDefault("integrity.sweep_interval", time.Hour)
	viper.SetDefault("integrity.approved_signatures", []string{})
	viper.SetDefault("feedback.threshold", 20)
	viper.SetDefault("feedback.interval", time.Hour)
	viper.SetDefault("predict.backend", "stub")
	viper.SetDefault("predict.ollama_url", "http://localhost:11434")
	viper.SetDefault("predict.ollama_model", "llama3.2:1b")
	viper.SetDefault("predict.max_tokens", 256)
	viper.SetDefault("predict.workers", 4)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the configured zap logger.
func newLogger() (*zap.Logger, error) {
	return logging.New(config.GetLogLevel(), config.GetLogFormat())
}

// newStore builds the artifact store from config.
func newStore() (*store.Store, error) {
	return store.New(config.GetBundledDir(), config.GetDataDir())
}

// newVerifier builds the integrity verifier from config.
func newVerifier(st *store.Store, log *zap.Logger) *integrity.Verifier {
	return integrity.NewVerifier(st, config.GetApprovedSignatures(), log)
}

// newBackend selects the inference backend from config.
func newBackend() (predict.Backend, error) {
	switch config.GetBackend() {
	case "ollama":
		return predict.NewOllamaBackend(config.GetOllamaURL(), config.GetOllamaModel())
	case "stub", "":
		return &predict.StaticBackend{Default: "acknowledged"}, nil
	default:
		return nil, fmt.Errorf("unknown inference backend %q", config.GetBackend())
	}
}

// newManager builds the full service graph from config.
func newManager() (*manager.Manager, *zap.Logger, error) {
	log, err := newLogger()
	if err != nil {
		return nil, nil, err
	}

	backend, err := newBackend()
	if err != nil {
		return nil, nil, err
	}

	m, err := manager.New(manager.Options{
		BundledDir:         config.GetBundledDir(),
		DataDir:            config.GetDataDir(),
		ApprovedSignatures: config.GetApprovedSignatures(),
		SweepInterval:      config.GetSweepInterval(),
		FeedbackThreshold:  config.GetFeedbackThreshold(),
		FeedbackInterval:   config.GetFeedbackInterval(),
		Backend:            backend,
		Trainer:            feedback.ExampleTrainer{},
		Workers:            config.GetPredictWorkers(),
		MaxTokens:          config.GetMaxTokens(),
		Logger:             log,
	})
	if err != nil {
		return nil, nil, err
	}

	return m, log, nil
}
