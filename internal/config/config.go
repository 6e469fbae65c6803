package config

import (
	"time"

	"github.com/spf13/viper"
)

// GetDataDir returns the writable base directory for model artifacts
func GetDataDir() string {
	return viper.GetString("models.data_dir")
}

// GetBundledDir returns the read-only directory holding shipped artifacts
func GetBundledDir() string {
	return viper.GetString("models.bundled_dir")
}

// GetApprovedSignatures returns extra trusted artifact digests (hex SHA-256)
func GetApprovedSignatures() []string {
	return viper.GetStringSlice("integrity.approved_signatures")
}

// GetSweepInterval returns the period between background integrity sweeps
func GetSweepInterval() time.Duration {
	return viper.GetDuration("integrity.sweep_interval")
}

// GetFeedbackThreshold returns the buffer size that triggers an update pass
func GetFeedbackThreshold() int {
	return viper.GetInt("feedback.threshold")
}

// GetFeedbackInterval returns the period between timer-driven update passes
func GetFeedbackInterval() time.Duration {
	return viper.GetDuration("feedback.interval")
}

// GetBackend returns the inference backend name ("stub" or "ollama")
func GetBackend() string {
	return viper.GetString("predict.backend")
}

// GetOllamaURL returns the Ollama API endpoint
func GetOllamaURL() string {
	return viper.GetString("predict.ollama_url")
}

// GetOllamaModel returns the Ollama model name used for generation
func GetOllamaModel() string {
	return viper.GetString("predict.ollama_model")
}

// GetMaxTokens returns the input token budget for prediction requests
func GetMaxTokens() int {
	return viper.GetInt("predict.max_tokens")
}

// GetPredictWorkers returns the size of the inference worker pool
func GetPredictWorkers() int {
	return viper.GetInt("predict.workers")
}

// GetLogLevel returns the logging level (debug, info, warn, error)
func GetLogLevel() string {
	return viper.GetString("log.level")
}

// GetLogFormat returns the logging format ("console" or "json")
func GetLogFormat() string {
	return viper.GetString("log.format")
}
