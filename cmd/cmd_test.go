package cmd

import (
	"testing"

	"github.com/spf13/viper"

	"github.com/pders01/modelkeep/internal/testutil"
)

// setupTestEnv points the config at a temporary artifact layout.
func setupTestEnv(t *testing.T) *testutil.TempModelDir {
	t.Helper()

	dir := testutil.NewTempModelDir(t)

	viper.Set("models.bundled_dir", dir.BundledDir)
	viper.Set("models.data_dir", dir.DataDir)
	viper.Set("integrity.approved_signatures", []string{})
	viper.Set("predict.backend", "stub")
	viper.Set("predict.workers", 2)
	viper.Set("predict.max_tokens", 0)
	viper.Set("feedback.threshold", 100)
	viper.Set("log.level", "error")
	viper.Set("log.format", "console")
	t.Cleanup(viper.Reset)

	return dir
}
