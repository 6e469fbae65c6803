package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pders01/modelkeep/internal/models"
)

var predictContext string

var predictCmd = &cobra.Command{
	Use:   "predict <identity> <text>",
	Short: "Run a one-shot prediction",
	Long: `Load the model for the given role (verifying its artifact first)
and produce a decoded prediction for the text.

Examples:
  modelkeep predict text-generator "how do I export my data"
  modelkeep predict intent-classifier "cancel my subscription" --context "user is on the billing page"`,
	Args: cobra.ExactArgs(2),
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().StringVar(&predictContext, "context", "", "Conversation context prepended to the input")
}

func runPredict(cmd *cobra.Command, args []string) error {
	id, err := models.ParseIdentity(args[0])
	if err != nil {
		return err
	}

	m, log, err := newManager()
	if err != nil {
		return err
	}
	defer log.Sync()

	out, err := m.RequestPrediction(cmd.Context(), id, args[1], predictContext)
	if err != nil {
		return fmt.Errorf("prediction failed: %w", err)
	}

	fmt.Println(out)
	return nil
}
