package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pders01/modelkeep/internal/models"
	"github.com/pders01/modelkeep/internal/predict"
)

var feedbackNotHelpful bool

var feedbackCmd = &cobra.Command{
	Use:   "feedback <input> <response>",
	Short: "Record a labeled interaction for incremental updates",
	Long: `Append one (input, expected response) pair to the persisted
feedback buffer. A host process folds buffered feedback into its next
update pass. Interactions marked not helpful are discarded.

Examples:
  modelkeep feedback "where is the export button" "Settings → Data → Export."
  modelkeep feedback "bad question" "bad answer" --not-helpful`,
	Args: cobra.ExactArgs(2),
	RunE: runFeedback,
}

func init() {
	rootCmd.AddCommand(feedbackCmd)

	feedbackCmd.Flags().BoolVar(&feedbackNotHelpful, "not-helpful", false, "Mark the interaction unhelpful (discarded)")
}

func runFeedback(cmd *cobra.Command, args []string) error {
	if feedbackNotHelpful {
		fmt.Println("Interaction discarded")
		return nil
	}

	input := predict.Normalize(args[0])
	response := predict.Normalize(args[1])
	if input == "" || response == "" {
		return fmt.Errorf("input and response must be non-empty")
	}

	st, err := newStore()
	if err != nil {
		return err
	}

	entries, err := st.LoadFeedback()
	if err != nil {
		return err
	}

	entries = append(entries, models.FeedbackEntry{
		Input:     input,
		Expected:  response,
		CreatedAt: time.Now(),
	})

	if err := st.SaveFeedback(entries); err != nil {
		return err
	}

	fmt.Printf("✓ Recorded (%d entries buffered)\n", len(entries))
	return nil
}
