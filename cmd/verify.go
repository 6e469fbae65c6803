package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pders01/modelkeep/internal/models"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [identity]",
	Short: "Force an integrity check of installed artifacts",
	Long: `Verify installed artifacts against the bundled baseline and the
approved-signature list. An untrusted installed artifact is replaced with
the bundled copy and re-verified.

Examples:
  modelkeep verify
  modelkeep verify text-generator`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	st, err := newStore()
	if err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	verifier := newVerifier(st, log)

	ids := models.AllIdentities()
	if len(args) == 1 {
		id, err := models.ParseIdentity(args[0])
		if err != nil {
			return err
		}
		ids = []models.Identity{id}
	}

	var failures int
	for _, id := range ids {
		if _, ok := st.ResolvePath(id); !ok {
			fmt.Printf("  %-20s no artifact\n", id)
			continue
		}

		ok, err := verifier.Enforce(cmd.Context(), id)
		switch {
		case err != nil:
			failures++
			fmt.Printf("  %-20s ERROR: %v\n", id, err)
		case ok:
			fmt.Printf("  %-20s trusted\n", id)
		default:
			failures++
			fmt.Printf("  %-20s UNTRUSTED after restoration\n", id)
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d model(s) failed verification", failures)
	}

	fmt.Println("\n✓ All artifacts verified")
	return nil
}
