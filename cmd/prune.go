package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pders01/modelkeep/internal/models"
)

var (
	pruneDryRun bool
	pruneForce  bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune [identity]",
	Short: "Remove installed artifacts, reverting to bundled copies",
	Long: `Remove the mutable installed artifacts so the shipped bundled
copies become authoritative again. Accumulated incremental updates are
lost.

Example:
  modelkeep prune              # Show what would be removed
  modelkeep prune --force      # Actually remove installed artifacts`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", true, "Show what would be removed without deleting")
	pruneCmd.Flags().BoolVar(&pruneForce, "force", false, "Actually delete installed artifacts (overrides dry-run)")
}

func runPrune(cmd *cobra.Command, args []string) error {
	st, err := newStore()
	if err != nil {
		return err
	}

	ids := models.AllIdentities()
	if len(args) == 1 {
		id, err := models.ParseIdentity(args[0])
		if err != nil {
			return err
		}
		ids = []models.Identity{id}
	}

	var candidates []models.Identity
	for _, id := range ids {
		if st.Exists(st.InstalledPath(id)) {
			candidates = append(candidates, id)
		}
	}

	if len(candidates) == 0 {
		fmt.Println("No installed artifacts to prune")
		return nil
	}

	fmt.Printf("Installed artifacts to remove (%d):\n\n", len(candidates))
	for _, id := range candidates {
		path := st.InstalledPath(id)
		var size int64
		if stat, err := os.Stat(path); err == nil {
			size = stat.Size()
		}
		fmt.Printf("  %s (%d bytes)\n", id, size)
		if _, ok := st.BundledPath(id); !ok {
			fmt.Printf("    Warning: no bundled fallback exists for this role\n")
		}
	}

	if pruneForce && !pruneDryRun {
		fmt.Println("\nRemoving installed artifacts...")
		for _, id := range candidates {
			if err := st.RemoveInstalled(id); err != nil {
				fmt.Printf("  Error removing %s: %v\n", id, err)
			} else {
				fmt.Printf("  ✓ Removed %s\n", id)
			}
		}
	} else {
		fmt.Println("\nThis is a dry run. Use --force to actually remove artifacts.")
	}

	return nil
}
