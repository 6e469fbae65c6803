package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/alpkeskin/gotoon"
	"github.com/spf13/cobra"

	"github.com/pders01/modelkeep/internal/integrity"
	"github.com/pders01/modelkeep/internal/models"
)

var (
	modelsJSON bool
	modelsToon bool
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List model roles and their artifact state",
	Long: `List every model role with its on-disk artifact state:
  - whether a bundled (shipped) artifact exists
  - whether an installed (mutable) artifact exists
  - whether the installed artifact's signature is trusted

Examples:
  modelkeep models
  modelkeep models --json
  modelkeep models --toon`,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)

	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "Output as JSON")
	modelsCmd.Flags().BoolVar(&modelsToon, "toon", false, "Output in LLM-friendly toon format")
}

type modelInfo struct {
	Identity  string `json:"identity"`
	Bundled   bool   `json:"bundled"`
	Installed bool   `json:"installed"`
	Trusted   bool   `json:"trusted"`
	Baseline  string `json:"baseline,omitempty"`
	Digest    string `json:"installed_digest,omitempty"`
	Size      int64  `json:"installed_size,omitempty"`
}

func runModels(cmd *cobra.Command, args []string) error {
	st, err := newStore()
	if err != nil {
		return err
	}
	verifier := newVerifier(st, nil)

	var infos []modelInfo
	for _, id := range models.AllIdentities() {
		info := modelInfo{Identity: id.String()}

		if _, ok := st.BundledPath(id); ok {
			info.Bundled = true
			if baseline, err := verifier.BaselineSignature(id); err == nil {
				info.Baseline = baseline
			}
		}

		installed := st.InstalledPath(id)
		if st.Exists(installed) {
			info.Installed = true
			info.Trusted = verifier.Verify(cmd.Context(), id, installed)
			if digest, err := integrity.Digest(installed); err == nil {
				info.Digest = digest
			}
			if stat, err := os.Stat(installed); err == nil {
				info.Size = stat.Size()
			}
		}

		infos = append(infos, info)
	}

	// Output JSON if requested
	if modelsJSON {
		output, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	// Output Toon if requested
	if modelsToon {
		output, err := gotoon.Encode(infos)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	fmt.Printf("Found %d model role(s):\n\n", len(infos))
	for _, info := range infos {
		fmt.Printf("  %s\n", info.Identity)
		fmt.Printf("    Bundled:   %v\n", info.Bundled)
		fmt.Printf("    Installed: %v\n", info.Installed)
		if info.Installed {
			fmt.Printf("    Trusted:   %v\n", info.Trusted)
			fmt.Printf("    Size:      %d bytes\n", info.Size)
			fmt.Printf("    Digest:    %s\n", shortDigest(info.Digest))
		}
		if info.Baseline != "" {
			fmt.Printf("    Baseline:  %s\n", shortDigest(info.Baseline))
		}
		fmt.Println()
	}

	return nil
}

func shortDigest(digest string) string {
	if len(digest) > 16 {
		return digest[:16] + "…"
	}
	return digest
}
