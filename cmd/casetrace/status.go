package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/casetrace/casetrace-go/internal/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store contents and per-case evidence counts",
	Long:  `Display the evidence store location, item and case counts, analysis coverage and any orphaned artifacts.`,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	fmt.Printf("🔍 CaseTrace Status\n")
	fmt.Printf("%s\n", strings.Repeat("═", 50))

	fmt.Printf("\n📋 Configuration:\n")
	fmt.Printf("  Store root: %s\n", cfg.Storage.Root)
	fmt.Printf("  LLM provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("  Model: %s", cfg.LLM.Model)
	if cfg.LLM.ModelRevision != "" {
		fmt.Printf(" (rev %s)", cfg.LLM.ModelRevision)
	}
	fmt.Println()

	stats, err := st.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("\n💾 Evidence Store:\n")
	fmt.Printf("  Items: %d\n", stats.EvidenceCount)
	fmt.Printf("  Analyzed: %d\n", stats.AnalyzedCount)
	fmt.Printf("  Size: %s\n", formatBytes(stats.TotalBytes))
	if len(stats.CountsByType) > 0 {
		fmt.Printf("  By type:\n")
		for _, t := range sortedKeys(stats.CountsByType) {
			fmt.Printf("    %s: %d\n", t, stats.CountsByType[t])
		}
	}

	fmt.Printf("\n🗂  Cases:\n")
	if len(stats.CaseCounts) == 0 {
		fmt.Printf("  (none)\n")
	}
	for _, c := range sortedKeys(stats.CaseCounts) {
		fmt.Printf("  %s: %d items\n", c, stats.CaseCounts[c])
	}

	if len(stats.OrphanedSHA256) > 0 {
		fmt.Printf("\n⚠️  Orphaned artifacts (no case link): %d\n", len(stats.OrphanedSHA256))
		for _, sha := range stats.OrphanedSHA256 {
			fmt.Printf("  %s\n", models.ShortSHA(sha))
		}
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
