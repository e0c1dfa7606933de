package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/casetrace/casetrace-go/internal/models"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove broken case links and empty case directories",
	Long: `Scan the store for broken case links, empty case directories and orphaned
artifacts. Dry-run by default; pass --force to actually remove.`,
	RunE: runCleanup,
}

var pruneCmd = &cobra.Command{
	Use:   "prune <case-id>",
	Short: "Remove a case and any evidence exclusive to it",
	Long: `Remove a case. Evidence shared with other cases only loses this case's
link; evidence exclusive to the case loses its raw and derived trees.
Dry-run by default; pass --force to actually remove.`,
	Args: cobra.ExactArgs(1),
	RunE: runPrune,
}

var rebuildIndexCmd = &cobra.Command{
	Use:   "rebuild-index",
	Short: "Rebuild the SQLite case index from the store",
	Long: `Drop and rebuild the case index by walking the store. The index is a
derived convenience; the filesystem store remains the source of truth.`,
	RunE: runRebuildIndex,
}

func init() {
	cleanupCmd.Flags().Bool("force", false, "actually remove (default is dry-run)")
	pruneCmd.Flags().Bool("force", false, "actually remove (default is dry-run)")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	st, err := openStore()
	if err != nil {
		return err
	}

	report, err := st.Cleanup(!force)
	if err != nil {
		return err
	}

	mode := "✅"
	if report.DryRun {
		mode = "⚠️"
		fmt.Println("⚠️  Dry run: nothing removed. Pass --force to apply.")
	}
	fmt.Printf("%s cleanup: %d broken links, %d empty case dirs, %d orphans\n",
		mode, len(report.BrokenLinks), len(report.EmptyCaseDirs), len(report.Orphans))
	for _, l := range report.BrokenLinks {
		fmt.Printf("  broken link: %s\n", l)
	}
	for _, d := range report.EmptyCaseDirs {
		fmt.Printf("  empty case dir: %s\n", d)
	}
	for _, o := range report.Orphans {
		fmt.Printf("  orphan: %s\n", models.ShortSHA(o))
	}
	return nil
}

func runPrune(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	caseID := args[0]

	st, err := openStore()
	if err != nil {
		return err
	}

	report, err := st.PruneCase(caseID, !force)
	if err != nil {
		return err
	}

	verb := "removed"
	if report.DryRun {
		verb = "would be removed"
		fmt.Println("⚠️  Dry run: nothing removed. Pass --force to apply.")
	}
	fmt.Printf("📦 prune %s: %d blobs %s, %d unlinked only\n",
		caseID, len(report.RemovedBlobs), verb, len(report.UnlinkedOnly))
	for _, sha := range report.RemovedBlobs {
		fmt.Printf("  remove: %s\n", models.ShortSHA(sha))
	}
	for _, sha := range report.UnlinkedOnly {
		fmt.Printf("  unlink: %s (shared with other cases)\n", models.ShortSHA(sha))
	}
	if !report.DryRun {
		fmt.Printf("✅ prune: case %s removed\n", caseID)
	}
	return nil
}

func runRebuildIndex(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	idx := openIndex()
	if idx == nil {
		return fmt.Errorf("case index could not be opened at %s", cfg.Storage.IndexPath)
	}
	defer idx.Close()

	if err := idx.Rebuild(st); err != nil {
		return err
	}
	fmt.Println("✅ index: rebuilt from store")
	return nil
}
