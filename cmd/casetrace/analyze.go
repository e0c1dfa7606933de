package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/casetrace/casetrace-go/internal/output"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze case evidence with structured-output language models",
	Long: `Run the typed analyzers over every artifact in a case.

Documents, emails and images each take their own analysis path; results are
schema-validated before anything is written. Items that already have a
stored analysis are skipped unless --force is given, in which case the
previous analysis is kept as a timestamped backup.

Examples:
  casetrace analyze --case smith-v-acme
  casetrace analyze --case smith-v-acme --force`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("case", "", "case ID to analyze (required)")
	analyzeCmd.Flags().Bool("force", false, "re-analyze evidence that already has an analysis")
	analyzeCmd.MarkFlagRequired("case")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	caseID, _ := cmd.Flags().GetString("case")
	force, _ := cmd.Flags().GetBool("force")

	st, err := openStore()
	if err != nil {
		return err
	}
	idx := openIndex()
	if idx != nil {
		defer idx.Close()
	}

	orch, client, err := buildOrchestrator(ctx, st, idx, force)
	if err != nil {
		return err
	}
	defer client.Close()

	statuses, err := orch.AnalyzeCase(ctx, caseID)
	if err != nil {
		return err
	}

	counts := map[output.State]int{}
	for _, s := range statuses {
		counts[s.State]++
	}
	fmt.Printf("\n🔍 Analysis complete: %d succeeded, %d skipped, %d failed\n",
		counts[output.StateSucceeded], counts[output.StateSkipped], counts[output.StateFailed])

	report := pipelineReport(caseID, statuses)
	return report.Err()
}
