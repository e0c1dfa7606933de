package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var processCaseCmd = &cobra.Command{
	Use:   "process-case <evidence-dir>",
	Short: "Run the full pipeline: ingest, analyze, summarize, package",
	Long: `Process a case end to end.

Evidence under the given directory is ingested, every analyzable item is
run through the typed analyzers, findings are correlated case-wide, and
the deliverable analysis package is assembled.

Per-item failures never abort the run; the exit code distinguishes a clean
run, a partial failure and a fully failed batch.

Examples:
  casetrace process-case ./evidence --case smith-v-acme
  casetrace process-case ./evidence --case smith-v-acme --case-type employment --include-raw`,
	Args: cobra.ExactArgs(1),
	RunE: runProcessCase,
}

func init() {
	processCaseCmd.Flags().String("case", "", "case ID (required)")
	processCaseCmd.Flags().Bool("force", false, "re-analyze evidence that already has an analysis")
	processCaseCmd.Flags().String("case-type", "", "summary framing: generic, workplace, employment, contract")
	processCaseCmd.Flags().Bool("include-raw", false, "include original evidence files in the package")
	processCaseCmd.Flags().String("format", "", "package format: zip or directory")
	processCaseCmd.MarkFlagRequired("case")
}

func runProcessCase(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	caseID, _ := cmd.Flags().GetString("case")
	force, _ := cmd.Flags().GetBool("force")
	if v, _ := cmd.Flags().GetString("case-type"); v != "" {
		cfg.Summary.CaseType = v
	}
	if v, _ := cmd.Flags().GetBool("include-raw"); v {
		cfg.Package.IncludeRaw = true
	}
	if v, _ := cmd.Flags().GetString("format"); v != "" {
		cfg.Package.Format = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

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

	report, err := orch.ProcessCase(ctx, args[0], caseID)
	if report != nil && report.PackagePath != "" {
		fmt.Printf("\n📦 Package ready: %s\n", report.PackagePath)
	}
	return err
}
