package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/casetrace/casetrace-go/internal/models"
	"github.com/casetrace/casetrace-go/internal/output"
	"github.com/casetrace/casetrace-go/internal/pipeline"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Ingest evidence files into the content-addressed store",
	Long: `Ingest a file or a directory of evidence into the store.

Each file is hashed with SHA-256 before anything else touches it. The
original bytes are stored content-addressed and never modified; duplicates
link to the existing blob instead of re-ingesting. Every action is recorded
in the per-item chain of custody.

Examples:
  casetrace ingest ./evidence --case smith-v-acme
  casetrace ingest contract.pdf --case smith-v-acme`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("case", "", "case ID to link evidence to (required)")
	ingestCmd.MarkFlagRequired("case")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	caseID, _ := cmd.Flags().GetString("case")
	path := args[0]

	st, err := openStore()
	if err != nil {
		return err
	}
	idx := openIndex()
	if idx != nil {
		defer idx.Close()
	}

	orch := pipeline.NewOrchestrator(st, nil, nil, nil, idx, output.NewConsole(), pipeline.Options{
		Actor: actor(),
	})

	fi, err := os.Stat(path)
	if err != nil {
		return err
	}

	var statuses []pipeline.ItemStatus
	if fi.IsDir() {
		statuses, err = orch.Ingest(ctx, path, caseID)
	} else {
		// Single file: ingest directly through the store.
		res, ierr := st.Ingest(ctx, path, caseID, actor())
		if ierr != nil {
			fmt.Printf("❌ ingest: %s (%v)\n", filepath.Base(path), ierr)
			return ierr
		}
		detail := string(res.EvidenceType)
		if res.Status == models.IngestDuplicate {
			detail = "duplicate, linked"
		}
		fmt.Printf("📥 ingest: %s\n✅ ingest: %s (%s)\n", filepath.Base(path), filepath.Base(path), detail)
		fmt.Printf("   sha256: %s\n", res.SHA256)
		return nil
	}
	if err != nil {
		return err
	}

	ok, failed := 0, 0
	for _, s := range statuses {
		if s.State == output.StateFailed {
			failed++
		} else {
			ok++
		}
	}
	fmt.Printf("\n📥 Ingested %d items into case %s (%d failed)\n", ok, caseID, failed)
	return nil
}
