package packaging

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/casetrace/casetrace-go/internal/models"
)

const readmeTemplate = `# Evidence Analysis Package: %s

Generated: %s

This package contains the complete forensic analysis output for the case,
assembled from a content-addressed evidence store with a full chain of
custody per item.

## Contents

- ` + "`reports/`" + `: human-readable analysis reports (Markdown)
- ` + "`analysis/`" + `: case-level and per-evidence structured analysis records (JSON)
- ` + "`evidence_catalog/`" + `: catalog of every evidence item with identifiers
- ` + "`correlations/`" + `: case-wide correlation analysis (entities, timeline, patterns)
- ` + "`visualizations/`" + `: data files for downstream visualization
- ` + "`documentation/`" + `: this file and the analysis methodology
%s
## Evidence Summary

%s

## Integrity

Every evidence item is identified by the SHA-256 of its original bytes.
Identifiers in reports are truncated to 8 hex characters for readability;
the evidence catalog carries the full 64-character hashes. The originating
store retains the unmodified originals and their append-only chain of
custody records.
`

const methodologyTemplate = `# Analysis Methodology

## Case %s

### 1. Ingestion

Each file was hashed with SHA-256 before any other processing. Originals
are stored content-addressed and never modified; deduplication is by hash.
An append-only chain of custody records every action taken per item.

### 2. Evidence Typing

Evidence is classified as document, email, image or other, primarily by
file extension with a content probe fallback. PDFs with no text layer
classify as images and take the vision analysis path.

### 3. Individual Analysis

Each analyzable item was processed by a type-specific analyzer using a
structured-output language model (model pinned per run, temperature 0).
Responses are schema-validated; incomplete or refused responses fail the
item rather than degrade the output.

### 4. Correlation

Entity canonicalization, timeline reconstruction, gap detection and
temporal-sequence detection run deterministically over the per-item
analyses. Optional AI-assisted entity resolution merges single-occurrence
person entities only at high confidence.

### 5. Reporting

Reports are generated independently from the correlated case summary.
Findings without evidentiary support are excluded by prompt design, and
every claim traces to specific evidence identifiers.

## Limitations

Model-derived findings carry the stated confidence scores and should be
verified against the original evidence before reliance in proceedings.
Timeline events sourced from semantic dates depend on date parsing of
free text and are marked with their source.
`

// writeDocumentation writes the README and methodology templates
// parameterized by the case.
func writeDocumentation(summary *models.CaseSummary, dir string, includeRaw bool) error {
	rawNote := ""
	if includeRaw {
		rawNote = "- `raw_evidence/`: copies of the original evidence files\n"
	}

	var rows strings.Builder
	rows.WriteString("| File | Type | SHA-256 (short) | Significance |\n|---|---|---|---|\n")
	for _, e := range summary.EvidenceSummaries {
		sig := string(e.LegalSignificance)
		if !e.Analyzed {
			sig = "not analyzed"
		}
		fmt.Fprintf(&rows, "| %s | %s | %s | %s |\n",
			e.Filename, e.EvidenceType, models.ShortSHA(e.SHA256), sig)
	}

	readme := fmt.Sprintf(readmeTemplate,
		summary.CaseID,
		summary.GeneratedAt.Format("2006-01-02 15:04 UTC"),
		rawNote,
		rows.String(),
	)
	if err := writeRawFile(filepath.Join(dir, "README.md"), []byte(readme)); err != nil {
		return err
	}

	methodology := fmt.Sprintf(methodologyTemplate, summary.CaseID)
	return writeRawFile(filepath.Join(dir, "methodology.md"), []byte(methodology))
}
