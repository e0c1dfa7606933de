// Package report renders the human-readable case reports from a CaseSummary.
// Generators run independently: one failing never aborts the rest.
package report

import (
	"log/slog"
	"os"
	"path/filepath"

	caseerr "github.com/casetrace/casetrace-go/internal/errors"
	"github.com/casetrace/casetrace-go/internal/models"
)

// Generator is one report renderer. HasData is the pre-flight check over the
// summary; Generate is only called when it returns true.
type Generator interface {
	HasData(s *models.CaseSummary) bool
	ReportFilename() string
	ReportTitle() string
	Generate(s *models.CaseSummary, outDir string) (string, error)
}

// Result records one generator's outcome.
type Result struct {
	Title    string
	Filename string
	Path     string
	Skipped  bool
	Err      error
}

// Registry returns every known generator in rendering order. The executive
// summary always has data and anchors the set.
func Registry() []Generator {
	return []Generator{
		&executiveSummaryReport{},
		&forensicLegalOpinionReport{},
		&financialRiskReport{},
		&legalPatternsReport{},
		&timelineReport{},
		&quotedStatementsReport{},
		&relationshipNetworkReport{},
		&powerDynamicsReport{},
		&imageOCRReport{},
	}
}

// Run executes every generator against the summary, writing into outDir.
func Run(s *models.CaseSummary, outDir string, generators []Generator) []Result {
	logger := slog.Default().With("component", "report")
	results := make([]Result, 0, len(generators))
	for _, g := range generators {
		r := Result{Title: g.ReportTitle(), Filename: g.ReportFilename()}
		if !g.HasData(s) {
			r.Skipped = true
			logger.Debug("report skipped, no data", "report", r.Filename)
			results = append(results, r)
			continue
		}
		path, err := g.Generate(s, outDir)
		if err != nil {
			r.Err = err
			logger.Warn("report generation failed", "report", r.Filename, "error", err)
		} else {
			r.Path = path
			logger.Info("report written", "report", r.Filename)
		}
		results = append(results, r)
	}
	return results
}

// writeReport writes content to outDir/filename and returns the path.
func writeReport(outDir, filename, content string) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", caseerr.PackageError(err, "creating report directory")
	}
	path := filepath.Join(outDir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", caseerr.PackageError(err, "writing report "+filename)
	}
	return path, nil
}
