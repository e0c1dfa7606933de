// Package packaging assembles the deliverable case package: reports,
// analysis copies, catalogs, correlation export, documentation and an
// optional zip archive.
package packaging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	caseerr "github.com/casetrace/casetrace-go/internal/errors"
	"github.com/casetrace/casetrace-go/internal/models"
	"github.com/casetrace/casetrace-go/internal/report"
	"github.com/casetrace/casetrace-go/internal/store"
)

// Options controls package assembly.
type Options struct {
	// IncludeRaw copies original evidence blobs into raw_evidence/.
	IncludeRaw bool
	// Format is "zip" or "directory".
	Format string
	// OutputDir overrides the store's packages directory.
	OutputDir string
	// Actor is recorded in export custody events.
	Actor string
}

// Result describes the finished package.
type Result struct {
	Path        string          `json:"path"`
	Format      string          `json:"format"`
	Reports     []report.Result `json:"-"`
	ReportFiles []string        `json:"report_files"`
}

// Builder assembles case packages from a store and a generated summary.
type Builder struct {
	store  *store.Store
	opts   Options
	logger *slog.Logger
}

// NewBuilder constructs a package builder.
func NewBuilder(st *store.Store, opts Options) *Builder {
	if opts.Format == "" {
		opts.Format = "zip"
	}
	if opts.Actor == "" {
		opts.Actor = "packager"
	}
	return &Builder{
		store:  st,
		opts:   opts,
		logger: slog.Default().With("component", "packaging"),
	}
}

// Build assembles the package tree for the case summary and, when the format
// is zip, archives and removes the staging directory. On any error the
// partial tree and archive are removed.
func (b *Builder) Build(ctx context.Context, summary *models.CaseSummary) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, caseerr.Cancelled("packaging interrupted")
	}

	outDir := b.opts.OutputDir
	if outDir == "" {
		outDir = b.store.PackagesDir()
	}
	stamp := time.Now().UTC().Format("20060102_150405")
	baseName := fmt.Sprintf("%s_analysis_package_%s", sanitize(summary.CaseID), stamp)
	stageDir := filepath.Join(outDir, baseName)

	result, err := b.assemble(ctx, summary, stageDir)
	if err != nil {
		os.RemoveAll(stageDir)
		return nil, err
	}

	if b.opts.Format == "zip" {
		zipPath := stageDir + ".zip"
		if err := zipTree(stageDir, zipPath); err != nil {
			os.RemoveAll(stageDir)
			os.Remove(zipPath)
			return nil, caseerr.PackageError(err, "archiving package")
		}
		if err := os.RemoveAll(stageDir); err != nil {
			return nil, caseerr.PackageError(err, "removing staging directory")
		}
		result.Path = zipPath
	}

	// Custody records the finished artifact only.
	if err := b.recordExports(ctx, summary, filepath.Base(result.Path)); err != nil {
		os.RemoveAll(result.Path)
		return nil, err
	}

	b.logger.Info("package built",
		"case", summary.CaseID, "path", result.Path, "format", result.Format)
	return result, nil
}

func (b *Builder) assemble(ctx context.Context, summary *models.CaseSummary, stageDir string) (*Result, error) {
	subdirs := []string{
		"reports", "analysis", "visualizations",
		"evidence_catalog", "correlations", "documentation",
	}
	for _, d := range subdirs {
		if err := os.MkdirAll(filepath.Join(stageDir, d), 0o755); err != nil {
			return nil, caseerr.PackageError(err, "creating package tree")
		}
	}

	reports := report.Run(summary, filepath.Join(stageDir, "reports"), report.Registry())
	var reportFiles []string
	for _, r := range reports {
		if r.Path != "" {
			reportFiles = append(reportFiles, r.Filename)
		}
	}

	if err := writeJSON(filepath.Join(stageDir, "analysis", "case_analysis.json"), summary); err != nil {
		return nil, err
	}
	if err := b.copyAnalyses(ctx, summary, filepath.Join(stageDir, "analysis")); err != nil {
		return nil, err
	}
	if err := b.writeCatalog(summary, filepath.Join(stageDir, "evidence_catalog", "evidence_catalog.json")); err != nil {
		return nil, err
	}
	if err := writeCorrelationExport(summary.Correlation, filepath.Join(stageDir, "correlations", "correlation_analysis.json")); err != nil {
		return nil, err
	}
	if err := writeWordFrequency(b.store, summary, filepath.Join(stageDir, "visualizations", "word_frequency.json")); err != nil {
		return nil, err
	}
	if err := writeDocumentation(summary, filepath.Join(stageDir, "documentation"), b.opts.IncludeRaw); err != nil {
		return nil, err
	}
	if b.opts.IncludeRaw {
		if err := b.copyRaw(ctx, summary, filepath.Join(stageDir, "raw_evidence")); err != nil {
			return nil, err
		}
	}
	if err := b.writeMetadata(summary, stageDir, reportFiles); err != nil {
		return nil, err
	}

	return &Result{Path: stageDir, Format: b.opts.Format, Reports: reports, ReportFiles: reportFiles}, nil
}

// recordExports appends an export custody event for every evidence item
// included in the package.
func (b *Builder) recordExports(ctx context.Context, summary *models.CaseSummary, packageName string) error {
	note := "included in analysis package"
	for _, e := range summary.EvidenceSummaries {
		if err := ctx.Err(); err != nil {
			return caseerr.Cancelled("packaging interrupted")
		}
		err := b.store.AppendCustody(e.SHA256, models.CustodyEvent{
			TS:     time.Now().UTC(),
			Actor:  b.opts.Actor,
			Action: models.ActionExport,
			Note:   &note,
			Metadata: map[string]any{
				"package":     packageName,
				"include_raw": b.opts.IncludeRaw,
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// copyAnalyses copies each evidence's stored analysis into analysis/ under a
// descriptive name: {type}_{sanitized-filename}_{sha8}.json.
func (b *Builder) copyAnalyses(ctx context.Context, summary *models.CaseSummary, dir string) error {
	for _, e := range summary.EvidenceSummaries {
		if err := ctx.Err(); err != nil {
			return caseerr.Cancelled("packaging interrupted")
		}
		if !e.Analyzed {
			continue
		}
		analysis, err := b.store.LoadAnalysis(e.SHA256)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("%s_%s_%s.json",
			e.EvidenceType, sanitize(strings.TrimSuffix(e.Filename, filepath.Ext(e.Filename))), models.ShortSHA(e.SHA256))
		if err := writeJSON(filepath.Join(dir, name), analysis); err != nil {
			return err
		}
	}
	return nil
}

// catalogEntry is one evidence_catalog.json row.
type catalogEntry struct {
	Filename          string              `json:"filename"`
	EvidenceType      models.EvidenceType `json:"evidence_type"`
	SHA256            string              `json:"sha256"`
	SizeBytes         int64               `json:"size_bytes"`
	Analyzed          bool                `json:"analyzed"`
	Confidence        float64             `json:"confidence,omitempty"`
	LegalSignificance models.Significance `json:"legal_significance,omitempty"`
	RiskFlags         []string            `json:"risk_flags"`
	TopFindings       []string            `json:"top_findings"`
	CustodyPath       string              `json:"custody_path"`
}

func (b *Builder) writeCatalog(summary *models.CaseSummary, path string) error {
	entries := make([]catalogEntry, 0, len(summary.EvidenceSummaries))
	for _, e := range summary.EvidenceSummaries {
		entry := catalogEntry{
			Filename:          e.Filename,
			EvidenceType:      e.EvidenceType,
			SHA256:            e.SHA256,
			Analyzed:          e.Analyzed,
			Confidence:        e.Confidence,
			LegalSignificance: e.LegalSignificance,
			RiskFlags:         e.RiskFlags,
			TopFindings:       e.KeyFindings,
			CustodyPath:       fmt.Sprintf("derived/sha256=%s/chain_of_custody.json", e.SHA256),
		}
		if meta, err := b.store.LoadMetadata(e.SHA256); err == nil {
			entry.SizeBytes = meta.SizeBytes
		}
		entries = append(entries, entry)
	}
	return writeJSON(path, map[string]any{
		"case_id":        summary.CaseID,
		"generated_at":   summary.GeneratedAt,
		"evidence_count": len(entries),
		"evidence":       entries,
	})
}

func (b *Builder) copyRaw(ctx context.Context, summary *models.CaseSummary, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return caseerr.PackageError(err, "creating raw_evidence directory")
	}
	for _, e := range summary.EvidenceSummaries {
		if err := ctx.Err(); err != nil {
			return caseerr.Cancelled("packaging interrupted")
		}
		src, err := b.store.RawPath(e.SHA256)
		if err != nil {
			return err
		}
		dst := filepath.Join(dir, fmt.Sprintf("%s_%s", models.ShortSHA(e.SHA256), sanitize(e.Filename)))
		if err := copyFile(src, dst); err != nil {
			return caseerr.PackageError(err, "copying raw evidence")
		}
	}
	return nil
}

// componentFiles walks the assembled tree and groups every file by its
// top-level component directory. Runs after all other writes so the
// metadata enumerates exactly what the package holds.
func componentFiles(stageDir string) (map[string][]string, error) {
	files := make(map[string][]string)
	err := filepath.WalkDir(stageDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(stageDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		component, name, nested := strings.Cut(rel, "/")
		if !nested {
			return nil // root files, metadata itself included
		}
		files[component] = append(files[component], name)
		return nil
	})
	if err != nil {
		return nil, caseerr.PackageError(err, "enumerating package files")
	}
	for _, names := range files {
		sort.Strings(names)
	}
	return files, nil
}

func (b *Builder) writeMetadata(summary *models.CaseSummary, stageDir string, reportFiles []string) error {
	counts := make(map[models.EvidenceType]int)
	for _, e := range summary.EvidenceSummaries {
		counts[e.EvidenceType]++
	}
	files, err := componentFiles(stageDir)
	if err != nil {
		return err
	}
	return writeJSON(filepath.Join(stageDir, "package_metadata.json"), map[string]any{
		"package_id":      uuid.NewString(),
		"case_id":         summary.CaseID,
		"created_at":      time.Now().UTC(),
		"evidence_count":  len(summary.EvidenceSummaries),
		"counts_by_type":  counts,
		"report_files":    reportFiles,
		"files":           files,
		"include_raw":     b.opts.IncludeRaw,
		"format":          b.opts.Format,
		"analyzed_count":  summary.AnalyzedCount(),
		"generator":       "casetrace",
		"schema_revision": "v1",
	})
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitize makes a filename fragment path-safe.
func sanitize(name string) string {
	cleaned := unsafeNameChars.ReplaceAllString(name, "_")
	cleaned = strings.Trim(cleaned, "._")
	if cleaned == "" {
		return "unnamed"
	}
	return cleaned
}

func writeRawFile(path string, data []byte) error {
	if len(data) == 0 || data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return caseerr.PackageError(err, "writing "+filepath.Base(path))
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return caseerr.PackageError(err, "encoding "+filepath.Base(path))
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return caseerr.PackageError(err, "writing "+filepath.Base(path))
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
