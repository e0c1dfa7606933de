package analyze

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/casetrace/casetrace-go/internal/detect"
	"github.com/casetrace/casetrace-go/internal/errors"
	"github.com/casetrace/casetrace-go/internal/llm"
	"github.com/casetrace/casetrace-go/internal/models"
	"github.com/casetrace/casetrace-go/internal/store"
)

// ErrNotAnalyzable marks evidence whose type has no analyzer. Callers skip
// the item rather than failing the batch.
var ErrNotAnalyzable = stderrors.New("evidence type is not analyzable")

// Options adjusts a single analyze call.
type Options struct {
	Force bool
	// TypeOverride skips detection when set.
	TypeOverride models.EvidenceType
	CaseID       string
	Actor        string
}

// Dispatcher routes artifacts to their typed analyzer and persists the
// validated result through the store.
type Dispatcher struct {
	store    *store.Store
	detector *detect.Detector
	client   *llm.Client

	document *DocumentAnalyzer
	image    *ImageAnalyzer
	email    *EmailAnalyzer

	logger *slog.Logger
}

// NewDispatcher wires the typed analyzers. extractor and rasterizer may be
// nil for the plain defaults.
func NewDispatcher(st *store.Store, detector *detect.Detector, client *llm.Client, extractor TextExtractor, rasterizer ImageRasterizer) *Dispatcher {
	return &Dispatcher{
		store:    st,
		detector: detector,
		client:   client,
		document: NewDocumentAnalyzer(client, extractor),
		image:    NewImageAnalyzer(client, rasterizer),
		email:    NewEmailAnalyzer(client),
		logger:   slog.Default().With("component", "dispatch"),
	}
}

// Analyze produces (or returns the cached) UnifiedAnalysis for sha.
// Without force an existing analysis is a pure read: no LLM call, no
// custody event. With force the previous analysis is backed up and a
// reanalyze custody event is appended by the store.
func (d *Dispatcher) Analyze(ctx context.Context, sha string, opts Options) (*models.UnifiedAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !opts.Force && d.store.HasAnalysis(sha) {
		return d.store.LoadAnalysis(sha)
	}

	meta, err := d.store.LoadMetadata(sha)
	if err != nil {
		return nil, errors.AnalyzerErrorf(err, "load metadata for %s", models.ShortSHA(sha))
	}
	rawPath, err := d.store.RawPath(sha)
	if err != nil {
		return nil, errors.AnalyzerErrorf(err, "locate raw blob for %s", models.ShortSHA(sha))
	}

	evidenceType := opts.TypeOverride
	if evidenceType == "" {
		evidenceType = d.detector.Detect(rawPath, meta.MimeType)
	}
	if !evidenceType.Analyzable() {
		return nil, errors.AnalyzerErrorf(ErrNotAnalyzable, "evidence type %q has no analyzer", evidenceType)
	}

	unified := &models.UnifiedAnalysis{
		SHA256:        sha,
		EvidenceType:  evidenceType,
		AnalyzedAt:    time.Now().UTC(),
		Model:         d.client.Model(),
		ModelRevision: d.client.ModelRevision(),
	}

	switch evidenceType {
	case models.EvidenceDocument:
		unified.Document, err = d.document.Analyze(ctx, rawPath, meta)
	case models.EvidenceImage:
		unified.Image, err = d.image.Analyze(ctx, rawPath, meta)
	case models.EvidenceEmail:
		unified.Email, err = d.email.Analyze(ctx, rawPath, meta)
	}
	if err != nil {
		return nil, errors.AnalyzerErrorf(err, "analyze %s (%s)", models.ShortSHA(sha), evidenceType)
	}

	unified.Labels = GenerateLabels(unified)
	unified.CaseIDs, err = d.caseSet(sha, opts.CaseID)
	if err != nil {
		return nil, errors.AnalyzerErrorf(err, "resolve cases for %s", models.ShortSHA(sha))
	}

	actor := opts.Actor
	if actor == "" {
		actor = "analyzer"
	}
	if _, err := d.store.SaveAnalysis(sha, unified, actor, opts.Force); err != nil {
		return nil, errors.AnalyzerErrorf(err, "persist analysis for %s", models.ShortSHA(sha))
	}

	d.logger.Info("artifact analyzed",
		"sha256", models.ShortSHA(sha),
		"type", evidenceType,
		"labels", len(unified.Labels),
		"forced", opts.Force,
	)
	return unified, nil
}

func (d *Dispatcher) caseSet(sha, caseID string) ([]string, error) {
	cases, err := d.store.CasesFor(sha)
	if err != nil {
		return nil, err
	}
	if caseID != "" {
		found := false
		for _, c := range cases {
			if c == caseID {
				found = true
				break
			}
		}
		if !found {
			cases = append(cases, caseID)
		}
	}
	// Orphans (no case link yet) analyze fine; the set stays empty.
	return cases, nil
}
