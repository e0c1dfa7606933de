package correlation

import (
	"context"
	"log/slog"
	"sort"
	"time"

	caseerr "github.com/casetrace/casetrace-go/internal/errors"
	"github.com/casetrace/casetrace-go/internal/llm"
	"github.com/casetrace/casetrace-go/internal/models"
	"github.com/casetrace/casetrace-go/internal/store"
)

// evidenceInput is one analyzed evidence item fed into correlation.
type evidenceInput struct {
	SHA256   string
	Analysis *models.UnifiedAnalysis
	Metadata *models.FileMetadata
}

// Options controls the correlation run.
type Options struct {
	// AIResolve enables LLM-assisted entity resolution for single-occurrence
	// person entities that deterministic merging could not join.
	AIResolve bool
	// AIResolveMaxCalls caps the number of pairwise resolution calls.
	AIResolveMaxCalls int
	// GapThresholdDays is the minimum span between material events that
	// counts as a suspicious timeline gap.
	GapThresholdDays int
	// LegalPatterns enables the case-wide LLM pattern detection pass.
	LegalPatterns bool
}

// Engine aggregates a case's unified analyses into a CorrelationAnalysis.
// Apart from the optional AI passes, every stage is deterministic: the same
// set of analyses yields a byte-identical result.
type Engine struct {
	store  *store.Store
	client *llm.Client
	opts   Options
	logger *slog.Logger
}

// NewEngine builds a correlation engine. client may be nil when neither AI
// resolution nor legal-pattern detection is enabled.
func NewEngine(st *store.Store, client *llm.Client, opts Options) *Engine {
	if opts.AIResolveMaxCalls <= 0 {
		opts.AIResolveMaxCalls = 50
	}
	if opts.GapThresholdDays <= 0 {
		opts.GapThresholdDays = 14
	}
	return &Engine{
		store:  st,
		client: client,
		opts:   opts,
		logger: slog.Default().With("component", "correlation"),
	}
}

// Correlate loads every analyzed evidence item in the case and runs entity
// canonicalization, timeline reconstruction, gap detection, sequence
// detection and, when enabled, legal-pattern detection. Evidence without a
// stored analysis is skipped; it contributes nothing to correlate yet.
func (e *Engine) Correlate(ctx context.Context, caseID string) (*models.CorrelationAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, caseerr.Cancelled("correlation interrupted")
	}

	shas, err := e.store.ListCase(caseID)
	if err != nil {
		return nil, caseerr.CorrelationError(err, "listing case evidence")
	}

	inputs, err := e.loadInputs(shas)
	if err != nil {
		return nil, err
	}

	result := &models.CorrelationAnalysis{
		CaseID:            caseID,
		GeneratedAt:       time.Now().UTC(),
		EvidenceCount:     len(inputs),
		Entities:          []models.CorrelatedEntity{},
		TimelineEvents:    []models.TimelineEvent{},
		TimelineGaps:      []models.TimelineGap{},
		TemporalSequences: []models.TemporalSequence{},
	}
	if len(inputs) == 0 {
		e.logger.Info("no analyzed evidence to correlate", "case", caseID)
		return result, nil
	}

	entities := canonicalizeEntities(collectExtractions(inputs))
	if e.opts.AIResolve && e.client != nil {
		resolver := newAIResolver(e.client, e.opts.AIResolveMaxCalls)
		entities, err = resolver.resolve(ctx, entities)
		if err != nil {
			return nil, err
		}
	}
	result.Entities = entities

	result.TimelineEvents = buildTimeline(inputs)
	result.TimelineGaps = detectGaps(result.TimelineEvents, e.opts.GapThresholdDays)
	result.TemporalSequences = detectSequences(result.TimelineEvents)

	if e.opts.LegalPatterns && e.client != nil {
		patterns, violations, perr := NewPatternDetector(e.client).Detect(ctx, caseID, inputs, shas)
		if perr != nil {
			return nil, perr
		}
		for _, sha := range violations {
			e.logger.Warn("pattern referenced evidence outside case, dropped",
				"case", caseID, "sha256", sha)
		}
		result.LegalPatterns = patterns
	}

	e.logger.Info("correlation complete",
		"case", caseID,
		"evidence", result.EvidenceCount,
		"entities", len(result.Entities),
		"timeline_events", len(result.TimelineEvents),
		"gaps", len(result.TimelineGaps),
		"sequences", len(result.TemporalSequences),
	)
	return result, nil
}

// loadInputs fetches analysis and metadata for each SHA, skipping evidence
// that has not been analyzed yet. A malformed stored analysis is a store
// integrity failure and aborts the run.
func (e *Engine) loadInputs(shas []string) ([]evidenceInput, error) {
	sort.Strings(shas)
	inputs := make([]evidenceInput, 0, len(shas))
	for _, sha := range shas {
		analysis, err := e.store.LoadAnalysis(sha)
		if err != nil {
			if caseerr.IsKind(err, caseerr.KindStoreIntegrity) {
				return nil, err
			}
			e.logger.Debug("skipping unanalyzed evidence", "sha256", sha)
			continue
		}
		meta, err := e.store.LoadMetadata(sha)
		if err != nil {
			if caseerr.IsKind(err, caseerr.KindStoreIntegrity) {
				return nil, err
			}
			meta = nil
		}
		inputs = append(inputs, evidenceInput{SHA256: sha, Analysis: analysis, Metadata: meta})
	}
	return inputs, nil
}

// collectExtractions flattens every entity from every analysis, tagged with
// its evidence SHA. Email senders and recipients enter as person entities so
// correspondence participants correlate with names mentioned in documents.
func collectExtractions(inputs []evidenceInput) []extraction {
	var out []extraction
	for _, in := range inputs {
		for _, ent := range in.Analysis.Entities() {
			out = append(out, extraction{sha: in.SHA256, entity: ent})
		}
		if in.Analysis.Email != nil {
			for _, p := range in.Analysis.Email.Participants {
				name := p.Name
				if name == "" {
					name = emailLocalPartName(p.Address)
				}
				if name == "" {
					continue
				}
				out = append(out, extraction{sha: in.SHA256, entity: models.Entity{
					Name:       name,
					Type:       models.EntityPerson,
					Confidence: 1.0,
					Context:    "email participant " + p.Address,
				}})
			}
		}
	}
	return out
}
