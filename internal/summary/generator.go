package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/casetrace/casetrace-go/internal/correlation"
	caseerr "github.com/casetrace/casetrace-go/internal/errors"
	"github.com/casetrace/casetrace-go/internal/llm"
	"github.com/casetrace/casetrace-go/internal/models"
	"github.com/casetrace/casetrace-go/internal/store"
)

// Options controls summary generation.
type Options struct {
	// CaseType selects the executive prompt: generic, workplace, employment
	// or contract.
	CaseType string
	// ChunkThreshold is the evidence count above which the map-reduce path
	// kicks in.
	ChunkThreshold int
	// ChunkSize is the maximum evidence items per map chunk.
	ChunkSize int
}

// Generator produces the case-wide CaseSummary from stored analyses and the
// correlation result.
type Generator struct {
	store  *store.Store
	client *llm.Client
	engine *correlation.Engine
	opts   Options
	logger *slog.Logger
}

// NewGenerator builds a summary generator.
func NewGenerator(st *store.Store, client *llm.Client, engine *correlation.Engine, opts Options) *Generator {
	if opts.CaseType == "" {
		opts.CaseType = "generic"
	}
	if opts.ChunkThreshold <= 0 {
		opts.ChunkThreshold = 50
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 30
	}
	return &Generator{
		store:  st,
		client: client,
		engine: engine,
		opts:   opts,
		logger: slog.Default().With("component", "summary"),
	}
}

// Generate builds the CaseSummary: per-evidence rows, the correlation
// analysis, the deterministic overall assessment and the LLM executive
// summary. Temperature is pinned to zero in the LLM adapter, so for a fixed
// corpus and model the output is reproducible modulo provider drift.
func (g *Generator) Generate(ctx context.Context, caseID string) (*models.CaseSummary, error) {
	shas, err := g.store.ListCase(caseID)
	if err != nil {
		return nil, caseerr.CorrelationError(err, "listing case evidence")
	}

	evidence, analyses, err := g.buildEvidenceSummaries(shas)
	if err != nil {
		return nil, err
	}

	corr, err := g.engine.Correlate(ctx, caseID)
	if err != nil {
		return nil, err
	}

	exec, err := g.executiveSummary(ctx, caseID, evidence, analyses)
	if err != nil {
		return nil, err
	}

	result := &models.CaseSummary{
		CaseID:            caseID,
		GeneratedAt:       time.Now().UTC(),
		EvidenceSummaries: evidence,
		Correlation:       corr,
		OverallAssessment: buildAssessment(analyses, corr, exec),
		ExecutiveSummary:  exec,
	}
	g.logger.Info("case summary generated",
		"case", caseID,
		"evidence", len(evidence),
		"analyzed", result.AnalyzedCount(),
	)
	return result, nil
}

// buildEvidenceSummaries makes one row per ingested SHA in the case, marking
// unanalyzed items rather than dropping them.
func (g *Generator) buildEvidenceSummaries(shas []string) ([]models.EvidenceSummary, []*models.UnifiedAnalysis, error) {
	summaries := make([]models.EvidenceSummary, 0, len(shas))
	var analyses []*models.UnifiedAnalysis

	for _, sha := range shas {
		meta, err := g.store.LoadMetadata(sha)
		if err != nil {
			if caseerr.IsKind(err, caseerr.KindStoreIntegrity) {
				return nil, nil, err
			}
			meta = &models.FileMetadata{Filename: "unknown"}
		}

		row := models.EvidenceSummary{
			SHA256:       sha,
			Filename:     meta.Filename,
			EvidenceType: models.EvidenceOther,
			KeyFindings:  []string{},
			RiskFlags:    []string{},
		}

		analysis, err := g.store.LoadAnalysis(sha)
		if err != nil {
			if caseerr.IsKind(err, caseerr.KindStoreIntegrity) {
				return nil, nil, err
			}
			summaries = append(summaries, row)
			continue
		}

		row.EvidenceType = analysis.EvidenceType
		row.KeyFindings = keyFindings(analysis)
		row.LegalSignificance = analysis.Significance()
		row.RiskFlags = analysis.RiskFlags()
		row.Confidence = analysis.Confidence()
		row.Analyzed = true
		summaries = append(summaries, row)
		analyses = append(analyses, analysis)
	}
	return summaries, analyses, nil
}

func keyFindings(a *models.UnifiedAnalysis) []string {
	switch {
	case a.Document != nil:
		return []string{a.Document.Summary}
	case a.Email != nil:
		findings := []string{a.Email.ThreadSummary}
		if a.Email.EscalationDetected {
			findings = append(findings, "escalation detected in thread")
		}
		return findings
	case a.Image != nil:
		findings := []string{a.Image.SceneDescription}
		if a.Image.OCRText != "" {
			findings = append(findings, "legible text recovered via OCR")
		}
		return findings
	}
	return []string{}
}

// executiveSummary runs the direct path below the chunk threshold and the
// map-reduce path above it.
func (g *Generator) executiveSummary(ctx context.Context, caseID string, evidence []models.EvidenceSummary, analyses []*models.UnifiedAnalysis) (*models.ExecutiveSummaryResponse, error) {
	prompt, ok := executivePrompts[g.opts.CaseType]
	if !ok {
		return nil, caseerr.ConfigErrorf("unknown case type %q", g.opts.CaseType)
	}

	if len(evidence) <= g.opts.ChunkThreshold {
		var exec models.ExecutiveSummaryResponse
		err := g.client.CallStructured(ctx, llm.Request{
			System:    prompt + "\n\n" + reducePromptSuffix,
			User:      renderEvidence(caseID, evidence, analyses),
			Schema:    executiveSchema,
			MaxTokens: 6000,
		}, &exec)
		if err != nil {
			return nil, err
		}
		return &exec, nil
	}
	return g.mapReduce(ctx, caseID, prompt, evidence, analyses)
}

const reducePromptSuffix = `Respond with the executive summary of the full case.`

// mapReduce splits the evidence into chunks, summarizes each with one call,
// then reduces the chunk summaries into the final executive summary. A case
// of n items costs ceil(n/chunk_size) map calls plus one reduce call.
func (g *Generator) mapReduce(ctx context.Context, caseID, prompt string, evidence []models.EvidenceSummary, analyses []*models.UnifiedAnalysis) (*models.ExecutiveSummaryResponse, error) {
	byHash := make(map[string]*models.UnifiedAnalysis, len(analyses))
	for _, a := range analyses {
		byHash[a.SHA256] = a
	}

	var chunkSummaries []models.ChunkSummaryResponse
	for start := 0; start < len(evidence); start += g.opts.ChunkSize {
		end := start + g.opts.ChunkSize
		if end > len(evidence) {
			end = len(evidence)
		}
		chunk := evidence[start:end]
		chunkAnalyses := make([]*models.UnifiedAnalysis, 0, len(chunk))
		for _, row := range chunk {
			if a, ok := byHash[row.SHA256]; ok {
				chunkAnalyses = append(chunkAnalyses, a)
			}
		}

		var cs models.ChunkSummaryResponse
		err := g.client.CallStructured(ctx, llm.Request{
			System:    chunkPrompt,
			User:      renderEvidence(caseID, chunk, chunkAnalyses),
			Schema:    chunkSchema,
			MaxTokens: 3000,
		}, &cs)
		if err != nil {
			return nil, err
		}
		chunkSummaries = append(chunkSummaries, cs)
		g.logger.Debug("chunk summarized",
			"case", caseID, "chunk", len(chunkSummaries), "items", len(chunk))
	}

	var exec models.ExecutiveSummaryResponse
	err := g.client.CallStructured(ctx, llm.Request{
		System:    prompt + "\n\n" + reducePrompt,
		User:      renderChunkSummaries(caseID, chunkSummaries),
		Schema:    executiveSchema,
		MaxTokens: 6000,
	}, &exec)
	if err != nil {
		return nil, err
	}
	return &exec, nil
}

func renderEvidence(caseID string, evidence []models.EvidenceSummary, analyses []*models.UnifiedAnalysis) string {
	byHash := make(map[string]*models.UnifiedAnalysis, len(analyses))
	for _, a := range analyses {
		byHash[a.SHA256] = a
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Case %s: %d evidence items.\n\n", caseID, len(evidence))
	for _, row := range evidence {
		fmt.Fprintf(&sb, "- %s (%s, %s)\n", row.Filename, row.EvidenceType, models.ShortSHA(row.SHA256))
		if !row.Analyzed {
			sb.WriteString("  Not yet analyzed.\n")
			continue
		}
		for _, f := range row.KeyFindings {
			fmt.Fprintf(&sb, "  Finding: %s\n", f)
		}
		if row.LegalSignificance != "" {
			fmt.Fprintf(&sb, "  Significance: %s\n", row.LegalSignificance)
		}
		if len(row.RiskFlags) > 0 {
			fmt.Fprintf(&sb, "  Risk flags: %s\n", strings.Join(row.RiskFlags, ", "))
		}
		if a := byHash[row.SHA256]; a != nil {
			for _, ent := range a.Entities() {
				if ent.Quote != nil {
					fmt.Fprintf(&sb, "  Quote (%s): %q\n", ent.Quote.Speaker, ent.Quote.Text)
				}
			}
		}
	}
	return sb.String()
}

func renderChunkSummaries(caseID string, chunks []models.ChunkSummaryResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Case %s: findings from %d evidence batches.\n\n", caseID, len(chunks))
	for i, c := range chunks {
		fmt.Fprintf(&sb, "Batch %d:\n", i+1)
		for _, f := range c.Findings {
			fmt.Fprintf(&sb, "  Finding: %s\n", f)
		}
		for _, imp := range c.Implications {
			fmt.Fprintf(&sb, "  Implication: %s\n", imp)
		}
		for _, act := range c.Actions {
			fmt.Fprintf(&sb, "  Action: %s\n", act)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
