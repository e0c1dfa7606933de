package correlation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/casetrace/casetrace-go/internal/llm"
	"github.com/casetrace/casetrace-go/internal/models"
)

const patternSystemPrompt = `You are a forensic legal analyst. You receive a correlated summary of every piece of evidence in a case, each identified by its full SHA-256.
Detect:
- contradictions: two statements that cannot both be true, classified as factual, temporal or attribution, with severity 0-1
- corroborations: claims supported by two or more independent evidence items, graded weak/moderate/strong
- evidence gaps: missing witnesses, documentation or communications the record implies should exist, graded critical/high/medium
Every evidence_sources / supporting_sources value MUST be one of the full 64-character SHA-256 identifiers given in the input, copied exactly.
If the case has fewer than two evidence items, return empty lists.`

var patternSchema = llm.Schema{
	Name: "legal_pattern_analysis",
	Raw: json.RawMessage(`{
  "type": "object",
  "properties": {
    "contradictions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "statement_a": {"type": "string"},
          "statement_b": {"type": "string"},
          "evidence_sources": {"type": "array", "items": {"type": "string"}, "minItems": 2},
          "type": {"type": "string", "enum": ["factual", "temporal", "attribution"]},
          "severity": {"type": "number", "minimum": 0, "maximum": 1},
          "explanation": {"type": "string"}
        },
        "required": ["statement_a", "statement_b", "evidence_sources", "type", "severity"]
      }
    },
    "corroborations": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "claim": {"type": "string"},
          "supporting_sources": {"type": "array", "items": {"type": "string"}, "minItems": 2},
          "strength": {"type": "string", "enum": ["weak", "moderate", "strong"]},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        },
        "required": ["claim", "supporting_sources", "strength", "confidence"]
      }
    },
    "evidence_gaps": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "description": {"type": "string"},
          "gap_type": {"type": "string", "enum": ["missing_witness", "missing_documentation", "missing_communication", "other"]},
          "priority": {"type": "string", "enum": ["critical", "high", "medium"]}
        },
        "required": ["description", "priority"]
      }
    }
  },
  "required": ["contradictions", "corroborations", "evidence_gaps"],
  "additionalProperties": false
}`),
}

// PatternDetector runs the single case-wide LLM call that yields the
// LegalPatternAnalysis, then post-validates every referenced SHA-256.
type PatternDetector struct {
	client *llm.Client
	logger *slog.Logger
}

// NewPatternDetector builds the detector.
func NewPatternDetector(client *llm.Client) *PatternDetector {
	return &PatternDetector{
		client: client,
		logger: slog.Default().With("component", "pattern_detector"),
	}
}

// Detect analyzes the correlated evidence of one case. caseSHAs is the
// authoritative membership set; any pattern referencing a SHA outside it is
// reported and dropped, never silently kept.
func (d *PatternDetector) Detect(ctx context.Context, caseID string, inputs []evidenceInput, caseSHAs []string) (*models.LegalPatternAnalysis, []string, error) {
	if len(inputs) == 0 {
		return &models.LegalPatternAnalysis{
			Contradictions: []models.Contradiction{},
			Corroborations: []models.Corroboration{},
			EvidenceGaps:   []models.EvidenceGap{},
		}, nil, nil
	}

	var patterns models.LegalPatternAnalysis
	err := d.client.CallStructured(ctx, llm.Request{
		System:    patternSystemPrompt,
		User:      buildPatternInput(caseID, inputs),
		Schema:    patternSchema,
		MaxTokens: 8000,
	}, &patterns)
	if err != nil {
		return nil, nil, err
	}

	violations := d.filterMembership(&patterns, caseSHAs)
	d.logger.Info("legal patterns detected",
		"case", caseID,
		"contradictions", len(patterns.Contradictions),
		"corroborations", len(patterns.Corroborations),
		"gaps", len(patterns.EvidenceGaps),
		"membership_violations", len(violations),
	)
	return &patterns, violations, nil
}

// filterMembership drops patterns whose sources fall outside the case and
// returns the offending SHAs for reporting.
func (d *PatternDetector) filterMembership(p *models.LegalPatternAnalysis, caseSHAs []string) []string {
	member := make(map[string]bool, len(caseSHAs))
	for _, sha := range caseSHAs {
		member[sha] = true
	}

	var violations []string
	inCase := func(sources []string) bool {
		ok := true
		for _, sha := range sources {
			if !member[sha] {
				violations = append(violations, sha)
				ok = false
			}
		}
		return ok
	}

	kept := p.Contradictions[:0]
	for _, c := range p.Contradictions {
		if inCase(c.EvidenceSources) {
			kept = append(kept, c)
		}
	}
	p.Contradictions = kept

	keptCorr := p.Corroborations[:0]
	for _, c := range p.Corroborations {
		if inCase(c.SupportingSources) {
			keptCorr = append(keptCorr, c)
		}
	}
	p.Corroborations = keptCorr

	return violations
}

func buildPatternInput(caseID string, inputs []evidenceInput) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Case %s: %d evidence items.\n\n", caseID, len(inputs))
	for _, in := range inputs {
		fmt.Fprintf(&sb, "Evidence %s (%s", in.SHA256, in.Analysis.EvidenceType)
		if in.Metadata != nil {
			fmt.Fprintf(&sb, ", file %s", in.Metadata.Filename)
		}
		sb.WriteString(")\n")
		switch {
		case in.Analysis.Document != nil:
			fmt.Fprintf(&sb, "  Summary: %s\n", in.Analysis.Document.Summary)
		case in.Analysis.Email != nil:
			fmt.Fprintf(&sb, "  Thread: %s\n", in.Analysis.Email.ThreadSummary)
		case in.Analysis.Image != nil:
			fmt.Fprintf(&sb, "  Scene: %s\n", in.Analysis.Image.SceneDescription)
			if in.Analysis.Image.OCRText != "" {
				fmt.Fprintf(&sb, "  OCR: %s\n", in.Analysis.Image.OCRText)
			}
		}
		if flags := in.Analysis.RiskFlags(); len(flags) > 0 {
			fmt.Fprintf(&sb, "  Risk flags: %s\n", strings.Join(flags, ", "))
		}
		for _, entity := range in.Analysis.Entities() {
			if entity.Quote != nil {
				fmt.Fprintf(&sb, "  Quote (%s): %q\n", entity.Quote.Speaker, entity.Quote.Text)
			}
			if entity.Type == models.EntityDate && entity.AssociatedEvent != "" {
				fmt.Fprintf(&sb, "  Dated event: %s -> %s\n", entity.Name, entity.AssociatedEvent)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
