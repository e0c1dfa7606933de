package report

import (
	"fmt"
	"strings"

	"github.com/casetrace/casetrace-go/internal/models"
)

type legalPatternsReport struct{}

func (r *legalPatternsReport) HasData(s *models.CaseSummary) bool {
	return s.Correlation != nil && s.Correlation.LegalPatterns != nil
}
func (r *legalPatternsReport) ReportFilename() string { return "legal_patterns_analysis.md" }
func (r *legalPatternsReport) ReportTitle() string    { return "Legal Pattern Analysis" }

func (r *legalPatternsReport) Generate(s *models.CaseSummary, outDir string) (string, error) {
	p := s.Correlation.LegalPatterns
	var sb strings.Builder
	sb.WriteString(header(r.ReportTitle(), s))

	sb.WriteString("## Contradictions\n\n")
	if len(p.Contradictions) == 0 {
		sb.WriteString("No contradictions detected.\n")
	}
	for i, c := range p.Contradictions {
		fmt.Fprintf(&sb, "### %d. %s contradiction (severity %.2f)\n\n", i+1, c.Type, c.Severity)
		fmt.Fprintf(&sb, "- Statement A: %s\n", c.StatementA)
		fmt.Fprintf(&sb, "- Statement B: %s\n", c.StatementB)
		fmt.Fprintf(&sb, "- Evidence: %s\n", shortList(c.EvidenceSources))
		if c.Explanation != "" {
			fmt.Fprintf(&sb, "- Explanation: %s\n", c.Explanation)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Corroborations\n\n")
	if len(p.Corroborations) == 0 {
		sb.WriteString("No corroborated claims detected.\n")
	}
	for i, c := range p.Corroborations {
		fmt.Fprintf(&sb, "%d. **%s** (%s, confidence %.2f): supported by %s\n",
			i+1, c.Claim, c.Strength, c.Confidence, shortList(c.SupportingSources))
	}

	sb.WriteString("\n## Evidence Gaps\n\n")
	if len(p.EvidenceGaps) == 0 {
		sb.WriteString("No evidence gaps identified.\n")
	}
	for _, g := range p.EvidenceGaps {
		label := g.GapType
		if label == "" {
			label = "other"
		}
		fmt.Fprintf(&sb, "- [%s] (%s) %s\n", g.Priority, label, g.Description)
	}
	return writeReport(outDir, r.ReportFilename(), sb.String())
}

func shortList(shas []string) string {
	out := make([]string, len(shas))
	for i, sha := range shas {
		out[i] = short(sha)
	}
	return strings.Join(out, ", ")
}

type timelineReport struct{}

func (r *timelineReport) HasData(s *models.CaseSummary) bool {
	return s.Correlation != nil && len(s.Correlation.TimelineEvents) > 0
}
func (r *timelineReport) ReportFilename() string { return "timeline_reconstruction.md" }
func (r *timelineReport) ReportTitle() string    { return "Timeline Reconstruction" }

func (r *timelineReport) Generate(s *models.CaseSummary, outDir string) (string, error) {
	var sb strings.Builder
	sb.WriteString(header(r.ReportTitle(), s))

	sb.WriteString("## Chronology\n\n")
	for _, e := range s.Correlation.TimelineEvents {
		fmt.Fprintf(&sb, "- **%s** [%s] %s (evidence %s)",
			e.Timestamp.Format("2006-01-02"), e.Source, e.Description, short(e.SHA256))
		if len(e.RiskFlags) > 0 {
			fmt.Fprintf(&sb, " (flags: %s)", strings.Join(e.RiskFlags, ", "))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n## Suspicious Gaps\n\n")
	if len(s.Correlation.TimelineGaps) == 0 {
		sb.WriteString("No suspicious gaps at the configured threshold.\n")
	}
	for _, g := range s.Correlation.TimelineGaps {
		fmt.Fprintf(&sb, "- **%d days** (%s to %s, significance %s): %s\n",
			g.Days, g.Start.Format("2006-01-02"), g.End.Format("2006-01-02"),
			g.Significance, g.Rationale)
	}

	if len(s.Correlation.TemporalSequences) > 0 {
		sb.WriteString("\n## Detected Sequences\n\n")
		for _, seq := range s.Correlation.TemporalSequences {
			fmt.Fprintf(&sb, "### %s (confidence %.2f)\n\n", seq.Kind, seq.Confidence)
			for _, e := range seq.Events {
				fmt.Fprintf(&sb, "1. %s: %s (evidence %s)\n",
					e.Timestamp.Format("2006-01-02"), e.Description, short(e.SHA256))
			}
			sb.WriteString("\n")
		}
	}
	return writeReport(outDir, r.ReportFilename(), sb.String())
}
