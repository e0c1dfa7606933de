package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/casetrace/casetrace-go/internal/models"
)

// executiveSummaryReport is the anchor report; it always has data.
type executiveSummaryReport struct{}

func (r *executiveSummaryReport) HasData(*models.CaseSummary) bool { return true }
func (r *executiveSummaryReport) ReportFilename() string           { return "executive_summary.md" }
func (r *executiveSummaryReport) ReportTitle() string              { return "Executive Summary" }

func (r *executiveSummaryReport) Generate(s *models.CaseSummary, outDir string) (string, error) {
	var sb strings.Builder
	sb.WriteString(header(r.ReportTitle(), s))

	if s.ExecutiveSummary != nil {
		sb.WriteString("## Narrative\n\n")
		sb.WriteString(s.ExecutiveSummary.Narrative + "\n\n")
		sb.WriteString("## Key Findings\n\n")
		bulletList(&sb, s.ExecutiveSummary.KeyFindings, "No findings recorded.")
		sb.WriteString("\n## Legal Implications\n\n")
		bulletList(&sb, s.ExecutiveSummary.LegalImplications, "None identified.")
		sb.WriteString("\n## Recommended Actions\n\n")
		bulletList(&sb, s.ExecutiveSummary.RecommendedActions, "None recommended.")
	} else {
		sb.WriteString("No executive summary was generated for this case.\n")
	}

	sb.WriteString("\n## Evidence Inventory\n\n")
	sb.WriteString("| Evidence | Type | Significance | Risk Flags |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, e := range s.EvidenceSummaries {
		sig := string(e.LegalSignificance)
		if !e.Analyzed {
			sig = "not analyzed"
		}
		fmt.Fprintf(&sb, "| %s (%s) | %s | %s | %s |\n",
			e.Filename, short(e.SHA256), e.EvidenceType, sig, strings.Join(e.RiskFlags, ", "))
	}
	return writeReport(outDir, r.ReportFilename(), sb.String())
}

type forensicLegalOpinionReport struct{}

func (r *forensicLegalOpinionReport) HasData(s *models.CaseSummary) bool {
	return s.OverallAssessment.Has(models.KeyForensicSummary)
}
func (r *forensicLegalOpinionReport) ReportFilename() string { return "forensic_legal_opinion.md" }
func (r *forensicLegalOpinionReport) ReportTitle() string    { return "Forensic Legal Opinion" }

func (r *forensicLegalOpinionReport) Generate(s *models.CaseSummary, outDir string) (string, error) {
	var sb strings.Builder
	sb.WriteString(header(r.ReportTitle(), s))

	sb.WriteString("## Opinion\n\n")
	sb.WriteString(s.OverallAssessment.GetString(models.KeyForensicSummary, "") + "\n\n")

	sb.WriteString("## Legal Implications\n\n")
	bulletList(&sb, asStrings(s.OverallAssessment.Get(models.KeyForensicImplications, nil)), "None identified.")

	sb.WriteString("\n## Recommended Actions\n\n")
	bulletList(&sb, asStrings(s.OverallAssessment.Get(models.KeyForensicActions, nil)), "None recommended.")

	if s.OverallAssessment.Has(models.KeyForensicRisk) {
		fmt.Fprintf(&sb, "\n## Risk Assessment\n\nOverall risk band: **%s**\n",
			s.OverallAssessment.GetString(models.KeyForensicRisk, "unknown"))
	}
	return writeReport(outDir, r.ReportFilename(), sb.String())
}

type financialRiskReport struct{}

func (r *financialRiskReport) HasData(s *models.CaseSummary) bool {
	return s.OverallAssessment.Has(models.KeyTribunalProbability)
}
func (r *financialRiskReport) ReportFilename() string { return "financial_risk_assessment.md" }
func (r *financialRiskReport) ReportTitle() string    { return "Financial Risk Assessment" }

func (r *financialRiskReport) Generate(s *models.CaseSummary, outDir string) (string, error) {
	var sb strings.Builder
	sb.WriteString(header(r.ReportTitle(), s))

	prob := s.OverallAssessment.GetFloat(models.KeyTribunalProbability, 0)
	fmt.Fprintf(&sb, "## Tribunal Probability\n\n**%.0f%%** estimated likelihood of tribunal proceedings based on the current evidence record.\n\n", prob*100)

	sb.WriteString("## Financial Exposure\n\n")
	sb.WriteString(s.OverallAssessment.GetString(models.KeyFinancialExposure, "No exposure estimate available.") + "\n\n")

	if s.OverallAssessment.Has(models.KeyRiskFlagBreakdown) {
		sb.WriteString("## Risk Flag Breakdown\n\n")
		writeRiskBreakdown(&sb, s.OverallAssessment.Get(models.KeyRiskFlagBreakdown, nil))
	}
	return writeReport(outDir, r.ReportFilename(), sb.String())
}

func writeRiskBreakdown(sb *strings.Builder, v any) {
	rows := func(m map[string]int) {
		sb.WriteString("| Flag | Count |\n|---|---|\n")
		for _, k := range sortedFlagKeys(m) {
			fmt.Fprintf(sb, "| %s | %d |\n", k, m[k])
		}
	}
	switch t := v.(type) {
	case map[string]int:
		rows(t)
	case map[string]any:
		m := make(map[string]int, len(t))
		for k, raw := range t {
			if f, ok := raw.(float64); ok {
				m[k] = int(f)
			}
		}
		rows(m)
	default:
		sb.WriteString("No risk flags recorded.\n")
	}
}

func sortedFlagKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Highest count first, name breaks ties.
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
