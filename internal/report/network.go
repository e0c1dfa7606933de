package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/casetrace/casetrace-go/internal/models"
)

type quotedStatementsReport struct{}

func (r *quotedStatementsReport) HasData(s *models.CaseSummary) bool {
	return len(asMaps(s.OverallAssessment.Get(models.KeyQuotedStatements, nil))) > 0
}
func (r *quotedStatementsReport) ReportFilename() string { return "quoted_statements.md" }
func (r *quotedStatementsReport) ReportTitle() string    { return "Quoted Statements Analysis" }

func (r *quotedStatementsReport) Generate(s *models.CaseSummary, outDir string) (string, error) {
	quotes := asMaps(s.OverallAssessment.Get(models.KeyQuotedStatements, nil))

	bySpeaker := make(map[string][]map[string]any)
	for _, q := range quotes {
		speaker := mapString(q, "speaker")
		if speaker == "" {
			speaker = "unattributed"
		}
		bySpeaker[speaker] = append(bySpeaker[speaker], q)
	}
	speakers := make([]string, 0, len(bySpeaker))
	for sp := range bySpeaker {
		speakers = append(speakers, sp)
	}
	sort.Strings(speakers)

	var sb strings.Builder
	sb.WriteString(header(r.ReportTitle(), s))
	fmt.Fprintf(&sb, "%d attributed statements across %d speakers.\n\n", len(quotes), len(speakers))
	for _, sp := range speakers {
		fmt.Fprintf(&sb, "## %s\n\n", sp)
		for _, q := range bySpeaker[sp] {
			fmt.Fprintf(&sb, "> %s\n\n", mapString(q, "text"))
			if src := mapString(q, "source"); src != "" {
				fmt.Fprintf(&sb, "*Source: %s*\n\n", src)
			}
		}
	}
	return writeReport(outDir, r.ReportFilename(), sb.String())
}

type relationshipNetworkReport struct{}

func (r *relationshipNetworkReport) HasData(s *models.CaseSummary) bool {
	return s.OverallAssessment.Has(models.KeyRelationshipNetwork)
}
func (r *relationshipNetworkReport) ReportFilename() string { return "relationship_network.md" }
func (r *relationshipNetworkReport) ReportTitle() string    { return "Relationship Network" }

func (r *relationshipNetworkReport) Generate(s *models.CaseSummary, outDir string) (string, error) {
	edges := asMaps(s.OverallAssessment.Get(models.KeyRelationshipNetwork, nil))

	var sb strings.Builder
	sb.WriteString(header(r.ReportTitle(), s))
	sb.WriteString("Entities connected by co-occurrence in the same evidence. Edge weight is the number of shared items.\n\n")
	sb.WriteString("| From | To | Shared Evidence |\n|---|---|---|\n")
	for _, e := range edges {
		fmt.Fprintf(&sb, "| %s | %s | %.0f |\n",
			mapString(e, "from"), mapString(e, "to"), mapFloat(e, "weight"))
	}

	if s.Correlation != nil && len(s.Correlation.Entities) > 0 {
		sb.WriteString("\n## Entity Inventory\n\n")
		for _, ent := range s.Correlation.Entities {
			fmt.Fprintf(&sb, "- **%s** (%s): %d occurrences across %d evidence items",
				ent.CanonicalName, ent.Type, len(ent.Occurrences), ent.EvidenceCount())
			if ent.ResolutionMethod == "ai" {
				sb.WriteString(" [AI-resolved]")
			}
			sb.WriteString("\n")
		}
	}
	return writeReport(outDir, r.ReportFilename(), sb.String())
}

type powerDynamicsReport struct{}

func (r *powerDynamicsReport) HasData(s *models.CaseSummary) bool {
	return s.OverallAssessment.Has(models.KeyPowerDynamics)
}
func (r *powerDynamicsReport) ReportFilename() string { return "power_dynamics.md" }
func (r *powerDynamicsReport) ReportTitle() string    { return "Email Power Dynamics" }

func (r *powerDynamicsReport) Generate(s *models.CaseSummary, outDir string) (string, error) {
	rows := asMaps(s.OverallAssessment.Get(models.KeyPowerDynamics, nil))

	var sb strings.Builder
	sb.WriteString(header(r.ReportTitle(), s))
	sb.WriteString("Deference scores by participant: 0.0 dominant, 0.5 neutral, 1.0 deferential. Scores are averaged across every thread the participant appears in.\n\n")
	sb.WriteString("| Participant | Address | Stance | Deference | Threads |\n|---|---|---|---|---|\n")
	for _, row := range rows {
		name := mapString(row, "name")
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %.2f | %.0f |\n",
			name, mapString(row, "address"), mapString(row, "stance"),
			mapFloat(row, "deference_score"), mapFloat(row, "threads"))
	}
	return writeReport(outDir, r.ReportFilename(), sb.String())
}

type imageOCRReport struct{}

func (r *imageOCRReport) HasData(s *models.CaseSummary) bool {
	return len(asMaps(s.OverallAssessment.Get(models.KeyImageOCR, nil))) > 0
}
func (r *imageOCRReport) ReportFilename() string { return "image_ocr.md" }
func (r *imageOCRReport) ReportTitle() string    { return "Image OCR Extraction" }

var significanceRank = map[string]int{
	"critical": 0,
	"high":     1,
	"medium":   2,
	"low":      3,
}

func (r *imageOCRReport) Generate(s *models.CaseSummary, outDir string) (string, error) {
	rows := asMaps(s.OverallAssessment.Get(models.KeyImageOCR, nil))
	sort.SliceStable(rows, func(i, j int) bool {
		ri := significanceRank[mapString(rows[i], "significance")]
		rj := significanceRank[mapString(rows[j], "significance")]
		if ri != rj {
			return ri < rj
		}
		return mapString(rows[i], "sha256") < mapString(rows[j], "sha256")
	})

	names := make(map[string]string, len(s.EvidenceSummaries))
	for _, e := range s.EvidenceSummaries {
		names[e.SHA256] = e.Filename
	}

	var sb strings.Builder
	sb.WriteString(header(r.ReportTitle(), s))
	fmt.Fprintf(&sb, "Recovered text from %d image evidence items, highest significance first.\n\n", len(rows))
	for _, row := range rows {
		sha := mapString(row, "sha256")
		name := names[sha]
		if name == "" {
			name = "unknown"
		}
		fmt.Fprintf(&sb, "## %s (%s)\n\n", name, short(sha))
		fmt.Fprintf(&sb, "**Significance:** %s\n\n", mapString(row, "significance"))
		fmt.Fprintf(&sb, "```\n%s\n```\n\n", mapString(row, "text"))
	}
	return writeReport(outDir, r.ReportFilename(), sb.String())
}
