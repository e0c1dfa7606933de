package analyze

import (
	"sort"
	"strings"

	"github.com/casetrace/casetrace-go/internal/models"
)

// GenerateLabels emits the closed label scheme for an analysis:
//   - the evidence type, always
//   - "<significance>-significance" for documents and emails
//   - one label per risk flag (normalized)
//   - "doctype-<type>" for documents, "pattern-<pattern>" for emails
//   - "visual-evidence" for images
//
// Output is sorted and de-duplicated so label sets are reproducible.
func GenerateLabels(u *models.UnifiedAnalysis) []string {
	set := map[string]bool{string(u.EvidenceType): true}

	switch {
	case u.Document != nil:
		set[string(u.Document.LegalSignificance)+"-significance"] = true
		set["doctype-"+normalizeLabel(u.Document.DocumentType)] = true
		for _, flag := range u.Document.RiskFlags {
			set[normalizeLabel(flag)] = true
		}
	case u.Email != nil:
		set[string(u.Email.LegalSignificance)+"-significance"] = true
		set["pattern-"+normalizeLabel(u.Email.CommunicationPattern)] = true
		for _, flag := range u.Email.RiskFlags {
			set[normalizeLabel(flag)] = true
		}
	case u.Image != nil:
		set["visual-evidence"] = true
	}

	labels := make([]string, 0, len(set))
	for l := range set {
		if l != "" {
			labels = append(labels, l)
		}
	}
	sort.Strings(labels)
	return labels
}

// normalizeLabel squashes a flag or tag into the label alphabet:
// lowercase, spaces and underscores collapsed to single dashes.
func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), "-")
}
