package analyze

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/casetrace/casetrace-go/internal/models"
)

func unifiedWith(t models.EvidenceType) *models.UnifiedAnalysis {
	return &models.UnifiedAnalysis{
		SHA256:       "deadbeef",
		EvidenceType: t,
		AnalyzedAt:   time.Now().UTC(),
		Model:        "gpt-4o",
	}
}

func TestGenerateLabelsDocument(t *testing.T) {
	u := unifiedWith(models.EvidenceDocument)
	u.Document = &models.DocumentAnalysis{
		Summary:           "s",
		DocumentType:      "Disciplinary Letter",
		Sentiment:         models.SentimentHostile,
		LegalSignificance: models.SignificanceCritical,
		RiskFlags:         []string{"Retaliation", "policy_violation"},
		Confidence:        0.9,
	}

	labels := GenerateLabels(u)
	assert.Equal(t, []string{
		"critical-significance",
		"doctype-disciplinary-letter",
		"document",
		"policy-violation",
		"retaliation",
	}, labels)
}

func TestGenerateLabelsEmail(t *testing.T) {
	u := unifiedWith(models.EvidenceEmail)
	u.Email = &models.EmailAnalysis{
		ThreadSummary:        "s",
		CommunicationPattern: "One Sided Pressure",
		LegalSignificance:    models.SignificanceHigh,
		RiskFlags:            []string{"harassment"},
		Confidence:           0.8,
	}

	labels := GenerateLabels(u)
	assert.Contains(t, labels, "email")
	assert.Contains(t, labels, "high-significance")
	assert.Contains(t, labels, "pattern-one-sided-pressure")
	assert.Contains(t, labels, "harassment")
}

func TestGenerateLabelsImage(t *testing.T) {
	u := unifiedWith(models.EvidenceImage)
	u.Image = &models.ImageAnalysis{SceneDescription: "a whiteboard", Confidence: 0.7}

	labels := GenerateLabels(u)
	assert.Equal(t, []string{"image", "visual-evidence"}, labels)
}

func TestGenerateLabelsSortedAndDeduplicated(t *testing.T) {
	u := unifiedWith(models.EvidenceDocument)
	u.Document = &models.DocumentAnalysis{
		Summary:           "s",
		DocumentType:      "letter",
		Sentiment:         models.SentimentNeutral,
		LegalSignificance: models.SignificanceLow,
		RiskFlags:         []string{"retaliation", "RETALIATION", "retaliation "},
		Confidence:        0.5,
	}

	labels := GenerateLabels(u)
	assert.True(t, sort.StringsAreSorted(labels))
	seen := map[string]int{}
	for _, l := range labels {
		seen[l]++
	}
	assert.Equal(t, 1, seen["retaliation"])
}

func TestNormalizeLabel(t *testing.T) {
	cases := map[string]string{
		"Retaliation":                 "retaliation",
		"policy_violation":            "policy-violation",
		"  Destruction of  Evidence ": "destruction-of-evidence",
		"":                            "",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeLabel(in), "input %q", in)
	}
}
