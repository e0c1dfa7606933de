package correlation

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casetrace/casetrace-go/internal/llm"
	"github.com/casetrace/casetrace-go/internal/models"
)

func patternPayload(t *testing.T, shaA, shaB, outsider string) string {
	t.Helper()
	payload := map[string]any{
		"contradictions": []map[string]any{
			{
				"statement_a":      "dismissed for misconduct",
				"statement_b":      "role eliminated in restructure",
				"evidence_sources": []string{shaA, shaB},
				"type":             "factual",
				"severity":         0.8,
			},
			{
				"statement_a":      "meeting happened",
				"statement_b":      "meeting never happened",
				"evidence_sources": []string{shaA, outsider},
				"type":             "attribution",
				"severity":         0.6,
			},
		},
		"corroborations": []map[string]any{
			{
				"claim":              "a complaint was filed in January",
				"supporting_sources": []string{shaA, shaB},
				"strength":           "strong",
				"confidence":         0.9,
			},
		},
		"evidence_gaps": []map[string]any{
			{"description": "no HR meeting minutes on record", "gap_type": "missing_documentation", "priority": "high"},
		},
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return string(data)
}

func TestPatternDetectorFiltersForeignSHAs(t *testing.T) {
	shaA := strings.Repeat("a", 64)
	shaB := strings.Repeat("b", 64)
	outsider := strings.Repeat("f", 64)

	fake := llm.NewFakeProvider(patternPayload(t, shaA, shaB, outsider))
	d := NewPatternDetector(llm.NewClientWithProvider(fake, "test-model", time.Minute))

	inputs := []evidenceInput{
		docInput('a', "Dismissal letter citing misconduct.", []string{"retaliation"}, models.SignificanceHigh),
		docInput('b', "Restructure announcement.", nil, models.SignificanceMedium),
	}

	patterns, violations, err := d.Detect(context.Background(), "case-a", inputs, []string{shaA, shaB})
	require.NoError(t, err)

	// The contradiction citing evidence outside the case is dropped and the
	// offending SHA reported.
	require.Len(t, patterns.Contradictions, 1)
	assert.Equal(t, "dismissed for misconduct", patterns.Contradictions[0].StatementA)
	assert.Equal(t, []string{outsider}, violations)

	// In-case corroborations and gaps survive untouched.
	assert.Len(t, patterns.Corroborations, 1)
	assert.Len(t, patterns.EvidenceGaps, 1)
}

func TestPatternDetectorEmptyCase(t *testing.T) {
	fake := llm.NewFakeProvider(`{}`)
	d := NewPatternDetector(llm.NewClientWithProvider(fake, "test-model", time.Minute))

	patterns, violations, err := d.Detect(context.Background(), "case-a", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, patterns.Contradictions)
	assert.Empty(t, violations)
	// No model call for an empty case.
	assert.Equal(t, 0, fake.CallCount())
}

func TestBuildPatternInputCarriesFullSHAs(t *testing.T) {
	inputs := []evidenceInput{
		docInput('a', "Dismissal letter.", []string{"retaliation"}, models.SignificanceHigh,
			dateEntity("2025-01-10", "complaint filed")),
	}

	text := buildPatternInput("case-a", inputs)
	assert.Contains(t, text, strings.Repeat("a", 64))
	assert.Contains(t, text, "Risk flags: retaliation")
	assert.Contains(t, text, "Dated event: 2025-01-10 -> complaint filed")
}
