package correlation

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casetrace/casetrace-go/internal/detect"
	"github.com/casetrace/casetrace-go/internal/models"
	"github.com/casetrace/casetrace-go/internal/store"
)

func seedCase(t *testing.T) (*store.Store, string) {
	t.Helper()
	st, err := store.Open(t.TempDir(), detect.New())
	require.NoError(t, err)
	ctx := context.Background()

	ingest := func(name, content string) string {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		res, err := st.Ingest(ctx, path, "smith-v-acme", "tester")
		require.NoError(t, err)
		return res.SHA256
	}

	save := func(sha string, doc *models.DocumentAnalysis) {
		_, err := st.SaveAnalysis(sha, &models.UnifiedAnalysis{
			SHA256:       sha,
			EvidenceType: models.EvidenceDocument,
			AnalyzedAt:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			Model:        "gpt-4o",
			Document:     doc,
		}, "analyzer", false)
		require.NoError(t, err)
	}

	complaint := ingest("complaint.txt", "Formal complaint about my manager.")
	save(complaint, &models.DocumentAnalysis{
		Summary:           "Employee files a formal complaint.",
		DocumentType:      "complaint",
		Sentiment:         models.SentimentNeutral,
		LegalSignificance: models.SignificanceHigh,
		RiskFlags:         []string{"grievance"},
		Entities: []models.Entity{
			{Name: "Karen Mills", Type: models.EntityPerson, Confidence: 0.9, Context: "named manager"},
			{Name: "2025-01-10", Type: models.EntityDate, Confidence: 0.9, AssociatedEvent: "complaint filed"},
		},
		Confidence: 0.9,
	})

	warning := ingest("warning.txt", "Final written warning issued.")
	save(warning, &models.DocumentAnalysis{
		Summary:           "Employer issues a disciplinary warning.",
		DocumentType:      "warning letter",
		Sentiment:         models.SentimentHostile,
		LegalSignificance: models.SignificanceCritical,
		RiskFlags:         []string{"retaliation"},
		Entities: []models.Entity{
			{Name: "karen mills", Type: models.EntityPerson, Confidence: 0.8, Context: "signed the warning"},
			{Name: "2025-03-01", Type: models.EntityDate, Confidence: 0.9, AssociatedEvent: "disciplinary warning issued"},
		},
		Confidence: 0.85,
	})

	// Ingested but never analyzed; correlation must skip it quietly.
	ingest("unprocessed.txt", "not analyzed yet")

	return st, "smith-v-acme"
}

func TestCorrelateDeterministic(t *testing.T) {
	st, caseID := seedCase(t)
	engine := NewEngine(st, nil, Options{})
	ctx := context.Background()

	first, err := engine.Correlate(ctx, caseID)
	require.NoError(t, err)
	second, err := engine.Correlate(ctx, caseID)
	require.NoError(t, err)

	// Apart from the generation timestamp the runs are byte-identical.
	first.GeneratedAt = time.Time{}
	second.GeneratedAt = time.Time{}
	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestCorrelateMergesAndChains(t *testing.T) {
	st, caseID := seedCase(t)
	engine := NewEngine(st, nil, Options{GapThresholdDays: 14})

	result, err := engine.Correlate(context.Background(), caseID)
	require.NoError(t, err)

	// Unanalyzed evidence excluded from the count.
	assert.Equal(t, 2, result.EvidenceCount)

	// "Karen Mills" and "karen mills" merge into one person.
	var persons []models.CorrelatedEntity
	for _, e := range result.Entities {
		if e.Type == models.EntityPerson {
			persons = append(persons, e)
		}
	}
	require.Len(t, persons, 1)
	assert.Len(t, persons[0].Occurrences, 2)
	assert.Equal(t, "string", persons[0].ResolutionMethod)

	// Two semantic dates plus two filesystem events make the timeline.
	assert.GreaterOrEqual(t, len(result.TimelineEvents), 2)

	// Complaint (Jan 10) then warning (Mar 1): gap plus retaliation chain.
	require.NotEmpty(t, result.TimelineGaps)
	assert.Equal(t, 50, result.TimelineGaps[0].Days)

	var kinds []string
	for _, s := range result.TemporalSequences {
		kinds = append(kinds, s.Kind)
	}
	assert.Contains(t, kinds, "complaint-retaliation")
}

func TestCorrelateEmptyCase(t *testing.T) {
	st, err := store.Open(t.TempDir(), detect.New())
	require.NoError(t, err)

	result, err := NewEngine(st, nil, Options{}).Correlate(context.Background(), "no-such-case")
	require.NoError(t, err)
	assert.Zero(t, result.EvidenceCount)
	assert.Empty(t, result.TimelineEvents)
	assert.NotNil(t, result.Entities)
}

func TestCorrelateCancelled(t *testing.T) {
	st, caseID := seedCase(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(st, nil, Options{}).Correlate(ctx, caseID)
	assert.Error(t, err)
}
