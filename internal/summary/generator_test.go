package summary

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casetrace/casetrace-go/internal/correlation"
	"github.com/casetrace/casetrace-go/internal/detect"
	"github.com/casetrace/casetrace-go/internal/llm"
	"github.com/casetrace/casetrace-go/internal/models"
	"github.com/casetrace/casetrace-go/internal/store"
)

const execPayload = `{
	"narrative": "The evidence shows an escalating dispute.",
	"key_findings": ["complaint followed by disciplinary action"],
	"legal_implications": ["retaliation exposure"],
	"recommended_actions": ["collect witness statements"]
}`

const chunkPayload = `{
	"findings": ["several hostile communications in this batch"],
	"implications": ["pattern of pressure"],
	"actions": []
}`

// seedAnalyzedCase ingests n analyzed text documents into one case.
func seedAnalyzedCase(t *testing.T, st *store.Store, caseID string, n int) {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("item_%03d.txt", i))
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("evidence item %d", i)), 0o644))
		res, err := st.Ingest(ctx, path, caseID, "tester")
		require.NoError(t, err)

		_, err = st.SaveAnalysis(res.SHA256, &models.UnifiedAnalysis{
			SHA256:       res.SHA256,
			EvidenceType: models.EvidenceDocument,
			AnalyzedAt:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			Model:        "gpt-4o",
			Document: &models.DocumentAnalysis{
				Summary:           fmt.Sprintf("Correspondence item %d.", i),
				DocumentType:      "letter",
				Sentiment:         models.SentimentNeutral,
				LegalSignificance: models.SignificanceMedium,
				Confidence:        0.8,
			},
		}, "analyzer", false)
		require.NoError(t, err)
	}
}

func newSummaryFixture(t *testing.T, fake *llm.FakeProvider, opts Options) (*Generator, *store.Store) {
	t.Helper()
	st, err := store.Open(t.TempDir(), detect.New())
	require.NoError(t, err)
	client := llm.NewClientWithProvider(fake, "test-model", time.Minute)
	engine := correlation.NewEngine(st, nil, correlation.Options{})
	return NewGenerator(st, client, engine, opts), st
}

func TestGenerateDirectPath(t *testing.T) {
	fake := llm.NewFakeProvider(execPayload)
	g, st := newSummaryFixture(t, fake, Options{})
	seedAnalyzedCase(t, st, "case-a", 3)

	summary, err := g.Generate(context.Background(), "case-a")
	require.NoError(t, err)

	// Below the chunk threshold: a single executive call.
	assert.Equal(t, 1, fake.CallCount())
	assert.Equal(t, "case-a", summary.CaseID)
	assert.Len(t, summary.EvidenceSummaries, 3)
	assert.Equal(t, 3, summary.AnalyzedCount())
	require.NotNil(t, summary.ExecutiveSummary)
	assert.Equal(t, "The evidence shows an escalating dispute.", summary.ExecutiveSummary.Narrative)
	require.NotNil(t, summary.Correlation)
	assert.True(t, summary.OverallAssessment.Has(models.KeyTribunalProbability))
	assert.Equal(t, "The evidence shows an escalating dispute.",
		summary.OverallAssessment.GetString(models.KeyForensicSummary, ""))
}

func TestGenerateMapReducePath(t *testing.T) {
	fake := &llm.FakeProvider{}
	fake.Enqueue(&llm.Response{Status: llm.StatusCompleted, JSON: []byte(chunkPayload)})
	fake.Enqueue(&llm.Response{Status: llm.StatusCompleted, JSON: []byte(chunkPayload)})
	fake.Enqueue(&llm.Response{Status: llm.StatusCompleted, JSON: []byte(execPayload)})

	g, st := newSummaryFixture(t, fake, Options{ChunkThreshold: 50, ChunkSize: 30})
	seedAnalyzedCase(t, st, "case-big", 60)

	summary, err := g.Generate(context.Background(), "case-big")
	require.NoError(t, err)

	// 60 items over a chunk size of 30: two map calls plus one reduce.
	assert.Equal(t, 3, fake.CallCount())
	assert.Len(t, summary.EvidenceSummaries, 60)
	require.NotNil(t, summary.ExecutiveSummary)
	assert.Equal(t, "The evidence shows an escalating dispute.", summary.ExecutiveSummary.Narrative)
}

func TestGenerateMarksUnanalyzedEvidence(t *testing.T) {
	fake := llm.NewFakeProvider(execPayload)
	g, st := newSummaryFixture(t, fake, Options{})
	seedAnalyzedCase(t, st, "case-a", 2)

	// One extra item ingested but never analyzed.
	path := filepath.Join(t.TempDir(), "pending.txt")
	require.NoError(t, os.WriteFile(path, []byte("awaiting analysis"), 0o644))
	_, err := st.Ingest(context.Background(), path, "case-a", "tester")
	require.NoError(t, err)

	summary, err := g.Generate(context.Background(), "case-a")
	require.NoError(t, err)

	assert.Len(t, summary.EvidenceSummaries, 3)
	assert.Equal(t, 2, summary.AnalyzedCount())
	var pending int
	for _, row := range summary.EvidenceSummaries {
		if !row.Analyzed {
			pending++
			assert.Empty(t, row.KeyFindings)
		}
	}
	assert.Equal(t, 1, pending)
}

func TestGenerateUnknownCaseType(t *testing.T) {
	fake := llm.NewFakeProvider(execPayload)
	g, st := newSummaryFixture(t, fake, Options{CaseType: "maritime-salvage"})
	seedAnalyzedCase(t, st, "case-a", 1)

	_, err := g.Generate(context.Background(), "case-a")
	require.Error(t, err)
	assert.Equal(t, 0, fake.CallCount())
}

func TestGenerateCaseTypePrompts(t *testing.T) {
	for _, caseType := range []string{"generic", "workplace", "employment", "contract"} {
		t.Run(caseType, func(t *testing.T) {
			fake := llm.NewFakeProvider(execPayload)
			g, st := newSummaryFixture(t, fake, Options{CaseType: caseType})
			seedAnalyzedCase(t, st, "case-a", 1)

			_, err := g.Generate(context.Background(), "case-a")
			require.NoError(t, err)
			require.Equal(t, 1, fake.CallCount())
			assert.NotEmpty(t, fake.Calls[0].System)
		})
	}
}
