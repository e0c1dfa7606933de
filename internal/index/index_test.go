package index

import (
	"context"
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

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestUpsertAndCaseEvidence(t *testing.T) {
	ix := openTestIndex(t)

	sha := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	require.NoError(t, ix.Upsert(EvidenceRow{
		SHA256: sha, Filename: "complaint.txt", SizeBytes: 42, EvidenceType: "document",
	}))
	require.NoError(t, ix.Link("case-a", sha))

	rows, err := ix.CaseEvidence("case-a")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "complaint.txt", rows[0].Filename)
	assert.False(t, rows[0].Analyzed)

	// Upsert overwrites analysis fields, keeps identity.
	sig := "high"
	conf := 0.9
	require.NoError(t, ix.Upsert(EvidenceRow{
		SHA256: sha, Filename: "complaint.txt", SizeBytes: 42,
		EvidenceType: "document", Analyzed: true, Significance: &sig, Confidence: &conf,
	}))

	rows, err = ix.CaseEvidence("case-a")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Analyzed)
	require.NotNil(t, rows[0].Significance)
	assert.Equal(t, "high", *rows[0].Significance)
}

func TestLinkIdempotent(t *testing.T) {
	ix := openTestIndex(t)
	sha := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	require.NoError(t, ix.Upsert(EvidenceRow{SHA256: sha, Filename: "f", EvidenceType: "document"}))
	require.NoError(t, ix.Link("case-a", sha))
	require.NoError(t, ix.Link("case-a", sha))

	counts, err := ix.CaseCounts()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"case-a": 1}, counts)
}

func TestRebuildFromStore(t *testing.T) {
	st, err := store.Open(t.TempDir(), detect.New())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "complaint.txt")
	require.NoError(t, os.WriteFile(path, []byte("a formal complaint"), 0o644))
	res, err := st.Ingest(context.Background(), path, "case-a", "tester")
	require.NoError(t, err)

	_, err = st.SaveAnalysis(res.SHA256, &models.UnifiedAnalysis{
		SHA256:       res.SHA256,
		EvidenceType: models.EvidenceDocument,
		AnalyzedAt:   time.Now().UTC(),
		Model:        "gpt-4o",
		Document: &models.DocumentAnalysis{
			Summary: "s", DocumentType: "letter",
			Sentiment:         models.SentimentNeutral,
			LegalSignificance: models.SignificanceHigh,
			Confidence:        0.9,
		},
	}, "analyzer", false)
	require.NoError(t, err)

	ix := openTestIndex(t)
	// Stale row that the rebuild must discard.
	require.NoError(t, ix.Upsert(EvidenceRow{
		SHA256:       "cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc",
		Filename:     "ghost.txt",
		EvidenceType: "document",
	}))

	require.NoError(t, ix.Rebuild(st))

	rows, err := ix.CaseEvidence("case-a")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, res.SHA256, rows[0].SHA256)
	assert.True(t, rows[0].Analyzed)

	counts, err := ix.CaseCounts()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"case-a": 1}, counts)
}
