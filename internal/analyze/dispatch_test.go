package analyze

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casetrace/casetrace-go/internal/detect"
	"github.com/casetrace/casetrace-go/internal/llm"
	"github.com/casetrace/casetrace-go/internal/models"
	"github.com/casetrace/casetrace-go/internal/store"
)

const documentPayload = `{
	"summary": "A formal grievance letter.",
	"entities": [],
	"document_type": "letter",
	"sentiment": "hostile",
	"legal_significance": "high",
	"risk_flags": ["retaliation"],
	"confidence": 0.9
}`

func newDispatchFixture(t *testing.T) (*Dispatcher, *store.Store, *llm.FakeProvider, string) {
	t.Helper()
	detector := detect.New()
	st, err := store.Open(t.TempDir(), detector)
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "grievance.txt")
	require.NoError(t, os.WriteFile(src, []byte("I wish to raise a formal grievance."), 0o644))
	res, err := st.Ingest(context.Background(), src, "case-a", "tester")
	require.NoError(t, err)

	fake := llm.NewFakeProvider(documentPayload)
	client := llm.NewClientWithProvider(fake, "test-model", time.Minute)
	return NewDispatcher(st, detector, client, nil, nil), st, fake, res.SHA256
}

func TestAnalyzePersistsAndLabels(t *testing.T) {
	d, st, fake, sha := newDispatchFixture(t)

	unified, err := d.Analyze(context.Background(), sha, Options{CaseID: "case-a", Actor: "tester"})
	require.NoError(t, err)

	assert.Equal(t, models.EvidenceDocument, unified.EvidenceType)
	assert.Equal(t, "test-model", unified.Model)
	assert.Equal(t, []string{"case-a"}, unified.CaseIDs)
	assert.Contains(t, unified.Labels, "document")
	assert.Contains(t, unified.Labels, "retaliation")
	require.NotNil(t, unified.Document)
	assert.NotNil(t, unified.Document.WordStats)
	assert.Equal(t, 1, fake.CallCount())

	// Persisted and custody recorded.
	assert.True(t, st.HasAnalysis(sha))
	chain, err := st.LoadCustody(sha)
	require.NoError(t, err)
	var analyzed int
	for _, e := range chain.Events {
		if e.Action == models.ActionAnalyze {
			analyzed++
		}
	}
	assert.Equal(t, 1, analyzed)
}

func TestAnalyzeCachedIsPureRead(t *testing.T) {
	d, st, fake, sha := newDispatchFixture(t)
	ctx := context.Background()

	first, err := d.Analyze(ctx, sha, Options{CaseID: "case-a"})
	require.NoError(t, err)
	chainBefore, err := st.LoadCustody(sha)
	require.NoError(t, err)

	second, err := d.Analyze(ctx, sha, Options{CaseID: "case-a"})
	require.NoError(t, err)

	// No second model call, no new custody event, identical payload.
	assert.Equal(t, 1, fake.CallCount())
	chainAfter, err := st.LoadCustody(sha)
	require.NoError(t, err)
	assert.Equal(t, len(chainBefore.Events), len(chainAfter.Events))
	assert.Equal(t, first.Document.Summary, second.Document.Summary)
}

func TestAnalyzeForceReruns(t *testing.T) {
	d, st, fake, sha := newDispatchFixture(t)
	ctx := context.Background()

	_, err := d.Analyze(ctx, sha, Options{CaseID: "case-a"})
	require.NoError(t, err)

	_, err = d.Analyze(ctx, sha, Options{CaseID: "case-a", Force: true})
	require.NoError(t, err)
	assert.Equal(t, 2, fake.CallCount())

	chain, err := st.LoadCustody(sha)
	require.NoError(t, err)
	var reanalyzed int
	for _, e := range chain.Events {
		if e.Action == models.ActionReanalyze {
			reanalyzed++
		}
	}
	assert.Equal(t, 1, reanalyzed)
}

func TestAnalyzeNotAnalyzableType(t *testing.T) {
	d, _, fake, sha := newDispatchFixture(t)

	_, err := d.Analyze(context.Background(), sha, Options{TypeOverride: models.EvidenceOther})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAnalyzable)
	assert.Equal(t, 0, fake.CallCount())
}

func TestAnalyzeCancelledContext(t *testing.T) {
	d, _, fake, sha := newDispatchFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Analyze(ctx, sha, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, fake.CallCount())
}
