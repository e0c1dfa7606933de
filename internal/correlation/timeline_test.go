package correlation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casetrace/casetrace-go/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func docInput(sha64 byte, summary string, risk []string, sig models.Significance, dates ...models.Entity) evidenceInput {
	sha := strings.Repeat(string(sha64), 64)
	return evidenceInput{
		SHA256: sha,
		Analysis: &models.UnifiedAnalysis{
			SHA256:       sha,
			EvidenceType: models.EvidenceDocument,
			AnalyzedAt:   day(2025, 6, 1),
			Model:        "gpt-4o",
			Document: &models.DocumentAnalysis{
				Summary:           summary,
				DocumentType:      "letter",
				Sentiment:         models.SentimentNeutral,
				LegalSignificance: sig,
				RiskFlags:         risk,
				Entities:          dates,
				Confidence:        0.9,
			},
		},
	}
}

func dateEntity(value, event string) models.Entity {
	return models.Entity{
		Name:            value,
		Type:            models.EntityDate,
		Confidence:      0.9,
		AssociatedEvent: event,
	}
}

func TestParseSemanticDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2025-03-14", day(2025, 3, 14), true},
		{"2025-03-14T09:30:00", time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC), true},
		{"14/03/2025", day(2025, 3, 14), true},  // UK day-first
		{"03/14/2025", day(2025, 3, 14), true},  // unambiguous US form
		{"14 March 2025", day(2025, 3, 14), true},
		{"March 14, 2025", day(2025, 3, 14), true},
		{"last Tuesday", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tc := range cases {
		got, ok := parseSemanticDate(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got, "input %q", tc.in)
		}
	}
}

func TestParseSemanticDateUKFirst(t *testing.T) {
	// 05/03 is ambiguous; the UK layout wins: 5 March, not May 3.
	got, ok := parseSemanticDate("05/03/2025")
	require.True(t, ok)
	assert.Equal(t, day(2025, 3, 5), got)
}

func TestBuildTimelineOrderingAndIDs(t *testing.T) {
	inputs := []evidenceInput{
		docInput('b', "warning letter", nil, models.SignificanceHigh,
			dateEntity("2025-03-10", "final warning issued")),
		docInput('a', "grievance", nil, models.SignificanceHigh,
			dateEntity("2025-03-10", "complaint filed"),
			dateEntity("2025-02-01", "incident occurred")),
	}

	events := buildTimeline(inputs)
	require.Len(t, events, 3)

	// Timestamp ascending; identical timestamps break ties on SHA.
	assert.Equal(t, "incident occurred", events[0].Description)
	assert.Equal(t, strings.Repeat("a", 64), events[1].SHA256)
	assert.Equal(t, strings.Repeat("b", 64), events[2].SHA256)

	// IDs carry the short SHA, source and per-evidence sequence number.
	assert.Equal(t, "aaaaaaaa:semantic:001", events[1].ID)
	assert.Equal(t, "bbbbbbbb:semantic:001", events[2].ID)

	// Two identical runs produce identical timelines.
	assert.Equal(t, events, buildTimeline(inputs))
}

func TestBuildTimelineEmailSenderDate(t *testing.T) {
	sent := day(2025, 4, 2)
	sha := strings.Repeat("c", 64)
	inputs := []evidenceInput{{
		SHA256: sha,
		Analysis: &models.UnifiedAnalysis{
			SHA256:       sha,
			EvidenceType: models.EvidenceEmail,
			AnalyzedAt:   day(2025, 6, 1),
			Model:        "gpt-4o",
			Email: &models.EmailAnalysis{
				ThreadSummary:        "s",
				CommunicationPattern: "p",
				LegalSignificance:    models.SignificanceMedium,
				Confidence:           0.8,
				Participants: []models.Participant{{
					Name:             "Karen Mills",
					Address:          "karen.mills@acme.example",
					Role:             models.RoleSender,
					FirstInteraction: &sent,
					DeferenceScore:   0.2,
				}},
			},
		},
	}}

	events := buildTimeline(inputs)
	require.Len(t, events, 1)
	assert.Equal(t, models.SourceEmail, events[0].Source)
	assert.Equal(t, sent, events[0].Timestamp)
	assert.Contains(t, events[0].Description, "Karen Mills")
}

func TestDetectGapsThresholdAndMateriality(t *testing.T) {
	mk := func(ts time.Time, risk []string, sig models.Significance) models.TimelineEvent {
		return models.TimelineEvent{
			ID: "x", Timestamp: ts, SHA256: strings.Repeat("d", 64),
			RiskFlags: risk, Significance: sig,
		}
	}

	events := []models.TimelineEvent{
		mk(day(2025, 1, 1), []string{"retaliation"}, models.SignificanceHigh),
		mk(day(2025, 2, 15), nil, models.SignificanceCritical), // 45-day gap
		mk(day(2025, 2, 20), nil, models.SignificanceLow),      // below threshold
		mk(day(2025, 4, 20), nil, models.SignificanceLow),      // long but immaterial
	}

	gaps := detectGaps(events, 14)
	require.Len(t, gaps, 1)
	assert.Equal(t, 45, gaps[0].Days)
	assert.Equal(t, models.GapHigh, gaps[0].Significance)
	assert.Contains(t, gaps[0].Rationale, "45 days")
}

func TestDetectGapsNoneBelowThreshold(t *testing.T) {
	events := []models.TimelineEvent{
		{Timestamp: day(2025, 1, 1), Significance: models.SignificanceHigh},
		{Timestamp: day(2025, 1, 10), Significance: models.SignificanceHigh},
	}
	assert.Empty(t, detectGaps(events, 14))
}

func TestDetectSequencesComplaintRetaliation(t *testing.T) {
	events := []models.TimelineEvent{
		{Timestamp: day(2025, 1, 5), SHA256: strings.Repeat("a", 64), Description: "formal complaint filed"},
		{Timestamp: day(2025, 1, 20), SHA256: strings.Repeat("b", 64), Description: "disciplinary meeting scheduled"},
	}

	sequences := detectSequences(events)
	require.Len(t, sequences, 1)
	assert.Equal(t, "complaint-retaliation", sequences[0].Kind)
	assert.Equal(t, 0.75, sequences[0].Confidence)
	require.Len(t, sequences[0].Events, 2)
}

func TestDetectSequencesRespectsOrder(t *testing.T) {
	// Retaliation before the complaint does not chain.
	events := []models.TimelineEvent{
		{Timestamp: day(2025, 1, 5), SHA256: strings.Repeat("a", 64), Description: "disciplinary warning"},
		{Timestamp: day(2025, 1, 20), SHA256: strings.Repeat("b", 64), Description: "holiday request approved"},
	}
	assert.Empty(t, detectSequences(events))
}

func TestDetectSequencesMatchesRiskFlags(t *testing.T) {
	events := []models.TimelineEvent{
		{Timestamp: day(2025, 1, 5), SHA256: strings.Repeat("a", 64), Description: "email sent", RiskFlags: []string{"grievance"}},
		{Timestamp: day(2025, 2, 1), SHA256: strings.Repeat("a", 64), Description: "letter", RiskFlags: []string{"retaliation"}},
	}

	sequences := detectSequences(events)
	require.Len(t, sequences, 1)
	// Single-source chains score low.
	assert.Equal(t, 0.5, sequences[0].Confidence)
}
