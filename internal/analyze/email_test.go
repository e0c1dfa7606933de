package analyze

import (
	"context"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casetrace/casetrace-go/internal/llm"
	"github.com/casetrace/casetrace-go/internal/models"
)

const rawEmail = `From: "Karen Mills" <karen.mills@acme.example>
To: paul.boucherat@acme.example
Cc: hr@acme.example
Date: Mon, 03 Mar 2025 09:15:00 +0000
Subject: Performance concerns

Paul,

We need to discuss your recent performance. Please see me today.

Karen
`

func parseRawEmail(t *testing.T) *mail.Message {
	t.Helper()
	msg, err := mail.ReadMessage(strings.NewReader(rawEmail))
	require.NoError(t, err)
	return msg
}

func TestParseParticipantsRoles(t *testing.T) {
	participants, sentAt := parseParticipants(parseRawEmail(t))
	require.Len(t, participants, 3)

	assert.Equal(t, "Karen Mills", participants[0].Name)
	assert.Equal(t, "karen.mills@acme.example", participants[0].Address)
	assert.Equal(t, models.RoleSender, participants[0].Role)

	assert.Equal(t, "paul.boucherat@acme.example", participants[1].Address)
	assert.Equal(t, models.RoleRecipient, participants[1].Role)

	assert.Equal(t, "hr@acme.example", participants[2].Address)
	assert.Equal(t, models.RoleCC, participants[2].Role)

	require.NotNil(t, sentAt)
	assert.Equal(t, time.Date(2025, 3, 3, 9, 15, 0, 0, time.UTC), *sentAt)
}

func TestParseParticipantsDeduplicates(t *testing.T) {
	raw := "From: a@x.example\nTo: a@x.example, b@x.example\n\nbody\n"
	msg, err := mail.ReadMessage(strings.NewReader(raw))
	require.NoError(t, err)

	participants, _ := parseParticipants(msg)
	require.Len(t, participants, 2)
	// First role wins for an address that appears in multiple headers.
	assert.Equal(t, models.RoleSender, participants[0].Role)
}

func TestEmailAnalyzeMergesDeferenceScores(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thread.eml")
	require.NoError(t, os.WriteFile(path, []byte(rawEmail), 0o644))

	fake := llm.NewFakeProvider(`{
		"thread_summary": "Manager summons employee over performance.",
		"communication_pattern": "top-down pressure",
		"escalation_detected": true,
		"entities": [],
		"legal_significance": "high",
		"risk_flags": ["performance-management"],
		"confidence": 0.85,
		"deference_scores": [{"address": "KAREN.MILLS@acme.example", "score": 0.1}]
	}`)
	a := NewEmailAnalyzer(llm.NewClientWithProvider(fake, "test-model", time.Minute))

	meta := &models.FileMetadata{Filename: "thread.eml", SHA256: strings.Repeat("a", 64)}
	analysis, err := a.Analyze(context.Background(), path, meta)
	require.NoError(t, err)

	assert.Equal(t, "top-down pressure", analysis.CommunicationPattern)
	assert.True(t, analysis.EscalationDetected)
	require.Len(t, analysis.Participants, 3)

	// Scored address matched case-insensitively; everyone else stays neutral.
	assert.Equal(t, 0.1, analysis.Participants[0].DeferenceScore)
	assert.Equal(t, 0.5, analysis.Participants[1].DeferenceScore)
	assert.Equal(t, 0.5, analysis.Participants[2].DeferenceScore)

	// Header date propagated onto every participant.
	for _, p := range analysis.Participants {
		require.NotNil(t, p.FirstInteraction)
		assert.Equal(t, time.Date(2025, 3, 3, 9, 15, 0, 0, time.UTC), *p.FirstInteraction)
	}
}

func TestHeaderDate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thread.eml")
	require.NoError(t, os.WriteFile(path, []byte(rawEmail), 0o644))

	date, err := HeaderDate(path)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 3, 9, 15, 0, 0, time.UTC), *date)
}
