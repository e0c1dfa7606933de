package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleLineFormat(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)

	c.Emit(Event{Stage: StageIngest, Item: "complaint.txt", State: StateStarted})
	c.Emit(Event{Stage: StageIngest, Item: "complaint.txt", State: StateSucceeded, Detail: "document"})
	c.Emit(Event{Stage: StageAnalyze, Item: "warning.txt", State: StateSkipped, Detail: "not analyzable"})
	c.Emit(Event{Stage: StagePackage, Item: "case-a", State: StateFailed, Err: errors.New("disk full")})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"📥 ingest: complaint.txt",
		"✅ ingest: complaint.txt (document)",
		"⚠️ analyze: warning.txt (not analyzable)",
		"❌ package: case-a (disk full)",
	}, lines)
}

func TestConsoleQuietSuppressesStarted(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)
	c.Quiet = true

	c.Emit(Event{Stage: StageAnalyze, Item: "a.txt", State: StateStarted})
	assert.Empty(t, buf.String())

	c.Emit(Event{Stage: StageAnalyze, Item: "a.txt", State: StateSucceeded})
	assert.Equal(t, "✅ analyze: a.txt\n", buf.String())
}

func TestConsoleFailedPrefersDetailOverError(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)

	c.Emit(Event{Stage: StageAnalyze, Item: "a.txt", State: StateFailed, Detail: "schema invalid", Err: errors.New("other")})
	assert.Equal(t, "❌ analyze: a.txt (schema invalid)\n", buf.String())
}

func TestDiscardDropsEverything(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard.Emit(Event{Stage: StageIngest, Item: "x", State: StateFailed})
	})
}
