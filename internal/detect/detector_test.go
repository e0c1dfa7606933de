package detect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casetrace/casetrace-go/internal/models"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestDetectByExtension(t *testing.T) {
	d := New()
	cases := []struct {
		name string
		want models.EvidenceType
	}{
		{"thread.eml", models.EvidenceEmail},
		{"outlook.msg", models.EvidenceEmail},
		{"archive.mbox", models.EvidenceEmail},
		{"photo.jpg", models.EvidenceImage},
		{"photo.JPEG", models.EvidenceImage},
		{"scan.png", models.EvidenceImage},
		{"notes.txt", models.EvidenceDocument},
		{"meeting.mp4", models.EvidenceOther},
		{"call.wav", models.EvidenceOther},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTemp(t, tc.name, []byte("irrelevant"))
			assert.Equal(t, tc.want, d.Detect(path, ""))
		})
	}
}

type fixedProber struct {
	hasText bool
	err     error
}

func (p fixedProber) HasTextLayer(string) (bool, error) { return p.hasText, p.err }

func TestDetectPDF(t *testing.T) {
	t.Run("text layer classifies as document", func(t *testing.T) {
		d := NewWithProber(fixedProber{hasText: true})
		path := writeTemp(t, "contract.pdf", []byte("%PDF-1.7"))
		assert.Equal(t, models.EvidenceDocument, d.Detect(path, ""))
	})

	t.Run("scanned pdf classifies as image", func(t *testing.T) {
		d := NewWithProber(fixedProber{hasText: false})
		path := writeTemp(t, "scan.pdf", []byte("%PDF-1.7"))
		assert.Equal(t, models.EvidenceImage, d.Detect(path, ""))
	})

	t.Run("unreadable pdf classifies as image", func(t *testing.T) {
		d := NewWithProber(fixedProber{err: os.ErrPermission})
		path := writeTemp(t, "broken.pdf", nil)
		assert.Equal(t, models.EvidenceImage, d.Detect(path, ""))
	})
}

func TestHeuristicPDFProber(t *testing.T) {
	p := heuristicPDFProber{}

	t.Run("font resource means text layer", func(t *testing.T) {
		path := writeTemp(t, "text.pdf", []byte("%PDF-1.4\n1 0 obj << /Type /Font /Subtype /TrueType >>"))
		hasText, err := p.HasTextLayer(path)
		require.NoError(t, err)
		assert.True(t, hasText)
	})

	t.Run("no fonts means scanned", func(t *testing.T) {
		path := writeTemp(t, "scan.pdf", []byte("%PDF-1.4\n1 0 obj << /Type /XObject /Subtype /Image >>"))
		hasText, err := p.HasTextLayer(path)
		require.NoError(t, err)
		assert.False(t, hasText)
	})

	t.Run("not a pdf at all", func(t *testing.T) {
		path := writeTemp(t, "fake.pdf", []byte("just text with /Font inside"))
		hasText, err := p.HasTextLayer(path)
		require.NoError(t, err)
		assert.False(t, hasText)
	})
}

func TestDetectContentProbeFallback(t *testing.T) {
	d := New()

	// PNG magic bytes under an unknown extension: the content probe wins.
	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	path := writeTemp(t, "evidence.bin", png)
	assert.Equal(t, models.EvidenceImage, d.Detect(path, ""))
}

func TestDetectDeclaredMIMEFallback(t *testing.T) {
	d := New()
	// Empty file defeats the content probe; declared MIME decides.
	path := writeTemp(t, "blob.dat", nil)
	assert.Equal(t, models.EvidenceOther, d.Detect(path, "application/octet-stream"))
	assert.Equal(t, models.EvidenceOther, d.Detect(path, ""))
}

func TestDetectUnknownIsOther(t *testing.T) {
	d := New()
	path := writeTemp(t, "data.xyz", []byte{0x00, 0x01, 0x02, 0x03})
	assert.Equal(t, models.EvidenceOther, d.Detect(path, ""))
}
