package detect

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/casetrace/casetrace-go/internal/models"
)

// extension -> evidence type, the primary classification policy.
var extensionTypes = map[string]models.EvidenceType{
	".eml":  models.EvidenceEmail,
	".msg":  models.EvidenceEmail,
	".mbox": models.EvidenceEmail,

	".jpg":  models.EvidenceImage,
	".jpeg": models.EvidenceImage,
	".png":  models.EvidenceImage,
	".gif":  models.EvidenceImage,
	".bmp":  models.EvidenceImage,
	".tiff": models.EvidenceImage,

	".txt": models.EvidenceDocument,

	// Video/audio: ingested only, never analyzed.
	".mp4": models.EvidenceOther,
	".mov": models.EvidenceOther,
	".avi": models.EvidenceOther,
	".mp3": models.EvidenceOther,
	".wav": models.EvidenceOther,
	".m4a": models.EvidenceOther,
}

// PDFTextProber decides whether a PDF carries an extractable text layer.
// Full PDF parsing is a pluggable reader; the default prober is a cheap
// byte-level heuristic.
type PDFTextProber interface {
	HasTextLayer(path string) (bool, error)
}

// Detector classifies artifacts into the closed evidence-type set. Pure
// over its inputs: the same path, extension and bytes always classify the
// same way.
type Detector struct {
	pdfProber PDFTextProber
}

// New returns a detector with the default PDF prober.
func New() *Detector {
	return &Detector{pdfProber: heuristicPDFProber{}}
}

// NewWithProber returns a detector using a caller-supplied PDF prober.
func NewWithProber(p PDFTextProber) *Detector {
	return &Detector{pdfProber: p}
}

// Detect classifies the file at path. declaredMIME may be empty; the first
// bytes are probed only when the extension is unknown.
func (d *Detector) Detect(path, declaredMIME string) models.EvidenceType {
	ext := strings.ToLower(filepath.Ext(path))

	if t, ok := extensionTypes[ext]; ok {
		return t
	}

	if ext == ".pdf" {
		hasText, err := d.pdfProber.HasTextLayer(path)
		if err != nil {
			// Unreadable PDFs still ingest; treat as image-only.
			return models.EvidenceImage
		}
		if hasText {
			return models.EvidenceDocument
		}
		return models.EvidenceImage
	}

	// Unknown extension: content probe, then declared MIME.
	if t, ok := probeContent(path); ok {
		return t
	}
	if t, ok := classifyMIME(declaredMIME); ok {
		return t
	}
	return models.EvidenceOther
}

func probeContent(path string) (models.EvidenceType, bool) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return models.EvidenceOther, false
	}
	return classifyMIME(mt.String())
}

func classifyMIME(mime string) (models.EvidenceType, bool) {
	switch {
	case mime == "":
		return models.EvidenceOther, false
	case strings.HasPrefix(mime, "image/"):
		return models.EvidenceImage, true
	case strings.HasPrefix(mime, "message/"):
		return models.EvidenceEmail, true
	case strings.HasPrefix(mime, "text/"):
		return models.EvidenceDocument, true
	case strings.HasPrefix(mime, "video/"), strings.HasPrefix(mime, "audio/"):
		return models.EvidenceOther, true
	}
	return models.EvidenceOther, false
}

// heuristicPDFProber scans the raw bytes for font resources. PDFs composed
// purely of scanned page images carry no /Font entries.
type heuristicPDFProber struct{}

const pdfProbeLimit = 4 << 20 // scan at most 4MB

func (heuristicPDFProber) HasTextLayer(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf, err := io.ReadAll(io.LimitReader(f, pdfProbeLimit))
	if err != nil {
		return false, err
	}
	if !bytes.HasPrefix(buf, []byte("%PDF")) {
		return false, nil
	}
	return bytes.Contains(buf, []byte("/Font")) || bytes.Contains(buf, []byte("/ToUnicode")), nil
}
