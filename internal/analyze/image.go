package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/casetrace/casetrace-go/internal/llm"
	"github.com/casetrace/casetrace-go/internal/models"
)

const imageSystemPrompt = `You are a forensic image examiner supporting a legal investigation.
Analyze the image and report:
- a factual description of the scene
- every fragment of readable text, transcribed exactly (OCR)
- the objects visible in the image
- any named entities readable in the image (people, organizations, dates)
Be precise and conservative: transcribe only text you can actually read; never guess.`

// maxImageBytes bounds the vision payload; larger artifacts are rejected
// rather than silently truncated.
const maxImageBytes = 20 << 20

// ImageRasterizer converts non-image artifacts (image-only PDFs) into a
// vision payload. Pluggable; the default passes raster image files through.
type ImageRasterizer interface {
	Rasterize(path string) (mimeType string, data []byte, err error)
}

// PassthroughRasterizer loads raster image files directly.
type PassthroughRasterizer struct{}

func (PassthroughRasterizer) Rasterize(path string) (string, []byte, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mimeType := ""
	switch ext {
	case ".jpg", ".jpeg":
		mimeType = "image/jpeg"
	case ".png":
		mimeType = "image/png"
	case ".gif":
		mimeType = "image/gif"
	case ".bmp":
		mimeType = "image/bmp"
	case ".tiff":
		mimeType = "image/tiff"
	default:
		return "", nil, fmt.Errorf("no rasterizer registered for %s", ext)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", nil, err
	}
	if info.Size() > maxImageBytes {
		return "", nil, fmt.Errorf("image %s exceeds %d bytes", filepath.Base(path), maxImageBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	return mimeType, data, nil
}

// ImageAnalyzer produces ImageAnalysis records through a vision-capable
// structured call.
type ImageAnalyzer struct {
	client     *llm.Client
	rasterizer ImageRasterizer
	logger     *slog.Logger
}

// NewImageAnalyzer builds an image analyzer; pass nil for the passthrough
// rasterizer.
func NewImageAnalyzer(client *llm.Client, rasterizer ImageRasterizer) *ImageAnalyzer {
	if rasterizer == nil {
		rasterizer = PassthroughRasterizer{}
	}
	return &ImageAnalyzer{
		client:     client,
		rasterizer: rasterizer,
		logger:     slog.Default().With("component", "image_analyzer"),
	}
}

// Analyze rasterizes the artifact and runs the structured vision call.
func (a *ImageAnalyzer) Analyze(ctx context.Context, rawPath string, meta *models.FileMetadata) (*models.ImageAnalysis, error) {
	mimeType, data, err := a.rasterizer.Rasterize(rawPath)
	if err != nil {
		return nil, fmt.Errorf("rasterize %s: %w", meta.Filename, err)
	}

	var analysis models.ImageAnalysis
	err = a.client.CallStructured(ctx, llm.Request{
		System: imageSystemPrompt,
		User:   fmt.Sprintf("Filename: %s. Analyze this image as forensic evidence.", meta.Filename),
		Images: []llm.ImageInput{{MIMEType: mimeType, Data: data}},
		Schema: imageSchema,
	}, &analysis)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("image analyzed",
		"sha256", models.ShortSHA(meta.SHA256),
		"objects", len(analysis.DetectedObjects),
		"ocr_bytes", len(analysis.OCRText),
	)
	return &analysis, nil
}
