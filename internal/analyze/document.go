package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/casetrace/casetrace-go/internal/llm"
	"github.com/casetrace/casetrace-go/internal/models"
)

// TextExtractor pulls the text layer out of a document artifact. File-format
// parsing is a pluggable reader; the default handles plain text only and
// PDF extraction is supplied by the embedding application.
type TextExtractor interface {
	ExtractText(path string) (string, error)
}

// PlainTextExtractor reads UTF-8 text files directly.
type PlainTextExtractor struct{}

func (PlainTextExtractor) ExtractText(path string) (string, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".txt" {
		return "", fmt.Errorf("no text extractor registered for %s", ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

const documentSystemPrompt = `You are a forensic document examiner supporting a legal investigation.
Analyze the document text and report:
- a concise factual summary
- every named entity (people, organizations, locations, dates, legal terms) with confidence and surrounding context
- the document type
- the overall tone (hostile, neutral, professional)
- the legal significance for the investigation (critical, high, medium, low)
- risk flags: short lowercase tags for concerning content (e.g. "retaliation", "harassment", "policy-violation", "destruction-of-evidence")
Be precise and conservative: never invent facts that are not in the text.`

// DocumentAnalyzer produces DocumentAnalysis records via one structured
// LLM call plus deterministic text statistics.
type DocumentAnalyzer struct {
	client    *llm.Client
	extractor TextExtractor
	logger    *slog.Logger
}

// NewDocumentAnalyzer builds a document analyzer with the given text
// extractor; pass nil for the plain-text default.
func NewDocumentAnalyzer(client *llm.Client, extractor TextExtractor) *DocumentAnalyzer {
	if extractor == nil {
		extractor = PlainTextExtractor{}
	}
	return &DocumentAnalyzer{
		client:    client,
		extractor: extractor,
		logger:    slog.Default().With("component", "document_analyzer"),
	}
}

// Analyze extracts the text and runs the structured call. The returned
// record is schema-validated; word statistics are computed locally.
func (a *DocumentAnalyzer) Analyze(ctx context.Context, rawPath string, meta *models.FileMetadata) (*models.DocumentAnalysis, error) {
	text, err := a.extractor.ExtractText(rawPath)
	if err != nil {
		return nil, fmt.Errorf("extract text from %s: %w", meta.Filename, err)
	}

	var analysis models.DocumentAnalysis
	err = a.client.CallStructured(ctx, llm.Request{
		System: documentSystemPrompt,
		User:   fmt.Sprintf("Filename: %s\n\nDocument text:\n%s", meta.Filename, text),
		Schema: documentSchema,
	}, &analysis)
	if err != nil {
		return nil, err
	}

	analysis.WordStats = computeWordStats(text)
	a.logger.Debug("document analyzed",
		"sha256", models.ShortSHA(meta.SHA256),
		"entities", len(analysis.Entities),
		"significance", analysis.LegalSignificance,
	)
	return &analysis, nil
}

// computeWordStats derives the deterministic statistics used by the
// package's visualization outputs.
func computeWordStats(text string) *models.WordStats {
	freq := make(map[string]int)
	total := 0
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	}) {
		word = strings.Trim(word, "'")
		if word == "" {
			continue
		}
		total++
		freq[word]++
	}

	words := make([]string, 0, len(freq))
	for w := range freq {
		words = append(words, w)
	}
	// Count descending, word ascending on ties, for reproducible output.
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return words[i] < words[j]
	})

	const topN = 25
	top := make([]models.WordFreq, 0, topN)
	for i, w := range words {
		if i >= topN {
			break
		}
		top = append(top, models.WordFreq{Word: w, Count: freq[w]})
	}

	return &models.WordStats{
		WordCount:       total,
		UniqueWordCount: len(freq),
		TopWords:        top,
		Frequency:       freq,
	}
}
