package packaging

import (
	"encoding/json"
	"regexp"

	caseerr "github.com/casetrace/casetrace-go/internal/errors"
	"github.com/casetrace/casetrace-go/internal/models"
	"github.com/casetrace/casetrace-go/internal/store"
)

var fullSHAPattern = regexp.MustCompile(`\b[0-9a-f]{64}\b`)

// writeCorrelationExport serializes the full CorrelationAnalysis with every
// SHA-256 truncated to 8 hex chars. The store keeps the full identifiers;
// the export trades them for readability.
func writeCorrelationExport(corr *models.CorrelationAnalysis, path string) error {
	if corr == nil {
		corr = &models.CorrelationAnalysis{}
	}
	data, err := json.MarshalIndent(corr, "", "  ")
	if err != nil {
		return caseerr.PackageError(err, "encoding correlation analysis")
	}
	truncated := fullSHAPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		return m[:8]
	})
	return writeRawFile(path, truncated)
}

// wordFrequencyEntry is one document's frequency table in the visualization.
type wordFrequencyEntry struct {
	SHA256   string            `json:"sha256"`
	Filename string            `json:"filename"`
	Words    []models.WordFreq `json:"words"`
	Unique   int               `json:"unique_word_count"`
	Total    int               `json:"word_count"`
}

// writeWordFrequency exports the per-document word statistics computed by
// the document analyzer for downstream visualization.
func writeWordFrequency(st *store.Store, summary *models.CaseSummary, path string) error {
	entries := []wordFrequencyEntry{}
	for _, e := range summary.EvidenceSummaries {
		if !e.Analyzed || e.EvidenceType != models.EvidenceDocument {
			continue
		}
		analysis, err := st.LoadAnalysis(e.SHA256)
		if err != nil {
			return err
		}
		if analysis.Document == nil || analysis.Document.WordStats == nil {
			continue
		}
		ws := analysis.Document.WordStats
		entries = append(entries, wordFrequencyEntry{
			SHA256:   models.ShortSHA(e.SHA256),
			Filename: e.Filename,
			Words:    ws.TopWords,
			Unique:   ws.UniqueWordCount,
			Total:    ws.WordCount,
		})
	}
	return writeJSON(path, map[string]any{
		"case_id":   summary.CaseID,
		"documents": entries,
	})
}
