package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/casetrace/casetrace-go/internal/models"
)

// ListCase returns the SHA-256s linked into a case, sorted.
func (s *Store) ListCase(caseID string) ([]string, error) {
	entries, err := os.ReadDir(s.caseDir(caseID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	seen := make(map[string]bool)
	for _, e := range entries {
		name := e.Name()
		if i := strings.IndexByte(name, '.'); i > 0 {
			name = name[:i]
		}
		if models.ValidSHA256(name) {
			seen[name] = true
		}
	}
	return sortedKeys(seen), nil
}

// ListAll returns every SHA-256 in the store, sorted.
func (s *Store) ListAll() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, "raw"))
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sha := strings.TrimPrefix(e.Name(), "sha256=")
		if models.ValidSHA256(sha) {
			seen[sha] = true
		}
	}
	return sortedKeys(seen), nil
}

// ListCases returns every case ID with at least one link.
func (s *Store) ListCases() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, "cases"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var cases []string
	for _, e := range entries {
		if e.IsDir() {
			cases = append(cases, e.Name())
		}
	}
	sort.Strings(cases)
	return cases, nil
}

// CasesFor returns the case IDs an artifact is linked into.
func (s *Store) CasesFor(sha string) ([]string, error) {
	cases, err := s.ListCases()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, c := range cases {
		if s.caseLinked(sha, c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Stats summarizes store contents, including orphans (artifacts with no
// case link).
func (s *Store) Stats() (*models.StoreStats, error) {
	all, err := s.ListAll()
	if err != nil {
		return nil, err
	}
	cases, err := s.ListCases()
	if err != nil {
		return nil, err
	}

	stats := &models.StoreStats{
		CountsByType: make(map[string]int),
		CaseCounts:   make(map[string]int),
	}

	linked := make(map[string]bool)
	for _, c := range cases {
		shas, err := s.ListCase(c)
		if err != nil {
			return nil, err
		}
		stats.CaseCounts[c] = len(shas)
		for _, sha := range shas {
			linked[sha] = true
		}
	}

	for _, sha := range all {
		stats.EvidenceCount++
		if meta, err := s.LoadMetadata(sha); err == nil {
			stats.TotalBytes += meta.SizeBytes
		}
		if s.HasAnalysis(sha) {
			stats.AnalyzedCount++
			if a, err := s.LoadAnalysis(sha); err == nil {
				stats.CountsByType[string(a.EvidenceType)]++
			}
		}
		if !linked[sha] {
			stats.OrphanedSHA256 = append(stats.OrphanedSHA256, sha)
		}
	}
	return stats, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
