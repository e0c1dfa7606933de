package store

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/casetrace/casetrace-go/internal/models"
)

// CleanupReport describes what cleanup found (and removed, unless dry-run).
type CleanupReport struct {
	BrokenLinks     []string `json:"broken_links"`
	EmptyCaseDirs   []string `json:"empty_case_dirs"`
	Orphans         []string `json:"orphans"`
	DryRun          bool     `json:"dry_run"`
	RemovedLinks    int      `json:"removed_links"`
	RemovedCaseDirs int      `json:"removed_case_dirs"`
}

// Cleanup removes broken case links and empty case directories, and reports
// orphaned artifacts. Destructive only when dryRun is false.
func (s *Store) Cleanup(dryRun bool) (*CleanupReport, error) {
	report := &CleanupReport{DryRun: dryRun}

	cases, err := s.ListCases()
	if err != nil {
		return nil, err
	}
	for _, c := range cases {
		dir := s.caseDir(c)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		remaining := 0
		for _, e := range entries {
			linkPath := filepath.Join(dir, e.Name())
			sha := e.Name()
			if i := strings.IndexByte(sha, '.'); i > 0 {
				sha = sha[:i]
			}
			broken := !models.ValidSHA256(sha)
			if !broken {
				if _, err := os.Stat(s.rawDir(sha)); os.IsNotExist(err) {
					broken = true
				}
			}
			if !broken {
				// Symlinks whose target vanished also count as broken.
				if _, err := os.Stat(linkPath); err != nil {
					broken = true
				}
			}
			if broken {
				report.BrokenLinks = append(report.BrokenLinks, linkPath)
				if !dryRun {
					if err := os.Remove(linkPath); err == nil {
						report.RemovedLinks++
						continue
					}
				}
			}
			remaining++
		}
		if remaining == 0 {
			report.EmptyCaseDirs = append(report.EmptyCaseDirs, dir)
			if !dryRun {
				if err := os.Remove(dir); err == nil {
					report.RemovedCaseDirs++
				}
			}
		}
	}

	stats, err := s.Stats()
	if err != nil {
		return nil, err
	}
	report.Orphans = stats.OrphanedSHA256

	s.logger.Info("cleanup finished",
		"dry_run", dryRun,
		"broken_links", len(report.BrokenLinks),
		"orphans", len(report.Orphans),
	)
	return report, nil
}

// PruneReport describes what prune did (or would do).
type PruneReport struct {
	CaseID       string   `json:"case_id"`
	RemovedBlobs []string `json:"removed_blobs"`
	UnlinkedOnly []string `json:"unlinked_only"`
	DryRun       bool     `json:"dry_run"`
}

// PruneCase removes a case. Artifacts belonging to no other case lose their
// raw and derived trees; shared artifacts only lose this case's link.
// Destructive only when dryRun is false.
func (s *Store) PruneCase(caseID string, dryRun bool) (*PruneReport, error) {
	report := &PruneReport{CaseID: caseID, DryRun: dryRun}

	shas, err := s.ListCase(caseID)
	if err != nil {
		return nil, err
	}

	for _, sha := range shas {
		cases, err := s.CasesFor(sha)
		if err != nil {
			return nil, err
		}
		shared := false
		for _, c := range cases {
			if c != caseID {
				shared = true
				break
			}
		}

		if shared {
			report.UnlinkedOnly = append(report.UnlinkedOnly, sha)
			if !dryRun {
				s.removeCaseLink(sha, caseID)
			}
			continue
		}

		report.RemovedBlobs = append(report.RemovedBlobs, sha)
		if !dryRun {
			unlock := s.locks.lock(sha)
			s.removeCaseLink(sha, caseID)
			os.RemoveAll(s.rawDir(sha))
			os.RemoveAll(s.derivedDir(sha))
			unlock()
		}
	}

	if !dryRun {
		// Case dir may now be empty.
		os.Remove(s.caseDir(caseID))
	}

	s.logger.Info("prune finished",
		"case", caseID,
		"dry_run", dryRun,
		"removed_blobs", len(report.RemovedBlobs),
		"unlinked_only", len(report.UnlinkedOnly),
	)
	return report, nil
}

func (s *Store) removeCaseLink(sha, caseID string) {
	matches, _ := filepath.Glob(filepath.Join(s.caseDir(caseID), sha+".*"))
	for _, m := range matches {
		os.Remove(m)
	}
	os.Remove(filepath.Join(s.caseDir(caseID), sha))
}
