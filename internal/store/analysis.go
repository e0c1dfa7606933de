package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/casetrace/casetrace-go/internal/models"
)

const analysisFile = "analysis.v1.json"

// SaveStatus reports the outcome of SaveAnalysis.
type SaveStatus string

const (
	SaveWritten         SaveStatus = "written"
	SaveAlreadyAnalyzed SaveStatus = "already_analyzed"
)

// LoadMetadata returns the validated file metadata for sha.
func (s *Store) LoadMetadata(sha string) (*models.FileMetadata, error) {
	var meta models.FileMetadata
	if err := readJSONValidated(filepath.Join(s.derivedDir(sha), "metadata.json"), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadAnalysis returns the validated unified analysis for sha, or
// ErrNotFound when the artifact has not been analyzed.
func (s *Store) LoadAnalysis(sha string) (*models.UnifiedAnalysis, error) {
	var analysis models.UnifiedAnalysis
	if err := readJSONValidated(filepath.Join(s.derivedDir(sha), analysisFile), &analysis); err != nil {
		return nil, err
	}
	if err := models.ValidateUnified(&analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// HasAnalysis reports whether an analysis exists without loading it.
func (s *Store) HasAnalysis(sha string) bool {
	_, err := os.Stat(filepath.Join(s.derivedDir(sha), analysisFile))
	return err == nil
}

// SaveAnalysis persists a validated analysis. Without force an existing
// analysis is left untouched and no custody event is appended. With force
// the previous file is preserved as analysis.v1.json.backup.<epoch_ms>
// before the overwrite, and a reanalyze event is recorded.
func (s *Store) SaveAnalysis(sha string, analysis *models.UnifiedAnalysis, actor string, force bool) (SaveStatus, error) {
	if err := models.ValidateUnified(analysis); err != nil {
		return "", err
	}

	unlock := s.locks.lock(sha)
	defer unlock()

	path := filepath.Join(s.derivedDir(sha), analysisFile)
	_, statErr := os.Stat(path)
	exists := statErr == nil

	if exists && !force {
		return SaveAlreadyAnalyzed, nil
	}

	action := models.ActionAnalyze
	var backupPath string
	if exists {
		action = models.ActionReanalyze
		backupPath = fmt.Sprintf("%s.backup.%d", path, time.Now().UnixMilli())
		if err := copyFile(path, backupPath); err != nil {
			return "", fmt.Errorf("backup previous analysis: %w", err)
		}
	}

	if err := writeJSONAtomic(path, analysis); err != nil {
		// The primary must never go missing: the atomic rename either
		// replaced it or left the old file in place, so only the backup
		// needs discarding.
		if backupPath != "" {
			os.Remove(backupPath)
		}
		return "", err
	}

	note := fmt.Sprintf("analysis written (model %s)", analysis.Model)
	meta := map[string]any{"model": analysis.Model}
	if analysis.ModelRevision != "" {
		meta["model_revision"] = analysis.ModelRevision
	}
	if backupPath != "" {
		meta["backup"] = filepath.Base(backupPath)
	}
	if err := s.appendCustodyLocked(sha, models.CustodyEvent{
		TS:       time.Now().UTC(),
		Actor:    actor,
		Action:   action,
		Note:     &note,
		Metadata: meta,
	}); err != nil {
		// An analysis must never exist without its custody event. Restore
		// the backup on a forced overwrite, otherwise remove the new file.
		if backupPath != "" {
			if restoreErr := copyFile(backupPath, path); restoreErr == nil {
				os.Remove(backupPath)
			}
		} else {
			os.Remove(path)
		}
		return "", err
	}

	s.logger.Info("analysis saved",
		"sha256", models.ShortSHA(sha),
		"action", action,
		"type", analysis.EvidenceType,
	)
	return SaveWritten, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
