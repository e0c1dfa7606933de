package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/casetrace/casetrace-go/internal/detect"
	"github.com/casetrace/casetrace-go/internal/models"
)

// ErrNotFound is returned when a requested derived record does not exist.
var ErrNotFound = errors.New("not found")

// Store is the single writer over the content-addressed evidence tree:
//
//	<root>/raw/sha256=<H>/original.<ext>
//	<root>/derived/sha256=<H>/{metadata,chain_of_custody,analysis.v1}.json
//	<root>/cases/<case-id>/<H>.<ext>
//
// Raw blobs are immutable after ingest. All other components read through
// the Store API and write only their own outputs through it.
type Store struct {
	root     string
	detector *detect.Detector
	locks    *shaLocks
	logger   *slog.Logger
}

// Open prepares the store tree under root.
func Open(root string, detector *detect.Detector) (*Store, error) {
	for _, dir := range []string{"raw", "derived", "cases", "packages"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("prepare store tree: %w", err)
		}
	}
	return &Store{
		root:     root,
		detector: detector,
		locks:    newSHALocks(),
		logger:   slog.Default().With("component", "store"),
	}, nil
}

// Root returns the store root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) rawDir(sha string) string {
	return filepath.Join(s.root, "raw", "sha256="+sha)
}

func (s *Store) derivedDir(sha string) string {
	return filepath.Join(s.root, "derived", "sha256="+sha)
}

func (s *Store) caseDir(caseID string) string {
	return filepath.Join(s.root, "cases", caseID)
}

// PackagesDir returns the directory packaged deliverables are written to.
func (s *Store) PackagesDir() string {
	return filepath.Join(s.root, "packages")
}

// RawPath returns the path of the immutable original blob for sha.
func (s *Store) RawPath(sha string) (string, error) {
	entries, err := os.ReadDir(s.rawDir(sha))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "original") {
			return filepath.Join(s.rawDir(sha), e.Name()), nil
		}
	}
	return "", ErrNotFound
}

// HashFile stream-hashes a file in a single pass with constant memory.
func HashFile(ctx context.Context, path string) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Ingest hashes, deduplicates and links path into the store. Duplicate
// bytes never rewrite raw/; a new case gets a link and an add-to-case
// custody event instead of a second ingest event.
func (s *Store) Ingest(ctx context.Context, path, caseID, actor string) (*models.IngestionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sha, size, err := HashFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("hash %s: %w", path, err)
	}

	evidenceType := s.detector.Detect(path, "")

	unlock := s.locks.lock(sha)
	defer unlock()

	if _, err := os.Stat(s.rawDir(sha)); err == nil {
		return s.ingestDuplicate(sha, path, caseID, actor, evidenceType)
	}

	meta, err := buildMetadata(path, sha, size)
	if err != nil {
		return nil, err
	}

	if err := s.writeRawBlob(sha, path, meta.Extension); err != nil {
		os.RemoveAll(s.rawDir(sha))
		return nil, err
	}

	if err := writeJSONAtomic(filepath.Join(s.derivedDir(sha), "metadata.json"), meta); err != nil {
		s.rollbackIngest(sha)
		return nil, err
	}

	note := fmt.Sprintf("ingested %s", meta.Filename)
	chain := &models.CustodyChain{
		SHA256: sha,
		Events: []models.CustodyEvent{{
			TS:     time.Now().UTC(),
			Actor:  actor,
			Action: models.ActionIngest,
			Note:   &note,
			Metadata: map[string]any{
				"filename":   meta.Filename,
				"size_bytes": meta.SizeBytes,
			},
		}},
	}
	if err := writeJSONAtomic(filepath.Join(s.derivedDir(sha), "chain_of_custody.json"), chain); err != nil {
		s.rollbackIngest(sha)
		return nil, err
	}

	if caseID != "" {
		if err := s.linkCase(sha, caseID, meta.Extension); err != nil {
			s.rollbackIngest(sha)
			return nil, err
		}
	}

	s.logger.Info("artifact ingested",
		"sha256", models.ShortSHA(sha),
		"type", evidenceType,
		"case", caseID,
		"bytes", size,
	)

	return &models.IngestionResult{
		SHA256:       sha,
		EvidenceType: evidenceType,
		Metadata:     *meta,
		Status:       models.IngestNew,
	}, nil
}

// ingestDuplicate handles bytes the store already holds. Caller holds the
// per-SHA lock.
func (s *Store) ingestDuplicate(sha, path, caseID, actor string, evidenceType models.EvidenceType) (*models.IngestionResult, error) {
	var meta models.FileMetadata
	if err := readJSONValidated(filepath.Join(s.derivedDir(sha), "metadata.json"), &meta); err != nil {
		return nil, err
	}

	if caseID != "" && !s.caseLinked(sha, caseID) {
		if err := s.linkCase(sha, caseID, meta.Extension); err != nil {
			return nil, err
		}
		note := fmt.Sprintf("duplicate ingest of %s", filepath.Base(path))
		if err := s.appendCustodyLocked(sha, models.CustodyEvent{
			TS:     time.Now().UTC(),
			Actor:  actor,
			Action: models.ActionAddToCase,
			Note:   &note,
			Metadata: map[string]any{
				"case_id":         caseID,
				"source_filename": filepath.Base(path),
			},
		}); err != nil {
			return nil, err
		}
	}

	s.logger.Info("duplicate artifact",
		"sha256", models.ShortSHA(sha),
		"case", caseID,
	)

	return &models.IngestionResult{
		SHA256:       sha,
		EvidenceType: evidenceType,
		Metadata:     meta,
		Status:       models.IngestDuplicate,
	}, nil
}

// AddToCase links an existing artifact into a case. No-op when already
// linked.
func (s *Store) AddToCase(sha, caseID, actor string) error {
	unlock := s.locks.lock(sha)
	defer unlock()

	if s.caseLinked(sha, caseID) {
		return nil
	}

	var meta models.FileMetadata
	if err := readJSONValidated(filepath.Join(s.derivedDir(sha), "metadata.json"), &meta); err != nil {
		return err
	}
	if err := s.linkCase(sha, caseID, meta.Extension); err != nil {
		return err
	}
	note := "added to case"
	return s.appendCustodyLocked(sha, models.CustodyEvent{
		TS:       time.Now().UTC(),
		Actor:    actor,
		Action:   models.ActionAddToCase,
		Note:     &note,
		Metadata: map[string]any{"case_id": caseID},
	})
}

func (s *Store) writeRawBlob(sha, src, ext string) error {
	dir := s.rawDir(sha)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(dir, ".original.tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, filepath.Join(dir, "original"+ext))
}

func (s *Store) rollbackIngest(sha string) {
	os.RemoveAll(s.rawDir(sha))
	os.RemoveAll(s.derivedDir(sha))
}

func (s *Store) caseLinked(sha, caseID string) bool {
	matches, _ := filepath.Glob(filepath.Join(s.caseDir(caseID), sha+".*"))
	if len(matches) > 0 {
		return true
	}
	_, err := os.Lstat(filepath.Join(s.caseDir(caseID), sha))
	return err == nil
}

// linkCase creates cases/<case-id>/<H>.<ext> pointing at the raw blob.
// Hard link first; symlink when the case root crosses a volume; plain copy
// as the last resort.
func (s *Store) linkCase(sha, caseID, ext string) error {
	rawPath, err := s.RawPath(sha)
	if err != nil {
		return err
	}
	dir := s.caseDir(caseID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	linkPath := filepath.Join(dir, sha+ext)

	if err := os.Link(rawPath, linkPath); err == nil {
		return nil
	}
	absRaw, err := filepath.Abs(rawPath)
	if err != nil {
		return err
	}
	if err := os.Symlink(absRaw, linkPath); err == nil {
		return nil
	}

	// Copy fallback, recorded in custody metadata so the deviation from
	// link semantics is visible.
	in, err := os.Open(rawPath)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(linkPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(linkPath)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	note := "case link created as copy (cross-volume)"
	return s.appendCustodyLocked(sha, models.CustodyEvent{
		TS:       time.Now().UTC(),
		Actor:    "store",
		Action:   models.ActionAddToCase,
		Note:     &note,
		Metadata: map[string]any{"case_id": caseID, "link_mode": "copy"},
	})
}

func buildMetadata(path, sha string, size int64) (*models.FileMetadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	mod := info.ModTime().UTC()
	meta := &models.FileMetadata{
		Filename:   filepath.Base(path),
		SizeBytes:  size,
		MimeType:   mimeForExtension(ext),
		Extension:  ext,
		ModifiedAt: &mod,
		SHA256:     sha,
		IngestedAt: time.Now().UTC(),
	}
	if err := models.Validate(meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func mimeForExtension(ext string) string {
	switch ext {
	case ".txt":
		return "text/plain"
	case ".pdf":
		return "application/pdf"
	case ".eml", ".mbox":
		return "message/rfc822"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tiff":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}
