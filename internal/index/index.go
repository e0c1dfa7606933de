// Package index maintains a regenerable SQLite view over the store for
// listing and stats queries. The filesystem tree is the source of truth;
// the index can be deleted and rebuilt at any time.
package index

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/casetrace/casetrace-go/internal/models"
	"github.com/casetrace/casetrace-go/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS evidence (
	sha256        TEXT PRIMARY KEY,
	filename      TEXT NOT NULL,
	size_bytes    INTEGER NOT NULL,
	evidence_type TEXT NOT NULL DEFAULT 'other',
	analyzed      INTEGER NOT NULL DEFAULT 0,
	significance  TEXT,
	confidence    REAL
);

CREATE TABLE IF NOT EXISTS case_links (
	case_id TEXT NOT NULL,
	sha256  TEXT NOT NULL,
	PRIMARY KEY (case_id, sha256)
);

CREATE INDEX IF NOT EXISTS idx_case_links_sha ON case_links(sha256);
`

// Index is the SQLite-backed case index.
type Index struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Open opens (or creates) the index database.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply index schema: %w", err)
	}
	return &Index{db: db, logger: slog.Default().With("component", "index")}, nil
}

// Close closes the database.
func (ix *Index) Close() error { return ix.db.Close() }

// EvidenceRow is one indexed artifact.
type EvidenceRow struct {
	SHA256       string   `db:"sha256"`
	Filename     string   `db:"filename"`
	SizeBytes    int64    `db:"size_bytes"`
	EvidenceType string   `db:"evidence_type"`
	Analyzed     bool     `db:"analyzed"`
	Significance *string  `db:"significance"`
	Confidence   *float64 `db:"confidence"`
}

// Upsert records or updates one artifact row.
func (ix *Index) Upsert(row EvidenceRow) error {
	_, err := ix.db.NamedExec(`
		INSERT INTO evidence (sha256, filename, size_bytes, evidence_type, analyzed, significance, confidence)
		VALUES (:sha256, :filename, :size_bytes, :evidence_type, :analyzed, :significance, :confidence)
		ON CONFLICT(sha256) DO UPDATE SET
			evidence_type=excluded.evidence_type,
			analyzed=excluded.analyzed,
			significance=excluded.significance,
			confidence=excluded.confidence`, row)
	return err
}

// Link records a case membership.
func (ix *Index) Link(caseID, sha string) error {
	_, err := ix.db.Exec(`INSERT OR IGNORE INTO case_links (case_id, sha256) VALUES (?, ?)`, caseID, sha)
	return err
}

// CaseEvidence returns the indexed rows for a case, ordered by sha256.
func (ix *Index) CaseEvidence(caseID string) ([]EvidenceRow, error) {
	var rows []EvidenceRow
	err := ix.db.Select(&rows, `
		SELECT e.* FROM evidence e
		JOIN case_links c ON c.sha256 = e.sha256
		WHERE c.case_id = ?
		ORDER BY e.sha256`, caseID)
	return rows, err
}

// CaseCounts returns evidence counts per case.
func (ix *Index) CaseCounts() (map[string]int, error) {
	rows, err := ix.db.Queryx(`SELECT case_id, COUNT(*) AS n FROM case_links GROUP BY case_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var caseID string
		var n int
		if err := rows.Scan(&caseID, &n); err != nil {
			return nil, err
		}
		out[caseID] = n
	}
	return out, rows.Err()
}

// Rebuild regenerates the index from the store tree.
func (ix *Index) Rebuild(st *store.Store) error {
	tx, err := ix.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM evidence`); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM case_links`); err != nil {
		return err
	}

	all, err := st.ListAll()
	if err != nil {
		return err
	}
	for _, sha := range all {
		meta, err := st.LoadMetadata(sha)
		if err != nil {
			return fmt.Errorf("rebuild index for %s: %w", models.ShortSHA(sha), err)
		}
		row := EvidenceRow{
			SHA256:       sha,
			Filename:     meta.Filename,
			SizeBytes:    meta.SizeBytes,
			EvidenceType: string(models.EvidenceOther),
		}
		if analysis, err := st.LoadAnalysis(sha); err == nil {
			row.EvidenceType = string(analysis.EvidenceType)
			row.Analyzed = true
			sig := string(analysis.Significance())
			conf := analysis.Confidence()
			row.Significance = &sig
			row.Confidence = &conf
		}
		if _, err := tx.NamedExec(`
			INSERT INTO evidence (sha256, filename, size_bytes, evidence_type, analyzed, significance, confidence)
			VALUES (:sha256, :filename, :size_bytes, :evidence_type, :analyzed, :significance, :confidence)`, row); err != nil {
			return err
		}
	}

	cases, err := st.ListCases()
	if err != nil {
		return err
	}
	for _, c := range cases {
		shas, err := st.ListCase(c)
		if err != nil {
			return err
		}
		for _, sha := range shas {
			if _, err := tx.Exec(`INSERT OR IGNORE INTO case_links (case_id, sha256) VALUES (?, ?)`, c, sha); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	ix.logger.Info("index rebuilt", "evidence", len(all), "cases", len(cases))
	return nil
}
