package models

import (
	"regexp"
	"time"
)

// EvidenceType is the closed set of artifact classifications.
type EvidenceType string

const (
	EvidenceDocument EvidenceType = "document"
	EvidenceImage    EvidenceType = "image"
	EvidenceEmail    EvidenceType = "email"
	EvidenceOther    EvidenceType = "other"
)

// Valid reports whether t is one of the closed evidence types.
func (t EvidenceType) Valid() bool {
	switch t {
	case EvidenceDocument, EvidenceImage, EvidenceEmail, EvidenceOther:
		return true
	}
	return false
}

// Analyzable reports whether artifacts of this type are routed to an
// analyzer. "other" artifacts are ingested and cataloged only.
func (t EvidenceType) Analyzable() bool {
	return t == EvidenceDocument || t == EvidenceImage || t == EvidenceEmail
}

var sha256Pattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ValidSHA256 reports whether h is a 64-char lowercase hex digest.
func ValidSHA256(h string) bool {
	return sha256Pattern.MatchString(h)
}

// FileMetadata describes an ingested artifact. Immutable after ingest.
type FileMetadata struct {
	Filename   string     `json:"filename" validate:"required"`
	SizeBytes  int64      `json:"size_bytes" validate:"gte=0"`
	MimeType   string     `json:"mime_type"`
	Extension  string     `json:"extension"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
	SHA256     string     `json:"sha256" validate:"required,len=64,hexadecimal,lowercase"`
	IngestedAt time.Time  `json:"ingested_at" validate:"required"`
}

// CustodyAction is the action tag on a chain-of-custody event.
type CustodyAction string

const (
	ActionIngest    CustodyAction = "ingest"
	ActionAnalyze   CustodyAction = "analyze"
	ActionReanalyze CustodyAction = "reanalyze"
	ActionExport    CustodyAction = "export"
	ActionAddToCase CustodyAction = "add-to-case"
)

// Valid reports whether a is a recognized custody action.
func (a CustodyAction) Valid() bool {
	switch a {
	case ActionIngest, ActionAnalyze, ActionReanalyze, ActionExport, ActionAddToCase:
		return true
	}
	return false
}

// CustodyEvent is one append-only chain-of-custody record. The on-disk shape
// is stable: { "ts", "actor", "action", "note", "metadata" }.
type CustodyEvent struct {
	TS       time.Time      `json:"ts" validate:"required"`
	Actor    string         `json:"actor" validate:"required"`
	Action   CustodyAction  `json:"action" validate:"required"`
	Note     *string        `json:"note"`
	Metadata map[string]any `json:"metadata"`
}

// CustodyChain is the full per-artifact log. Order is the order events were
// appended; it is never rewritten.
type CustodyChain struct {
	SHA256 string         `json:"sha256" validate:"required,len=64,hexadecimal,lowercase"`
	Events []CustodyEvent `json:"events" validate:"dive"`
}

// IngestStatus reports the outcome of a single ingest.
type IngestStatus string

const (
	IngestNew       IngestStatus = "ingested"
	IngestDuplicate IngestStatus = "duplicate"
	IngestFailed    IngestStatus = "failed"
)

// IngestionResult is returned per artifact by the store's ingest operation.
type IngestionResult struct {
	SHA256       string       `json:"sha256"`
	EvidenceType EvidenceType `json:"evidence_type"`
	Metadata     FileMetadata `json:"metadata"`
	Status       IngestStatus `json:"status"`
	Error        string       `json:"error,omitempty"`
}

// StoreStats summarizes the store contents.
type StoreStats struct {
	EvidenceCount  int            `json:"evidence_count"`
	AnalyzedCount  int            `json:"analyzed_count"`
	TotalBytes     int64          `json:"total_bytes"`
	CountsByType   map[string]int `json:"counts_by_type"`
	CaseCounts     map[string]int `json:"case_counts"`
	OrphanedSHA256 []string       `json:"orphaned_sha256,omitempty"`
}
