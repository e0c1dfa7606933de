package models

import "time"

// EntityOccurrence records one extraction of a canonical entity from a
// specific piece of evidence, with the original extraction confidence.
type EntityOccurrence struct {
	SHA256     string  `json:"sha256" validate:"required,len=64,hexadecimal,lowercase"`
	RawName    string  `json:"raw_name" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
	Context    string  `json:"context,omitempty"`
}

// CorrelatedEntity is a canonical entity with every per-evidence occurrence
// that merged into it.
type CorrelatedEntity struct {
	CanonicalName string             `json:"canonical_name" validate:"required"`
	Type          EntityType         `json:"type" validate:"required"`
	Occurrences   []EntityOccurrence `json:"occurrences" validate:"min=1,dive"`
	// ResolutionMethod is "string" for deterministic merges or "ai" when a
	// single-to-single LLM comparison joined the group.
	ResolutionMethod string `json:"resolution_method,omitempty"`
}

// EvidenceCount returns the number of distinct evidence items the entity
// appears in.
func (e *CorrelatedEntity) EvidenceCount() int {
	seen := make(map[string]bool, len(e.Occurrences))
	for _, o := range e.Occurrences {
		seen[o.SHA256] = true
	}
	return len(seen)
}

// TimelineSource identifies where a timeline event's timestamp came from.
type TimelineSource string

const (
	SourceFilesystem TimelineSource = "filesystem"
	SourceEmail      TimelineSource = "email_header"
	SourceSemantic   TimelineSource = "semantic"
)

// TimelineEvent is one dated event on the reconstructed case timeline.
type TimelineEvent struct {
	ID           string         `json:"id" validate:"required"`
	Timestamp    time.Time      `json:"timestamp" validate:"required"`
	SHA256       string         `json:"sha256" validate:"required,len=64,hexadecimal,lowercase"`
	Source       TimelineSource `json:"source" validate:"required"`
	Description  string         `json:"description"`
	RiskFlags    []string       `json:"risk_flags,omitempty"`
	Significance Significance   `json:"significance,omitempty"`
}

// GapSignificance grades a suspicious timeline gap.
type GapSignificance string

const (
	GapLow    GapSignificance = "low"
	GapMedium GapSignificance = "medium"
	GapHigh   GapSignificance = "high"
)

// TimelineGap is a stretch with no events between two material events.
type TimelineGap struct {
	Start        time.Time       `json:"start"`
	End          time.Time       `json:"end"`
	Days         int             `json:"days" validate:"gte=0"`
	BeforeSHA256 string          `json:"before_sha256"`
	AfterSHA256  string          `json:"after_sha256"`
	Significance GapSignificance `json:"significance" validate:"oneof=low medium high"`
	Rationale    string          `json:"rationale"`
}

// TemporalSequence is an ordered chain of events matching a known pattern,
// e.g. complaint -> suspension -> termination.
type TemporalSequence struct {
	Kind       string          `json:"kind" validate:"required"`
	Events     []TimelineEvent `json:"events" validate:"min=2"`
	Confidence float64         `json:"confidence" validate:"gte=0,lte=1"`
}

// ContradictionType classifies a detected contradiction.
type ContradictionType string

const (
	ContradictionFactual     ContradictionType = "factual"
	ContradictionTemporal    ContradictionType = "temporal"
	ContradictionAttribution ContradictionType = "attribution"
)

// Contradiction is two statements from case evidence that cannot both hold.
type Contradiction struct {
	StatementA      string            `json:"statement_a" validate:"required"`
	StatementB      string            `json:"statement_b" validate:"required"`
	EvidenceSources []string          `json:"evidence_sources" validate:"min=2,dive,len=64"`
	Type            ContradictionType `json:"type" validate:"required,oneof=factual temporal attribution"`
	Severity        float64           `json:"severity" validate:"gte=0,lte=1"`
	Explanation     string            `json:"explanation,omitempty"`
}

// CorroborationStrength grades how strongly evidence supports a claim.
type CorroborationStrength string

const (
	CorroborationWeak     CorroborationStrength = "weak"
	CorroborationModerate CorroborationStrength = "moderate"
	CorroborationStrong   CorroborationStrength = "strong"
)

// Corroboration is a claim supported by two or more evidence items.
type Corroboration struct {
	Claim             string                `json:"claim" validate:"required"`
	SupportingSources []string              `json:"supporting_sources" validate:"min=2,dive,len=64"`
	Strength          CorroborationStrength `json:"strength" validate:"required,oneof=weak moderate strong"`
	Confidence        float64               `json:"confidence" validate:"gte=0,lte=1"`
}

// GapPriority grades an evidence gap.
type GapPriority string

const (
	GapPriorityCritical GapPriority = "critical"
	GapPriorityHigh     GapPriority = "high"
	GapPriorityMedium   GapPriority = "medium"
)

// EvidenceGap describes missing evidence: a witness, documentation or
// communication the record suggests should exist.
type EvidenceGap struct {
	Description string      `json:"description" validate:"required"`
	GapType     string      `json:"gap_type"`
	Priority    GapPriority `json:"priority" validate:"required,oneof=critical high medium"`
}

// LegalPatternAnalysis is the LLM-driven case-wide pattern detection output.
type LegalPatternAnalysis struct {
	Contradictions []Contradiction `json:"contradictions" validate:"dive"`
	Corroborations []Corroboration `json:"corroborations" validate:"dive"`
	EvidenceGaps   []EvidenceGap   `json:"evidence_gaps" validate:"dive"`
}

// CorrelationAnalysis is the case-scoped aggregation over all unified
// analyses. Unlike the overall-assessment map, this is a typed record and is
// always accessed by field.
type CorrelationAnalysis struct {
	CaseID            string                `json:"case_id" validate:"required"`
	GeneratedAt       time.Time             `json:"generated_at" validate:"required"`
	EvidenceCount     int                   `json:"evidence_count" validate:"gte=0"`
	Entities          []CorrelatedEntity    `json:"entities" validate:"dive"`
	TimelineEvents    []TimelineEvent       `json:"timeline_events" validate:"dive"`
	TimelineGaps      []TimelineGap         `json:"timeline_gaps" validate:"dive"`
	TemporalSequences []TemporalSequence    `json:"temporal_sequences" validate:"dive"`
	LegalPatterns     *LegalPatternAnalysis `json:"legal_patterns,omitempty"`
}
