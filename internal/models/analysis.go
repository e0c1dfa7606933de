package models

import (
	"time"
)

// Significance is the ordered forensic significance label.
type Significance string

const (
	SignificanceCritical Significance = "critical"
	SignificanceHigh     Significance = "high"
	SignificanceMedium   Significance = "medium"
	SignificanceLow      Significance = "low"
)

// Sentiment classifies the tone of a document.
type Sentiment string

const (
	SentimentHostile      Sentiment = "hostile"
	SentimentNeutral      Sentiment = "neutral"
	SentimentProfessional Sentiment = "professional"
)

// EntityType is the closed set of extracted entity kinds.
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityOrganization EntityType = "organization"
	EntityLocation     EntityType = "location"
	EntityDate         EntityType = "date"
	EntityLegalTerm    EntityType = "legal_term"
)

// Quote is a verbatim statement attributed to a speaker.
type Quote struct {
	Text    string `json:"text" validate:"required"`
	Speaker string `json:"speaker"`
}

// Entity is a single extraction from one piece of evidence.
type Entity struct {
	Name            string     `json:"name" validate:"required"`
	Type            EntityType `json:"type" validate:"required,oneof=person organization location date legal_term"`
	Confidence      float64    `json:"confidence" validate:"gte=0,lte=1"`
	Context         string     `json:"context"`
	Relationship    string     `json:"relationship,omitempty"`
	Quote           *Quote     `json:"quote,omitempty"`
	AssociatedEvent string     `json:"associated_event,omitempty"`
}

// WordStats holds deterministic text statistics computed by the document
// analyzer, used by the package's visualization outputs.
type WordStats struct {
	WordCount       int            `json:"word_count"`
	UniqueWordCount int            `json:"unique_word_count"`
	TopWords        []WordFreq     `json:"top_words,omitempty"`
	Frequency       map[string]int `json:"-"`
}

// WordFreq is one entry of the word-frequency table, most frequent first.
type WordFreq struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// DocumentAnalysis is the typed payload for document evidence.
type DocumentAnalysis struct {
	Summary           string       `json:"summary" validate:"required"`
	Entities          []Entity     `json:"entities" validate:"dive"`
	DocumentType      string       `json:"document_type" validate:"required"`
	Sentiment         Sentiment    `json:"sentiment" validate:"required,oneof=hostile neutral professional"`
	LegalSignificance Significance `json:"legal_significance" validate:"required,oneof=critical high medium low"`
	RiskFlags         []string     `json:"risk_flags"`
	Confidence        float64      `json:"confidence" validate:"gte=0,lte=1"`
	WordStats         *WordStats   `json:"word_stats,omitempty"`
}

// ImageAnalysis is the typed payload for image evidence.
type ImageAnalysis struct {
	SceneDescription string   `json:"scene_description" validate:"required"`
	OCRText          string   `json:"ocr_text"`
	DetectedObjects  []string `json:"detected_objects"`
	Entities         []Entity `json:"entities,omitempty" validate:"dive"`
	Confidence       float64  `json:"confidence" validate:"gte=0,lte=1"`
}

// ParticipantRole is an email participant's role in the thread.
type ParticipantRole string

const (
	RoleSender    ParticipantRole = "sender"
	RoleRecipient ParticipantRole = "recipient"
	RoleCC        ParticipantRole = "cc"
	RoleBCC       ParticipantRole = "bcc"
)

// Participant carries the full per-participant metadata preserved
// downstream, not just counts.
type Participant struct {
	Name             string          `json:"name"`
	Address          string          `json:"address" validate:"required"`
	Role             ParticipantRole `json:"role" validate:"required,oneof=sender recipient cc bcc"`
	MessageCount     int             `json:"message_count" validate:"gte=0"`
	FirstInteraction *time.Time      `json:"first_interaction,omitempty"`
	LastInteraction  *time.Time      `json:"last_interaction,omitempty"`
	// DeferenceScore quantifies relative submissiveness in the exchange:
	// 0 dominant, 0.5 neutral, 1 deferential.
	DeferenceScore float64 `json:"deference_score" validate:"gte=0,lte=1"`
}

// EmailAnalysis is the typed payload for email evidence.
type EmailAnalysis struct {
	Participants         []Participant `json:"participants" validate:"dive"`
	ThreadSummary        string        `json:"thread_summary" validate:"required"`
	CommunicationPattern string        `json:"communication_pattern" validate:"required"`
	EscalationDetected   bool          `json:"escalation_detected"`
	Entities             []Entity      `json:"entities" validate:"dive"`
	LegalSignificance    Significance  `json:"legal_significance" validate:"required,oneof=critical high medium low"`
	RiskFlags            []string      `json:"risk_flags"`
	Confidence           float64       `json:"confidence" validate:"gte=0,lte=1"`
}

// UnifiedAnalysis ties one SHA-256 to exactly one typed payload. Exactly one
// of Document, Image, Email is non-nil and it must match EvidenceType.
type UnifiedAnalysis struct {
	SHA256        string       `json:"sha256" validate:"required,len=64,hexadecimal,lowercase"`
	EvidenceType  EvidenceType `json:"evidence_type" validate:"required,oneof=document image email"`
	AnalyzedAt    time.Time    `json:"analyzed_at" validate:"required"`
	Model         string       `json:"model" validate:"required"`
	ModelRevision string       `json:"model_revision,omitempty"`
	Labels        []string     `json:"labels"`
	CaseIDs       []string     `json:"case_ids"`

	Document *DocumentAnalysis `json:"document_analysis,omitempty"`
	Image    *ImageAnalysis    `json:"image_analysis,omitempty"`
	Email    *EmailAnalysis    `json:"email_analysis,omitempty"`
}

// Entities returns the extracted entities of whichever payload is populated.
func (u *UnifiedAnalysis) Entities() []Entity {
	switch {
	case u.Document != nil:
		return u.Document.Entities
	case u.Image != nil:
		return u.Image.Entities
	case u.Email != nil:
		return u.Email.Entities
	}
	return nil
}

// RiskFlags returns the risk-flag set of the populated payload.
func (u *UnifiedAnalysis) RiskFlags() []string {
	switch {
	case u.Document != nil:
		return u.Document.RiskFlags
	case u.Email != nil:
		return u.Email.RiskFlags
	}
	return nil
}

// Significance returns the legal significance of the populated payload.
// Images have no standalone significance and report medium.
func (u *UnifiedAnalysis) Significance() Significance {
	switch {
	case u.Document != nil:
		return u.Document.LegalSignificance
	case u.Email != nil:
		return u.Email.LegalSignificance
	}
	return SignificanceMedium
}

// Confidence returns the overall confidence of the populated payload.
func (u *UnifiedAnalysis) Confidence() float64 {
	switch {
	case u.Document != nil:
		return u.Document.Confidence
	case u.Image != nil:
		return u.Image.Confidence
	case u.Email != nil:
		return u.Email.Confidence
	}
	return 0
}

// HasCase reports whether the analysis is linked to the given case.
func (u *UnifiedAnalysis) HasCase(caseID string) bool {
	for _, id := range u.CaseIDs {
		if id == caseID {
			return true
		}
	}
	return false
}
