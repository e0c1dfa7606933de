package models

import "time"

// EvidenceSummary is one per-evidence row of a case summary.
type EvidenceSummary struct {
	SHA256            string       `json:"sha256" validate:"required,len=64,hexadecimal,lowercase"`
	Filename          string       `json:"filename" validate:"required"`
	EvidenceType      EvidenceType `json:"evidence_type" validate:"required"`
	KeyFindings       []string     `json:"key_findings"`
	LegalSignificance Significance `json:"legal_significance,omitempty"`
	RiskFlags         []string     `json:"risk_flags"`
	Confidence        float64      `json:"confidence" validate:"gte=0,lte=1"`
	Analyzed          bool         `json:"analyzed"`
}

// ExecutiveSummaryResponse is the final narrative output of the summary
// generator; schema-validated as an LLM structured response.
type ExecutiveSummaryResponse struct {
	Narrative          string   `json:"narrative" validate:"required"`
	KeyFindings        []string `json:"key_findings" validate:"min=1"`
	LegalImplications  []string `json:"legal_implications"`
	RecommendedActions []string `json:"recommended_actions"`
}

// ChunkSummaryResponse is the map-phase output for one evidence chunk.
type ChunkSummaryResponse struct {
	Findings     []string `json:"findings" validate:"min=1"`
	Implications []string `json:"implications"`
	Actions      []string `json:"actions"`
}

// AssessmentMap is the loose overall-assessment bag of a case summary.
// Access is always by key with a safe default; it is never treated as a
// typed record. Keys prefixed with "_forensic" carry internal forensic
// detail preserved for report generators.
type AssessmentMap map[string]any

// Well-known assessment keys.
const (
	KeyTribunalProbability  = "tribunal_probability"
	KeyFinancialExposure    = "financial_exposure_summary"
	KeyRiskFlagBreakdown    = "risk_flag_breakdown"
	KeyPowerDynamics        = "power_dynamics"
	KeyRelationshipNetwork  = "relationship_network"
	KeyQuotedStatements     = "quoted_statements"
	KeyImageOCR             = "image_ocr"
	KeyForensicSummary      = "_forensic_summary"
	KeyForensicImplications = "_forensic_legal_implications"
	KeyForensicActions      = "_forensic_recommended_actions"
	KeyForensicRisk         = "_forensic_risk_assessment"
)

// Get returns the value for key, or def when absent.
func (m AssessmentMap) Get(key string, def any) any {
	if v, ok := m[key]; ok && v != nil {
		return v
	}
	return def
}

// GetString returns a string value with a default.
func (m AssessmentMap) GetString(key, def string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return def
}

// GetFloat returns a numeric value with a default. JSON round-trips store
// numbers as float64.
func (m AssessmentMap) GetFloat(key string, def float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// Has reports whether key is present and non-nil.
func (m AssessmentMap) Has(key string) bool {
	v, ok := m[key]
	return ok && v != nil
}

// CaseSummary is the complete case-wide product of the summarize stage.
type CaseSummary struct {
	CaseID            string                    `json:"case_id" validate:"required"`
	GeneratedAt       time.Time                 `json:"generated_at" validate:"required"`
	EvidenceSummaries []EvidenceSummary         `json:"evidence_summaries" validate:"dive"`
	Correlation       *CorrelationAnalysis      `json:"correlation" validate:"required"`
	OverallAssessment AssessmentMap             `json:"overall_assessment"`
	ExecutiveSummary  *ExecutiveSummaryResponse `json:"executive_summary" validate:"required"`
}

// AnalyzedCount returns how many evidence items carry an analysis.
func (s *CaseSummary) AnalyzedCount() int {
	n := 0
	for _, e := range s.EvidenceSummaries {
		if e.Analyzed {
			n++
		}
	}
	return n
}
