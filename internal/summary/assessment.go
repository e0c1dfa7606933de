package summary

import (
	"fmt"
	"sort"

	"github.com/casetrace/casetrace-go/internal/models"
)

// buildAssessment computes the overall-assessment map. Everything here is
// deterministic over the analyses and the correlation result; the only LLM
// contribution is the executive summary carried under the _forensic keys.
func buildAssessment(analyses []*models.UnifiedAnalysis, corr *models.CorrelationAnalysis, exec *models.ExecutiveSummaryResponse) models.AssessmentMap {
	m := models.AssessmentMap{}

	breakdown := riskFlagBreakdown(analyses)
	m[models.KeyRiskFlagBreakdown] = breakdown

	prob := tribunalProbability(analyses, corr)
	m[models.KeyTribunalProbability] = prob
	m[models.KeyFinancialExposure] = financialExposure(prob)

	if pd := powerDynamics(analyses); len(pd) > 0 {
		m[models.KeyPowerDynamics] = pd
	}
	if rn := relationshipNetwork(corr); len(rn) > 0 {
		m[models.KeyRelationshipNetwork] = rn
	}
	if qs := quotedStatements(analyses); len(qs) > 0 {
		m[models.KeyQuotedStatements] = qs
	}
	if ocr := imageOCR(analyses); len(ocr) > 0 {
		m[models.KeyImageOCR] = ocr
	}

	if exec != nil {
		m[models.KeyForensicSummary] = exec.Narrative
		m[models.KeyForensicImplications] = exec.LegalImplications
		m[models.KeyForensicActions] = exec.RecommendedActions
		m[models.KeyForensicRisk] = riskBand(prob)
	}
	return m
}

func riskFlagBreakdown(analyses []*models.UnifiedAnalysis) map[string]int {
	breakdown := make(map[string]int)
	for _, a := range analyses {
		for _, f := range a.RiskFlags() {
			breakdown[f]++
		}
	}
	return breakdown
}

// tribunalProbability is a coarse deterministic estimate in [0, 1] driven by
// significance distribution, risk-flag density and detected escalation
// sequences. It is an ordering signal for triage, not a legal prediction.
func tribunalProbability(analyses []*models.UnifiedAnalysis, corr *models.CorrelationAnalysis) float64 {
	if len(analyses) == 0 {
		return 0
	}

	material := 0
	flagged := 0
	for _, a := range analyses {
		switch a.Significance() {
		case models.SignificanceCritical:
			material += 2
		case models.SignificanceHigh:
			material++
		}
		if len(a.RiskFlags()) > 0 {
			flagged++
		}
	}

	p := 0.1
	p += 0.4 * clamp(float64(material)/float64(2*len(analyses)))
	p += 0.3 * clamp(float64(flagged)/float64(len(analyses)))
	if corr != nil {
		if len(corr.TemporalSequences) > 0 {
			p += 0.1
		}
		if corr.LegalPatterns != nil && len(corr.LegalPatterns.Contradictions) > 0 {
			p += 0.1
		}
	}
	return clamp(p)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func riskBand(p float64) string {
	switch {
	case p >= 0.7:
		return "high"
	case p >= 0.4:
		return "medium"
	default:
		return "low"
	}
}

func financialExposure(p float64) string {
	switch {
	case p >= 0.7:
		return "substantial: settlement and award exposure likely material, quantum review recommended"
	case p >= 0.4:
		return "moderate: credible claim exposure, early settlement assessment advisable"
	default:
		return "limited: current record supports low claim exposure"
	}
}

// powerDynamics averages the per-email deference scores by address. 0 is
// dominant, 0.5 neutral, 1 deferential.
func powerDynamics(analyses []*models.UnifiedAnalysis) []map[string]any {
	type accum struct {
		name    string
		sum     float64
		count   int
		threads int
	}
	byAddr := make(map[string]*accum)
	for _, a := range analyses {
		if a.Email == nil {
			continue
		}
		for _, p := range a.Email.Participants {
			acc, ok := byAddr[p.Address]
			if !ok {
				acc = &accum{name: p.Name}
				byAddr[p.Address] = acc
			}
			if acc.name == "" {
				acc.name = p.Name
			}
			acc.sum += p.DeferenceScore
			acc.count++
			acc.threads++
		}
	}
	if len(byAddr) == 0 {
		return nil
	}

	addrs := make([]string, 0, len(byAddr))
	for addr := range byAddr {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	out := make([]map[string]any, 0, len(addrs))
	for _, addr := range addrs {
		acc := byAddr[addr]
		avg := acc.sum / float64(acc.count)
		stance := "neutral"
		if avg <= 0.35 {
			stance = "dominant"
		} else if avg >= 0.65 {
			stance = "deferential"
		}
		out = append(out, map[string]any{
			"address":         addr,
			"name":            acc.name,
			"deference_score": avg,
			"stance":          stance,
			"threads":         acc.threads,
		})
	}
	return out
}

// relationshipNetwork derives a degree-weighted entity graph from shared
// evidence: two entities are connected when they occur in the same evidence
// item, edge weight is the number of shared items.
func relationshipNetwork(corr *models.CorrelationAnalysis) []map[string]any {
	if corr == nil || len(corr.Entities) < 2 {
		return nil
	}

	shaSets := make([]map[string]bool, len(corr.Entities))
	for i, e := range corr.Entities {
		set := make(map[string]bool, len(e.Occurrences))
		for _, o := range e.Occurrences {
			set[o.SHA256] = true
		}
		shaSets[i] = set
	}

	var edges []map[string]any
	for i := 0; i < len(corr.Entities); i++ {
		for j := i + 1; j < len(corr.Entities); j++ {
			shared := 0
			for sha := range shaSets[i] {
				if shaSets[j][sha] {
					shared++
				}
			}
			if shared == 0 {
				continue
			}
			edges = append(edges, map[string]any{
				"from":   corr.Entities[i].CanonicalName,
				"to":     corr.Entities[j].CanonicalName,
				"weight": shared,
			})
		}
	}
	sort.Slice(edges, func(a, b int) bool {
		wa, wb := edges[a]["weight"].(int), edges[b]["weight"].(int)
		if wa != wb {
			return wa > wb
		}
		fa, fb := edges[a]["from"].(string), edges[b]["from"].(string)
		if fa != fb {
			return fa < fb
		}
		return edges[a]["to"].(string) < edges[b]["to"].(string)
	})
	return edges
}

// imageOCR collects recovered text from image evidence, tagged with the
// significance used by the OCR report to order by evidence value.
func imageOCR(analyses []*models.UnifiedAnalysis) []map[string]any {
	var out []map[string]any
	for _, a := range analyses {
		if a.Image == nil || a.Image.OCRText == "" {
			continue
		}
		out = append(out, map[string]any{
			"sha256":       a.SHA256,
			"text":         a.Image.OCRText,
			"significance": string(a.Significance()),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i]["sha256"].(string) < out[j]["sha256"].(string)
	})
	return out
}

// quotedStatements collects every attributed quote, tagged with its evidence.
func quotedStatements(analyses []*models.UnifiedAnalysis) []map[string]any {
	var out []map[string]any
	for _, a := range analyses {
		for _, ent := range a.Entities() {
			if ent.Quote == nil || ent.Quote.Text == "" {
				continue
			}
			speaker := ent.Quote.Speaker
			if speaker == "" {
				speaker = "unattributed"
			}
			out = append(out, map[string]any{
				"speaker": speaker,
				"text":    ent.Quote.Text,
				"sha256":  a.SHA256,
				"source":  fmt.Sprintf("%s evidence %s", a.EvidenceType, models.ShortSHA(a.SHA256)),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i]["speaker"].(string), out[j]["speaker"].(string)
		if si != sj {
			return si < sj
		}
		return out[i]["text"].(string) < out[j]["text"].(string)
	})
	return out
}
