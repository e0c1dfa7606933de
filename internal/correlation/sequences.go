package correlation

import (
	"strings"

	"github.com/casetrace/casetrace-go/internal/models"
)

// sequenceRule is one ordered chain pattern over event descriptions and
// risk flags. Stages must appear in timeline order; matching is keyword
// based and deterministic.
type sequenceRule struct {
	kind   string
	stages [][]string // per stage: any keyword matches
}

var sequenceRules = []sequenceRule{
	{
		kind: "complaint-suspension-termination",
		stages: [][]string{
			{"complaint", "grievance", "whistleblow"},
			{"suspension", "suspended"},
			{"termination", "terminated", "dismissal", "dismissed"},
		},
	},
	{
		kind: "complaint-retaliation",
		stages: [][]string{
			{"complaint", "grievance", "concern raised"},
			{"retaliation", "demotion", "disciplinary", "warning"},
		},
	},
	{
		kind: "warning-escalation-exit",
		stages: [][]string{
			{"warning", "performance"},
			{"escalation", "final warning", "hostile"},
			{"resignation", "termination", "dismissed"},
		},
	},
}

// detectSequences walks the ordered timeline once per rule, greedily
// assigning the earliest event matching each successive stage.
func detectSequences(events []models.TimelineEvent) []models.TemporalSequence {
	var sequences []models.TemporalSequence

	for _, rule := range sequenceRules {
		matched := make([]models.TimelineEvent, 0, len(rule.stages))
		stage := 0
		for _, e := range events {
			if stage >= len(rule.stages) {
				break
			}
			if matchesStage(e, rule.stages[stage]) {
				matched = append(matched, e)
				stage++
			}
		}
		if stage == len(rule.stages) {
			sequences = append(sequences, models.TemporalSequence{
				Kind:       rule.kind,
				Events:     matched,
				Confidence: sequenceConfidence(matched),
			})
		}
	}
	return sequences
}

func matchesStage(e models.TimelineEvent, keywords []string) bool {
	haystack := strings.ToLower(e.Description + " " + strings.Join(e.RiskFlags, " "))
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

// sequenceConfidence scores higher when the chain spans multiple evidence
// items rather than restating a single document.
func sequenceConfidence(events []models.TimelineEvent) float64 {
	sources := make(map[string]bool)
	for _, e := range events {
		sources[e.SHA256] = true
	}
	switch {
	case len(sources) >= 3:
		return 0.9
	case len(sources) == 2:
		return 0.75
	default:
		return 0.5
	}
}
