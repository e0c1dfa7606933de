package correlation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/casetrace/casetrace-go/internal/llm"
	"github.com/casetrace/casetrace-go/internal/models"
)

// aiMatchThreshold: merges happen only at or above this confidence. The
// bias is conservative: a missed merge is recoverable, a wrong merge
// corrupts the case record.
const aiMatchThreshold = 0.7

const resolveSystemPrompt = `You decide whether two person references from different pieces of legal evidence are the same real person.
Consider name variants, initials, email-derived names and the surrounding context.
Only answer match with confidence >= 0.7 when you are genuinely certain. When unsure, answer no_match.`

var resolveSchema = llm.Schema{
	Name: "entity_match",
	Raw: json.RawMessage(`{
  "type": "object",
  "properties": {
    "verdict": {"type": "string", "enum": ["match", "no_match"]},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "reasoning": {"type": "string"}
  },
  "required": ["verdict", "confidence"],
  "additionalProperties": false
}`),
}

type matchResponse struct {
	Verdict    string  `json:"verdict" validate:"required,oneof=match no_match"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
	Reasoning  string  `json:"reasoning"`
}

// aiResolver performs gated single-to-single person resolution. Candidate
// pairs are limited to single-occurrence person entities sharing a first
// initial, and the total comparison count is hard-capped; both bounds keep
// the O(n^2) pair space tractable on large cases.
type aiResolver struct {
	client   *llm.Client
	maxCalls int
	logger   *slog.Logger
}

func newAIResolver(client *llm.Client, maxCalls int) *aiResolver {
	return &aiResolver{
		client:   client,
		maxCalls: maxCalls,
		logger:   slog.Default().With("component", "ai_resolver"),
	}
}

// resolve merges AI-confirmed pairs in place and returns the surviving set.
func (r *aiResolver) resolve(ctx context.Context, entities []models.CorrelatedEntity) ([]models.CorrelatedEntity, error) {
	// Only single-occurrence person entities qualify; merged groups are
	// already corroborated by string matching.
	var candidates []int
	for i := range entities {
		if entities[i].Type == models.EntityPerson && len(entities[i].Occurrences) == 1 {
			candidates = append(candidates, i)
		}
	}

	merged := make(map[int]bool)
	calls := 0

	for a := 0; a < len(candidates); a++ {
		for b := a + 1; b < len(candidates); b++ {
			i, j := candidates[a], candidates[b]
			if merged[i] || merged[j] {
				continue
			}
			if !sameInitial(entities[i].CanonicalName, entities[j].CanonicalName) {
				continue
			}
			if calls >= r.maxCalls {
				r.logger.Warn("ai resolution call cap reached", "cap", r.maxCalls)
				return compact(entities, merged), nil
			}
			calls++

			match, err := r.compare(ctx, &entities[i], &entities[j])
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				// One failed comparison never fails the case; the pair
				// simply stays unmerged.
				r.logger.Warn("ai comparison failed",
					"a", entities[i].CanonicalName,
					"b", entities[j].CanonicalName,
					"error", err,
				)
				continue
			}
			if match {
				mergeGroups(&entities[i], &entities[j])
				merged[j] = true
			}
		}
	}

	r.logger.Debug("ai resolution finished", "calls", calls, "merged", len(merged))
	return compact(entities, merged), nil
}

func (r *aiResolver) compare(ctx context.Context, a, b *models.CorrelatedEntity) (bool, error) {
	user := fmt.Sprintf(
		"Reference A: %q (context: %s)\nReference B: %q (context: %s)\nAre these the same person?",
		a.CanonicalName, occurrenceContext(a),
		b.CanonicalName, occurrenceContext(b),
	)
	var resp matchResponse
	if err := r.client.CallStructured(ctx, llm.Request{
		System: resolveSystemPrompt,
		User:   user,
		Schema: resolveSchema,
	}, &resp); err != nil {
		return false, err
	}
	return resp.Verdict == "match" && resp.Confidence >= aiMatchThreshold, nil
}

func occurrenceContext(e *models.CorrelatedEntity) string {
	if len(e.Occurrences) == 0 || e.Occurrences[0].Context == "" {
		return "none"
	}
	return e.Occurrences[0].Context
}

func sameInitial(a, b string) bool {
	a = strings.TrimSpace(strings.ToLower(a))
	b = strings.TrimSpace(strings.ToLower(b))
	return a != "" && b != "" && a[0] == b[0]
}

func compact(entities []models.CorrelatedEntity, merged map[int]bool) []models.CorrelatedEntity {
	if len(merged) == 0 {
		return entities
	}
	out := make([]models.CorrelatedEntity, 0, len(entities)-len(merged))
	for i := range entities {
		if !merged[i] {
			out = append(out, entities[i])
		}
	}
	sortEntities(out)
	return out
}
