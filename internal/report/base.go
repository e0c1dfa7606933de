package report

import (
	"fmt"
	"strings"

	"github.com/casetrace/casetrace-go/internal/models"
)

// header renders the common report preamble.
func header(title string, s *models.CaseSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "**Case:** %s  \n", s.CaseID)
	fmt.Fprintf(&sb, "**Generated:** %s  \n", s.GeneratedAt.Format("2006-01-02 15:04 UTC"))
	fmt.Fprintf(&sb, "**Evidence items:** %d (%d analyzed)\n\n---\n\n",
		len(s.EvidenceSummaries), s.AnalyzedCount())
	return sb.String()
}

// short truncates a SHA-256 to 8 hex chars for readability.
func short(sha string) string {
	return models.ShortSHA(sha)
}

// asStrings coerces a loosely-typed assessment value into a string slice.
// JSON round-trips turn typed slices into []any; a bare string becomes a
// single-element slice; anything else stringifies per element.
func asStrings(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return t
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprintf("%v", item))
			}
		}
		return out
	default:
		return []string{fmt.Sprintf("%v", v)}
	}
}

// asMaps coerces a loosely-typed assessment value into a slice of maps.
func asMaps(v any) []map[string]any {
	switch t := v.(type) {
	case []map[string]any:
		return t
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

// bulletList renders items as a markdown list, with a fallback line when
// empty.
func bulletList(sb *strings.Builder, items []string, empty string) {
	if len(items) == 0 {
		sb.WriteString(empty + "\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", item)
	}
}

func mapString(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func mapFloat(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
