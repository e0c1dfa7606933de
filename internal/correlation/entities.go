package correlation

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/casetrace/casetrace-go/internal/models"
)

// extraction pairs an entity with the evidence it came from.
type extraction struct {
	sha    string
	entity models.Entity
}

var punctPattern = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// normalizeName applies the deterministic string normalization used for
// merging: lowercase, trim, strip punctuation, collapse whitespace.
func normalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = punctPattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// emailLocalPartName converts an address like "Paul.Boucherat.9241@x" into
// the name variant "paul boucherat". Returns "" when the local part does
// not look like a dotted personal name.
func emailLocalPartName(address string) string {
	at := strings.IndexByte(address, '@')
	if at <= 0 {
		return ""
	}
	local := address[:at]
	parts := strings.Split(local, ".")
	var words []string
	for _, p := range parts {
		if p == "" {
			continue
		}
		// Trailing numeric suffixes are mailbox disambiguators, not names.
		if isDigits(p) {
			continue
		}
		words = append(words, strings.ToLower(p))
	}
	if len(words) < 2 {
		return ""
	}
	return strings.Join(words, " ")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// canonicalGroup is an in-progress merge group keyed by normalized name.
type canonicalGroup struct {
	displayName string
	entityType  models.EntityType
	occurrences []models.EntityOccurrence
	method      string
}

// canonicalizeEntities merges extracted entities by (normalized name, type).
// Email-address person entities additionally produce a local-part name
// variant so "Paul.Boucherat.9241@x" merges with "Paul Boucherat". Every
// per-evidence occurrence keeps its original extraction confidence.
func canonicalizeEntities(extractions []extraction) []models.CorrelatedEntity {
	groups := make(map[string]*canonicalGroup)

	for _, ex := range extractions {
		name := ex.entity.Name
		norm := normalizeName(name)
		if ex.entity.Type == models.EntityPerson && strings.ContainsRune(name, '@') {
			if variant := emailLocalPartName(name); variant != "" {
				norm = variant
			}
		}
		if norm == "" {
			continue
		}

		key := string(ex.entity.Type) + "\x00" + norm
		g, ok := groups[key]
		if !ok {
			g = &canonicalGroup{
				displayName: displayName(norm, name),
				entityType:  ex.entity.Type,
				method:      "string",
			}
			groups[key] = g
		}
		g.occurrences = append(g.occurrences, models.EntityOccurrence{
			SHA256:     ex.sha,
			RawName:    name,
			Confidence: ex.entity.Confidence,
			Context:    ex.entity.Context,
		})
	}

	out := make([]models.CorrelatedEntity, 0, len(groups))
	for _, g := range groups {
		sortOccurrences(g.occurrences)
		out = append(out, models.CorrelatedEntity{
			CanonicalName:    g.displayName,
			Type:             g.entityType,
			Occurrences:      g.occurrences,
			ResolutionMethod: g.method,
		})
	}
	sortEntities(out)
	return out
}

// displayName title-cases the normalized form unless the raw extraction
// already reads as a name (no address syntax).
func displayName(norm, raw string) string {
	if !strings.ContainsRune(raw, '@') {
		return strings.TrimSpace(raw)
	}
	words := strings.Fields(norm)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func sortOccurrences(occ []models.EntityOccurrence) {
	sort.Slice(occ, func(i, j int) bool {
		if occ[i].SHA256 != occ[j].SHA256 {
			return occ[i].SHA256 < occ[j].SHA256
		}
		return occ[i].RawName < occ[j].RawName
	})
}

func sortEntities(entities []models.CorrelatedEntity) {
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Type != entities[j].Type {
			return entities[i].Type < entities[j].Type
		}
		return entities[i].CanonicalName < entities[j].CanonicalName
	})
}

// mergeGroups folds entity b into a (used by AI resolution).
func mergeGroups(a, b *models.CorrelatedEntity) {
	a.Occurrences = append(a.Occurrences, b.Occurrences...)
	sortOccurrences(a.Occurrences)
	a.ResolutionMethod = "ai"
}
