package correlation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casetrace/casetrace-go/internal/models"
)

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"  Karen Mills ":  "karen mills",
		"Karen   MILLS":   "karen mills",
		"O'Brien, Seamus": "o brien seamus",
		"ACME Ltd.":       "acme ltd",
		"   ":             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeName(in), "input %q", in)
	}
}

func TestEmailLocalPartName(t *testing.T) {
	cases := map[string]string{
		"Paul.Boucherat.9241@acme.example": "paul boucherat",
		"karen.mills@acme.example":         "karen mills",
		"hr@acme.example":                  "",
		"j.p.smith@acme.example":           "j p smith",
		"no-at-sign":                       "",
		"@acme.example":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, emailLocalPartName(in), "input %q", in)
	}
}

func TestCanonicalizeEntitiesMergesAddressAndName(t *testing.T) {
	extractions := []extraction{
		{sha: "bbbb", entity: models.Entity{Name: "Paul Boucherat", Type: models.EntityPerson, Confidence: 0.9, Context: "named in letter"}},
		{sha: "aaaa", entity: models.Entity{Name: "Paul.Boucherat.9241@acme.example", Type: models.EntityPerson, Confidence: 1.0, Context: "email participant"}},
		{sha: "cccc", entity: models.Entity{Name: "ACME Ltd", Type: models.EntityOrganization, Confidence: 0.8}},
	}

	entities := canonicalizeEntities(extractions)
	require.Len(t, entities, 2)

	// Sorted type-then-name: organization before person.
	assert.Equal(t, models.EntityOrganization, entities[0].Type)

	person := entities[1]
	assert.Equal(t, models.EntityPerson, person.Type)
	assert.Equal(t, "Paul Boucherat", person.CanonicalName)
	assert.Equal(t, "string", person.ResolutionMethod)
	require.Len(t, person.Occurrences, 2)

	// Occurrences sorted by SHA; each keeps its own extraction confidence.
	assert.Equal(t, "aaaa", person.Occurrences[0].SHA256)
	assert.Equal(t, 1.0, person.Occurrences[0].Confidence)
	assert.Equal(t, "bbbb", person.Occurrences[1].SHA256)
	assert.Equal(t, 0.9, person.Occurrences[1].Confidence)
}

func TestDisplayNameTitleCasesMultiByteRunes(t *testing.T) {
	cases := map[string]string{
		"martin odegaard": "Martin Odegaard",
		"martin ødegaard": "Martin Ødegaard",
		"élodie durand":   "Élodie Durand",
	}
	for norm, want := range cases {
		assert.Equal(t, want, displayName(norm, norm+"@acme.example"), "input %q", norm)
	}
}

func TestCanonicalizeEntitiesTypeSeparation(t *testing.T) {
	// Same normalized name, different types: never merged.
	extractions := []extraction{
		{sha: "aaaa", entity: models.Entity{Name: "Sterling", Type: models.EntityPerson, Confidence: 0.9}},
		{sha: "bbbb", entity: models.Entity{Name: "Sterling", Type: models.EntityOrganization, Confidence: 0.9}},
	}
	assert.Len(t, canonicalizeEntities(extractions), 2)
}

func TestCanonicalizeEntitiesDeterministicOrder(t *testing.T) {
	extractions := []extraction{
		{sha: "cccc", entity: models.Entity{Name: "Zoe Park", Type: models.EntityPerson, Confidence: 0.9}},
		{sha: "aaaa", entity: models.Entity{Name: "Amy Chen", Type: models.EntityPerson, Confidence: 0.9}},
		{sha: "bbbb", entity: models.Entity{Name: "amy   chen", Type: models.EntityPerson, Confidence: 0.7}},
	}

	first := canonicalizeEntities(extractions)
	second := canonicalizeEntities(extractions)
	assert.Equal(t, first, second)

	require.Len(t, first, 2)
	assert.Equal(t, "Amy Chen", first[0].CanonicalName)
	require.Len(t, first[0].Occurrences, 2)
}
