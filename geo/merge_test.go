package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeSumsAndUnions(t *testing.T) {
	var g CitationGraph
	g.Merge([]Company{
		{Name: "Acme Corp", RelevantURLs: []string{"https://acme.example"}, TimesCited: 2},
	})
	g.Merge([]Company{
		{Name: "acme  corp", RelevantURLs: []string{"https://acme.example", "https://acme.example/about"}, TimesCited: 3},
	})

	assert.Len(t, g.Companies, 1)
	c := g.Companies[0]
	// Display form is whatever was observed first.
	assert.Equal(t, "Acme Corp", c.Name)
	assert.Equal(t, 5, c.TimesCited)
	assert.Equal(t, []string{"https://acme.example", "https://acme.example/about"}, c.RelevantURLs)
}

func TestMergeIsCommutative(t *testing.T) {
	a := []Company{
		{Name: "Acme", RelevantURLs: []string{"https://acme.example"}, TimesCited: 1},
		{Name: "Globex", RelevantURLs: []string{"https://globex.example"}, TimesCited: 2},
	}
	b := []Company{
		{Name: "globex", RelevantURLs: []string{"https://globex.example/alt"}, TimesCited: 1},
		{Name: "Initech", TimesCited: 4},
	}

	var ab, ba CitationGraph
	ab.Merge(a)
	ab.Merge(b)
	ba.Merge(b)
	ba.Merge(a)

	assert.Equal(t, ab.TotalCitations(), ba.TotalCitations())
	for _, c := range ab.Companies {
		other := ba.Find(c.Name)
		assert.NotNil(t, other, "missing %s", c.Name)
		assert.Equal(t, c.TimesCited, other.TimesCited)
		assert.ElementsMatch(t, c.RelevantURLs, other.RelevantURLs)
	}
	assert.Len(t, ba.Companies, len(ab.Companies))
}

func TestMergeFiltersMapURLs(t *testing.T) {
	var g CitationGraph
	g.Merge([]Company{
		{
			Name: "Acme",
			RelevantURLs: []string{
				"https://www.google.com/maps/place/acme",
				"https://maps.app.goo.gl/abc123",
				"https://acme.example",
				"https://waze.com/ul/acme",
			},
			TimesCited: 1,
		},
	})

	assert.Equal(t, []string{"https://acme.example"}, g.Companies[0].RelevantURLs)
}

func TestMergeDefaultsZeroCountToOne(t *testing.T) {
	var g CitationGraph
	g.Merge([]Company{{Name: "Acme"}})
	assert.Equal(t, 1, g.Companies[0].TimesCited)
}

func TestMergeSkipsUnnamedCompanies(t *testing.T) {
	var g CitationGraph
	g.Merge([]Company{{Name: "   "}, {Name: "Acme", TimesCited: 1}})
	assert.Len(t, g.Companies, 1)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "acme corp", normalizeName("  Acme   CORP "))
	assert.Equal(t, "", normalizeName("   "))
}

func TestDedupeKeywords(t *testing.T) {
	merged := dedupeKeywords(
		[]string{"acme alternative", "acme pricing"},
		[]string{"Acme Pricing", "acme reviews", ""},
	)
	assert.Equal(t, []string{"acme alternative", "acme pricing", "acme reviews"}, merged)
}
