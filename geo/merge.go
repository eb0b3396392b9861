package geo

import "strings"

// Map-service links carry no citation value and are filtered out of
// every merge, regardless of what the capability returned.
var deniedURLFragments = []string{
	"google.com/maps",
	"maps.google.",
	"maps.app.goo.gl",
	"goo.gl/maps",
	"bing.com/maps",
	"waze.com",
}

// normalizeName folds a company name to its merge key: lowercased,
// trimmed, inner whitespace collapsed.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// deniedURL reports whether the URL belongs to a denylisted domain
// class.
func deniedURL(url string) bool {
	lower := strings.ToLower(url)
	for _, frag := range deniedURLFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// Merge folds the observed companies into the graph. Two observations
// of the same normalized name sum their citation counts and union
// their URLs, keeping the order of first sight. Denylisted URLs are
// dropped here, not left to the capability. An observation without a
// count still counts as one citation.
func (g *CitationGraph) Merge(companies []Company) {
	for _, c := range companies {
		key := normalizeName(c.Name)
		if key == "" {
			continue
		}

		times := c.TimesCited
		if times < 1 {
			times = 1
		}

		urls := make([]string, 0, len(c.RelevantURLs))
		for _, u := range c.RelevantURLs {
			if u != "" && !deniedURL(u) {
				urls = append(urls, u)
			}
		}

		idx := -1
		for i := range g.Companies {
			if normalizeName(g.Companies[i].Name) == key {
				idx = i
				break
			}
		}
		if idx < 0 {
			g.Companies = append(g.Companies, Company{
				Name:         c.Name,
				RelevantURLs: urls,
				TimesCited:   times,
			})
			continue
		}

		existing := &g.Companies[idx]
		existing.TimesCited += times
		for _, u := range urls {
			seen := false
			for _, have := range existing.RelevantURLs {
				if have == u {
					seen = true
					break
				}
			}
			if !seen {
				existing.RelevantURLs = append(existing.RelevantURLs, u)
			}
		}
	}
}

// Find returns the company whose name normalizes to the same key, or
// nil.
func (g *CitationGraph) Find(name string) *Company {
	key := normalizeName(name)
	for i := range g.Companies {
		if normalizeName(g.Companies[i].Name) == key {
			return &g.Companies[i]
		}
	}
	return nil
}

// TotalCitations sums the citation counts across all companies.
func (g *CitationGraph) TotalCitations() int {
	total := 0
	for _, c := range g.Companies {
		total += c.TimesCited
	}
	return total
}

// dedupeKeywords unions two keyword lists, existing first, new
// appended, duplicates by normalized text dropped.
func dedupeKeywords(existing, added []string) []string {
	seen := make(map[string]bool, len(existing)+len(added))
	out := make([]string, 0, len(existing)+len(added))
	for _, list := range [][]string{existing, added} {
		for _, kw := range list {
			key := normalizeName(kw)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, kw)
		}
	}
	return out
}
