// Package prompts holds the language-specific prompt packs used by the
// analysis pipeline. Each supported language ships a full PromptSet;
// unknown language tags fall back to American English.
package prompts

import (
	"fmt"
	"strings"
)

// DefaultLanguage is used whenever a session does not carry an explicit
// language tag.
const DefaultLanguage = "en_US"

// PromptSet bundles the system prompts for every pipeline stage in one
// language.
type PromptSet struct {
	// Language is the tag this set was registered under, e.g. "en_US".
	Language string

	// Research directs the model to compile a business profile for the
	// target.
	Research string

	// KeywordOrganization asks for a categorized keyword list built
	// from the research output. Render with FormatKeywordOrganization.
	KeywordOrganization string

	// RefineKeywords asks the model to choose the strongest keywords
	// from a candidate list. Render with FormatRefineKeywords.
	RefineKeywords string

	// CitationStructuring asks the model to organize raw search results
	// into a brand dominance report.
	CitationStructuring string

	// TargetSummary asks for a short summary of the gathered research.
	TargetSummary string
}

var registry = map[string]PromptSet{}

func register(set PromptSet) {
	registry[set.Language] = set
}

// ForLanguage returns the PromptSet registered for the given tag, or
// the DefaultLanguage set when the tag is unknown or empty.
func ForLanguage(tag string) PromptSet {
	if set, ok := registry[tag]; ok {
		return set
	}
	return registry[DefaultLanguage]
}

// Supported reports whether a PromptSet exists for the given tag.
func Supported(tag string) bool {
	_, ok := registry[tag]
	return ok
}

// Languages returns the registered language tags.
func Languages() []string {
	tags := make([]string, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	return tags
}

// FormatKeywordOrganization interpolates the research findings into the
// keyword organization prompt.
func (p PromptSet) FormatKeywordOrganization(companyInfo string) string {
	return strings.ReplaceAll(p.KeywordOrganization, "{company_info}", companyInfo)
}

// FormatRefineKeywords interpolates the candidate keywords and the
// target summary into the refinement prompt.
func (p PromptSet) FormatRefineKeywords(keywords []string, targetSummary string) string {
	var list strings.Builder
	for _, kw := range keywords {
		fmt.Fprintf(&list, "Keyword found: %s\n", kw)
	}
	out := strings.ReplaceAll(p.RefineKeywords, "{keywords}", list.String())
	return strings.ReplaceAll(out, "{target_resume}", targetSummary)
}
