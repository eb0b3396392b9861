package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKeywordStream(t *testing.T) {
	// Nothing parseable yet.
	assert.Empty(t, ParseKeywordStream(`{"keyw`).Keywords)

	// Array opened, first element still streaming.
	snap := ParseKeywordStream(`{"keywords": ["acme alter`)
	assert.Equal(t, []string{"acme alter"}, snap.Keywords)
	assert.False(t, snap.Complete)

	// First element closed, second started.
	snap = ParseKeywordStream(`{"keywords": ["acme alternative", "acme pri`)
	assert.Equal(t, []string{"acme alternative", "acme pri"}, snap.Keywords)
	assert.False(t, snap.Complete)

	// Fully closed array.
	snap = ParseKeywordStream(`{"keywords": ["acme alternative", "acme pricing"]}`)
	assert.Equal(t, []string{"acme alternative", "acme pricing"}, snap.Keywords)
	assert.True(t, snap.Complete)
}

func TestParseKeywordStreamEscapes(t *testing.T) {
	snap := ParseKeywordStream(`{"keywords": ["a \"quoted\" term", "tab\there"]}`)
	assert.Equal(t, []string{`a "quoted" term`, "tab\there"}, snap.Keywords)
	assert.True(t, snap.Complete)
}

func TestParseKeywordStreamEmptyArray(t *testing.T) {
	snap := ParseKeywordStream(`{"keywords": []}`)
	assert.Empty(t, snap.Keywords)
	assert.True(t, snap.Complete)
}

func TestKeywordAccumulator(t *testing.T) {
	var acc KeywordAccumulator

	// A lone, possibly-partial element is not finalized.
	added := acc.Observe(Snapshot{Keywords: []string{"acme alter"}})
	assert.Empty(t, added)

	// The first element finalizes once a second one starts forming.
	added = acc.Observe(Snapshot{Keywords: []string{"acme alternative", "acme pri"}})
	assert.Equal(t, []string{"acme alternative"}, added)

	// Growth within the last element finalizes nothing.
	added = acc.Observe(Snapshot{Keywords: []string{"acme alternative", "acme pricing"}})
	assert.Empty(t, added)

	// The complete snapshot flushes the trailing element.
	added = acc.Observe(Snapshot{Keywords: []string{"acme alternative", "acme pricing"}, Complete: true})
	assert.Equal(t, []string{"acme pricing"}, added)

	assert.Equal(t, []string{"acme alternative", "acme pricing"}, acc.Keywords())
}

func TestKeywordAccumulatorMultiElementJump(t *testing.T) {
	var acc KeywordAccumulator

	// A single delta can reveal several completed elements at once.
	added := acc.Observe(Snapshot{Keywords: []string{"a", "b", "c", "d par"}})
	assert.Equal(t, []string{"a", "b", "c"}, added)

	added = acc.Observe(Snapshot{Keywords: []string{"a", "b", "c", "d part"}, Complete: true})
	assert.Equal(t, []string{"d part"}, added)
}

func TestKeywordAccumulatorEmptyStream(t *testing.T) {
	var acc KeywordAccumulator
	added := acc.Observe(Snapshot{Complete: true})
	assert.Empty(t, added)
	assert.Empty(t, acc.Keywords())
}
