package research

import "strings"

// ParseKeywordStream extracts the keyword list visible so far in an
// accumulating model output buffer. The model is asked for a JSON
// object of the shape {"keywords": ["a", "b", ...]}; during streaming
// the buffer holds an ever-growing prefix of that object. The parser
// scans for the first array and collects its string elements, including
// a trailing element whose closing quote has not arrived yet.
// Complete is true once the array's closing bracket has been seen.
func ParseKeywordStream(buf string) Snapshot {
	start := strings.IndexByte(buf, '[')
	if start < 0 {
		return Snapshot{}
	}

	var (
		keywords []string
		current  strings.Builder
		inString bool
		escaped  bool
	)

	for i := start + 1; i < len(buf); i++ {
		c := buf[i]
		if inString {
			switch {
			case escaped:
				// Only the escapes a keyword plausibly contains.
				switch c {
				case 'n':
					current.WriteByte('\n')
				case 't':
					current.WriteByte('\t')
				default:
					current.WriteByte(c)
				}
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				keywords = append(keywords, current.String())
				current.Reset()
			default:
				current.WriteByte(c)
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case ']':
			return Snapshot{Keywords: keywords, Complete: true}
		}
	}

	// A string still open at end of buffer is a partial last element.
	if inString {
		keywords = append(keywords, current.String())
	}
	return Snapshot{Keywords: keywords}
}

// KeywordAccumulator turns a sequence of growing keyword snapshots into
// the finalized keyword list. An element counts as finalized only once
// a further element has started forming, so a still-streaming partial
// string is never captured; the final snapshot's trailing element is
// finalized when the stream reports the list complete.
type KeywordAccumulator struct {
	lastSeenLength int
	finalized      []string
}

// Observe feeds one snapshot and returns the keywords newly finalized
// by it, in emission order.
func (a *KeywordAccumulator) Observe(snap Snapshot) []string {
	var added []string

	n := len(snap.Keywords)
	if n > a.lastSeenLength {
		// Every element before the newest one is no longer growing.
		added = append(added, snap.Keywords[len(a.finalized):n-1]...)
		a.lastSeenLength = n
	}
	if snap.Complete && n > len(a.finalized)+len(added) {
		added = append(added, snap.Keywords[len(a.finalized)+len(added):]...)
	}

	a.finalized = append(a.finalized, added...)
	return added
}

// Keywords returns every keyword finalized so far.
func (a *KeywordAccumulator) Keywords() []string {
	out := make([]string, len(a.finalized))
	copy(out, a.finalized)
	return out
}
