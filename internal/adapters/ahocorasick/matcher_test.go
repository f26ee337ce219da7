package ahocorasick

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/tagger/internal/ports"
)

// =============================================================================
// Aho-Corasick phrase scanner: every word-aligned phrase occurrence in a single
// pass, reported in original text offsets.
// =============================================================================

// words splits text on spaces into lower-cased tokens with byte offsets.
func words(text string) []ports.Token {
	var toks []ports.Token
	for i := 0; i < len(text); {
		if text[i] == ' ' {
			i++
			continue
		}
		j := strings.IndexByte(text[i:], ' ')
		if j < 0 {
			j = len(text) - i
		}
		toks = append(toks, ports.Token{
			Term:     strings.ToLower(text[i : i+j]),
			Start:    i,
			End:      i + j,
			PosInc:   1,
			Taggable: true,
		})
		i += j
	}
	return toks
}

func matched(text string, s *PhraseScanner, ms []PhraseMatch) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = s.Phrase(m.Phrase) + "=" + text[m.Start:m.End]
	}
	return out
}

func TestPhraseScanner_NestedAndOverlapping(t *testing.T) {
	s := NewPhraseScanner([][]string{
		{"city", "of", "london"},
		{"london"},
		{"london", "business", "school"},
	})
	text := "City of  London Business School"
	got := matched(text, s, s.Scan(words(text)))

	assert.ElementsMatch(t, []string{
		"city of london=City of  London",
		"london=London",
		"london business school=London Business School",
	}, got)
}

func TestPhraseScanner_WordAligned(t *testing.T) {
	s := NewPhraseScanner([][]string{{"on"}, {"london"}})
	text := "Londoner on London"
	got := matched(text, s, s.Scan(words(text)))
	assert.Equal(t, []string{"on=on", "london=London"}, got)
}

func TestPhraseScanner_RepeatedOccurrences(t *testing.T) {
	s := NewPhraseScanner([][]string{{"new", "york"}})
	text := "new york and new york"
	ms := s.Scan(words(text))
	require.Len(t, ms, 2)
	assert.Equal(t, 0, ms[0].Start)
	assert.Equal(t, 13, ms[1].Start)
	assert.Equal(t, 21, ms[1].End)
}

func TestPhraseScanner_SkipsAlternates(t *testing.T) {
	s := NewPhraseScanner([][]string{{"big", "apple"}})
	toks := words("big apple")
	alt := ports.Token{Term: "large", Start: 0, End: 3, PosInc: 0, Taggable: true}
	toks = append([]ports.Token{toks[0], alt}, toks[1:]...)

	ms := s.Scan(toks)
	require.Len(t, ms, 1)
	assert.Equal(t, PhraseMatch{Phrase: 0, Start: 0, End: 9}, ms[0])
}

func TestPhraseScanner_Empty(t *testing.T) {
	s := NewPhraseScanner([][]string{{"london"}})
	assert.Empty(t, s.Scan(nil))
	assert.Empty(t, s.Scan(words("nothing to see")))
	assert.Equal(t, 1, s.PhraseCount())
	assert.Equal(t, "", s.Phrase(5))
}
