// Package ahocorasick provides multi-pattern string matching using an Aho-Corasick automaton.
// It wraps the petar-dambovaliev/aho-corasick library for O(n + m + z) matching.
//
// PhraseScanner is a brute-force reference for the incremental tagger: it
// finds every word-aligned occurrence of every dictionary phrase in one pass
// over the analyzed text, with no clustering and no reduction.
package ahocorasick

import (
	"strings"

	aho "github.com/petar-dambovaliev/aho-corasick"

	"github.com/corey/tagger/internal/ports"
)

// PhraseMatch is one phrase occurrence, in byte offsets of the original text.
type PhraseMatch struct {
	Phrase int // index into the phrases the scanner was built from
	Start  int
	End    int
}

// PhraseScanner matches phrases of analyzed words against token streams.
type PhraseScanner struct {
	automaton aho.AhoCorasick
	phrases   []string
}

// NewPhraseScanner builds a scanner. Each phrase is a sequence of analyzed
// words; words never contain spaces.
func NewPhraseScanner(phrases [][]string) *PhraseScanner {
	patterns := make([]string, len(phrases))
	for i, words := range phrases {
		// pad with the separator so matches start and end on word boundaries
		patterns[i] = " " + strings.Join(words, " ") + " "
	}
	builder := aho.NewAhoCorasickBuilder(aho.Opts{
		DFA: true,
	})
	return &PhraseScanner{
		automaton: builder.Build(patterns),
		phrases:   patterns,
	}
}

// Scan finds all phrase occurrences in tokens. Alternate tokens (PosInc 0)
// are not part of the linear text and are skipped; gaps are ignored.
// Matches come out in order of their end in the normalized text.
func (s *PhraseScanner) Scan(tokens []ports.Token) []PhraseMatch {
	var (
		b      strings.Builder
		starts = make(map[int]int) // normalized offset of a word -> token index
		ends   = make(map[int]int)
		linear []ports.Token
	)
	b.WriteByte(' ')
	for i, tok := range tokens {
		if tok.PosInc == 0 && i > 0 {
			continue
		}
		starts[b.Len()] = len(linear)
		b.WriteString(tok.Term)
		ends[b.Len()] = len(linear)
		b.WriteByte(' ')
		linear = append(linear, tok)
	}
	if len(linear) == 0 {
		return nil
	}

	iter := s.automaton.IterOverlappingByte([]byte(b.String()))
	var matches []PhraseMatch
	for next := iter.Next(); next != nil; next = iter.Next() {
		m := *next
		first, ok1 := starts[m.Start()+1]
		last, ok2 := ends[m.End()-1]
		if !ok1 || !ok2 {
			continue
		}
		matches = append(matches, PhraseMatch{
			Phrase: m.Pattern(),
			Start:  linear[first].Start,
			End:    linear[last].End,
		})
	}
	return matches
}

// PhraseCount returns the number of phrases in the automaton.
func (s *PhraseScanner) PhraseCount() int {
	return len(s.phrases)
}

// Phrase returns the words of the phrase at the given index joined by
// single spaces.
func (s *PhraseScanner) Phrase(idx int) string {
	if idx < 0 || idx >= len(s.phrases) {
		return ""
	}
	return strings.TrimSpace(s.phrases[idx])
}
