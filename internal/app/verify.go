package app

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/corey/tagger/internal/adapters/ahocorasick"
	"github.com/corey/tagger/internal/domain/tagger"
)

// Span is one phrase occurrence found by either side of a verification.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Value uint64 `json:"value"`
	Text  string `json:"text"`
}

// VerifyReport compares the tagger's ALL output with a brute-force scan.
type VerifyReport struct {
	Tokens  int    `json:"tokens"`
	Tagged  int    `json:"tagged"`
	Scanned int    `json:"scanned"`
	Missing []Span `json:"missing"` // scanned but not tagged
	Extra   []Span `json:"extra"`   // tagged but not scanned
}

// OK reports whether both sides found exactly the same occurrences.
func (r *VerifyReport) OK() bool {
	return len(r.Missing) == 0 && len(r.Extra) == 0
}

// scanner returns the brute-force phrase scanner of l, building it on first use.
func (l *loaded) scanner() (*ahocorasick.PhraseScanner, error) {
	l.scanOnce.Do(func() {
		phrases, err := l.dict.Phrases()
		if err != nil {
			l.scanErr = fmt.Errorf("list phrases: %w", err)
			return
		}
		l.scan = ahocorasick.NewPhraseScanner(phrases)
	})
	return l.scan, l.scanErr
}

// Verify tags text with every nested and overlapping match kept and checks
// the result against an Aho-Corasick scan of the same tokens. Gaps are
// ignored and alternates skipped on both sides so they see one linear text.
func (s *Service) Verify(ctx context.Context, text string) (*VerifyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur := s.cur
	if cur == nil {
		return nil, ErrNoDictionary
	}
	scan, err := cur.scanner()
	if err != nil {
		return nil, err
	}

	tokens := s.analyzer.Analyze(text)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	feed := make([]tagger.Token, len(tokens))
	taggable := make(map[int]bool, len(tokens))
	for i, tok := range tokens {
		feed[i] = wordToken(cur.dict, tok)
		if tok.PosInc != 0 || i == 0 {
			taggable[tok.Start] = tok.Taggable
		}
	}
	tags, err := tagger.Collect(cur.dict, tagger.Options{
		Overlaps:  tagger.All,
		AltTokens: tagger.AltSkip,
		Gaps:      tagger.GapIgnore,
	}, feed)
	if err != nil {
		return nil, err
	}

	tagged := make(map[Span]bool, len(tags))
	for _, t := range tags {
		tagged[Span{Start: t.Start, End: t.End, Value: t.Value, Text: text[t.Start:t.End]}] = true
	}
	scanned := make(map[Span]bool)
	for _, m := range scan.Scan(tokens) {
		if !taggable[m.Start] {
			continue
		}
		scanned[Span{Start: m.Start, End: m.End, Value: uint64(m.Phrase), Text: text[m.Start:m.End]}] = true
	}

	r := &VerifyReport{Tokens: len(tokens), Tagged: len(tagged), Scanned: len(scanned)}
	for sp := range scanned {
		if !tagged[sp] {
			r.Missing = append(r.Missing, sp)
		}
	}
	for sp := range tagged {
		if !scanned[sp] {
			r.Extra = append(r.Extra, sp)
		}
	}
	sortSpans(r.Missing)
	sortSpans(r.Extra)

	if !r.OK() {
		s.log.Warn("verification mismatch",
			slog.Int("missing", len(r.Missing)),
			slog.Int("extra", len(r.Extra)))
	}
	return r, nil
}

func sortSpans(spans []Span) {
	slices.SortFunc(spans, func(a, b Span) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		if c := cmp.Compare(a.End, b.End); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
}
