package tagger

import (
	"strings"
	"testing"

	"github.com/corey/tagger/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Tag advancer: candidates walk the phrase automaton token by token, clusters
// resolve when no candidate of an earlier position can extend, and each
// cluster is reduced by the overlap policy before tags are emitted.
// =============================================================================

// trie is a minimal in-memory phrase automaton keyed by word ids.
type trie struct {
	next    []map[ports.WordID]int
	payload map[int]uint64
	words   map[string]ports.WordID
}

func newTrie(phrases map[string]uint64) *trie {
	tr := &trie{
		next:    []map[ports.WordID]int{{}},
		payload: map[int]uint64{},
		words:   map[string]ports.WordID{},
	}
	for phrase, v := range phrases {
		tr.add(phrase, v)
	}
	return tr
}

func (tr *trie) add(phrase string, value uint64) {
	node := 0
	for _, w := range strings.Fields(phrase) {
		id, ok := tr.words[w]
		if !ok {
			id = ports.WordID(len(tr.words))
			tr.words[w] = id
		}
		n, ok := tr.next[node][id]
		if !ok {
			n = len(tr.next)
			tr.next = append(tr.next, map[ports.WordID]int{})
			tr.next[node][id] = n
		}
		node = n
	}
	tr.payload[node] = value
}

func (tr *trie) Start() ports.PhraseState { return ports.PhraseState{} }

func (tr *trie) Step(s ports.PhraseState, w ports.WordID) (ports.PhraseState, bool) {
	n, ok := tr.next[s.Node][w]
	return ports.PhraseState{Node: n}, ok
}

func (tr *trie) Payload(s ports.PhraseState) (uint64, bool) {
	v, ok := tr.payload[s.Node]
	return v, ok
}

func (tr *trie) id(w string) ports.WordID {
	if id, ok := tr.words[strings.ToLower(w)]; ok {
		return id
	}
	return ports.UnknownWord
}

// tokenize splits text on whitespace into contiguous taggable tokens.
func tokenize(tr *trie, text string) []Token {
	var out []Token
	off := 0
	for _, f := range strings.Fields(text) {
		start := off + strings.Index(text[off:], f)
		end := start + len(f)
		off = end
		out = append(out, Token{Word: tr.id(f), Start: start, End: end, PosInc: 1, Taggable: true})
	}
	return out
}

// spans renders tags as the text they cover.
func spans(text string, tags []Tag) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, text[tag.Start:tag.End])
	}
	return out
}

func run(t *testing.T, tr *trie, opts Options, text string) []Tag {
	t.Helper()
	tags, err := Collect(tr, opts, tokenize(tr, text))
	require.NoError(t, err)
	return tags
}

var london = map[string]uint64{
	"city of london":         1,
	"london":                 2,
	"london business school": 3,
}

func TestTagger_AllKeepsNestedMatches(t *testing.T) {
	tr := newTrie(london)
	text := "City of London Business School"

	tags := run(t, tr, Options{Overlaps: All}, text)
	assert.Equal(t, []string{"City of London", "London", "London Business School"}, spans(text, tags))
	assert.Equal(t, []uint64{1, 2, 3}, []uint64{tags[0].Value, tags[1].Value, tags[2].Value})
}

func TestTagger_NoSubDropsNested(t *testing.T) {
	tr := newTrie(london)
	text := "City of London Business School"

	tags := run(t, tr, Options{Overlaps: NoSub}, text)
	assert.Equal(t, []string{"City of London", "London Business School"}, spans(text, tags))
}

func TestTagger_LongestDominantRight(t *testing.T) {
	tr := newTrie(map[string]uint64{
		"san francisco":               1,
		"san francisco state college": 2,
		"college of california":       3,
	})
	text := "He enrolled in San Francisco State College of California"

	tags := run(t, tr, Options{Overlaps: LongestDominantRight}, text)
	assert.Equal(t, []string{"San Francisco State College"}, spans(text, tags))
}

func TestTagger_EmptyAndUnknownInput(t *testing.T) {
	tr := newTrie(london)
	for _, p := range []Policy{All, NoSub, LongestDominantRight} {
		assert.Empty(t, run(t, tr, Options{Overlaps: p}, ""), p.String())
		assert.Empty(t, run(t, tr, Options{Overlaps: p}, "nothing to see here"), p.String())
	}
}

func TestTagger_LongestMatchWithinCandidate(t *testing.T) {
	tr := newTrie(map[string]uint64{"new york": 1, "new york city": 2})
	text := "new york city"

	tags := run(t, tr, Options{Overlaps: NoSub}, text)
	assert.Equal(t, []string{"new york city"}, spans(text, tags))
}

func TestTagger_FailedExtensionKeepsEarlierHit(t *testing.T) {
	tr := newTrie(map[string]uint64{"new york": 1, "new york city hall": 2})
	text := "new york city council"

	tags := run(t, tr, Options{Overlaps: All}, text)
	assert.Equal(t, []string{"new york"}, spans(text, tags))
}

func TestTagger_SeparateClusters(t *testing.T) {
	tr := newTrie(map[string]uint64{"london": 1, "paris": 2})
	text := "london and paris and london"

	var got []Tag
	tg, err := New(tr, Options{Overlaps: NoSub, Emit: func(tag Tag) { got = append(got, tag) }})
	require.NoError(t, err)

	toks := tokenize(tr, text)
	require.NoError(t, tg.Add(toks[0]))
	require.NoError(t, tg.Add(toks[1]))
	// "and" could still have an alternate extending "london"
	assert.Empty(t, got)
	require.NoError(t, tg.Add(toks[2]))
	assert.Len(t, got, 1)
	for _, tok := range toks[3:] {
		require.NoError(t, tg.Add(tok))
	}
	require.NoError(t, tg.Finish())
	assert.Equal(t, []string{"london", "paris", "london"}, spans(text, got))
}

func TestTagger_NonTaggableDoesNotSeed(t *testing.T) {
	tr := newTrie(map[string]uint64{"of mice": 1, "war of the worlds": 2})

	text := "of mice"
	toks := tokenize(tr, text)
	toks[0].Taggable = false
	tags, err := Collect(tr, Options{}, toks)
	require.NoError(t, err)
	assert.Empty(t, tags)

	text = "war of the worlds"
	toks = tokenize(tr, text)
	toks[1].Taggable = false
	toks[2].Taggable = false
	tags, err = Collect(tr, Options{}, toks)
	require.NoError(t, err)
	assert.Equal(t, []string{"war of the worlds"}, spans(text, tags))
}

func TestTagger_EmitOrderNonDecreasingEnd(t *testing.T) {
	tr := newTrie(map[string]uint64{
		"a b c d": 1, "b c": 2, "c": 3, "c d e": 4, "d e f": 5, "e": 6, "a": 7,
	})
	text := "a b c d e f a b c d e f"

	for _, p := range []Policy{All, NoSub, LongestDominantRight} {
		tags := run(t, tr, Options{Overlaps: p}, text)
		require.NotEmpty(t, tags, p.String())
		for i := 1; i < len(tags); i++ {
			assert.LessOrEqual(t, tags[i-1].End, tags[i].End, p.String())
		}
	}
}

func TestTagger_LongestDominantRightNeverOverlaps(t *testing.T) {
	tr := newTrie(map[string]uint64{
		"a b c d": 1, "b c": 2, "c": 3, "c d e": 4, "d e f": 5, "e": 6, "a": 7,
	})
	text := "a b c d e f a b c d e f"

	tags := run(t, tr, Options{Overlaps: LongestDominantRight}, text)
	for i := range tags {
		for j := i + 1; j < len(tags); j++ {
			assert.False(t, tags[i].overlaps(tags[j]), "%v overlaps %v", tags[i], tags[j])
		}
	}
}

func TestTagger_NoSubNeverKeepsProperSubset(t *testing.T) {
	tr := newTrie(map[string]uint64{
		"a b c d": 1, "b c": 2, "c": 3, "c d e": 4, "d e f": 5, "e": 6, "a": 7,
	})
	text := "a b c d e f"

	tags := run(t, tr, Options{Overlaps: NoSub}, text)
	for i, a := range tags {
		for j, b := range tags {
			if i != j && a.span() != b.span() {
				assert.False(t, a.contains(b), "%v contains %v", a, b)
			}
		}
	}
	assert.Equal(t, []string{"a b c d", "c d e", "d e f"}, spans(text, tags))
}

// =============================================================================
// Alternate tokens (position increment 0)
// =============================================================================

func altTokens(tr *trie) []Token {
	// "new york city" with "amsterdam" stacked on "york"
	return []Token{
		{Word: tr.id("new"), Start: 0, End: 3, PosInc: 1, Taggable: true},
		{Word: tr.id("york"), Start: 4, End: 8, PosInc: 1, Taggable: true},
		{Word: tr.id("amsterdam"), Start: 4, End: 8, PosInc: 0, Taggable: true},
		{Word: tr.id("city"), Start: 9, End: 13, PosInc: 1, Taggable: true},
	}
}

func TestTagger_AlternateBranches(t *testing.T) {
	tr := newTrie(map[string]uint64{"new york city": 1, "new amsterdam": 2, "amsterdam city": 3})

	tags, err := Collect(tr, Options{Overlaps: All}, altTokens(tr))
	require.NoError(t, err)
	assert.Equal(t, []Tag{
		{Start: 0, End: 8, Value: 2},
		{Start: 0, End: 13, Value: 1},
		{Start: 4, End: 13, Value: 3},
	}, tags)
}

func TestTagger_AlternateSkip(t *testing.T) {
	tr := newTrie(map[string]uint64{"new york city": 1, "new amsterdam": 2})

	tags, err := Collect(tr, Options{Overlaps: All, AltTokens: AltSkip}, altTokens(tr))
	require.NoError(t, err)
	assert.Equal(t, []Tag{{Start: 0, End: 13, Value: 1}}, tags)
}

func TestTagger_AlternateReject(t *testing.T) {
	tr := newTrie(map[string]uint64{"new york city": 1})

	_, err := Collect(tr, Options{AltTokens: AltReject}, altTokens(tr))
	assert.ErrorIs(t, err, ErrAlternateToken)
}

func TestTagger_AlternateDuplicatePathsEmitOnce(t *testing.T) {
	tr := newTrie(map[string]uint64{"big city": 1})
	toks := []Token{
		{Word: tr.id("big"), Start: 0, End: 3, PosInc: 1, Taggable: true},
		{Word: tr.id("city"), Start: 4, End: 8, PosInc: 1, Taggable: true},
		{Word: tr.id("city"), Start: 4, End: 8, PosInc: 0, Taggable: true},
	}

	tags, err := Collect(tr, Options{Overlaps: All}, toks)
	require.NoError(t, err)
	assert.Equal(t, []Tag{{Start: 0, End: 8, Value: 1}}, tags)
}

func TestTagger_FirstTokenAlternateTreatedAsNext(t *testing.T) {
	tr := newTrie(map[string]uint64{"london": 1})
	toks := []Token{{Word: tr.id("london"), Start: 0, End: 6, PosInc: 0, Taggable: true}}

	tags, err := Collect(tr, Options{AltTokens: AltReject}, toks)
	require.NoError(t, err)
	assert.Len(t, tags, 1)
}

// =============================================================================
// Position gaps (position increment > 1)
// =============================================================================

func gapTokens(tr *trie) []Token {
	// "bank of america" with "of" removed by the analyzer
	return []Token{
		{Word: tr.id("bank"), Start: 0, End: 4, PosInc: 1, Taggable: true},
		{Word: tr.id("america"), Start: 8, End: 15, PosInc: 2, Taggable: true},
	}
}

func TestTagger_Gaps(t *testing.T) {
	tr := newTrie(map[string]uint64{"bank america": 1, "america": 2})

	tags, err := Collect(tr, Options{Overlaps: All, Gaps: GapIgnore}, gapTokens(tr))
	require.NoError(t, err)
	assert.Equal(t, []Tag{{Start: 0, End: 15, Value: 1}, {Start: 8, End: 15, Value: 2}}, tags)

	tags, err = Collect(tr, Options{Overlaps: All, Gaps: GapBreak}, gapTokens(tr))
	require.NoError(t, err)
	assert.Equal(t, []Tag{{Start: 8, End: 15, Value: 2}}, tags)

	_, err = Collect(tr, Options{Gaps: GapReject}, gapTokens(tr))
	assert.ErrorIs(t, err, ErrPositionGap)
}

func TestTagger_GapBreakResolvesPendingHits(t *testing.T) {
	tr := newTrie(map[string]uint64{"bank": 1, "bank america": 2})

	tags, err := Collect(tr, Options{Overlaps: All, Gaps: GapBreak}, gapTokens(tr))
	require.NoError(t, err)
	assert.Equal(t, []Tag{{Start: 0, End: 4, Value: 1}}, tags)
}

// =============================================================================
// Limits, errors and lifecycle
// =============================================================================

func TestTagger_TagsLimit(t *testing.T) {
	tr := newTrie(map[string]uint64{"london": 1})
	text := "london london london london london"

	var got []Tag
	tg, err := New(tr, Options{TagsLimit: 2, Emit: func(tag Tag) { got = append(got, tag) }})
	require.NoError(t, err)
	for _, tok := range tokenize(tr, text) {
		require.NoError(t, tg.Add(tok))
	}
	require.NoError(t, tg.Finish())

	assert.Len(t, got, 2)
	assert.Equal(t, 2, tg.Emitted())
	assert.Equal(t, 0, tg.Live())
}

func TestTagger_MaxCandidates(t *testing.T) {
	tr := newTrie(map[string]uint64{"a a a a a a": 1})
	text := "a a a a a a a a"

	tg, err := New(tr, Options{MaxCandidates: 3})
	require.NoError(t, err)
	for _, tok := range tokenize(tr, text) {
		require.NoError(t, tg.Add(tok))
		assert.LessOrEqual(t, tg.Live(), 3)
	}
	require.NoError(t, tg.Finish())
}

func TestTagger_InputErrors(t *testing.T) {
	tr := newTrie(london)
	w := tr.id("london")

	tests := []struct {
		name string
		toks []Token
		want error
	}{
		{"offset regression", []Token{
			{Word: w, Start: 10, End: 16, PosInc: 1, Taggable: true},
			{Word: w, Start: 2, End: 8, PosInc: 1, Taggable: true},
		}, ErrOffsetRegression},
		{"zero length", []Token{{Word: w, Start: 3, End: 3, PosInc: 1}}, ErrZeroLengthToken},
		{"negative increment", []Token{{Word: w, Start: 0, End: 6, PosInc: -1}}, ErrNegativePositionIncrement},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Collect(tr, Options{}, tc.toks)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestTagger_SameStartAllowed(t *testing.T) {
	tr := newTrie(map[string]uint64{"london": 1})
	toks := []Token{
		{Word: tr.id("london"), Start: 0, End: 6, PosInc: 1, Taggable: true},
		{Word: tr.id("london"), Start: 0, End: 6, PosInc: 1, Taggable: true},
	}
	_, err := Collect(tr, Options{}, toks)
	assert.NoError(t, err)
}

func TestNew_RejectsBadOptions(t *testing.T) {
	tr := newTrie(london)

	_, err := New(nil, Options{})
	assert.ErrorIs(t, err, ErrNoAutomaton)
	_, err = New(tr, Options{Overlaps: Policy(9)})
	assert.ErrorIs(t, err, ErrUnknownPolicy)
	_, err = New(tr, Options{AltTokens: AltMode(9)})
	assert.ErrorIs(t, err, ErrUnknownAltMode)
	_, err = New(tr, Options{Gaps: GapMode(9)})
	assert.ErrorIs(t, err, ErrUnknownGapMode)
}

func TestTagger_FinishAndReset(t *testing.T) {
	tr := newTrie(london)
	text := "London"

	var got []Tag
	tg, err := New(tr, Options{Emit: func(tag Tag) { got = append(got, tag) }})
	require.NoError(t, err)

	toks := tokenize(tr, text)
	require.NoError(t, tg.Add(toks[0]))
	require.NoError(t, tg.Finish())
	assert.ErrorIs(t, tg.Add(toks[0]), ErrFinished)
	assert.ErrorIs(t, tg.Finish(), ErrFinished)

	tg.Reset()
	require.NoError(t, tg.Add(toks[0]))
	require.NoError(t, tg.Finish())
	assert.Len(t, got, 2)
	assert.Equal(t, 1, tg.Emitted())
}

func TestCursor_StepFailureLeavesState(t *testing.T) {
	tr := newTrie(map[string]uint64{"new york": 1})
	c := FromRoot(tr)

	require.True(t, c.Step(tr.id("new")))
	before := c.State()
	assert.False(t, c.Step(tr.id("paris")))
	assert.False(t, c.Step(ports.UnknownWord))
	assert.Equal(t, before, c.State())
	assert.False(t, c.HasPayload())

	fork := c
	require.True(t, fork.Step(tr.id("york")))
	assert.True(t, fork.HasPayload())
	assert.Equal(t, uint64(1), fork.Payload())
	assert.False(t, c.HasPayload())
}
