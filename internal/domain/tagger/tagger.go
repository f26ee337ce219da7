// Package tagger finds every occurrence of a dictionary phrase in a stream of
// tokens. It walks many candidate matches at once against a phrase automaton,
// groups candidates that overlap in time into clusters, and hands each
// resolved cluster to an overlap policy before emitting tags.
//
// A Tagger is single-threaded and owns all of its state; run one per document.
// The automaton it walks is shared and read-only.
package tagger

import (
	"cmp"
	"fmt"
	"iter"
	"slices"

	"github.com/corey/tagger/internal/ports"
)

// candidate is one in-progress or completed match attempt anchored at start.
type candidate struct {
	start     int
	end       int // -1 until the path completes a phrase
	value     uint64
	cursor    Cursor
	advancing bool
	seedPos   int // position of the token that started the path
}

func (c *candidate) hasValue() bool { return c.end >= 0 }

// branchPoint is a live candidate as it was before the current position
// consumed a word. Alternate tokens at the same position fork from it.
type branchPoint struct {
	start   int
	end     int
	value   uint64
	cursor  Cursor
	seedPos int
}

// Tagger is the incremental matching engine.
type Tagger struct {
	fst  ports.PhraseAutomaton
	opts Options

	cands    []candidate
	retired  []candidate
	branches []branchPoint
	cluster  []Tag

	pos       int  // number of the current position; 0 before the first token
	extended  bool // a candidate started before pos consumed a word at pos
	lastStart int
	emitted   int
	finished  bool
}

// New returns a Tagger walking fst. Unknown option values are rejected here,
// before any token is processed.
func New(fst ports.PhraseAutomaton, opts Options) (*Tagger, error) {
	if fst == nil {
		return nil, ErrNoAutomaton
	}
	if _, ok := policyNames[opts.Overlaps]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, opts.Overlaps)
	}
	if _, ok := altModeNames[opts.AltTokens]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAltMode, opts.AltTokens)
	}
	if _, ok := gapModeNames[opts.Gaps]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGapMode, opts.Gaps)
	}
	return &Tagger{fst: fst, opts: opts, lastStart: -1}, nil
}

// Reset clears all state so the Tagger can process another document.
func (t *Tagger) Reset() {
	t.cands = t.cands[:0]
	t.retired = t.retired[:0]
	t.branches = t.branches[:0]
	t.cluster = t.cluster[:0]
	t.pos = 0
	t.extended = false
	t.lastStart = -1
	t.emitted = 0
	t.finished = false
}

// Emitted returns the number of tags emitted so far.
func (t *Tagger) Emitted() int { return t.emitted }

// Live returns the number of candidates currently held.
func (t *Tagger) Live() int { return len(t.cands) }

// Process feeds every token and then finishes the stream.
func (t *Tagger) Process(tokens iter.Seq[Token]) error {
	for tok := range tokens {
		if err := t.Add(tok); err != nil {
			return err
		}
	}
	return t.Finish()
}

// Add consumes the next token.
func (t *Tagger) Add(tok Token) error {
	if t.finished {
		return ErrFinished
	}
	if tok.End <= tok.Start {
		return fmt.Errorf("%w: [%d,%d)", ErrZeroLengthToken, tok.Start, tok.End)
	}
	if tok.Start < t.lastStart {
		return fmt.Errorf("%w: %d after %d", ErrOffsetRegression, tok.Start, t.lastStart)
	}

	posInc := tok.PosInc
	if posInc < 0 {
		return fmt.Errorf("%w: %d at offset %d", ErrNegativePositionIncrement, posInc, tok.Start)
	}
	if posInc == 0 && t.pos == 0 {
		// nothing to be an alternate of
		posInc = 1
	}

	switch {
	case posInc == 0:
		switch t.opts.AltTokens {
		case AltReject:
			return fmt.Errorf("%w: offset %d", ErrAlternateToken, tok.Start)
		case AltSkip:
			t.lastStart = tok.Start
			return nil
		}
		t.lastStart = tok.Start
		t.alternate(tok)
		return nil
	case posInc > 1:
		switch t.opts.Gaps {
		case GapReject:
			return fmt.Errorf("%w: increment %d at offset %d", ErrPositionGap, posInc, tok.Start)
		case GapBreak:
			t.closePosition()
			t.resolve(true)
		}
	}

	t.lastStart = tok.Start
	t.advance(tok)
	return nil
}

// Finish signals end of stream and resolves every remaining candidate.
func (t *Tagger) Finish() error {
	if t.finished {
		return ErrFinished
	}
	t.closePosition()
	t.resolve(true)
	t.finished = true
	return nil
}

// advance opens a new position with tok.
func (t *Tagger) advance(tok Token) {
	t.closePosition()
	t.pos++
	t.extended = false
	t.branches = t.branches[:0]
	t.retired = t.retired[:0]

	live := t.cands[:0]
	for _, c := range t.cands {
		if !c.advancing {
			live = append(live, c)
			continue
		}
		t.branches = append(t.branches, branchPoint{
			start:   c.start,
			end:     c.end,
			value:   c.value,
			cursor:  c.cursor,
			seedPos: c.seedPos,
		})
		if t.extend(&c, tok) {
			live = append(live, c)
			continue
		}
		c.advancing = false
		if c.hasValue() {
			live = append(live, c)
		}
	}
	t.cands = append(live, t.retired...)
	t.seed(tok)
}

// alternate tries tok as another continuation of every branch point of the
// current position.
func (t *Tagger) alternate(tok Token) {
	t.retired = t.retired[:0]
	for _, b := range t.branches {
		if t.full() {
			break
		}
		c := candidate{
			start:     b.start,
			end:       b.end,
			value:     b.value,
			cursor:    b.cursor,
			advancing: true,
			seedPos:   b.seedPos,
		}
		if t.extend(&c, tok) {
			t.cands = append(t.cands, c)
		}
	}
	t.cands = append(t.cands, t.retired...)
	t.seed(tok)
}

// extend steps c by tok's word. When the new state completes a phrase and c
// already held a shorter match, the shorter match is retired as a completed
// candidate of the same cluster.
func (t *Tagger) extend(c *candidate, tok Token) bool {
	if !c.cursor.Step(tok.Word) {
		return false
	}
	t.extended = true
	if c.cursor.HasPayload() {
		if c.hasValue() {
			t.retired = append(t.retired, candidate{
				start:   c.start,
				end:     c.end,
				value:   c.value,
				seedPos: c.seedPos,
			})
		}
		c.end = tok.End
		c.value = c.cursor.Payload()
	}
	return true
}

// seed starts a new candidate at tok when its word begins some phrase.
func (t *Tagger) seed(tok Token) {
	if !tok.Taggable || tok.Word == ports.UnknownWord || t.full() {
		return
	}
	cur := FromRoot(t.fst)
	if !cur.Step(tok.Word) {
		return
	}
	c := candidate{start: tok.Start, end: -1, cursor: cur, advancing: true, seedPos: t.pos}
	if cur.HasPayload() {
		c.end = tok.End
		c.value = cur.Payload()
	}
	t.cands = append(t.cands, c)
}

func (t *Tagger) full() bool {
	return t.opts.MaxCandidates > 0 && len(t.cands) >= t.opts.MaxCandidates
}

// closePosition resolves the candidates started before the current position
// when none of them consumed a word at it.
func (t *Tagger) closePosition() {
	if t.pos == 0 || t.extended {
		return
	}
	t.resolve(false)
}

// resolve detaches a cluster, reduces it and emits the kept tags. With all
// set every candidate belongs to the cluster; otherwise candidates started
// at the current position stay behind.
func (t *Tagger) resolve(all bool) {
	t.cluster = t.cluster[:0]
	rest := t.cands[:0]
	for _, c := range t.cands {
		if !all && c.seedPos >= t.pos {
			rest = append(rest, c)
			continue
		}
		if c.hasValue() {
			t.cluster = append(t.cluster, Tag{Start: c.start, End: c.end, Value: c.value})
		}
	}
	t.cands = rest
	if len(t.cluster) == 0 {
		return
	}

	slices.SortFunc(t.cluster, func(a, b Tag) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		if c := cmp.Compare(a.End, b.End); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	// alternate branches can reach the same match twice
	t.cluster = slices.Compact(t.cluster)

	kept := t.opts.Overlaps.Reduce(t.cluster)
	slices.SortStableFunc(kept, func(a, b Tag) int { return cmp.Compare(a.End, b.End) })
	for _, tag := range kept {
		if t.opts.TagsLimit > 0 && t.emitted >= t.opts.TagsLimit {
			return
		}
		t.emitted++
		if t.opts.Emit != nil {
			t.opts.Emit(tag)
		}
	}
}

// Collect runs a fresh Tagger over tokens and returns the emitted tags.
// opts.Emit is ignored.
func Collect(fst ports.PhraseAutomaton, opts Options, tokens []Token) ([]Tag, error) {
	var tags []Tag
	opts.Emit = func(tag Tag) { tags = append(tags, tag) }
	t, err := New(fst, opts)
	if err != nil {
		return nil, err
	}
	if err := t.Process(slices.Values(tokens)); err != nil {
		return tags, err
	}
	return tags, nil
}
