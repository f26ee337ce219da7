// Package offsets moves tag spans found in the text of a markup document so
// that wrapping the span in a new element keeps the markup balanced.
//
// A document is pre-parsed once into a table of elements and a table of the
// offsets at which the innermost enclosing element changes. Correcting a span
// pulls its start left over whitespace and opening tags, and its end right
// over whitespace and closing tags, until both sides share one enclosing
// element. Spans that would need to swallow text to balance are rejected.
//
// All offsets are byte offsets into the document.
package offsets

import (
	"errors"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrMalformedXML is returned when a document is not well-formed XML.
var ErrMalformedXML = errors.New("malformed xml")

// element records where one element's tags sit in the document.
type element struct {
	parent     int
	openStart  int
	openEnd    int
	closeStart int
	closeEnd   int
}

// zone is a half-open byte range covered by a non-taggable element,
// tags included.
type zone struct {
	start int
	end   int
}

// Corrector answers span corrections for one document. It is read-only after
// construction and safe for concurrent use.
type Corrector struct {
	doc   string
	elems []element // elems[0] is the implicit document root

	// offsets[i] is where ids[i] becomes the innermost enclosing element.
	// offsets is non-decreasing by construction.
	offsets []int
	ids     []int

	zones []zone

	// markup holds the byte range of every tag, comment and directive in
	// document order. Ranges never overlap.
	markup []zone
}

func newCorrector(doc string) *Corrector {
	n := len(doc)
	c := &Corrector{
		doc:   doc,
		elems: make([]element, 1, max(n/20, 4)),
	}
	c.elems[0] = element{parent: -1, openStart: -1, openEnd: 0, closeStart: n, closeEnd: n + 1}
	c.transition(-1, 0)
	return c
}

func (c *Corrector) transition(off, id int) {
	c.offsets = append(c.offsets, off)
	c.ids = append(c.ids, id)
}

// lookup returns the innermost element enclosing off. When several
// transitions share an offset the last one wins.
func (c *Corrector) lookup(off int) int {
	i := sort.Search(len(c.offsets), func(i int) bool { return c.offsets[i] > off })
	return c.ids[i-1]
}

// encloses reports whether off lies inside element id. An element closed
// implicitly (zero-width close) also encloses the offset where it closed.
func (c *Corrector) encloses(id, off int) bool {
	e := c.elems[id]
	if off < e.openStart {
		return false
	}
	return off < e.closeEnd || (e.closeStart == e.closeEnd && off == e.closeEnd)
}

func (c *Corrector) hasNonSpace(from, to int) bool {
	if from < 0 {
		from = 0
	}
	for i := from; i < to; {
		r, size := utf8.DecodeRuneInString(c.doc[i:])
		if !unicode.IsSpace(r) {
			return true
		}
		i += size
	}
	return false
}

// correctEnd pulls an end offset that lands just after a closing tag back to
// the start of that tag. Analyzers that blank markup can report such ends.
func (c *Corrector) correctEnd(start, end int) int {
	if c.doc[end-1] == '>' {
		if i := strings.LastIndexByte(c.doc[:end-1], '<'); i > start {
			return i
		}
	}
	return end
}

// inMarkup reports whether off falls strictly inside a tag, comment or
// directive.
func (c *Corrector) inMarkup(off int) bool {
	i := sort.Search(len(c.markup), func(i int) bool { return c.markup[i].end > off })
	return i < len(c.markup) && c.markup[i].start < off
}

func (c *Corrector) inZone(start, end int) bool {
	for _, z := range c.zones {
		if z.start < end && start < z.end {
			return true
		}
	}
	return false
}

// CorrectPair returns the balanced form of the span [start, end). ok is false
// when the span cannot be balanced without taking in non-whitespace text, or
// when it overlaps a non-taggable element. A span starting or ending inside
// a tag, comment or directive is always rejected.
func (c *Corrector) CorrectPair(start, end int) (newStart, newEnd int, ok bool) {
	if start < 0 || end > len(c.doc) || start >= end {
		return 0, 0, false
	}
	if c.inMarkup(start) || c.inMarkup(end) {
		return 0, 0, false
	}
	end = c.correctEnd(start, end)
	left, right := start, end

	// climb from the start to the element enclosing both ends
	anc := c.lookup(left)
	for !c.encloses(anc, right) {
		e := c.elems[anc]
		if c.hasNonSpace(e.openEnd, left) {
			return 0, 0, false
		}
		left = e.openStart
		anc = e.parent
	}

	for id := c.lookup(right - 1); id != anc; id = c.elems[id].parent {
		e := c.elems[id]
		if c.hasNonSpace(right, e.closeStart) {
			return 0, 0, false
		}
		right = e.closeEnd
	}

	if c.inZone(left, right) {
		return 0, 0, false
	}
	return left, right, true
}

// Elements returns the number of elements found, the implicit root excluded.
func (c *Corrector) Elements() int { return len(c.elems) - 1 }

// builder feeds parse events into a Corrector and tracks the open element
// stack and non-taggable nesting.
type builder struct {
	c     *Corrector
	stack []int
	names []string

	nonTaggable map[string]bool
	depth       int // open non-taggable elements
	zoneStart   int
}

func newBuilder(doc string, nonTaggable []string) *builder {
	b := &builder{c: newCorrector(doc)}
	if len(nonTaggable) > 0 {
		b.nonTaggable = make(map[string]bool, len(nonTaggable))
		for _, name := range nonTaggable {
			b.nonTaggable[strings.ToLower(name)] = true
		}
	}
	return b
}

func (b *builder) current() int {
	if len(b.stack) == 0 {
		return 0
	}
	return b.stack[len(b.stack)-1]
}

// markup records the range [begin, end) of a tag, comment or directive.
func (b *builder) markup(begin, end int) {
	if end > begin {
		b.c.markup = append(b.c.markup, zone{start: begin, end: end})
	}
}

// open records a start tag spanning [begin, end).
func (b *builder) open(name string, begin, end int) {
	id := len(b.c.elems)
	b.c.elems = append(b.c.elems, element{
		parent:     b.current(),
		openStart:  begin,
		openEnd:    end,
		closeStart: -1,
		closeEnd:   -1,
	})
	b.c.transition(begin, id)
	b.stack = append(b.stack, id)
	b.names = append(b.names, name)

	if b.nonTaggable[strings.ToLower(name)] {
		if b.depth == 0 {
			b.zoneStart = begin
		}
		b.depth++
	}
}

// close records the end tag [begin, end) of the innermost open element.
func (b *builder) close(begin, end int) {
	top := len(b.stack) - 1
	id, name := b.stack[top], b.names[top]
	b.stack, b.names = b.stack[:top], b.names[:top]

	e := &b.c.elems[id]
	e.closeStart, e.closeEnd = begin, end
	b.c.transition(end, e.parent)

	if b.nonTaggable[strings.ToLower(name)] {
		b.depth--
		if b.depth == 0 {
			b.c.zones = append(b.c.zones, zone{start: b.zoneStart, end: end})
		}
	}
}

// find returns the stack index of the innermost open element named name,
// or -1.
func (b *builder) find(name string) int {
	for i := len(b.names) - 1; i >= 0; i-- {
		if strings.EqualFold(b.names[i], name) {
			return i
		}
	}
	return -1
}

func (b *builder) finish() *Corrector {
	return b.c
}
