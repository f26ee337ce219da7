// Package corpus turns dictionary records into the sorted word list and
// phrase table a phrase automaton is compiled from.
//
// Every name of a record is analyzed with the same analyzer used at tagging
// time. Alternate tokens (position increment 0) fan a name out into several
// phrase paths; each path becomes a phrase pointing back at the record.
package corpus

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/corey/tagger/internal/ports"
)

// maxShingleWords bounds the length of partial-match phrases.
const maxShingleWords = 10

// DefaultMaxPaths bounds how many phrase paths one name may expand into.
const DefaultMaxPaths = 64

var (
	// ErrUnsupportedToken is reported for a name that analyzes to a token
	// with a position increment greater than 1 while gaps are not ignored.
	ErrUnsupportedToken = errors.New("name analyzed to a token with position increment > 1")
	// ErrTooManyPaths is reported for a name whose alternates expand into
	// more phrase paths than allowed.
	ErrTooManyPaths = errors.New("name expands into too many phrase paths")
	// ErrMissingID is returned for a record without an id.
	ErrMissingID = errors.New("record has no id")
)

// Options configures a Builder.
type Options struct {
	// PartialMatches adds every run of up to 10 consecutive words of each
	// name as a phrase of its own.
	PartialMatches bool

	// MinLen and MaxLen skip names shorter or longer than the given number
	// of characters. 0 disables the bound.
	MinLen int
	MaxLen int

	// MaxPaths bounds the alternate expansion of one name. 0 means
	// DefaultMaxPaths.
	MaxPaths int

	// IgnoreGaps accepts position increments > 1 (removed stopwords) as if
	// the words were adjacent.
	IgnoreGaps bool

	Logger *slog.Logger
}

// Phrase is one dictionary phrase: a word id sequence and the ordinals of
// the records carrying it.
type Phrase struct {
	Words   []ports.WordID
	Records *roaring.Bitmap
}

// Corpus is a built dictionary, ready to compile.
type Corpus struct {
	Words     []string // sorted; a word's id is its index
	Phrases   []Phrase // sorted by word id sequence
	RecordIDs []string // record ordinal -> id
	Skipped   int      // names that contributed no phrase
}

// Builder accumulates records. It is not safe for concurrent use.
type Builder struct {
	analyzer ports.Analyzer
	opts     Options
	log      *slog.Logger

	words     map[string]struct{}
	phrases   map[string]*entry
	recordIDs []string
	skipped   int
}

type entry struct {
	words   []string
	records *roaring.Bitmap
}

// NewBuilder returns a Builder analyzing names with a.
func NewBuilder(a ports.Analyzer, opts Options) *Builder {
	if opts.MaxPaths <= 0 {
		opts.MaxPaths = DefaultMaxPaths
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Builder{
		analyzer: a,
		opts:     opts,
		log:      log,
		words:    make(map[string]struct{}),
		phrases:  make(map[string]*entry),
	}
}

// Add analyzes every name of rec. Names that cannot contribute a phrase
// are logged and counted, never fatal.
func (b *Builder) Add(rec ports.Record) error {
	if rec.ID == "" {
		return ErrMissingID
	}
	ord := uint32(len(b.recordIDs))
	b.recordIDs = append(b.recordIDs, rec.ID)

	for _, name := range rec.Names {
		if err := b.addName(ord, name); err != nil {
			b.skipped++
			b.log.Warn("name skipped",
				slog.String("record", rec.ID),
				slog.String("name", name),
				slog.String("reason", err.Error()))
		}
	}
	return nil
}

func (b *Builder) addName(ord uint32, name string) error {
	n := utf8.RuneCountInString(name)
	if (b.opts.MinLen > 0 && n < b.opts.MinLen) || (b.opts.MaxLen > 0 && n > b.opts.MaxLen) {
		return fmt.Errorf("length %d outside [%d, %d]", n, b.opts.MinLen, b.opts.MaxLen)
	}
	paths, err := b.expand(b.analyzer.Analyze(name))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("completely eliminated by analyzer")
	}

	for _, path := range paths {
		if !b.opts.PartialMatches {
			b.addPhrase(ord, path)
			continue
		}
		for i := range path {
			for j := i + 1; j <= len(path) && j-i <= maxShingleWords; j++ {
				b.addPhrase(ord, path[i:j])
			}
		}
	}
	return nil
}

// expand turns a token stream into phrase paths, one per combination of
// alternates.
func (b *Builder) expand(tokens []ports.Token) ([][]string, error) {
	var positions [][]string
	for _, tok := range tokens {
		if tok.Term == "" {
			continue
		}
		switch {
		case tok.PosInc > 1 && !b.opts.IgnoreGaps:
			return nil, fmt.Errorf("%w: %q (%d)", ErrUnsupportedToken, tok.Term, tok.PosInc)
		case tok.PosInc == 0 && len(positions) > 0:
			last := len(positions) - 1
			if !slices.Contains(positions[last], tok.Term) {
				positions[last] = append(positions[last], tok.Term)
			}
		default:
			positions = append(positions, []string{tok.Term})
		}
	}
	if len(positions) == 0 {
		return nil, nil
	}

	total := 1
	for _, alts := range positions {
		total *= len(alts)
		if total > b.opts.MaxPaths {
			return nil, fmt.Errorf("%w: more than %d", ErrTooManyPaths, b.opts.MaxPaths)
		}
	}

	paths := [][]string{make([]string, 0, len(positions))}
	for _, alts := range positions {
		next := make([][]string, 0, len(paths)*len(alts))
		for _, p := range paths {
			for _, w := range alts {
				next = append(next, append(slices.Clip(p), w))
			}
		}
		paths = next
	}
	return paths, nil
}

func (b *Builder) addPhrase(ord uint32, words []string) {
	key := strings.Join(words, "\x00")
	e, ok := b.phrases[key]
	if !ok {
		e = &entry{words: slices.Clone(words), records: roaring.New()}
		b.phrases[key] = e
		for _, w := range words {
			b.words[w] = struct{}{}
		}
	}
	e.records.Add(ord)
}

// Records returns the number of records added so far.
func (b *Builder) Records() int { return len(b.recordIDs) }

// Build assigns word ids and returns the sorted corpus. The Builder must not
// be used afterwards.
func (b *Builder) Build() *Corpus {
	words := make([]string, 0, len(b.words))
	for w := range b.words {
		words = append(words, w)
	}
	slices.Sort(words)
	ids := make(map[string]ports.WordID, len(words))
	for i, w := range words {
		ids[w] = ports.WordID(i)
	}

	phrases := make([]Phrase, 0, len(b.phrases))
	for _, e := range b.phrases {
		seq := make([]ports.WordID, len(e.words))
		for i, w := range e.words {
			seq[i] = ids[w]
		}
		e.records.RunOptimize()
		phrases = append(phrases, Phrase{Words: seq, Records: e.records})
	}
	slices.SortFunc(phrases, func(a, b Phrase) int { return slices.Compare(a.Words, b.Words) })

	b.log.Info("dictionary corpus built",
		slog.Int("records", len(b.recordIDs)),
		slog.Int("words", len(words)),
		slog.Int("phrases", len(phrases)),
		slog.Int("skipped", b.skipped))

	return &Corpus{
		Words:     words,
		Phrases:   phrases,
		RecordIDs: b.recordIDs,
		Skipped:   b.skipped,
	}
}
