package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/corey/tagger/internal/adapters/ahocorasick"
	"github.com/corey/tagger/internal/adapters/vellum"
	"github.com/corey/tagger/internal/config"
	"github.com/corey/tagger/internal/domain/offsets"
	"github.com/corey/tagger/internal/domain/tagger"
	"github.com/corey/tagger/internal/ports"
)

// Request errors, re-exported for callers of the service.
var (
	ErrNoDictionary = ports.ErrNoDictionary
	ErrNegativeRows = ports.ErrNegativeRows
)

// ctxCheckEvery is how many tokens pass between context checks.
const ctxCheckEvery = 1024

// Service tags text against the current dictionary. It is safe for
// concurrent use; Swap replaces the dictionary without interrupting requests
// already running against the old one.
type Service struct {
	analyzer ports.Analyzer
	defaults serviceDefaults
	log      *slog.Logger

	mu  sync.RWMutex
	cur *loaded
}

// loaded is one dictionary and the id cache that belongs to it. Phrase
// values are only meaningful within one dictionary, so the cache goes with it.
type loaded struct {
	dict *vellum.Dictionary
	ids  *lru.Cache[uint64, []string]

	scanOnce sync.Once
	scan     *ahocorasick.PhraseScanner
	scanErr  error
}

type serviceDefaults struct {
	policy        tagger.Policy
	alt           tagger.AltMode
	gaps          tagger.GapMode
	tagsLimit     int
	maxCandidates int
	rows          int
	markup        offsets.Markup
	nonTaggable   []string
	cacheSize     int
}

// NewService returns a Service with no dictionary. Every enumerated setting
// in cfg is parsed here so a bad value fails before the first request.
func NewService(a ports.Analyzer, cfg config.TaggerConfig, log *slog.Logger) (*Service, error) {
	policy, err := tagger.ParsePolicy(cfg.Overlaps)
	if err != nil {
		return nil, err
	}
	alt, err := tagger.ParseAltMode(cfg.AltTokens)
	if err != nil {
		return nil, err
	}
	gaps, err := tagger.ParseGapMode(cfg.Gaps)
	if err != nil {
		return nil, err
	}
	markup, err := offsets.ParseMarkup(cfg.Markup)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		analyzer: a,
		log:      log,
		defaults: serviceDefaults{
			policy:        policy,
			alt:           alt,
			gaps:          gaps,
			tagsLimit:     cfg.TagsLimit,
			maxCandidates: cfg.MaxCandidates,
			rows:          cfg.Rows,
			markup:        markup,
			nonTaggable:   cfg.NonTaggableTags,
			cacheSize:     max(cfg.IDCacheSize, 1),
		},
	}, nil
}

// Swap makes d the current dictionary and closes the previous one once no
// request is using it.
func (s *Service) Swap(d *vellum.Dictionary) error {
	cache, err := lru.New[uint64, []string](s.defaults.cacheSize)
	if err != nil {
		return err
	}
	next := &loaded{dict: d, ids: cache}

	s.mu.Lock()
	prev := s.cur
	s.cur = next
	s.mu.Unlock()

	if prev != nil {
		return prev.dict.Close()
	}
	return nil
}

// Meta describes the current dictionary. ok is false when none is loaded.
func (s *Service) Meta() (meta ports.DictionaryMeta, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur == nil {
		return ports.DictionaryMeta{}, false
	}
	return s.cur.dict.Meta(), true
}

// Close releases the current dictionary.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return nil
	}
	err := s.cur.dict.Close()
	s.cur = nil
	return err
}

// requestOptions are the effective settings of one request.
type requestOptions struct {
	policy      tagger.Policy
	tagsLimit   int
	rows        int
	markup      offsets.Markup
	nonTaggable []string
}

func (s *Service) options(req ports.TagRequest) (requestOptions, error) {
	o := requestOptions{
		policy:      s.defaults.policy,
		tagsLimit:   s.defaults.tagsLimit,
		rows:        s.defaults.rows,
		markup:      s.defaults.markup,
		nonTaggable: s.defaults.nonTaggable,
	}
	if req.Overlaps != "" {
		p, err := tagger.ParsePolicy(req.Overlaps)
		if err != nil {
			return o, err
		}
		o.policy = p
	}
	if req.TagsLimit > 0 {
		o.tagsLimit = req.TagsLimit
	}
	if req.Rows != nil {
		if *req.Rows < 0 {
			return o, fmt.Errorf("%w: %d", ErrNegativeRows, *req.Rows)
		}
		o.rows = *req.Rows
	}
	if req.Markup != "" {
		m, err := offsets.ParseMarkup(req.Markup)
		if err != nil {
			return o, err
		}
		o.markup = m
	}
	if len(req.NonTaggable) > 0 {
		o.nonTaggable = req.NonTaggable
	}
	return o, nil
}

// Tag analyzes req.Text, runs the tagger over it and resolves every
// accepted tag to its record ids.
//
// With markup set the document is pre-parsed first; malformed XML rejects
// the request before any tagging. Tags whose span cannot be balanced are
// dropped and do not count against the tags limit.
func (s *Service) Tag(ctx context.Context, req ports.TagRequest) (*ports.TagResponse, error) {
	opts, err := s.options(req)
	if err != nil {
		return nil, err
	}
	corrector, err := offsets.For(opts.markup, req.Text, opts.nonTaggable)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	cur := s.cur
	if cur == nil {
		return nil, ErrNoDictionary
	}
	dict := cur.dict
	filtered := len(req.Filter) > 0
	if filtered {
		dict = dict.Filtered(req.Filter)
	}

	resp := &ports.TagResponse{Tags: []ports.TagHit{}, Records: []string{}}
	matched := roaring.New()
	dropped := 0

	emit := func(tag tagger.Tag) {
		start, end := tag.Start, tag.End
		if corrector != nil {
			if opts.tagsLimit > 0 && len(resp.Tags) >= opts.tagsLimit {
				return
			}
			var ok bool
			if start, end, ok = corrector.CorrectPair(start, end); !ok {
				dropped++
				return
			}
		}
		hit := ports.TagHit{Start: start, End: end, IDs: cur.resolve(dict, tag.Value, filtered)}
		if req.MatchText {
			hit.MatchText = req.Text[start:end]
		}
		resp.Tags = append(resp.Tags, hit)
		if opts.rows > 0 {
			matched.Or(dict.Records(tag.Value))
		}
	}

	engineLimit := opts.tagsLimit
	if corrector != nil {
		// the limit counts tags that survive correction
		engineLimit = 0
	}
	t, err := tagger.New(dict, tagger.Options{
		Overlaps:      opts.policy,
		AltTokens:     s.defaults.alt,
		Gaps:          s.defaults.gaps,
		TagsLimit:     engineLimit,
		MaxCandidates: s.defaults.maxCandidates,
		Emit:          emit,
	})
	if err != nil {
		return nil, err
	}

	tokens := s.analyzer.Analyze(req.Text)
	for i, tok := range tokens {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if err := t.Add(wordToken(dict, tok)); err != nil {
			return nil, err
		}
	}
	if err := t.Finish(); err != nil {
		return nil, err
	}

	resp.TagsCount = len(resp.Tags)
	resp.NumRecords = int(matched.GetCardinality())
	if opts.rows > 0 && resp.NumRecords > 0 {
		resp.Records = dict.RecordIDs(firstN(matched, opts.rows))
	}

	s.log.Debug("tagged",
		slog.Int("bytes", len(req.Text)),
		slog.Int("tokens", len(tokens)),
		slog.Int("tags", resp.TagsCount),
		slog.Int("dropped", dropped),
		slog.String("overlaps", opts.policy.String()))
	return resp, nil
}

// resolve returns the record ids of a phrase value. Unfiltered lookups go
// through the cache.
func (l *loaded) resolve(dict *vellum.Dictionary, value uint64, filtered bool) []string {
	if filtered {
		return dict.Resolve(value)
	}
	if ids, ok := l.ids.Get(value); ok {
		return ids
	}
	ids := dict.Resolve(value)
	l.ids.Add(value, ids)
	return ids
}

// wordToken maps an analyzed token onto the dictionary's vocabulary.
func wordToken(v ports.Vocabulary, tok ports.Token) tagger.Token {
	word, ok := v.LookupWord([]byte(tok.Term))
	if !ok {
		word = ports.UnknownWord
	}
	return tagger.Token{
		Word:     word,
		Start:    tok.Start,
		End:      tok.End,
		PosInc:   tok.PosInc,
		Taggable: tok.Taggable,
	}
}

// firstN returns the n smallest members of bm.
func firstN(bm *roaring.Bitmap, n int) *roaring.Bitmap {
	if bm.GetCardinality() <= uint64(n) {
		return bm
	}
	out := roaring.New()
	it := bm.Iterator()
	for i := 0; i < n && it.HasNext(); i++ {
		out.Add(it.Next())
	}
	return out
}
