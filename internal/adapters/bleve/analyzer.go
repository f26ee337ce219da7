// Package bleve implements ports.Analyzer with a bleve analysis chain. The
// same chain must analyze dictionary names and the text being tagged, so
// both sides are built from one Options value.
package bleve

import (
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/corey/tagger/internal/ports"

	_ "github.com/blevesearch/bleve/v2/analysis/char/html"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/en"
	_ "github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	_ "github.com/blevesearch/bleve/v2/analysis/token/porter"
	_ "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// Built-in bleve component names.
const (
	unicodeTokenizerName = "unicode"
	htmlCharFilterName   = "html"
	lowercaseFilterName  = "to_lower"
	stopFilterName       = "stop_en"
	porterStemmerName    = "stemmer_porter"
)

// Options selects the analysis chain.
type Options struct {
	// StripMarkup blanks markup tags before tokenizing. Byte offsets into
	// the original text are preserved.
	StripMarkup bool
	// Stopwords removes English stopwords, leaving position gaps.
	Stopwords bool
	// Stem applies the Porter stemmer.
	Stem bool
	// MinTaggableLen marks words shorter than this many characters as not
	// able to start a tag. They can still continue one.
	MinTaggableLen int
}

// Analyzer is a ports.Analyzer backed by a bleve analysis chain.
type Analyzer struct {
	chain  *analysis.DefaultAnalyzer
	minLen int
}

// NewAnalyzer builds the chain for opts: unicode tokenizer, lowercase, then
// the optional stopword and stemming filters.
func NewAnalyzer(opts Options) (*Analyzer, error) {
	cache := registry.NewCache()

	tokenizer, err := cache.TokenizerNamed(unicodeTokenizerName)
	if err != nil {
		return nil, err
	}

	var charFilters []analysis.CharFilter
	if opts.StripMarkup {
		cf, err := cache.CharFilterNamed(htmlCharFilterName)
		if err != nil {
			return nil, err
		}
		charFilters = append(charFilters, cf)
	}

	names := []string{lowercaseFilterName}
	if opts.Stopwords {
		names = append(names, stopFilterName)
	}
	if opts.Stem {
		names = append(names, porterStemmerName)
	}
	filters := make([]analysis.TokenFilter, 0, len(names))
	for _, name := range names {
		f, err := cache.TokenFilterNamed(name)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}

	return &Analyzer{
		chain: &analysis.DefaultAnalyzer{
			CharFilters:  charFilters,
			Tokenizer:    tokenizer,
			TokenFilters: filters,
		},
		minLen: opts.MinTaggableLen,
	}, nil
}

// Analyze implements ports.Analyzer. Position increments are derived from
// bleve's 1-based positions; words removed before the first token do not
// count as a gap.
func (a *Analyzer) Analyze(text string) []ports.Token {
	stream := a.chain.Analyze([]byte(text))
	out := make([]ports.Token, 0, len(stream))
	prev := 0
	for _, t := range stream {
		inc := t.Position - prev
		if prev == 0 && inc > 1 {
			inc = 1
		}
		prev = t.Position
		out = append(out, ports.Token{
			Term:     string(t.Term),
			Start:    t.Start,
			End:      t.End,
			PosInc:   inc,
			Taggable: utf8.RuneCount(t.Term) >= a.minLen,
		})
	}
	return out
}
