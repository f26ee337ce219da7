package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/corey/tagger/internal/adapters/bleve"
	"github.com/corey/tagger/internal/adapters/records"
	"github.com/corey/tagger/internal/adapters/vellum"
	"github.com/corey/tagger/internal/config"
	"github.com/corey/tagger/internal/domain/corpus"
	"github.com/corey/tagger/internal/domain/tagger"
	"github.com/corey/tagger/internal/ports"
)

// ErrNoSources is returned when a build is requested without record files.
var ErrNoSources = errors.New("no dictionary sources configured")

// BuildStats summarizes one dictionary build.
type BuildStats struct {
	Records  int
	Words    int
	Phrases  int
	Skipped  int
	Duration time.Duration
}

// NewAnalyzer builds the analysis chain cfg describes. Building and tagging
// must use the same chain.
func NewAnalyzer(cfg *config.Config) (*bleve.Analyzer, error) {
	return bleve.NewAnalyzer(bleve.Options{
		StripMarkup:    cfg.Analyzer.StripMarkup,
		Stopwords:      cfg.Analyzer.Stopwords,
		Stem:           cfg.Analyzer.Stem,
		MinTaggableLen: cfg.Analyzer.MinTaggableLen,
	})
}

// Fingerprint identifies the settings a dictionary depends on: its sources,
// the name expansion options and the analysis chain.
func Fingerprint(cfg *config.Config) string {
	data, err := yaml.Marshal(struct {
		Dictionary config.DictionaryConfig `yaml:"dictionary"`
		Analyzer   config.AnalyzerConfig   `yaml:"analyzer"`
		Gaps       string                  `yaml:"gaps"`
	}{cfg.Dictionary, cfg.Analyzer, strings.ToLower(cfg.Tagger.Gaps)})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// SourceModTime returns the newest modification time of the sources, in
// unix seconds.
func SourceModTime(sources []string) (int64, error) {
	var newest int64
	for _, src := range sources {
		info, err := os.Stat(src)
		if err != nil {
			return 0, err
		}
		newest = max(newest, info.ModTime().Unix())
	}
	return newest, nil
}

// BuildDictionary loads every record source, expands the names into
// phrases and compiles the result.
func BuildDictionary(ctx context.Context, cfg *config.Config, a ports.Analyzer, log *slog.Logger) (*vellum.Dictionary, BuildStats, error) {
	start := time.Now()
	sources := cfg.Dictionary.Sources
	if len(sources) == 0 {
		return nil, BuildStats{}, ErrNoSources
	}
	modTime, err := SourceModTime(sources)
	if err != nil {
		return nil, BuildStats{}, fmt.Errorf("stat sources: %w", err)
	}
	recs, err := records.LoadFiles(sources)
	if err != nil {
		return nil, BuildStats{}, fmt.Errorf("load records: %w", err)
	}

	gaps, err := tagger.ParseGapMode(cfg.Tagger.Gaps)
	if err != nil {
		return nil, BuildStats{}, err
	}
	b := corpus.NewBuilder(a, corpus.Options{
		PartialMatches: cfg.Dictionary.PartialMatches,
		MinLen:         cfg.Dictionary.MinLen,
		MaxLen:         cfg.Dictionary.MaxLen,
		MaxPaths:       cfg.Dictionary.MaxPaths,
		IgnoreGaps:     gaps == tagger.GapIgnore,
		Logger:         log,
	})
	for i, rec := range recs {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, BuildStats{}, err
			}
		}
		if err := b.Add(rec); err != nil {
			return nil, BuildStats{}, fmt.Errorf("record %d: %w", i, err)
		}
	}

	c := b.Build()
	d, err := vellum.Compile(c, ports.DictionaryMeta{
		Name:           cfg.Dictionary.Name,
		Source:         strings.Join(sources, ","),
		PartialMatches: cfg.Dictionary.PartialMatches,
		BuiltAt:        time.Now().Unix(),
		SourceModTime:  modTime,
		Fingerprint:    Fingerprint(cfg),
	})
	if err != nil {
		return nil, BuildStats{}, fmt.Errorf("compile: %w", err)
	}

	meta := d.Meta()
	stats := BuildStats{
		Records:  meta.Records,
		Words:    meta.Words,
		Phrases:  meta.Phrases,
		Skipped:  meta.Skipped,
		Duration: time.Since(start),
	}
	log.Info("dictionary compiled",
		slog.String("name", meta.Name),
		slog.Int("phrases", stats.Phrases),
		slog.Duration("took", stats.Duration))
	return d, stats, nil
}

// upToDate reports whether a stored dictionary still matches cfg and its
// sources. A dictionary without sources configured is always current.
func upToDate(meta ports.DictionaryMeta, cfg *config.Config) bool {
	if len(cfg.Dictionary.Sources) == 0 {
		return true
	}
	if meta.Fingerprint != Fingerprint(cfg) {
		return false
	}
	modTime, err := SourceModTime(cfg.Dictionary.Sources)
	if err != nil {
		return false
	}
	return modTime <= meta.SourceModTime
}
