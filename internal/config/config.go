// Package config loads the tagger's YAML configuration.
//
// Defaults are set on the struct before the file is unmarshalled, so a file
// only needs the keys it changes.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/corey/tagger/internal/domain/offsets"
	"github.com/corey/tagger/internal/domain/tagger"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full configuration of a tagger installation.
type Config struct {
	Dictionary DictionaryConfig `yaml:"dictionary"`
	Analyzer   AnalyzerConfig   `yaml:"analyzer"`
	Tagger     TaggerConfig     `yaml:"tagger"`
	Store      StoreConfig      `yaml:"store"`
	Daemon     DaemonConfig     `yaml:"daemon"`
	Log        LogConfig        `yaml:"log"`
}

// DictionaryConfig names the dictionary and the record files it is built from.
type DictionaryConfig struct {
	Name           string   `yaml:"name"`
	Sources        []string `yaml:"sources"`
	PartialMatches bool     `yaml:"partial_matches"`
	MinLen         int      `yaml:"min_len"`
	MaxLen         int      `yaml:"max_len"`
	MaxPaths       int      `yaml:"max_paths"`
}

// AnalyzerConfig selects the analysis chain. The same chain is used to
// build the dictionary and to tag text; changing it requires a rebuild.
type AnalyzerConfig struct {
	StripMarkup    bool `yaml:"strip_markup"`
	Stopwords      bool `yaml:"stopwords"`
	Stem           bool `yaml:"stem"`
	MinTaggableLen int  `yaml:"min_taggable_len"`
}

// TaggerConfig holds the per-request defaults.
type TaggerConfig struct {
	Overlaps        string   `yaml:"overlaps"`
	AltTokens       string   `yaml:"alt_tokens"`
	Gaps            string   `yaml:"gaps"`
	TagsLimit       int      `yaml:"tags_limit"`
	MaxCandidates   int      `yaml:"max_candidates"`
	Rows            int      `yaml:"rows"`
	Markup          string   `yaml:"markup"`
	NonTaggableTags []string `yaml:"non_taggable_tags"`
	IDCacheSize     int      `yaml:"id_cache_size"`
}

// StoreConfig locates the bbolt database.
type StoreConfig struct {
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"`
}

// DaemonConfig controls the socket daemon.
type DaemonConfig struct {
	Socket   string        `yaml:"socket"` // empty: derived from the store path
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`

	// HTTP also serves the API on localhost. HTTPPort 0 derives a port
	// from the store path.
	HTTP     bool `yaml:"http"`
	HTTPPort int  `yaml:"http_port"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.Dictionary.Name = "default"
	c.Dictionary.MinLen = 1
	c.Dictionary.MaxLen = 0
	c.Dictionary.MaxPaths = 64

	c.Analyzer.MinTaggableLen = 1

	c.Tagger.Overlaps = tagger.NoSub.String()
	c.Tagger.AltTokens = tagger.AltBranch.String()
	c.Tagger.Gaps = tagger.GapReject.String()
	c.Tagger.TagsLimit = 1000
	c.Tagger.Rows = 10000
	c.Tagger.Markup = string(offsets.MarkupNone)
	c.Tagger.IDCacheSize = 2000

	c.Store.Path = filepath.Join(".tagger", "tagger.db")
	c.Store.Timeout = time.Second

	c.Daemon.Watch = true
	c.Daemon.Debounce = 200 * time.Millisecond

	c.Log.Level = "info"
	c.Log.Format = "text"
	return c
}

// Load reads configPath over the defaults. An empty path returns the
// defaults.
func Load(configPath string) (*Config, error) {
	c := Default()
	if configPath == "" {
		return c, nil
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// relative sources and store path are relative to the config file
	base := filepath.Dir(configPath)
	for i, src := range c.Dictionary.Sources {
		c.Dictionary.Sources[i] = resolve(base, src)
	}
	c.Store.Path = resolve(base, c.Store.Path)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// FindFile looks for a configuration file in dir. Returns "" when there is none.
func FindFile(dir string) string {
	for _, name := range []string{"tagger.yaml", "tagger.yml", ".tagger.yaml", filepath.Join(".tagger", "config.yaml")} {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// Validate checks every enumerated setting so bad values fail at startup.
func (c *Config) Validate() error {
	var errs []error
	if c.Dictionary.Name == "" {
		errs = append(errs, errors.New("dictionary.name is empty"))
	}
	if c.Dictionary.MaxLen > 0 && c.Dictionary.MaxLen < c.Dictionary.MinLen {
		errs = append(errs, fmt.Errorf("dictionary.max_len %d is below min_len %d", c.Dictionary.MaxLen, c.Dictionary.MinLen))
	}
	if _, err := tagger.ParsePolicy(c.Tagger.Overlaps); err != nil {
		errs = append(errs, err)
	}
	if _, err := tagger.ParseAltMode(c.Tagger.AltTokens); err != nil {
		errs = append(errs, err)
	}
	gaps, err := tagger.ParseGapMode(c.Tagger.Gaps)
	if err != nil {
		errs = append(errs, err)
	} else if c.Analyzer.Stopwords && gaps == tagger.GapReject {
		errs = append(errs, errors.New("analyzer.stopwords needs tagger.gaps ignore or break"))
	}
	if _, err := offsets.ParseMarkup(c.Tagger.Markup); err != nil {
		errs = append(errs, err)
	}
	if c.Tagger.TagsLimit < 0 || c.Tagger.MaxCandidates < 0 || c.Tagger.Rows < 0 {
		errs = append(errs, errors.New("tagger limits must not be negative"))
	}
	if c.Tagger.IDCacheSize <= 0 {
		errs = append(errs, errors.New("tagger.id_cache_size must be positive"))
	}
	if c.Daemon.HTTPPort < 0 || c.Daemon.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("daemon.http_port %d is out of range", c.Daemon.HTTPPort))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is empty"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format %q is not text or json", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(name string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", name, err)
	}
	return l, nil
}

// NewLogger builds the slog logger the configuration describes.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
