// Package app wires together all adapters and domain logic.
// It provides lifecycle management for the tagger daemon: create, start, stop.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/corey/tagger/internal/adapters/bbolt"
	"github.com/corey/tagger/internal/adapters/bleve"
	fsw "github.com/corey/tagger/internal/adapters/fsnotify"
	"github.com/corey/tagger/internal/adapters/socket"
	"github.com/corey/tagger/internal/adapters/vellum"
	"github.com/corey/tagger/internal/adapters/web"
	"github.com/corey/tagger/internal/config"
	"github.com/corey/tagger/internal/ports"
)

// App is the top-level container wiring all components together.
type App struct {
	Config   *config.Config
	Store    *bbolt.Store
	Analyzer *bleve.Analyzer
	Service  *Service
	Server   *socket.Server
	Watcher  *fsw.Watcher // nil until Start, and when watching is off
	Web      *web.Server  // nil unless StartHTTP was called

	log *slog.Logger

	buildMu   sync.Mutex // serializes rebuilds
	builds    int        // guarded by buildMu
	lastBuild BuildStats // guarded by buildMu
}

// New opens the store and loads the configured dictionary, building it
// from its sources when nothing usable is stored. Does not start services.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	analyzer, err := NewAnalyzer(cfg)
	if err != nil {
		return nil, fmt.Errorf("analyzer: %w", err)
	}
	svc, err := NewService(analyzer, cfg.Tagger, log)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	store, err := bbolt.NewStoreWithTimeout(cfg.Store.Path, cfg.Store.Timeout)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &App{
		Config:   cfg,
		Store:    store,
		Analyzer: analyzer,
		Service:  svc,
		log:      log,
	}
	if err := a.load(ctx); err != nil {
		store.Close()
		return nil, err
	}

	sockPath := cfg.Daemon.Socket
	if sockPath == "" {
		sockPath = socket.SocketPath(cfg.Store.Path)
	}
	a.Server = socket.NewServer(a, sockPath, log)
	return a, nil
}

// load serves the stored dictionary when it matches the configuration and
// rebuilds it otherwise. With nothing stored and no sources the App starts
// empty and tag requests fail with ErrNoDictionary.
func (a *App) load(ctx context.Context) error {
	name := a.Config.Dictionary.Name
	stored, err := a.Store.LoadDictionary(name)
	if err != nil {
		return fmt.Errorf("load dictionary: %w", err)
	}
	if stored != nil && upToDate(stored.Meta, a.Config) {
		d, err := vellum.Load(stored)
		if err != nil {
			return fmt.Errorf("open dictionary %s: %w", name, err)
		}
		a.log.Info("dictionary loaded",
			slog.String("name", name),
			slog.Int("records", stored.Meta.Records),
			slog.Int("phrases", stored.Meta.Phrases))
		return a.Service.Swap(d)
	}
	if len(a.Config.Dictionary.Sources) == 0 {
		a.log.Warn("no dictionary stored and no sources configured", slog.String("name", name))
		return nil
	}
	if stored != nil {
		a.log.Info("stored dictionary is stale, rebuilding", slog.String("name", name))
	}
	_, err = a.Rebuild(ctx)
	return err
}

// Rebuild builds the dictionary from its sources, persists it and swaps it
// in. Requests keep being served from the old dictionary meanwhile.
func (a *App) Rebuild(ctx context.Context) (BuildStats, error) {
	a.buildMu.Lock()
	defer a.buildMu.Unlock()

	d, stats, err := BuildDictionary(ctx, a.Config, a.Analyzer, a.log)
	if err != nil {
		return stats, err
	}
	stored, err := d.Marshal()
	if err != nil {
		d.Close()
		return stats, fmt.Errorf("marshal dictionary: %w", err)
	}
	if err := a.Store.SaveDictionary(stored); err != nil {
		d.Close()
		return stats, fmt.Errorf("save dictionary: %w", err)
	}
	if err := a.Service.Swap(d); err != nil {
		return stats, err
	}
	a.builds++
	a.lastBuild = stats
	return stats, nil
}

// LastBuild returns the stats of the most recent build of this App. ok is
// false when the dictionary came from the store unchanged.
func (a *App) LastBuild() (stats BuildStats, ok bool) {
	a.buildMu.Lock()
	defer a.buildMu.Unlock()
	return a.lastBuild, a.builds > 0
}

// Tag implements socket.Handler.
func (a *App) Tag(ctx context.Context, req ports.TagRequest) (*ports.TagResponse, error) {
	return a.Service.Tag(ctx, req)
}

// Reload implements socket.Handler.
func (a *App) Reload(ctx context.Context) (*socket.ReloadResult, error) {
	stats, err := a.Rebuild(ctx)
	if err != nil {
		return nil, err
	}
	return &socket.ReloadResult{
		Records:    stats.Records,
		Phrases:    stats.Phrases,
		Skipped:    stats.Skipped,
		DurationMs: stats.Duration.Milliseconds(),
	}, nil
}

// Info implements socket.Handler.
func (a *App) Info() socket.InfoResult {
	meta, _ := a.Service.Meta()
	a.buildMu.Lock()
	builds := a.builds
	a.buildMu.Unlock()
	return socket.InfoResult{
		Dictionary: meta,
		Sources:    a.Config.Dictionary.Sources,
		Watching:   a.Watcher != nil,
		Builds:     builds,
	}
}

// Start begins the daemon: source watcher, then socket server.
func (a *App) Start() error {
	a.startWatcher()
	if err := a.Server.Start(); err != nil {
		if a.Watcher != nil {
			a.Watcher.Stop()
		}
		return fmt.Errorf("start server: %w", err)
	}
	return nil
}

// StartHTTP also serves the API over HTTP on localhost, writing the bound
// port to portFile. Call after Start.
func (a *App) StartHTTP(portFile string) error {
	port := a.Config.Daemon.HTTPPort
	if port == 0 {
		port = web.DefaultPort(a.Config.Store.Path)
	}
	srv := web.NewServer(a, portFile, a.log)
	if err := srv.Start(port); err != nil {
		return fmt.Errorf("start http: %w", err)
	}
	a.Web = srv
	a.log.Info("http api listening", slog.String("url", srv.URL()))
	return nil
}

// startWatcher sets up rebuild-on-change. Failures are not fatal: the daemon
// still serves and reload still works.
func (a *App) startWatcher() {
	if !a.Config.Daemon.Watch || len(a.Config.Dictionary.Sources) == 0 {
		return
	}
	w, err := fsw.NewWatcher(a.Config.Daemon.Debounce)
	if err != nil {
		a.log.Warn("source watcher unavailable", slog.String("error", err.Error()))
		return
	}
	if err := w.Watch(a.Config.Dictionary.Sources, a.onSourceChanged); err != nil {
		w.Stop()
		a.log.Warn("source watcher unavailable", slog.String("error", err.Error()))
		return
	}
	a.Watcher = w
}

// Stop gracefully shuts down all services and closes the store.
func (a *App) Stop() error {
	if a.Web != nil {
		a.Web.Stop()
	}
	if a.Watcher != nil {
		a.Watcher.Stop()
	}
	a.Server.Stop()
	a.Service.Close()
	return a.Store.Close()
}

// Close releases the store and dictionary of an App that was never started.
func (a *App) Close() error {
	a.Service.Close()
	return a.Store.Close()
}

// rebuildTimeout bounds a rebuild triggered by a source change.
const rebuildTimeout = 10 * time.Minute
