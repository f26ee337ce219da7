// Package web serves the tagging API over HTTP.
// Binds to localhost only: no network exposure, no auth needed.
package web

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/corey/tagger/internal/adapters/socket"
	"github.com/corey/tagger/internal/domain/offsets"
	"github.com/corey/tagger/internal/domain/tagger"
	"github.com/corey/tagger/internal/ports"
)

// maxBody bounds a request body.
const maxBody = 16 << 20

// Server serves the JSON tagging API over HTTP.
type Server struct {
	handler  socket.Handler
	log      *slog.Logger
	listener net.Listener
	httpSrv  *http.Server
	port     int
	started  time.Time
	stopOnce sync.Once

	portFilePath string // .tagger/run/http.port
}

// NewServer creates an HTTP server answering from handler.
// The portFilePath is where the bound port is written for discovery.
func NewServer(handler socket.Handler, portFilePath string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Server{
		handler:      handler,
		log:          log,
		portFilePath: portFilePath,
	}
}

// DefaultPort computes a store-specific port: 19000 + (hash(abs_path) % 1000).
func DefaultPort(storePath string) int {
	abs, err := filepath.Abs(storePath)
	if err != nil {
		abs = storePath
	}
	h := sha256.Sum256([]byte(abs))
	n := uint32(h[0])<<24 | uint32(h[1])<<16 | uint32(h[2])<<8 | uint32(h[3])
	return 19000 + int(n%1000)
}

// Routes returns the API mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tag", s.handleTag)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/info", s.handleInfo)
	mux.HandleFunc("POST /api/reload", s.handleReload)
	return mux
}

// Start begins listening on the preferred port; 0 picks a free one.
// Writes the port to the port file.
func (s *Server) Start(preferredPort int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", preferredPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	s.port = ln.Addr().(*net.TCPAddr).Port
	s.started = time.Now()

	s.httpSrv = &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.portFilePath != "" {
		if err := os.WriteFile(s.portFilePath, []byte(strconv.Itoa(s.port)), 0644); err != nil {
			s.log.Warn("could not write port file",
				slog.String("path", s.portFilePath),
				slog.String("error", err.Error()))
		}
	}

	go s.httpSrv.Serve(ln)
	return nil
}

// Stop gracefully shuts down the HTTP server. Idempotent.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.httpSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.httpSrv.Shutdown(ctx)
		}
		if s.portFilePath != "" {
			os.Remove(s.portFilePath)
		}
	})
}

// Port returns the bound port number.
func (s *Server) Port() int {
	return s.port
}

// URL returns the API base URL.
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.port)
}

// handleTag tags the request body. A JSON body is a full TagRequest; any
// other body is the text itself, with options in the query string.
func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	var req ports.TagRequest
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/json" {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
			return
		}
	} else {
		req, err = queryRequest(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		req.Text = string(body)
	}

	resp, err := s.handler.Tag(r.Context(), req)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, resp)
}

// queryRequest reads request options from the query string. Repeated fq
// parameters add record ids to the filter.
func queryRequest(r *http.Request) (ports.TagRequest, error) {
	q := r.URL.Query()
	req := ports.TagRequest{
		Overlaps: q.Get("overlaps"),
		Markup:   q.Get("markup"),
		Filter:   q["fq"],
	}
	if v := q.Get("nonTaggableTags"); v != "" {
		req.NonTaggable = strings.Split(v, ",")
	}
	if v := q.Get("tagsLimit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("tagsLimit: %w", err)
		}
		req.TagsLimit = n
	}
	if v := q.Get("rows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("rows: %w", err)
		}
		req.Rows = &n
	}
	if v := q.Get("matchText"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, fmt.Errorf("matchText: %w", err)
		}
		req.MatchText = b
	}
	return req, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := s.handler.Info()
	writeJSON(w, socket.HealthResult{
		Status:     "ok",
		Dictionary: info.Dictionary.Name,
		Phrases:    info.Dictionary.Phrases,
		Uptime:     time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.handler.Info())
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	result, err := s.handler.Reload(r.Context())
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, result)
}

// statusOf maps a service error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, ports.ErrNoDictionary):
		return http.StatusServiceUnavailable
	case errors.Is(err, ports.ErrNegativeRows),
		errors.Is(err, tagger.ErrUnknownPolicy),
		errors.Is(err, offsets.ErrUnknownMarkup),
		errors.Is(err, offsets.ErrMalformedXML):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
