package socket

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/corey/tagger/internal/ports"
)

// Handler serves the daemon's requests.
// Thread safety is the implementor's responsibility.
type Handler interface {
	Tag(ctx context.Context, req ports.TagRequest) (*ports.TagResponse, error)
	Info() InfoResult
	Reload(ctx context.Context) (*ReloadResult, error)
}

// Server is the daemon that listens on a Unix socket and serves tag requests.
type Server struct {
	handler  Handler
	logger   *slog.Logger
	listener net.Listener
	sockPath string
	started  time.Time

	ctx    context.Context
	cancel context.CancelFunc

	done         chan struct{}
	shutdownCh   chan struct{} // closed when a remote shutdown request is received
	shutdownOnce sync.Once
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewServer creates a daemon server backed by handler. A nil logger
// discards connection-level diagnostics.
func NewServer(handler Handler, sockPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		handler:    handler,
		logger:     logger,
		sockPath:   sockPath,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}
}

// Start begins listening on the Unix socket. It handles stale sockets by
// attempting a connection first; if the connection fails, the stale socket
// is removed before binding.
func (s *Server) Start() error {
	if _, err := os.Stat(s.sockPath); err == nil {
		conn, err := net.DialTimeout("unix", s.sockPath, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return fmt.Errorf("daemon already running at %s", s.sockPath)
		}
		os.Remove(s.sockPath)
	}

	ln, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.started = time.Now()

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("socket listening", slog.String("path", s.sockPath))
	return nil
}

// Stop gracefully shuts down the server, closing the listener and removing
// the socket file. In-flight tag requests see their context cancelled.
// Idempotent: safe to call after a remote shutdown and again on a signal.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		s.cancel()
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.sockPath)
	})
	return nil
}

// ShutdownCh returns a channel that is closed when a remote shutdown request
// is received. The daemon's main goroutine should select on this alongside
// OS signals so the process actually exits after a remote stop.
func (s *Server) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// Addr returns the socket path the server is listening on.
func (s *Server) Addr() string {
	return s.sockPath
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), maxMessage)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(conn, Response{Error: "invalid request JSON"})
			continue
		}

		resp := s.handleRequest(req)
		s.writeResponse(conn, resp)

		if req.Method == MethodShutdown {
			s.shutdownOnce.Do(func() { close(s.shutdownCh) })
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warn("connection read failed", slog.String("error", err.Error()))
	}
}

func (s *Server) handleRequest(req Request) Response {
	switch req.Method {
	case MethodTag:
		return s.handleTag(req)
	case MethodHealth:
		return s.handleHealth(req)
	case MethodInfo:
		return Response{ID: req.ID, Result: s.handler.Info()}
	case MethodReload:
		return s.handleReload(req)
	case MethodShutdown:
		return Response{ID: req.ID, Result: struct{}{}}
	default:
		return Response{ID: req.ID, Error: fmt.Sprintf("unknown method: %s", req.Method)}
	}
}

func (s *Server) handleTag(req Request) Response {
	// Re-marshal params to decode into TagParams
	paramsJSON, err := json.Marshal(req.Params)
	if err != nil {
		return Response{ID: req.ID, Error: "invalid tag params"}
	}
	var params TagParams
	if err := json.Unmarshal(paramsJSON, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid tag params"}
	}

	start := time.Now()
	result, err := s.handler.Tag(s.ctx, params)
	if err != nil {
		s.logger.Debug("tag request failed",
			slog.String("id", req.ID),
			slog.String("error", err.Error()))
		return Response{ID: req.ID, Error: err.Error()}
	}
	s.logger.Debug("tag request",
		slog.String("id", req.ID),
		slog.Int("bytes", len(params.Text)),
		slog.Int("tags", result.TagsCount),
		slog.Duration("took", time.Since(start)))
	return Response{ID: req.ID, Result: result}
}

func (s *Server) handleHealth(req Request) Response {
	info := s.handler.Info()
	return Response{ID: req.ID, Result: HealthResult{
		Status:     "ok",
		Dictionary: info.Dictionary.Name,
		Phrases:    info.Dictionary.Phrases,
		Uptime:     time.Since(s.started).Truncate(time.Second).String(),
	}}
}

func (s *Server) handleReload(req Request) Response {
	result, err := s.handler.Reload(s.ctx)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Result: result}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	data = append(data, '\n')
	conn.Write(data)
}
