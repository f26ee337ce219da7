// Package socket implements a JSON-over-Unix-socket protocol for the tagger daemon.
// The protocol uses newline-delimited JSON: each message is one JSON object + \n.
package socket

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"

	"github.com/corey/tagger/internal/ports"
)

// SocketPath returns the Unix socket path for a given store file.
// Format: /tmp/tagger-{first12hex}.sock
func SocketPath(storePath string) string {
	abs, err := filepath.Abs(storePath)
	if err != nil {
		abs = storePath
	}
	h := sha256.Sum256([]byte(abs))
	return fmt.Sprintf("/tmp/tagger-%x.sock", h[:6])
}

// Method names for the protocol.
const (
	MethodTag      = "tag"
	MethodHealth   = "health"
	MethodInfo     = "info"
	MethodReload   = "reload"
	MethodShutdown = "shutdown"
)

// Request is the wire format for client-to-server messages.
type Request struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// Response is the wire format for server-to-client messages.
type Response struct {
	ID     string `json:"id"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// TagParams is the params for a tag request.
type TagParams = ports.TagRequest

// TagResult is the result of a tag request.
type TagResult = ports.TagResponse

// HealthResult is the result of a health request.
type HealthResult struct {
	Status     string `json:"status"`
	Dictionary string `json:"dictionary"`
	Phrases    int    `json:"phrases"`
	Uptime     string `json:"uptime"`
}

// InfoResult describes the dictionary the daemon is serving.
type InfoResult struct {
	Dictionary ports.DictionaryMeta `json:"dictionary"`
	Sources    []string             `json:"sources"`
	Watching   bool                 `json:"watching"`
	Builds     int                  `json:"builds"`
}

// ReloadResult is the result of a reload request.
type ReloadResult struct {
	Records    int   `json:"records"`
	Phrases    int   `json:"phrases"`
	Skipped    int   `json:"skipped"`
	DurationMs int64 `json:"duration_ms"`
}
