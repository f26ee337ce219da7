package socket

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/tagger/internal/ports"
)

// =============================================================================
// Unix socket daemon: JSON-over-socket protocol for tag, health, info, reload
// and shutdown.
// =============================================================================

// fakeHandler tags every occurrence of "london" and counts reloads.
type fakeHandler struct {
	mu      sync.Mutex
	reloads int
}

func (h *fakeHandler) Tag(_ context.Context, req ports.TagRequest) (*ports.TagResponse, error) {
	if req.Overlaps == "BOGUS" {
		return nil, errors.New("unknown overlap policy: BOGUS")
	}
	resp := &ports.TagResponse{Tags: []ports.TagHit{}, Records: []string{}}
	text := strings.ToLower(req.Text)
	for off := 0; ; {
		i := strings.Index(text[off:], "london")
		if i < 0 {
			break
		}
		hit := ports.TagHit{Start: off + i, End: off + i + 6, IDs: []string{"gb-lon"}}
		if req.MatchText {
			hit.MatchText = req.Text[hit.Start:hit.End]
		}
		resp.Tags = append(resp.Tags, hit)
		off = hit.End
	}
	resp.TagsCount = len(resp.Tags)
	if resp.TagsCount > 0 {
		resp.Records = []string{"gb-lon"}
		resp.NumRecords = 1
	}
	return resp, nil
}

func (h *fakeHandler) Info() InfoResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	return InfoResult{
		Dictionary: ports.DictionaryMeta{Name: "places", Records: 1, Phrases: 3},
		Sources:    []string{"places.yaml"},
		Builds:     h.reloads,
	}
}

func (h *fakeHandler) Reload(context.Context) (*ReloadResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reloads++
	return &ReloadResult{Records: 1, Phrases: 3}, nil
}

// testSocketPath returns a unique socket path for a test.
func testSocketPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.sock")
}

func startServer(t *testing.T, h Handler) (*Server, *Client) {
	t.Helper()
	sockPath := testSocketPath(t)
	srv := NewServer(h, sockPath, nil)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })
	return srv, NewClient(sockPath)
}

func TestServer_TagRoundtrip(t *testing.T) {
	_, client := startServer(t, &fakeHandler{})

	result, err := client.Tag(ports.TagRequest{Text: "City of London, London", MatchText: true})
	require.NoError(t, err)
	require.Equal(t, 2, result.TagsCount)
	assert.Equal(t, 8, result.Tags[0].Start)
	assert.Equal(t, 14, result.Tags[0].End)
	assert.Equal(t, "London", result.Tags[0].MatchText)
	assert.Equal(t, []string{"gb-lon"}, result.Tags[1].IDs)
	assert.Equal(t, []string{"gb-lon"}, result.Records)

	result, err = client.Tag(ports.TagRequest{Text: "nothing here"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.TagsCount)
	assert.Empty(t, result.Tags)
}

func TestServer_TagError(t *testing.T) {
	_, client := startServer(t, &fakeHandler{})

	_, err := client.Tag(ports.TagRequest{Text: "London", Overlaps: "BOGUS"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown overlap policy")
}

func TestServer_Health(t *testing.T) {
	_, client := startServer(t, &fakeHandler{})

	health, err := client.Health()
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "places", health.Dictionary)
	assert.Equal(t, 3, health.Phrases)
	assert.NotEmpty(t, health.Uptime)
}

func TestServer_InfoAndReload(t *testing.T) {
	_, client := startServer(t, &fakeHandler{})

	reload, err := client.Reload()
	require.NoError(t, err)
	assert.Equal(t, 3, reload.Phrases)

	info, err := client.Info()
	require.NoError(t, err)
	assert.Equal(t, "places", info.Dictionary.Name)
	assert.Equal(t, []string{"places.yaml"}, info.Sources)
	assert.Equal(t, 1, info.Builds)
}

func TestServer_UnknownMethod(t *testing.T) {
	_, client := startServer(t, &fakeHandler{})

	_, err := client.call("grep", nil, 5*time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown method: grep")
}

func TestServer_Shutdown(t *testing.T) {
	sockPath := testSocketPath(t)
	srv := NewServer(&fakeHandler{}, sockPath, nil)
	require.NoError(t, srv.Start())

	client := NewClient(sockPath)

	// Verify it's running
	assert.True(t, client.Ping())

	// Send shutdown request; this closes shutdownCh (signals the daemon).
	require.NoError(t, client.Shutdown())

	select {
	case <-srv.ShutdownCh():
	default:
		t.Fatal("ShutdownCh should be closed after Shutdown request")
	}

	// The daemon is responsible for calling Stop() after receiving the signal.
	srv.Stop()
	srv.Stop()

	_, err := os.Stat(sockPath)
	assert.True(t, os.IsNotExist(err), "socket file should be removed after shutdown")
	assert.False(t, client.Ping())
}

func TestServer_ConcurrentClients(t *testing.T) {
	_, client := startServer(t, &fakeHandler{})

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	// 10 clients x 10 requests each
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := NewClient(client.sockPath)
			for j := 0; j < 10; j++ {
				result, err := c.Tag(ports.TagRequest{Text: "london to london"})
				if err != nil {
					errs <- err
					return
				}
				if result.TagsCount != 2 {
					errs <- assert.AnError
					return
				}
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent client error: %v", err)
	}
}

func TestServer_StaleSocket(t *testing.T) {
	sockPath := testSocketPath(t)

	// Create a stale socket file (not a real listener)
	require.NoError(t, os.WriteFile(sockPath, []byte("stale"), 0600))

	srv := NewServer(&fakeHandler{}, sockPath, nil)
	require.NoError(t, srv.Start(), "should replace stale socket")
	defer srv.Stop()

	health, err := NewClient(sockPath).Health()
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
}

func TestServer_AlreadyRunning(t *testing.T) {
	srv, _ := startServer(t, &fakeHandler{})

	second := NewServer(&fakeHandler{}, srv.Addr(), nil)
	err := second.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestSocketPath(t *testing.T) {
	a := SocketPath("/var/lib/tagger/tagger.db")
	b := SocketPath("/var/lib/tagger/other.db")
	assert.True(t, strings.HasPrefix(a, "/tmp/tagger-"))
	assert.True(t, strings.HasSuffix(a, ".sock"))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, SocketPath("/var/lib/tagger/tagger.db"))
}
