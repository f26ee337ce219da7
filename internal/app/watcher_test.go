package app

import (
	"context"
	"testing"
	"time"

	"github.com/corey/tagger/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Source watching: a changed record file rebuilds the dictionary in place
// =============================================================================

func TestApp_WatcherRebuildsOnChange(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "places.yaml", londonRecords)
	cfg := testConfig(t, dir, src)
	cfg.Daemon.Watch = true
	cfg.Daemon.Debounce = 20 * time.Millisecond
	a := newTestApp(t, cfg)
	require.NoError(t, a.Start())
	defer a.Stop()
	require.True(t, a.Info().Watching)

	writeSource(t, dir, "places.yaml", londonRecords+"- id: P1\n  names: [\"Paris\"]\n")

	require.Eventually(t, func() bool {
		resp, err := a.Tag(context.Background(), ports.TagRequest{Text: "Paris"})
		return err == nil && resp.TagsCount == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, a.Info().Builds, 2)
}

func TestOnSourceChanged_FailedRebuildKeepsDictionary(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "places.yaml", londonRecords)
	a := newTestApp(t, testConfig(t, dir, src))
	defer a.Close()

	writeSource(t, dir, "places.yaml", "- id: [unclosed\n")
	a.onSourceChanged(src)
	assert.Equal(t, 1, a.Info().Builds)

	resp, err := a.Tag(context.Background(), ports.TagRequest{Text: "London"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TagsCount)

	writeSource(t, dir, "places.yaml", "- id: P1\n  names: [\"Paris\"]\n")
	a.onSourceChanged(src)
	assert.Equal(t, 2, a.Info().Builds)

	resp, err = a.Tag(context.Background(), ports.TagRequest{Text: "London"})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.TagsCount)
}

func TestApp_NoWatcherWithoutSources(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Daemon.Watch = true
	a := newTestApp(t, cfg)
	require.NoError(t, a.Start())
	defer a.Stop()
	assert.Nil(t, a.Watcher)
	assert.False(t, a.Info().Watching)
}
