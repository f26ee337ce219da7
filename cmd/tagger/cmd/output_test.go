package cmd

import (
	"testing"

	"github.com/corey/tagger/internal/adapters/socket"
	"github.com/corey/tagger/internal/app"
	"github.com/corey/tagger/internal/ports"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Terminal formatting, with color off so output is plain text
// =============================================================================

func noColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestFormatTags(t *testing.T) {
	noColor(t)
	text := "City of London Business School"
	resp := &ports.TagResponse{
		TagsCount: 2,
		Tags: []ports.TagHit{
			{Start: 0, End: 14, IDs: []string{"C1"}},
			{Start: 8, End: 30, IDs: []string{"B1"}},
		},
		Records:    []string{"C1"},
		NumRecords: 2,
	}
	out := formatTags(text, resp)
	assert.Contains(t, out, "⚡ 2 tags │ 2 records")
	assert.Contains(t, out, "[0-14]")
	assert.Contains(t, out, "City of London          C1")
	assert.Contains(t, out, "London Business School  B1")
	assert.Contains(t, out, "records: C1 (+1 more)")
}

func TestFormatTags_MatchTextIsSingleLine(t *testing.T) {
	noColor(t)
	resp := &ports.TagResponse{
		TagsCount: 1,
		Tags:      []ports.TagHit{{Start: 0, End: 12, MatchText: "New\n  York", IDs: []string{"NY"}}},
	}
	out := formatTags("", resp)
	assert.Contains(t, out, "New York  NY")
	assert.NotContains(t, out, "records:")
}

func TestFormatInfo(t *testing.T) {
	noColor(t)
	out := formatInfo(&socket.InfoResult{})
	assert.Contains(t, out, "no dictionary loaded")
	assert.Contains(t, out, "Watching:     off")

	out = formatInfo(&socket.InfoResult{
		Dictionary: ports.DictionaryMeta{Name: "places", Records: 4, Phrases: 3, Fingerprint: "abc"},
		Sources:    []string{"/data/places.yaml"},
		Watching:   true,
		Builds:     2,
	})
	assert.Contains(t, out, "⚡ dictionary places")
	assert.Contains(t, out, "Phrases:      3")
	assert.Contains(t, out, "Source:       /data/places.yaml")
	assert.Contains(t, out, "Watching:     on")
	assert.Contains(t, out, "Builds:       2")
}

func TestFormatHealthAndBuild(t *testing.T) {
	noColor(t)
	out := formatHealth(&socket.HealthResult{Status: "ok", Phrases: 3, Uptime: "1m0s"})
	assert.Contains(t, out, "Status:      ok")
	assert.Contains(t, out, "Dictionary:  none loaded")

	out = formatBuild("places", &socket.ReloadResult{Records: 4, Phrases: 3, Skipped: 1, DurationMs: 1500})
	assert.Contains(t, out, "dictionary places built")
	assert.Contains(t, out, "Skipped:  1 names")
	assert.Contains(t, out, "Took:     1.5s")
}

func TestFormatVerify(t *testing.T) {
	noColor(t)
	assert.Contains(t, formatVerify(&app.VerifyReport{Tokens: 9, Tagged: 4, Scanned: 4}), "✓ 4 occurrences agree │ 9 tokens")

	out := formatVerify(&app.VerifyReport{
		Tokens: 3, Tagged: 0, Scanned: 1,
		Missing: []app.Span{{Start: 0, End: 6, Text: "London"}},
	})
	assert.Contains(t, out, "✗ tagger 0, scan 1")
	assert.Contains(t, out, "missing  [0-6]  London")
}

func TestResolveColor(t *testing.T) {
	assert.False(t, resolveColor("always", true))
	assert.True(t, resolveColor("always", false))
	assert.False(t, resolveColor("never", false))
}

func TestReadInput(t *testing.T) {
	text, err := readInput([]string{"City", "of", "London"}, "")
	assert.NoError(t, err)
	assert.Equal(t, "City of London", text)

	_, err = readInput(nil, "/nonexistent/input.txt")
	assert.Error(t, err)
}
