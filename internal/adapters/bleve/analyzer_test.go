package bleve

import (
	"testing"

	"github.com/corey/tagger/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// bleve Analyzer: byte offsets, position increments, taggable flags
// =============================================================================

func terms(toks []ports.Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Term
	}
	return out
}

func TestAnalyzer_OffsetsAndLowercase(t *testing.T) {
	a, err := NewAnalyzer(Options{})
	require.NoError(t, err)

	text := "City of London"
	toks := a.Analyze(text)
	require.Len(t, toks, 3)
	assert.Equal(t, []string{"city", "of", "london"}, terms(toks))
	for _, tok := range toks {
		assert.Equal(t, 1, tok.PosInc)
		assert.True(t, tok.Taggable)
	}
	assert.Equal(t, "London", text[toks[2].Start:toks[2].End])
}

func TestAnalyzer_ByteOffsetsWithMultibyte(t *testing.T) {
	a, err := NewAnalyzer(Options{})
	require.NoError(t, err)

	text := "Zürich café"
	toks := a.Analyze(text)
	require.Len(t, toks, 2)
	assert.Equal(t, "Zürich", text[toks[0].Start:toks[0].End])
	assert.Equal(t, "café", text[toks[1].Start:toks[1].End])
}

func TestAnalyzer_StopwordsLeaveGaps(t *testing.T) {
	a, err := NewAnalyzer(Options{Stopwords: true})
	require.NoError(t, err)

	toks := a.Analyze("The Bank of America")
	require.Len(t, toks, 2)
	assert.Equal(t, []string{"bank", "america"}, terms(toks))
	assert.Equal(t, 1, toks[0].PosInc, "leading stopword is not a gap")
	assert.Equal(t, 2, toks[1].PosInc)
}

func TestAnalyzer_StripMarkupKeepsOffsets(t *testing.T) {
	a, err := NewAnalyzer(Options{StripMarkup: true})
	require.NoError(t, err)

	text := "<p>New <b>York</b></p>"
	toks := a.Analyze(text)
	require.Len(t, toks, 2)
	assert.Equal(t, []string{"new", "york"}, terms(toks))
	assert.Equal(t, "York", text[toks[1].Start:toks[1].End])
}

func TestAnalyzer_MinTaggableLen(t *testing.T) {
	a, err := NewAnalyzer(Options{MinTaggableLen: 3})
	require.NoError(t, err)

	toks := a.Analyze("in New York")
	require.Len(t, toks, 3)
	assert.False(t, toks[0].Taggable)
	assert.True(t, toks[1].Taggable)
	assert.True(t, toks[2].Taggable)
}

func TestAnalyzer_Stem(t *testing.T) {
	a, err := NewAnalyzer(Options{Stem: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"run", "citi"}, terms(a.Analyze("running cities")))
}

func TestAnalyzer_Empty(t *testing.T) {
	a, err := NewAnalyzer(Options{})
	require.NoError(t, err)
	assert.Empty(t, a.Analyze(""))
	assert.Empty(t, a.Analyze("  ,;  "))
}
