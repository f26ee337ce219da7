package tagger

import (
	"fmt"
	"strings"
)

// AltMode controls tokens with a position increment of 0.
type AltMode int

const (
	// AltBranch forks every candidate that was live before the position and
	// tries the alternate word as another continuation.
	AltBranch AltMode = iota
	// AltSkip drops alternate tokens.
	AltSkip
	// AltReject fails the document with ErrAlternateToken.
	AltReject
)

var altModeNames = map[AltMode]string{
	AltBranch: "branch",
	AltSkip:   "skip",
	AltReject: "reject",
}

func (m AltMode) String() string {
	if s, ok := altModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("AltMode(%d)", int(m))
}

// ParseAltMode parses "branch", "skip" or "reject". Empty means AltBranch.
func ParseAltMode(s string) (AltMode, error) {
	if s == "" {
		return AltBranch, nil
	}
	for m, name := range altModeNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAltMode, s)
}

// GapMode controls tokens with a position increment greater than 1, which
// appear when the analyzer removed words (stopwords) in between.
type GapMode int

const (
	// GapReject fails the document with ErrPositionGap.
	GapReject GapMode = iota
	// GapBreak finishes every live candidate at the gap: no phrase spans it.
	GapBreak
	// GapIgnore treats the token as if it directly followed the previous one.
	GapIgnore
)

var gapModeNames = map[GapMode]string{
	GapReject: "reject",
	GapBreak:  "break",
	GapIgnore: "ignore",
}

func (m GapMode) String() string {
	if s, ok := gapModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("GapMode(%d)", int(m))
}

// ParseGapMode parses "reject", "break" or "ignore". Empty means GapReject.
func ParseGapMode(s string) (GapMode, error) {
	if s == "" {
		return GapReject, nil
	}
	for m, name := range gapModeNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownGapMode, s)
}

// Options configures a Tagger.
type Options struct {
	Overlaps  Policy
	AltTokens AltMode
	Gaps      GapMode

	// TagsLimit caps the number of emitted tags. 0 means unlimited. Matching
	// continues after the cap; further tags are dropped silently.
	TagsLimit int

	// MaxCandidates caps live candidates. 0 means unlimited. New candidates
	// are not started while the cap is reached.
	MaxCandidates int

	// Emit receives every accepted tag, in non-decreasing End order.
	Emit func(Tag)
}
