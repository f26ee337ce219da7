package tagger

import "github.com/corey/tagger/internal/ports"

// Token is one word of the input feed as the tagger sees it.
type Token struct {
	Word     ports.WordID // ports.UnknownWord when not in the vocabulary
	Start    int
	End      int
	PosInc   int
	Taggable bool
}

// Tag is an accepted match: the byte span [Start, End) and the opaque value
// of the dictionary phrase it matched.
type Tag struct {
	Start int
	End   int
	Value uint64
}

func (t Tag) len() int { return t.End - t.Start }

func (t Tag) span() [2]int { return [2]int{t.Start, t.End} }

func (t Tag) contains(o Tag) bool {
	return t.Start <= o.Start && t.End >= o.End
}

func (t Tag) overlaps(o Tag) bool {
	return t.Start < o.End && o.Start < t.End
}
