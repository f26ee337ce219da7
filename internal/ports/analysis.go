package ports

// Token is one analyzed word of input text.
//
// Offsets are byte offsets into the analyzed text; End is one past the last
// byte. PosInc is the distance to the previous token's position: 1 for the
// next word, 0 for an alternate at the same position, >1 when words were
// removed in between.
type Token struct {
	Term     string
	Start    int
	End      int
	PosInc   int
	Taggable bool
}

// Analyzer splits text into tokens. Implementations must be safe for
// concurrent use.
type Analyzer interface {
	Analyze(text string) []Token
}

// Record is one dictionary source entry: an id and the names it is known by.
type Record struct {
	ID    string   `json:"id" yaml:"id"`
	Names []string `json:"names" yaml:"names"`
}
