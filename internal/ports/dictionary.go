// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

// WordID is the vocabulary surrogate for a distinct word.
type WordID uint32

// UnknownWord marks a token whose word is not in the vocabulary. It never
// starts or extends a phrase.
const UnknownWord WordID = ^WordID(0)

// PhraseState is a position inside a phrase automaton. It is a plain value:
// copying it forks the walk, so two candidates never share one.
type PhraseState struct {
	Node int    // adapter-specific node address
	Acc  uint64 // output accumulated along the path so far
}

// PhraseAutomaton is a deterministic finite-state dictionary keyed by
// ordered sequences of word ids.
//
// Implementations are read-only during tagging and must be safe for
// concurrent use by many independent walks.
type PhraseAutomaton interface {
	// Start returns the root state.
	Start() PhraseState

	// Step advances s by one word. ok is false when no phrase continues
	// with word from s.
	Step(s PhraseState, word WordID) (next PhraseState, ok bool)

	// Payload reports whether s completes a phrase, and its opaque value.
	Payload(s PhraseState) (value uint64, ok bool)
}

// Vocabulary maps words to their ids. A miss is not an error.
type Vocabulary interface {
	LookupWord(word []byte) (WordID, bool)
}

// Resolver turns an opaque phrase value into the ordered ids of the records
// that carry the phrase.
type Resolver interface {
	Resolve(value uint64) []string
}

// Dictionary is the full lookup surface the tagging service needs.
type Dictionary interface {
	Vocabulary
	PhraseAutomaton
	Resolver
}

// DictionaryMeta describes a built dictionary.
type DictionaryMeta struct {
	Name           string `json:"name"`
	Source         string `json:"source"`
	Records        int    `json:"records"`
	Words          int    `json:"words"`
	Phrases        int    `json:"phrases"`
	Skipped        int    `json:"skipped"`
	PartialMatches bool   `json:"partial_matches"`
	BuiltAt        int64  `json:"built_at"`
	SourceModTime  int64  `json:"source_mod_time"`

	// Fingerprint identifies the sources and analysis settings the
	// dictionary was built with. A mismatch means it must be rebuilt.
	Fingerprint string `json:"fingerprint"`
}
