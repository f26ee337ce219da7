package tagger

import "github.com/corey/tagger/internal/ports"

// Cursor walks one path through a phrase automaton. It is a value: copying
// a Cursor forks the walk, and no two candidates ever share one.
type Cursor struct {
	fst   ports.PhraseAutomaton
	state ports.PhraseState
}

// FromRoot returns a cursor positioned at the automaton's root.
func FromRoot(fst ports.PhraseAutomaton) Cursor {
	return Cursor{fst: fst, state: fst.Start()}
}

// Step advances the cursor by one word. On failure the cursor is left
// unchanged and false is returned.
func (c *Cursor) Step(word ports.WordID) bool {
	if word == ports.UnknownWord {
		return false
	}
	next, ok := c.fst.Step(c.state, word)
	if !ok {
		return false
	}
	c.state = next
	return true
}

// HasPayload reports whether the words consumed so far form a complete phrase.
func (c *Cursor) HasPayload() bool {
	_, ok := c.fst.Payload(c.state)
	return ok
}

// Payload returns the value of the phrase completed at the current state.
// It is only meaningful when HasPayload is true.
func (c *Cursor) Payload() uint64 {
	v, _ := c.fst.Payload(c.state)
	return v
}

// State returns the raw automaton state.
func (c *Cursor) State() ports.PhraseState {
	return c.state
}
