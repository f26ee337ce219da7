package tagger

import "errors"

// Input-contract violations. Each one is fatal for the current document.
var (
	ErrOffsetRegression          = errors.New("token start offset decreased")
	ErrZeroLengthToken           = errors.New("zero-length token")
	ErrNegativePositionIncrement = errors.New("negative position increment")
	ErrAlternateToken            = errors.New("alternate token (position increment 0) not allowed")
	ErrPositionGap               = errors.New("position gap (position increment > 1) not allowed")
)

// Configuration errors, raised before any token is processed.
var (
	ErrUnknownPolicy  = errors.New("unknown overlap policy")
	ErrUnknownAltMode = errors.New("unknown alternate token mode")
	ErrUnknownGapMode = errors.New("unknown position gap mode")
	ErrNoAutomaton    = errors.New("phrase automaton required")
)

// ErrFinished is returned when tokens are added after Finish without Reset.
var ErrFinished = errors.New("tagger already finished")
