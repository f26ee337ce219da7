package ports

import "errors"

// Request errors shared by the service and its transports.
var (
	// ErrNoDictionary is returned when a request arrives before any
	// dictionary was loaded or built.
	ErrNoDictionary = errors.New("no dictionary loaded")

	// ErrNegativeRows is returned for a request asking for fewer than zero rows.
	ErrNegativeRows = errors.New("rows must not be negative")
)

// TagRequest asks the tagging service to find dictionary phrases in Text.
// Zero values select the service defaults.
type TagRequest struct {
	Text string `json:"text"`

	// Overlaps names the cluster reduction policy: ALL, NO_SUB or
	// LONGEST_DOMINANT_RIGHT.
	Overlaps  string `json:"overlaps,omitempty"`
	TagsLimit int    `json:"tagsLimit,omitempty"`
	MatchText bool   `json:"matchText,omitempty"`

	// Markup is none, xml or html. With markup set, tag spans are moved
	// onto element boundaries and tags that cannot be balanced are dropped.
	Markup      string   `json:"markup,omitempty"`
	NonTaggable []string `json:"nonTaggableTags,omitempty"`

	// Filter restricts matches to phrases carried by at least one of these
	// record ids. Empty means no restriction.
	Filter []string `json:"filter,omitempty"`

	// Rows caps the matched record ids returned. Nil selects the default;
	// zero returns tags only.
	Rows *int `json:"rows,omitempty"`
}

// TagHit is one emitted tag.
type TagHit struct {
	Start     int      `json:"startOffset"`
	End       int      `json:"endOffset"`
	MatchText string   `json:"matchText,omitempty"`
	IDs       []string `json:"ids"`
}

// TagResponse is the result of one tagging request.
type TagResponse struct {
	TagsCount int      `json:"tagsCount"`
	Tags      []TagHit `json:"tags"`

	// Records is the union of every tag's ids in record order, capped at
	// the requested rows.
	Records    []string `json:"records"`
	NumRecords int      `json:"numRecords"`
}
