package offsets

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMarkup is returned for an unrecognised markup name.
var ErrUnknownMarkup = errors.New("unknown markup")

// Markup names the structure of an input document.
type Markup string

const (
	MarkupNone Markup = "none"
	MarkupXML  Markup = "xml"
	MarkupHTML Markup = "html"
)

// ParseMarkup parses "none", "xml" or "html". Empty means none.
func ParseMarkup(s string) (Markup, error) {
	switch m := Markup(strings.ToLower(s)); m {
	case "":
		return MarkupNone, nil
	case MarkupNone, MarkupXML, MarkupHTML:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMarkup, s)
}

// For pre-parses doc according to m. It returns nil, nil for MarkupNone.
func For(m Markup, doc string, nonTaggable []string) (*Corrector, error) {
	switch m {
	case MarkupXML:
		return NewXML(doc, nonTaggable...)
	case MarkupHTML:
		return NewHTML(doc, nonTaggable...), nil
	case MarkupNone, "":
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMarkup, m)
}
