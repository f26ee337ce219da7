package offsets

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// NewXML pre-parses a well-formed XML document. Elements named in
// nonTaggable, with everything inside them, can never be part of a tag.
func NewXML(doc string, nonTaggable ...string) (*Corrector, error) {
	b := newBuilder(doc, nonTaggable)
	d := xml.NewDecoder(strings.NewReader(doc))
	rooted := false

	for {
		begin := int(d.InputOffset())
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
		}
		end := int(d.InputOffset())

		switch t := tok.(type) {
		case xml.StartElement:
			if len(b.stack) == 0 {
				if rooted {
					return nil, fmt.Errorf("%w: second root element <%s> at offset %d", ErrMalformedXML, t.Name.Local, begin)
				}
				rooted = true
			}
			b.markup(begin, end)
			b.open(t.Name.Local, begin, end)
		case xml.EndElement:
			// a self-closing element yields an end token that consumed no input
			b.markup(begin, end)
			b.close(begin, end)
		case xml.CharData:
			if len(b.stack) == 0 && len(strings.TrimSpace(string(t))) > 0 {
				return nil, fmt.Errorf("%w: text outside the root element at offset %d", ErrMalformedXML, begin)
			}
		case xml.Comment, xml.ProcInst, xml.Directive:
			b.markup(begin, end)
		}
	}
	if len(b.stack) > 0 {
		return nil, fmt.Errorf("%w: unclosed element <%s>", ErrMalformedXML, b.names[len(b.names)-1])
	}
	if !rooted {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedXML)
	}
	return b.finish(), nil
}
