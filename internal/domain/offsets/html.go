package offsets

import (
	"strings"

	"golang.org/x/net/html"
)

// voidElements never have content or an end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "keygen": true, "link": true,
	"meta": true, "param": true, "source": true, "track": true, "wbr": true,
}

// NewHTML pre-parses an HTML document leniently; it never fails. Void and
// self-closing elements are ignored. An end tag closes the nearest open
// element of the same name, closing any element opened inside it with zero
// width at the end tag; end tags with no open match are ignored. Elements
// still open at the end of input close there.
//
// Elements named in nonTaggable, with everything inside them, can never be
// part of a tag.
func NewHTML(doc string, nonTaggable ...string) *Corrector {
	b := newBuilder(doc, nonTaggable)
	z := html.NewTokenizer(strings.NewReader(doc))

	off := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		begin := off
		off += len(z.Raw())

		if tt != html.TextToken {
			b.markup(begin, off)
		}

		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			if voidElements[string(name)] {
				continue
			}
			b.open(string(name), begin, off)
		case html.EndTagToken:
			name, _ := z.TagName()
			i := b.find(string(name))
			if i < 0 {
				continue
			}
			for len(b.stack)-1 > i {
				b.close(begin, begin)
			}
			b.close(begin, off)
		}
	}

	for len(b.stack) > 0 {
		b.close(len(doc), len(doc))
	}
	return b.finish()
}
