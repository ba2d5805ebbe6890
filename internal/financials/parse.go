package financials

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// element is one markup element flattened out of the document tree: its
// namespace-stripped local name and its concatenated text content.
type element struct {
	localName string
	text      string
}

// parseDocument runs the two-stage parse-attempt chain: a tolerant HTML parse
// first, then a generic XML token scan. Either stage succeeding yields the
// flattened element list; both failing reports no parse.
func parseDocument(content []byte) ([]element, bool) {
	if els, err := parseHTML(content); err == nil && len(els) > 0 {
		return els, true
	}
	if els, err := parseXML(content); err == nil && len(els) > 0 {
		return els, true
	}
	return nil, false
}

func parseHTML(content []byte) ([]element, error) {
	root, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	var out []element
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			out = append(out, element{
				localName: localName(n.Data),
				text:      strings.TrimSpace(textContent(n)),
			})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out, nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func parseXML(content []byte) ([]element, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))
	decoder.Strict = false

	var out []element
	// Index into out of each currently open element, so nested text still
	// accumulates on every ancestor.
	var open []int
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			out = append(out, element{localName: t.Name.Local})
			open = append(open, len(out)-1)
		case xml.EndElement:
			if len(open) > 0 {
				idx := open[len(open)-1]
				out[idx].text = strings.TrimSpace(out[idx].text)
				open = open[:len(open)-1]
			}
		case xml.CharData:
			for _, idx := range open {
				out[idx].text += string(t)
			}
		}
	}
	if len(open) > 0 {
		return nil, errors.New("unbalanced markup")
	}
	return out, nil
}

// localName strips any namespace prefix from a raw element name.
func localName(name string) string {
	if idx := strings.LastIndex(name, ":"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

// parseNumber interprets an element's text as a numeric figure, tolerating
// thousands separators. Garbage reports false so the caller can move on to
// the next candidate tag.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
