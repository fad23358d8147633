package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseFragment parses an HTML fragment string in body context and returns
// the resulting top-level nodes. Comments and doctypes are dropped; the
// parser follows the HTML5 fragment parsing algorithm, so entities are
// decoded and raw-text elements (style, script) keep their content verbatim.
//
// An empty string yields an empty slice and no error.
func ParseFragment(src string) ([]*Node, error) {
	if src == "" {
		return nil, nil
	}

	ctx := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	parsed, err := html.ParseFragment(strings.NewReader(src), ctx)
	if err != nil {
		return nil, err
	}

	var nodes []*Node
	for _, p := range parsed {
		if n := convert(p); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

// convert maps an html.Node subtree onto the live node type.
func convert(src *html.Node) *Node {
	switch src.Type {
	case html.ElementNode:
		n := NewElement(src.Data)
		for _, a := range src.Attr {
			n.SetAttr(a.Key, a.Val)
		}
		for c := src.FirstChild; c != nil; c = c.NextSibling {
			if child := convert(c); child != nil {
				n.AppendChild(child)
			}
		}
		return n
	case html.TextNode:
		return NewText(src.Data)
	default:
		// Comments, doctypes, and document wrappers carry no rendered
		// content.
		return nil
	}
}
