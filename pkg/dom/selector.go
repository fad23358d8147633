package dom

import "strings"

// simpleSelector is one compound selector: optional tag, ids, classes,
// and attribute requirements. Combinators are not supported; the runtime
// only needs to pick host elements out of a patched subtree.
type simpleSelector struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
}

type attrMatch struct {
	key      string
	value    string
	hasValue bool
}

// parseSelectorList splits a comma-separated selector string into compound
// selectors. Malformed pieces are ignored rather than rejected.
func parseSelectorList(src string) []simpleSelector {
	var out []simpleSelector
	for _, part := range strings.Split(src, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if sel, ok := parseSimple(part); ok {
			out = append(out, sel)
		}
	}
	return out
}

func parseSimple(src string) (simpleSelector, bool) {
	var sel simpleSelector
	i := 0
	for i < len(src) {
		switch src[i] {
		case '#':
			tok, next := readIdent(src, i+1)
			if tok == "" {
				return sel, false
			}
			sel.id = tok
			i = next
		case '.':
			tok, next := readIdent(src, i+1)
			if tok == "" {
				return sel, false
			}
			sel.classes = append(sel.classes, tok)
			i = next
		case '[':
			end := strings.IndexByte(src[i:], ']')
			if end < 0 {
				return sel, false
			}
			body := src[i+1 : i+end]
			i += end + 1
			key, value, hasValue := strings.Cut(body, "=")
			key = strings.TrimSpace(key)
			if key == "" {
				return sel, false
			}
			value = strings.Trim(strings.TrimSpace(value), `"'`)
			sel.attrs = append(sel.attrs, attrMatch{key: key, value: value, hasValue: hasValue})
		default:
			tok, next := readIdent(src, i)
			if tok == "" || sel.tag != "" {
				return sel, false
			}
			sel.tag = strings.ToLower(tok)
			i = next
		}
	}
	return sel, true
}

func readIdent(src string, start int) (string, int) {
	i := start
	for i < len(src) {
		c := src[i]
		if c == '#' || c == '.' || c == '[' {
			break
		}
		i++
	}
	return src[start:i], i
}

func (sel simpleSelector) matches(n *Node) bool {
	if n.Type != ElementNode {
		return false
	}
	if sel.tag != "" && sel.tag != "*" && n.Tag != sel.tag {
		return false
	}
	if sel.id != "" {
		if id, ok := n.Attr("id"); !ok || id != sel.id {
			return false
		}
	}
	if len(sel.classes) > 0 {
		class, _ := n.Attr("class")
		have := strings.Fields(class)
		for _, want := range sel.classes {
			found := false
			for _, c := range have {
				if c == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	for _, am := range sel.attrs {
		v, ok := n.Attr(am.key)
		if !ok {
			return false
		}
		if am.hasValue && v != am.value {
			return false
		}
	}
	return true
}

// Matches reports whether n matches any compound selector in the
// comma-separated selector string.
func Matches(n *Node, selector string) bool {
	for _, sel := range parseSelectorList(selector) {
		if sel.matches(n) {
			return true
		}
	}
	return false
}

// QuerySelectorAll returns every descendant of root (excluding root
// itself) matching the selector string, in document order.
func QuerySelectorAll(root *Node, selector string) []*Node {
	sels := parseSelectorList(selector)
	if len(sels) == 0 {
		return nil
	}
	var out []*Node
	root.Walk(func(n *Node) {
		if n == root {
			return
		}
		for _, sel := range sels {
			if sel.matches(n) {
				out = append(out, n)
				return
			}
		}
	})
	return out
}

// QuerySelector returns the first descendant of root matching the selector
// string, or nil.
func QuerySelector(root *Node, selector string) *Node {
	// Full scan is fine at the tree sizes the runtime works with.
	all := QuerySelectorAll(root, selector)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}
