package dom

import "strings"

// NodeType is the node type discriminator.
type NodeType uint8

const (
	ElementNode NodeType = iota + 1
	TextNode
)

// String returns the string representation of the NodeType.
func (t NodeType) String() string {
	switch t {
	case ElementNode:
		return "Element"
	case TextNode:
		return "Text"
	default:
		return "Unknown"
	}
}

// Attr is a single attribute. Order is preserved on the element.
type Attr struct {
	Key   string
	Value string
}

// Node is a live document node. Element nodes carry a tag, attributes,
// properties, and children; text nodes carry only a text payload.
type Node struct {
	Type NodeType
	Tag  string // lower-case tag name, element nodes only
	Text string // payload, text nodes only

	Parent      *Node
	FirstChild  *Node
	LastChild   *Node
	PrevSibling *Node
	NextSibling *Node

	attrs []Attr

	// props holds live element properties (value, checked, selected, ...)
	// which can diverge from their attributes through user interaction.
	props map[string]any

	listeners []listenerEntry
}

// NewElement creates a detached element node.
func NewElement(tag string) *Node {
	return &Node{Type: ElementNode, Tag: strings.ToLower(tag)}
}

// NewText creates a detached text node.
func NewText(text string) *Node {
	return &Node{Type: TextNode, Text: text}
}

// IsElement reports whether this is an element node.
func (n *Node) IsElement() bool { return n != nil && n.Type == ElementNode }

// IsText reports whether this is a text node.
func (n *Node) IsText() bool { return n != nil && n.Type == TextNode }

// Detach removes n from its parent, if any. n keeps its subtree.
func (n *Node) Detach() {
	p := n.Parent
	if p == nil {
		return
	}
	if n.PrevSibling != nil {
		n.PrevSibling.NextSibling = n.NextSibling
	} else {
		p.FirstChild = n.NextSibling
	}
	if n.NextSibling != nil {
		n.NextSibling.PrevSibling = n.PrevSibling
	} else {
		p.LastChild = n.PrevSibling
	}
	n.Parent = nil
	n.PrevSibling = nil
	n.NextSibling = nil
}

// AppendChild appends c as the last child of n, detaching it from any
// previous parent first.
func (n *Node) AppendChild(c *Node) {
	c.Detach()
	c.Parent = n
	c.PrevSibling = n.LastChild
	if n.LastChild != nil {
		n.LastChild.NextSibling = c
	} else {
		n.FirstChild = c
	}
	n.LastChild = c
}

// InsertBefore inserts c immediately before ref among n's children.
// A nil ref appends. If c is already attached anywhere (including under n),
// it is detached first, so InsertBefore doubles as an identity-preserving
// move.
func (n *Node) InsertBefore(c, ref *Node) {
	if c == ref {
		return
	}
	if ref == nil {
		n.AppendChild(c)
		return
	}
	c.Detach()
	c.Parent = n
	c.NextSibling = ref
	c.PrevSibling = ref.PrevSibling
	if ref.PrevSibling != nil {
		ref.PrevSibling.NextSibling = c
	} else {
		n.FirstChild = c
	}
	ref.PrevSibling = c
}

// RemoveChild detaches c from n. It is a no-op if c is not a child of n.
func (n *Node) RemoveChild(c *Node) {
	if c == nil || c.Parent != n {
		return
	}
	c.Detach()
}

// RemoveAll detaches every child of n.
func (n *Node) RemoveAll() {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}

// HasChildren reports whether n has any child nodes.
func (n *Node) HasChildren() bool {
	return n.FirstChild != nil
}

// Children returns an indexed snapshot of n's current children.
func (n *Node) Children() []*Node {
	var kids []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		kids = append(kids, c)
	}
	return kids
}

// Contains reports whether desc is n or a descendant of n.
func (n *Node) Contains(desc *Node) bool {
	for p := desc; p != nil; p = p.Parent {
		if p == n {
			return true
		}
	}
	return false
}

// Walk visits n and every descendant in document (pre-)order.
func (n *Node) Walk(visit func(*Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		c.Walk(visit)
	}
}

// Attr returns the value of the named attribute and whether it is present.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.attrs {
		if a.Key == name {
			return a.Value, true
		}
	}
	return "", false
}

// HasAttr reports whether the named attribute is present.
func (n *Node) HasAttr(name string) bool {
	_, ok := n.Attr(name)
	return ok
}

// SetAttr sets the named attribute, preserving attribute order for
// existing names.
func (n *Node) SetAttr(name, value string) {
	for i, a := range n.attrs {
		if a.Key == name {
			n.attrs[i].Value = value
			return
		}
	}
	n.attrs = append(n.attrs, Attr{Key: name, Value: value})
}

// RemoveAttr removes the named attribute and reports whether it was present.
func (n *Node) RemoveAttr(name string) bool {
	for i, a := range n.attrs {
		if a.Key == name {
			n.attrs = append(n.attrs[:i], n.attrs[i+1:]...)
			return true
		}
	}
	return false
}

// Attrs returns a copy of the attribute list.
func (n *Node) Attrs() []Attr {
	out := make([]Attr, len(n.attrs))
	copy(out, n.attrs)
	return out
}

// Prop returns the named live property and whether it has been set.
func (n *Node) Prop(name string) (any, bool) {
	v, ok := n.props[name]
	return v, ok
}

// SetProp sets a live property on the element.
func (n *Node) SetProp(name string, value any) {
	if n.props == nil {
		n.props = make(map[string]any)
	}
	n.props[name] = value
}

// SetText replaces a text node's payload.
func (n *Node) SetText(text string) {
	n.Text = text
}

// TextContent returns the concatenated text of n and its descendants.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.Walk(func(c *Node) {
		if c.Type == TextNode {
			b.WriteString(c.Text)
		}
	})
	return b.String()
}

// CloneDeep returns a deep copy of n: tag, text, attributes, properties,
// and children. Event listeners are not cloned; a clone is a brand-new
// node with no identity shared with the original.
func (n *Node) CloneDeep() *Node {
	clone := &Node{
		Type: n.Type,
		Tag:  n.Tag,
		Text: n.Text,
	}
	if len(n.attrs) > 0 {
		clone.attrs = make([]Attr, len(n.attrs))
		copy(clone.attrs, n.attrs)
	}
	if len(n.props) > 0 {
		clone.props = make(map[string]any, len(n.props))
		for k, v := range n.props {
			clone.props[k] = v
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		clone.AppendChild(c.CloneDeep())
	}
	return clone
}
