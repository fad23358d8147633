package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/veil-ui/veil/pkg/dom"
)

// Defaults for the reserved attribute conventions.
const (
	DefaultKeyAttr     = "key"
	DefaultEventPrefix = "@"
	DefaultStyleMarker = "data-veil-style"
)

// ErrNilContainer is returned when Apply is called without a container.
var ErrNilContainer = errors.New("reconcile: nil container")

// booleanProps are attribute names that also name boolean element
// properties. Presence maps to true unless the value is the string "false".
var booleanProps = map[string]bool{
	"checked":  true,
	"selected": true,
	"disabled": true,
	"readonly": true,
	"multiple": true,
}

// Patcher mutates a live container's children in place to match freshly
// parsed HTML. The zero options are the runtime's reserved conventions;
// embedders can rebind them.
type Patcher struct {
	keyAttr     string
	eventPrefix string
	styleMarker string

	// isOpaque marks nodes owned by a nested component instance. Opaque
	// nodes keep their attributes and children untouched; their own render
	// pass is the only thing that mutates them.
	isOpaque func(*dom.Node) bool

	rec Recorder
}

// Option configures a Patcher.
type Option func(*Patcher)

// WithKeyAttr sets the reconciliation key attribute name.
func WithKeyAttr(name string) Option {
	return func(p *Patcher) { p.keyAttr = name }
}

// WithEventPrefix sets the event-binding attribute prefix the patcher must
// leave alone (those attributes are owned by the event binder).
func WithEventPrefix(prefix string) Option {
	return func(p *Patcher) { p.eventPrefix = prefix }
}

// WithStyleMarker sets the attribute marking injected style elements,
// which are never removed by reconciliation.
func WithStyleMarker(name string) Option {
	return func(p *Patcher) { p.styleMarker = name }
}

// WithOpaqueCheck sets the predicate identifying nested component hosts.
func WithOpaqueCheck(fn func(*dom.Node) bool) Option {
	return func(p *Patcher) { p.isOpaque = fn }
}

// WithRecorder sets the mutation recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Patcher) { p.rec = r }
}

// New creates a Patcher with the given options.
func New(opts ...Option) *Patcher {
	p := &Patcher{
		keyAttr:     DefaultKeyAttr,
		eventPrefix: DefaultEventPrefix,
		styleMarker: DefaultStyleMarker,
		rec:         nopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rec == nil {
		p.rec = nopRecorder{}
	}
	return p
}

// Apply parses html into a detached subtree and mutates container's
// children in place so they structurally and attribute-wise match it.
// The container element itself is never replaced. An empty string clears
// all children, except preserved style elements.
func (p *Patcher) Apply(container *dom.Node, html string) error {
	if container == nil {
		return ErrNilContainer
	}

	parsed, err := dom.ParseFragment(html)
	if err != nil {
		return fmt.Errorf("reconcile: parse fragment: %w", err)
	}

	next := dom.NewElement(container.Tag)
	for _, n := range parsed {
		next.AppendChild(n)
	}

	p.patchChildren(container, next)
	return nil
}

// patchChildren reconciles old's live children against next's children
// using the two-pointer diff with lazy keyed lookup.
func (p *Patcher) patchChildren(old, next *dom.Node) {
	// Leaf fast path.
	if !old.HasChildren() && !next.HasChildren() {
		return
	}

	oldKids := old.Children()
	newKids := next.Children()

	oldStart, oldEnd := 0, len(oldKids)-1
	newStart, newEnd := 0, len(newKids)-1

	// Built lazily on the first positional mismatch, over the old window
	// as it stands at that moment. Moved slots are nulled and their keys
	// deleted, so stale entries cannot match twice.
	var keyed map[string]int

	for oldStart <= oldEnd && newStart <= newEnd {
		// Skip slots left behind by a prior move.
		if oldKids[oldStart] == nil {
			oldStart++
			continue
		}

		oldN := oldKids[oldStart]
		newN := newKids[newStart]

		if p.sameNode(oldN, newN) {
			p.patchNode(oldN, newN)
			oldStart++
			newStart++
			continue
		}

		if keyed == nil {
			keyed = make(map[string]int)
			for i := oldStart; i <= oldEnd; i++ {
				if k := p.nodeKey(oldKids[i]); k != "" {
					keyed[k] = i
				}
			}
		}

		anchor := oldKids[oldStart]

		if k := p.nodeKey(newN); k != "" {
			if idx, ok := keyed[k]; ok && idx >= oldStart && oldKids[idx] != nil && oldKids[idx].Tag == newN.Tag {
				// Identity-preserving move: patch in place, then reinsert
				// before the current old-start node.
				match := oldKids[idx]
				p.patchNode(match, newN)
				old.InsertBefore(match, anchor)
				p.rec.NodeMoved()
				oldKids[idx] = nil
				delete(keyed, k)
				newStart++
				continue
			}
		}

		// Brand-new node, no identity preserved.
		old.InsertBefore(newN.CloneDeep(), anchor)
		p.rec.NodeInserted()
		newStart++
	}

	if oldStart > oldEnd {
		// Old side exhausted: insert clones of the remaining new nodes
		// before the node now at old-start, or append if none remains.
		var anchor *dom.Node
		for i := oldStart; i < len(oldKids); i++ {
			if oldKids[i] != nil {
				anchor = oldKids[i]
				break
			}
		}
		for i := newStart; i <= newEnd; i++ {
			old.InsertBefore(newKids[i].CloneDeep(), anchor)
			p.rec.NodeInserted()
		}
		return
	}

	// New side exhausted: remove the remaining old nodes. Injected style
	// elements survive; they are cleaned up only on component teardown.
	for i := oldStart; i <= oldEnd; i++ {
		n := oldKids[i]
		if n == nil || p.isPreservedStyle(n) {
			continue
		}
		old.RemoveChild(n)
		p.rec.NodeRemoved()
	}
}

// sameNode decides whether the two nodes are the same logical node. Keyed
// nodes match only keyed nodes with equal key and tag; unkeyed nodes match
// by node category and tag.
func (p *Patcher) sameNode(a, b *dom.Node) bool {
	aKey := p.nodeKey(a)
	bKey := p.nodeKey(b)
	if aKey != "" || bKey != "" {
		return aKey == bKey && aKey != "" && a.Tag == b.Tag
	}
	if a.Type != b.Type {
		return false
	}
	if a.Type == dom.ElementNode {
		return a.Tag == b.Tag
	}
	return true
}

// nodeKey returns the reconciliation key of an element, or "".
func (p *Patcher) nodeKey(n *dom.Node) string {
	if n == nil || n.Type != dom.ElementNode {
		return ""
	}
	k, _ := n.Attr(p.keyAttr)
	return k
}

// patchNode updates a matched old node in place from its new counterpart
// and recurses into children. Opaque nodes (nested component hosts) are
// left entirely alone.
func (p *Patcher) patchNode(oldN, newN *dom.Node) {
	if oldN.Type == dom.TextNode {
		if oldN.Text != newN.Text {
			oldN.SetText(newN.Text)
			p.rec.TextWritten()
		}
		return
	}

	if p.isOpaque != nil && p.isOpaque(oldN) {
		return
	}

	p.patchAttrs(oldN, newN)
	p.patchChildren(oldN, newN)
}

// patchAttrs synchronizes attributes and the element properties they name.
func (p *Patcher) patchAttrs(oldN, newN *dom.Node) {
	for _, a := range newN.Attrs() {
		if strings.HasPrefix(a.Key, p.eventPrefix) {
			// Event bindings are owned by the binder, not the reconciler.
			continue
		}
		if cur, ok := oldN.Attr(a.Key); !ok || cur != a.Value {
			oldN.SetAttr(a.Key, a.Value)
			p.rec.AttrWritten()
		}
		p.syncNamedProp(oldN, a.Key, a.Value, true)
	}

	for _, a := range oldN.Attrs() {
		if strings.HasPrefix(a.Key, p.eventPrefix) {
			continue
		}
		if !newN.HasAttr(a.Key) {
			oldN.RemoveAttr(a.Key)
			p.rec.AttrRemoved()
			p.syncNamedProp(oldN, a.Key, "", false)
		}
	}

	p.syncInteractive(oldN, newN)
}

// syncNamedProp mirrors an attribute onto the element property of the same
// name, for attributes that name one. Boolean properties derive from
// presence: the string "false" maps to false, anything else present maps
// to true.
func (p *Patcher) syncNamedProp(el *dom.Node, name, value string, present bool) {
	if booleanProps[name] {
		el.SetProp(name, present && value != "false")
		return
	}
	if name == "value" {
		el.SetProp("value", value)
	}
}

// syncInteractive re-synchronizes value/checked/selected from the new node
// even when no attribute changed. These properties diverge from their
// attributes through user interaction, so the rendered state always wins.
func (p *Patcher) syncInteractive(oldN, newN *dom.Node) {
	switch oldN.Tag {
	case "input":
		v, _ := newN.Attr("value")
		oldN.SetProp("value", v)
		oldN.SetProp("checked", boolAttr(newN, "checked"))
	case "option":
		v, _ := newN.Attr("value")
		oldN.SetProp("value", v)
		oldN.SetProp("selected", boolAttr(newN, "selected"))
	case "select", "textarea":
		v, _ := newN.Attr("value")
		oldN.SetProp("value", v)
	}
}

func boolAttr(n *dom.Node, name string) bool {
	v, ok := n.Attr(name)
	return ok && v != "false"
}

// isPreservedStyle reports whether n is an injected style element owned by
// the style-injection mechanism.
func (p *Patcher) isPreservedStyle(n *dom.Node) bool {
	return n.Type == dom.ElementNode && n.Tag == "style" && n.HasAttr(p.styleMarker)
}
