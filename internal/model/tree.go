// Package model contains the in-memory device tree and the table view
// projected from it
package model

import "strings"

// NodeID indexes a node in the tree arena
type NodeID int

// NoNode is the parent of the document root and of detached nodes
const NoNode NodeID = -1

// EntryKind tells what a layout entry refers to
type EntryKind int

const (
	EntryProperty EntryKind = iota
	EntryChild
	EntryComment
	EntryDirective
)

// Entry records the source order of everything inside a node body.
// Index points into Properties or Children; Text holds comments and
// directives verbatim.
type Entry struct {
	Kind        EntryKind
	Index       int
	Text        string
	BlankBefore bool // a blank line preceded the entry
	Inline      bool // comment that followed the previous entry on the same line
}

// Kind is the value class of a property
type Kind int

const (
	KindOpaque Kind = iota
	KindHexCell
	KindDecimal
	KindString
	KindBytes
	KindFlag
)

func (k Kind) String() string {
	switch k {
	case KindHexCell:
		return "hex-cell"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	case KindBytes:
		return "byte-array"
	case KindFlag:
		return "flag"
	default:
		return "opaque"
	}
}

// Property is a single "name = value;" statement. Raw is the payload between
// '=' and ';' with surrounding whitespace removed; it is empty for a flag.
type Property struct {
	Name string
	Raw  string
	Kind Kind
}

// Line renders the property as a statement
func (p Property) Line() string {
	if p.Raw == "" {
		return p.Name + ";"
	}
	return p.Name + " = " + p.Raw + ";"
}

// Node represents a single block in the device tree
type Node struct {
	Name       string
	Labels     []string
	Properties []Property
	Children   []NodeID
	Parent     NodeID
	Layout     []Entry
	Expanded   bool // UI state, not part of the document
}

// Property returns the last property with the given name
func (n *Node) Property(name string) (Property, bool) {
	for i := len(n.Properties) - 1; i >= 0; i-- {
		if n.Properties[i].Name == name {
			return n.Properties[i], true
		}
	}
	return Property{}, false
}

// PropertyIndex returns the index of the last property with the given name, or -1
func (n *Node) PropertyIndex(name string) int {
	for i := len(n.Properties) - 1; i >= 0; i-- {
		if n.Properties[i].Name == name {
			return i
		}
	}
	return -1
}

// BaseName returns the node name without its unit address
func (n *Node) BaseName() string {
	if i := strings.IndexByte(n.Name, '@'); i >= 0 {
		return n.Name[:i]
	}
	return n.Name
}

// Tree is the parsed document. Nodes live in an arena and refer to each
// other by NodeID; node 0 is the document root that holds top-level
// statements.
type Tree struct {
	nodes []Node
}

// NewTree creates a tree holding only the document root
func NewTree() *Tree {
	return &Tree{
		nodes: []Node{{Parent: NoNode, Expanded: true}},
	}
}

// Root returns the document root
func (t *Tree) Root() NodeID {
	return 0
}

// Node returns the node with the given ID, or nil when the ID is out of range
func (t *Tree) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return &t.nodes[id]
}

// AddChild appends a new child block to parent and returns its ID
func (t *Tree) AddChild(parent NodeID, name string) NodeID {
	p := t.Node(parent)
	if p == nil {
		return NoNode
	}
	return t.InsertChild(parent, len(p.Layout), name)
}

// InsertChild creates a child block at layout position pos of parent.
// Children are ordered by their layout position.
func (t *Tree) InsertChild(parent NodeID, pos int, name string) NodeID {
	if t.Node(parent) == nil {
		return NoNode
	}
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, Node{
		Name:     name,
		Parent:   parent,
		Expanded: true,
	})

	p := &t.nodes[parent]
	pos = clamp(pos, 0, len(p.Layout))
	childIdx := 0
	for _, e := range p.Layout[:pos] {
		if e.Kind == EntryChild {
			childIdx++
		}
	}
	p.Children = insertAt(p.Children, childIdx, id)
	for i := pos; i < len(p.Layout); i++ {
		if p.Layout[i].Kind == EntryChild {
			p.Layout[i].Index++
		}
	}
	p.Layout = insertAt(p.Layout, pos, Entry{Kind: EntryChild, Index: childIdx, BlankBefore: true})
	return id
}

// RemoveChild detaches child from parent. The arena slot is kept but is no
// longer reachable from the root.
func (t *Tree) RemoveChild(parent, child NodeID) bool {
	p := t.Node(parent)
	if p == nil {
		return false
	}
	idx := -1
	for i, c := range p.Children {
		if c == child {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	p.Children = append(p.Children[:idx], p.Children[idx+1:]...)
	p.Layout = removeEntry(p.Layout, EntryChild, idx)
	t.nodes[child].Parent = NoNode
	return true
}

// NewNode creates a detached block. ArrangeChildren attaches it.
func (t *Tree) NewNode(name string) NodeID {
	t.nodes = append(t.nodes, Node{Name: name, Parent: NoNode, Expanded: true})
	return NodeID(len(t.nodes) - 1)
}

// ArrangeChildren puts next in the layout slots held by the children in
// old, in order. Each slot keeps its spacing. Children of old missing from
// next are detached; extra nodes of next follow the last slot. Nodes of
// next must be detached or in old.
func (t *Tree) ArrangeChildren(parent NodeID, old, next []NodeID) bool {
	p := t.Node(parent)
	if p == nil {
		return false
	}
	slot := make(map[NodeID]bool, len(old))
	for _, c := range old {
		slot[c] = true
	}

	layout := make([]Entry, 0, len(p.Layout)+len(next))
	ids := make([]NodeID, 0, len(p.Layout)+len(next))
	k, end := 0, -1
	blank := true
	for _, e := range p.Layout {
		if e.Kind != EntryChild {
			layout = append(layout, e)
			ids = append(ids, NoNode)
			continue
		}
		c := p.Children[e.Index]
		if slot[c] {
			blank = e.BlankBefore
			if k == len(next) {
				continue
			}
			c = next[k]
			k++
		}
		layout = append(layout, e)
		ids = append(ids, c)
		if slot[p.Children[e.Index]] {
			end = len(layout)
		}
	}
	if end < 0 {
		end = len(layout)
	}
	for ; k < len(next); k++ {
		layout = insertAt(layout, end, Entry{Kind: EntryChild, BlankBefore: blank})
		ids = insertAt(ids, end, next[k])
		end++
	}

	for _, c := range old {
		t.nodes[c].Parent = NoNode
	}
	children := make([]NodeID, 0, len(p.Children)+len(next))
	for i := range layout {
		if layout[i].Kind != EntryChild {
			continue
		}
		layout[i].Index = len(children)
		children = append(children, ids[i])
		t.nodes[ids[i]].Parent = parent
	}
	p.Layout, p.Children = layout, children
	return true
}

// AddProperty appends a property statement to a node
func (t *Tree) AddProperty(id NodeID, prop Property) {
	n := t.Node(id)
	if n == nil {
		return
	}
	n.Layout = append(n.Layout, Entry{Kind: EntryProperty, Index: len(n.Properties)})
	n.Properties = append(n.Properties, prop)
}

// InsertProperty adds a property before the first child block of a node,
// or at the end when the node has no children
func (t *Tree) InsertProperty(id NodeID, prop Property) {
	n := t.Node(id)
	if n == nil {
		return
	}
	pos := len(n.Layout)
	for i, e := range n.Layout {
		if e.Kind == EntryChild {
			pos = i
			break
		}
	}
	propIdx := 0
	for _, e := range n.Layout[:pos] {
		if e.Kind == EntryProperty {
			propIdx++
		}
	}
	n.Properties = insertAt(n.Properties, propIdx, prop)
	for i := pos; i < len(n.Layout); i++ {
		if n.Layout[i].Kind == EntryProperty {
			n.Layout[i].Index++
		}
	}
	n.Layout = insertAt(n.Layout, pos, Entry{Kind: EntryProperty, Index: propIdx})
}

// ReplaceProperty overwrites the property at index
func (t *Tree) ReplaceProperty(id NodeID, index int, prop Property) bool {
	n := t.Node(id)
	if n == nil || index < 0 || index >= len(n.Properties) {
		return false
	}
	n.Properties[index] = prop
	return true
}

// RemoveProperty deletes the property at index
func (t *Tree) RemoveProperty(id NodeID, index int) bool {
	n := t.Node(id)
	if n == nil || index < 0 || index >= len(n.Properties) {
		return false
	}
	n.Properties = append(n.Properties[:index], n.Properties[index+1:]...)
	n.Layout = removeEntry(n.Layout, EntryProperty, index)
	return true
}

// SetProperty replaces the last property named prop.Name, or inserts it
// ahead of the node's children when missing
func (t *Tree) SetProperty(id NodeID, prop Property) {
	n := t.Node(id)
	if n == nil {
		return
	}
	if idx := n.PropertyIndex(prop.Name); idx >= 0 {
		n.Properties[idx] = prop
		return
	}
	t.InsertProperty(id, prop)
}

// Path returns the '/'-joined chain of ancestor names
func (t *Tree) Path(id NodeID) string {
	n := t.Node(id)
	if n == nil || n.Parent == NoNode {
		return ""
	}
	return joinPath(t.Path(n.Parent), n.Name)
}

// Find resolves a path produced by Path
func (t *Tree) Find(path string) (NodeID, bool) {
	found := NoNode
	t.Walk(func(id NodeID, _ int) bool {
		if found != NoNode {
			return false
		}
		if t.Path(id) == path {
			found = id
			return false
		}
		return strings.HasPrefix(path, t.Path(id)) || id == t.Root()
	})
	return found, found != NoNode
}

// ChildByName returns the first child of id with the given name
func (t *Tree) ChildByName(id NodeID, name string) (NodeID, bool) {
	n := t.Node(id)
	if n == nil {
		return NoNode, false
	}
	for _, c := range n.Children {
		if t.nodes[c].Name == name {
			return c, true
		}
	}
	return NoNode, false
}

// Walk visits every node reachable from the root in pre-order. Returning
// false from fn skips the node's children.
func (t *Tree) Walk(fn func(id NodeID, depth int) bool) {
	t.walk(t.Root(), 0, fn)
}

func (t *Tree) walk(id NodeID, depth int, fn func(NodeID, int) bool) {
	if !fn(id, depth) {
		return
	}
	for _, c := range t.nodes[id].Children {
		t.walk(c, depth+1, fn)
	}
}

// Len returns the number of nodes reachable from the root
func (t *Tree) Len() int {
	count := 0
	t.Walk(func(NodeID, int) bool {
		count++
		return true
	})
	return count
}

// Clone creates a deep copy of the tree
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	nodes := make([]Node, len(t.nodes))
	for i, n := range t.nodes {
		nodes[i] = Node{
			Name:       n.Name,
			Labels:     append([]string(nil), n.Labels...),
			Properties: append([]Property(nil), n.Properties...),
			Children:   append([]NodeID(nil), n.Children...),
			Parent:     n.Parent,
			Layout:     append([]Entry(nil), n.Layout...),
			Expanded:   n.Expanded,
		}
	}
	return &Tree{nodes: nodes}
}

// Equal reports whether two trees have the same structure: names, labels,
// properties, children and layout, ignoring arena positions and UI state
func (t *Tree) Equal(o *Tree) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.equalNode(t.Root(), o, o.Root())
}

func (t *Tree) equalNode(a NodeID, o *Tree, b NodeID) bool {
	na, nb := &t.nodes[a], &o.nodes[b]
	if na.Name != nb.Name || len(na.Labels) != len(nb.Labels) ||
		len(na.Properties) != len(nb.Properties) || len(na.Children) != len(nb.Children) ||
		len(na.Layout) != len(nb.Layout) {
		return false
	}
	for i := range na.Labels {
		if na.Labels[i] != nb.Labels[i] {
			return false
		}
	}
	for i := range na.Properties {
		if na.Properties[i].Name != nb.Properties[i].Name || na.Properties[i].Raw != nb.Properties[i].Raw {
			return false
		}
	}
	for i := range na.Layout {
		ea, eb := na.Layout[i], nb.Layout[i]
		if ea.Kind != eb.Kind || ea.Index != eb.Index || ea.Text != eb.Text ||
			ea.BlankBefore != eb.BlankBefore || ea.Inline != eb.Inline {
			return false
		}
	}
	for i := range na.Children {
		if !t.equalNode(na.Children[i], o, nb.Children[i]) {
			return false
		}
	}
	return true
}

func joinPath(parent, name string) string {
	switch {
	case parent == "":
		return name
	case strings.HasSuffix(parent, "/"):
		return parent + name
	default:
		return parent + "/" + name
	}
}

func removeEntry(layout []Entry, kind EntryKind, index int) []Entry {
	out := layout[:0]
	for _, e := range layout {
		if e.Kind == kind {
			if e.Index == index {
				continue
			}
			if e.Index > index {
				e.Index--
			}
		}
		out = append(out, e)
	}
	return out
}

func insertAt[T any](s []T, i int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
