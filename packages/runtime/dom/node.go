// Package dom is a small in-memory document used to run generated
// component code in tests and benchmarks. Every mutation is counted so
// that callers can assert how much work an update did.
package dom

import (
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NodeType is the kind of a node.
type NodeType int

const (
	ElementNode NodeType = iota
	TextNode
	CommentNode
)

// Stats counts mutations. Inserting a node that is already attached is a
// move, not an insert.
type Stats struct {
	Creates    int
	Inserts    int
	Moves      int
	Removes    int
	TextWrites int
	AttrWrites int
	PropWrites int
}

// Document owns the nodes it creates and their mutation counters.
type Document struct {
	Body  *Node
	Stats Stats
}

// NewDocument returns an empty document with a body element.
func NewDocument() *Document {
	d := &Document{}
	d.Body = &Node{Type: ElementNode, Tag: "body", doc: d}
	return d
}

// ResetStats zeroes the mutation counters.
func (d *Document) ResetStats() {
	d.Stats = Stats{}
}

// CreateElement creates a detached element.
func (d *Document) CreateElement(tag string) *Node {
	d.Stats.Creates++
	return &Node{Type: ElementNode, Tag: strings.ToLower(tag), doc: d}
}

// CreateText creates a detached text node.
func (d *Document) CreateText(data string) *Node {
	d.Stats.Creates++
	return &Node{Type: TextNode, Data: data, doc: d}
}

// CreateComment creates a detached comment.
func (d *Document) CreateComment(data string) *Node {
	d.Stats.Creates++
	return &Node{Type: CommentNode, Data: data, doc: d}
}

// Node is an element, text or comment.
type Node struct {
	Type     NodeType
	Tag      string
	Data     string
	Parent   *Node
	Children []*Node

	attrs     map[string]string
	props     map[string]any
	listeners map[string][]*listener
	doc       *Document
}

// Document returns the document that created n.
func (n *Node) Document() *Document {
	return n.doc
}

func (n *Node) indexOf(child *Node) int {
	for i, c := range n.Children {
		if c == child {
			return i
		}
	}
	return -1
}

// Insert adds child before anchor, or last when anchor is nil. A child
// that is attached somewhere is moved.
func (n *Node) Insert(child, anchor *Node) {
	if child.Parent != nil {
		child.Parent.unlink(child)
		n.doc.Stats.Moves++
	} else {
		n.doc.Stats.Inserts++
	}
	child.Parent = n
	at := len(n.Children)
	if anchor != nil {
		if i := n.indexOf(anchor); i >= 0 {
			at = i
		}
	}
	n.Children = append(n.Children, nil)
	copy(n.Children[at+1:], n.Children[at:])
	n.Children[at] = child
}

// Append adds child last.
func (n *Node) Append(child *Node) {
	n.Insert(child, nil)
}

func (n *Node) unlink(child *Node) {
	if i := n.indexOf(child); i >= 0 {
		n.Children = append(n.Children[:i], n.Children[i+1:]...)
	}
	child.Parent = nil
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	if n.Parent == nil {
		return
	}
	n.Parent.unlink(n)
	n.doc.Stats.Removes++
}

// NextSibling returns the node after n, or nil.
func (n *Node) NextSibling() *Node {
	if n.Parent == nil {
		return nil
	}
	i := n.Parent.indexOf(n)
	if i < 0 || i+1 >= len(n.Parent.Children) {
		return nil
	}
	return n.Parent.Children[i+1]
}

// SetData replaces the text of a text or comment node.
func (n *Node) SetData(data string) {
	n.Data = data
	n.doc.Stats.TextWrites++
}

// SetAttribute sets an attribute.
func (n *Node) SetAttribute(name, value string) {
	if n.attrs == nil {
		n.attrs = make(map[string]string)
	}
	n.attrs[name] = value
	n.doc.Stats.AttrWrites++
}

// RemoveAttribute removes an attribute.
func (n *Node) RemoveAttribute(name string) {
	delete(n.attrs, name)
	n.doc.Stats.AttrWrites++
}

// Attribute returns an attribute and whether it is set.
func (n *Node) Attribute(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

// SetProperty sets a DOM property such as value or checked.
func (n *Node) SetProperty(name string, value any) {
	if n.props == nil {
		n.props = make(map[string]any)
	}
	n.props[name] = value
	n.doc.Stats.PropWrites++
}

// Property returns a DOM property, or nil.
func (n *Node) Property(name string) any {
	return n.props[name]
}

// TextContent concatenates the text below n.
func (n *Node) TextContent() string {
	if n.Type == TextNode {
		return n.Data
	}
	var b strings.Builder
	for _, c := range n.Children {
		if c.Type != CommentNode {
			b.WriteString(c.TextContent())
		}
	}
	return b.String()
}

// HTML serializes the children of n.
func (n *Node) HTML() string {
	var b strings.Builder
	for _, c := range n.Children {
		if err := html.Render(&b, c.htmlNode()); err != nil {
			// Rendering into a strings.Builder does not fail.
			panic(err)
		}
	}
	return b.String()
}

func (n *Node) htmlNode() *html.Node {
	switch n.Type {
	case TextNode:
		return &html.Node{Type: html.TextNode, Data: n.Data}
	case CommentNode:
		return &html.Node{Type: html.CommentNode, Data: n.Data}
	}
	out := &html.Node{Type: html.ElementNode, Data: n.Tag, DataAtom: atom.Lookup([]byte(n.Tag))}
	names := make([]string, 0, len(n.attrs))
	for name := range n.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out.Attr = append(out.Attr, html.Attribute{Key: name, Val: n.attrs[name]})
	}
	for _, c := range n.Children {
		out.AppendChild(c.htmlNode())
	}
	return out
}
