// Package markup provides a source-preserving HTML node tree.
//
// Unlike html.Parse, the tree built here keeps the original text of every
// token, records the line and column each node starts at, and does not
// normalize the document (no implied html/head/body, no foster parenting).
// Rendering an unmodified tree yields exactly the input it was parsed from,
// so element expansion only rewrites the nodes it replaces.
package markup

import (
	"strings"
)

// NodeType identifies the kind of a Node.
type NodeType int

const (
	DocumentNode NodeType = iota
	ElementNode
	TextNode
	CommentNode
	DoctypeNode
)

// String returns the string representation of the node type
func (t NodeType) String() string {
	switch t {
	case DocumentNode:
		return "document"
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	case DoctypeNode:
		return "doctype"
	default:
		return "unknown"
	}
}

// Attribute is a single attribute of an element, in source order.
type Attribute struct {
	// Key is the lower-cased attribute name
	Key string
	// Val is the unescaped attribute value
	Val string
	// Raw is the attribute value as written in the source, without quotes
	Raw string
}

// Node is a node of the markup tree.
type Node struct {
	Type NodeType
	// Data is the lower-cased tag name for elements and the raw source
	// text for text, comment and doctype nodes.
	Data     string
	Attr     []Attribute
	Parent   *Node
	Children []*Node

	Line   int
	Column int
	// Offset is the byte offset of the node in the parsed source.
	Offset int
	// Resolved marks element nodes that are already expansion output and
	// must not be expanded again.
	Resolved bool

	startTag string
	endTag   string
	// void is set for self-closing and void elements, which carry no
	// inner content at all.
	void bool
}

// IsElement reports whether n is an element named name. The comparison
// is case-insensitive.
func (n *Node) IsElement(name string) bool {
	return n.Type == ElementNode && strings.EqualFold(n.Data, name)
}

// HasInner reports whether the element carries inner content, even if
// that content is empty. Self-closing and void elements have none.
func (n *Node) HasInner() bool {
	return n.Type == ElementNode && !n.void
}

// InnerHTML renders the node's children as source text.
func (n *Node) InnerHTML() string {
	var b strings.Builder
	for _, c := range n.Children {
		c.render(&b)
	}
	return b.String()
}

// OuterHTML renders the node and its children as source text.
func (n *Node) OuterHTML() string {
	var b strings.Builder
	n.render(&b)
	return b.String()
}

// String renders the node as source text.
func (n *Node) String() string {
	return n.OuterHTML()
}

// GetAttr returns the value of the first attribute named key.
func (n *Node) GetAttr(key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

// StartTag returns the element's start tag as written in the source.
func (n *Node) StartTag() string {
	return n.startTag
}

// AttrInsertOffset returns the source offset at which new attributes can
// be spliced into the element's start tag: just before its closing ">" or
// "/>".
func (n *Node) AttrInsertOffset() int {
	tag := n.startTag
	switch {
	case strings.HasSuffix(tag, "/>"):
		return n.Offset + len(strings.TrimRight(tag[:len(tag)-2], " \t\r\n\f"))
	case strings.HasSuffix(tag, ">"):
		return n.Offset + len(tag) - 1
	default:
		// Unterminated tag at the end of the input.
		return n.Offset + len(tag)
	}
}

// AppendChild adds c as the last child of n.
func (n *Node) AppendChild(c *Node) {
	c.Parent = n
	n.Children = append(n.Children, c)
}

// ReplaceWith replaces n in its parent with the given nodes. n is
// detached afterwards. Replacing a detached node is a no-op.
func (n *Node) ReplaceWith(nodes ...*Node) {
	p := n.Parent
	if p == nil {
		return
	}
	idx := -1
	for i, c := range p.Children {
		if c == n {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	children := make([]*Node, 0, len(p.Children)-1+len(nodes))
	children = append(children, p.Children[:idx]...)
	for _, r := range nodes {
		r.Parent = p
		children = append(children, r)
	}
	children = append(children, p.Children[idx+1:]...)
	p.Children = children
	n.Parent = nil
}

// Root returns the topmost ancestor of n.
func (n *Node) Root() *Node {
	r := n
	for r.Parent != nil {
		r = r.Parent
	}
	return r
}

// FindAll returns, in document order, every descendant of n matching the
// predicate. The result is collected before the caller mutates the tree,
// so replacing nodes while iterating it is safe.
func (n *Node) FindAll(match func(*Node) bool) []*Node {
	var found []*Node
	var walk func(*Node)
	walk = func(c *Node) {
		if match(c) {
			found = append(found, c)
		}
		for _, child := range c.Children {
			walk(child)
		}
	}
	for _, c := range n.Children {
		walk(c)
	}
	return found
}

// Reposition sets the location of every node in the given subtrees.
// Nodes spliced into a document from another source take the location of
// the node they replace.
func Reposition(nodes []*Node, line, column int) {
	for _, n := range nodes {
		n.Line, n.Column = line, column
		Reposition(n.Children, line, column)
	}
}

// Render concatenates the source text of the given nodes.
func Render(nodes []*Node) string {
	var b strings.Builder
	for _, n := range nodes {
		n.render(&b)
	}
	return b.String()
}

func (n *Node) render(b *strings.Builder) {
	switch n.Type {
	case DocumentNode:
		for _, c := range n.Children {
			c.render(b)
		}
	case ElementNode:
		b.WriteString(n.startTag)
		for _, c := range n.Children {
			c.render(b)
		}
		b.WriteString(n.endTag)
	default:
		b.WriteString(n.Data)
	}
}
