// Package dom implements the headless document the guest renders into:
// a node tree with attributes and text, HTML parsing and serialization,
// event dispatch, and the window with its location and history.
package dom

import (
	"strings"
	"unicode"

	"github.com/woxQAQ/wbg-host/internal/jsval"
)

// Namespace URIs.
const (
	HTMLNamespace   = "http://www.w3.org/1999/xhtml"
	SVGNamespace    = "http://www.w3.org/2000/svg"
	MathMLNamespace = "http://www.w3.org/1998/Math/MathML"
)

// NodeType mirrors Node.nodeType.
type NodeType int

const (
	ElementNode          NodeType = 1
	TextNode             NodeType = 3
	CommentNode          NodeType = 8
	DocumentNode         NodeType = 9
	DocumentFragmentNode NodeType = 11
)

// Attr is a single attribute. Names of HTML elements are lowercase.
type Attr struct {
	Name  string
	Value string
}

// Node is any node of the tree. Document operations are only valid on a
// node of type DocumentNode.
type Node struct {
	EventTarget

	Type      NodeType
	Tag       string
	Namespace string
	Data      string
	Attrs     []Attr
	Checked   bool

	value    *string
	parent   *Node
	children []*Node
	doc      *Node
	window   *Window
}

func hierarchyError(msg string) error {
	return jsval.NewDOMException("HierarchyRequestError", msg)
}

func (n *Node) target() *EventTarget { return &n.EventTarget }

func (n *Node) parentTarget() eventTarget {
	if n.parent != nil {
		return n.parent
	}
	if n.Type == DocumentNode && n.window != nil {
		return n.window
	}
	return nil
}

// OwnerDocument returns the document the node belongs to, nil for a
// document itself.
func (n *Node) OwnerDocument() *Node {
	if n.Type == DocumentNode {
		return nil
	}
	return n.doc
}

func (n *Node) document() *Node {
	if n.Type == DocumentNode {
		return n
	}
	return n.doc
}

// Window returns the window of the node's document, if any.
func (n *Node) Window() *Window {
	if d := n.document(); d != nil {
		return d.window
	}
	return nil
}

// IsHTML reports whether n is an element in the HTML namespace.
func (n *Node) IsHTML() bool {
	return n.Type == ElementNode && n.Namespace == HTMLNamespace
}

// TagName returns the qualified name, uppercase for HTML elements.
func (n *Node) TagName() string {
	if n.IsHTML() {
		return strings.ToUpper(n.Tag)
	}
	return n.Tag
}

// NodeName implements Node.nodeName.
func (n *Node) NodeName() string {
	switch n.Type {
	case ElementNode:
		return n.TagName()
	case TextNode:
		return "#text"
	case CommentNode:
		return "#comment"
	case DocumentNode:
		return "#document"
	}
	return "#document-fragment"
}

var elementClasses = map[string]string{
	"a":        "HTMLAnchorElement",
	"body":     "HTMLBodyElement",
	"button":   "HTMLButtonElement",
	"canvas":   "HTMLCanvasElement",
	"div":      "HTMLDivElement",
	"form":     "HTMLFormElement",
	"head":     "HTMLHeadElement",
	"html":     "HTMLHtmlElement",
	"img":      "HTMLImageElement",
	"input":    "HTMLInputElement",
	"li":       "HTMLLIElement",
	"option":   "HTMLOptionElement",
	"p":        "HTMLParagraphElement",
	"pre":      "HTMLPreElement",
	"select":   "HTMLSelectElement",
	"span":     "HTMLSpanElement",
	"table":    "HTMLTableElement",
	"textarea": "HTMLTextAreaElement",
	"ul":       "HTMLUListElement",
}

func (n *Node) ClassName() string {
	switch n.Type {
	case TextNode:
		return "Text"
	case CommentNode:
		return "Comment"
	case DocumentNode:
		return "HTMLDocument"
	case DocumentFragmentNode:
		return "DocumentFragment"
	}
	switch n.Namespace {
	case HTMLNamespace:
		if c, ok := elementClasses[n.Tag]; ok {
			return c
		}
		return "HTMLElement"
	case SVGNamespace:
		return "SVGElement"
	}
	return "Element"
}

// ParentNode returns the parent or nil.
func (n *Node) ParentNode() *Node { return n.parent }

// ParentElement returns the parent when it is an element.
func (n *Node) ParentElement() *Node {
	if n.parent != nil && n.parent.Type == ElementNode {
		return n.parent
	}
	return nil
}

// Children returns a snapshot of the child list.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// ChildNodes returns a live list of the children.
func (n *Node) ChildNodes() *NodeList { return &NodeList{node: n} }

// FirstChild returns the first child or nil.
func (n *Node) FirstChild() *Node {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[0]
}

// LastChild returns the last child or nil.
func (n *Node) LastChild() *Node {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[len(n.children)-1]
}

func (n *Node) index() int {
	if n.parent == nil {
		return -1
	}
	for i, c := range n.parent.children {
		if c == n {
			return i
		}
	}
	return -1
}

// PreviousSibling returns the previous sibling or nil.
func (n *Node) PreviousSibling() *Node {
	if i := n.index(); i > 0 {
		return n.parent.children[i-1]
	}
	return nil
}

// NextSibling returns the next sibling or nil.
func (n *Node) NextSibling() *Node {
	if i := n.index(); i >= 0 && i+1 < len(n.parent.children) {
		return n.parent.children[i+1]
	}
	return nil
}

// Contains reports whether other is n or one of its descendants.
func (n *Node) Contains(other *Node) bool {
	for p := other; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// AppendChild appends child, moving it from its current parent. A fragment
// is emptied into n.
func (n *Node) AppendChild(child *Node) (*Node, error) {
	return child, n.InsertBefore(child, nil)
}

// InsertBefore inserts child before ref, or at the end when ref is nil.
func (n *Node) InsertBefore(child, ref *Node) error {
	if child == nil {
		return jsval.NewTypeError("parameter 1 is not of type 'Node'")
	}
	if n.Type != ElementNode && n.Type != DocumentNode && n.Type != DocumentFragmentNode {
		return hierarchyError("This node type does not support this method.")
	}
	if child.Type == DocumentNode {
		return hierarchyError("Nodes of type '#document' may not be inserted inside nodes of type '" + n.NodeName() + "'.")
	}
	if child.Contains(n) {
		return hierarchyError("The new child element contains the parent.")
	}
	if ref != nil && ref.parent != n {
		return jsval.NewDOMException("NotFoundError", "The node before which the new node is to be inserted is not a child of this node.")
	}
	if ref == child {
		return nil
	}

	nodes := []*Node{child}
	if child.Type == DocumentFragmentNode {
		nodes = child.Children()
	}
	for _, c := range nodes {
		c.Remove()
		c.adopt(n.document())
		c.parent = n
		if ref == nil {
			n.children = append(n.children, c)
			continue
		}
		i := ref.index()
		n.children = append(n.children, nil)
		copy(n.children[i+1:], n.children[i:])
		n.children[i] = c
	}
	return nil
}

// Before inserts node into n's parent just before n. It is a no-op for a
// detached n.
func (n *Node) Before(node *Node) error {
	if n.parent == nil || node == n {
		return nil
	}
	return n.parent.InsertBefore(node, n)
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	p := n.parent
	if p == nil {
		return
	}
	if i := n.index(); i >= 0 {
		p.children = append(p.children[:i], p.children[i+1:]...)
	}
	n.parent = nil
}

// RemoveChild detaches child from n.
func (n *Node) RemoveChild(child *Node) (*Node, error) {
	if child == nil || child.parent != n {
		return nil, jsval.NewDOMException("NotFoundError", "The node to be removed is not a child of this node.")
	}
	child.Remove()
	return child, nil
}

func (n *Node) removeChildren() {
	for _, c := range n.children {
		c.parent = nil
	}
	n.children = nil
}

func (n *Node) adopt(doc *Node) {
	if doc == nil || n.doc == doc {
		return
	}
	n.doc = doc
	for _, c := range n.children {
		c.adopt(doc)
	}
}

// CloneNode copies n, and its subtree when deep. Listeners are not copied.
func (n *Node) CloneNode(deep bool) *Node {
	c := &Node{
		Type:      n.Type,
		Tag:       n.Tag,
		Namespace: n.Namespace,
		Data:      n.Data,
		Attrs:     append([]Attr(nil), n.Attrs...),
		Checked:   n.Checked,
		doc:       n.document(),
	}
	if n.value != nil {
		v := *n.value
		c.value = &v
	}
	if n.Type == DocumentNode {
		c.doc = nil
	}
	if deep {
		for _, child := range n.children {
			cc := child.CloneNode(true)
			cc.parent = c
			if n.Type == DocumentNode {
				cc.adopt(c)
			}
			c.children = append(c.children, cc)
		}
	}
	return c
}

// TextContent implements the textContent getter. ok is false when the value
// is null.
func (n *Node) TextContent() (string, bool) {
	switch n.Type {
	case TextNode, CommentNode:
		return n.Data, true
	case DocumentNode:
		return "", false
	}
	var sb strings.Builder
	n.collectText(&sb)
	return sb.String(), true
}

func (n *Node) collectText(sb *strings.Builder) {
	for _, c := range n.children {
		switch c.Type {
		case TextNode:
			sb.WriteString(c.Data)
		case ElementNode:
			c.collectText(sb)
		}
	}
}

// SetTextContent replaces the children with a single text node, or sets the
// character data of a text or comment node.
func (n *Node) SetTextContent(s string) {
	switch n.Type {
	case TextNode, CommentNode:
		n.Data = s
	case ElementNode, DocumentFragmentNode:
		n.removeChildren()
		if s != "" {
			t := &Node{Type: TextNode, Data: s, doc: n.document(), parent: n}
			n.children = []*Node{t}
		}
	}
}

// GetAttribute returns the attribute value.
func (n *Node) GetAttribute(name string) (string, bool) {
	name = n.attrName(name)
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// HasAttribute reports whether the attribute is present.
func (n *Node) HasAttribute(name string) bool {
	_, ok := n.GetAttribute(name)
	return ok
}

// SetAttribute adds or replaces an attribute.
func (n *Node) SetAttribute(name, value string) error {
	if n.Type != ElementNode {
		return jsval.NewTypeError("setAttribute is not a function")
	}
	if !ValidName(name) {
		return jsval.NewDOMException("InvalidCharacterError", "'"+name+"' is not a valid attribute name.")
	}
	name = n.attrName(name)
	for i, a := range n.Attrs {
		if a.Name == name {
			n.Attrs[i].Value = value
			return nil
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
	return nil
}

// RemoveAttribute removes an attribute if present.
func (n *Node) RemoveAttribute(name string) {
	name = n.attrName(name)
	for i, a := range n.Attrs {
		if a.Name == name {
			n.Attrs = append(n.Attrs[:i], n.Attrs[i+1:]...)
			return
		}
	}
}

func (n *Node) attrName(name string) string {
	if n.IsHTML() {
		return strings.ToLower(name)
	}
	return name
}

// ID returns the id attribute.
func (n *Node) ID() string {
	id, _ := n.GetAttribute("id")
	return id
}

// Value returns the current value of a form control.
func (n *Node) Value() string {
	if n.value != nil {
		return *n.value
	}
	if n.Tag == "textarea" {
		s, _ := n.TextContent()
		return s
	}
	v, _ := n.GetAttribute("value")
	return v
}

// SetValue sets the value of a form control without touching the attribute.
func (n *Node) SetValue(v string) { n.value = &v }

// Href returns the anchor href resolved against the document URL.
func (n *Node) Href() string {
	raw, ok := n.GetAttribute("href")
	if !ok {
		return ""
	}
	if w := n.Window(); w != nil {
		if u, err := w.Location.Resolve(raw); err == nil {
			return u.Href()
		}
	}
	return raw
}

// Walk visits n and its descendants in tree order until fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// ValidName reports whether s is a valid XML name.
func ValidName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == ':' || r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	return true
}

// NodeList is a live view of a node's children.
type NodeList struct {
	node *Node
}

func (l *NodeList) ClassName() string { return "NodeList" }

// Len returns the number of children.
func (l *NodeList) Len() int { return len(l.node.children) }

// Item returns the i-th child or nil.
func (l *NodeList) Item(i int) *Node {
	if i < 0 || i >= len(l.node.children) {
		return nil
	}
	return l.node.children[i]
}

// Iterator yields the children.
func (l *NodeList) Iterator() *jsval.Iterator {
	i := 0
	return jsval.NewIterator(func() (any, bool) {
		if c := l.Item(i); c != nil {
			i++
			return c, false
		}
		return jsval.Undefined, true
	})
}

// GetProperty exposes length and indexed access.
func (l *NodeList) GetProperty(key string) (any, bool) {
	if key == "length" {
		return float64(l.Len()), true
	}
	if i, ok := index(key); ok {
		if c := l.Item(i); c != nil {
			return c, true
		}
		return jsval.Undefined, true
	}
	return nil, false
}

func index(key string) (int, bool) {
	if key == "" || len(key) > 9 {
		return 0, false
	}
	n := 0
	for _, c := range key {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
