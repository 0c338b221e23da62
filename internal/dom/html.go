package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var namespaceNames = map[string]string{
	"":     HTMLNamespace,
	"svg":  SVGNamespace,
	"math": MathMLNamespace,
}

func namespaceURI(short string) string {
	if uri, ok := namespaceNames[short]; ok {
		return uri
	}
	return short
}

func namespaceShort(uri string) string {
	for short, u := range namespaceNames {
		if u == uri {
			return short
		}
	}
	return uri
}

// LoadHTML replaces the document content with the parsed page.
func (w *Window) LoadHTML(src string) error {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return err
	}

	doc := w.Document
	doc.removeChildren()
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := fromHTML(doc, c); n != nil {
			n.parent = doc
			doc.children = append(doc.children, n)
		}
	}
	return nil
}

// SetInnerHTML parses src in the context of n and replaces n's children.
func (n *Node) SetInnerHTML(src string) error {
	if n.Type == TextNode || n.Type == CommentNode {
		return nil
	}

	ctx := n
	if n.Type != ElementNode {
		ctx = &Node{Type: ElementNode, Tag: "body", Namespace: HTMLNamespace}
	}
	context := &html.Node{
		Type:      html.ElementNode,
		Data:      ctx.Tag,
		DataAtom:  atom.Lookup([]byte(ctx.Tag)),
		Namespace: namespaceShort(ctx.Namespace),
	}

	nodes, err := html.ParseFragment(strings.NewReader(src), context)
	if err != nil {
		return err
	}

	n.removeChildren()
	doc := n.document()
	for _, h := range nodes {
		if c := fromHTML(doc, h); c != nil {
			c.parent = n
			n.children = append(n.children, c)
		}
	}
	return nil
}

// InnerHTML serializes the children of n.
func (n *Node) InnerHTML() string {
	var sb strings.Builder
	for _, c := range n.children {
		_ = html.Render(&sb, toHTML(c))
	}
	return sb.String()
}

// OuterHTML serializes n and its subtree.
func (n *Node) OuterHTML() string {
	if n.Type == DocumentNode || n.Type == DocumentFragmentNode {
		return n.InnerHTML()
	}
	var sb strings.Builder
	_ = html.Render(&sb, toHTML(n))
	return sb.String()
}

func fromHTML(doc *Node, h *html.Node) *Node {
	var n *Node
	switch h.Type {
	case html.ElementNode:
		n = &Node{Type: ElementNode, Tag: h.Data, Namespace: namespaceURI(h.Namespace), doc: doc}
		for _, a := range h.Attr {
			name := a.Key
			if a.Namespace != "" {
				name = a.Namespace + ":" + a.Key
			}
			n.Attrs = append(n.Attrs, Attr{Name: name, Value: a.Val})
		}
		if h.Data == "input" {
			_, n.Checked = attrValue(h, "checked")
		}
	case html.TextNode:
		return &Node{Type: TextNode, Data: h.Data, doc: doc}
	case html.CommentNode:
		return &Node{Type: CommentNode, Data: h.Data, doc: doc}
	default:
		return nil
	}

	for c := h.FirstChild; c != nil; c = c.NextSibling {
		if child := fromHTML(doc, c); child != nil {
			child.parent = n
			n.children = append(n.children, child)
		}
	}
	return n
}

func attrValue(h *html.Node, key string) (string, bool) {
	for _, a := range h.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func toHTML(n *Node) *html.Node {
	var h *html.Node
	switch n.Type {
	case TextNode:
		return &html.Node{Type: html.TextNode, Data: n.Data}
	case CommentNode:
		return &html.Node{Type: html.CommentNode, Data: n.Data}
	case ElementNode:
		h = &html.Node{
			Type:      html.ElementNode,
			Data:      n.Tag,
			DataAtom:  atom.Lookup([]byte(n.Tag)),
			Namespace: namespaceShort(n.Namespace),
		}
		for _, a := range n.Attrs {
			h.Attr = append(h.Attr, html.Attribute{Key: a.Name, Val: a.Value})
		}
	default:
		h = &html.Node{Type: html.DocumentNode}
	}
	for _, c := range n.children {
		h.AppendChild(toHTML(c))
	}
	return h
}
