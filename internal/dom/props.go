package dom

import (
	"github.com/woxQAQ/wbg-host/internal/jsval"
)

func nodeOrNull(n *Node) any {
	if n == nil {
		return nil
	}
	return n
}

// GetProperty exposes the node attributes read through reflection.
func (n *Node) GetProperty(key string) (any, bool) {
	switch key {
	case "nodeType":
		return float64(n.Type), true
	case "nodeName":
		return n.NodeName(), true
	case "parentNode":
		return nodeOrNull(n.parent), true
	case "parentElement":
		return nodeOrNull(n.ParentElement()), true
	case "firstChild":
		return nodeOrNull(n.FirstChild()), true
	case "lastChild":
		return nodeOrNull(n.LastChild()), true
	case "previousSibling":
		return nodeOrNull(n.PreviousSibling()), true
	case "nextSibling":
		return nodeOrNull(n.NextSibling()), true
	case "childNodes":
		return n.ChildNodes(), true
	case "ownerDocument":
		return nodeOrNull(n.OwnerDocument()), true
	case "isConnected":
		return n.document() != nil && n.document().Contains(n), true
	case "textContent":
		if s, ok := n.TextContent(); ok {
			return s, true
		}
		return nil, true
	}

	switch n.Type {
	case TextNode, CommentNode:
		switch key {
		case "data", "nodeValue":
			return n.Data, true
		case "length":
			v, _ := jsval.Get(n.Data, "length")
			return v, true
		}
	case DocumentNode:
		switch key {
		case "body":
			return nodeOrNull(n.Body()), true
		case "head":
			return nodeOrNull(n.Head()), true
		case "documentElement":
			return nodeOrNull(n.DocumentElement()), true
		case "location":
			if n.window != nil {
				return n.window.Location, true
			}
			return nil, true
		case "defaultView":
			if n.window != nil {
				return n.window, true
			}
			return nil, true
		}
	case ElementNode:
		return n.elementProperty(key)
	}
	return nil, false
}

func (n *Node) elementProperty(key string) (any, bool) {
	switch key {
	case "tagName", "localName":
		if key == "localName" {
			return n.Tag, true
		}
		return n.TagName(), true
	case "namespaceURI":
		if n.Namespace == "" {
			return nil, true
		}
		return n.Namespace, true
	case "id":
		return n.ID(), true
	case "className":
		v, _ := n.GetAttribute("class")
		return v, true
	case "innerHTML":
		return n.InnerHTML(), true
	case "outerHTML":
		return n.OuterHTML(), true
	case "value":
		return n.Value(), true
	case "checked":
		return n.Checked, true
	case "href":
		return n.Href(), true
	case "target":
		v, _ := n.GetAttribute("target")
		return v, true
	}
	return nil, false
}

// SetProperty implements the writable node attributes.
func (n *Node) SetProperty(key string, v any) error {
	str := func() string {
		if jsval.IsNullish(v) {
			return ""
		}
		return jsval.ToString(v)
	}

	switch key {
	case "textContent":
		n.SetTextContent(str())
		return nil
	case "data", "nodeValue":
		if n.Type == TextNode || n.Type == CommentNode {
			n.Data = str()
		}
		return nil
	}
	if n.Type != ElementNode {
		return nil
	}

	switch key {
	case "id":
		return n.SetAttribute("id", str())
	case "className":
		return n.SetAttribute("class", str())
	case "innerHTML":
		return n.SetInnerHTML(str())
	case "value":
		n.SetValue(str())
	case "checked":
		n.Checked = jsval.Truthy(v)
	case "href", "target":
		return n.SetAttribute(key, str())
	}
	return nil
}
