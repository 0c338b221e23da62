package host

import (
	"github.com/woxQAQ/wbg-host/internal/dom"
	"github.com/woxQAQ/wbg-host/internal/jsval"
)

func node(c *Call, i int) (*dom.Node, error) {
	return receiver[*dom.Node](c, i, "Node")
}

// nodeOrNil returns nil for a nil node so ReturnOptional sees null.
func nodeOrNil(n *dom.Node) any {
	if n == nil {
		return nil
	}
	return n
}

// nodeGetter declares an entry returning an optional node relative to the
// receiver.
func nodeGetter(name string, get func(n *dom.Node) *dom.Node) *Entry {
	return entry(name, "i>i", func(c *Call) error {
		n, err := node(c, 0)
		if err != nil {
			return err
		}
		c.ReturnOptional(nodeOrNil(get(n)))
		return nil
	})
}

// documentCreate declares document.createX(string) entries.
func documentCreate(name string, create func(doc *dom.Node, s string) (*dom.Node, error)) *Entry {
	return entry(name, "iii>i", func(c *Call) error {
		doc, err := node(c, 0)
		if err != nil {
			return err
		}
		s, err := c.Str(1)
		if err != nil {
			return err
		}
		n, err := create(doc, s)
		if err != nil {
			return err
		}
		c.ReturnObject(n)
		return nil
	})
}

// stringSetter declares receiver.key = string entries.
func stringSetter(name, key string) *Entry {
	return entry(name, "iii>", func(c *Call) error {
		s, err := c.Str(1)
		if err != nil {
			return err
		}
		return jsval.Set(c.Get(0), key, s)
	})
}

// stringGetter declares entries writing receiver[key] to an output slot.
// Optional getters write [0, 0] for null.
func stringGetter(name, key string, optional bool) *Entry {
	return entry(name, "ii>", func(c *Call) error {
		v, err := property(c, 1, key)
		if err != nil {
			return err
		}
		if optional {
			return c.PutOptionalString(c.U32(0), jsval.ToString(v), !jsval.IsNullish(v))
		}
		return c.PutString(c.U32(0), jsval.ToString(v))
	})
}

func domEntries() []*Entry {
	return []*Entry{
		entry("Document.body", "i>i", func(c *Call) error {
			doc, err := node(c, 0)
			if err != nil {
				return err
			}
			c.ReturnOptional(nodeOrNil(doc.Body()))
			return nil
		}),
		throwing(documentCreate("Document.createElement", (*dom.Node).CreateElement)),
		documentCreate("Document.createTextNode", func(doc *dom.Node, s string) (*dom.Node, error) {
			return doc.CreateTextNode(s), nil
		}),
		documentCreate("Document.createComment", func(doc *dom.Node, s string) (*dom.Node, error) {
			return doc.CreateComment(s), nil
		}),
		entry("Document.createDocumentFragment", "i>i", func(c *Call) error {
			doc, err := node(c, 0)
			if err != nil {
				return err
			}
			c.ReturnObject(doc.CreateDocumentFragment())
			return nil
		}),
		entry("Document.getElementById", "iii>i", func(c *Call) error {
			doc, err := node(c, 0)
			if err != nil {
				return err
			}
			id, err := c.Str(1)
			if err != nil {
				return err
			}
			c.ReturnOptional(nodeOrNil(doc.GetElementByID(id)))
			return nil
		}),

		stringGetter("Element.namespaceURI", "namespaceURI", true),
		stringGetter("Element.outerHTML", "outerHTML", false),
		stringSetter("Element.setinnerHTML", "innerHTML"),
		entry("Element.getAttribute", "iiii>", func(c *Call) error {
			el, err := node(c, 1)
			if err != nil {
				return err
			}
			name, err := c.Str(2)
			if err != nil {
				return err
			}
			v, ok := el.GetAttribute(name)
			return c.PutOptionalString(c.U32(0), v, ok)
		}),
		entry("Element.hasAttribute", "iii>i", func(c *Call) error {
			el, err := node(c, 0)
			if err != nil {
				return err
			}
			name, err := c.Str(1)
			if err != nil {
				return err
			}
			c.ReturnBool(el.HasAttribute(name))
			return nil
		}),
		throwing(entry("Element.setAttribute", "iiiii>", func(c *Call) error {
			el, err := node(c, 0)
			if err != nil {
				return err
			}
			name, err := c.Str(1)
			if err != nil {
				return err
			}
			value, err := c.Str(3)
			if err != nil {
				return err
			}
			return el.SetAttribute(name, value)
		})),
		throwing(entry("Element.removeAttribute", "iii>", func(c *Call) error {
			el, err := node(c, 0)
			if err != nil {
				return err
			}
			name, err := c.Str(1)
			if err != nil {
				return err
			}
			el.RemoveAttribute(name)
			return nil
		})),
		entry("Element.scrollIntoView", "i>", func(c *Call) error {
			el, err := node(c, 0)
			if err != nil {
				return err
			}
			if w := el.Window(); w != nil {
				w.ScrollIntoView(el)
			}
			return nil
		}),
		throwing(entry("Element.before", "ii>", func(c *Call) error {
			el, err := node(c, 0)
			if err != nil {
				return err
			}
			other, err := node(c, 1)
			if err != nil {
				return err
			}
			return el.Before(other)
		})),
		entry("Element.remove", "i>", func(c *Call) error {
			el, err := node(c, 0)
			if err != nil {
				return err
			}
			el.Remove()
			return nil
		}),

		nodeGetter("Node.parentNode", (*dom.Node).ParentNode),
		nodeGetter("Node.previousSibling", (*dom.Node).PreviousSibling),
		nodeGetter("Node.nextSibling", (*dom.Node).NextSibling),
		entry("Node.childNodes", "i>i", func(c *Call) error {
			n, err := node(c, 0)
			if err != nil {
				return err
			}
			c.ReturnObject(n.ChildNodes())
			return nil
		}),
		entry("Node.textContent", "ii>", func(c *Call) error {
			n, err := node(c, 1)
			if err != nil {
				return err
			}
			s, ok := n.TextContent()
			return c.PutOptionalString(c.U32(0), s, ok)
		}),
		stringSetter("Node.settextContent", "textContent"),
		throwing(entry("Node.appendChild", "ii>i", func(c *Call) error {
			n, err := node(c, 0)
			if err != nil {
				return err
			}
			child, err := node(c, 1)
			if err != nil {
				return err
			}
			added, err := n.AppendChild(child)
			if err != nil {
				return err
			}
			c.ReturnObject(added)
			return nil
		})),
		throwing(entry("Node.cloneNode", "i>i", func(c *Call) error {
			n, err := node(c, 0)
			if err != nil {
				return err
			}
			c.ReturnObject(n.CloneNode(false))
			return nil
		})),
		stringSetter("CharacterData.setdata", "data"),

		entry("HTMLInputElement.setchecked", "ii>", func(c *Call) error {
			return jsval.Set(c.Get(0), "checked", c.Bool(1))
		}),
		stringGetter("HTMLInputElement.value", "value", false),
		stringGetter("HTMLAnchorElement.target", "target", false),
		stringGetter("HTMLAnchorElement.href", "href", false),
		typeTest("HTMLAnchorElement.instanceof_HtmlAnchorElement", func(v any) bool {
			n, ok := v.(*dom.Node)
			return ok && n.Type == dom.ElementNode && n.IsHTML() && n.Tag == "a"
		}),

		// The headless document has no shadow trees.
		typeTest("ShadowRoot.instanceof_ShadowRoot", func(any) bool { return false }),
		entry("ShadowRoot.host", "i>i", func(c *Call) error {
			v, err := property(c, 0, "host")
			if err != nil {
				return err
			}
			c.ReturnObject(v)
			return nil
		}),
	}
}
