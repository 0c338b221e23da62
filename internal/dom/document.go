package dom

import (
	"strings"

	"github.com/woxQAQ/wbg-host/internal/jsval"
)

func (n *Node) checkDocument() error {
	if n.Type != DocumentNode {
		return jsval.NewTypeError("Illegal invocation")
	}
	return nil
}

// CreateElement creates an HTML element; the name is lowercased.
func (n *Node) CreateElement(tag string) (*Node, error) {
	if err := n.checkDocument(); err != nil {
		return nil, err
	}
	if !ValidName(tag) {
		return nil, jsval.NewDOMException("InvalidCharacterError",
			"The tag name provided ('"+tag+"') is not a valid name.")
	}
	return &Node{Type: ElementNode, Tag: strings.ToLower(tag), Namespace: HTMLNamespace, doc: n}, nil
}

// CreateElementNS creates an element in the given namespace. An empty or
// null namespace yields a namespace-less element.
func (n *Node) CreateElementNS(namespace, tag string) (*Node, error) {
	if err := n.checkDocument(); err != nil {
		return nil, err
	}
	if !ValidName(tag) {
		return nil, jsval.NewDOMException("InvalidCharacterError",
			"The qualified name provided ('"+tag+"') contains the invalid name-start character.")
	}
	if namespace == HTMLNamespace {
		tag = strings.ToLower(tag)
	}
	return &Node{Type: ElementNode, Tag: tag, Namespace: namespace, doc: n}, nil
}

// CreateTextNode creates a text node.
func (n *Node) CreateTextNode(data string) *Node {
	return &Node{Type: TextNode, Data: data, doc: n.document()}
}

// CreateComment creates a comment node.
func (n *Node) CreateComment(data string) *Node {
	return &Node{Type: CommentNode, Data: data, doc: n.document()}
}

// CreateDocumentFragment creates an empty fragment.
func (n *Node) CreateDocumentFragment() *Node {
	return &Node{Type: DocumentFragmentNode, doc: n.document()}
}

// DocumentElement returns the root element.
func (n *Node) DocumentElement() *Node {
	for _, c := range n.children {
		if c.Type == ElementNode {
			return c
		}
	}
	return nil
}

func (n *Node) rootChild(tag string) *Node {
	root := n.DocumentElement()
	if root == nil {
		return nil
	}
	for _, c := range root.children {
		if c.Type == ElementNode && c.Tag == tag {
			return c
		}
	}
	return nil
}

// Body returns the body element or nil.
func (n *Node) Body() *Node { return n.rootChild("body") }

// Head returns the head element or nil.
func (n *Node) Head() *Node { return n.rootChild("head") }

// GetElementByID returns the first element in tree order with the id.
func (n *Node) GetElementByID(id string) *Node {
	if id == "" {
		return nil
	}
	var found *Node
	n.Walk(func(c *Node) bool {
		if c.Type == ElementNode && c.ID() == id {
			found = c
			return false
		}
		return true
	})
	return found
}
