// Package xmlutil carries the minimal generic XML document model the
// REST-XML and Query protocol codecs share: a Node tree parsed from or
// serialized to encoding/xml tokens. The core treats the XML DOM as an
// external collaborator, so this stays deliberately small — elements,
// attributes, and character data, nothing else.
package xmlutil

import (
	"encoding/xml"
	"io"
	"sort"
	"strings"
)

// Node is one XML element: its local name, attributes, character data,
// and child elements in document order.
type Node struct {
	Name     string
	Attrs    []xml.Attr
	Text     string
	Children []*Node
}

// Parse reads an XML document from r and returns its root element. An
// empty document returns nil with no error.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return parseElement(dec, start)
		}
	}
}

func parseElement(dec *xml.Decoder, start xml.StartElement) (*Node, error) {
	n := &Node{Name: start.Name.Local, Attrs: start.Attr}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := parseElement(dec, t)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		case xml.CharData:
			n.Text += string(t)
		case xml.EndElement:
			n.Text = strings.TrimSpace(n.Text)
			return n, nil
		}
	}
}

// Child returns the first child element named name, or nil.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildText returns the character data of the first child named name, or
// "" when absent.
func (n *Node) ChildText(name string) string {
	if c := n.Child(name); c != nil {
		return c.Text
	}
	return ""
}

// Find walks the tree depth-first and returns the first element named
// name, including n itself.
func (n *Node) Find(name string) *Node {
	if n == nil {
		return nil
	}
	if n.Name == name {
		return n
	}
	for _, c := range n.Children {
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// Encode serializes the tree rooted at n, in child order, with an
// optional xmlns attribute on the root when namespace is non-empty.
func (n *Node) Encode(w io.Writer, namespace string) error {
	enc := xml.NewEncoder(w)
	if err := encodeNode(enc, n, namespace); err != nil {
		return err
	}
	return enc.Flush()
}

func encodeNode(enc *xml.Encoder, n *Node, namespace string) error {
	start := xml.StartElement{Name: xml.Name{Local: n.Name}, Attr: n.Attrs}
	if namespace != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "xmlns"}, Value: namespace})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if n.Text != "" {
		if err := enc.EncodeToken(xml.CharData(n.Text)); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if err := encodeNode(enc, c, ""); err != nil {
			return err
		}
	}
	return enc.EncodeToken(xml.EndElement{Name: start.Name})
}

// SortChildren orders n's children by element name, recursively, for
// deterministic serialization of documents built from unordered maps.
func (n *Node) SortChildren() {
	sort.SliceStable(n.Children, func(i, j int) bool {
		return n.Children[i].Name < n.Children[j].Name
	})
	for _, c := range n.Children {
		c.SortChildren()
	}
}
