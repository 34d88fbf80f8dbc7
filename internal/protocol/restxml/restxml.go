// Package restxml serializes body documents for the REST-XML protocol
// and implements the XML-family response unwrapping and error extraction
// shared with the Query protocols.
package restxml

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/prn-tf/awscore/internal/protocol/xmlutil"
)

// ContentType is the wire content type for REST-XML request bodies.
const ContentType = "application/xml"

// EncodeDocument serializes doc under a root element named rootName,
// attaching namespace as the root's xmlns when non-empty. A document
// with no members encodes to nil so the caller can omit the body.
func EncodeDocument(rootName, namespace string, doc map[string]any) ([]byte, error) {
	root := &xmlutil.Node{Name: rootName}
	if err := appendMembers(root, doc); err != nil {
		return nil, err
	}
	if len(root.Children) == 0 {
		return nil, nil
	}
	root.SortChildren()
	var buf bytes.Buffer
	if err := root.Encode(&buf, namespace); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func appendMembers(parent *xmlutil.Node, doc map[string]any) error {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := appendMember(parent, k, doc[k]); err != nil {
			return err
		}
	}
	return nil
}

func appendMember(parent *xmlutil.Node, name string, v any) error {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		child := &xmlutil.Node{Name: name}
		if err := appendMembers(child, t); err != nil {
			return err
		}
		parent.Children = append(parent.Children, child)
	case []any:
		for _, item := range t {
			if err := appendMember(parent, name, item); err != nil {
				return err
			}
		}
	default:
		parent.Children = append(parent.Children, &xmlutil.Node{Name: name, Text: scalarText(v)})
	}
	return nil
}

func scalarText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case []byte:
		return base64.StdEncoding.EncodeToString(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Parse reads an XML document into its generic node form.
func Parse(r io.Reader) (*xmlutil.Node, error) {
	return xmlutil.Parse(r)
}

// DecodeDocument parses an XML response body and returns the document
// under the operation's result element. When the root is
// "<op>Response" containing "<op>Result", decoding descends one level
// into the result element before converting (the Query-family response
// envelope).
func DecodeDocument(r io.Reader, operationName string) (map[string]any, error) {
	root, err := xmlutil.Parse(r)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return map[string]any{}, nil
	}
	if root.Name == operationName+"Response" {
		if result := root.Child(operationName + "Result"); result != nil {
			root = result
		}
	}
	return NodeToDocument(root), nil
}

// NodeToDocument converts an element's children to a generic document:
// leaf elements become strings, nested elements become maps, and repeated
// sibling names collect into []any.
func NodeToDocument(n *xmlutil.Node) map[string]any {
	doc := make(map[string]any, len(n.Children))
	for _, c := range n.Children {
		var value any
		if len(c.Children) > 0 {
			value = NodeToDocument(c)
		} else {
			value = c.Text
		}
		switch existing := doc[c.Name].(type) {
		case nil:
			doc[c.Name] = value
		case []any:
			doc[c.Name] = append(existing, value)
		default:
			doc[c.Name] = []any{existing, value}
		}
	}
	return doc
}

// FindErrorNode locates the error element of an XML-family failure
// response: "<Errors><Error>" (possibly nested deeper) for the Query
// protocols, or a bare "<Error>" for REST-XML.
func FindErrorNode(root *xmlutil.Node) *xmlutil.Node {
	if root == nil {
		return nil
	}
	if errs := root.Find("Errors"); errs != nil {
		if e := errs.Find("Error"); e != nil {
			return e
		}
	}
	return root.Find("Error")
}

// ErrorParts extracts code, message, and the preserved additional fields
// from an error element.
func ErrorParts(e *xmlutil.Node) (code, message string, additional map[string]string) {
	additional = make(map[string]string)
	for _, c := range e.Children {
		switch c.Name {
		case "Code":
			code = c.Text
		case "Message":
			message = c.Text
		default:
			if len(c.Children) == 0 {
				additional[c.Name] = c.Text
			}
		}
	}
	return code, message, additional
}
