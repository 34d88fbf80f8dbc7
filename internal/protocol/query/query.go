// Package query serializes body documents for the AWS Query and EC2
// Query protocols: a form-encoded body opening with Action and Version,
// with nested members flattened into dotted keys. The two protocols
// differ only in list serialization — Query writes "Name.member.N",
// EC2 writes "Name.N".
package query

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ContentType is the wire content type for Query-protocol bodies.
const ContentType = "application/x-www-form-urlencoded"

// EncodeForm flattens doc into a form-encoded body for action/version.
// ec2 selects the EC2 list-serialization variant.
func EncodeForm(action, version string, doc map[string]any, ec2 bool) ([]byte, error) {
	values := url.Values{}
	values.Set("Action", action)
	values.Set("Version", version)
	if err := flatten(values, "", doc, ec2); err != nil {
		return nil, err
	}
	return []byte(values.Encode()), nil
}

func flatten(values url.Values, prefix string, doc map[string]any, ec2 bool) error {
	for k, v := range doc {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		if err := flattenValue(values, name, v, ec2); err != nil {
			return err
		}
	}
	return nil
}

func flattenValue(values url.Values, name string, v any, ec2 bool) error {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return flatten(values, name, t, ec2)
	case []any:
		if len(t) == 0 {
			values.Set(name, "")
			return nil
		}
		for i, item := range t {
			member := fmt.Sprintf("%s.member.%d", name, i+1)
			if ec2 {
				member = fmt.Sprintf("%s.%d", name, i+1)
			}
			if err := flattenValue(values, member, item, ec2); err != nil {
				return err
			}
		}
		return nil
	default:
		values.Set(name, scalarText(v))
		return nil
	}
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
