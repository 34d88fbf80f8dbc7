// Package awsjson serializes body documents for the AWS-JSON and
// REST-JSON protocols: plain JSON with dates carried as seconds since
// the epoch and binary members carried as base64 strings.
package awsjson

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// ContentTypeAwsJson is the wire content type for the AWS-JSON protocol.
const ContentTypeAwsJson = "application/x-amz-json-1.1"

// ContentTypeRestJson is the wire content type for REST-JSON documents.
const ContentTypeRestJson = "application/json"

// EmptyDocument is the serialization of a document with no members.
const EmptyDocument = "{}"

// EncodeDocument serializes doc to JSON. time.Time members become
// seconds-since-epoch numbers; []byte members become base64 strings.
func EncodeDocument(doc map[string]any) ([]byte, error) {
	converted, err := convert(doc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(converted); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func convert(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t.Unix(), nil
	case []byte:
		return base64.StdEncoding.EncodeToString(t), nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			c, err := convert(inner)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			c, err := convert(inner)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	default:
		return v, nil
	}
}

// DecodeDocument parses a JSON body into a generic document. Numbers are
// kept as json.Number so integer members survive without float rounding.
func DecodeDocument(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// EpochTime interprets a decoded document member as a seconds-since-epoch
// timestamp, accepting the number representations json decoding produces.
func EpochTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, false
		}
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
	case float64:
		sec, frac := math.Modf(t)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
	case int64:
		return time.Unix(t, 0).UTC(), true
	default:
		return time.Time{}, false
	}
}

// String interprets a document member as a string.
func String(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// Blob interprets a base64 document member as raw bytes.
func Blob(v any) ([]byte, bool) {
	s, ok := v.(string)
	if !ok {
		return nil, false
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return b, true
}

// Int64 interprets a numeric document member as an int64.
func Int64(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case float64:
		return int64(t), true
	case int64:
		return t, true
	default:
		return 0, false
	}
}

// Stringify renders any document member the way the error extractor
// preserves additional fields: strings pass through, everything else is
// formatted compactly.
func Stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}
