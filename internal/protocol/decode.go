package protocol

import (
	"bytes"
	"io"

	"github.com/prn-tf/awscore/internal/body"
	"github.com/prn-tf/awscore/internal/protocol/awsjson"
	"github.com/prn-tf/awscore/internal/protocol/restjson"
	"github.com/prn-tf/awscore/internal/protocol/restxml"
	"github.com/prn-tf/awscore/internal/shape"
	"github.com/prn-tf/awscore/internal/transport"
)

// DecodeResponse populates the output shape from a raw response, or
// returns the extracted typed error for a non-2xx status.
func DecodeResponse(op Operation, resp *transport.HttpResponse, out shape.DecodableShape, cfg *ServiceConfig) error {
	if resp.Status < 200 || resp.Status > 299 {
		return ExtractError(resp, cfg)
	}
	if out == nil {
		return nil
	}

	if hd, ok := out.(shape.HeaderDecodable); ok {
		if err := hd.DecodeHeaders(flattenHeaders(resp.Headers)); err != nil {
			return err
		}
	}

	opts := out.ShapeOptions()
	if opts.RawPayload {
		if pd, ok := out.(shape.PayloadDecodable); ok {
			return pd.DecodePayload(resp.Body)
		}
		return nil
	}

	dd, ok := out.(shape.DocumentDecodable)
	if !ok {
		return nil
	}

	payload, err := materialize(resp.Body)
	if err != nil {
		return err
	}
	doc, err := decodeDocument(op, payload, resp.Headers, cfg)
	if err != nil {
		return err
	}
	return dd.DecodeDocument(doc)
}

// decodeDocument parses the response payload into a generic document per
// the service protocol, applying the REST-JSON HAL unwrap and the
// XML-family result-envelope descent.
func decodeDocument(op Operation, payload []byte, headers transport.Header, cfg *ServiceConfig) (map[string]any, error) {
	if len(payload) == 0 {
		return map[string]any{}, nil
	}
	switch cfg.Protocol {
	case AwsJson, RestJson:
		doc, err := awsjson.DecodeDocument(payload)
		if err != nil {
			return nil, err
		}
		if cfg.Protocol == RestJson && headers.Get("content-type") == restjson.ContentTypeHal {
			doc = restjson.UnwrapHal(doc)
		}
		return doc, nil
	default:
		return restxml.DecodeDocument(bytes.NewReader(payload), op.Name)
	}
}

// materialize drains a response body into memory. Streaming success
// payloads are handed to the shape via PayloadDecodable before this is
// reached, so documents are always small enough to buffer.
func materialize(b body.Body) ([]byte, error) {
	if buf, ok := b.Bytes(); ok {
		return buf, nil
	}
	return io.ReadAll(b.Reader())
}

// flattenHeaders reduces a multi-map header set to first-value-wins,
// lower-cased names, the form shape header binding consumes.
func flattenHeaders(h transport.Header) map[string]string {
	out := make(map[string]string)
	for _, k := range h.Keys() {
		out[toLower(k)] = h.Get(k)
	}
	return out
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
