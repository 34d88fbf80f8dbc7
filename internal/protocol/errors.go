package protocol

import (
	"bytes"
	"fmt"

	"github.com/prn-tf/awscore/internal/awserr"
	"github.com/prn-tf/awscore/internal/protocol/awsjson"
	"github.com/prn-tf/awscore/internal/protocol/restjson"
	"github.com/prn-tf/awscore/internal/protocol/restxml"
	"github.com/prn-tf/awscore/internal/transport"
)

// ExtractError decodes a non-2xx response into a typed service error:
// code and message per the protocol's error convention,
// remaining body fields preserved as strings, the service's
// ErrorCodeMap consulted for an extended error, and the result
// classified as client (4xx) or server (5xx). A response whose error
// body cannot be parsed degrades to a ResponseError carrying the status
// rather than failing the extraction itself.
func ExtractError(resp *transport.HttpResponse, cfg *ServiceConfig) error {
	payload, err := materialize(resp.Body)
	if err != nil {
		return &awserr.ResponseError{HTTPStatusCode: resp.Status, Err: err}
	}

	code, message, additional, parseErr := extractErrorParts(payload, resp.Headers, cfg)
	if parseErr != nil || code == "" {
		if parseErr == nil {
			parseErr = fmt.Errorf("no error code in response body")
		}
		return &awserr.ResponseError{HTTPStatusCode: resp.Status, Err: parseErr}
	}

	se := &awserr.ServiceError{
		Code:             code,
		Message:          message,
		HTTPStatusCode:   resp.Status,
		Headers:          flattenHeaders(resp.Headers),
		AdditionalFields: additional,
	}
	if ctor, ok := cfg.ErrorCodeMap[code]; ok {
		// The constructor gets a copy with Extended unset so the unwrap
		// chain terminates even when the constructed error embeds it.
		inner := *se
		se.Extended = ctor(&inner)
	}
	return awserr.Classify(se)
}

func extractErrorParts(payload []byte, headers transport.Header, cfg *ServiceConfig) (code, message string, additional map[string]string, err error) {
	switch cfg.Protocol {
	case RestJson, AwsJson:
		doc, derr := awsjson.DecodeDocument(payload)
		if derr != nil {
			return "", "", nil, derr
		}
		headerFallback := ""
		if cfg.Protocol == RestJson {
			headerFallback = headers.Get(restjson.ErrorTypeHeader)
		}
		return restjson.ErrorCode(doc, headerFallback), restjson.ErrorMessage(doc), restjson.AdditionalFields(doc), nil

	default:
		root, derr := restxml.Parse(bytes.NewReader(payload))
		if derr != nil {
			return "", "", nil, derr
		}
		node := restxml.FindErrorNode(root)
		if node == nil {
			return "", "", nil, fmt.Errorf("no Error element in response body")
		}
		code, message, additional = restxml.ErrorParts(node)
		return code, message, additional, nil
	}
}
