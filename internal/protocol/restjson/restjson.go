// Package restjson implements the REST-JSON-specific parts of the
// protocol layer: HAL response unwrapping and the error-extraction rules
// that differ from plain AWS-JSON (header fallback for the error code).
package restjson

import (
	"strings"

	"github.com/prn-tf/awscore/internal/protocol/awsjson"
)

// ContentTypeHal marks a response whose top-level document follows the
// Hypertext Application Language convention.
const ContentTypeHal = "application/hal+json"

// ErrorTypeHeader is the response header REST-JSON services may carry
// the error code in when the body omits __type/code.
const ErrorTypeHeader = "x-amzn-errortype"

// UnwrapHal merges a HAL document's _embedded members into the top-level
// object and drops the _links/_embedded bookkeeping. Conflicts resolve
// parent-first.
func UnwrapHal(doc map[string]any) map[string]any {
	embedded, ok := doc["_embedded"].(map[string]any)
	out := make(map[string]any, len(doc)+len(embedded))
	for k, v := range doc {
		if k == "_links" || k == "_embedded" {
			continue
		}
		out[k] = v
	}
	if ok {
		for k, v := range embedded {
			if _, exists := out[k]; !exists {
				out[k] = v
			}
		}
	}
	return out
}

// ErrorCode extracts the error code from a decoded error document,
// falling back to the x-amzn-errortype header value, and strips any
// "prefix#" segment (e.g. "com.amz#ResourceNotFoundException").
func ErrorCode(doc map[string]any, headerFallback string) string {
	code := ""
	if v, ok := awsjson.String(doc["__type"]); ok {
		code = v
	} else if v, ok := awsjson.String(doc["code"]); ok {
		code = v
	} else {
		code = headerFallback
	}
	return StripCodePrefix(code)
}

// StripCodePrefix removes a leading "namespace#" segment from an error
// code, and any ":extra" suffix some services append after the code.
func StripCodePrefix(code string) string {
	if i := strings.Index(code, "#"); i >= 0 {
		code = code[i+1:]
	}
	if i := strings.Index(code, ":"); i >= 0 {
		code = code[:i]
	}
	return code
}

// ErrorMessage extracts the error message from a decoded error document,
// preferring "message" over "Message".
func ErrorMessage(doc map[string]any) string {
	if v, ok := awsjson.String(doc["message"]); ok {
		return v
	}
	if v, ok := awsjson.String(doc["Message"]); ok {
		return v
	}
	return ""
}

// AdditionalFields preserves every error-document member beyond the
// code/message carriers as a string-to-string map.
func AdditionalFields(doc map[string]any) map[string]string {
	out := make(map[string]string)
	for k, v := range doc {
		switch k {
		case "__type", "code", "message", "Message":
			continue
		}
		out[k] = awsjson.Stringify(v)
	}
	return out
}
