package awserr

import "fmt"

// ServiceError is the common shape of a decoded service error:
// a stable code, the originating HTTP status, surviving response headers,
// any additional string fields the protocol preserved beyond code/message,
// and an optional extended error constructed from the service's
// error_code_map.
type ServiceError struct {
	Code             string
	Message          string
	HTTPStatusCode   int
	Headers          map[string]string
	AdditionalFields map[string]string
	Extended         error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func (e *ServiceError) Unwrap() error { return e.Extended }

// ClientError classifies a 4xx ServiceError.
type ClientError struct{ *ServiceError }

// ServerError classifies a 5xx ServiceError.
type ServerError struct{ *ServiceError }

// ResponseError is returned when a non-2xx response could not be
// classified into a service-specific or generic client/server error —
// the decoder gave up but still has a status code to report.
type ResponseError struct {
	HTTPStatusCode int
	Err            error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("response error (status %d): %v", e.HTTPStatusCode, e.Err)
}

func (e *ResponseError) Unwrap() error { return e.Err }

// Classify wraps a decoded ServiceError by status alone: ClientError for
// 4xx, ServerError for 5xx, and se itself for any other status. A
// service-specific error built from the error_code_map stays reachable
// through the wrapper with errors.As, since ServiceError.Unwrap returns
// Extended.
func Classify(se *ServiceError) error {
	switch {
	case se.HTTPStatusCode >= 500:
		return &ServerError{ServiceError: se}
	case se.HTTPStatusCode >= 400:
		return &ClientError{ServiceError: se}
	default:
		return se
	}
}
