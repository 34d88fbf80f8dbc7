// Package transport declares the HTTP transport contract the core consumes
// plus the HttpRequest/HttpResponse data model. The
// low-level HTTP client itself — pooling, TLS, timeouts — is deliberately
// external to the core; package nethttp supplies a default implementation
// wrapping net/http for the demo binary to inject.
package transport

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/prn-tf/awscore/internal/body"
)

// ErrBodyLengthMismatch is returned by a transport when the bytes actually
// sent or received do not match the body's declared length.
var ErrBodyLengthMismatch = errors.New("transport: body length mismatch")

// HttpRequest is the wire-level request passed to a Transport.
type HttpRequest struct {
	URL     *url.URL
	Method  string
	Headers Header
	Body    body.Body
}

// HttpResponse is the wire-level response returned by a Transport.
type HttpResponse struct {
	Status  int
	Headers Header
	Body    body.Body
}

// Error wraps any transport-level failure (DNS, dial, TLS, timeout, a
// surfaced body-length mismatch) in a stable kind the rest of the core can
// match on without depending on net/http or net errors directly.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "transport: " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Transport is the send/receive interface the dispatch orchestrator
// consumes. Implementations must surface a distinguishable
// body-length-mismatch error via errors.Is(err, ErrBodyLengthMismatch).
type Transport interface {
	Send(ctx context.Context, req *HttpRequest, timeout time.Duration) (*HttpResponse, error)
	Shutdown() error
}
