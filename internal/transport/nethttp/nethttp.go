// Package nethttp is the default Transport implementation, wrapping the
// standard library's net/http.Client. The HTTP/1.1 client itself, with
// its pooling, TLS, and timeouts, sits outside the signing/encoding
// core; this package is the thin adapter the demo binary injects.
package nethttp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prn-tf/awscore/internal/body"
	"github.com/prn-tf/awscore/internal/transport"
)

// Client adapts *http.Client to transport.Transport.
type Client struct {
	HTTP *http.Client
}

// New returns a Client with sane pooling defaults, mirroring what a
// caller-supplied transport is expected to configure; the demo still
// needs a working default.
func New() *Client {
	return &Client{HTTP: &http.Client{}}
}

func (c *Client) Send(ctx context.Context, req *transport.HttpRequest, timeout time.Duration) (*transport.HttpResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var payload io.Reader
	if !req.Body.IsEmpty() {
		payload = req.Body.Reader()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), payload)
	if err != nil {
		return nil, &transport.Error{Op: "build request", Err: err}
	}
	for _, k := range req.Headers.Keys() {
		if http.CanonicalHeaderKey(k) == "Content-Length" {
			continue
		}
		for _, v := range req.Headers.Values(k) {
			httpReq.Header.Add(k, v)
		}
	}
	if n, ok := req.Body.Len(); ok {
		httpReq.ContentLength = n
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, &transport.Error{Op: "send", Err: err}
	}

	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, &transport.Error{Op: "read response", Err: err}
	}
	if cl := resp.ContentLength; cl >= 0 && cl != int64(len(data)) {
		return nil, &transport.Error{
			Op:  "read response",
			Err: fmt.Errorf("%w: content-length=%d got=%d", transport.ErrBodyLengthMismatch, cl, len(data)),
		}
	}

	headers := transport.NewHeader()
	for k, vs := range resp.Header {
		for _, v := range vs {
			headers.Add(k, v)
		}
	}

	return &transport.HttpResponse{
		Status:  resp.StatusCode,
		Headers: headers,
		Body:    body.FromBytes(data),
	}, nil
}

func (c *Client) Shutdown() error {
	c.HTTP.CloseIdleConnections()
	return nil
}
