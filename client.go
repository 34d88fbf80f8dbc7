// Package awscore is the dispatch orchestrator of the service-client
// runtime: given an operation and a typed input, it fetches a credential
// from the configured provider, encodes the request for the service's
// wire protocol, signs it (switching to the aws-chunked signing
// transport for streaming S3 uploads), sends it through the HTTP
// transport, and decodes the response or typed error.
//
// Retries, backoff, and endpoint discovery live outside this package;
// every error surfaces to the caller unmodified.
package awscore

import (
	"context"
	"strconv"
	"time"

	"github.com/prn-tf/awscore/internal/body"
	"github.com/prn-tf/awscore/internal/chunked"
	"github.com/prn-tf/awscore/internal/credentials"
	"github.com/prn-tf/awscore/internal/credentials/chain"
	"github.com/prn-tf/awscore/internal/credentials/ecscreds"
	"github.com/prn-tf/awscore/internal/credentials/envcreds"
	"github.com/prn-tf/awscore/internal/credentials/imdscreds"
	"github.com/prn-tf/awscore/internal/credentials/inicreds"
	"github.com/prn-tf/awscore/internal/credentials/rotating"
	"github.com/prn-tf/awscore/internal/credentials/staticcreds"
	"github.com/prn-tf/awscore/internal/logging"
	"github.com/prn-tf/awscore/internal/protocol"
	"github.com/prn-tf/awscore/internal/shape"
	"github.com/prn-tf/awscore/internal/signer"
	"github.com/prn-tf/awscore/internal/transport"
	"github.com/prn-tf/awscore/internal/transport/nethttp"
)

// Re-exported configuration surface, so callers construct clients without
// importing internal packages directly.
type (
	ServiceConfig = protocol.ServiceConfig
	Operation     = protocol.Operation
	Credential    = credentials.Credential
)

// Protocol tags.
const (
	AwsJson  = protocol.AwsJson
	RestJson = protocol.RestJson
	RestXml  = protocol.RestXml
	Query    = protocol.Query
	Ec2Query = protocol.Ec2Query
)

const defaultTimeout = 30 * time.Second

// Client dispatches operations against one service endpoint.
type Client struct {
	cfg       *ServiceConfig
	creds     credentials.Provider
	transport transport.Transport
	logger    logging.Logger
	timeout   time.Duration
}

// Option customizes a Client at construction.
type Option func(*Client)

// WithCredentials replaces the default provider chain. The provider is
// used as given; wrap it in rotating.New yourself if it isn't already
// cached.
func WithCredentials(p credentials.Provider) Option {
	return func(c *Client) { c.creds = p }
}

// WithStaticCredentials is a shorthand for a fixed credential triple.
func WithStaticCredentials(accessKeyID, secretAccessKey, sessionToken string) Option {
	return WithCredentials(staticcreds.New(Credential{
		AccessKeyID:     accessKeyID,
		SecretAccessKey: secretAccessKey,
		SessionToken:    sessionToken,
	}))
}

// WithTransport replaces the default net/http-backed transport.
func WithTransport(t transport.Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout sets the single-call send timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New returns a Client for cfg. Without options it resolves credentials
// through the default chain (environment, shared config files, ECS
// container, EC2 instance metadata) behind the rotating cache, and sends
// through the default net/http transport.
func New(cfg *ServiceConfig, opts ...Option) *Client {
	c := &Client{
		cfg:     cfg,
		logger:  logging.Nop(),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.creds == nil {
		c.creds = DefaultCredentials()
	}
	if c.transport == nil {
		c.transport = nethttp.New()
	}
	return c
}

// DefaultCredentials builds the standard provider chain wrapped in the
// rotating single-flight cache: environment variables first, then the
// shared config/credentials files, then the ECS container endpoint, then
// EC2 instance metadata. A provider that reports ErrNoProvider passes
// the search to the next one; any other error ends it and is returned.
// The instance-metadata provider reports an unreachable endpoint as such
// an error, so the chain's anonymous fallback (requests dispatched
// unsigned) applies only when every provider reports ErrNoProvider.
func DefaultCredentials() credentials.Provider {
	return rotating.New(chain.New(
		envcreds.New(),
		inicreds.New(),
		ecscreds.New(),
		imdscreds.New(),
	))
}

// Invoke dispatches one operation: credential fetch, encode, sign, send,
// decode. out may be nil for operations with no modeled
// output; a non-2xx response decodes into a typed error regardless.
func (c *Client) Invoke(ctx context.Context, op Operation, in shape.EncodableShape, out shape.DecodableShape) error {
	cred, err := c.creds.Retrieve(ctx, c.logger)
	if err != nil {
		return err
	}
	s := signer.New(cred.Credential, c.cfg.Region, c.cfg.SigningName)

	req, err := protocol.EncodeRequest(op, in, c.cfg)
	if err != nil {
		return err
	}

	if err := c.sign(s, req); err != nil {
		return err
	}

	c.logger.Debug("dispatching request", map[string]any{
		"operation": op.Name,
		"method":    req.Method,
		"url":       req.URL.String(),
	})

	resp, err := c.transport.Send(ctx, req, c.timeout)
	if err != nil {
		return err
	}
	return protocol.DecodeResponse(op, resp, out, c.cfg)
}

// sign signs req's headers in place, switching to the aws-chunked
// signing transport for a streaming S3 body of known length unless the
// service config disables it.
func (c *Client) sign(s *signer.Signer, req *transport.HttpRequest) error {
	length, known := req.Body.Len()
	streaming := req.Body.Kind() == body.KindStream

	if streaming && known && c.cfg.SigningName == "s3" &&
		!c.cfg.S3DisableChunkedUploads && !s.Credential.IsAnonymous() {
		encodedLength := chunked.ContentSize(length)
		req.Headers.Set("content-encoding", "aws-chunked")
		req.Headers.Set("x-amz-decoded-content-length", strconv.FormatInt(length, 10))
		req.Headers.Set("content-length", strconv.FormatInt(encodedLength, 10))

		signed, seed, err := s.StartSigningChunks(req.URL.String(), req.Method, req.Headers, time.Time{})
		if err != nil {
			return err
		}
		req.Headers = signed
		req.Body = body.FromStream(chunked.NewReader(req.Body.Reader(), s, seed), &encodedLength)
		return nil
	}

	signed, err := s.SignHeaders(req.URL.String(), req.Method, req.Headers, bodyDescriptor(req.Body), false, time.Time{})
	if err != nil {
		return err
	}
	req.Headers = signed
	return nil
}

// bodyDescriptor maps a Body onto the signer's payload-hash strategy: a
// buffered body is hashed, a streaming body goes unsigned (its integrity
// is carried by the chunked transport or the service's own checksums).
func bodyDescriptor(b body.Body) signer.BodyDescriptor {
	switch b.Kind() {
	case body.KindBuffer:
		raw, _ := b.Bytes()
		return signer.BodyDescriptor{Kind: signer.BodyBytes, Raw: raw}
	case body.KindStream:
		return signer.BodyDescriptor{Kind: signer.BodyUnsignedPayload}
	default:
		return signer.BodyDescriptor{Kind: signer.BodyEmpty}
	}
}

// Presign encodes op's input and returns a presigned URL authorizing the
// request for expires from now, without dispatching anything.
func (c *Client) Presign(ctx context.Context, op Operation, in shape.EncodableShape, expires time.Duration) (string, error) {
	cred, err := c.creds.Retrieve(ctx, c.logger)
	if err != nil {
		return "", err
	}
	s := signer.New(cred.Credential, c.cfg.Region, c.cfg.SigningName)

	req, err := protocol.EncodeRequest(op, in, c.cfg)
	if err != nil {
		return "", err
	}
	return s.SignURL(req.URL.String(), req.Method, req.Headers, bodyDescriptor(req.Body), expires, false, time.Time{})
}

// Shutdown releases the client's long-lived resources: the credential
// provider (cancelling any in-flight refresh) and the transport.
func (c *Client) Shutdown() error {
	credErr := c.creds.Shutdown()
	if err := c.transport.Shutdown(); err != nil {
		return err
	}
	return credErr
}
