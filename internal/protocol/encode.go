package protocol

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/prn-tf/awscore/internal/awserr"
	"github.com/prn-tf/awscore/internal/body"
	"github.com/prn-tf/awscore/internal/checksum"
	"github.com/prn-tf/awscore/internal/protocol/awsjson"
	"github.com/prn-tf/awscore/internal/protocol/query"
	"github.com/prn-tf/awscore/internal/protocol/restxml"
	"github.com/prn-tf/awscore/internal/shape"
	"github.com/prn-tf/awscore/internal/transport"
)

// UserAgent is the default user-agent attached to every request.
const UserAgent = "awscore/1.0"

// ChecksumAlgorithmHeader is the caller override consulted first in the
// checksum resolution order.
const ChecksumAlgorithmHeader = "x-amz-sdk-checksum-algorithm"

const binaryContentType = "binary/octet-stream"

// EncodeRequest turns an operation plus its typed input into a
// ready-to-sign HttpRequest: validate, encode the body per
// the service protocol, fill the path template, attach checksum and
// protocol headers, and verify streaming is allowed for the shape.
func EncodeRequest(op Operation, in shape.EncodableShape, cfg *ServiceConfig) (*transport.HttpRequest, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	opts := in.ShapeOptions()

	headers := transport.NewHeader()
	if hs, ok := in.(shape.HeaderShape); ok {
		for k, v := range hs.HeaderParameters() {
			headers.Set(k, v)
		}
	}

	reqBody, contentType, err := encodeBody(op, in, opts, cfg)
	if err != nil {
		return nil, err
	}

	u, err := resolveURL(op, in, cfg)
	if err != nil {
		return nil, err
	}

	if err := verifyStreaming(reqBody, opts); err != nil {
		return nil, err
	}

	if err := attachChecksum(headers, reqBody, opts, cfg); err != nil {
		return nil, err
	}

	if cfg.AmzTarget != "" {
		headers.Set("x-amz-target", cfg.AmzTarget+"."+op.Name)
	}
	if !headers.Has("user-agent") {
		headers.Set("user-agent", UserAgent)
	}
	setDefaultContentType(headers, op.Method, reqBody, contentType)

	return &transport.HttpRequest{
		URL:     u,
		Method:  op.Method,
		Headers: headers,
		Body:    reqBody,
	}, nil
}

// encodeBody serializes the input's document (or passes its raw payload
// through) per the service protocol, returning the body and the
// protocol's default content type for it.
func encodeBody(op Operation, in shape.EncodableShape, opts shape.Options, cfg *ServiceConfig) (body.Body, string, error) {
	if opts.RawPayload {
		b := body.Empty()
		if ps, ok := in.(shape.PayloadShape); ok {
			b = ps.Payload()
		}
		return b, binaryContentType, nil
	}

	doc := map[string]any{}
	if ds, ok := in.(shape.DocumentShape); ok {
		doc = ds.Document()
	}

	switch cfg.Protocol {
	case AwsJson, RestJson:
		encoded, err := awsjson.EncodeDocument(doc)
		if err != nil {
			return body.Body{}, "", err
		}
		contentType := awsjson.ContentTypeAwsJson
		if cfg.Protocol == RestJson {
			contentType = awsjson.ContentTypeRestJson
		}
		if isReadMethod(op.Method) && string(encoded) == awsjson.EmptyDocument {
			return body.Empty(), contentType, nil
		}
		return body.FromBytes(encoded), contentType, nil

	case RestXml:
		rootName := op.Name
		namespace := cfg.XMLNamespace
		if xs, ok := in.(shape.XMLShape); ok {
			if xs.XMLRootNodeName() != "" {
				rootName = xs.XMLRootNodeName()
			}
			if xs.XMLNamespace() != "" {
				namespace = xs.XMLNamespace()
			}
		}
		encoded, err := restxml.EncodeDocument(rootName, namespace, doc)
		if err != nil {
			return body.Body{}, "", err
		}
		if encoded == nil {
			return body.Empty(), restxml.ContentType, nil
		}
		return body.FromBytes(encoded), restxml.ContentType, nil

	case Query, Ec2Query:
		encoded, err := query.EncodeForm(op.Name, cfg.APIVersion, doc, cfg.Protocol == Ec2Query)
		if err != nil {
			return body.Body{}, "", err
		}
		return body.FromBytes(encoded), query.ContentType, nil

	default:
		return body.Body{}, "", fmt.Errorf("%w: protocol %v", awserr.ErrNotSupported, cfg.Protocol)
	}
}

// resolveURL fills the operation's path template with the input's path
// parameters, appends its query parameters, and prepends any host prefix
// to the endpoint authority.
func resolveURL(op Operation, in shape.EncodableShape, cfg *ServiceConfig) (*url.URL, error) {
	path, err := fillPathTemplate(op.PathTemplate, in)
	if err != nil {
		return nil, err
	}

	full := strings.TrimSuffix(cfg.Endpoint, "/") + path
	u, err := url.Parse(full)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", awserr.ErrInvalidURL, full)
	}

	if qs, ok := in.(shape.QueryShape); ok {
		q := u.Query()
		for k, vs := range qs.QueryParameters() {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	if hp, ok := in.(shape.HostPrefixShape); ok {
		if prefix := hp.HostPrefix(); prefix != "" {
			u.Host = prefix + u.Host
		}
	}
	return u, nil
}

// fillPathTemplate substitutes each {name} placeholder with the escaped
// parameter value. A {name+} placeholder is greedy: its value may span
// multiple segments, so "/" survives unescaped.
func fillPathTemplate(template string, in shape.EncodableShape) (string, error) {
	if template == "" {
		template = "/"
	}
	params := map[string]string{}
	if ps, ok := in.(shape.PathShape); ok {
		params = ps.PathParameters()
	}

	var b strings.Builder
	rest := template
	for {
		open := strings.Index(rest, "{")
		if open < 0 {
			b.WriteString(rest)
			break
		}
		closing := strings.Index(rest[open:], "}")
		if closing < 0 {
			return "", fmt.Errorf("%w: unterminated path template %q", awserr.ErrInvalidURL, template)
		}
		closing += open

		b.WriteString(rest[:open])
		name := rest[open+1 : closing]
		greedy := strings.HasSuffix(name, "+")
		if greedy {
			name = strings.TrimSuffix(name, "+")
		}
		value, ok := params[name]
		if !ok {
			return "", fmt.Errorf("%w: missing path parameter %q", awserr.ErrInvalidURL, name)
		}
		if greedy {
			segments := strings.Split(value, "/")
			for i, seg := range segments {
				segments[i] = url.PathEscape(seg)
			}
			b.WriteString(strings.Join(segments, "/"))
		} else {
			b.WriteString(url.PathEscape(value))
		}
		rest = rest[closing+1:]
	}
	return b.String(), nil
}

// verifyStreaming enforces the shape's streaming declarations: a
// streaming body needs AllowStreaming, and an unknown-length
// stream additionally needs AllowChunkedStreaming.
func verifyStreaming(b body.Body, opts shape.Options) error {
	if b.Kind() != body.KindStream {
		return nil
	}
	if !opts.AllowStreaming {
		return fmt.Errorf("%w: shape does not allow a streaming body", awserr.ErrNotSupported)
	}
	if _, known := b.Len(); !known && !opts.AllowChunkedStreaming {
		return fmt.Errorf("%w: shape does not allow a streaming body of unknown length", awserr.ErrNotSupported)
	}
	return nil
}

// attachChecksum resolves and computes the request checksum header,
// skipping streaming bodies and headers the caller already set.
func attachChecksum(headers transport.Header, b body.Body, opts shape.Options, cfg *ServiceConfig) error {
	if b.Kind() == body.KindStream {
		return nil
	}

	var defaultAlg checksum.Algorithm
	if opts.ChecksumHeader != "" {
		if a, ok := checksum.ParseAlgorithm(opts.ChecksumHeader); ok {
			defaultAlg = a
		}
	}
	alg, ok := checksum.Resolve(checksum.ResolveParams{
		HeaderOverride:        headers.Get(ChecksumAlgorithmHeader),
		ShapeChecksumRequired: opts.ChecksumRequired,
		ShapeDefaultAlgorithm: defaultAlg,
		CalculateMD5:          cfg.CalculateMD5,
		ShapeSupportsMD5:      opts.MD5ChecksumHeader,
	})
	if !ok {
		return nil
	}
	if headers.Has(alg.HeaderName()) {
		return nil
	}

	value, _, err := checksum.Compute(alg, b.Reader())
	if err != nil {
		return err
	}
	headers.Set(alg.HeaderName(), value)
	return nil
}

// setDefaultContentType attaches the protocol-derived content type unless
// the caller set one, never for a GET/HEAD request with an empty body.
func setDefaultContentType(headers transport.Header, method string, b body.Body, contentType string) {
	if headers.Has("content-type") || contentType == "" {
		return
	}
	if isReadMethod(method) && b.IsEmpty() {
		return
	}
	headers.Set("content-type", contentType)
}

func isReadMethod(method string) bool {
	return method == "GET" || method == "HEAD"
}
