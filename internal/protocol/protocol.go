// Package protocol implements the request encoder and response decoder
// of the service-client pipeline: it turns an operation plus a typed
// input shape into a ready-to-sign HttpRequest, and a raw HttpResponse
// back into a populated output shape or a typed service error. The five
// wire protocols are a tagged variant the encoder and decoder branch on;
// the per-protocol codecs live in the awsjson, restjson, restxml, and
// query subpackages.
package protocol

import (
	"github.com/prn-tf/awscore/internal/awserr"
)

// ServiceProtocol tags the wire protocol a service speaks.
type ServiceProtocol int

const (
	AwsJson ServiceProtocol = iota
	RestJson
	RestXml
	Query
	Ec2Query
)

func (p ServiceProtocol) String() string {
	switch p {
	case AwsJson:
		return "aws-json"
	case RestJson:
		return "rest-json"
	case RestXml:
		return "rest-xml"
	case Query:
		return "query"
	case Ec2Query:
		return "ec2-query"
	default:
		return "unknown"
	}
}

// ErrorConstructor builds a service-specific error from a decoded
// ServiceError, so errors.As against the concrete type works for callers
// that registered it in the ErrorCodeMap.
type ErrorConstructor func(*awserr.ServiceError) error

// ServiceConfig is the immutable per-service-client configuration:
// endpoint, identity, protocol tag, and feature flags.
type ServiceConfig struct {
	// Endpoint is the base URL requests are issued against, e.g.
	// "https://s3.us-east-1.amazonaws.com".
	Endpoint string

	// Region the client signs for.
	Region string

	// SigningName is the service name used in the credential scope
	// ("s3", "sts", "dynamodb", ...).
	SigningName string

	// APIVersion is the Version parameter the Query protocols carry.
	APIVersion string

	// Protocol selects the wire codec.
	Protocol ServiceProtocol

	// AmzTarget, when non-empty, prefixes the x-amz-target header value
	// ("<AmzTarget>.<OperationName>").
	AmzTarget string

	// XMLNamespace is the default xmlns for REST-XML documents when the
	// shape declares none.
	XMLNamespace string

	// CalculateMD5 enables content-md5 fallback for shapes that support
	// it.
	CalculateMD5 bool

	// S3DisableChunkedUploads turns off the aws-chunked signing path for
	// streaming S3 uploads of known length.
	S3DisableChunkedUploads bool

	// ErrorCodeMap resolves decoded error codes to service-specific
	// error constructors.
	ErrorCodeMap map[string]ErrorConstructor
}

// Operation names one service operation: its wire name, the path
// template its input binds URI parameters into, and the HTTP method.
type Operation struct {
	Name         string
	PathTemplate string
	Method       string
}
