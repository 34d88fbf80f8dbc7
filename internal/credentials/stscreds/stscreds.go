// Package stscreds implements the STS AssumeRole and
// AssumeRoleWithWebIdentity credential providers: a small hand-rolled
// Query-protocol request with an encoding/xml response envelope, rather
// than a general-purpose client for a single call site.
package stscreds

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/prn-tf/awscore/internal/awserr"
	"github.com/prn-tf/awscore/internal/credentials"
	"github.com/prn-tf/awscore/internal/logging"
	"github.com/prn-tf/awscore/internal/signer"
	"github.com/prn-tf/awscore/internal/transport"
)

const (
	apiVersion = "2011-06-15"
	stsService = "sts"
	stsRegion  = "us-east-1"
)

// HTTPDoer is the minimal interface stscreds needs from an HTTP client,
// satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// AssumeRoleProvider calls sts:AssumeRole with a fixed role ARN, signing
// the request with a source credential.
type AssumeRoleProvider struct {
	Endpoint        string
	Region          string
	RoleARN         string
	RoleSessionName string
	DurationSeconds int
	Source          credentials.Provider
	HTTP            HTTPDoer
}

// AssumeRoleWithWebIdentityProvider calls
// sts:AssumeRoleWithWebIdentity using a web-identity token read from disk
// (the Environment provider's AWS_ROLE_ARN +
// AWS_WEB_IDENTITY_TOKEN_FILE delegation).
type AssumeRoleWithWebIdentityProvider struct {
	Endpoint        string
	RoleARN         string
	RoleSessionName string
	TokenFilePath   string
	HTTP            HTTPDoer
}

type assumeRoleResult struct {
	Credentials struct {
		AccessKeyId     string `xml:"AccessKeyId"`
		SecretAccessKey string `xml:"SecretAccessKey"`
		SessionToken    string `xml:"SessionToken"`
		Expiration      string `xml:"Expiration"`
	} `xml:"Credentials"`
}

type assumeRoleResponse struct {
	XMLName xml.Name         `xml:"AssumeRoleResponse"`
	Result  assumeRoleResult `xml:"AssumeRoleResult"`
}

type assumeRoleWithWebIdentityResponse struct {
	XMLName xml.Name         `xml:"AssumeRoleWithWebIdentityResponse"`
	Result  assumeRoleResult `xml:"AssumeRoleWithWebIdentityResult"`
}

type stsErrorResponse struct {
	Error struct {
		Code    string `xml:"Code"`
		Message string `xml:"Message"`
	} `xml:"Error"`
}

func httpClient(d HTTPDoer) HTTPDoer {
	if d != nil {
		return d
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func endpointOrDefault(e string) string {
	if e != "" {
		return e
	}
	return "https://sts.amazonaws.com/"
}

// Retrieve signs and sends an AssumeRole request with the source
// provider's credential, returning the temporary credential STS issues.
func (p *AssumeRoleProvider) Retrieve(ctx context.Context, logger logging.Logger) (credentials.ExpiringCredential, error) {
	src, err := p.Source.Retrieve(ctx, logger)
	if err != nil {
		return credentials.ExpiringCredential{}, awserr.Wrap(err, "stscreds: source credential fetch")
	}

	form := url.Values{}
	form.Set("Action", "AssumeRole")
	form.Set("Version", apiVersion)
	form.Set("RoleArn", p.RoleARN)
	form.Set("RoleSessionName", p.RoleSessionName)
	if p.DurationSeconds > 0 {
		form.Set("DurationSeconds", fmt.Sprintf("%d", p.DurationSeconds))
	}

	var out assumeRoleResponse
	if err := p.call(ctx, form, src.Credential, &out); err != nil {
		return credentials.ExpiringCredential{}, err
	}
	return toExpiringCredential(out.Result)
}

// Shutdown propagates to the source provider, which holds the only
// long-lived resource in this chain.
func (p *AssumeRoleProvider) Shutdown() error {
	if p.Source != nil {
		return p.Source.Shutdown()
	}
	return nil
}

// call signs the AssumeRole form POST with the source credential before
// sending it; STS accepts SigV4 over its Query-protocol endpoint just like
// any other AWS service (unlike AssumeRoleWithWebIdentity, which is
// intentionally unsigned since the caller has no AWS credential yet).
func (p *AssumeRoleProvider) call(ctx context.Context, form url.Values, cred credentials.Credential, out *assumeRoleResponse) error {
	region := p.Region
	if region == "" {
		region = stsRegion
	}
	body := []byte(form.Encode())
	s := signer.New(cred, region, stsService)
	headers := transport.NewHeader()
	headers.Set("Content-Type", "application/x-www-form-urlencoded")
	signed, err := s.SignHeaders(endpointOrDefault(p.Endpoint), http.MethodPost, headers, signer.BodyDescriptor{Kind: signer.BodyBytes, Raw: body}, false, time.Time{})
	if err != nil {
		return awserr.Wrap(err, "stscreds: sign request")
	}
	return doSTSRequest(ctx, httpClient(p.HTTP), endpointOrDefault(p.Endpoint), body, signed, out)
}

// Retrieve reads the web-identity token from disk and exchanges it for
// temporary credentials via AssumeRoleWithWebIdentity.
func (p *AssumeRoleWithWebIdentityProvider) Retrieve(ctx context.Context, _ logging.Logger) (credentials.ExpiringCredential, error) {
	tokenBytes, err := os.ReadFile(p.TokenFilePath)
	if err != nil {
		return credentials.ExpiringCredential{}, fmt.Errorf("%w: %s", awserr.ErrTokenIdFileFailedToLoad, p.TokenFilePath)
	}

	form := url.Values{}
	form.Set("Action", "AssumeRoleWithWebIdentity")
	form.Set("Version", apiVersion)
	form.Set("RoleArn", p.RoleARN)
	form.Set("RoleSessionName", p.RoleSessionName)
	form.Set("WebIdentityToken", strings.TrimSpace(string(tokenBytes)))

	var out assumeRoleWithWebIdentityResponse
	body := []byte(form.Encode())
	unsigned := transport.NewHeader()
	unsigned.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := doSTSRequest(ctx, httpClient(p.HTTP), endpointOrDefault(p.Endpoint), body, unsigned, &out); err != nil {
		return credentials.ExpiringCredential{}, err
	}
	return toExpiringCredential(out.Result)
}

// Shutdown is a no-op; this provider holds no long-lived resources.
func (p *AssumeRoleWithWebIdentityProvider) Shutdown() error { return nil }

func doSTSRequest(ctx context.Context, client HTTPDoer, endpoint string, body []byte, headers transport.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return awserr.Wrap(err, "stscreds: build request")
	}
	for _, k := range headers.Keys() {
		for _, v := range headers.Values(k) {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return awserr.Wrap(err, "stscreds: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return awserr.Wrap(err, "stscreds: read response")
	}

	if resp.StatusCode >= 300 {
		var errResp stsErrorResponse
		if xml.Unmarshal(respBody, &errResp) == nil && errResp.Error.Code != "" {
			return fmt.Errorf("stscreds: %s: %s", errResp.Error.Code, errResp.Error.Message)
		}
		return fmt.Errorf("stscreds: unexpected status %d", resp.StatusCode)
	}

	if err := xml.Unmarshal(respBody, out); err != nil {
		return awserr.Wrap(err, "stscreds: decode response")
	}
	return nil
}

func toExpiringCredential(r assumeRoleResult) (credentials.ExpiringCredential, error) {
	exp, err := time.Parse(time.RFC3339, r.Credentials.Expiration)
	if err != nil {
		exp = time.Now().Add(time.Hour)
	}
	return credentials.ExpiringCredential{
		Credential: credentials.Credential{
			AccessKeyID:     r.Credentials.AccessKeyId,
			SecretAccessKey: r.Credentials.SecretAccessKey,
			SessionToken:    r.Credentials.SessionToken,
		},
		Expiration: exp,
	}, nil
}
