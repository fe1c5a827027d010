// Package proxy implements the outbound transport side of the Forward
// and OverrideForward actions: construct an upstream request from a
// request fingerprint (or an overridden copy of one), send it, and
// return the upstream response for the dispatcher to relay back to the
// client.
package proxy

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/publicsuffix"

	"github.com/mockdcore/mockdcore/pkg/expectation"
)

// hopByHopHeaders are stripped before a request is relayed upstream;
// they describe the connection to the mock server, not to the target.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"TE",
	"Trailers",
	"Transfer-Encoding",
}

// Response is the upstream response relayed back through the
// dispatcher, paired with how long the round trip took.
type Response struct {
	StatusCode int
	Status     string
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Client forwards fingerprints to upstream targets. A Client is safe
// for concurrent use and should be shared across forward dispatches.
type Client struct {
	http *http.Client
}

// New builds a Client with an HTTP/2-capable transport and a
// public-suffix-aware cookie jar, so forwarded requests that carry
// cookies behave the way a browser's would against the target.
func New() (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("proxy: building cookie jar: %w", err)
	}

	transport := &http.Transport{}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("proxy: configuring http2 transport: %w", err)
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Jar:       jar,
			// Forward semantics relay the upstream response as-is;
			// redirects are upstream's business, not ours.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// Forward sends fp to target, returning the upstream response. target
// is the target host/port/scheme of a Forward action; fp's Method,
// Path, Query, Headers, and Body are relayed, except that hop-by-hop
// headers are dropped, the Host header is rewritten to target's
// authority, and X-Forwarded-Host is set to that authority.
func (c *Client) Forward(ctx context.Context, target expectation.ForwardTarget, fp expectation.RequestFingerprint) (*Response, error) {
	return c.do(ctx, buildUpstreamRequest(target, fp))
}

// ForwardWithOverride applies override onto fp before forwarding, per
// the OverrideForward action: non-empty override fields replace the
// corresponding field of fp, everything else passes through unchanged.
func (c *Client) ForwardWithOverride(ctx context.Context, target expectation.ForwardTarget, fp expectation.RequestFingerprint, override expectation.RequestOverride) (*Response, error) {
	overridden := applyOverride(fp, override)
	return c.do(ctx, buildUpstreamRequest(target, overridden))
}

func (c *Client) do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*Response, error) {
	start := time.Now()

	outReq, err := build(ctx)
	if err != nil {
		return nil, fmt.Errorf("proxy: building upstream request: %w", err)
	}

	resp, err := c.http.Do(outReq)
	if err != nil {
		return nil, fmt.Errorf("proxy: upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readAllLimited(resp.Body, maxUpstreamBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("proxy: reading upstream response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Headers:    resp.Header.Clone(),
		Body:       body,
		Duration:   time.Since(start),
	}, nil
}

func applyOverride(fp expectation.RequestFingerprint, override expectation.RequestOverride) expectation.RequestFingerprint {
	out := fp
	if override.Method != "" {
		out.Method = override.Method
	}
	if override.Path != "" {
		out.Path = override.Path
	}
	if override.Headers != nil {
		merged := make(map[string][]string, len(fp.Headers)+len(override.Headers))
		for k, v := range fp.Headers {
			merged[k] = v
		}
		for k, v := range override.Headers {
			merged[k] = v
		}
		out.Headers = merged
	}
	if override.Body != nil {
		out.Body = override.Body
	}
	return out
}

func buildUpstreamRequest(target expectation.ForwardTarget, fp expectation.RequestFingerprint) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		scheme := target.Scheme
		if scheme == "" {
			scheme = "http"
		}
		authority := target.Host
		if target.Port != 0 {
			authority = fmt.Sprintf("%s:%d", target.Host, target.Port)
		}

		url := fmt.Sprintf("%s://%s%s", scheme, authority, fp.Path)
		if len(fp.Query) > 0 {
			url += "?" + encodeQuery(fp.Query)
		}

		outReq, err := http.NewRequestWithContext(ctx, fp.Method, url, bytes.NewReader(fp.Body))
		if err != nil {
			return nil, err
		}

		for key, values := range fp.Headers {
			for _, v := range values {
				outReq.Header.Add(key, v)
			}
		}
		for _, h := range hopByHopHeaders {
			outReq.Header.Del(h)
		}
		outReq.Host = authority
		outReq.Header.Set("X-Forwarded-Host", authority)

		return outReq, nil
	}
}
