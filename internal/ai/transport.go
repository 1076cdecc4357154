package ai

import (
	"context"
	"net/http"
	"time"
)

// responseMeta collects header values the SDK clients do not surface.
type responseMeta struct {
	RetryAfter time.Duration
	RequestID  string
}

type metaKey struct{}

func withMeta(ctx context.Context) (context.Context, *responseMeta) {
	m := &responseMeta{}
	return context.WithValue(ctx, metaKey{}, m), m
}

// metaTransport records Retry-After and request id headers into the
// responseMeta carried by the request context.
type metaTransport struct {
	base    http.RoundTripper
	headers http.Header
}

func (t metaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) > 0 {
		req = req.Clone(req.Context())
		for k, vals := range t.headers {
			for _, v := range vals {
				req.Header.Set(k, v)
			}
		}
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return resp, err
	}
	if m, ok := req.Context().Value(metaKey{}).(*responseMeta); ok {
		m.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		m.RequestID = extractRequestID(resp)
	}
	return resp, nil
}

// newHTTPClient returns a client whose transport records response metadata
// and sets the given extra headers on every request.
func newHTTPClient(timeout time.Duration, headers http.Header) *http.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: metaTransport{base: http.DefaultTransport, headers: headers}}
}

// extractRequestID pulls a best-effort request ID from common headers.
func extractRequestID(resp *http.Response) string {
	for _, k := range []string{"X-Request-Id", "Request-Id", "OpenAI-Request-ID", "Openrouter-Request-ID"} {
		if v := resp.Header.Get(k); v != "" {
			return v
		}
	}
	return ""
}
