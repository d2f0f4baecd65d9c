package observability

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewHTTPClient returns an http.Client instrumented with otelhttp transport.
func NewHTTPClient(base *http.Client) *http.Client {
	if base == nil {
		base = &http.Client{}
	}
	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	base.Transport = otelhttp.NewTransport(rt)
	return base
}

// headerInjectingTransport adds a fixed set of headers to every outgoing
// request, without overwriting headers the caller already set.
type headerInjectingTransport struct {
	inner   http.RoundTripper
	headers map[string]string
}

func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return t.inner.RoundTrip(req)
}

// WithHeaders returns a shallow copy of base that injects headers into every
// request, used for provider API keys that aren't naturally carried by an
// SDK's option.RequestOption (e.g. embedding HTTP clients).
func WithHeaders(base *http.Client, headers map[string]string) *http.Client {
	c := *base
	rt := c.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	c.Transport = &headerInjectingTransport{inner: rt, headers: headers}
	return &c
}
