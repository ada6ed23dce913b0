// Package testutil holds helpers shared by package tests that stub outbound
// HTTP APIs.
package testutil

import (
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// Unlimited returns a limiter that never blocks.
func Unlimited() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// RewriteClient returns an HTTP client that sends any request whose URL
// starts with prefix to the test server instead, keeping path suffix and
// query string.
func RewriteClient(serverURL, prefix string) *http.Client {
	return &http.Client{Transport: &rewriteTransport{
		base:   http.DefaultTransport,
		server: serverURL,
		prefix: prefix,
	}}
}

type rewriteTransport struct {
	base   http.RoundTripper
	server string
	prefix string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	orig := req.URL.String()
	if !strings.HasPrefix(orig, t.prefix) {
		return t.base.RoundTrip(req)
	}
	target, err := req.URL.Parse(t.server + strings.TrimPrefix(orig, t.prefix))
	if err != nil {
		return nil, err
	}
	clone := req.Clone(req.Context())
	clone.URL = target
	clone.Host = target.Host
	return t.base.RoundTrip(clone)
}
