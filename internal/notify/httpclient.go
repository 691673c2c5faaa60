package notify

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient returns the client the Telegram sender talks through. The
// dispatcher sends one message at a time to a single host, so one idle
// connection is kept and every deadline is bounded by sendTimeout.
func NewHTTPClient(userAgent string) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   sendTimeout / 2,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost:   1,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   sendTimeout / 2,
		ResponseHeaderTimeout: sendTimeout,
	}

	return &http.Client{
		Transport: userAgentTransport{next: transport, userAgent: userAgent},
		Timeout:   sendTimeout,
	}
}

type userAgentTransport struct {
	next      http.RoundTripper
	userAgent string
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent == "" || req.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.next.RoundTrip(req)
}
