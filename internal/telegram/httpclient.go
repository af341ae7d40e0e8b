package telegram

import (
	"net"
	"net/http"
	"time"

	"cleanbot/internal/telegram/netutil"
)

const (
	dialTimeout      = 5 * time.Second
	tlsTimeout       = 5 * time.Second
	idleConnTimeout  = 30 * time.Second
	responseTimeout  = 5 * time.Second
	clientTimeout    = 30 * time.Second
	keepAlivePeriod  = 30 * time.Second
	transportRetries = 3
	transportBackoff = 2 * time.Second
)

// BuildHTTPClient returns an HTTP client tuned for Telegram API calls.
func BuildHTTPClient() *http.Client {
	dialer := &net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlivePeriod}
	return &http.Client{
		Timeout: clientTimeout,
		Transport: &retryTransport{
			base: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           dialer.DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       idleConnTimeout,
				TLSHandshakeTimeout:   tlsTimeout,
				ResponseHeaderTimeout: responseTimeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
			retries: transportRetries,
			backoff: transportBackoff,
		},
	}
}

// retryTransport retries transient transport errors with linear backoff.
type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	var lastErr error
	for attempt := 1; attempt <= t.retries+1; attempt++ {
		curr, err := t.replay(req, attempt, lastErr)
		if err != nil {
			return nil, err
		}

		resp, err := base.RoundTrip(curr)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !netutil.ShouldRetry(err) || attempt > t.retries {
			break
		}

		delay := t.backoff * time.Duration(attempt)
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

// replay prepares the request for another attempt. A request whose body
// cannot be rebuilt is not retryable.
func (t *retryTransport) replay(req *http.Request, attempt int, lastErr error) (*http.Request, error) {
	if attempt == 1 {
		return req, nil
	}
	curr := req.Clone(req.Context())
	switch {
	case req.GetBody != nil:
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		curr.Body = body
	case req.Body != nil:
		return nil, lastErr
	}
	return curr, nil
}
