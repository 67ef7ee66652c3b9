package httpclient

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

type Options struct {
	PreferIPv4 bool
	Timeout    time.Duration
	Logger     *zerolog.Logger
}

// New builds the client used for image generation calls. Timeout is the
// only time bound a generation request has.
func New(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	dialer := &net.Dialer{
		Timeout:   15 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if opts.PreferIPv4 {
				return dialer.DialContext(ctx, "tcp4", addr)
			}
			return dialer.DialContext(ctx, network, addr)
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	var rt http.RoundTripper = transport
	if opts.Logger != nil {
		rt = &loggingTransport{next: transport, logger: *opts.Logger}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: rt,
	}
}

// loggingTransport logs outbound calls without query strings or headers,
// so API keys never reach the log.
type loggingTransport struct {
	next   http.RoundTripper
	logger zerolog.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)

	ev := t.logger.Debug()
	if err != nil {
		ev = t.logger.Warn().Err(err)
	} else if resp.StatusCode >= 400 {
		ev = t.logger.Warn().Int("status", resp.StatusCode)
	} else {
		ev = ev.Int("status", resp.StatusCode)
	}
	ev.Str("method", req.Method).
		Str("host", req.URL.Host).
		Str("path", req.URL.Path).
		Dur("dur", time.Since(start)).
		Msg("outbound request")

	return resp, err
}
