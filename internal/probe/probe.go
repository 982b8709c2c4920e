// Package probe implements bounded reachability checks against
// configured servers, either as a raw TCP connect or an HTTP GET.
package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

type Method string

const (
	MethodTCP  Method = "tcp"
	MethodHTTP Method = "http"
)

// Prober issues a single reachability check per call. It never errors:
// connection refused, timeouts, and TLS failures all map to an unhealthy
// verdict.
type Prober struct {
	method  Method
	path    string
	timeout time.Duration
	client  *http.Client
}

func New(method Method, path string, timeout time.Duration) *Prober {
	if path == "" {
		path = "/"
	}
	return &Prober{
		method:  method,
		path:    path,
		timeout: timeout,
		client:  HTTPClient(),
	}
}

func (p *Prober) Probe(ctx context.Context, addr string, port int) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	switch p.method {
	case MethodHTTP:
		return p.probeHTTP(ctx, addr, port)
	default:
		return p.probeTCP(ctx, addr, port)
	}
}

func (p *Prober) probeTCP(ctx context.Context, addr string, port int) bool {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp",
		net.JoinHostPort(addr, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// probeHTTP reports whether the server answers with any status under 500.
// Redirects are followed and count as reachable.
func (p *Prober) probeHTTP(ctx context.Context, addr string, port int) bool {
	scheme := "http"
	if port == 443 {
		scheme = "https"
	}
	uri := fmt.Sprintf("%s://%s%s", scheme,
		net.JoinHostPort(addr, strconv.Itoa(port)), p.path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return false
	}
	rsp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = rsp.Body.Close() }()

	return rsp.StatusCode < http.StatusInternalServerError
}

func HTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ForceAttemptHTTP2:     true,
			MaxIdleConnsPerHost:   -1,
			DisableKeepAlives:     true,
		},
	}
}
