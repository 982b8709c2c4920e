// Package verify confirms that a DNS change has propagated by querying
// public resolvers directly and through DNS-over-HTTPS JSON endpoints.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/exp/slog"

	"github.com/penguinvovan/cloudflare-dns/internal/probe"
)

// Source is one place to ask for an answer: a resolver address
// ("8.8.8.8:53") or a DoH JSON endpoint URL.
type Source struct {
	Name string
	Addr string
}

// Result is one source's answer for a domain. Addr is empty when the
// source failed to answer.
type Result struct {
	Source string `json:"source"`
	Addr   string `json:"addr,omitempty"`
}

type Checker struct {
	log        *slog.Logger
	client     *dns.Client
	httpClient *http.Client
	resolvers  []Source
	doh        []Source
	poll       time.Duration
}

type CheckerOpts struct {
	Log *slog.Logger

	// Resolvers are queried directly over UDP. Defaults to Google,
	// Cloudflare, OpenDNS and Quad9.
	Resolvers []Source

	// DoHEndpoints are DNS JSON APIs queried over HTTPS.
	DoHEndpoints []Source

	// PollInterval between propagation checks while waiting.
	PollInterval time.Duration
}

func NewChecker(opts CheckerOpts) *Checker {
	resolvers := opts.Resolvers
	if resolvers == nil {
		resolvers = []Source{
			{Name: "Google DNS", Addr: "8.8.8.8:53"},
			{Name: "Cloudflare DNS", Addr: "1.1.1.1:53"},
			{Name: "OpenDNS", Addr: "208.67.222.222:53"},
			{Name: "Quad9", Addr: "9.9.9.9:53"},
		}
	}
	doh := opts.DoHEndpoints
	if doh == nil {
		doh = []Source{
			{Name: "Google DNS API", Addr: "https://dns.google/resolve"},
			{Name: "Cloudflare DNS API", Addr: "https://cloudflare-dns.com/dns-query"},
		}
	}
	poll := opts.PollInterval
	if poll == 0 {
		poll = 15 * time.Second
	}
	return &Checker{
		log:        opts.Log,
		client:     &dns.Client{Timeout: 10 * time.Second},
		httpClient: probe.HTTPClient(),
		resolvers:  resolvers,
		doh:        doh,
		poll:       poll,
	}
}

// Check asks every source for the domain's A record.
func (c *Checker) Check(ctx context.Context, domain string) []Result {
	results := make([]Result, 0, len(c.resolvers)+len(c.doh))
	for _, src := range c.resolvers {
		addr, err := c.resolve(ctx, domain, src.Addr)
		if err != nil {
			c.log.Debug("resolver query failed",
				slog.String("source", src.Name),
				slog.Any("error", err))
		}
		results = append(results, Result{Source: src.Name, Addr: addr})
	}
	for _, src := range c.doh {
		addr, err := c.resolveDoH(ctx, domain, src.Addr)
		if err != nil {
			c.log.Debug("doh query failed",
				slog.String("source", src.Name),
				slog.Any("error", err))
		}
		results = append(results, Result{Source: src.Name, Addr: addr})
	}
	return results
}

func (c *Checker) resolve(
	ctx context.Context,
	domain, resolver string,
) (string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), dns.TypeA)
	rsp, _, err := c.client.ExchangeContext(ctx, m, resolver)
	if err != nil {
		return "", fmt.Errorf("exchange: %w", err)
	}
	if rsp.Rcode != dns.RcodeSuccess {
		return "", fmt.Errorf("rcode: %s", dns.RcodeToString[rsp.Rcode])
	}
	for _, ans := range rsp.Answer {
		if a, ok := ans.(*dns.A); ok {
			return a.A.String(), nil
		}
	}
	return "", fmt.Errorf("no A answer for %s", domain)
}

func (c *Checker) resolveDoH(
	ctx context.Context,
	domain, endpoint string,
) (string, error) {
	uri := fmt.Sprintf("%s?name=%s&type=A", endpoint, domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/dns-json")
	rsp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do: %w", err)
	}
	defer func() { _ = rsp.Body.Close() }()

	if rsp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status code %d", rsp.StatusCode)
	}
	var data struct {
		Answer []struct {
			Data string `json:"data"`
		} `json:"Answer"`
	}
	if err := json.NewDecoder(rsp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if len(data.Answer) == 0 {
		return "", fmt.Errorf("no answer for %s", domain)
	}
	return data.Answer[0].Data, nil
}

func tally(results []Result, expected string) (answered, matching int) {
	for _, r := range results {
		if r.Addr == "" {
			continue
		}
		answered++
		if r.Addr == expected {
			matching++
		}
	}
	return answered, matching
}

// propagated reports whether at least 70% of the sources that answered
// agree on the expected address.
func propagated(results []Result, expected string) bool {
	answered, matching := tally(results, expected)
	return answered > 0 &&
		float64(matching)/float64(answered) >= 0.7
}

// WaitForPropagation polls until enough sources return the expected
// address or maxWait elapses. It reports whether propagation was
// observed; ctx cancellation is the only error.
func (c *Checker) WaitForPropagation(
	ctx context.Context,
	domain, expected string,
	maxWait time.Duration,
) (bool, error) {
	deadline := time.Now().Add(maxWait)
	for {
		results := c.Check(ctx, domain)
		answered, matching := tally(results, expected)
		c.log.Info("propagation check",
			slog.String("domain", domain),
			slog.Int("matching", matching),
			slog.Int("answered", answered))
		if propagated(results, expected) {
			return true, nil
		}
		if time.Now().Add(c.poll).After(deadline) {
			return false, nil
		}
		select {
		case <-time.After(c.poll):
			// Keep going
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}
