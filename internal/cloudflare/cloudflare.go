// Package cloudflare implements the DNS record store against the
// Cloudflare v4 API.
package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/penguinvovan/cloudflare-dns/internal/failover"
	"github.com/penguinvovan/cloudflare-dns/internal/probe"
)

const defaultBaseURL = "https://api.cloudflare.com/client/v4"

type Client struct {
	apiToken string
	baseURL  string
	client   *http.Client
}

type Params struct {
	APIToken string
	ZoneID   string

	// BaseURL overrides the Cloudflare API endpoint in tests.
	BaseURL string

	HTTPClient *http.Client
}

var _ failover.DNSStore = &Client{}

func New(p Params) *Client {
	base := p.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	client := p.HTTPClient
	if client == nil {
		client = probe.HTTPClient()
	}
	return &Client{
		apiToken: p.APIToken,
		baseURL:  fmt.Sprintf("%s/zones/%s/dns_records", base, p.ZoneID),
		client:   client,
	}
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// GetRecord returns the first record matching (name, recordType), or
// failover.ErrRecordNotFound if the zone holds none.
func (c *Client) GetRecord(
	ctx context.Context,
	name, recordType string,
) (failover.Record, error) {
	var zero failover.Record

	params := url.Values{
		"name": []string{name},
		"type": []string{recordType},
	}
	uri := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return zero, fmt.Errorf("new request: %w", err)
	}
	rsp, err := c.do(req)
	if err != nil {
		return zero, fmt.Errorf("do: %w", err)
	}
	defer func() { _ = rsp.Body.Close() }()

	if rsp.StatusCode != http.StatusOK {
		byt, _ := io.ReadAll(rsp.Body)
		return zero, fmt.Errorf("bad status code %d: %s",
			rsp.StatusCode, string(byt))
	}

	var data struct {
		Success bool `json:"success"`
		Result  []struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Type    string `json:"type"`
			Content string `json:"content"`
			TTL     int    `json:"ttl"`
		} `json:"result"`
		Errors []apiError `json:"errors"`
	}
	if err = json.NewDecoder(rsp.Body).Decode(&data); err != nil {
		return zero, fmt.Errorf("decode: %w", err)
	}
	if !data.Success {
		return zero, fmt.Errorf("failed: %v", data.Errors)
	}
	if len(data.Result) == 0 {
		return zero, failover.ErrRecordNotFound
	}
	r := data.Result[0]
	return failover.Record{
		ID:      r.ID,
		Name:    r.Name,
		Type:    r.Type,
		Content: r.Content,
		TTL:     r.TTL,
	}, nil
}

// UpdateRecord overwrites the record identified by r.ID.
func (c *Client) UpdateRecord(ctx context.Context, r failover.Record) error {
	data := struct {
		Type    string `json:"type"`
		Name    string `json:"name"`
		Content string `json:"content"`
		TTL     int    `json:"ttl"`
	}{
		Type:    r.Type,
		Name:    r.Name,
		Content: r.Content,
		TTL:     r.TTL,
	}
	byt, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	uri := fmt.Sprintf("%s/%s", c.baseURL, r.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uri,
		bytes.NewReader(byt))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	rsp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("do: %w", err)
	}
	defer func() { _ = rsp.Body.Close() }()

	if rsp.StatusCode != http.StatusOK {
		byt, _ := io.ReadAll(rsp.Body)
		return fmt.Errorf("bad status code %d: %s",
			rsp.StatusCode, string(byt))
	}

	var result struct {
		Success bool       `json:"success"`
		Errors  []apiError `json:"errors"`
	}
	if err = json.NewDecoder(rsp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("failed: %v", result.Errors)
	}
	return nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	return c.client.Do(req)
}
