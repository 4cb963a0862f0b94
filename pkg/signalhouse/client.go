// Package signalhouse wraps the SignalHouse SMS API: outbound message
// dispatch and campaign configuration lookup by sending number. Inbound
// webhook payloads are defined here too so the serve command and the API
// client share one schema.
package signalhouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.signalhouse.io/v1"

// Client defines the SignalHouse API operations.
type Client interface {
	SendMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
	GetCampaignConfig(ctx context.Context, sendingNumber string) (*CampaignConfig, error)
}

// MessageRequest is the body for POST /message.
type MessageRequest struct {
	To         string `json:"to"`
	Message    string `json:"message"`
	CampaignID string `json:"campaignId"`
}

// MessageResponse is the response from POST /message.
type MessageResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id"`
}

// CampaignConfig is the provider-side identity for a sending number.
type CampaignConfig struct {
	CampaignID    string `json:"campaign_id"`
	BrandID       string `json:"brand_id"`
	SendingNumber string `json:"sending_number"`
	RatePerSecond int    `json:"rate_per_second"`
	DailyCap      int    `json:"daily_cap"`
}

// InboundMessage is the webhook payload SignalHouse posts for a reply.
type InboundMessage struct {
	From       string    `json:"from"`
	To         string    `json:"to"`
	Body       string    `json:"body"`
	CampaignID string    `json:"campaignId"`
	ReceivedAt time.Time `json:"received_at"`
}

// APIError is returned when SignalHouse responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("signalhouse: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new SignalHouse client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SendMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	buf, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "signalhouse: marshal message")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/message", bytes.NewReader(buf))
	if err != nil {
		return nil, eris.Wrap(err, "signalhouse: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	var resp MessageResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("signalhouse: send to %s", req.To))
	}
	return &resp, nil
}

func (c *httpClient) GetCampaignConfig(ctx context.Context, sendingNumber string) (*CampaignConfig, error) {
	path := fmt.Sprintf("/campaign/config?number=%s", url.QueryEscape(sendingNumber))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, eris.Wrap(err, "signalhouse: create request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	var resp CampaignConfig
	if err := c.do(httpReq, &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("signalhouse: campaign config for %s", sendingNumber))
	}
	return &resp, nil
}

func (c *httpClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}

	return nil
}
