// Package tracerfy wraps the Tracerfy skip-trace API: batch submission, job
// queue polling, and result download with payload normalization.
package tracerfy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.tracerfy.com/v1"

// Client defines the Tracerfy API operations.
type Client interface {
	BeginTrace(ctx context.Context, req TraceRequest) (*TraceResponse, error)
	GetQueueStatus(ctx context.Context, queueID string) (*QueueStatusResponse, error)
	GetQueueResults(ctx context.Context, queueID string) ([]Result, error)
}

// TraceRecord is one person/address tuple submitted for tracing. Records
// missing name or address fields are accepted but rarely match.
type TraceRecord struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
}

// TraceRequest is the body for POST /queue.
type TraceRequest struct {
	Records  []TraceRecord `json:"records"`
	Priority string        `json:"priority,omitempty"`
}

// TraceResponse is the response from POST /queue.
type TraceResponse struct {
	Success bool   `json:"success"`
	QueueID string `json:"queue_id"`
}

// QueueStatusResponse is the response from GET /queue/{id}.
type QueueStatusResponse struct {
	Status       string `json:"status"` // pending | processing | completed | failed
	Downloadable bool   `json:"downloadable"`
}

// Phone is a normalized traced phone number.
type Phone struct {
	Number   string `json:"number"`
	LineType string `json:"line_type"` // Mobile | Landline | VoIP | Unknown
}

// Result is the normalized trace outcome for one submitted record, in
// submission order.
type Result struct {
	Phones []Phone  `json:"phones"`
	Emails []string `json:"emails"`
}

// APIError is returned when Tracerfy responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tracerfy: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
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

// NewClient creates a new Tracerfy client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
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

func (c *httpClient) BeginTrace(ctx context.Context, req TraceRequest) (*TraceResponse, error) {
	var resp TraceResponse
	if err := c.post(ctx, "/queue", req, &resp); err != nil {
		return nil, eris.Wrap(err, "tracerfy: begin trace")
	}
	return &resp, nil
}

func (c *httpClient) GetQueueStatus(ctx context.Context, queueID string) (*QueueStatusResponse, error) {
	var resp QueueStatusResponse
	if err := c.get(ctx, fmt.Sprintf("/queue/%s", queueID), &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("tracerfy: get queue status %s", queueID))
	}
	return &resp, nil
}

func (c *httpClient) GetQueueResults(ctx context.Context, queueID string) ([]Result, error) {
	var raw struct {
		Results []rawResult `json:"results"`
	}
	if err := c.get(ctx, fmt.Sprintf("/queue/%s/results", queueID), &raw); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("tracerfy: get queue results %s", queueID))
	}

	results := make([]Result, len(raw.Results))
	for i, rr := range raw.Results {
		results[i] = rr.normalize()
	}
	return results, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(req, out)
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(req, out)
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
