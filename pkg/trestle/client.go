// Package trestle wraps the Trestle Real Contact API: per-phone contact
// validation returning a grade, activity score, line type, name match, and
// an optional litigator-risk add-on.
package trestle

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

const defaultBaseURL = "https://api.trestleiq.com/3.0"

// AddOnLitigator requests the litigator-risk check alongside validation.
const AddOnLitigator = "litigator_check"

// Client defines the Trestle API operations.
type Client interface {
	RealContact(ctx context.Context, req RealContactRequest) (*Validation, error)
}

// RealContactRequest identifies one phone to validate, with the contact
// details used for the name-match check.
type RealContactRequest struct {
	Name    string   `json:"name"`
	Phone   string   `json:"phone"`
	Email   string   `json:"email,omitempty"`
	Address string   `json:"address,omitempty"`
	AddOns  []string `json:"add_ons,omitempty"`
}

// Validation is the structured outcome for one phone. Grade and activity
// score are nil when the provider cannot score the number; name match is nil
// when indeterminate.
type Validation struct {
	ContactGrade  *string `json:"contact_grade"`  // A-F
	ActivityScore *int    `json:"activity_score"` // 0-100
	LineType      string  `json:"line_type"`
	NameMatch     *bool   `json:"name_match"`
	IsLitigator   bool    `json:"is_litigator"`
}

// APIError is returned when Trestle responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("trestle: HTTP %d: %s", e.StatusCode, e.Body)
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

// WithTimeout caps a single validation call. The default guards the batch
// window against a hung call.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.timeout = d
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// NewClient creates a new Trestle client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		timeout: 15 * time.Second,
		http: &http.Client{
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

// realContactResponse mirrors the wire payload before normalization.
type realContactResponse struct {
	ContactGrade  *string `json:"contact_grade"`
	ActivityScore *int    `json:"activity_score"`
	LineType      string  `json:"line_type"`
	NameMatch     *bool   `json:"name_match"`
	AddOns        struct {
		LitigatorCheck *struct {
			IsLitigator bool `json:"is_litigator"`
		} `json:"litigator_check"`
	} `json:"add_ons"`
}

func (c *httpClient) RealContact(ctx context.Context, req RealContactRequest) (*Validation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	buf, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "trestle: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/real_contact", bytes.NewReader(buf))
	if err != nil {
		return nil, eris.Wrap(err, "trestle: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("trestle: real contact %s", req.Phone))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "trestle: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var wire realContactResponse
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, eris.Wrap(err, "trestle: decode response")
	}

	v := &Validation{
		ContactGrade:  wire.ContactGrade,
		ActivityScore: wire.ActivityScore,
		LineType:      wire.LineType,
		NameMatch:     wire.NameMatch,
	}
	if wire.AddOns.LitigatorCheck != nil {
		v.IsLitigator = wire.AddOns.LitigatorCheck.IsLitigator
	}
	return v, nil
}
