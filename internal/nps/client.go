package nps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/joeblew999/plat-parks/internal/service"
)

// DefaultBaseURL is the NPS developer API root.
const DefaultBaseURL = "https://developer.nps.gov/api/v1"

// FetchTimeout bounds one request to the NPS API.
const FetchTimeout = 5 * time.Second

// ErrUnavailable indicates the NPS API could not be reached or answered with an error.
var ErrUnavailable = errors.New("the National Park Service API is unavailable")

// APIError represents a non-2xx response from the NPS API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("NPS API error (status %d) from %s: %s", e.StatusCode, e.Endpoint, e.Message)
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	return target == ErrUnavailable
}

// Client fetches parks for one state from the NPS API.
type Client struct {
	BaseURL   string
	APIKey    string
	StateCode string
	Limit     int
	HTTP      *http.Client
	Extractor Extractor
}

// NewClient creates a client for the default region with a bounded timeout.
func NewClient(apiKey string) *Client {
	return &Client{
		BaseURL:   DefaultBaseURL,
		APIKey:    apiKey,
		StateCode: service.Oregon.StateCode,
		Limit:     100,
		HTTP:      &http.Client{Timeout: FetchTimeout},
	}
}

// Parks fetches and normalizes all parks for the configured state.
func (c *Client) Parks(ctx context.Context) ([]service.ParkData, error) {
	endpoint := c.BaseURL + "/parks"
	q := url.Values{}
	q.Set("api_key", c.APIKey)
	q.Set("fields", "addresses,images")
	q.Set("stateCode", c.StateCode)
	if c.Limit > 0 {
		q.Set("limit", strconv.Itoa(c.Limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating NPS request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: FetchTimeout}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body), Endpoint: endpoint}
	}

	var data Response
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrParse, err)
	}
	return c.Extractor.Extract(&data)
}
