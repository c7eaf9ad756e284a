package mdhfsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal HTTP client for the conversion service.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// Stats summarizes one converted instance.
type Stats struct {
	CategoryA       int     `json:"nb_delivery_with_low_return"`
	CategoryB       int     `json:"nb_delivery_with_significant_return"`
	CategoryC       int     `json:"nb_return_only"`
	TotalDelivery   int     `json:"total_delivery_quantity"`
	TotalPickup     int     `json:"total_pickup_quantity"`
	PickupRatio     float64 `json:"pickup_to_delivery_ratio"`
	MinCapacity     int     `json:"min_capacity"`
	CapacityRepairs int     `json:"capacity_repairs"`
	WindowRepairs   int     `json:"window_repairs"`
}

// Run is a ledger entry for one conversion.
type Run struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Input      string `json:"input"`
	Output     string `json:"output"`
	Format     string `json:"format"`
	Seed       int64  `json:"seed"`
	Status     string `json:"status"`
	Error      string `json:"error"`
	Customers  int    `json:"customers"`
	Depots     int    `json:"depots"`
	Stats      *Stats `json:"stats"`
	ConfigYAML string `json:"config_yaml"`
	Host       string `json:"host"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
}

// Conversion is the result of Convert.
type Conversion struct {
	Run    Run    `json:"run"`
	Stats  Stats  `json:"stats"`
	Output string `json:"output"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// Principal is the caller identity as seen by the server.
type Principal struct {
	ActorID string `json:"actor_id"`
	Source  string `json:"source"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// PaginatedRuns wraps run listings with a cursor.
type PaginatedRuns struct {
	Items      []Run  `json:"items"`
	NextCursor string `json:"next_cursor"`
}

// PaginatedEvents wraps event listings with a cursor.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// ConvertRequest describes an uploaded instance. Seed overrides the server
// configuration when non-nil.
type ConvertRequest struct {
	Name     string `json:"name"`
	Instance string `json:"instance"`
	Format   string `json:"format,omitempty"`
	Seed     *int64 `json:"seed,omitempty"`
}

// Convert uploads an instance and returns the converted rendering.
func (c *Client) Convert(ctx context.Context, req ConvertRequest) (Conversion, error) {
	var resp Conversion
	err := c.do(ctx, http.MethodPost, "convert", req, &resp)
	return resp, err
}

// GetRun fetches one run including its config snapshot.
func (c *Client) GetRun(ctx context.Context, id string) (Run, error) {
	var resp Run
	err := c.do(ctx, http.MethodGet, "runs/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListRuns returns one page of runs, newest first. status may be empty.
func (c *Client) ListRuns(ctx context.Context, status string, limit int, cursor string) (PaginatedRuns, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	var resp PaginatedRuns
	err := c.do(ctx, http.MethodGet, withQuery("runs", q), nil, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, withQuery("events", q), nil, &resp)
	return resp, err
}

// Me returns the principal the server resolved for this client.
func (c *Client) Me(ctx context.Context) (Principal, error) {
	var resp Principal
	err := c.do(ctx, http.MethodGet, "me", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/v0/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func withQuery(endpoint string, q url.Values) string {
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
