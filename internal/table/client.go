package table

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	appLog "eventfeed/internal/log"
	"eventfeed/internal/metrics"
	"eventfeed/internal/model"
)

// maxErrorBody caps how much of a non-2xx body is kept for the message.
const maxErrorBody = 64 << 10

// Response is the rows payload of the table API.
type Response struct {
	Items []model.RawRow `json:"items"`
	Href  string         `json:"href,omitempty"`

	// NextPageLink is reported by the API when more rows exist. It is
	// logged but not followed.
	NextPageLink  string `json:"nextPageLink,omitempty"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

// Client fetches the rows of a single table.
type Client struct {
	client  *http.Client
	url     string
	token   string
	timeout time.Duration
	metrics *metrics.Metrics
}

// Options configures a Client.
type Options struct {
	URL     string
	Token   string
	Timeout time.Duration

	// Metrics is optional.
	Metrics *metrics.Metrics

	// Transport overrides the default round tripper, mainly for tests.
	Transport http.RoundTripper
}

// NewClient creates a Client. A zero Timeout means 30 seconds.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
		url:     opts.URL,
		token:   strings.TrimSpace(opts.Token),
		timeout: opts.Timeout,
		metrics: opts.Metrics,
	}
}

// Fetch performs exactly one GET against the rows endpoint. Every
// failure is returned as an *Error. A missing token fails before any
// request is built.
func (c *Client) Fetch(ctx context.Context) ([]model.RawRow, error) {
	start := time.Now()
	items, err := c.fetch(ctx)

	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
		appLog.Error("table fetch failed", err, "kind", outcome, "url", redactURL(c.url))
	}
	c.metrics.ObserveFetch(outcome, time.Since(start), len(items))

	return items, err
}

func (c *Client) fetch(ctx context.Context) ([]model.RawRow, error) {
	if c.token == "" {
		return nil, &Error{Kind: KindConfiguration}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	appLog.Debug("table fetch start", "url", redactURL(c.url))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransport(err, c.timeout, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{
			Kind:   KindServer,
			Status: resp.StatusCode,
			Body:   serializeBody(body),
		}
	}

	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, classifyTransport(err, c.timeout, false)
	}

	if payload.NextPageLink != "" || payload.NextPageToken != "" {
		appLog.Warn("table response has more pages; only the first page is shown",
			"items", len(payload.Items))
	}
	appLog.Info("table fetch success", "url", redactURL(c.url), "status", resp.StatusCode, "items", len(payload.Items))

	if payload.Items == nil {
		return []model.RawRow{}, nil
	}
	return payload.Items, nil
}

// serializeBody returns a compact JSON rendering of body when it is JSON,
// and the trimmed text otherwise.
func serializeBody(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if json.Valid(trimmed) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err == nil {
			return buf.String()
		}
	}
	return string(trimmed)
}

// redactURL hides the path and query of an API URL for logging purposes.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := strings.Index(u, "://")
	if i == -1 {
		return "...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j != -1 {
		return u[:i+3+j] + redactedSuffix
	}
	return u
}
