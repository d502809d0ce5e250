// Package fetch downloads sessions and transcripts from the chat
// platform API, following cursor pagination and honoring rate-limit
// backoff.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultPageSize     = 500
	defaultTimeout      = 60 * time.Second
	defaultRetryAfter   = 60 * time.Second
	maxRateLimitRetries = 5
	userAgent           = "chatview/1.0"
)

// ClientError wraps a failure talking to the remote API.
type ClientError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *ClientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("api %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("api %s: %v", e.Op, e.Err)
}

func (e *ClientError) Unwrap() error { return e.Err }

// Client talks to one project's analytics API.
type Client struct {
	baseURL    string
	apiKey     string
	projectID  string
	pageSize   int
	httpClient *http.Client
	sleep      func(time.Duration)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPageSize sets the page size requested from the API.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithSleep replaces the backoff sleep, used by tests.
func WithSleep(fn func(time.Duration)) Option {
	return func(c *Client) { c.sleep = fn }
}

func NewClient(apiKey, baseURL, projectID string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		projectID:  projectID,
		pageSize:   defaultPageSize,
		httpClient: &http.Client{Timeout: defaultTimeout},
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sessions streams every session record, invoking fn once per page
// with the raw JSON of each record. maxPages limits pagination when
// positive.
func (c *Client) Sessions(ctx context.Context, maxPages int, fn func(page [][]byte) error) error {
	return c.paginate(ctx, "sessions", nil, maxPages, fn)
}

// SessionMessages returns the full transcript for one session as raw
// message records, in API order.
func (c *Client) SessionMessages(ctx context.Context, sessionID string) ([][]byte, error) {
	var messages [][]byte
	endpoint := fmt.Sprintf("sessions/%s/messages", url.PathEscape(sessionID))
	err := c.paginate(ctx, endpoint, nil, 0, func(page [][]byte) error {
		messages = append(messages, page...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// Experiments returns every experiment record in the project.
func (c *Client) Experiments(ctx context.Context) ([][]byte, error) {
	var experiments [][]byte
	err := c.paginate(ctx, "experiments", nil, 0, func(page [][]byte) error {
		experiments = append(experiments, page...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return experiments, nil
}

// paginate walks a paginated endpoint. Responses are either an object
// {"results": [...], "next": url} with a cursor, or a bare array,
// which is exhausted when a page comes back shorter than the page
// size.
func (c *Client) paginate(ctx context.Context, endpoint string, params url.Values, maxPages int, fn func(page [][]byte) error) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("page_size", strconv.Itoa(c.pageSize))
	page := 1
	for {
		body, err := c.get(ctx, endpoint, params)
		if err != nil {
			return err
		}
		doc := gjson.ParseBytes(body)

		var items []gjson.Result
		next := ""
		if results := doc.Get("results"); results.Exists() {
			items = results.Array()
			next = doc.Get("next").Str
		} else if doc.IsArray() {
			items = doc.Array()
			if len(items) == c.pageSize {
				params.Set("page", strconv.Itoa(page+1))
				next = "more"
			}
		} else {
			return &ClientError{Op: endpoint, Err: fmt.Errorf("unexpected response shape")}
		}

		raw := make([][]byte, len(items))
		for i, item := range items {
			raw[i] = []byte(item.Raw)
		}
		if err := fn(raw); err != nil {
			return err
		}

		if next == "" {
			return nil
		}
		if maxPages > 0 && page >= maxPages {
			log.Printf("Stopping after %d pages of %s (max-pages limit)", page, endpoint)
			return nil
		}
		// Cursor URLs carry the continuation state in their query.
		if next != "more" {
			u, err := url.Parse(next)
			if err != nil {
				return &ClientError{Op: endpoint, Err: fmt.Errorf("bad cursor %q: %w", next, err)}
			}
			params = u.Query()
		}
		page++
	}
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u := fmt.Sprintf("%s/api/projects/%s/%s/", c.baseURL, c.projectID, endpoint)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
		if err != nil {
			return nil, &ClientError{Op: endpoint, Err: err}
		}
		req.Header.Set("X-API-Key", c.apiKey)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &ClientError{Op: endpoint, Err: err}
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt >= maxRateLimitRetries {
				return nil, &ClientError{Op: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("rate limited after %d retries", attempt)}
			}
			wait := retryAfter(resp.Header.Get("Retry-After"))
			log.Printf("Rate limited on %s, retrying in %s", endpoint, wait)
			c.sleep(wait)
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, &ClientError{Op: endpoint, StatusCode: resp.StatusCode}
		}
		if readErr != nil {
			return nil, &ClientError{Op: endpoint, Err: readErr}
		}
		return body, nil
	}
}

func retryAfter(header string) time.Duration {
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultRetryAfter
}
