package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/time/rate"

	"github.com/alfredjeanlab/evcollect/internal/model"
)

// HTTPClient implements EventsClient against the reporting API's HTTP/JSON
// endpoints.
type HTTPClient struct {
	eventsURL  string
	tokenURL   string
	httpClient *http.Client
	limiter    *rate.Limiter
	onPage     func(pageURL string, events int)
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the default http.Client (for timeouts or tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// WithPageRate limits event page requests to perSecond. Zero or less means
// unlimited.
func WithPageRate(perSecond float64) Option {
	return func(c *HTTPClient) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithPageHook registers fn to be called after every successfully decoded
// events page.
func WithPageHook(fn func(pageURL string, events int)) Option {
	return func(c *HTTPClient) { c.onPage = fn }
}

// NewHTTPClient creates a client for the given events and token endpoints.
func NewHTTPClient(eventsURL, tokenURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		eventsURL:  eventsURL,
		tokenURL:   tokenURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ EventsClient = (*HTTPClient)(nil)

// ExchangeToken posts req to the token endpoint and returns the issued token.
func (c *HTTPClient) ExchangeToken(ctx context.Context, req *TokenRequest) (*TokenResponse, error) {
	var resp TokenResponse
	if _, err := c.doJSON(ctx, http.MethodPost, c.tokenURL, nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token")
	}
	return &resp, nil
}

// FetchEvents requests events since the given time and follows rel="next"
// links, returning all pages concatenated in the order the API sent them.
func (c *HTTPClient) FetchEvents(ctx context.Context, token, since string) ([]model.Event, error) {
	u, err := url.Parse(c.eventsURL)
	if err != nil {
		return nil, fmt.Errorf("parsing events URL: %w", err)
	}
	if since != "" {
		q := u.Query()
		q.Set("since", since)
		u.RawQuery = q.Encode()
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token)
	headers.Set("Accept", "application/json")

	var events []model.Event
	seen := map[string]bool{}
	for next := u; next != nil; {
		pageURL := next.String()
		if seen[pageURL] {
			return nil, fmt.Errorf("pagination loop: %s was already fetched", pageURL)
		}
		seen[pageURL] = true

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("waiting for page rate limit: %w", err)
			}
		}

		var page EventsPage
		respHeader, err := c.doJSON(ctx, http.MethodGet, pageURL, headers, nil, &page)
		if err != nil {
			return nil, err
		}
		if page.Events == nil {
			return nil, fmt.Errorf("response from %s has no events field", pageURL)
		}
		events = append(events, *page.Events...)
		if c.onPage != nil {
			c.onPage(pageURL, len(*page.Events))
		}

		link := NextLink(respHeader)
		if link == "" {
			break
		}
		if next, err = next.Parse(link); err != nil {
			return nil, fmt.Errorf("parsing next link %q: %w", link, err)
		}
	}

	return events, nil
}

// --- internal helpers ---

// APIError represents a non-2xx response from the reporting API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON
// response into result. The response headers are returned for callers that
// need them (pagination).
func (c *HTTPClient) doJSON(ctx context.Context, method, rawURL string, headers http.Header, body any, result any) (http.Header, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
	}

	return resp.Header, nil
}

// errorMessage extracts an OAuth-style error description from body, falling
// back to the raw body.
func errorMessage(body []byte) string {
	var errResp struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
		Message     string `json:"message"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		switch {
		case errResp.Error != "" && errResp.Description != "":
			return errResp.Error + ": " + errResp.Description
		case errResp.Error != "":
			return errResp.Error
		case errResp.Message != "":
			return errResp.Message
		}
	}
	return strings.TrimSpace(string(body))
}

// linkSeparator splits a Link header value between entries without breaking
// URLs that contain commas.
var linkSeparator = regexp.MustCompile(`,\s*<`)

// NextLink returns the target of the rel="next" entry in the Link headers, or
// "" when there is none.
func NextLink(h http.Header) string {
	for _, value := range h.Values("Link") {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		entries := linkSeparator.Split(value, -1)
		for i, entry := range entries {
			if i > 0 {
				entry = "<" + entry
			}
			target, params, ok := strings.Cut(entry, ">")
			if !ok || !strings.HasPrefix(target, "<") {
				continue
			}
			if hasRel(params, "next") {
				return strings.TrimSpace(target[1:])
			}
		}
	}
	return ""
}

// hasRel reports whether the ";"-separated link params carry rel=want. The
// rel value may be quoted and may list several space-separated relations.
func hasRel(params, want string) bool {
	for _, p := range strings.Split(params, ";") {
		key, val, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "rel") {
			continue
		}
		val = strings.Trim(strings.TrimSpace(val), `"'`)
		for _, rel := range strings.Fields(val) {
			if strings.EqualFold(rel, want) {
				return true
			}
		}
	}
	return false
}
