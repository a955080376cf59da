package jsonapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// FilterChunkSize is the upstream limit on ids per filter expression;
// larger id sets are split across requests and the results concatenated.
const FilterChunkSize = 40

// Client talks to a JSON:API-style transit endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Vehicles returns live vehicle resources, optionally filtered by route.
// Route linkage arrives in the relationship data, so no inclusion of the
// full route resources is requested.
func (c *Client) Vehicles(ctx context.Context, routeIDs []string) ([]Resource, error) {
	return c.chunkedByFilter(ctx, "/vehicles", url.Values{}, "filter[route]", routeIDs)
}

// Routes returns route metadata (labels, colors) for the given ids; with no
// ids it returns all routes.
func (c *Client) Routes(ctx context.Context, ids []string) ([]Resource, error) {
	return c.chunkedByFilter(ctx, "/routes", url.Values{}, "filter[id]", ids)
}

// Shapes returns shape resources (encoded polylines) for the given routes.
func (c *Client) Shapes(ctx context.Context, routeIDs []string) ([]Resource, error) {
	if len(routeIDs) == 0 {
		return nil, nil
	}
	return c.chunkedByFilter(ctx, "/shapes", url.Values{}, "filter[route]", routeIDs)
}

// Alerts returns current service alerts.
func (c *Client) Alerts(ctx context.Context) ([]Resource, error) {
	doc, err := c.get(ctx, "/alerts", url.Values{})
	if err != nil {
		return nil, err
	}
	return doc.Data, nil
}

// chunkedByFilter issues one request per id chunk and concatenates results.
func (c *Client) chunkedByFilter(ctx context.Context, path string, params url.Values, filterKey string, ids []string) ([]Resource, error) {
	if len(ids) == 0 {
		doc, err := c.get(ctx, path, params)
		if err != nil {
			return nil, err
		}
		return doc.Data, nil
	}

	var out []Resource
	for _, group := range chunk(ids, FilterChunkSize) {
		p := url.Values{}
		for k, vs := range params {
			p[k] = vs
		}
		p.Set(filterKey, strings.Join(group, ","))
		doc, err := c.get(ctx, path, p)
		if err != nil {
			return nil, err
		}
		out = append(out, doc.Data...)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*document, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.api+json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, c.baseURL+path)
	}
	var doc document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(doc.Errors) > 0 {
		return nil, fmt.Errorf("api error from %s: %s %s", path, doc.Errors[0].Code, doc.Errors[0].Detail)
	}
	return &doc, nil
}

func chunk(ids []string, n int) [][]string {
	var groups [][]string
	for len(ids) > n {
		groups = append(groups, ids[:n])
		ids = ids[n:]
	}
	if len(ids) > 0 {
		groups = append(groups, ids)
	}
	return groups
}
