package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client fetches features from feature-server query endpoints.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Count issues a count-only probe for the query.
func (c *Client) Count(ctx context.Context, endpoint string, params map[string]string) (int, error) {
	q := baseQuery(params)
	q.Set("returnCountOnly", "true")
	resp, err := c.do(ctx, endpoint, q)
	if err != nil {
		return 0, err
	}
	if resp.Count == nil {
		return 0, fmt.Errorf("count probe returned no usable count")
	}
	return *resp.Count, nil
}

// QueryAll returns the full feature list for the query, bounded by page.
// Warnings record cap hits and probe failures; an HTTP failure on any page
// aborts the whole fetch so callers can fall back to another source rather
// than render silently truncated data.
func (c *Client) QueryAll(ctx context.Context, endpoint string, params map[string]string, page Page) ([]Feature, []string, error) {
	var warnings []string

	total := -1
	if n, err := c.Count(ctx, endpoint, params); err != nil {
		warnings = append(warnings, fmt.Sprintf("count probe failed, paging without a known total: %v", err))
	} else {
		total = n
	}

	size := page.Size
	if size <= 0 {
		size = 1000
	}

	features := make([]Feature, 0, size)
	transferLimitSeen := false
	for pageNum := 0; ; pageNum++ {
		if page.MaxPages > 0 && pageNum >= page.MaxPages {
			warnings = append(warnings, fmt.Sprintf("pagination capped at %d pages", page.MaxPages))
			break
		}

		resp, err := c.fetchPage(ctx, endpoint, params, pageNum*size, size)
		if err != nil {
			return nil, warnings, fmt.Errorf("page %d: %w", pageNum, err)
		}

		capped := false
		for _, f := range resp.Features {
			if page.MaxRecords > 0 && len(features) >= page.MaxRecords {
				capped = true
				break
			}
			features = append(features, f)
		}
		if capped || (page.MaxRecords > 0 && len(features) >= page.MaxRecords) {
			warnings = append(warnings, fmt.Sprintf("result bounded for responsiveness at %d records", page.MaxRecords))
			break
		}

		if resp.ExceededTransferLimit && !transferLimitSeen {
			transferLimitSeen = true
			warnings = append(warnings, "upstream signaled a transfer limit; continuing pagination automatically")
		}

		// An empty page always terminates, even after the transfer-limit
		// flag was seen: the flag only overrides the short-page heuristic.
		if len(resp.Features) == 0 {
			break
		}
		if total >= 0 && len(features) >= total {
			break
		}
		if len(resp.Features) < size && !resp.ExceededTransferLimit {
			break
		}
	}

	c.logger.Debug("feature query complete",
		"endpoint", endpoint,
		"features", len(features),
		"known_total", total,
		"warnings", len(warnings),
	)
	return features, warnings, nil
}

func (c *Client) fetchPage(ctx context.Context, endpoint string, params map[string]string, offset, size int) (*queryResponse, error) {
	q := baseQuery(params)
	q.Set("resultOffset", strconv.Itoa(offset))
	q.Set("resultRecordCount", strconv.Itoa(size))
	return c.do(ctx, endpoint, q)
}

func (c *Client) do(ctx context.Context, endpoint string, q url.Values) (*queryResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, endpoint)
	}
	var qr queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if qr.Error != nil {
		return nil, qr.Error
	}
	return &qr, nil
}

// baseQuery applies the defaults every feature query carries; params may
// override any of them.
func baseQuery(params map[string]string) url.Values {
	q := url.Values{}
	q.Set("f", "json")
	q.Set("where", "1=1")
	q.Set("outFields", "*")
	q.Set("returnGeometry", "true")
	q.Set("outSR", "4326")
	for k, v := range params {
		q.Set(k, v)
	}
	return q
}
