package rss

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Item is one advisory entry from a feed.
type Item struct {
	GUID        string
	Title       string
	Link        string
	Description string
	PubDate     string
	PublishedAt time.Time // zero when PubDate was absent or unparseable
}

type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	GUID        string `xml:"guid"`
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

// Client fetches advisory feeds, routing each request through the proxy
// when proxyBase is non-empty.
type Client struct {
	httpClient *http.Client
	proxyBase  string
	logger     *slog.Logger
}

func NewClient(proxyBase string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		proxyBase:  proxyBase,
		logger:     logger,
	}
}

// Fetch retrieves one feed URL and parses its items.
func (c *Client) Fetch(ctx context.Context, feedURL string) ([]Item, error) {
	target := c.proxied(feedURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feedURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, feedURL)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", feedURL, err)
	}

	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	items := make([]Item, 0, len(doc.Channel.Items))
	for _, raw := range doc.Channel.Items {
		item := Item{
			GUID:        strings.TrimSpace(raw.GUID),
			Title:       strings.TrimSpace(raw.Title),
			Link:        strings.TrimSpace(raw.Link),
			Description: strings.TrimSpace(raw.Description),
			PubDate:     strings.TrimSpace(raw.PubDate),
		}
		if item.PubDate != "" {
			for _, layout := range pubDateLayouts {
				if t, err := time.Parse(layout, item.PubDate); err == nil {
					item.PublishedAt = t.UTC()
					break
				}
			}
		}
		items = append(items, item)
	}
	c.logger.Debug("advisory feed parsed", "url", feedURL, "items", len(items))
	return items, nil
}

// proxied rewrites a feed URL to pass through the same-origin proxy.
func (c *Client) proxied(feedURL string) string {
	if c.proxyBase == "" {
		return feedURL
	}
	return c.proxyBase + url.QueryEscape(feedURL)
}
