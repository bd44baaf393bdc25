package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/mlopezv/docsearch-ai/internal/domain"
)

// pageBatchSize is the Confluence REST pagination limit per request.
const pageBatchSize = 25

// Client implements port.ContentSource against the Confluence REST API.
type Client struct {
	baseURL    string
	username   string
	apiToken   string
	spaceKey   string
	httpClient *http.Client
	limiter    *rate.Limiter
	converter  *md.Converter
}

// NewClient creates a Confluence client for one space. Requests are rate
// limited to stay under the API's abuse thresholds.
func NewClient(baseURL, username, apiToken, spaceKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		apiToken:   apiToken,
		spaceKey:   spaceKey,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
		converter:  md.NewConverter("", true, nil),
	}
}

// SpaceKey returns the configured space key.
func (c *Client) SpaceKey() string {
	return c.spaceKey
}

// BaseURL returns the configured Confluence base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchAllPages fetches every page of the configured space, paginating
// until a short batch. Page bodies arrive as storage-format HTML and are
// converted to markdown text before ingestion.
func (c *Client) FetchAllPages(ctx context.Context) ([]domain.Page, error) {
	var pages []domain.Page
	start := 0

	for {
		batch, err := c.fetchBatch(ctx, start)
		if err != nil {
			return nil, fmt.Errorf("fetch pages from space %s: %w", c.spaceKey, err)
		}

		pages = append(pages, batch...)
		if len(batch) < pageBatchSize {
			break
		}
		start += len(batch)
	}

	slog.Info("fetched space content", "space", c.spaceKey, "pages", len(pages))
	return pages, nil
}

func (c *Client) fetchBatch(ctx context.Context, start int) ([]domain.Page, error) {
	path := fmt.Sprintf("/rest/api/content?spaceKey=%s&type=page&start=%d&limit=%d&expand=body.storage,version",
		url.QueryEscape(c.spaceKey), start, pageBatchSize)

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var result struct {
		Results []struct {
			ID      string `json:"id"`
			Title   string `json:"title"`
			Version struct {
				Number int `json:"number"`
			} `json:"version"`
			Body struct {
				Storage struct {
					Value string `json:"value"`
				} `json:"storage"`
			} `json:"body"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode content response: %w", err)
	}

	pages := make([]domain.Page, 0, len(result.Results))
	for _, r := range result.Results {
		version := "unknown"
		if r.Version.Number > 0 {
			version = strconv.Itoa(r.Version.Number)
		}
		pages = append(pages, domain.Page{
			ID:      r.ID,
			Title:   r.Title,
			Version: version,
			Text:    c.pageText(r.Body.Storage.Value),
		})
	}
	return pages, nil
}

// pageText strips Confluence macro markup and converts the remaining
// storage-format HTML to markdown. On conversion failure the raw body is
// kept rather than losing the page.
func (c *Client) pageText(storageHTML string) string {
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(storageHTML)); err == nil {
		doc.Find("ac\\:structured-macro, ac\\:parameter, ri\\:attachment").Remove()
		if cleaned, err := doc.Html(); err == nil {
			storageHTML = cleaned
		}
	}

	markdown, err := c.converter.ConvertString(storageHTML)
	if err != nil {
		slog.Warn("html conversion failed, keeping raw body", "error", err)
		return storageHTML
	}
	return markdown
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" || c.apiToken != "" {
		req.SetBasicAuth(c.username, c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("confluence API error (%d): %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
