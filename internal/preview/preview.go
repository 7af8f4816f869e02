// Package preview fetches storefront product pages to find an image for a
// submitted deal.
package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pauljones0/maodevaca/internal/util"
)

// ErrNotAllowed is returned for links outside the storefront allowlist.
var ErrNotAllowed = errors.New("link domain not in preview allowlist")

const (
	maxPageBytes = 4 << 20
	maxRedirects = 5
)

type Client struct {
	httpClient     *http.Client
	allowedDomains []string
	selectors      SelectorConfig
}

func New(allowedDomains []string, selectors SelectorConfig) *Client {
	c := &Client{
		allowedDomains: allowedDomains,
		selectors:      selectors,
	}
	c.httpClient = &http.Client{Timeout: 8 * time.Second, CheckRedirect: c.checkRedirect}
	return c
}

// checkRedirect keeps every hop inside the storefront allowlist.
func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("%w: redirect to scheme %s", ErrNotAllowed, req.URL.Scheme)
	}
	if !util.DomainAllowed(req.URL.String(), c.allowedDomains) {
		return fmt.Errorf("%w: redirect to %s", ErrNotAllowed, req.URL.Hostname())
	}
	return nil
}

// FetchImage returns an absolute image URL for the product behind link, or ""
// when the page has none.
func (c *Client) FetchImage(ctx context.Context, link string) (string, error) {
	doc, base, err := c.fetchHTMLContent(ctx, link)
	if err != nil {
		return "", err
	}

	for _, sel := range c.selectors.Image {
		val, ok := doc.Find(sel.Selector).First().Attr(sel.Attr)
		if !ok || strings.TrimSpace(val) == "" {
			continue
		}
		if abs := resolve(base, val); abs != "" {
			return abs, nil
		}
	}

	var found string
	if c.selectors.JSONLD != "" {
		doc.Find(c.selectors.JSONLD).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = resolve(base, productImage(s.Text()))
			return found == ""
		})
	}
	if found == "" {
		slog.Debug("No preview image found", "link", link)
	}
	return found, nil
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := base.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.String()
}

func (c *Client) fetchHTMLContent(ctx context.Context, urlStr string) (*goquery.Document, *url.URL, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse URL %s: %w", urlStr, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, nil, fmt.Errorf("invalid URL scheme %s: only http and https allowed", parsedURL.Scheme)
	}
	if !util.DomainAllowed(urlStr, c.allowedDomains) {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotAllowed, parsedURL.Hostname())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request for URL %s: %w", urlStr, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; maodevaca-preview/1.0)")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch URL %s: %w", urlStr, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("failed to fetch URL %s: status code %d", urlStr, res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(res.Body, maxPageBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse HTML from %s: %w", urlStr, err)
	}
	// Resolve relative images against the final URL after redirects.
	return doc, res.Request.URL, nil
}
