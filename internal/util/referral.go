package util

import (
	"net/url"
	"strings"
)

// AffiliateTagParam is the query parameter Amazon reads the affiliate tag from.
const AffiliateTagParam = "tag"

// OptimizeLink injects the affiliate tag into links pointing at a known
// storefront. The tag is set rather than appended, so re-applying the
// function leaves a single tag parameter. Anything that does not parse as an
// absolute URL, or points elsewhere, comes back untouched.
func OptimizeLink(rawURL, tag string) string {
	if tag == "" {
		return rawURL
	}
	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Host == "" {
		return rawURL
	}

	if !strings.Contains(strings.ToLower(parsedURL.Hostname()), "amazon") {
		return rawURL
	}

	queryParams := parsedURL.Query()
	if queryParams.Get(AffiliateTagParam) == tag && len(queryParams[AffiliateTagParam]) == 1 {
		return rawURL
	}
	queryParams.Set(AffiliateTagParam, tag)
	parsedURL.RawQuery = queryParams.Encode()
	return parsedURL.String()
}
