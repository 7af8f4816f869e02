package util

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// StoreDomain returns the registrable domain of a link ("amazon.com.br" for
// "https://www.amazon.com.br/dp/1"), or "" when the link has no usable host.
func StoreDomain(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsedURL.Hostname())
	if host == "" {
		return ""
	}
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// DomainAllowed reports whether the link's registrable domain is one of allowed.
func DomainAllowed(rawURL string, allowed []string) bool {
	domain := StoreDomain(rawURL)
	if domain == "" {
		return false
	}
	for _, d := range allowed {
		if strings.EqualFold(strings.TrimPrefix(d, "www."), domain) {
			return true
		}
	}
	return false
}

// AppendQueryParam adds key=value to a link without disturbing its existing query.
func AppendQueryParam(rawURL, key, value string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := parsedURL.Query()
	q.Set(key, value)
	parsedURL.RawQuery = q.Encode()
	return parsedURL.String()
}
