package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParseDealID parses a path segment into a positive deal identifier.
func ParseDealID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid deal id %q", s)
	}
	return id, nil
}

var nonPriceRegex = regexp.MustCompile(`[^\d.,]`)

// ParsePrice accepts "1299.90", "1.299,90" and "R$ 1.299,90" style input.
func ParsePrice(s string) (float64, error) {
	cleaned := nonPriceRegex.ReplaceAllString(s, "")
	if cleaned == "" {
		return 0, fmt.Errorf("invalid price %q", s)
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma > lastDot:
		// Brazilian format: dots group thousands, comma marks decimals.
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case lastDot > lastComma:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", s, err)
	}
	return f, nil
}
