package preview

import (
	"encoding/json"
	"strings"
)

// jsonLDProduct is the subset of a schema.org Product block storefronts embed
// in product pages. Image may be a string, a list of strings, or an ImageObject.
type jsonLDProduct struct {
	Type  any             `json:"@type"`
	Name  string          `json:"name"`
	Image json.RawMessage `json:"image"`
	Graph []jsonLDProduct `json:"@graph"`
}

func (p jsonLDProduct) isProduct() bool {
	switch t := p.Type.(type) {
	case string:
		return strings.EqualFold(t, "Product")
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && strings.EqualFold(s, "Product") {
				return true
			}
		}
	}
	return false
}

func (p jsonLDProduct) imageURL() string {
	if len(p.Image) == 0 {
		return ""
	}
	var single string
	if json.Unmarshal(p.Image, &single) == nil {
		return single
	}
	var list []json.RawMessage
	if json.Unmarshal(p.Image, &list) == nil && len(list) > 0 {
		return jsonLDProduct{Image: list[0]}.imageURL()
	}
	var obj struct {
		URL string `json:"url"`
	}
	if json.Unmarshal(p.Image, &obj) == nil {
		return obj.URL
	}
	return ""
}

// productImage returns the first product image found in a JSON-LD script body.
func productImage(raw string) string {
	raw = strings.TrimSpace(raw)
	var blocks []jsonLDProduct
	if strings.HasPrefix(raw, "[") {
		if json.Unmarshal([]byte(raw), &blocks) != nil {
			return ""
		}
	} else {
		var one jsonLDProduct
		if json.Unmarshal([]byte(raw), &one) != nil {
			return ""
		}
		blocks = []jsonLDProduct{one}
	}

	for _, b := range blocks {
		candidates := append([]jsonLDProduct{b}, b.Graph...)
		for _, c := range candidates {
			if c.isProduct() {
				if img := c.imageURL(); img != "" {
					return img
				}
			}
		}
	}
	return ""
}
