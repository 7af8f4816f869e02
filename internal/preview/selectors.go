package preview

import (
	"encoding/json"
	"fmt"
	"os"
)

type SelectorConfig struct {
	Image  []AttrSelector `json:"image"`
	JSONLD string         `json:"json_ld"`
}

// AttrSelector reads one attribute from the first element matching Selector.
type AttrSelector struct {
	Selector string `json:"selector"`
	Attr     string `json:"attr"`
}

// LoadSelectors loads the selector configuration from the specified JSON file.
func LoadSelectors(path string) (SelectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to read selector config file: %w", err)
	}
	return LoadSelectorsFromBytes(data)
}

func LoadSelectorsFromBytes(data []byte) (SelectorConfig, error) {
	var config SelectorConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to parse selector config JSON: %w", err)
	}
	if len(config.Image) == 0 {
		return SelectorConfig{}, fmt.Errorf("selector config has no image selectors")
	}
	return config, nil
}

// DefaultSelectors is used when neither the embedded nor the external config parses.
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		Image: []AttrSelector{
			{Selector: "meta[property='og:image']", Attr: "content"},
			{Selector: "meta[name='twitter:image']", Attr: "content"},
		},
		JSONLD: "script[type='application/ld+json']",
	}
}
