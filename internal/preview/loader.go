package preview

import (
	"embed"
	"log/slog"
	"os"
)

//go:embed selectors.json
var embeddedSelectors embed.FS

// LoadConfig prefers an external file named by PREVIEW_SELECTORS_PATH, then
// the embedded selectors.json, then the hardcoded defaults.
func LoadConfig() SelectorConfig {
	if path := os.Getenv("PREVIEW_SELECTORS_PATH"); path != "" {
		sel, err := LoadSelectors(path)
		if err == nil {
			slog.Info("Loaded preview selectors from external file", "path", path)
			return sel
		}
		slog.Warn("Failed to load external preview selectors", "path", path, "error", err)
	}

	data, err := embeddedSelectors.ReadFile("selectors.json")
	if err == nil {
		sel, parseErr := LoadSelectorsFromBytes(data)
		if parseErr == nil {
			return sel
		}
		err = parseErr
	}
	slog.Warn("Embedded preview selectors unusable, using defaults", "error", err)
	return DefaultSelectors()
}
