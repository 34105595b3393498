package domain

import (
	"strings"
	"time"
)

// Style is one of the fixed styling presets offered by the studio.
type Style string

const (
	StyleEditorial  Style = "Editorial"
	StyleCinematic  Style = "Cinematic"
	StyleWatercolor Style = "Watercolor"
	StyleNeon       Style = "Neon"
	StyleVintage    Style = "Vintage"
)

// Styles lists every selectable style preset.
var Styles = []Style{
	StyleEditorial,
	StyleCinematic,
	StyleWatercolor,
	StyleNeon,
	StyleVintage,
}

// Valid reports whether s is one of the known presets.
func (s Style) Valid() bool {
	for _, known := range Styles {
		if s == known {
			return true
		}
	}
	return false
}

// GenerationRequest represents the parameters for one styled generation.
// A request is immutable once submitted to the generation client.
type GenerationRequest struct {
	ImagePayload string
	Prompt       string
	Style        Style
}

// Validate checks the request before it reaches the generation client.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return NewValidationError("prompt must not be empty")
	}
	if !r.Style.Valid() {
		return NewValidationError("unknown style %q", r.Style)
	}
	if r.ImagePayload == "" {
		return NewValidationError("image payload must not be empty")
	}
	return nil
}

// GenerationResult represents one successful generation. Once produced
// it is either discarded or persisted verbatim, never mutated.
type GenerationResult struct {
	ID        string
	ImageURL  string
	Prompt    string
	Style     Style
	CreatedAt time.Time
}
