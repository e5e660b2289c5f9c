package itinerary

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/FACorreiaa/go-voyage/internal/app/models"
)

var (
	fencePattern         = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ErrNoJSON is returned when a completion contains no JSON object at all.
var ErrNoJSON = errors.New("no JSON object found in completion")

// ExtractJSON pulls the outermost JSON object out of a completion, dropping
// markdown fences and any prose around it.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", ErrNoJSON
	}
	obj := text[start : end+1]

	if !json.Valid([]byte(obj)) {
		obj = trailingCommaPattern.ReplaceAllString(obj, "$1")
	}
	return obj, nil
}

// ParseItinerary decodes a completion into an Itinerary without judging its shape.
func ParseItinerary(text string) (*models.Itinerary, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var it models.Itinerary
	if err := json.Unmarshal([]byte(raw), &it); err != nil {
		return nil, fmt.Errorf("decode itinerary: %w", err)
	}
	return &it, nil
}
