package itinerary

import (
	"fmt"
	"sync"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"

	"github.com/FACorreiaa/go-voyage/internal/app/models"
)

var injectionPhrases = []string{
	"ignore previous instructions",
	"ignore all previous instructions",
	"ignore the above",
	"disregard previous instructions",
	"disregard the above",
	"forget your instructions",
	"system prompt",
	"you are now",
	"developer mode",
	"jailbreak",
	"reveal your prompt",
	"respond only with",
}

// Guard rejects trip fields that try to steer the language model. It scans
// every free-text field in one pass per field.
type Guard struct {
	mu       sync.Mutex
	matcher  ahocorasick.AhoCorasick
	patterns []string
}

func NewGuard(extra ...string) *Guard {
	patterns := append(append([]string{}, injectionPhrases...), extra...)
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  true,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
		DFA:                  true,
	})
	return &Guard{matcher: builder.Build(patterns), patterns: patterns}
}

// Screen returns a *models.ValidationError naming every field that contains a
// blocked phrase, or nil.
func (g *Guard) Screen(p models.TripParams) error {
	verr := models.NewValidationError()
	if phrase, ok := g.find(p.Destination); ok {
		verr.Add("destination", fmt.Sprintf("contains a disallowed phrase (%q)", phrase))
	}
	for _, a := range p.Activities {
		if phrase, ok := g.find(a); ok {
			verr.Add("activities", fmt.Sprintf("contains a disallowed phrase (%q)", phrase))
			break
		}
	}
	return verr.OrNil()
}

func (g *Guard) find(text string) (string, bool) {
	g.mu.Lock()
	matches := g.matcher.FindAll(text)
	g.mu.Unlock()
	if len(matches) == 0 {
		return "", false
	}
	return g.patterns[matches[0].Pattern()], true
}
