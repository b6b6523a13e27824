package gateway

import (
	"strings"

	"github.com/asgardlabs/giru/internal/catalog"
)

// TierFromComplexity maps a task complexity label onto a catalog tier.
// Unknown labels fall back to standard.
func TierFromComplexity(complexity string) catalog.Tier {
	switch strings.ToLower(complexity) {
	case "simple", "basic":
		return catalog.TierBasic
	case "standard":
		return catalog.TierStandard
	case "complex", "advanced":
		return catalog.TierAdvanced
	case "expert":
		return catalog.TierExpert
	default:
		return catalog.TierStandard
	}
}

var (
	expertCues   = []string{"analyze", "complex", "detailed", "explain thoroughly", "deep dive"}
	advancedCues = []string{"code", "debug", "refactor", "architecture", "design", "strategy"}
	basicCues    = []string{"what time", "hello", "hi", "thanks", "bye", "yes", "no"}
)

// DetermineComplexity guesses a complexity label from free text by
// keyword cues, most demanding first.
func DetermineComplexity(text string) string {
	lower := strings.ToLower(text)

	for _, cue := range expertCues {
		if strings.Contains(lower, cue) {
			return "expert"
		}
	}
	for _, cue := range advancedCues {
		if strings.Contains(lower, cue) {
			return "advanced"
		}
	}
	for _, cue := range basicCues {
		if strings.Contains(lower, cue) {
			return "basic"
		}
	}
	return "standard"
}
