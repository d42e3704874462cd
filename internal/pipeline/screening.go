package pipeline

import (
	"strings"

	"github.com/joseph-ayodele/contract-analyzer/constants"
)

// reviewFloor is the quality and coverage below which a verdict is only preliminary.
const reviewFloor = 0.5

// DetermineFinalScreeningResult overrides the model's verdict when the input
// was too weak to support it. An unparseable verdict becomes recommended_to_address.
func DetermineFinalScreeningResult(llmVerdict string, quality, coverage float64) constants.Verdict {
	if quality < reviewFloor || coverage < reviewFloor {
		return constants.VerdictPreliminaryReview
	}
	if v, ok := constants.ParseVerdict(llmVerdict); ok {
		return v
	}
	return constants.VerdictRecommendedToAddress
}

var (
	lowNegotiabilityIndicators = []string{
		"terms of service",
		"by clicking",
		"by accessing",
		"you agree to",
		"these terms are binding",
		"non-negotiable",
	}
	highNegotiabilityIndicators = []string{
		"parties agree to negotiate",
		"subject to negotiation",
		"to be mutually agreed",
		"draft for discussion",
	}
)

// AssessNegotiability is the phrase-count heuristic used when the model gave
// no usable negotiability.
func AssessNegotiability(text string) (constants.Negotiability, string) {
	lower := strings.ToLower(text)
	low, high := 0, 0
	for _, p := range lowNegotiabilityIndicators {
		if strings.Contains(lower, p) {
			low++
		}
	}
	for _, p := range highNegotiabilityIndicators {
		if strings.Contains(lower, p) {
			high++
		}
	}

	switch {
	case low > high && low >= 2:
		return constants.NegotiabilityLow, "Take-it-or-leave-it terms (likely click-wrap or big provider)"
	case high > low:
		return constants.NegotiabilityHigh, "Open negotiation likely (draft or mutual agreement)"
	default:
		return constants.NegotiabilityMedium, "Some terms likely negotiable (standard business contract)"
	}
}
