package constants

import (
	"strings"
)

// Verdict is the screening outcome of a finished analysis.
type Verdict string

const (
	VerdictNoMajorIssues        Verdict = "no_major_issues"
	VerdictRecommendedToAddress Verdict = "recommended_to_address"
	VerdictHighRisk             Verdict = "high_risk"
	VerdictPreliminaryReview    Verdict = "preliminary_review"
)

var allVerdicts = []Verdict{
	VerdictNoMajorIssues,
	VerdictRecommendedToAddress,
	VerdictHighRisk,
	VerdictPreliminaryReview,
}

func VerdictStrings() []string {
	result := make([]string, len(allVerdicts))
	for i, v := range allVerdicts {
		result[i] = string(v)
	}
	return result
}

// ParseVerdict maps a raw LLM label onto a Verdict. Unknown labels return false.
func ParseVerdict(input string) (Verdict, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]Verdict{
		"no_issues":          VerdictNoMajorIssues,
		"no_major_red_flags": VerdictNoMajorIssues,
		"ok":                 VerdictNoMajorIssues,
		"address":            VerdictRecommendedToAddress,
		"needs_changes":      VerdictRecommendedToAddress,
		"recommended":        VerdictRecommendedToAddress,
		"high":               VerdictHighRisk,
		"risky":              VerdictHighRisk,
		"preliminary":        VerdictPreliminaryReview,
	}
	if v, ok := synonyms[normalized]; ok {
		return v, true
	}
	for _, v := range allVerdicts {
		if normalized == string(v) {
			return v, true
		}
	}
	return "", false
}

// ConfidenceTier classifies a quality score.
type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "High"
	ConfidenceMedium ConfidenceTier = "Medium"
	ConfidenceLow    ConfidenceTier = "Low"
)

// Negotiability estimates how much room a party has to renegotiate.
type Negotiability string

const (
	NegotiabilityHigh   Negotiability = "high"
	NegotiabilityMedium Negotiability = "medium"
	NegotiabilityLow    Negotiability = "low"
)

func ParseNegotiability(input string) (Negotiability, bool) {
	switch Negotiability(strings.ToLower(strings.TrimSpace(input))) {
	case NegotiabilityHigh:
		return NegotiabilityHigh, true
	case NegotiabilityMedium:
		return NegotiabilityMedium, true
	case NegotiabilityLow:
		return NegotiabilityLow, true
	}
	return "", false
}
