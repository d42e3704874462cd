package quality

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/contract-analyzer/constants"
)

// ComputeCoverageScore is the share of referenced documents that match an
// available one. Matching is case-insensitive substring in either direction.
func ComputeCoverageScore(referenced, available []string) float64 {
	if len(referenced) == 0 {
		return 1.0
	}
	return float64(len(referenced)-len(MissingDocuments(referenced, available))) / float64(len(referenced))
}

// MissingDocuments returns the references with no matching available document.
func MissingDocuments(referenced, available []string) []string {
	lowered := make([]string, 0, len(available))
	for _, a := range available {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			lowered = append(lowered, a)
		}
	}

	missing := []string{}
	for _, ref := range referenced {
		r := strings.ToLower(ref)
		found := false
		for _, a := range lowered {
			if strings.Contains(a, r) || strings.Contains(r, a) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, ref)
		}
	}
	return missing
}

// BuildConfidenceExplanation renders the sentence shown next to the tier.
func BuildConfidenceExplanation(tier constants.ConfidenceTier, reason string, coverage float64, numFiles int) string {
	files := fmt.Sprintf("%d document", numFiles)
	if numFiles != 1 {
		files += "s"
	}

	coverageText := "all referenced documents present"
	if coverage < 1.0 {
		coverageText = fmt.Sprintf("%d%% of referenced documents missing", int((1-clamp(coverage))*100))
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "complete, clean document"
	}
	return fmt.Sprintf("%s confidence. Reviewed %s; %s. %s.", tier, files, coverageText, capitalize(reason))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
