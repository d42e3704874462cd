// Package quality scores how far an analysis of a document can be trusted.
package quality

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/contract-analyzer/constants"
)

// Multiplicative penalties applied by ComputeQualityScore.
const (
	FactorPoorScan                   = 0.5
	FactorOCR                        = 0.8
	FactorTranslationWithoutOriginal = 0.7
	FactorPartialDocument            = 0.6

	poorScanThreshold = 0.6
	highThreshold     = 0.8
	mediumThreshold   = 0.5
)

// Inputs are the locally detected signals the score is computed from.
type Inputs struct {
	ScanQuality     float64
	IsScanned       bool
	IsTranslation   bool
	HasOriginal     bool
	Coverage        float64
	AppearsComplete bool
}

// ComputeQualityScore starts from 1.0 and applies each penalty that holds.
// The reason lists the penalties applied.
func ComputeQualityScore(in Inputs) (float64, string) {
	score := 1.0
	var reasons []string

	switch {
	case in.ScanQuality < poorScanThreshold:
		score *= FactorPoorScan
		reasons = append(reasons, "poor scan quality")
	case in.IsScanned:
		score *= FactorOCR
		reasons = append(reasons, "OCR-extracted text")
	}

	if in.IsTranslation && !in.HasOriginal {
		score *= FactorTranslationWithoutOriginal
		reasons = append(reasons, "translation without original")
	}

	if cov := clamp(in.Coverage); cov < 1.0 {
		score *= 0.8 + 0.2*cov
		reasons = append(reasons, fmt.Sprintf("%d%% of referenced documents missing", int((1-cov)*100)))
	}

	if !in.AppearsComplete {
		score *= FactorPartialDocument
		reasons = append(reasons, "document appears incomplete")
	}

	if len(reasons) == 0 {
		return clamp(score), "complete, clean document"
	}
	return clamp(score), strings.Join(reasons, "; ")
}

// ComputeConfidenceLevel maps a score to a tier. Low means the analysis
// should be downgraded to a preliminary review.
func ComputeConfidenceLevel(score float64) (constants.ConfidenceTier, bool) {
	switch {
	case score >= highThreshold:
		return constants.ConfidenceHigh, true
	case score >= mediumThreshold:
		return constants.ConfidenceMedium, true
	default:
		return constants.ConfidenceLow, false
	}
}

// Gates are the hard floors below which no LLM analysis is attempted.
type Gates struct {
	ScanFloor     float64
	CoverageFloor float64
}

// DefaultGates stops on unreadable scans and on more than half of the
// referenced documents missing.
var DefaultGates = Gates{ScanFloor: 0.4, CoverageFloor: 0.5}

// Check returns false and a reason when a gate fails. Scan legibility is
// checked first.
func (g Gates) Check(scanQuality, coverage float64) (bool, string) {
	if scanQuality < g.ScanFloor {
		return false, fmt.Sprintf("Scan too poor to read reliably (quality: %.1f%%)", scanQuality*100)
	}
	if coverage < g.CoverageFloor {
		return false, fmt.Sprintf("More than half of referenced documents missing (%d%%)", int((1-coverage)*100))
	}
	return true, ""
}

// CheckHardGates applies DefaultGates.
func CheckHardGates(scanQuality, coverage float64) (bool, string) {
	return DefaultGates.Check(scanQuality, coverage)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
