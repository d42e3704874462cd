package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/contract-analyzer/constants"
)

func clean() Inputs {
	return Inputs{ScanQuality: 1.0, Coverage: 1.0, AppearsComplete: true}
}

func TestComputeQualityScore_Clean(t *testing.T) {
	score, reason := ComputeQualityScore(clean())
	assert.Equal(t, 1.0, score)
	assert.Equal(t, "complete, clean document", reason)
}

func TestComputeQualityScore_Factors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Inputs)
		want   float64
		reason string
	}{
		{"poor scan", func(in *Inputs) { in.ScanQuality = 0.5 }, 0.5, "poor scan quality"},
		{"ocr", func(in *Inputs) { in.IsScanned = true; in.ScanQuality = 0.9 }, 0.8, "OCR-extracted text"},
		{"translation", func(in *Inputs) { in.IsTranslation = true }, 0.7, "translation without original"},
		{"translation with original", func(in *Inputs) { in.IsTranslation = true; in.HasOriginal = true }, 1.0, "complete, clean document"},
		{"half coverage", func(in *Inputs) { in.Coverage = 0.5 }, 0.9, "50% of referenced documents missing"},
		{"incomplete", func(in *Inputs) { in.AppearsComplete = false }, 0.6, "document appears incomplete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := clean()
			tt.mutate(&in)
			score, reason := ComputeQualityScore(in)
			assert.InDelta(t, tt.want, score, 1e-9)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestComputeQualityScore_CombinedReasons(t *testing.T) {
	score, reason := ComputeQualityScore(Inputs{ScanQuality: 0.3, IsScanned: true, Coverage: 1, AppearsComplete: false})
	assert.InDelta(t, 0.3, score, 1e-9)
	assert.Equal(t, "poor scan quality; document appears incomplete", reason)
}

func TestComputeQualityScore_MonotonicAndBounded(t *testing.T) {
	prev := -1.0
	for sq := 0.0; sq <= 1.0; sq += 0.05 {
		for cov := 0.0; cov <= 1.0; cov += 0.1 {
			for _, complete := range []bool{false, true} {
				in := Inputs{ScanQuality: sq, Coverage: cov, AppearsComplete: complete}
				s, _ := ComputeQualityScore(in)
				assert.GreaterOrEqual(t, s, 0.0)
				assert.LessOrEqual(t, s, 1.0)

				better := in
				better.Coverage = min(1.0, cov+0.1)
				sb, _ := ComputeQualityScore(better)
				assert.GreaterOrEqual(t, sb, s, "coverage increase must not lower the score")
			}
		}
		s, _ := ComputeQualityScore(Inputs{ScanQuality: sq, Coverage: 1, AppearsComplete: true})
		assert.GreaterOrEqual(t, s, prev, "scan quality increase must not lower the score")
		prev = s
	}

	worse := clean()
	worse.IsTranslation = true
	ws, _ := ComputeQualityScore(worse)
	cs, _ := ComputeQualityScore(clean())
	assert.Less(t, ws, cs)
}

func TestComputeConfidenceLevel(t *testing.T) {
	tier, ok := ComputeConfidenceLevel(0.85)
	assert.Equal(t, constants.ConfidenceHigh, tier)
	assert.True(t, ok)

	tier, ok = ComputeConfidenceLevel(0.8)
	assert.Equal(t, constants.ConfidenceHigh, tier)
	assert.True(t, ok)

	tier, ok = ComputeConfidenceLevel(0.5)
	assert.Equal(t, constants.ConfidenceMedium, tier)
	assert.True(t, ok)

	tier, ok = ComputeConfidenceLevel(0.49)
	assert.Equal(t, constants.ConfidenceLow, tier)
	assert.False(t, ok)
}

func TestCheckHardGates(t *testing.T) {
	ok, reason := CheckHardGates(0.9, 1.0)
	assert.True(t, ok)
	assert.Empty(t, reason)

	ok, reason = CheckHardGates(0.25, 1.0)
	assert.False(t, ok)
	assert.Equal(t, "Scan too poor to read reliably (quality: 25.0%)", reason)

	ok, reason = CheckHardGates(0.9, 0.25)
	assert.False(t, ok)
	assert.Equal(t, "More than half of referenced documents missing (75%)", reason)

	// scan failure wins when both gates fail
	ok, reason = CheckHardGates(0.1, 0.0)
	assert.False(t, ok)
	assert.Contains(t, reason, "Scan too poor")
}

func TestGates_Configurable(t *testing.T) {
	g := Gates{ScanFloor: 0.2, CoverageFloor: 0.9}
	ok, _ := g.Check(0.3, 1.0)
	assert.True(t, ok)
	ok, reason := g.Check(0.3, 0.8)
	assert.False(t, ok)
	assert.Contains(t, reason, "referenced documents missing")
}

func TestComputeCoverageScore(t *testing.T) {
	assert.Equal(t, 1.0, ComputeCoverageScore(nil, nil))
	assert.Equal(t, 1.0, ComputeCoverageScore([]string{}, []string{"lease.pdf"}))

	refs := []string{"Exhibit A", "Schedule 2"}
	assert.Equal(t, 0.5, ComputeCoverageScore(refs, []string{"exhibit a - floor plan.pdf"}))
	assert.Equal(t, 1.0, ComputeCoverageScore(refs, []string{"EXHIBIT A.pdf", "schedule 2.docx"}))
	assert.Equal(t, 0.0, ComputeCoverageScore(refs, nil))
	assert.Equal(t, 0.0, ComputeCoverageScore(refs, []string{"  "}))
}

func TestMissingDocuments(t *testing.T) {
	refs := []string{"Exhibit A", "Schedule 2"}
	assert.Equal(t, []string{"Schedule 2"}, MissingDocuments(refs, []string{"Exhibit A"}))
	assert.Empty(t, MissingDocuments(refs, []string{"exhibit a", "schedule 2"}))
	assert.NotNil(t, MissingDocuments(nil, nil))
}

func TestBuildConfidenceExplanation(t *testing.T) {
	got := BuildConfidenceExplanation(constants.ConfidenceHigh, "complete, clean document", 1.0, 1)
	assert.Equal(t, "High confidence. Reviewed 1 document; all referenced documents present. Complete, clean document.", got)

	got = BuildConfidenceExplanation(constants.ConfidenceMedium, "OCR-extracted text", 0.5, 2)
	assert.Equal(t, "Medium confidence. Reviewed 2 documents; 50% of referenced documents missing. OCR-extracted text.", got)
}
