package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/contract-analyzer/constants"
	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
	"github.com/joseph-ayodele/contract-analyzer/internal/llm"
	"github.com/joseph-ayodele/contract-analyzer/internal/metrics"
)

var ErrAnalysisTimeout = errors.New("analysis timed out")

const analysisSystemPrompt = "You are a legal document analyst helping non-lawyers understand contracts. Be clear, specific, and actionable."

type AnalysisInput struct {
	RedactedText   string
	Preparation    *entity.PreparationResult
	UserRole       string
	OutputLanguage string
}

type AnalysisStage struct {
	Logger  *slog.Logger
	Cfg     StageConfig
	Gateway llm.Gateway
}

func NewAnalysisStage(g llm.Gateway, cfg StageConfig, logger *slog.Logger) *AnalysisStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisStage{
		Logger:  logger,
		Cfg:     cfg.withDefaults(defaultAnalysisTimeout),
		Gateway: g,
	}
}

// Run asks for obligations, rights, risks, payment terms and a screening label.
func (a *AnalysisStage) Run(ctx context.Context, in AnalysisInput) (*entity.AnalysisResult, error) {
	prep := in.Preparation
	if prep == nil {
		prep = &entity.PreparationResult{AgreementType: "unknown"}
	}
	role := in.UserRole
	if role == "" {
		role = "party"
	}
	outLang := in.OutputLanguage
	if outLang == "" {
		outLang = constants.LangEnglish
	}

	text := TruncateRunes(in.RedactedText, a.Cfg.CharBudget)
	prompt, err := renderPrompt("analysis", struct {
		AgreementType, UserRole, Summary, OutputLanguage, Text string
	}{prep.AgreementType, role, preparationSummary(prep, role), outLang, text})
	if err != nil {
		return nil, err
	}

	a.Logger.Info("pipeline.analysis.start",
		"chars", len(text),
		"output_language", outLang,
		"timeout", a.Cfg.Timeout,
	)

	var res entity.AnalysisResult
	call := stageCall{
		stage:      string(constants.StageAnalysis),
		timeout:    a.Cfg.Timeout,
		timeoutErr: ErrAnalysisTimeout,
		schema:     llm.AnalysisSchema(),
		listKeys:   llm.AnalysisListKeys,
	}
	req := llm.Request{
		Prompt:       prompt,
		SystemPrompt: analysisSystemPrompt,
		Temperature:  llm.Temperature(*a.Cfg.Temperature),
		MaxTokens:    a.Cfg.MaxTokens,
	}
	if err := call.run(ctx, a.Gateway, req, &res, a.Logger); err != nil {
		metrics.ObserveLLMCall(call.stage, metrics.OutcomeFallback)
		a.Logger.Warn("pipeline.analysis.failed", "error", err)
		return nil, err
	}
	metrics.ObserveLLMCall(call.stage, metrics.OutcomeOK)

	res.Error = ""
	res.Normalize()
	a.Logger.Info("pipeline.analysis.ok",
		"obligations", len(res.Obligations),
		"rights", len(res.Rights),
		"risks", len(res.Risks),
		"screening", res.ScreeningResult,
	)
	return &res, nil
}

// preparationSummary is the compact context line block handed to stage 2.
func preparationSummary(p *entity.PreparationResult, role string) string {
	jurisdiction := p.Jurisdiction
	if jurisdiction == "" {
		jurisdiction = "unknown"
	}
	lines := []string{
		"Agreement Type: " + p.AgreementType,
		"User Role: " + role,
		"Negotiability: " + string(p.Negotiability),
		"Jurisdiction: " + jurisdiction,
		fmt.Sprintf("Quality Score: %.2f", p.QualityScore),
		fmt.Sprintf("Coverage: %.2f", p.CoverageScore),
	}
	return strings.Join(lines, "\n")
}

// FallbackAnalysis is the degraded result used when the stage failed.
func FallbackAnalysis(err error) *entity.AnalysisResult {
	res := &entity.AnalysisResult{
		Risks: []entity.Risk{{
			Description:    fmt.Sprintf("Analysis failed: %v", err),
			Severity:       entity.SeverityHigh,
			Recommendation: "Manual review required",
			Category:       "other",
		}},
		ScreeningResult: string(constants.VerdictRecommendedToAddress),
		Error:           err.Error(),
	}
	res.Normalize()
	return res
}
