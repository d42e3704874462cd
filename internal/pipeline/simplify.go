package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/contract-analyzer/constants"
	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
	"github.com/joseph-ayodele/contract-analyzer/internal/llm"
	"github.com/joseph-ayodele/contract-analyzer/internal/metrics"
)

const (
	simplifySystemPrompt = "You are a helpful lawyer who explains complex legal concepts in simple, everyday language that anyone can understand."

	simplifyItemTokens     = 1000
	simplifyAboutTokens    = 500
	defaultSimplifyTimeout = 60 * time.Second
)

// ErrNothingSimplified is returned when every rewrite failed.
var ErrNothingSimplified = errors.New("no text could be simplified")

// Prefixes models like to put before the rewritten text.
var simplifyPrefixes = []string{
	"Here's the rephrased text:",
	"Here is the rephrased text:",
	"Here's the simplified version:",
	"Here is the simplified version:",
	"Here's a simplified version:",
	"Here is a simplified version:",
	"Simplified version:",
	"Simplified:",
	"Rephrased:",
	"In simple terms:",
	"In everyday language:",
	"In plain language:",
}

type Simplifier struct {
	Logger  *slog.Logger
	Gateway llm.Gateway
	Timeout time.Duration
}

func NewSimplifier(g llm.Gateway, timeout time.Duration, logger *slog.Logger) *Simplifier {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultSimplifyTimeout
	}
	return &Simplifier{Logger: logger, Gateway: g, Timeout: timeout}
}

// Simplify rewrites the about section and the first obligations and rights in
// plain language. Each item that fails keeps its original wording; the error is
// non-nil only when nothing could be rewritten or ctx was cancelled.
func (s *Simplifier) Simplify(ctx context.Context, out *entity.FormattedOutput, an *entity.AnalysisResult) (*entity.Simplified, error) {
	if out == nil || an == nil {
		return nil, ErrNothingSimplified
	}
	lang := out.Language
	if lang == "" {
		lang = constants.LangEnglish
	}
	start := time.Now()
	defer func() { metrics.ObserveStage(string(constants.StageSimplification), time.Since(start)) }()

	res := &entity.Simplified{Obligations: []string{}, Rights: []string{}}
	attempts, failures := 0, 0
	rewrite := func(text string, maxTokens int) string {
		attempts++
		simple, err := s.rephrase(ctx, text, lang, maxTokens)
		if err != nil {
			failures++
			s.Logger.Debug("pipeline.simplify.item_failed", "error", err)
			return text
		}
		return simple
	}

	if out.About != "" {
		res.About = rewrite(out.About, simplifyAboutTokens)
	}
	for i := range an.Obligations {
		if i == maxSectionItems {
			break
		}
		simple := rewrite(obligationBlock(an.Obligations[i]), simplifyItemTokens)
		an.Obligations[i].ActionSimple = simple
		res.Obligations = append(res.Obligations, simple)
	}
	for i := range an.Rights {
		if i == maxSectionItems {
			break
		}
		simple := rewrite(rightBlock(an.Rights[i]), simplifyItemTokens)
		an.Rights[i].Simple = simple
		res.Rights = append(res.Rights, simple)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if attempts == 0 || failures == attempts {
		return nil, fmt.Errorf("%w (%d of %d failed)", ErrNothingSimplified, failures, attempts)
	}
	s.Logger.Info("pipeline.simplify.ok",
		"items", attempts,
		"failed", failures,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (s *Simplifier) rephrase(ctx context.Context, text, lang string, maxTokens int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	prompt, err := renderPrompt("simplify", struct{ OutputLanguage, Text string }{lang, text})
	if err != nil {
		return "", err
	}
	resp, err := llm.WithTimeout(ctx, s.Timeout, func(ctx context.Context) (llm.Response, error) {
		return s.Gateway.Call(ctx, llm.Request{
			Prompt:       prompt,
			SystemPrompt: simplifySystemPrompt,
			Temperature:  llm.Temperature(defaultTemperature),
			MaxTokens:    maxTokens,
		})
	})
	if err != nil {
		metrics.ObserveLLMCall(string(constants.StageSimplification), metrics.OutcomeFallback)
		return "", err
	}
	metrics.ObserveLLMCall(string(constants.StageSimplification), metrics.OutcomeOK)
	simple := stripSimplifyPrefix(resp.Text)
	if simple == "" {
		return "", fmt.Errorf("%w: empty rewrite", llm.ErrProvider)
	}
	return simple, nil
}

func stripSimplifyPrefix(text string) string {
	t := strings.TrimSpace(text)
	for _, p := range simplifyPrefixes {
		if len(t) >= len(p) && strings.EqualFold(t[:len(p)], p) {
			t = strings.TrimSpace(t[len(p):])
			break
		}
	}
	return strings.Trim(t, "\"")
}

func obligationBlock(o entity.Obligation) string {
	var lines []string
	lines = append(lines, "What you must do: "+o.Action)
	if o.Trigger != "" {
		lines = append(lines, "When: "+o.Trigger)
	}
	if o.TimeWindow != "" {
		lines = append(lines, "Deadline: "+o.TimeWindow)
	}
	if o.Consequence != "" {
		lines = append(lines, "What happens if you don't: "+o.Consequence)
	}
	return strings.Join(lines, "\n")
}

func rightBlock(r entity.Right) string {
	var lines []string
	lines = append(lines, "What you can do: "+r.Right)
	if r.HowToExercise != "" {
		lines = append(lines, "How to do it: "+r.HowToExercise)
	}
	if r.Conditions != "" {
		lines = append(lines, "Any conditions: "+r.Conditions)
	}
	return strings.Join(lines, "\n")
}
