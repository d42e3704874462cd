package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/contract-analyzer/internal/llm"
	"github.com/joseph-ayodele/contract-analyzer/internal/metrics"
)

// StageConfig holds the per-stage LLM knobs.
type StageConfig struct {
	Timeout    time.Duration
	CharBudget int
	// Temperature nil means the stage default; an explicit 0 is kept.
	Temperature *float64
	MaxTokens   int
}

const (
	defaultPreparationTimeout = 120 * time.Second
	defaultAnalysisTimeout    = 180 * time.Second
	defaultCharBudget         = 15000
	defaultTemperature        = 0.1
)

func (c StageConfig) withDefaults(timeout time.Duration) StageConfig {
	if c.Timeout <= 0 {
		c.Timeout = timeout
	}
	if c.CharBudget <= 0 {
		c.CharBudget = defaultCharBudget
	}
	if c.Temperature == nil || *c.Temperature < 0 {
		c.Temperature = llm.Temperature(defaultTemperature)
	}
	return c
}

// stageCall is one JSON-mode LLM round trip shared by both stages.
type stageCall struct {
	stage      string
	timeout    time.Duration
	timeoutErr error
	schema     map[string]any
	listKeys   []string
}

// run calls the gateway under the stage timeout and decodes the sanitized,
// schema-checked object into out.
func (s stageCall) run(ctx context.Context, g llm.Gateway, req llm.Request, out any, logger *slog.Logger) error {
	start := time.Now()
	defer func() { metrics.ObserveStage(s.stage, time.Since(start)) }()

	obj, err := llm.WithTimeout(ctx, s.timeout, func(ctx context.Context) (map[string]any, error) {
		return llm.CallJSONMap(ctx, g, req)
	})
	if err != nil {
		if errors.Is(err, llm.ErrTimeout) {
			return fmt.Errorf("%w after %s (%w)", s.timeoutErr, s.timeout, llm.ErrTimeout)
		}
		return err
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("%w: re-encode %s: %v", llm.ErrMalformedJSON, s.stage, err)
	}
	clean, notes, err := llm.SanitizeStageJSON(raw, s.listKeys)
	if err != nil {
		return err
	}
	if len(notes) > 0 {
		logger.Debug("pipeline.stage.sanitized", "stage", s.stage, "changes", notes)
	}
	if err := llm.ValidateJSONAgainstSchema(s.schema, clean); err != nil {
		return err
	}
	if err := json.Unmarshal(clean, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", llm.ErrMalformedJSON, s.stage, err)
	}
	logger.Info("pipeline.stage.ok",
		"stage", s.stage,
		"elapsed_ms", time.Since(start).Milliseconds(),
		"fields", len(obj),
	)
	return nil
}
