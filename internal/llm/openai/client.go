package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/contract-analyzer/internal/common"
	"github.com/joseph-ayodele/contract-analyzer/internal/llm"
)

// Client implements llm.Gateway over an OpenAI-compatible chat/completions endpoint.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

var _ llm.Gateway = (*Client)(nil)

func NewClient(cfg Config, logger *slog.Logger) *Client {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (c *Client) Model() string { return c.cfg.Model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Call sends one completion request. Prompt contents are never logged.
func (c *Client) Call(ctx context.Context, req llm.Request) (llm.Response, error) {
	start := time.Now()

	temperature := c.cfg.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := c.cfg.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := map[string]any{
		"model":       c.cfg.Model,
		"messages":    messages,
		"temperature": temperature,
		"max_tokens":  maxTokens,
	}
	if req.JSONMode {
		body["response_format"] = map[string]any{"type": "json_object"}
	}

	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	if c.cfg.Referer != "" {
		headers["HTTP-Referer"] = c.cfg.Referer
	}
	if c.cfg.Title != "" {
		headers["X-Title"] = c.cfg.Title
	}

	logger := c.logger.With("run_id", common.RunIDFromContext(ctx))
	logger.Info("llm.call.start",
		"provider", c.cfg.Provider,
		"model", c.cfg.Model,
		"prompt_len", len(req.Prompt),
		"json_mode", req.JSONMode,
		"temperature", temperature,
	)

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := llm.SendJSON(ctx, c.http, c.cfg.Provider, endpoint, body, headers, c.logger)
	if err != nil {
		logger.Error("llm.call.failed",
			"provider", c.cfg.Provider,
			"class", llm.Classify(err),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Response{}, err
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return llm.Response{}, fmt.Errorf("LLM API call failed (%s): %w: decode response: %v", c.cfg.Provider, llm.ErrProvider, err)
	}
	if len(cc.Choices) == 0 {
		return llm.Response{}, fmt.Errorf("LLM API call failed (%s): %w: no choices in response", c.cfg.Provider, llm.ErrProvider)
	}

	model := cc.Model
	if model == "" {
		model = c.cfg.Model
	}
	out := llm.Response{
		Text:             strings.TrimSpace(cc.Choices[0].Message.Content),
		Model:            model,
		PromptTokens:     cc.Usage.PromptTokens,
		CompletionTokens: cc.Usage.CompletionTokens,
	}

	logger.Info("llm.call.ok",
		"provider", c.cfg.Provider,
		"model", model,
		"response_len", len(out.Text),
		"prompt_tokens", out.PromptTokens,
		"completion_tokens", out.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
