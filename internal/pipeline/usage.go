package pipeline

import (
	"context"
	"sync"

	"github.com/joseph-ayodele/contract-analyzer/internal/llm"
)

// meteredGateway counts the tokens of every call made during one run.
type meteredGateway struct {
	inner llm.Gateway

	mu     sync.Mutex
	tokens int
	calls  int
	model  string
}

func meter(g llm.Gateway) *meteredGateway {
	return &meteredGateway{inner: g}
}

func (m *meteredGateway) Call(ctx context.Context, req llm.Request) (llm.Response, error) {
	resp, err := m.inner.Call(ctx, req)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err != nil {
		return resp, err
	}
	m.tokens += resp.Tokens(req.SystemPrompt + req.Prompt)
	if resp.Model != "" {
		m.model = resp.Model
	}
	return resp, nil
}

func (m *meteredGateway) Model() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.model != "" {
		return m.model
	}
	return m.inner.Model()
}

func (m *meteredGateway) usage() (model string, tokens, calls int) {
	m.mu.Lock()
	calls, tokens = m.calls, m.tokens
	m.mu.Unlock()
	if calls == 0 {
		return "", 0, 0
	}
	return m.Model(), tokens, calls
}
