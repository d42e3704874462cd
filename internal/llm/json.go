package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON pulls a JSON object out of a completion. It accepts bare JSON,
// ```json fenced blocks and prose around an object, trying the outermost
// {...} span last.
func ExtractJSON(text string) ([]byte, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimPrefix(s, "JSON")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	if json.Valid([]byte(s)) && strings.HasPrefix(s, "{") {
		return []byte(s), nil
	}
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		if candidate := s[start : end+1]; json.Valid([]byte(candidate)) {
			return []byte(candidate), nil
		}
	}
	return nil, fmt.Errorf("%w: no json object in %d chars of output", ErrMalformedJSON, len(text))
}

// CallJSON forces JSON mode, calls g and decodes the object into out.
func CallJSON(ctx context.Context, g Gateway, req Request, out any) error {
	req.JSONMode = true
	resp, err := g.Call(ctx, req)
	if err != nil {
		return err
	}
	raw, err := ExtractJSON(resp.Text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return nil
}

// CallJSONMap is CallJSON into a generic map.
func CallJSONMap(ctx context.Context, g Gateway, req Request) (map[string]any, error) {
	var m map[string]any
	if err := CallJSON(ctx, g, req, &m); err != nil {
		return nil, err
	}
	return m, nil
}
