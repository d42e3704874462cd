package llm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// enumKeys hold closed-set labels the model tends to capitalise.
var enumKeys = map[string]struct{}{
	"negotiability":    {},
	"severity":         {},
	"screening_result": {},
}

// itemKeys names the field a bare string becomes when a list expects objects.
var itemKeys = map[string]string{
	"parties":     "name",
	"obligations": "action",
	"rights":      "right",
	"risks":       "description",
	"calendar":    "event",
}

// objectKeys must hold objects; anything else is dropped.
var objectKeys = []string{"payment_terms"}

// stringListKeys hold plain strings; objects found there are flattened.
var stringListKeys = map[string]struct{}{
	"gaps_anomalies": {},
	"suggestions":    {},
	"mitigations":    {},
}

var severities = map[string]string{
	"low":      "low",
	"minor":    "low",
	"medium":   "medium",
	"moderate": "medium",
	"high":     "high",
	"major":    "high",
	"critical": "high",
	"severe":   "high",
}

// SanitizeStageJSON is the lenient pass applied before schema validation:
//   - listKeys that are missing or null become [], a single value becomes a one-element list
//   - bare strings in object lists become {itemKey: s}
//   - null values are dropped and numbers or booleans become strings
//   - enum-like fields are trimmed and lower-cased, unknown severities become medium
//   - objects in string lists are flattened to their string values joined by "; "
//
// It returns the cleaned JSON and a sorted list of the changes applied.
func SanitizeStageJSON(raw []byte, listKeys []string) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("%w: sanitize: %v", ErrMalformedJSON, err)
	}
	if m == nil {
		return nil, nil, fmt.Errorf("%w: sanitize: top-level value is not an object", ErrMalformedJSON)
	}

	var changes []string
	note := func(s string) { changes = append(changes, s) }

	for _, k := range objectKeys {
		if v, ok := m[k]; ok {
			if _, isObj := v.(map[string]any); !isObj {
				delete(m, k)
				note(k + "(not an object)")
			}
		}
	}

	for _, k := range listKeys {
		v, ok := m[k]
		switch t := v.(type) {
		case nil:
			m[k] = []any{}
			if ok {
				note(k + "(null->[])")
			} else {
				note(k + "(missing->[])")
			}
		case []any:
		default:
			m[k] = []any{t}
			note(k + "(single->list)")
		}
		if key, wantsObjects := itemKeys[k]; wantsObjects {
			list := m[k].([]any)
			for i, item := range list {
				if s, isStr := item.(string); isStr {
					list[i] = map[string]any{key: s}
					note(fmt.Sprintf("%s[%d](string->object)", k, i))
				}
			}
		}
		if _, wantsStrings := stringListKeys[k]; wantsStrings {
			list := m[k].([]any)
			for i, item := range list {
				if obj, isObj := item.(map[string]any); isObj {
					list[i] = flatten(obj)
					note(fmt.Sprintf("%s[%d](object->string)", k, i))
				}
			}
		}
	}

	cleaned := sanitizeValue("", m, note)
	out, err := json.Marshal(cleaned)
	if err != nil {
		return nil, nil, fmt.Errorf("sanitize: encode: %w", err)
	}
	sort.Strings(changes)
	return out, changes, nil
}

func sanitizeValue(key string, v any, note func(string)) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if child == nil {
				delete(t, k)
				note(k + "(null)")
				continue
			}
			t[k] = sanitizeValue(k, child, note)
		}
		return t
	case []any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			if item == nil {
				note(key + "[](null)")
				continue
			}
			out = append(out, sanitizeValue(key, item, note))
		}
		return out
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case string:
		if _, isEnum := enumKeys[key]; isEnum {
			t = strings.ToLower(strings.TrimSpace(t))
			if key == "severity" {
				if sev, ok := severities[t]; ok {
					return sev
				}
				note("severity(" + t + "->medium)")
				return "medium"
			}
		}
		return t
	}
	return v
}

func flatten(obj map[string]any) string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				parts = append(parts, v)
			}
		case float64:
			parts = append(parts, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return strings.Join(parts, "; ")
}
