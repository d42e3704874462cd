package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/joseph-ayodele/contract-analyzer/constants"
)

var (
	ErrTimeout       = errors.New("llm call timed out")
	ErrAuth          = errors.New("llm authentication failed")
	ErrRateLimit     = errors.New("llm rate limit exceeded")
	ErrUnknownModel  = errors.New("llm model not found")
	ErrMalformedJSON = errors.New("llm returned malformed json")
	ErrProvider      = errors.New("llm provider error")
)

// maxErrorBody caps how much of a provider error body ends up in messages.
const maxErrorBody = 500

// ProviderError is a non-2xx answer from a provider.
type ProviderError struct {
	Provider string
	Status   int
	Body     string
}

func (e *ProviderError) Error() string {
	body := e.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	return fmt.Sprintf("LLM API call failed (%s): status %d: %s", e.Provider, e.Status, strings.TrimSpace(body))
}

// Unwrap exposes the sentinel matching the status and body, so errors.Is works.
func (e *ProviderError) Unwrap() error {
	return classifyResponse(e.Status, e.Body)
}

// classifyResponse checks the status code first and the body text second.
func classifyResponse(status int, body string) error {
	msg := strings.ToLower(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuth
	case status == http.StatusTooManyRequests:
		return ErrRateLimit
	case status == http.StatusNotFound && strings.Contains(msg, "model"):
		return ErrUnknownModel
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return ErrTimeout
	}
	if s := classifyText(msg); s != nil {
		return s
	}
	return ErrProvider
}

func classifyText(msg string) error {
	switch {
	case strings.Contains(msg, "api key"), strings.Contains(msg, "api_key"), strings.Contains(msg, "unauthorized"):
		return ErrAuth
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "rate_limit"):
		return ErrRateLimit
	case strings.Contains(msg, "model_not_found"), strings.Contains(msg, "does not exist"):
		return ErrUnknownModel
	case strings.Contains(msg, "deadline exceeded"), strings.Contains(msg, "timed out"), strings.Contains(msg, "timeout"):
		return ErrTimeout
	}
	return nil
}

// Classify maps a gateway error onto the closed set stored on runs and events.
// It returns "" for a nil error.
func Classify(err error) constants.ErrorClass {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return constants.ErrorClassTimeout
	case errors.Is(err, ErrAuth):
		return constants.ErrorClassAuth
	case errors.Is(err, ErrRateLimit):
		return constants.ErrorClassRateLimit
	case errors.Is(err, ErrUnknownModel):
		return constants.ErrorClassUnknownModel
	case errors.Is(err, ErrMalformedJSON):
		return constants.ErrorClassMalformedJSON
	case errors.Is(err, ErrProvider):
		return constants.ErrorClassProvider
	}
	switch classifyText(strings.ToLower(err.Error())) {
	case ErrAuth:
		return constants.ErrorClassAuth
	case ErrRateLimit:
		return constants.ErrorClassRateLimit
	case ErrUnknownModel:
		return constants.ErrorClassUnknownModel
	case ErrTimeout:
		return constants.ErrorClassTimeout
	}
	return constants.ErrorClassProvider
}

// UserMessage is the actionable text shown next to a failed or degraded stage.
func UserMessage(class constants.ErrorClass) string {
	switch class {
	case constants.ErrorClassTimeout:
		return "The analysis service took too long to respond. Please try again in a few minutes."
	case constants.ErrorClassAuth:
		return "The analysis service rejected our credentials. Please contact support."
	case constants.ErrorClassRateLimit:
		return "The analysis service is busy right now. Please retry shortly."
	case constants.ErrorClassUnknownModel:
		return "The configured analysis model is unavailable. Please contact support."
	case constants.ErrorClassMalformedJSON:
		return "The analysis service returned an unreadable answer. Please retry the analysis."
	case constants.ErrorClassHardGate:
		return "The document could not be analyzed reliably. Please upload a clearer or complete copy."
	case constants.ErrorClassExtraction:
		return "We could not read text from this document. Please upload a PDF or DOCX with selectable text."
	default:
		return "Something went wrong while analyzing the document. Please try again."
	}
}
