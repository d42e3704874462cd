package llm

// EstimateTokens is a rough count for prompts the provider did not meter:
// about three bytes per token, which errs high for Cyrillic text.
func EstimateTokens(s string) int {
	return len(s) / 3
}
