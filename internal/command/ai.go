package command

import "strings"

// AI providers the mock orchestrator routes to.
const (
	ProviderOpenAI = "OpenAI"
	ProviderGemini = "Gemini"
)

const (
	defaultRequestType = "AI"
	maxPromptEcho      = 160
)

// SelectProvider routes a request type to a provider: reasoning and
// forecasting go to OpenAI, vision and document work to Gemini, anything
// else to OpenAI.
func SelectProvider(requestType string) string {
	t := strings.ToLower(requestType)
	switch {
	case strings.Contains(t, "reasoning"), strings.Contains(t, "forecasting"):
		return ProviderOpenAI
	case strings.Contains(t, "vision"), strings.Contains(t, "docs"):
		return ProviderGemini
	default:
		return ProviderOpenAI
	}
}

// MockResult is the canned answer recorded for an AI request. No provider is
// called.
func MockResult(provider, requestType, prompt string) string {
	if requestType == "" {
		requestType = defaultRequestType
	}
	echo := "No prompt provided"
	if prompt != "" {
		echo = truncateRunes(prompt, maxPromptEcho)
	}
	return provider + " mock result for " + requestType + ": " + echo
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
