package provider

import "strings"

// DetectType guesses the backend from a model name. Claude models go to
// Anthropic; everything else is assumed to speak the OpenAI format, which
// most self-hosted gateways also implement.
func DetectType(model string) string {
	if strings.HasPrefix(strings.ToLower(model), "claude-") {
		return Anthropic
	}
	return OpenAI
}
