package providers

import (
	"fmt"
	"strings"
)

// ModelSet is a provider's static model allow-list with its default model.
type ModelSet struct {
	Default   string
	Available []string
}

// Models holds the per-provider allow-lists. A requested model outside its
// provider's list fails with *InvalidModelError; an empty model resolves to
// the provider default.
var Models = map[string]ModelSet{
	"groq": {
		Default: "deepseek-r1-distill-llama-70b",
		Available: []string{
			"deepseek-r1-distill-llama-70b",
			"llama2-70b-4096",
			"mixtral-8x7b-32768",
			"llama-3.3-70b-versatile",
			"llama-3.1-8b-instant",
			"gemma2-9b-it",
		},
	},
	"openai": {
		Default: "gpt-3.5-turbo",
		Available: []string{
			"gpt-4",
			"gpt-3.5-turbo",
			"gpt-4-turbo-preview",
		},
	},
}

// InvalidModelError is returned when a requested model is not in the
// provider's allow-list. It is surfaced to the caller immediately, not retried.
type InvalidModelError struct {
	Provider  string
	Model     string
	Available []string
}

func (e *InvalidModelError) Error() string {
	return fmt.Sprintf("invalid model %q for %s. Available models: %s",
		e.Model, e.Provider, strings.Join(e.Available, ", "))
}

// ResolveModel validates a model against the provider's allow-list. An empty
// model resolves to the provider's default.
func ResolveModel(provider, model string) (string, error) {
	set, ok := Models[provider]
	if !ok {
		return "", &UnsupportedProviderError{Provider: provider}
	}

	if model == "" {
		return set.Default, nil
	}

	for _, available := range set.Available {
		if model == available {
			return model, nil
		}
	}

	return "", &InvalidModelError{
		Provider:  provider,
		Model:     model,
		Available: set.Available,
	}
}

// UnsupportedProviderError is returned when a provider name is not recognized.
type UnsupportedProviderError struct {
	Provider string
}

func (e *UnsupportedProviderError) Error() string {
	return "unsupported provider: " + e.Provider
}
