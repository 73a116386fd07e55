package playback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zulabs/podforge/providers"
)

// Enrichment settings. A low temperature keeps the fact bullets
// grounded; the token cap keeps the side panel short.
const (
	enrichProvider    = "groq"
	enrichModel       = "mixtral-8x7b-32768"
	enrichTemperature = 0.2
	enrichMaxTokens   = 150
)

const enrichSystemPrompt = "You are a concise enrichment assistant. Provide essential facts in bullet points. Keep responses under 30 words total. Format exactly as specified."

const enrichPromptTemplate = `For the selected text below, provide 1-2 key facts that enhance understanding.

Text to enrich: %s

Format your response exactly like this:
* [First key fact in under 15 words]
* [Optional second key fact in under 15 words]

Requirements:
- Provide 1-2 bullet points with asterisk (*)
- Each bullet point must be under 15 words
- Total response must be under 30 words
- No additional formatting or explanations`

// ErrEmptySelection is returned when enrichment is requested for
// blank text.
var ErrEmptySelection = errors.New("text is required")

// ModelCaller issues a structured text request to a provider.
// Satisfied by *providers.Gateway.
type ModelCaller interface {
	Generate(ctx context.Context, provider string, req providers.TextRequest) (string, error)
}

// Enricher produces short factual bullet points for user-selected
// transcript text. It runs beside the playback state machine and
// never touches it.
type Enricher struct {
	caller ModelCaller
}

// NewEnricher creates an Enricher backed by the given model caller.
func NewEnricher(caller ModelCaller) *Enricher {
	return &Enricher{caller: caller}
}

// Enrich returns 1-2 bullet-point facts about the selected text.
func (e *Enricher) Enrich(ctx context.Context, selectedText string) (string, error) {
	selectedText = strings.TrimSpace(selectedText)
	if selectedText == "" {
		return "", ErrEmptySelection
	}

	content, err := e.caller.Generate(ctx, enrichProvider, providers.TextRequest{
		System:      enrichSystemPrompt,
		Prompt:      fmt.Sprintf(enrichPromptTemplate, selectedText),
		Model:       enrichModel,
		Temperature: enrichTemperature,
		MaxTokens:   enrichMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to enrich text: %w", err)
	}
	return strings.TrimSpace(content), nil
}
