package providers

import (
	"context"
	"time"

	"github.com/zulabs/podforge/logger"
	"github.com/zulabs/podforge/metrics/prometheus"
	"github.com/zulabs/podforge/transcript"
)

// Gateway is the uniform call surface over the configured providers. It
// validates models against the per-provider allow-lists, dispatches to the
// registered Provider, and implements the tolerant transcript path.
type Gateway struct {
	registry *Registry
}

// NewGateway creates a Gateway over the given registry.
func NewGateway(registry *Registry) *Gateway {
	return &Gateway{registry: registry}
}

// GenerateText produces plain text from the named provider. An empty model
// selects the provider default; a model outside the provider's allow-list
// fails with *InvalidModelError.
func (g *Gateway) GenerateText(ctx context.Context, provider, prompt, model string) (string, error) {
	return g.Generate(ctx, provider, TextRequest{Prompt: prompt, Model: model})
}

// Generate is GenerateText with full request control (system message,
// temperature, token limit).
func (g *Gateway) Generate(ctx context.Context, provider string, req TextRequest) (string, error) {
	p, ok := g.registry.Get(provider)
	if !ok {
		return "", &UnsupportedProviderError{Provider: provider}
	}

	resolved, err := ResolveModel(provider, req.Model)
	if err != nil {
		return "", err
	}
	req.Model = resolved

	logger.ModelCall(provider, resolved, len(req.Prompt))

	start := time.Now()
	text, err := p.GenerateText(ctx, req)
	if err != nil {
		prometheus.RecordProviderRequest(provider, resolved, "error", time.Since(start))
		logger.ModelError(provider, resolved, err)
		return "", err
	}

	prometheus.RecordProviderRequest(provider, resolved, "success", time.Since(start))
	return text, nil
}

// GenerateTranscript is the structured podcast path. It deliberately avoids
// native structured-output decoding: the raw text response is recovered by
// the tolerant transcript parser and validated against the utterance schema.
// Parse or validation failures surface as *transcript.FormatError.
func (g *Gateway) GenerateTranscript(ctx context.Context, provider, prompt, model string) ([]transcript.Utterance, error) {
	raw, err := g.GenerateText(ctx, provider, prompt, model)
	if err != nil {
		return nil, err
	}

	logger.Debug("raw transcript response", "chars", len(raw))
	return transcript.Parse(raw)
}
