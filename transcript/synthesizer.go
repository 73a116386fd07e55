package transcript

import (
	"context"
	"fmt"

	"github.com/zulabs/podforge/logger"
)

// Generator produces a validated transcript from a prompt against a named
// provider and model. Satisfied by providers.Gateway.
type Generator interface {
	GenerateTranscript(ctx context.Context, provider, prompt, model string) ([]Utterance, error)
}

// Synthesizer turns a source document into a bounded two-speaker transcript.
type Synthesizer struct {
	gen      Generator
	provider string
	model    string
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithProvider sets the text-generation provider and model used for synthesis.
func WithProvider(provider, model string) SynthesizerOption {
	return func(s *Synthesizer) {
		s.provider = provider
		s.model = model
	}
}

// NewSynthesizer creates a Synthesizer backed by the given generator.
// The default model is Groq's llama-3.1-8b-instant.
func NewSynthesizer(gen Generator, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{
		gen:      gen,
		provider: "groq",
		model:    "llama-3.1-8b-instant",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize builds the dialogue prompt for the document and delegates to the
// generator's structured transcript path. Generation order is preserved: the
// returned slice is the playback order. *FormatError from the generator is
// propagated unchanged.
func (s *Synthesizer) Synthesize(ctx context.Context, document, language, targetMinutes string) ([]Utterance, error) {
	if language == "" {
		language = "English"
	}
	if targetMinutes == "" {
		targetMinutes = "3"
	}

	prompt := PodcastPrompt(document, language, targetMinutes)

	// Errors pass through unchanged so *FormatError stays matchable by callers.
	utterances, err := s.gen.GenerateTranscript(ctx, s.provider, prompt, s.model)
	if err != nil {
		return nil, err
	}

	logger.Info("transcript synthesized",
		"utterances", len(utterances),
		"language", language,
		"minutes", targetMinutes,
	)
	return utterances, nil
}

// PodcastPrompt is the fixed prompt template instructing the model to emit an
// alternating two-speaker dialogue as speaker/text JSON objects. The speaker
// and text keys stay in English even when the dialogue language does not.
func PodcastPrompt(report, language, minutes string) string {
	return fmt.Sprintf(`
You are an expert podcast script writer for multi-speaker podcasts.
You are writing this podcast in %[1]s. This podcast will be %[2]s minutes long.

Generate a natural conversation between two speakers discussing the following report.
IMPORTANT: Each response MUST be in valid JSON format with "speaker" and "text" fields in English,
even though the text content will be in %[1]s.

The research report is as follows:
%[3]s

Rules for the conversation:
1. Use filler words appropriate for %[1]s
2. Include some light humor and casual banter
3. Keep each response concise and natural
4. Alternate between Speaker 1 and Speaker 2
5. Format each response EXACTLY like this example (keep "speaker" in English):
{
  "speaker": "Speaker 1",
  "text": "Your text here in %[1]s in complete sentences"
}

Begin the conversation, which is written in %[1]s, and will be %[2]s minutes long.
Remember to keep the JSON format exactly as shown, with "speaker" and "text" in double quotes:
`, language, minutes, report)
}
