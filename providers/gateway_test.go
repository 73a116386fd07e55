package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zulabs/podforge/transcript"
)

func newTestGateway(responses ...string) (*Gateway, *MockProvider) {
	mock := NewMockProvider("groq", responses...)
	registry := NewRegistry()
	registry.Register(mock)
	return NewGateway(registry), mock
}

func TestGateway_GenerateText(t *testing.T) {
	gw, mock := newTestGateway("generated text")

	text, err := gw.GenerateText(context.Background(), "groq", "a prompt", "llama-3.1-8b-instant")
	require.NoError(t, err)
	assert.Equal(t, "generated text", text)

	requests := mock.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "a prompt", requests[0].Prompt)
	assert.Equal(t, "llama-3.1-8b-instant", requests[0].Model)
}

func TestGateway_GenerateText_DefaultModel(t *testing.T) {
	gw, mock := newTestGateway("ok")

	_, err := gw.GenerateText(context.Background(), "groq", "prompt", "")
	require.NoError(t, err)
	assert.Equal(t, Models["groq"].Default, mock.Requests()[0].Model)
}

func TestGateway_GenerateText_InvalidModel(t *testing.T) {
	gw, _ := newTestGateway("ok")

	_, err := gw.GenerateText(context.Background(), "groq", "prompt", "gpt-4")

	var invalidErr *InvalidModelError
	require.True(t, errors.As(err, &invalidErr))
	assert.Equal(t, "groq", invalidErr.Provider)
	assert.Equal(t, "gpt-4", invalidErr.Model)
	// The error message names the allowed set.
	assert.Contains(t, err.Error(), "llama-3.1-8b-instant")
}

func TestGateway_GenerateText_UnknownProvider(t *testing.T) {
	gw, _ := newTestGateway("ok")

	_, err := gw.GenerateText(context.Background(), "anthropic", "prompt", "")

	var unsupportedErr *UnsupportedProviderError
	require.True(t, errors.As(err, &unsupportedErr))
}

func TestGateway_GenerateTranscript_CleanJSON(t *testing.T) {
	gw, _ := newTestGateway(`[{"speaker": "Speaker 1", "text": "First."}, {"speaker": "Speaker 2", "text": "Second."}]`)

	utterances, err := gw.GenerateTranscript(context.Background(), "groq", "podcast prompt", "")
	require.NoError(t, err)
	require.Len(t, utterances, 2)
	assert.Equal(t, transcript.SpeakerOne, utterances[0].Speaker)
	assert.Equal(t, "First.", utterances[0].Text)
}

func TestGateway_GenerateTranscript_RoundTripsValues(t *testing.T) {
	gw, _ := newTestGateway(`[{"speaker": "Speaker 2", "text": "Byte for byte."}]`)

	utterances, err := gw.GenerateTranscript(context.Background(), "groq", "prompt", "")
	require.NoError(t, err)
	assert.Equal(t, []transcript.Utterance{{Speaker: "Speaker 2", Text: "Byte for byte."}}, utterances)
}

func TestGateway_GenerateTranscript_FormatError(t *testing.T) {
	gw, _ := newTestGateway("nothing resembling a transcript")

	_, err := gw.GenerateTranscript(context.Background(), "groq", "prompt", "")

	var formatErr *transcript.FormatError
	require.True(t, errors.As(err, &formatErr))
}

func TestGateway_GenerateTranscript_ProviderError(t *testing.T) {
	mock := NewMockProvider("groq").FailWith(errors.New("boom"))
	registry := NewRegistry()
	registry.Register(mock)
	gw := NewGateway(registry)

	_, err := gw.GenerateTranscript(context.Background(), "groq", "prompt", "")
	require.Error(t, err)

	var formatErr *transcript.FormatError
	assert.False(t, errors.As(err, &formatErr), "provider errors must not masquerade as format errors")
}

func TestRegistry_RegisterAndList(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewMockProvider("groq"))
	registry.Register(NewMockProvider("openai"))

	assert.ElementsMatch(t, []string{"groq", "openai"}, registry.List())

	p, ok := registry.Get("groq")
	require.True(t, ok)
	assert.Equal(t, "groq", p.ID())

	_, ok = registry.Get("missing")
	assert.False(t, ok)
}

func TestResolveModel(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		want     string
		wantErr  bool
	}{
		{"groq default", "groq", "", "deepseek-r1-distill-llama-70b", false},
		{"openai default", "openai", "", "gpt-3.5-turbo", false},
		{"groq explicit", "groq", "gemma2-9b-it", "gemma2-9b-it", false},
		{"openai explicit", "openai", "gpt-4-turbo-preview", "gpt-4-turbo-preview", false},
		{"cross-provider model", "openai", "mixtral-8x7b-32768", "", true},
		{"unknown model", "groq", "made-up-model", "", true},
		{"unknown provider", "claude", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveModel(tt.provider, tt.model)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
