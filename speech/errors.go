package speech

import (
	"errors"
	"fmt"
)

// Common synthesis errors.
var (
	// ErrEmptyText is returned when attempting to synthesize empty text.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrInvalidVoice is returned when the requested voice is not available.
	ErrInvalidVoice = errors.New("invalid or unsupported voice")

	// ErrRateLimited is returned when API rate limits are exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// UnknownSpeakerError reports an utterance speaker tag missing from the voice
// map. Fatal: rendering must never silently fall back to a guessed voice.
type UnknownSpeakerError struct {
	Speaker string
}

func (e *UnknownSpeakerError) Error() string {
	return fmt.Sprintf("no voice ID found for %s", e.Speaker)
}

// SynthesisError provides detailed error information from the TTS provider.
type SynthesisError struct {
	// Provider is the TTS provider that returned the error.
	Provider string

	// Code is the provider-specific error code.
	Code string

	// Message is the error message.
	Message string

	// Cause is the underlying error (if any).
	Cause error

	// Retryable indicates if the error is transient and retry may succeed.
	Retryable bool
}

// Error implements the error interface.
func (e *SynthesisError) Error() string {
	if e.Cause != nil {
		return e.Provider + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Provider + ": " + e.Message
}

// Unwrap returns the underlying error.
func (e *SynthesisError) Unwrap() error {
	return e.Cause
}

// NewSynthesisError creates a new SynthesisError.
func NewSynthesisError(provider, code, message string, cause error, retryable bool) *SynthesisError {
	return &SynthesisError{
		Provider:  provider,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: retryable,
	}
}

// RenderError attributes a batch failure to a specific utterance index.
type RenderError struct {
	Index   int
	Speaker string
	Err     error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("segment %d (%s): %v", e.Index, e.Speaker, e.Err)
}

// Unwrap returns the underlying error.
func (e *RenderError) Unwrap() error {
	return e.Err
}
