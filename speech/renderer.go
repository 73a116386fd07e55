package speech

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zulabs/podforge/logger"
	"github.com/zulabs/podforge/metrics/prometheus"
	"github.com/zulabs/podforge/transcript"
)

// VoiceIDs maps speaker tags to fixed ElevenLabs voice profiles.
var VoiceIDs = map[string]string{
	transcript.SpeakerOne: "JBFqnCBsd6RMkjVDRZzb",
	transcript.SpeakerTwo: "ZF6FPAbjXT4488VcRRnw",
}

// Service converts text to speech audio with a named voice.
type Service interface {
	// Name returns the provider identifier (for logging/debugging).
	Name() string

	// Synthesize converts text to audio. The caller closes the reader.
	Synthesize(ctx context.Context, text, voice string) (io.ReadCloser, error)
}

// Segment is one utterance's rendered audio, keyed by utterance index.
// Immutable once produced. Err is only set under the BestEffort batch policy.
type Segment struct {
	Index   int
	Speaker string
	Audio   []byte
	Err     error
}

// BatchPolicy selects the failure semantics of RenderAll.
type BatchPolicy int

const (
	// FailFast aborts the whole batch on the first segment failure. A podcast
	// missing a middle segment is not useful, so this is the audio default.
	FailFast BatchPolicy = iota

	// BestEffort captures per-segment failures in Segment.Err and always
	// returns one result per utterance.
	BestEffort
)

// Renderer converts transcript utterances into audio segments.
type Renderer struct {
	service Service
	voices  map[string]string
}

// NewRenderer creates a Renderer over the given TTS service with the fixed
// speaker voice map.
func NewRenderer(service Service) *Renderer {
	return &Renderer{
		service: service,
		voices:  VoiceIDs,
	}
}

// Voice resolves an utterance's speaker tag to a voice profile. Unknown
// speaker tags are fatal, never defaulted.
func (r *Renderer) Voice(speaker string) (string, error) {
	voice, ok := r.voices[speaker]
	if !ok {
		return "", &UnknownSpeakerError{Speaker: speaker}
	}
	return voice, nil
}

// Render converts one utterance to an audio segment.
func (r *Renderer) Render(ctx context.Context, index int, u transcript.Utterance) (Segment, error) {
	voice, err := r.Voice(u.Speaker)
	if err != nil {
		return Segment{}, err
	}

	logger.SpeechRender(voice, index, len(u.Text))

	start := time.Now()
	reader, err := r.service.Synthesize(ctx, u.Text, voice)
	if err != nil {
		prometheus.RecordSpeechRender(voice, "error", time.Since(start))
		return Segment{}, fmt.Errorf("synthesis failed: %w", err)
	}
	defer reader.Close()

	audio, err := io.ReadAll(reader)
	if err != nil {
		prometheus.RecordSpeechRender(voice, "error", time.Since(start))
		return Segment{}, fmt.Errorf("reading audio stream: %w", err)
	}

	prometheus.RecordSpeechRender(voice, "success", time.Since(start))
	return Segment{Index: index, Speaker: u.Speaker, Audio: audio}, nil
}

// RenderAll renders every utterance concurrently. The returned slice is in
// utterance order regardless of network completion order; concurrency only
// affects completion time, never presentation order.
//
// Under FailFast the first failure cancels the remaining renders and is
// returned as a *RenderError naming the failed index. Under BestEffort every
// index gets a result and failures are carried in Segment.Err.
func (r *Renderer) RenderAll(ctx context.Context, utterances []transcript.Utterance, policy BatchPolicy) ([]Segment, error) {
	// Unknown speakers fail the batch up front under either policy.
	for _, u := range utterances {
		if _, err := r.Voice(u.Speaker); err != nil {
			return nil, err
		}
	}

	segments := make([]Segment, len(utterances))

	g, gctx := errgroup.WithContext(ctx)
	for i, u := range utterances {
		g.Go(func() error {
			segment, err := r.Render(gctx, i, u)
			if err != nil {
				if policy == BestEffort {
					segments[i] = Segment{Index: i, Speaker: u.Speaker, Err: err}
					return nil
				}
				return &RenderError{Index: i, Speaker: u.Speaker, Err: err}
			}
			segments[i] = segment
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return segments, nil
}
