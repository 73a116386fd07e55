package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zulabs/podforge/transcript"
)

// fakeService returns the synthesized text prefixed with the voice, after an
// optional artificial delay.
type fakeService struct {
	delay  func(text string) time.Duration
	failOn string
	calls  atomic.Int32
}

func (f *fakeService) Name() string { return "fake" }

func (f *fakeService) Synthesize(ctx context.Context, text, voice string) (io.ReadCloser, error) {
	f.calls.Add(1)
	if f.delay != nil {
		select {
		case <-time.After(f.delay(text)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, errors.New("synthesis refused")
	}
	return io.NopCloser(strings.NewReader(voice + ":" + text)), nil
}

func testTranscript(n int) []transcript.Utterance {
	utterances := make([]transcript.Utterance, n)
	for i := range utterances {
		speaker := transcript.SpeakerOne
		if i%2 == 1 {
			speaker = transcript.SpeakerTwo
		}
		utterances[i] = transcript.Utterance{Speaker: speaker, Text: fmt.Sprintf("line %d", i)}
	}
	return utterances
}

func TestRender_SingleUtterance(t *testing.T) {
	r := NewRenderer(&fakeService{})

	segment, err := r.Render(context.Background(), 0, transcript.Utterance{
		Speaker: transcript.SpeakerOne,
		Text:    "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, segment.Index)
	assert.Equal(t, transcript.SpeakerOne, segment.Speaker)
	assert.Equal(t, VoiceIDs[transcript.SpeakerOne]+":hello", string(segment.Audio))
}

func TestRender_UnknownSpeaker(t *testing.T) {
	r := NewRenderer(&fakeService{})

	_, err := r.Render(context.Background(), 0, transcript.Utterance{
		Speaker: "Speaker 3",
		Text:    "hello",
	})

	var unknownErr *UnknownSpeakerError
	require.True(t, errors.As(err, &unknownErr))
	assert.Equal(t, "Speaker 3", unknownErr.Speaker)
}

func TestRenderAll_PreservesOrderUnderRandomLatency(t *testing.T) {
	service := &fakeService{
		delay: func(string) time.Duration {
			return time.Duration(rand.Intn(30)) * time.Millisecond
		},
	}
	r := NewRenderer(service)
	utterances := testTranscript(12)

	segments, err := r.RenderAll(context.Background(), utterances, FailFast)
	require.NoError(t, err)
	require.Len(t, segments, len(utterances))

	for i, segment := range segments {
		assert.Equal(t, i, segment.Index)
		assert.Equal(t, utterances[i].Speaker, segment.Speaker)
		assert.Contains(t, string(segment.Audio), fmt.Sprintf("line %d", i))
	}
}

func TestRenderAll_FailFastAbortsBatch(t *testing.T) {
	service := &fakeService{failOn: "line 2"}
	r := NewRenderer(service)

	_, err := r.RenderAll(context.Background(), testTranscript(5), FailFast)

	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, 2, renderErr.Index)
}

func TestRenderAll_BestEffortCapturesPerSegmentFailures(t *testing.T) {
	service := &fakeService{failOn: "line 1"}
	r := NewRenderer(service)
	utterances := testTranscript(3)

	segments, err := r.RenderAll(context.Background(), utterances, BestEffort)
	require.NoError(t, err)
	require.Len(t, segments, 3)

	assert.NoError(t, segments[0].Err)
	assert.NotEmpty(t, segments[0].Audio)
	assert.Error(t, segments[1].Err)
	assert.Empty(t, segments[1].Audio)
	assert.NoError(t, segments[2].Err)
}

func TestRenderAll_UnknownSpeakerFailsBeforeAnyCall(t *testing.T) {
	service := &fakeService{}
	r := NewRenderer(service)

	utterances := testTranscript(3)
	utterances[1].Speaker = "Narrator"

	_, err := r.RenderAll(context.Background(), utterances, BestEffort)

	var unknownErr *UnknownSpeakerError
	require.True(t, errors.As(err, &unknownErr))
	assert.Equal(t, int32(0), service.calls.Load())
}

func TestRenderAll_EmptyTranscript(t *testing.T) {
	r := NewRenderer(&fakeService{})

	segments, err := r.RenderAll(context.Background(), nil, FailFast)
	require.NoError(t, err)
	assert.Empty(t, segments)
}
