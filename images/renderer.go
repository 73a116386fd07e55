package images

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/zulabs/podforge/logger"
	"github.com/zulabs/podforge/metrics/prometheus"
	"github.com/zulabs/podforge/progress"
	"github.com/zulabs/podforge/transcript"
)

// Polling defaults. Jobs are checked on a fixed interval; maxPolls
// bounds the total wait so a stuck job cannot pin a goroutine forever.
const (
	DefaultPollInterval = 3 * time.Second
	DefaultMaxPolls     = 100
)

// Prompt rewriting uses a fast model; the rewritten prompt is what the
// image API actually sees.
const (
	promptProvider = "groq"
	promptModel    = "llama-3.1-8b-instant"
)

// ErrPollTimeout is returned when a job does not reach a terminal
// state within the configured number of polls.
var ErrPollTimeout = errors.New("image generation timed out")

const promptTemplate = `You are an expert content creator. Generate an image prompt based on this podcast segment:
"%s"

Rules:
1. Focus on the TOPIC being discussed, not the speaker or podcast format
2. Create a vivid, detailed scene that represents the main subject
3. Avoid mentioning that this is for a podcast
4. Keep the prompt concise but descriptive
5. Always end with: Style: photorealistic, high quality, detailed

Output the image prompt directly, with no additional text or explanations.`

// TextGenerator produces text from a model. Satisfied by
// *providers.Gateway.
type TextGenerator interface {
	GenerateText(ctx context.Context, provider, prompt, model string) (string, error)
}

// JobClient manages image generation jobs. Satisfied by *Client.
type JobClient interface {
	Create(ctx context.Context, prompt string) (*Job, error)
	Get(ctx context.Context, jobID string) (*Job, error)
}

// Renderer turns transcript segments into images: it rewrites the
// segment text into an image prompt, submits a job and polls it to
// completion. Batch results land in a progress store keyed by
// utterance index.
type Renderer struct {
	client       JobClient
	generator    TextGenerator
	store        progress.Store
	pollInterval time.Duration
	maxPolls     int
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithPollInterval sets the delay between job status checks.
func WithPollInterval(d time.Duration) RendererOption {
	return func(r *Renderer) {
		r.pollInterval = d
	}
}

// WithMaxPolls bounds how many times a job is checked before giving up.
func WithMaxPolls(n int) RendererOption {
	return func(r *Renderer) {
		r.maxPolls = n
	}
}

// NewRenderer creates a Renderer. The store receives results of
// background generations and may be nil only if RenderBatch is never
// used.
func NewRenderer(client JobClient, generator TextGenerator, store progress.Store, opts ...RendererOption) *Renderer {
	r := &Renderer{
		client:       client,
		generator:    generator,
		store:        store,
		pollInterval: DefaultPollInterval,
		maxPolls:     DefaultMaxPolls,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RewritePrompt asks the text model to turn a transcript segment into
// an image prompt. Surrounding quotes the model sometimes adds are
// stripped.
func (r *Renderer) RewritePrompt(ctx context.Context, segmentText string) (string, error) {
	raw, err := r.generator.GenerateText(ctx, promptProvider, fmt.Sprintf(promptTemplate, segmentText), promptModel)
	if err != nil {
		return "", fmt.Errorf("prompt rewrite failed: %w", err)
	}
	return cleanPrompt(raw), nil
}

func cleanPrompt(s string) string {
	s = strings.TrimSpace(s)
	for _, q := range []string{`"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2 {
			s = s[1 : len(s)-1]
			break
		}
	}
	return strings.TrimSpace(s)
}

// Generate produces one image for a transcript segment and returns its
// URL. It blocks until the job completes, fails, or the poll budget is
// exhausted.
func (r *Renderer) Generate(ctx context.Context, segmentText string) (string, error) {
	prompt, err := r.RewritePrompt(ctx, segmentText)
	if err != nil {
		return "", err
	}

	job, err := r.client.Create(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to create image job: %w", err)
	}
	logger.ImageJob(job.ID, job.State)

	done, polls, err := r.awaitJob(ctx, job.ID)
	if err != nil {
		state := StateFailed
		if errors.Is(err, ErrPollTimeout) {
			state = "timeout"
		}
		prometheus.RecordImageJob(state, polls)
		return "", err
	}

	prometheus.RecordImageJob(StateCompleted, polls)
	logger.ImageJob(done.ID, done.State, "polls", polls)
	return done.Assets.Image, nil
}

var errStillProcessing = errors.New("job still processing")

// awaitJob polls a job until it reaches a terminal state. A failed job
// surfaces as *GenerationError; exhausting the poll budget surfaces as
// ErrPollTimeout.
func (r *Renderer) awaitJob(ctx context.Context, jobID string) (*Job, int, error) {
	var (
		job   *Job
		polls int
	)

	operation := func() error {
		polls++
		j, err := r.client.Get(ctx, jobID)
		if err != nil {
			if errors.Is(err, ErrJobNotFound) {
				return backoff.Permanent(err)
			}
			// Transient fetch errors retry on the same schedule.
			return err
		}

		switch j.State {
		case StateCompleted:
			job = j
			return nil
		case StateFailed:
			return backoff.Permanent(&GenerationError{JobID: jobID, Reason: j.FailureReason})
		default:
			logger.ImageJob(jobID, j.State, "poll", polls)
			return errStillProcessing
		}
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.pollInterval), uint64(r.maxPolls)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		if ctx.Err() != nil {
			return nil, polls, ctx.Err()
		}
		if errors.Is(err, errStillProcessing) {
			return nil, polls, fmt.Errorf("%w after %d polls", ErrPollTimeout, polls)
		}
		return nil, polls, err
	}
	return job, polls, nil
}

// RenderBatch generates images for a transcript. The first segment is
// rendered synchronously and returned; the remaining segments continue
// in the background, with each outcome written to the progress store
// under the session ID and utterance index. A failed first image is
// reported in the returned result, not as an error.
func (r *Renderer) RenderBatch(ctx context.Context, sessionID string, utterances []transcript.Utterance) (progress.Result, []string, error) {
	if len(utterances) == 0 {
		return progress.Result{}, nil, errors.New("transcript is empty")
	}
	if sessionID == "" {
		return progress.Result{}, nil, progress.ErrInvalidSession
	}

	first := r.renderOne(ctx, 0, utterances[0])
	if err := r.store.Put(ctx, sessionID, first); err != nil {
		logger.Warn("failed to record first image result", "session_id", sessionID, "error", err)
	}

	remaining := utterances[1:]
	speakers := make([]string, len(remaining))
	for i, u := range remaining {
		speakers[i] = u.Speaker
	}

	if len(remaining) > 0 {
		// Background work outlives the originating request.
		bgCtx := context.WithoutCancel(ctx)
		go r.renderRemaining(bgCtx, sessionID, remaining)
	}

	return first, speakers, nil
}

func (r *Renderer) renderRemaining(ctx context.Context, sessionID string, remaining []transcript.Utterance) {
	for i, u := range remaining {
		result := r.renderOne(ctx, i+1, u)
		if err := r.store.Put(ctx, sessionID, result); err != nil {
			logger.Warn("failed to record image result",
				"session_id", sessionID,
				"index", result.Index,
				"error", err)
		}
	}
}

func (r *Renderer) renderOne(ctx context.Context, index int, u transcript.Utterance) progress.Result {
	result := progress.Result{
		Index:   index,
		Speaker: u.Speaker,
	}

	url, err := r.Generate(ctx, u.Text)
	if err != nil {
		logger.ErrorContext(ctx, "image generation failed",
			"index", index,
			"speaker", u.Speaker,
			"error", err)
		result.Err = err.Error()
		return result
	}

	result.ImageURL = url
	return result
}
