// Package images generates illustration images for podcast segments.
//
// Image generation is asynchronous on the provider side: a creation
// request returns a job which is then polled until it reaches a
// terminal state. The Renderer wraps the job lifecycle with prompt
// rewriting, bounded polling and background fan-out over a transcript.
package images

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zulabs/podforge/logger"
)

const (
	defaultBaseURL = "https://api.lumalabs.ai/dream-machine/v1"

	defaultTimeout = 30 * time.Second
)

// Job states reported by the generation API.
const (
	StateQueued    = "queued"
	StateDreaming  = "dreaming"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// Job is a single image generation job.
type Job struct {
	ID            string    `json:"id"`
	State         string    `json:"state"`
	FailureReason string    `json:"failure_reason,omitempty"`
	Assets        JobAssets `json:"assets"`
}

// JobAssets holds the output URLs of a completed job.
type JobAssets struct {
	Image string `json:"image,omitempty"`
}

// Terminal reports whether the job has finished, successfully or not.
func (j *Job) Terminal() bool {
	return j.State == StateCompleted || j.State == StateFailed
}

// GenerationError indicates a job reached the failed state.
type GenerationError struct {
	JobID  string
	Reason string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("Generation failed: %s", e.Reason)
}

// APIError indicates a non-2xx response from the generation API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("image API error (status %d): %s", e.StatusCode, e.Message)
}

// ErrJobNotFound is returned when polling a job ID the API does not know.
var ErrJobNotFound = errors.New("image job not found")

// Client is an HTTP client for a Luma-style image generation API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL. Used in tests.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates an image generation client.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("API key is required")
	}

	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type createRequest struct {
	Prompt string `json:"prompt"`
}

// Create submits a new image generation job.
func (c *Client) Create(ctx context.Context, prompt string) (*Job, error) {
	if prompt == "" {
		return nil, errors.New("prompt is required")
	}

	body, err := json.Marshal(createRequest{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/generations/image"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	logger.APIRequest("luma", http.MethodPost, url, nil, createRequest{Prompt: prompt})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image create request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	return c.decodeJob(resp)
}

// Get fetches the current state of a job.
func (c *Client) Get(ctx context.Context, jobID string) (*Job, error) {
	if jobID == "" {
		return nil, errors.New("job ID is required")
	}

	url := c.baseURL + "/generations/" + jobID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image get request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrJobNotFound
	}
	return c.decodeJob(resp)
}

func (c *Client) decodeJob(resp *http.Response) (*Job, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Detail string `json:"detail"`
		}
		msg := string(data)
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Detail != "" {
			msg = apiErr.Detail
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	return &job, nil
}
