// Package relay proxies an external research service: it forwards
// research requests, mirrors the service's configuration endpoints and
// re-emits its Server-Sent-Events status stream with bounded
// reconnection.
package relay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zulabs/podforge/logger"
	"github.com/zulabs/podforge/metrics/prometheus"
)

// Reconnect policy for the status stream. Delays grow as
// baseDelay * 2^attempt; after maxRetries consecutive failures the
// subscriber receives one terminal error event and the stream closes.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
)

// Research modes reported by the service configuration.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// PhaseError is the phase of the synthetic terminal event emitted
// when reconnection is exhausted.
const PhaseError = "error"

// PhaseComplete ends a research run; the stream closes after it.
const PhaseComplete = "complete"

// lostConnectionMessage is the terminal event message.
const lostConnectionMessage = "Lost connection to research service"

// StatusEvent is one research progress update, re-emitted unchanged
// from the upstream stream.
type StatusEvent struct {
	Phase          string        `json:"phase"`
	Message        string        `json:"message"`
	ElapsedTime    float64       `json:"elapsed_time,omitempty"`
	Timestamp      float64       `json:"timestamp"`
	Summary        string        `json:"summary,omitempty"`
	ChainOfThought string        `json:"chain_of_thought,omitempty"`
	Track          string        `json:"track,omitempty"`
	Perspectives   *Perspectives `json:"perspectives,omitempty"`
}

// Perspectives carries the two debate viewpoints produced in debate
// mode.
type Perspectives struct {
	PerspectiveOne string `json:"perspective_one"`
	PerspectiveTwo string `json:"perspective_two"`
	Topic          string `json:"topic"`
}

// ResearchConfig mirrors the external service's configuration object.
type ResearchConfig struct {
	LocalLLM            string `json:"local_llm"`
	MaxWebResearchLoops int    `json:"max_web_research_loops"`
	ResearchMode        string `json:"research_mode"`
	GroqModel           string `json:"groq_model"`
	GroqAPIKey          string `json:"groq_api_key,omitempty"`
}

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxRetries sets how many consecutive stream failures are
// tolerated before the terminal error event.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) { c.maxRetries = n }
}

// WithRetryDelay sets the base reconnect delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) { c.retryDelay = d }
}

// Client talks to the external research service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates a Client targeting baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartResearch asks the service to begin researching a topic.
func (c *Client) StartResearch(ctx context.Context, topic string) error {
	if topic == "" {
		return fmt.Errorf("topic is required")
	}

	body, err := json.Marshal(map[string]string{"topic": topic})
	if err != nil {
		return fmt.Errorf("relay: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/research", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("relay: start research: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("relay: start research: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("relay: start research: status %d", resp.StatusCode)
	}
	return nil
}

// Config fetches the service configuration.
func (c *Client) Config(ctx context.Context) (*ResearchConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/config", nil)
	if err != nil {
		return nil, fmt.Errorf("relay: get config: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay: get config: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay: get config: status %d", resp.StatusCode)
	}

	var cfg ResearchConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("relay: decode config: %w", err)
	}
	return &cfg, nil
}

// UpdateConfig replaces the service configuration and returns the
// stored result.
func (c *Client) UpdateConfig(ctx context.Context, cfg *ResearchConfig) (*ResearchConfig, error) {
	body, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("relay: marshal config: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/config", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("relay: update config: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay: update config: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay: update config: status %d", resp.StatusCode)
	}

	var updated ResearchConfig
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		return nil, fmt.Errorf("relay: decode config: %w", err)
	}
	return &updated, nil
}

// Subscribe opens the status stream and re-emits each event on the
// returned channel. On stream failure it reconnects with exponential
// backoff, closing the previous connection first; once the retry
// budget is exhausted it emits exactly one terminal error event and
// closes the channel. Cancelling ctx closes the stream and the
// channel without a terminal event.
func (c *Client) Subscribe(ctx context.Context) <-chan StatusEvent {
	ch := make(chan StatusEvent)
	go c.run(ctx, ch)
	return ch
}

func (c *Client) run(ctx context.Context, ch chan<- StatusEvent) {
	defer close(ch)

	failures := 0
	for {
		if ctx.Err() != nil {
			return
		}

		if failures > 0 {
			prometheus.RecordSSEReconnect()
			logger.Warn("reconnecting to status stream",
				"attempt", failures,
				"max_retries", c.maxRetries)
		}

		body, err := c.connect(ctx)
		if err == nil {
			var done bool
			done, err = c.consume(ctx, body, ch, &failures)
			_ = body.Close()
			if done {
				return
			}
		}

		if ctx.Err() != nil {
			return
		}

		failures++
		if failures >= c.maxRetries {
			logger.Error("status stream lost", "failures", failures, "error", err)
			c.emit(ctx, ch, StatusEvent{
				Phase:     PhaseError,
				Message:   lostConnectionMessage,
				Timestamp: float64(time.Now().UnixMilli()) / 1000,
			})
			return
		}

		delay := c.retryDelay * (1 << (failures - 1))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

// connect opens one SSE connection to the status endpoint.
func (c *Client) connect(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return nil, fmt.Errorf("relay: status stream: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req) //nolint:bodyclose // closed by the caller
	if err != nil {
		return nil, fmt.Errorf("relay: status stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("relay: status stream: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// consume reads events from one connection until it ends. It returns
// done=true when the subscription should stop for good: a complete
// event arrived or the consumer went away.
func (c *Client) consume(ctx context.Context, r io.Reader, ch chan<- StatusEvent, failures *int) (bool, error) {
	scanner := bufio.NewScanner(r)
	var buf strings.Builder

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, ":") {
			continue // SSE comment
		}

		if strings.HasPrefix(line, "data:") {
			appendDataLine(&buf, line)
			continue
		}

		// Empty line terminates the current event.
		if line == "" && buf.Len() > 0 {
			data := buf.String()
			buf.Reset()

			var evt StatusEvent
			if err := json.Unmarshal([]byte(data), &evt); err != nil {
				logger.Warn("skipping malformed status event", "error", err)
				continue
			}

			// A delivered event proves the connection is healthy.
			*failures = 0

			if !c.emit(ctx, ch, evt) {
				return true, nil
			}
			if evt.Phase == PhaseComplete {
				return true, nil
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("relay: status stream read: %w", err)
	}
	return false, fmt.Errorf("relay: status stream closed by server")
}

// appendDataLine extracts the payload of an SSE "data:" line, joining
// multi-line data with newlines per the SSE spec.
func appendDataLine(buf *strings.Builder, line string) {
	d := line[len("data:"):]
	if d != "" && d[0] == ' ' {
		d = d[1:]
	}
	if buf.Len() > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteString(d)
}

func (c *Client) emit(ctx context.Context, ch chan<- StatusEvent, evt StatusEvent) bool {
	select {
	case ch <- evt:
		return true
	case <-ctx.Done():
		return false
	}
}
