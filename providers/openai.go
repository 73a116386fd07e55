package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zulabs/podforge/logger"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"
	groqBaseURL   = "https://api.groq.com/openai/v1"

	defaultChatTimeout = 60 * time.Second

	defaultTemperature = 0.7
	defaultMaxTokens   = 2048
)

// ChatProvider implements the Provider interface against an OpenAI-compatible
// chat completions endpoint. Groq exposes the same wire format, so both
// providers share this implementation and differ only in base URL and key.
type ChatProvider struct {
	id       string
	baseURL  string
	apiKey   string
	defaults ProviderDefaults
	client   *http.Client
}

// ChatOption configures a ChatProvider.
type ChatOption func(*ChatProvider)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) ChatOption {
	return func(p *ChatProvider) {
		p.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ChatOption {
	return func(p *ChatProvider) {
		p.client = client
	}
}

// WithDefaults overrides the provider's default generation parameters.
func WithDefaults(defaults ProviderDefaults) ChatOption {
	return func(p *ChatProvider) {
		p.defaults = defaults
	}
}

// NewOpenAI creates a provider for OpenAI's chat completions API.
func NewOpenAI(apiKey string, opts ...ChatOption) *ChatProvider {
	return newChatProvider("openai", openAIBaseURL, apiKey, opts...)
}

// NewGroq creates a provider for Groq's OpenAI-compatible API.
func NewGroq(apiKey string, opts ...ChatOption) *ChatProvider {
	return newChatProvider("groq", groqBaseURL, apiKey, opts...)
}

func newChatProvider(id, baseURL, apiKey string, opts ...ChatOption) *ChatProvider {
	p := &ChatProvider{
		id:      id,
		baseURL: baseURL,
		apiKey:  apiKey,
		defaults: ProviderDefaults{
			Temperature: defaultTemperature,
			MaxTokens:   defaultMaxTokens,
		},
		client: &http.Client{Timeout: defaultChatTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ID returns the provider identifier.
func (p *ChatProvider) ID() string {
	return p.id
}

// Close closes the HTTP client and cleans up idle connections.
func (p *ChatProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// OpenAI-compatible request/response structures.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Error   *chatError   `json:"error,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// GenerateText sends a chat completion request and returns the first choice's
// content.
func (p *ChatProvider) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	temperature := req.Temperature
	if temperature == 0 {
		temperature = p.defaults.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.defaults.MaxTokens
	}

	apiReq := chatRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	reqBody, err := json.Marshal(apiReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(reqBody),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	logger.APIRequest(p.id, http.MethodPost, p.baseURL+"/chat/completions", nil, apiReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", p.id, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	logger.APIResponse(p.id, resp.StatusCode, string(respBody), nil)

	if resp.StatusCode != http.StatusOK {
		var apiResp chatResponse
		if json.Unmarshal(respBody, &apiResp) == nil && apiResp.Error != nil {
			return "", fmt.Errorf("%s error (HTTP %d): %s", p.id, resp.StatusCode, apiResp.Error.Message)
		}
		return "", fmt.Errorf("%s error (HTTP %d): %s", p.id, resp.StatusCode, string(respBody))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", p.id)
	}

	return apiResp.Choices[0].Message.Content, nil
}
