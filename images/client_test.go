package images

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient(t *testing.T) {
	t.Run("requires API key", func(t *testing.T) {
		_, err := NewClient("")
		if err == nil {
			t.Fatal("expected error for empty API key")
		}
	})

	t.Run("applies options", func(t *testing.T) {
		c, err := NewClient("luma-test", WithBaseURL("http://localhost:9999"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.baseURL != "http://localhost:9999" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "http://localhost:9999")
		}
	})
}

func TestClientCreate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/generations/image" {
			t.Errorf("path = %s, want /generations/image", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q, want %q", auth, "Bearer test-key")
		}

		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Prompt != "a lighthouse at dusk" {
			t.Errorf("prompt = %q", req.Prompt)
		}

		_ = json.NewEncoder(w).Encode(Job{ID: "job-1", State: StateQueued})
	}))
	defer server.Close()

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	job, err := client.Create(context.Background(), "a lighthouse at dusk")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if job.ID != "job-1" {
		t.Errorf("job ID = %q, want job-1", job.ID)
	}
	if job.Terminal() {
		t.Error("queued job reported as terminal")
	}
}

func TestClientCreateEmptyPrompt(t *testing.T) {
	client, err := NewClient("test-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := client.Create(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestClientGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generations/job-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(Job{
			ID:     "job-1",
			State:  StateCompleted,
			Assets: JobAssets{Image: "https://cdn.example.com/img.jpg"},
		})
	}))
	defer server.Close()

	client, _ := NewClient("test-key", WithBaseURL(server.URL))

	job, err := client.Get(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !job.Terminal() {
		t.Error("completed job not terminal")
	}
	if job.Assets.Image != "https://cdn.example.com/img.jpg" {
		t.Errorf("image = %q", job.Assets.Image)
	}
}

func TestClientGetNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, _ := NewClient("test-key", WithBaseURL(server.URL))

	_, err := client.Get(context.Background(), "missing")
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("error = %v, want ErrJobNotFound", err)
	}
}

func TestClientAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"detail": "rate limit exceeded"}`))
	}))
	defer server.Close()

	client, _ := NewClient("test-key", WithBaseURL(server.URL))

	_, err := client.Create(context.Background(), "anything")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
	if apiErr.Message != "rate limit exceeded" {
		t.Errorf("message = %q", apiErr.Message)
	}
}
