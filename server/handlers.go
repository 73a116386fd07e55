package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/zulabs/podforge/logger"
	"github.com/zulabs/podforge/metrics/prometheus"
	"github.com/zulabs/podforge/providers"
	"github.com/zulabs/podforge/relay"
	"github.com/zulabs/podforge/speech"
	"github.com/zulabs/podforge/transcript"
)

// defaultResearchSummary is used when a generate request carries no
// research summary of its own.
const defaultResearchSummary = `
## Summary
Arsenal's 2003-04 season, famously referred to as "The Invincibles," was a remarkable achievement in English football. The team dominated the Premier League, securing an impressive 26 wins with no losses, finishing 11 points ahead of second-placed Chelsea. Their total of 73 goals scored and only 26 conceded highlighted their offensive strength and defensive resilience. Key players played pivotal roles in this success. Thierry Henry led the charge, scoring 30 goals in the Premier League. Robert Pires contributed with 14 goals, while Patrick Vieira added 3 goals and 4 assists, showcasing his midfield influence. Freddie Ljungberg scored 4 crucial goals, and Jens Lehmann's consistent performances between the posts were vital, playing every minute of all 38 matches. Defensively, Kolo Touré stood out with 55 appearances, while Ashley Cole's contributions on the left flank were significant, aiding in both goals and assists. Dennis Bergkamp's presence added experience and versatility to the squad. This season was not just about individual brilliance but also teamwork, exemplified by the cohesive effort of players and staff. The legacy of "The Invincibles" remains a testament to Arsenal's ability to unite talent and determination, cementing their status as one of the Premier League's most successful sides.
`

type generateRequest struct {
	Language        string `json:"language"`
	Minutes         string `json:"minutes"`
	ResearchSummary string `json:"researchSummary"`
}

type generateResponse struct {
	SessionID     string                 `json:"sessionId"`
	AudioSegments []string               `json:"audioSegments"`
	Transcript    []transcript.Utterance `json:"transcript"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Language == "" {
		req.Language = s.opts.DefaultLanguage
	}
	if req.Minutes == "" {
		req.Minutes = s.opts.DefaultMinutes
	}
	if req.ResearchSummary == "" {
		req.ResearchSummary = defaultResearchSummary
	}

	ctx := r.Context()

	utterances, err := s.opts.Synthesizer.Synthesize(ctx, req.ResearchSummary, req.Language, req.Minutes)
	if err != nil {
		logger.ErrorContext(ctx, "transcript synthesis failed", "error", err)
		prometheus.RecordPodcastGenerated("error")
		writeError(w, generateStatus(err), "Failed to generate podcast")
		return
	}

	segments, err := s.opts.Speech.RenderAll(ctx, utterances, speech.FailFast)
	if err != nil {
		logger.ErrorContext(ctx, "speech rendering failed", "error", err)
		prometheus.RecordPodcastGenerated("error")
		writeError(w, generateStatus(err), "Failed to generate podcast")
		return
	}

	encoded := make([]string, len(segments))
	for i, seg := range segments {
		encoded[i] = base64.StdEncoding.EncodeToString(seg.Audio)
	}

	prometheus.RecordPodcastGenerated("success")

	writeJSON(w, http.StatusOK, generateResponse{
		SessionID:     uuid.New().String(),
		AudioSegments: encoded,
		Transcript:    utterances,
	})
}

// generateStatus maps pipeline failures onto HTTP statuses: caller
// mistakes are 4xx, provider misbehavior is 502.
func generateStatus(err error) int {
	var invalidModel *providers.InvalidModelError
	if errors.As(err, &invalidModel) {
		return http.StatusBadRequest
	}
	var unknownSpeaker *speech.UnknownSpeakerError
	if errors.As(err, &unknownSpeaker) {
		return http.StatusBadRequest
	}
	var format *transcript.FormatError
	if errors.As(err, &format) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

type generateImagesRequest struct {
	SessionID  string                 `json:"sessionId"`
	Transcript []transcript.Utterance `json:"transcript"`
}

type imageResult struct {
	Index    int     `json:"index"`
	Speaker  string  `json:"speaker"`
	ImageURL *string `json:"imageUrl"`
	Error    string  `json:"error,omitempty"`
}

type generateImagesResponse struct {
	SessionID         string        `json:"sessionId"`
	Images            []imageResult `json:"images"`
	RemainingSegments []string      `json:"remainingSegments"`
}

func (s *Server) handleGenerateImages(w http.ResponseWriter, r *http.Request) {
	var req generateImagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := transcript.Validate(req.Transcript); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid transcript: %v", err))
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	first, remaining, err := s.opts.Images.RenderBatch(r.Context(), req.SessionID, req.Transcript)
	if err != nil {
		logger.ErrorContext(r.Context(), "image batch failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate images")
		return
	}

	resp := generateImagesResponse{
		SessionID:         req.SessionID,
		Images:            []imageResult{toImageResult(first.Index, first.Speaker, first.ImageURL, first.Err)},
		RemainingSegments: remaining,
	}
	if resp.RemainingSegments == nil {
		resp.RemainingSegments = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func toImageResult(index int, speaker, url, errMsg string) imageResult {
	res := imageResult{Index: index, Speaker: speaker, Error: errMsg}
	if url != "" {
		res.ImageURL = &url
	}
	return res
}

func (s *Server) handleImageProgress(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	results, err := s.opts.Progress.Snapshot(r.Context(), sessionID)
	if err != nil {
		logger.ErrorContext(r.Context(), "progress snapshot failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read image progress")
		return
	}

	images := make([]imageResult, len(results))
	for i, res := range results {
		images[i] = toImageResult(res.Index, res.Speaker, res.ImageURL, res.Err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"images": images})
}

type researchRequest struct {
	Topic string `json:"topic"`
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}

	if err := s.opts.Research.StartResearch(r.Context(), req.Topic); err != nil {
		logger.ErrorContext(r.Context(), "failed to start research", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to start research")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Research started successfully"})
}

func (s *Server) handleResearchStatus(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for evt := range s.opts.Research.Subscribe(r.Context()) {
		data, err := json.Marshal(evt)
		if err != nil {
			logger.Warn("failed to marshal status event", "error", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (s *Server) handleGetResearchConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.opts.Research.Config(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to get research config", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get configuration")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handlePutResearchConfig(w http.ResponseWriter, r *http.Request) {
	var cfg relay.ResearchConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := s.opts.Research.UpdateConfig(r.Context(), &cfg)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to update research config", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update configuration")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type enrichRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	var req enrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "Text is required")
		return
	}

	content, err := s.opts.Enricher.Enrich(r.Context(), req.Text)
	if err != nil {
		logger.ErrorContext(r.Context(), "enrichment failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to enrich text")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"enrichedContent": content})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
