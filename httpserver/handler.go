package httpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mosaicnet/subnet-launcher/common"
	"github.com/mosaicnet/subnet-launcher/interfaces"
)

const (
	// DefaultGenerationSteps matches the upstream sampler default.
	DefaultGenerationSteps = 50

	// DefaultInferenceTimeout bounds calls to the remote inference API.
	DefaultInferenceTimeout = 60 * time.Second

	// maxBodySize is the maximum allowed request body size (8MB). Score
	// requests carry a base64 PNG.
	maxBodySize = 8 << 20

	// maxErrorDetail caps how much of an upstream error body is quoted.
	maxErrorDetail = 512
)

// GenerateRequest is the miner generation call body.
type GenerateRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Steps          int    `json:"steps,omitempty"`
	Seed           *int64 `json:"seed,omitempty"`
}

// GenerateResponse carries the generated image as base64-encoded PNG data.
type GenerateResponse struct {
	Image string `json:"image"`
}

// ScoreRequest asks the validator to rate an image against its prompt.
type ScoreRequest struct {
	Image  string `json:"image"`
	Prompt string `json:"prompt"`
}

// ScoreResponse carries the similarity score.
type ScoreResponse struct {
	Score float64 `json:"score"`
}

// Metadata describes the running module process.
type Metadata struct {
	Identity string `json:"identity"`
	Role     string `json:"role"`
	Backend  string `json:"backend,omitempty"`
	Version  string `json:"version"`
}

// Provider produces a base64-encoded image for a prompt. Implementations
// forward to an external inference API.
type Provider interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Scorer rates how well an image matches a prompt.
type Scorer interface {
	Score(ctx context.Context, req ScoreRequest) (float64, error)
}

// Handler serves the module API for one role. A miner carries a Provider,
// a validator a Scorer; calls for the missing role are rejected.
type Handler struct {
	identity interfaces.ModuleIdentity
	role     interfaces.ModuleRole
	provider Provider
	scorer   Scorer
	backend  string
	log      *slog.Logger
}

// NewHandler creates a module API handler. backend names the remote
// inference endpoint for the metadata response and may be empty.
func NewHandler(identity interfaces.ModuleIdentity, role interfaces.ModuleRole, provider Provider, scorer Scorer, backend string, log *slog.Logger) *Handler {
	return &Handler{
		identity: identity,
		role:     role,
		provider: provider,
		scorer:   scorer,
		backend:  backend,
		log:      log,
	}
}

// HandleGenerate serves the miner generation endpoint.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		http.Error(w, "generation is not served by this module", http.StatusNotFound)
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Prompt == "" {
		http.Error(w, "prompt is required", http.StatusBadRequest)
		return
	}
	if req.Steps <= 0 {
		req.Steps = DefaultGenerationSteps
	}

	image, err := h.provider.Generate(r.Context(), req)
	if err != nil {
		h.log.Error("Image generation failed", "err", err)
		http.Error(w, "generation failed", http.StatusBadGateway)
		return
	}

	h.respondJSON(w, GenerateResponse{Image: image})
}

// HandleScore serves the validator scoring endpoint.
func (h *Handler) HandleScore(w http.ResponseWriter, r *http.Request) {
	if h.scorer == nil {
		http.Error(w, "scoring is not served by this module", http.StatusNotFound)
		return
	}

	var req ScoreRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Image == "" || req.Prompt == "" {
		http.Error(w, "image and prompt are required", http.StatusBadRequest)
		return
	}

	score, err := h.scorer.Score(r.Context(), req)
	if err != nil {
		h.log.Error("Scoring failed", "err", err)
		http.Error(w, "scoring failed", http.StatusBadGateway)
		return
	}

	h.respondJSON(w, ScoreResponse{Score: score})
}

// HandleMetadata describes the module for operators and monitoring.
func (h *Handler) HandleMetadata(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, Metadata{
		Identity: h.identity.String(),
		Role:     h.role.String(),
		Backend:  h.backend,
		Version:  common.Version,
	})
}

func (h *Handler) respondJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

// RemoteProvider forwards generation to an OpenAI-style images API:
// POST <base>/images/generations with response_format b64_json.
type RemoteProvider struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewRemoteProvider builds a provider for the inference API at baseURL.
// A nil client gets a default with DefaultInferenceTimeout.
func NewRemoteProvider(baseURL, apiKey, model string, client *http.Client) *RemoteProvider {
	if client == nil {
		client = &http.Client{Timeout: DefaultInferenceTimeout}
	}
	return &RemoteProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  client,
	}
}

// Generate submits the prompt upstream and returns the base64 image.
// Some gateways answer with a URL instead of inline data; those images
// are fetched and re-encoded.
func (p *RemoteProvider) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	payload := map[string]any{
		"prompt":          req.Prompt,
		"n":               1,
		"response_format": "b64_json",
	}
	if req.NegativePrompt != "" {
		payload["negative_prompt"] = req.NegativePrompt
	}
	if req.Steps > 0 {
		payload["steps"] = req.Steps
	}
	if req.Seed != nil {
		payload["seed"] = *req.Seed
	}
	if p.model != "" {
		payload["model"] = p.model
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generation API returned %d: %s", resp.StatusCode, readErrorDetail(resp.Body))
	}

	var parsed struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
			URL     string `json:"url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return "", errors.New("generation API returned no image data")
	}

	if parsed.Data[0].B64JSON != "" {
		return parsed.Data[0].B64JSON, nil
	}
	if parsed.Data[0].URL != "" {
		return p.fetchImage(ctx, parsed.Data[0].URL)
	}
	return "", errors.New("generation API returned neither inline data nor a URL")
}

func (p *RemoteProvider) fetchImage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("image download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image download returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read image body: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// RemoteScorer posts images to an external scoring API:
// POST <base>/score with the image and prompt.
type RemoteScorer struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRemoteScorer builds a scorer for the scoring API at baseURL.
// A nil client gets a default with DefaultInferenceTimeout.
func NewRemoteScorer(baseURL, apiKey string, client *http.Client) *RemoteScorer {
	if client == nil {
		client = &http.Client{Timeout: DefaultInferenceTimeout}
	}
	return &RemoteScorer{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

// Score submits the image and prompt upstream. Older scoring APIs answer
// with a "similarity" field instead of "score"; both are accepted.
func (s *RemoteScorer) Score(ctx context.Context, req ScoreRequest) (float64, error) {
	body, err := json.Marshal(map[string]string{
		"image":  req.Image,
		"prompt": req.Prompt,
	})
	if err != nil {
		return 0, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("scoring request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("scoring API returned %d: %s", resp.StatusCode, readErrorDetail(resp.Body))
	}

	var parsed struct {
		Score      *float64 `json:"score"`
		Similarity *float64 `json:"similarity"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode scoring response: %w", err)
	}

	switch {
	case parsed.Score != nil:
		return *parsed.Score, nil
	case parsed.Similarity != nil:
		return *parsed.Similarity, nil
	default:
		return 0, errors.New("scoring API returned no score field")
	}
}

func readErrorDetail(body io.Reader) string {
	detail, _ := io.ReadAll(io.LimitReader(body, maxErrorDetail))
	return strings.TrimSpace(string(detail))
}
