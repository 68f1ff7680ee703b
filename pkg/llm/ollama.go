package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// OllamaHandler implements Handler against Ollama's /api/generate endpoint
type OllamaHandler struct {
	apiKey    string
	ollamaURL string
	model     string
	client    *http.Client
	logger    *logrus.Logger
}

// NewOllamaHandler creates a new Ollama handler
func NewOllamaHandler(apiKey, ollamaURL, model string, logger *logrus.Logger) *OllamaHandler {
	if ollamaURL == "" {
		ollamaURL = "http://localhost:11434"
	}
	return &OllamaHandler{
		apiKey:    apiKey,
		ollamaURL: strings.TrimRight(ollamaURL, "/"),
		model:     model,
		client:    http.DefaultClient,
		logger:    logger,
	}
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Format string `json:"format,omitempty"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Transcribe passes the media URL inline; the model must be able to fetch it.
func (h *OllamaHandler) Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResponse, error) {
	out, err := h.generate(ctx, ollamaGenerateRequest{
		Model:  h.model,
		Prompt: "Media: " + req.MediaURL + "\n\n" + TranscriptionPrompt(req.TargetLanguage),
		Format: "json",
	})
	if err != nil {
		return nil, err
	}
	return &TranscriptionResponse{Content: out.Response, Model: out.Model}, nil
}

// Complete queries the model with text and returns its reply
func (h *OllamaHandler) Complete(ctx context.Context, system, prompt string) (string, error) {
	out, err := h.generate(ctx, ollamaGenerateRequest{Model: h.model, Prompt: prompt, System: system})
	if err != nil {
		return "", err
	}
	return out.Response, nil
}

func (h *OllamaHandler) generate(ctx context.Context, in ollamaGenerateRequest) (*ollamaGenerateResponse, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.ollamaURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.WithError(err).Error("ollama request failed")
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var out ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || out.Error != "" {
		return nil, fmt.Errorf("ollama returned %d: %s", resp.StatusCode, out.Error)
	}
	h.logger.WithField("model", out.Model).Debug("ollama response received")
	return &out, nil
}
