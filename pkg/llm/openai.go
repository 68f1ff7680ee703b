package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// OpenAIHandler talks to any OpenAI-compatible chat completion endpoint.
type OpenAIHandler struct {
	client *openai.Client
	model  string
	logger *logrus.Logger
}

// NewOpenAIHandler creates a new OpenAI handler. An empty baseURL uses the public API.
func NewOpenAIHandler(apiKey, baseURL, model string, logger *logrus.Logger) *OpenAIHandler {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIHandler{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

// Transcribe sends the media URL as an image_url content part and asks for a JSON object reply.
func (h *OpenAIHandler) Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResponse, error) {
	h.logger.WithFields(logrus.Fields{
		"model":    h.model,
		"media":    req.MediaURL,
		"language": req.TargetLanguage,
	}).Debug("requesting transcript")

	resp, err := h.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       h.model,
		Temperature: 0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: req.MediaURL},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: TranscriptionPrompt(req.TargetLanguage),
					},
				},
			},
		},
	})
	if err != nil {
		h.logger.WithError(err).Error("transcription request failed")
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}
	return &TranscriptionResponse{Content: resp.Choices[0].Message.Content, Model: resp.Model}, nil
}

// Complete runs a plain chat completion with an optional system message.
func (h *OpenAIHandler) Complete(ctx context.Context, system, prompt string) (string, error) {
	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := h.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    h.model,
		Messages: messages,
	})
	if err != nil {
		h.logger.WithError(err).Error("completion request failed")
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
