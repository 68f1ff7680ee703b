package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// TranscriptionRequest asks a multimodal model to transcribe and translate a media file.
type TranscriptionRequest struct {
	MediaURL       string
	TargetLanguage string
}

// TranscriptionResponse carries the model's raw reply. Callers decode and validate it.
type TranscriptionResponse struct {
	Content string
	Model   string
}

// TranscriptionModel turns a media URL into timestamped, translated text.
type TranscriptionModel interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResponse, error)
}

// Completer runs a single-turn text completion.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Handler is implemented by every provider in this package.
type Handler interface {
	TranscriptionModel
	Completer
}

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// NewHandler creates a provider handler by name.
func NewHandler(provider, apiKey, baseURL, model string, logger *logrus.Logger) (Handler, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	switch strings.ToLower(provider) {
	case "", ProviderOpenAI:
		return NewOpenAIHandler(apiKey, baseURL, model, logger), nil
	case ProviderOllama:
		return NewOllamaHandler(apiKey, baseURL, model, logger), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}

// TranscriptionPrompt builds the instruction sent alongside the media part.
func TranscriptionPrompt(targetLanguage string) string {
	return fmt.Sprintf(`You are an expert transcriber and translator.

TASK:
1. Transcribe the speech from the video.
2. Translate the speech into %[1]s.
3. Divide the translated speech into logical sentence-level segments.

OUTPUT RULES:
- The "text" field MUST be in %[1]s.
- If the original audio is in English, you MUST translate it to %[1]s.
- Do NOT return English text unless the target language is English.
- Use the correct script for the target language (e.g., Devanagari for Hindi, Tamil script for Tamil).

For each segment, provide:
1. "start": The start timestamp in MM:SS format (e.g., "00:05").
2. "end": The end timestamp in MM:SS format (e.g., "00:12").
3. "text": The translated text in %[1]s.

Return ONLY a JSON object of the form {"segments":[{"start":"MM:SS","end":"MM:SS","text":"..."}]}.`, targetLanguage)
}

var ErrNoJSONObject = errors.New("no JSON object in model output")

// ExtractJSONObject strips markdown fences and surrounding prose from a model reply.
func ExtractJSONObject(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", ErrNoJSONObject
	}
	return s[start : end+1], nil
}
