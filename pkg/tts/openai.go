package tts

import (
	"context"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAISynthesizer 使用 OpenAI 兼容的 /audio/speech 接口
type OpenAISynthesizer struct {
	client *openai.Client
	model  openai.SpeechModel
}

func NewOpenAISynthesizer(apiKey, baseURL, model string) *OpenAISynthesizer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = string(openai.TTSModel1)
	}
	return &OpenAISynthesizer{client: openai.NewClientWithConfig(cfg), model: openai.SpeechModel(model)}
}

// openAIVoice OpenAI 音色不区分语言，按 Google 音色的性别近似映射
func openAIVoice(v Voice) openai.SpeechVoice {
	if strings.HasSuffix(v.Name, "-B") {
		return openai.VoiceOnyx
	}
	return openai.VoiceNova
}

func (o *OpenAISynthesizer) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          o.model,
		Input:          text,
		Voice:          openAIVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	return io.ReadAll(resp)
}

func (o *OpenAISynthesizer) MimeType() string {
	return EncodingMP3.MimeType()
}
