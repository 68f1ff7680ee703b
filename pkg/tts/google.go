package tts

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
)

// GoogleSynthesizer 使用 Google Cloud Text-to-Speech，凭证来自 ADC（GOOGLE_APPLICATION_CREDENTIALS）
type GoogleSynthesizer struct {
	client   *texttospeech.Client
	encoding Encoding
}

func NewGoogleSynthesizer(ctx context.Context, encoding Encoding) (*GoogleSynthesizer, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create text-to-speech client: %w", err)
	}
	if encoding == "" {
		encoding = EncodingMP3
	}
	return &GoogleSynthesizer{client: client, encoding: encoding}, nil
}

func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	audioEncoding := texttospeechpb.AudioEncoding_MP3
	if g.encoding == EncodingLinear16 {
		audioEncoding = texttospeechpb.AudioEncoding_LINEAR16
	}
	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: voice.LanguageCode,
			Name:         voice.Name,
		},
		AudioConfig: &texttospeechpb.AudioConfig{AudioEncoding: audioEncoding},
	})
	if err != nil {
		return nil, err
	}
	return resp.GetAudioContent(), nil
}

func (g *GoogleSynthesizer) MimeType() string {
	return g.encoding.MimeType()
}

func (g *GoogleSynthesizer) Close() error {
	return g.client.Close()
}
