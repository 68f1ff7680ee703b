package tts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoiceFor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hindi", "hi-IN-Neural2-A"},
		{"  HINDI ", "hi-IN-Neural2-A"},
		{"hi", "hi-IN-Neural2-A"},
		{"hi-IN", "hi-IN-Neural2-A"},
		{"Tamil", "ta-IN-Wavenet-B"},
		{"ta", "ta-IN-Wavenet-B"},
		{"Bengali", "bn-IN-Wavenet-A"},
		{"kn", "kn-IN-Wavenet-A"},
		{"Telugu", "te-IN-Standard-A"},
		{"English", "en-IN-Neural2-A"},
		{"en", "en-IN-Neural2-A"},
		{"Klingon", "en-US-Neural2-F"},
		{"fr", "en-US-Neural2-F"},
		{"", "en-US-Neural2-F"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, VoiceFor(tt.in).Name)
		})
	}
}

func TestDataURIRoundTrip(t *testing.T) {
	uri := DataURI("audio/mp3", []byte("ID3audio"))
	assert.Equal(t, "data:audio/mp3;base64,SUQzYXVkaW8=", uri)

	mime, b, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "audio/mp3", mime)
	assert.Equal(t, []byte("ID3audio"), b)

	_, _, err = DecodeDataURI("https://cdn.example.com/a.mp3")
	assert.ErrorIs(t, err, ErrNotDataURI)
}

func TestEncodingMimeType(t *testing.T) {
	assert.Equal(t, "audio/mp3", EncodingMP3.MimeType())
	assert.Equal(t, "audio/wav", EncodingLinear16.MimeType())
}

func TestOpenAISynthesizer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "नमस्ते", req["input"])
		assert.Equal(t, "nova", req["voice"])
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = io.WriteString(w, "mp3-bytes")
	}))
	defer srv.Close()

	s := NewOpenAISynthesizer("k", srv.URL, "")
	audio, err := s.Synthesize(context.Background(), "नमस्ते", VoiceFor("Hindi"))
	require.NoError(t, err)
	assert.Equal(t, "mp3-bytes", string(audio))
	assert.Equal(t, "audio/mp3", s.MimeType())
}
