// Package tts synthesizes speech for dubbed transcript segments.
package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/text/language"
)

// Voice 语音选择参数
type Voice struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name"`
}

// Synthesizer 文本转语音
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error)
	// MimeType 返回生成音频的 MIME 类型
	MimeType() string
}

// Encoding 音频编码
type Encoding string

const (
	EncodingMP3      Encoding = "mp3"
	EncodingLinear16 Encoding = "linear16"
)

// MimeType 编码对应的 data URI MIME 类型
func (e Encoding) MimeType() string {
	if e == EncodingLinear16 {
		return "audio/wav"
	}
	return "audio/mp3"
}

// DefaultVoice 无法识别语言时使用
var DefaultVoice = Voice{LanguageCode: "en-US", Name: "en-US-Neural2-F"}

type voiceEntry struct {
	name  string // 语言英文名
	base  string // ISO 639-1
	voice Voice
}

var voiceTable = []voiceEntry{
	{"hindi", "hi", Voice{"hi-IN", "hi-IN-Neural2-A"}},
	{"tamil", "ta", Voice{"ta-IN", "ta-IN-Wavenet-B"}},
	{"bengali", "bn", Voice{"bn-IN", "bn-IN-Wavenet-A"}},
	{"kannada", "kn", Voice{"kn-IN", "kn-IN-Wavenet-A"}},
	{"telugu", "te", Voice{"te-IN", "te-IN-Standard-A"}},
	{"english", "en", Voice{"en-IN", "en-IN-Neural2-A"}},
}

// VoiceFor 按语言名（如 "Hindi"）或 BCP-47 代码（如 "hi"、"ta-IN"）选择音色，未知语言返回 DefaultVoice
func VoiceFor(lang string) Voice {
	l := strings.ToLower(strings.TrimSpace(lang))
	if l == "" {
		return DefaultVoice
	}
	for _, e := range voiceTable {
		if strings.Contains(l, e.name) {
			return e.voice
		}
	}
	tag, err := language.Parse(l)
	if err != nil {
		return DefaultVoice
	}
	base, conf := tag.Base()
	if conf == language.No {
		return DefaultVoice
	}
	for _, e := range voiceTable {
		if base.String() == e.base {
			return e.voice
		}
	}
	return DefaultVoice
}

// DataURI 编码为 data:{mime};base64,...
func DataURI(mime string, audio []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(audio)
}

var ErrNotDataURI = errors.New("not a base64 data URI")

// DecodeDataURI 解析 base64 data URI，返回 MIME 类型和内容
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, ErrNotDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrNotDataURI
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, ErrNotDataURI
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, err
	}
	return mime, b, nil
}
