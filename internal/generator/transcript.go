// Package generator produces translated transcripts and dubbed audio through external models.
package generator

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"VidyaSync/internal/models"
	"VidyaSync/pkg/errors"
	"VidyaSync/pkg/llm"

	"go.uber.org/zap"
)

// DefaultTimeout 外部生成调用的上限
const DefaultTimeout = 60 * time.Second

// TranscriptGenerator 调用多模态模型生成带时间戳的译文字幕
type TranscriptGenerator struct {
	model   llm.TranscriptionModel
	timeout time.Duration
	logger  *zap.Logger
}

func NewTranscriptGenerator(model llm.TranscriptionModel, timeout time.Duration, logger *zap.Logger) *TranscriptGenerator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptGenerator{model: model, timeout: timeout, logger: logger}
}

// transcriptReply 模型回复；Segments 为 nil 表示回复里没有 segments 字段
type transcriptReply struct {
	Segments   *[]models.TranscriptSegment `json:"segments"`
	Transcript string                      `json:"transcript"`
	Text       string                      `json:"text"`
}

// GenerateTranscript 转写并翻译 fileURL，返回按开始时间排序的分段
func (g *TranscriptGenerator) GenerateTranscript(ctx context.Context, fileURL, targetLanguage string) ([]models.TranscriptSegment, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.model.Transcribe(ctx, llm.TranscriptionRequest{MediaURL: fileURL, TargetLanguage: targetLanguage})
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.Generation(err, "transcript generation timed out after %s", g.timeout)
		}
		return nil, errors.Generation(err, "transcription model failed")
	}

	segments, err := parseTranscript(resp.Content)
	if err != nil {
		g.logger.Warn("rejected transcript reply",
			zap.String("language", targetLanguage),
			zap.Error(err))
		return nil, err
	}

	g.logger.Info("transcript generated",
		zap.String("language", targetLanguage),
		zap.Int("segments", len(segments)),
		zap.Duration("took", time.Since(start)))
	return segments, nil
}

func parseTranscript(content string) ([]models.TranscriptSegment, error) {
	raw, err := llm.ExtractJSONObject(content)
	if err != nil {
		return nil, errors.Validation("model returned flat text instead of timestamped segments")
	}
	var reply transcriptReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "model returned malformed JSON")
	}
	if reply.Segments == nil {
		return nil, errors.Validation("model returned flat text instead of timestamped segments")
	}
	if len(*reply.Segments) == 0 {
		return nil, errors.Generation(nil, "model returned no segments")
	}
	segments := models.NormalizeSegments(*reply.Segments)
	if err := models.ValidateSegments(segments); err != nil {
		return nil, err
	}
	return segments, nil
}
