package generator

import (
	"context"
	stderrors "errors"
	"time"
	"unicode/utf8"

	"VidyaSync/internal/models"
	"VidyaSync/pkg/errors"
	"VidyaSync/pkg/tts"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxSpeechChars 单段合成文本上限，超出部分截断
const MaxSpeechChars = 4000

// DubGenerator 为每个字幕分段合成配音
type DubGenerator struct {
	synth       tts.Synthesizer
	concurrency int
	timeout     time.Duration
	logger      *zap.Logger
}

func NewDubGenerator(synth tts.Synthesizer, concurrency int, timeout time.Duration, logger *zap.Logger) *DubGenerator {
	if concurrency <= 0 {
		concurrency = 4
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DubGenerator{synth: synth, concurrency: concurrency, timeout: timeout, logger: logger}
}

// GenerateDubAudio 输出与输入一一对应；任一分段失败则整体失败，不返回部分结果
func (g *DubGenerator) GenerateDubAudio(ctx context.Context, segments []models.TranscriptSegment, targetLanguage string) ([]models.DubSegment, error) {
	if len(segments) == 0 {
		return nil, errors.Validation("no segments to dub")
	}
	voice := tts.VoiceFor(targetLanguage)
	g.logger.Info("generating dub audio",
		zap.String("language", targetLanguage),
		zap.String("voice", voice.Name),
		zap.Int("segments", len(segments)))

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out := make([]models.DubSegment, len(segments))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i, seg := range segments {
		i, seg := i, seg
		eg.Go(func() error {
			audio, err := g.synth.Synthesize(egCtx, g.truncate(i, seg.Text), voice)
			if err != nil {
				return errors.Generation(err, "speech synthesis failed for segment %d", i)
			}
			if len(audio) == 0 {
				return errors.Generation(nil, "speech synthesis returned no audio for segment %d", i)
			}
			out[i] = models.DubSegment{
				TranscriptSegment: seg,
				AudioDataURI:      tts.DataURI(g.synth.MimeType(), audio),
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.Generation(err, "dub generation timed out after %s", g.timeout)
		}
		return nil, err
	}
	return out, nil
}

func (g *DubGenerator) truncate(index int, text string) string {
	if utf8.RuneCountInString(text) <= MaxSpeechChars {
		return text
	}
	g.logger.Warn("segment text truncated for synthesis",
		zap.Int("segment", index),
		zap.Int("chars", utf8.RuneCountInString(text)))
	return string([]rune(text)[:MaxSpeechChars])
}
