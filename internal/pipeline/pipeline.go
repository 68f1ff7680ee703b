// Package pipeline wires resources, generators and the artifact cache into the public entry points.
package pipeline

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"VidyaSync/internal/artifact"
	"VidyaSync/internal/models"
	"VidyaSync/internal/search"
	"VidyaSync/pkg/errors"
	"VidyaSync/pkg/storage"
	"VidyaSync/pkg/tts"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// TranscriptGenerator 见 generator.TranscriptGenerator
type TranscriptGenerator interface {
	GenerateTranscript(ctx context.Context, fileURL, targetLanguage string) ([]models.TranscriptSegment, error)
}

// DubGenerator 见 generator.DubGenerator
type DubGenerator interface {
	GenerateDubAudio(ctx context.Context, segments []models.TranscriptSegment, targetLanguage string) ([]models.DubSegment, error)
}

// EventPublisher 生成完成或失败时按资源推送事件
type EventPublisher interface {
	Publish(topic, event string, payload interface{})
}

// 事件名
const (
	EventTranscriptReady  = "transcript.ready"
	EventDubbingReady     = "dubbing.ready"
	EventGenerationFailed = "generation.failed"
)

// Event 事件负载
type Event struct {
	ResourceID string `json:"resourceId"`
	Kind       string `json:"kind"`
	Language   string `json:"language"`
	Segments   int    `json:"segments,omitempty"`
	Error      string `json:"error,omitempty"`
}

type Options struct {
	// ChainTranscript 为 true 时配音缺少字幕会先生成字幕，否则返回 DependencyMissing
	ChainTranscript bool
}

type Deps struct {
	DB          *gorm.DB
	Cache       *artifact.Cache
	Transcripts TranscriptGenerator
	Dubs        DubGenerator
	AudioStore  storage.Store  // 可选，配置后配音音频转存到对象存储
	Index       *search.Index  // 可选
	Events      EventPublisher // 可选
	Logger      *zap.Logger
}

type Service struct {
	db          *gorm.DB
	cache       *artifact.Cache
	transcripts TranscriptGenerator
	dubs        DubGenerator
	audio       storage.Store
	index       *search.Index
	events      EventPublisher
	opts        Options
	logger      *zap.Logger
}

func NewService(deps Deps, opts Options) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:          deps.DB,
		cache:       deps.Cache,
		transcripts: deps.Transcripts,
		dubs:        deps.Dubs,
		audio:       deps.AudioStore,
		index:       deps.Index,
		events:      deps.Events,
		opts:        opts,
		logger:      logger,
	}
}

func (s *Service) CreateResource(ctx context.Context, r *models.Resource) error {
	if strings.TrimSpace(r.FileURL) == "" {
		return errors.Validation("fileUrl is required")
	}
	return models.CreateResource(s.db.WithContext(ctx), r)
}

func (s *Service) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	r, err := models.GetResource(s.db.WithContext(ctx), id)
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFound("resource %s not found", id)
	}
	return r, err
}

// GetOrCreateTranscript 返回缓存的字幕，未命中时按资源的 fileUrl 生成
func (s *Service) GetOrCreateTranscript(ctx context.Context, resourceID, language string) (*models.Transcript, error) {
	language, err := canonicalLanguage(language)
	if err != nil {
		return nil, err
	}
	t, err := s.cache.GetOrCreateTranscript(ctx, resourceID, language, func(ctx context.Context) (*models.Transcript, error) {
		r, err := s.GetResource(ctx, resourceID)
		if err != nil {
			return nil, err
		}
		segments, err := s.transcripts.GenerateTranscript(ctx, r.FileURL, language)
		if err != nil {
			s.publishFailure(resourceID, models.KindTranscript, language, err)
			return nil, err
		}
		t := &models.Transcript{
			ResourceID: resourceID,
			Language:   language,
			Segments:   segments,
			CreatedAt:  time.Now(),
		}
		if s.index != nil {
			if err := s.index.IndexTranscript(ctx, t); err != nil {
				s.logger.Warn("transcript indexing failed", zap.String("resource_id", resourceID), zap.Error(err))
			}
		}
		s.publish(resourceID, EventTranscriptReady, Event{
			ResourceID: resourceID,
			Kind:       string(models.KindTranscript),
			Language:   language,
			Segments:   len(segments),
		})
		return t, nil
	})
	return t, s.discarded(ctx, resourceID, err)
}

// GetOrCreateDubbing 返回缓存的配音，未命中时基于同语言字幕生成
func (s *Service) GetOrCreateDubbing(ctx context.Context, resourceID, language string) (*models.Dubbing, error) {
	language, err := canonicalLanguage(language)
	if err != nil {
		return nil, err
	}
	d, err := s.cache.GetOrCreateDubbing(ctx, resourceID, language, func(ctx context.Context) (*models.Dubbing, error) {
		t, err := s.transcriptFor(ctx, resourceID, language)
		if err != nil {
			return nil, err
		}
		segments, err := s.dubs.GenerateDubAudio(ctx, t.Segments, language)
		if err != nil {
			s.publishFailure(resourceID, models.KindDubbing, language, err)
			return nil, err
		}
		if s.audio != nil {
			s.offload(ctx, resourceID, language, segments)
		}
		s.publish(resourceID, EventDubbingReady, Event{
			ResourceID: resourceID,
			Kind:       string(models.KindDubbing),
			Language:   language,
			Segments:   len(segments),
		})
		return &models.Dubbing{
			ResourceID: resourceID,
			Language:   language,
			Segments:   segments,
			CreatedAt:  time.Now(),
		}, nil
	})
	return d, s.discarded(ctx, resourceID, err)
}

func (s *Service) transcriptFor(ctx context.Context, resourceID, language string) (*models.Transcript, error) {
	if s.opts.ChainTranscript {
		return s.GetOrCreateTranscript(ctx, resourceID, language)
	}
	t, ok := s.cache.LookupTranscript(ctx, resourceID, language)
	if !ok {
		return nil, errors.DependencyMissing(resourceID, language)
	}
	return t, nil
}

// GenerateAudio 直接为给定分段合成配音，不经过缓存
func (s *Service) GenerateAudio(ctx context.Context, segments []models.TranscriptSegment, language string) ([]models.DubSegment, error) {
	if err := models.ValidateSegments(segments); err != nil {
		return nil, err
	}
	return s.dubs.GenerateDubAudio(ctx, segments, language)
}

// Search 在已生成的字幕中检索，未启用索引时返回 NotFound
func (s *Service) Search(ctx context.Context, query, language string, limit int) ([]search.Hit, error) {
	if s.index == nil {
		return nil, errors.NotFound("transcript search is not enabled")
	}
	return s.index.Search(ctx, query, language, limit)
}

// offload 把 data URI 音频上传到对象存储并替换为公开地址，失败的分段保留 data URI
func (s *Service) offload(ctx context.Context, resourceID, language string, segments []models.DubSegment) {
	for i := range segments {
		mime, audio, err := tts.DecodeDataURI(segments[i].AudioDataURI)
		if err != nil {
			continue
		}
		key := audioKey(resourceID, language, i, mime)
		if err := s.audio.Write(ctx, key, bytes.NewReader(audio), int64(len(audio)), mime); err != nil {
			s.logger.Warn("audio offload failed, keeping inline audio",
				zap.String("key", key),
				zap.Error(err))
			continue
		}
		segments[i].AudioDataURI = s.audio.PublicURL(key)
	}
}

func audioPrefix(resourceID string) string {
	return "dubbings/" + resourceID + "/"
}

func audioKey(resourceID, language string, index int, mime string) string {
	ext := "mp3"
	if mime == tts.EncodingLinear16.MimeType() {
		ext = "wav"
	}
	return fmt.Sprintf("%s%s/%d.%s", audioPrefix(resourceID), language, index, ext)
}

// DeleteResource 级联删除资源及其全部字幕、配音、音频和索引
func (s *Service) DeleteResource(ctx context.Context, resourceID string) error {
	if _, err := s.GetResource(ctx, resourceID); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, resourceID); err != nil {
		return fmt.Errorf("delete artifacts: %w", err)
	}
	s.purgeSideEffects(ctx, resourceID)
	return models.DeleteResource(s.db.WithContext(ctx), resourceID)
}

// purgeSideEffects 删除资源的转存音频和索引条目
func (s *Service) purgeSideEffects(ctx context.Context, resourceID string) {
	if s.audio != nil {
		if err := s.audio.DeletePrefix(ctx, audioPrefix(resourceID)); err != nil {
			s.logger.Warn("delete offloaded audio failed", zap.String("resource_id", resourceID), zap.Error(err))
		}
	}
	if s.index != nil {
		if err := s.index.DeleteResource(ctx, resourceID); err != nil {
			s.logger.Warn("delete index entries failed", zap.String("resource_id", resourceID), zap.Error(err))
		}
	}
}

// discarded 生成期间资源被删除时，清理生成过程中已写出的音频和索引
func (s *Service) discarded(ctx context.Context, resourceID string, err error) error {
	if stderrors.Is(err, artifact.ErrResourceDeleted) {
		s.purgeSideEffects(context.WithoutCancel(ctx), resourceID)
	}
	return err
}

func (s *Service) publish(resourceID, event string, e Event) {
	if s.events != nil {
		s.events.Publish(resourceID, event, e)
	}
}

func (s *Service) publishFailure(resourceID string, kind models.ArtifactKind, language string, err error) {
	s.publish(resourceID, EventGenerationFailed, Event{
		ResourceID: resourceID,
		Kind:       string(kind),
		Language:   language,
		Error:      errors.GetMessage(err),
	})
}

// canonicalLanguage 语言名按词首字母大写（"hindi" -> "Hindi"），BCP-47 代码按规范大小写（"HI-in" -> "hi-IN"）
func canonicalLanguage(lang string) (string, error) {
	l := strings.Join(strings.Fields(lang), " ")
	if l == "" {
		return "", errors.Validation("language is required")
	}
	if base, _, _ := strings.Cut(l, "-"); len(base) == 2 || len(base) == 3 {
		if tag, err := language.Parse(l); err == nil {
			return tag.String(), nil
		}
	}
	return cases.Title(language.English).String(l), nil
}
