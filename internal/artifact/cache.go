// Package artifact implements cache-or-generate for transcripts and dubbings.
package artifact

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"time"

	"VidyaSync/internal/models"
	"VidyaSync/internal/store"
	"VidyaSync/pkg/errors"
	"VidyaSync/pkg/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Document 可缓存的产物
type Document interface {
	SegmentCount() int
}

// Generator 缓存未命中时调用
type Generator[T any] func(ctx context.Context) (*T, error)

// ErrResourceDeleted 生成期间资源被删除，结果已丢弃
var ErrResourceDeleted = stderrors.New("resource deleted during generation")

// Cache 按 (资源, 类型, 语言) 缓存生成结果；同一键同时只有一次生成在进行，失败不缓存
type Cache struct {
	store   store.DocumentStore
	writer  *Writer
	group   singleflight.Group
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	epochs map[string]uint64 // 资源删除次数，生成结果只在纪元未变时写入
}

// NewCache timeout 限制一次共享生成的总时长，包括串联的字幕生成
func NewCache(s store.DocumentStore, w *Writer, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *Cache {
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{store: s, writer: w, timeout: timeout, logger: logger, metrics: m, epochs: make(map[string]uint64)}
}

func (c *Cache) GetOrCreateTranscript(ctx context.Context, resourceID, language string, gen Generator[models.Transcript]) (*models.Transcript, error) {
	return getOrCreate[models.Transcript](ctx, c, transcriptKey(resourceID, language), gen)
}

func (c *Cache) GetOrCreateDubbing(ctx context.Context, resourceID, language string, gen Generator[models.Dubbing]) (*models.Dubbing, error) {
	return getOrCreate[models.Dubbing](ctx, c, dubbingKey(resourceID, language), gen)
}

// LookupTranscript 只读查询，不触发生成
func (c *Cache) LookupTranscript(ctx context.Context, resourceID, language string) (*models.Transcript, bool) {
	return lookup[models.Transcript](ctx, c, transcriptKey(resourceID, language))
}

func (c *Cache) LookupDubbing(ctx context.Context, resourceID, language string) (*models.Dubbing, bool) {
	return lookup[models.Dubbing](ctx, c, dubbingKey(resourceID, language))
}

// Delete 删除资源的全部产物，包括尚未落盘的；进行中的生成完成后结果被丢弃
func (c *Cache) Delete(ctx context.Context, resourceID string) error {
	c.mu.Lock()
	c.epochs[resourceID]++
	c.writer.Forget(resourceID)
	c.mu.Unlock()
	return c.store.DeleteByResource(ctx, resourceID)
}

func (c *Cache) epoch(resourceID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epochs[resourceID]
}

// commit 资源未在生成期间被删除时登记写入
func (c *Cache) commit(key models.ArtifactKey, epoch uint64, data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epochs[key.ResourceID] != epoch {
		return false
	}
	c.writer.Enqueue(key, data)
	return true
}

func transcriptKey(resourceID, language string) models.ArtifactKey {
	return models.ArtifactKey{Kind: models.KindTranscript, ResourceID: resourceID, Language: language}
}

func dubbingKey(resourceID, language string) models.ArtifactKey {
	return models.ArtifactKey{Kind: models.KindDubbing, ResourceID: resourceID, Language: language}
}

// lookup 先读未确认写入，再读存储；不存在、为空或无法解码都视为未命中
func lookup[T any, PT interface {
	*T
	Document
}](ctx context.Context, c *Cache, key models.ArtifactKey) (PT, bool) {
	data, ok := c.writer.Pending(key)
	if !ok {
		doc, err := c.store.Get(ctx, key)
		if err != nil {
			c.logger.Warn("artifact store read failed, treating as miss", zap.String("key", key.String()), zap.Error(err))
			return nil, false
		}
		if !doc.Exists {
			return nil, false
		}
		data = doc.Data
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Warn("undecodable artifact, treating as miss", zap.String("key", key.String()), zap.Error(err))
		return nil, false
	}
	p := PT(&v)
	if p.SegmentCount() == 0 {
		return nil, false
	}
	return p, true
}

func getOrCreate[T any, PT interface {
	*T
	Document
}](ctx context.Context, c *Cache, key models.ArtifactKey, gen func(context.Context) (*T, error)) (*T, error) {
	kind := string(key.Kind)
	if v, ok := lookup[T, PT](ctx, c, key); ok {
		c.metrics.RecordArtifactLookup(kind, true)
		return (*T)(v), nil
	}
	c.metrics.RecordArtifactLookup(kind, false)

	ch := c.group.DoChan(key.String(), func() (interface{}, error) {
		epoch := c.epoch(key.ResourceID)
		// 排队期间可能已有其他调用完成生成
		if v, ok := lookup[T, PT](ctx, c, key); ok {
			return (*T)(v), nil
		}

		gctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		start := time.Now()
		v, err := gen(gctx)
		if err == nil && (v == nil || PT(v).SegmentCount() == 0) {
			err = errors.Generation(nil, "%s generation returned no segments", kind)
		}
		err = timedOut(gctx, err, kind)
		c.metrics.ObserveGeneration(kind, time.Since(start), err)
		if err != nil {
			c.logger.Warn("artifact generation failed", zap.String("key", key.String()), zap.Error(err))
			return nil, err
		}

		data, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeUnknown, "encode artifact")
		}
		if !c.commit(key, epoch, data) {
			c.logger.Info("resource deleted during generation, result discarded", zap.String("key", key.String()))
			return nil, errors.Wrap(ErrResourceDeleted, errors.CodeNotFound, "resource "+key.ResourceID+" was deleted")
		}
		c.logger.Info("artifact generated",
			zap.String("key", key.String()),
			zap.Int("segments", PT(v).SegmentCount()),
			zap.Duration("took", time.Since(start)))
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*T), nil
	case <-ctx.Done():
		return nil, timedOut(ctx, ctx.Err(), kind)
	}
}

// timedOut 把截止时间到期转换为可重试的生成错误；调用方主动取消保持原样
func timedOut(ctx context.Context, err error, kind string) error {
	if err == nil || errors.GetCode(err) != errors.CodeUnknown {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Generation(err, "%s generation timed out", kind)
	}
	return err
}
